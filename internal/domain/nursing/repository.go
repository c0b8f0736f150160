package nursing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedules []*Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteSlot removes every row with exactly this ward and window.
	DeleteSlot(ctx context.Context, wardID uuid.UUID, start, end time.Time) (int64, error)

	// DeleteStartingWithin removes rows of the wards starting in [from, to).
	DeleteStartingWithin(ctx context.Context, wardIDs []uuid.UUID, from, to time.Time) (int64, error)

	// Covering returns the ward's schedules whose window contains at, joined with their nurses.
	Covering(ctx context.Context, wardID uuid.UUID, at time.Time) ([]DutyCandidate, error)

	// LatestEnding returns the ward's schedule with the latest end, or nil.
	LatestEnding(ctx context.Context, wardID uuid.UUID) (*DutyCandidate, error)

	List(ctx context.Context, q *ListSchedulesQuery) ([]*Schedule, error)
}

type TaskRepository interface {
	CreateBatch(ctx context.Context, tasks []*Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Lock(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error

	ListByHospitalization(ctx context.Context, hospitalizationID uuid.UUID) ([]*Task, error)
	List(ctx context.Context, q *ListTasksQuery) ([]*Task, error)

	// ExpireOverdue flips the pending tasks among ids scheduled before now.
	ExpireOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)

	// Reassign moves every task of one hospitalization to another.
	Reassign(ctx context.Context, fromHospitalizationID, toHospitalizationID uuid.UUID) error
}
