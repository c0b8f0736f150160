package registration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrActiveVisitExists when the active-visit index rejects the row.
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)

	// Lock loads the registration and holds a row lock until the transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (*Registration, error)

	// UpdateStatus persists status and lifecycle timestamps.
	UpdateStatus(ctx context.Context, r *Registration) error

	HasActive(ctx context.Context, patientID uuid.UUID) (bool, error)

	// CountTowardsQuota counts every non-cancelled registration for the doctor, date and category.
	CountTowardsQuota(ctx context.Context, doctorID uuid.UUID, visitDate time.Time, category Category) (int64, error)

	// LockOverdue returns the waiting registrations in scope whose visit date is before today, locked.
	LockOverdue(ctx context.Context, scope Scope, today time.Time) ([]*Registration, error)

	List(ctx context.Context, q *ListRegistrationsQuery) ([]*Registration, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Registration, error)
}
