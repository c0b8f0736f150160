package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// LockDoctor holds a row lock on the doctor; registration quota counts run under it.
	LockDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetNurse(ctx context.Context, id uuid.UUID) (*Nurse, error)

	// GetNurses returns the nurses that exist among ids, keyed by id.
	GetNurses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Nurse, error)

	// ListNurses returns the nurses matching filter ordered by id.
	ListNurses(ctx context.Context, filter NurseFilter) ([]*Nurse, error)
}

type NurseFilter int

const (
	AllNurses NurseFilter = iota
	HeadNursesOnly
	StaffNursesOnly
)
