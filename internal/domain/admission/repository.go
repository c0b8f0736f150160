package admission

import (
	"context"

	"github.com/google/uuid"
)

type WardRepository interface {
	GetWard(ctx context.Context, id uuid.UUID) (*Ward, error)

	// LockWard serialises bed-capacity check-and-insert for the ward.
	LockWard(ctx context.Context, id uuid.UUID) (*Ward, error)

	ListWards(ctx context.Context) ([]*Ward, error)
	GetWards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Ward, error)
}

type Repository interface {
	// Create returns ErrAlreadyAdmitted when an active-admission index rejects the row.
	Create(ctx context.Context, h *Hospitalization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hospitalization, error)
	Lock(ctx context.Context, id uuid.UUID) (*Hospitalization, error)
	Update(ctx context.Context, h *Hospitalization) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ActiveForPatient returns nil, nil when the patient is not admitted.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Hospitalization, error)

	CountActiveInWard(ctx context.Context, wardID uuid.UUID) (int64, error)
	CountActiveByWard(ctx context.Context) (map[uuid.UUID]int64, error)

	ListActive(ctx context.Context, q *ListActiveQuery) ([]*Hospitalization, error)
	ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]*Hospitalization, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Hospitalization, error)
}
