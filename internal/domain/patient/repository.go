package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByID returns ErrPatientNotFound if the patient does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Lock loads the patient and holds a row lock until the transaction ends.
	Lock(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Patient, error)
}
