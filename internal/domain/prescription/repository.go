package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByRecord returns the prescription with its details, or ErrPrescriptionNotFound.
	GetByRecord(ctx context.Context, recordID uuid.UUID) (*Prescription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Prescription, error)

	// Create inserts the prescription header and its details.
	Create(ctx context.Context, p *Prescription) error
	UpdateTotal(ctx context.Context, p *Prescription) error

	SaveDetail(ctx context.Context, d *Detail) error
	DeleteDetail(ctx context.Context, id uuid.UUID) error
}

type MedicineRepository interface {
	// Lock loads the medicines in id order and holds row locks until the transaction ends.
	Lock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Medicine, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Medicine, error)

	// AdjustStock removes delta units (negative delta restocks).
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}
