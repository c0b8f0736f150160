package payment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns ErrAlreadyBilled when the source already has a payment.
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Lock(ctx context.Context, id uuid.UUID) (*Payment, error)
	UpdateStatus(ctx context.Context, p *Payment) error

	// FindBySource returns nil, nil when the source has not been billed.
	FindBySource(ctx context.Context, src Source) (*Payment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Payment, error)

	// SummarizePaid groups PAID payments by type.
	SummarizePaid(ctx context.Context) ([]RevenueLine, error)
}
