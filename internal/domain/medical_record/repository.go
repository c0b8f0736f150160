package medical_record

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetByRegistration returns ErrRecordNotFound when the visit has no record yet.
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*MedicalRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	// ListByRegistrations keys the records by registration id. Visits without a record are absent.
	ListByRegistrations(ctx context.Context, registrationIDs []uuid.UUID) (map[uuid.UUID]*MedicalRecord, error)

	// Save inserts the record when its ID is zero and updates it otherwise.
	Save(ctx context.Context, r *MedicalRecord) error

	CreateExamination(ctx context.Context, e *Examination) error
	ListExaminations(ctx context.Context, recordID uuid.UUID) ([]*Examination, error)
	GetExaminations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Examination, error)
	ListPatientExaminations(ctx context.Context, patientID uuid.UUID) ([]*Examination, error)
}
