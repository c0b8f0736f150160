package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeRegistration    Type = "REGISTRATION"
	TypeExam            Type = "EXAM"
	TypePrescription    Type = "PRESCRIPTION"
	TypeHospitalization Type = "HOSPITALIZATION"
)

// State transitions:
//
//	UNPAID → PAID → PENDING_REFUND → REFUNDED
//	UNPAID → CANCELLED
type Status string

const (
	StatusUnpaid        Status = "UNPAID"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
	StatusPendingRefund Status = "PENDING_REFUND"
	StatusRefunded      Status = "REFUNDED"
)

// Payment is one fee. Exactly one source reference is set, matching Type.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID uuid.UUID       `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	Type      Type            `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	Status    Status          `gorm:"column:status;type:varchar(20);not null;default:'UNPAID';index" json:"status"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`

	RegistrationID    *uuid.UUID `gorm:"column:registration_id;type:uuid;uniqueIndex:uq_payments_registration" json:"registration_id,omitempty"`
	ExamID            *uuid.UUID `gorm:"column:exam_id;type:uuid;uniqueIndex:uq_payments_exam" json:"exam_id,omitempty"`
	PrescriptionID    *uuid.UUID `gorm:"column:prescription_id;type:uuid;uniqueIndex:uq_payments_prescription" json:"prescription_id,omitempty"`
	HospitalizationID *uuid.UUID `gorm:"column:hospitalization_id;type:uuid;uniqueIndex:uq_payments_hospitalization" json:"hospitalization_id,omitempty"`

	PaidAt     *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`
	RefundedAt *time.Time `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
}

func (Payment) TableName() string {
	return "billing.payments"
}

// Source names the fee-generating entity a payment is for.
type Source struct {
	Type Type
	ID   uuid.UUID
}

func New(patientID uuid.UUID, src Source, amount decimal.Decimal) *Payment {
	p := &Payment{
		ID:        uuid.New(),
		PatientID: patientID,
		Type:      src.Type,
		Status:    StatusUnpaid,
		Amount:    amount.Round(2),
	}
	id := src.ID
	switch src.Type {
	case TypeRegistration:
		p.RegistrationID = &id
	case TypeExam:
		p.ExamID = &id
	case TypePrescription:
		p.PrescriptionID = &id
	case TypeHospitalization:
		p.HospitalizationID = &id
	}
	return p
}

func (p *Payment) Source() Source {
	var id *uuid.UUID
	switch p.Type {
	case TypeRegistration:
		id = p.RegistrationID
	case TypeExam:
		id = p.ExamID
	case TypePrescription:
		id = p.PrescriptionID
	case TypeHospitalization:
		id = p.HospitalizationID
	}
	if id == nil {
		return Source{Type: p.Type}
	}
	return Source{Type: p.Type, ID: *id}
}

func (p *Payment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusUnpaid:        {StatusPaid, StatusCancelled},
		StatusPaid:          {StatusPendingRefund},
		StatusPendingRefund: {StatusRefunded},
		StatusCancelled:     {},
		StatusRefunded:      {},
	}

	for _, s := range allowed[p.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// Pay settles an unpaid fee. Paying a paid fee changes nothing.
func (p *Payment) Pay(now time.Time) (changed bool, err error) {
	if p.Status == StatusPaid {
		return false, nil
	}
	if !p.CanTransitionTo(StatusPaid) {
		return false, ErrIllegalPaymentState
	}
	p.Status = StatusPaid
	p.PaidAt = &now
	return true, nil
}

// Refund completes a pending refund of a registration fee.
func (p *Payment) Refund(now time.Time) error {
	if p.Type != TypeRegistration {
		return ErrRefundNotAllowed
	}
	if !p.CanTransitionTo(StatusRefunded) {
		return ErrIllegalPaymentState
	}
	p.Status = StatusRefunded
	p.RefundedAt = &now
	return nil
}

// ResolveVisitCancelled applies a registration cancellation: an unpaid fee
// is voided, a paid one awaits refund.
func (p *Payment) ResolveVisitCancelled() (changed bool) {
	switch p.Status {
	case StatusUnpaid:
		p.Status = StatusCancelled
		return true
	case StatusPaid:
		p.Status = StatusPendingRefund
		return true
	}
	return false
}

// ResolveVisitExpired voids an unpaid fee; paid fees stay paid.
func (p *Payment) ResolveVisitExpired() (changed bool) {
	if p.Status == StatusUnpaid {
		p.Status = StatusCancelled
		return true
	}
	return false
}

type RevenueLine struct {
	Type  Type            `json:"type"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type RevenueSummary struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
	Lines []RevenueLine   `json:"lines"`
}
