package registration

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryNormal Category = "NORMAL"
	CategoryExpert Category = "EXPERT"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryNormal, CategoryExpert:
		return true
	}
	return false
}

// DailyQuota is the number of registrations a doctor accepts per visit date in this category.
func (c Category) DailyQuota() int {
	if c == CategoryExpert {
		return 30
	}
	return 50
}

func (c Category) Fee() decimal.Decimal {
	if c == CategoryExpert {
		return decimal.NewFromInt(50)
	}
	return decimal.NewFromInt(10)
}

// State transitions:
//
//	WAITING → IN_PROGRESS → FINISHED
//	WAITING → CANCELLED
//	WAITING → EXPIRED (visit date passed)
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

// ActiveStatuses are the states in which a registration blocks a new one for the same patient.
var ActiveStatuses = []Status{StatusWaiting, StatusInProgress}

type Registration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index:idx_registrations_quota,priority:1" json:"doctor_id"`

	VisitDate time.Time       `gorm:"column:visit_date;type:date;not null;index:idx_registrations_quota,priority:2" json:"visit_date"`
	Category  Category        `gorm:"column:category;type:varchar(10);not null;index:idx_registrations_quota,priority:3" json:"category"`
	Fee       decimal.Decimal `gorm:"column:fee;type:numeric(12,2);not null" json:"fee"`
	Symptoms  string          `gorm:"column:symptoms;type:text" json:"symptoms"`
	Status    Status          `gorm:"column:status;type:varchar(20);not null;default:'WAITING';index" json:"status"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	ExpiredAt   *time.Time `gorm:"column:expired_at" json:"expired_at,omitempty"`
}

func (Registration) TableName() string {
	return "clinical.registrations"
}

func (r *Registration) IsActive() bool {
	return r.Status == StatusWaiting || r.Status == StatusInProgress
}

func (r *Registration) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusWaiting:    {StatusInProgress, StatusCancelled, StatusExpired},
		StatusInProgress: {StatusFinished},
		StatusFinished:   {},
		StatusCancelled:  {},
		StatusExpired:    {},
	}

	for _, s := range allowed[r.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// IsOverdue reports whether a waiting registration's visit date is before today.
func (r *Registration) IsOverdue(today time.Time) bool {
	return r.Status == StatusWaiting && r.VisitDate.Before(today)
}

func (r *Registration) Start(now time.Time) error {
	if !r.CanTransitionTo(StatusInProgress) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusInProgress
	r.StartedAt = &now
	return nil
}

func (r *Registration) Finish(now time.Time) error {
	if !r.CanTransitionTo(StatusFinished) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusFinished
	r.FinishedAt = &now
	return nil
}

func (r *Registration) Cancel(now time.Time) error {
	if !r.CanTransitionTo(StatusCancelled) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusCancelled
	r.CancelledAt = &now
	return nil
}

func (r *Registration) Expire(now time.Time) error {
	if !r.CanTransitionTo(StatusExpired) {
		return ErrInvalidStatusTransition
	}
	r.Status = StatusExpired
	r.ExpiredAt = &now
	return nil
}

type CreateRegistrationCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Category  Category
	// VisitDate defaults to today in the clinic timezone.
	VisitDate *time.Time
	Symptoms  string
}

type ListRegistrationsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Statuses  []Status
	VisitDate *time.Time
}

// Scope selects whose registrations an expiry sweep inspects.
type Scope struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

func PatientScope(id uuid.UUID) Scope { return Scope{PatientID: &id} }

func DoctorScope(id uuid.UUID) Scope { return Scope{DoctorID: &id} }
