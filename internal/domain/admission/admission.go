package admission

import (
	"time"

	"github.com/google/uuid"
)

type Ward struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	DepartmentID uuid.UUID `gorm:"column:department_id;type:uuid;not null;index" json:"department_id"`
	Name         string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	WardType     string    `gorm:"column:ward_type;type:varchar(50)" json:"ward_type"`
	BedCount     int       `gorm:"column:bed_count;not null;check:chk_wards_bed_count,bed_count > 0" json:"bed_count"`
}

func (Ward) TableName() string {
	return "clinical.wards"
}

type Status string

const (
	StatusActive     Status = "active"
	StatusDischarged Status = "discharged"
)

// Hospitalization is one inpatient stay. At most one is active per patient
// and per medical record.
type Hospitalization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;not null;index" json:"registration_id"`
	RecordID       uuid.UUID `gorm:"column:record_id;type:uuid;not null;index" json:"record_id"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	WardID         uuid.UUID `gorm:"column:ward_id;type:uuid;not null;index" json:"ward_id"`
	DoctorID       uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	InDate  time.Time  `gorm:"column:in_date;not null" json:"in_date"`
	OutDate *time.Time `gorm:"column:out_date" json:"out_date,omitempty"`
	Status  Status     `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
}

func (Hospitalization) TableName() string {
	return "clinical.hospitalizations"
}

func (h *Hospitalization) IsActive() bool {
	return h.Status == StatusActive
}

// BillingEnd is the instant a bill runs to: the discharge time, or now while active.
func (h *Hospitalization) BillingEnd(now time.Time) time.Time {
	if h.OutDate != nil {
		return *h.OutDate
	}
	return now
}

func (h *Hospitalization) Discharge(now time.Time) error {
	if h.Status != StatusActive {
		return ErrNotActive
	}
	h.Status = StatusDischarged
	h.OutDate = &now
	return nil
}

type AdmitCommand struct {
	RegistrationID uuid.UUID
	WardID         uuid.UUID
}

type ListActiveQuery struct {
	WardIDs  []uuid.UUID
	DoctorID *uuid.UUID
}

// WardOccupancy is a point-in-time view of one ward's beds.
type WardOccupancy struct {
	Ward      *Ward `json:"ward"`
	Occupied  int   `json:"occupied"`
	Available int   `json:"available"`
	IsFull    bool  `json:"is_full"`
}

func NewWardOccupancy(w *Ward, occupied int) WardOccupancy {
	available := w.BedCount - occupied
	if available < 0 {
		available = 0
	}
	return WardOccupancy{Ward: w, Occupied: occupied, Available: available, IsFull: available == 0}
}
