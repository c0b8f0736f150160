package nursing

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TaskType string

const (
	TypeInjection      TaskType = "INJECTION"
	TypeInfusion       TaskType = "INFUSION"
	TypeOralMedication TaskType = "ORAL_MEDICATION"
	TypeAcupuncture    TaskType = "ACUPUNCTURE"
	TypeSurgery        TaskType = "SURGERY"
	TypeVitalSigns     TaskType = "VITAL_SIGNS"
	TypeNursingCare    TaskType = "NURSING_CARE"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TypeInjection, TypeInfusion, TypeOralMedication,
		TypeAcupuncture, TypeSurgery,
		TypeVitalSigns, TypeNursingCare:
		return true
	}
	return false
}

// RequiresMedicine reports whether every task of this type must carry medicine lines.
func (t TaskType) RequiresMedicine() bool {
	switch t {
	case TypeInjection, TypeInfusion, TypeOralMedication:
		return true
	}
	return false
}

// IsProcedure reports whether the type needs a free-text detail and bills a service fee.
func (t TaskType) IsProcedure() bool {
	return t == TypeAcupuncture || t == TypeSurgery
}

// ServiceFee is the procedure charge frozen onto a task when it is planned.
func (t TaskType) ServiceFee() decimal.Decimal {
	switch t {
	case TypeAcupuncture:
		return decimal.NewFromInt(80)
	case TypeSurgery:
		return decimal.NewFromInt(1500)
	}
	return decimal.Zero
}

type TaskStatus string

const (
	TaskPending TaskStatus = "PENDING"
	TaskDone    TaskStatus = "DONE"
	TaskExpired TaskStatus = "EXPIRED"
)

const SnapshotVersion = 1

type SnapshotItem struct {
	MedicineID uuid.UUID       `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Usage      string          `json:"usage,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// MedicineSnapshot freezes medicine names and prices at planning time.
// Bills read it instead of the live catalog.
type MedicineSnapshot struct {
	Version int            `json:"version"`
	Items   []SnapshotItem `json:"items"`
}

func NewSnapshot(lines []PlanMedicine, medicines map[uuid.UUID]*prescription.Medicine) (MedicineSnapshot, error) {
	snap := MedicineSnapshot{Version: SnapshotVersion, Items: make([]SnapshotItem, 0, len(lines))}
	for _, l := range lines {
		m, ok := medicines[l.MedicineID]
		if !ok {
			return MedicineSnapshot{}, prescription.ErrMedicineNotFound
		}
		snap.Items = append(snap.Items, SnapshotItem{
			MedicineID: m.ID,
			Name:       m.Name,
			Quantity:   l.Quantity,
			Usage:      l.Usage,
			UnitPrice:  m.Price,
		})
	}
	return snap, nil
}

type Task struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	HospitalizationID uuid.UUID `gorm:"column:hospitalization_id;type:uuid;not null;index" json:"hospitalization_id"`
	NurseID           uuid.UUID `gorm:"column:nurse_id;type:uuid;not null;index" json:"nurse_id"`

	Type        TaskType        `gorm:"column:type;type:varchar(30);not null" json:"type"`
	ScheduledAt time.Time       `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	Status      TaskStatus      `gorm:"column:status;type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Detail      string          `gorm:"column:detail;type:text" json:"detail"`
	ServiceFee  decimal.Decimal `gorm:"column:service_fee;type:numeric(12,2);not null;default:0" json:"service_fee"`

	Medicines datatypes.JSONType[MedicineSnapshot] `gorm:"column:medicine_snapshot;type:jsonb" json:"medicines"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CompletedBy *uuid.UUID `gorm:"column:completed_by;type:uuid" json:"completed_by,omitempty"`
}

func (Task) TableName() string {
	return "nursing.tasks"
}

func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == TaskPending && t.ScheduledAt.Before(now)
}

type CompletionOutcome string

const (
	OutcomeCompleted      CompletionOutcome = "completed"
	OutcomeExpired        CompletionOutcome = "expired"
	OutcomeAlreadyDone    CompletionOutcome = "already_done"
	OutcomeAlreadyExpired CompletionOutcome = "already_expired"
)

// Complete records a nurse's completion. A pending task whose time has
// passed expires instead; finished tasks are left untouched.
func (t *Task) Complete(nurseID uuid.UUID, now time.Time) CompletionOutcome {
	switch t.Status {
	case TaskDone:
		return OutcomeAlreadyDone
	case TaskExpired:
		return OutcomeAlreadyExpired
	}
	if t.ScheduledAt.Before(now) {
		t.Status = TaskExpired
		return OutcomeExpired
	}
	t.Status = TaskDone
	t.CompletedAt = &now
	t.CompletedBy = &nurseID
	return OutcomeCompleted
}

type ListTasksQuery struct {
	HospitalizationIDs []uuid.UUID
	NurseID            *uuid.UUID
	From               *time.Time
	To                 *time.Time
}
