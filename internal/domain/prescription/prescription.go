package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Medicine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name  string          `gorm:"column:name;type:varchar(200);not null;index" json:"name"`
	Unit  string          `gorm:"column:unit;type:varchar(30)" json:"unit"`
	Price decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock int             `gorm:"column:stock;not null;default:0;check:chk_medicines_stock,stock >= 0" json:"stock"`
}

func (Medicine) TableName() string {
	return "pharmacy.medicines"
}

// Prescription is unique per medical record; re-submission edits it in place.
type Prescription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	RecordID       uuid.UUID `gorm:"column:record_id;type:uuid;not null;uniqueIndex" json:"record_id"`
	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;not null;index" json:"registration_id"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID       uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null;default:0" json:"total_amount"`

	Details []Detail `gorm:"foreignKey:PrescriptionID" json:"details"`
}

func (Prescription) TableName() string {
	return "pharmacy.prescriptions"
}

// Quantities returns medicine id → prescribed quantity.
func (p *Prescription) Quantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(p.Details))
	for _, d := range p.Details {
		out[d.MedicineID] += d.Quantity
	}
	return out
}

type Detail struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PrescriptionID uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;uniqueIndex:uq_prescription_details_medicine,priority:1" json:"prescription_id"`
	MedicineID     uuid.UUID `gorm:"column:medicine_id;type:uuid;not null;uniqueIndex:uq_prescription_details_medicine,priority:2" json:"medicine_id"`
	Quantity       int       `gorm:"column:quantity;not null;check:chk_prescription_details_quantity,quantity > 0" json:"quantity"`
	Usage          string    `gorm:"column:usage;type:varchar(255)" json:"usage"`
}

func (Detail) TableName() string {
	return "pharmacy.prescription_details"
}

type Item struct {
	MedicineID uuid.UUID
	Quantity   int
	Usage      string
}

type SavePrescriptionCommand struct {
	RegistrationID uuid.UUID
	Items          []Item
}
