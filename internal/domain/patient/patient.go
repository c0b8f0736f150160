package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// Patient is reference data owned by the front desk. The engine reads it and
// locks the row to serialise per-patient invariants.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FirstName   string     `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName    string     `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Gender      Gender     `gorm:"column:gender;type:varchar(20);not null;default:'unknown'" json:"gender"`
	NationalID  string     `gorm:"column:national_id;type:varchar(50);uniqueIndex" json:"national_id"`
	Phone       string     `gorm:"column:phone;type:varchar(20)" json:"phone"`
	Address     string     `gorm:"column:address;type:text" json:"address"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AgeOn returns the age in whole years on the given day, or -1 when unknown.
func (p *Patient) AgeOn(day time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	years := day.Year() - dob.Year()
	if day.Month() < dob.Month() || (day.Month() == dob.Month() && day.Day() < dob.Day()) {
		years--
	}
	return years
}
