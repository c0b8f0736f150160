package staff

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Name string `gorm:"column:name;type:varchar(100);not null;uniqueIndex" json:"name"`
}

func (Department) TableName() string {
	return "clinical.departments"
}

type Doctor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	DepartmentID uuid.UUID `gorm:"column:department_id;type:uuid;not null;index" json:"department_id"`
	FirstName    string    `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	Title        string    `gorm:"column:title;type:varchar(50)" json:"title"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type Nurse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	FirstName   string `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName    string `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	IsHeadNurse bool   `gorm:"column:is_head_nurse;not null;default:false;index" json:"is_head_nurse"`
}

func (Nurse) TableName() string {
	return "nursing.nurses"
}

func (n *Nurse) FullName() string {
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}
