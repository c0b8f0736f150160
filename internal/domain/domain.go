package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDoctor     Role = "doctor"
	RoleNurse      Role = "nurse"
	RolePharmacist Role = "pharmacist"
	RolePatient    Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RolePharmacist, RolePatient:
		return true
	}
	return false
}

type AuditAction string

const (
	ActionCreate     AuditAction = "create"
	ActionRead       AuditAction = "read"
	ActionUpdate     AuditAction = "update"
	ActionDelete     AuditAction = "delete"
	ActionTransition AuditAction = "transition"
)

type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null" json:"user_role"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)" json:"ip_address"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index" json:"action"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index" json:"resource_id"`

	Outcome   AuditOutcome `gorm:"column:outcome;type:varchar(10);not null;index" json:"outcome"`
	ErrorCode string       `gorm:"column:error_code;type:varchar(50)" json:"error_code"`
	Changes   string       `gorm:"column:changes;type:jsonb" json:"changes"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type Claims struct {
	UserID    uuid.UUID  `json:"sub"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	StaffID   *uuid.UUID `json:"staff_id,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

// Actor returns the caller identity seen by the services.
func (c *Claims) Actor(ip string) Actor {
	return Actor{
		UserID:    c.UserID,
		Role:      c.Role,
		StaffID:   c.StaffID,
		PatientID: c.PatientID,
		IP:        ip,
	}
}

// Actor is the authenticated caller of an operation.
// Doctors and nurses carry their staff id, patients their patient id.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	StaffID   *uuid.UUID
	PatientID *uuid.UUID
	IP        string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsStaff reports whether the actor is the staff member id acting in the given role.
func (a Actor) IsStaff(role Role, id uuid.UUID) bool {
	return a.Role == role && a.StaffID != nil && *a.StaffID == id
}

func (a Actor) OwnsPatient(id uuid.UUID) bool {
	return a.Role == RolePatient && a.PatientID != nil && *a.PatientID == id
}
