package service

import (
	"strings"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/google/uuid"
)

var ErrForbidden = domain.NewError(domain.KindForbidden, "FORBIDDEN", "forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func validationError(fields ...string) error {
	return &ValidationError{Fields: fields}
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Outcome      string
	ErrorCode    string
	Changes      string
}
