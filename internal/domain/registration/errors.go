package registration

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrRegistrationNotFound    = domain.NewError(domain.KindNotFound, "REGISTRATION_NOT_FOUND", "registration not found")
	ErrActiveVisitExists       = domain.NewError(domain.KindConflict, "CONFLICT_ACTIVE_VISIT", "patient already has an active registration")
	ErrQuotaExceeded           = domain.NewError(domain.KindConflict, "QUOTA_EXCEEDED", "doctor has no remaining quota for this date and category")
	ErrInvalidStatusTransition = domain.NewError(domain.KindIllegalTransition, "ILLEGAL_TRANSITION", "invalid registration status transition")
	ErrInvalidCategory         = domain.NewError(domain.KindValidation, "INVALID_CATEGORY", "registration category must be NORMAL or EXPERT")
	ErrVisitDateInPast         = domain.NewError(domain.KindValidation, "VISIT_DATE_IN_PAST", "visit date cannot be before today")
)
