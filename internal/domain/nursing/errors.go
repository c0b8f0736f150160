package nursing

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrTaskNotFound          = domain.NewError(domain.KindNotFound, "TASK_NOT_FOUND", "nurse task not found")
	ErrScheduleNotFound      = domain.NewError(domain.KindNotFound, "SCHEDULE_NOT_FOUND", "nurse schedule not found")
	ErrNoNurseAvailable      = domain.NewError(domain.KindConflict, "NO_NURSE_AVAILABLE", "no nurse is available for this ward")
	ErrNoSchedulableWards    = domain.NewError(domain.KindConflict, "NO_SCHEDULABLE_WARDS", "no ward with active admissions to schedule")
	ErrOccurrenceBeforeStart = domain.NewError(domain.KindValidation, "OCCURRENCE_BEFORE_START", "plan produces a task before its start")
	ErrPlanStartsInPast      = domain.NewError(domain.KindValidation, "PLAN_STARTS_IN_PAST", "task plan cannot start in the past")
	ErrInvalidWindow         = domain.NewError(domain.KindValidation, "INVALID_WINDOW", "schedule end must be after its start")
	ErrInvalidShift          = domain.NewError(domain.KindValidation, "INVALID_SHIFT", "shift hours and count must be between 1 and 24")
)
