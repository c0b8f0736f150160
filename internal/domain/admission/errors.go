package admission

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrWardNotFound            = domain.NewError(domain.KindNotFound, "WARD_NOT_FOUND", "ward not found")
	ErrHospitalizationNotFound = domain.NewError(domain.KindNotFound, "HOSPITALIZATION_NOT_FOUND", "hospitalization not found")
	ErrWardFull                = domain.NewError(domain.KindConflict, "WARD_FULL", "ward has no free beds")
	ErrAlreadyAdmitted         = domain.NewError(domain.KindConflict, "ALREADY_ADMITTED", "patient already has an active admission")
	ErrNotActive               = domain.NewError(domain.KindIllegalTransition, "ADMISSION_NOT_ACTIVE", "hospitalization is not active")
)
