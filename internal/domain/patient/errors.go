package patient

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var ErrPatientNotFound = domain.NewError(domain.KindNotFound, "PATIENT_NOT_FOUND", "patient not found")
