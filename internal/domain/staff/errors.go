package staff

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrDoctorNotFound = domain.NewError(domain.KindNotFound, "DOCTOR_NOT_FOUND", "doctor not found")
	ErrNurseNotFound  = domain.NewError(domain.KindNotFound, "NURSE_NOT_FOUND", "nurse not found")
)
