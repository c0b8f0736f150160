package prescription

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrPrescriptionNotFound = domain.NewError(domain.KindNotFound, "PRESCRIPTION_NOT_FOUND", "prescription not found")
	ErrMedicineNotFound     = domain.NewError(domain.KindNotFound, "MEDICINE_NOT_FOUND", "medicine not found")
	ErrInsufficientStock    = domain.NewError(domain.KindInsufficientStock, "INSUFFICIENT_STOCK", "insufficient medicine stock")
	ErrNotEditable          = domain.NewError(domain.KindIllegalTransition, "PRESCRIPTION_NOT_EDITABLE", "prescriptions can only be written while the visit is in progress")
)
