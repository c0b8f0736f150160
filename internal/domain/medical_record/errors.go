package medical_record

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrRecordNotFound      = domain.NewError(domain.KindNotFound, "RECORD_NOT_FOUND", "medical record not found")
	ErrRecordRequired      = domain.NewError(domain.KindConflict, "RECORD_REQUIRED", "a medical record must exist for this registration")
	ErrExaminationNotFound = domain.NewError(domain.KindNotFound, "EXAMINATION_NOT_FOUND", "examination not found")
	ErrExamTypeRequired    = domain.NewError(domain.KindValidation, "EXAM_TYPE_REQUIRED", "examination type is required")
	ErrRecordNotEditable   = domain.NewError(domain.KindIllegalTransition, "RECORD_NOT_EDITABLE", "medical records can only be written while the visit is in progress")
)
