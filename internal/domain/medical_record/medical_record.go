package medical_record

import (
	"time"

	"github.com/google/uuid"
)

type Vitals struct {
	BloodPressureSystolic  *int     `json:"bp_systolic,omitempty"`
	BloodPressureDiastolic *int     `json:"bp_diastolic,omitempty"`
	HeartRateBPM           *int     `json:"heart_rate_bpm,omitempty"`
	TemperatureCelsius     *float64 `json:"temperature_celsius,omitempty"`
	OxygenSaturation       *float64 `json:"oxygen_saturation,omitempty"`
}

// MedicalRecord is the 1:1 consultation note of a registration.
// It stays editable while the registration is in progress.
type MedicalRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;not null;uniqueIndex" json:"registration_id"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`
	DoctorID       uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index" json:"doctor_id"`

	Complaint  string  `gorm:"column:complaint;type:text" json:"complaint"`
	Diagnosis  string  `gorm:"column:diagnosis;type:text" json:"diagnosis"`
	Suggestion string  `gorm:"column:suggestion;type:text" json:"suggestion"`
	Vitals     *Vitals `gorm:"column:vitals;serializer:json" json:"vitals,omitempty"`
}

func (MedicalRecord) TableName() string {
	return "clinical.medical_records"
}

type ExamResult string

const (
	ResultNormal      ExamResult = "NORMAL"
	ResultAbnormal    ExamResult = "ABNORMAL"
	ResultNeedsReview ExamResult = "NEEDS_REVIEW"
)

// ExamResults is the set a result is drawn from.
var ExamResults = []ExamResult{ResultNormal, ResultAbnormal, ResultNeedsReview}

type Examination struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	RecordID       uuid.UUID `gorm:"column:record_id;type:uuid;not null;index" json:"record_id"`
	RegistrationID uuid.UUID `gorm:"column:registration_id;type:uuid;not null;index" json:"registration_id"`
	PatientID      uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index" json:"patient_id"`

	ExamType    string     `gorm:"column:exam_type;type:varchar(100);not null" json:"exam_type"`
	Result      ExamResult `gorm:"column:result;type:varchar(20);not null" json:"result"`
	PerformedAt time.Time  `gorm:"column:performed_at;not null" json:"performed_at"`
}

func (Examination) TableName() string {
	return "clinical.examinations"
}

type SaveRecordCommand struct {
	RegistrationID uuid.UUID
	Complaint      string
	Diagnosis      string
	Suggestion     string
	Vitals         *Vitals
}

type CreateExaminationCommand struct {
	RegistrationID uuid.UUID
	ExamType       string
}
