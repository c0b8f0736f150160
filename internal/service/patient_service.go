package service

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
)

// PatientService serves the reads centred on one patient.
type PatientService struct {
	Deps
	registrations *RegistrationService
}

func NewPatientService(deps Deps, registrations *RegistrationService) *PatientService {
	return &PatientService{Deps: deps, registrations: registrations}
}

type PatientProfile struct {
	Patient         *patient.Patient           `json:"patient"`
	Age             int                        `json:"age"` // -1 when the date of birth is unknown
	ActiveVisit     *registration.Registration `json:"active_visit,omitempty"`
	Hospitalization *admission.Hospitalization `json:"hospitalization,omitempty"`
	Ward            *admission.Ward            `json:"ward,omitempty"`
}

// Profile returns the patient with their open visit and current admission.
// Patients may only read themselves; pharmacists have no access.
func (s *PatientService) Profile(ctx context.Context, actor domain.Actor, id uuid.UUID) (out *PatientProfile, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionRead, "patient", id, err) }()

	switch actor.Role {
	case domain.RolePatient:
		if !actor.OwnsPatient(id) {
			return nil, ErrForbidden
		}
	case domain.RoleAdmin, domain.RoleDoctor, domain.RoleNurse:
	default:
		return nil, ErrForbidden
	}

	s.registrations.sweepOverdue(ctx, registration.PatientScope(id))

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		p, err := tx.Patients().GetByID(ctx, id)
		if err != nil {
			return err
		}
		out = &PatientProfile{Patient: p, Age: p.AgeOn(s.today())}

		active, err := tx.Registrations().List(ctx, &registration.ListRegistrationsQuery{
			PatientID: &id,
			Statuses:  registration.ActiveStatuses,
		})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			out.ActiveVisit = active[0]
		}

		h, err := tx.Admissions().ActiveForPatient(ctx, id)
		if err != nil || h == nil {
			return err
		}
		out.Hospitalization = h
		out.Ward, err = tx.Wards().GetWard(ctx, h.WardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MedicalRecords lists the consultation notes of every visit of the patient, newest first.
// Readable by the patient, admins and doctors.
func (s *PatientService) MedicalRecords(ctx context.Context, actor domain.Actor, patientID uuid.UUID) (out []*mr.MedicalRecord, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionRead, "medical_record", patientID, err) }()

	if actor.Role != domain.RoleDoctor && requirePatientOrAdmin(actor, patientID) != nil {
		return nil, ErrForbidden
	}
	s.registrations.sweepOverdue(ctx, registration.PatientScope(patientID))

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Patients().GetByID(ctx, patientID); err != nil {
			return err
		}
		var err error
		out, err = tx.Records().ListByPatient(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ExaminationView struct {
	ID             uuid.UUID     `json:"id"`
	ExamType       string        `json:"exam_type"`
	Result         mr.ExamResult `json:"result"`
	PerformedAt    time.Time     `json:"performed_at"`
	RecordID       uuid.UUID     `json:"record_id"`
	RegistrationID uuid.UUID     `json:"registration_id"`
}

// Examinations lists the patient's examinations across all visits, newest first.
func (s *PatientService) Examinations(ctx context.Context, actor domain.Actor, patientID uuid.UUID) (out []ExaminationView, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionRead, "examination", patientID, err) }()

	if err := requirePatientOrAdmin(actor, patientID); err != nil {
		return nil, err
	}
	s.registrations.sweepOverdue(ctx, registration.PatientScope(patientID))

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Patients().GetByID(ctx, patientID); err != nil {
			return err
		}
		exams, err := tx.Records().ListPatientExaminations(ctx, patientID)
		if err != nil {
			return err
		}
		out = make([]ExaminationView, 0, len(exams))
		for _, e := range exams {
			out = append(out, ExaminationView{
				ID:             e.ID,
				ExamType:       e.ExamType,
				Result:         e.Result,
				PerformedAt:    e.PerformedAt,
				RecordID:       e.RecordID,
				RegistrationID: e.RegistrationID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
