package service

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentService builds the patient-facing payments view and revenue reports.
type PaymentService struct {
	Deps
	billing       *BillingService
	registrations *RegistrationService
}

func NewPaymentService(deps Deps, billing *BillingService, registrations *RegistrationService) *PaymentService {
	return &PaymentService{Deps: deps, billing: billing, registrations: registrations}
}

type HospitalizationView struct {
	*admission.Hospitalization
	Ward      *admission.Ward       `json:"ward,omitempty"`
	StayHours decimal.Decimal       `json:"stay_hours"`
	Bill      payment.AdmissionBill `json:"bill"`
}

type PaymentView struct {
	*payment.Payment
	Registration    *registration.Registration `json:"registration,omitempty"`
	Examination     *mr.Examination            `json:"examination,omitempty"`
	Prescription    *PrescriptionView          `json:"prescription,omitempty"`
	Hospitalization *HospitalizationView       `json:"hospitalization,omitempty"`
}

// View lists the patient's payments, each joined with the entity it bills.
// Hospitalization bills are recomputed live, up to now for active stays.
func (s *PaymentService) View(ctx context.Context, actor domain.Actor, patientID uuid.UUID) ([]PaymentView, error) {
	if err := requirePatientOrAdmin(actor, patientID); err != nil {
		return nil, err
	}
	s.registrations.sweepOverdue(ctx, registration.PatientScope(patientID))

	var out []PaymentView
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		payments, err := tx.Payments().ListByPatient(ctx, patientID)
		if err != nil {
			return err
		}

		ids := map[payment.Type][]uuid.UUID{}
		for _, p := range payments {
			src := p.Source()
			if src.ID != uuid.Nil {
				ids[src.Type] = append(ids[src.Type], src.ID)
			}
		}

		regs, err := tx.Registrations().GetMany(ctx, ids[payment.TypeRegistration])
		if err != nil {
			return err
		}
		exams, err := tx.Records().GetExaminations(ctx, ids[payment.TypeExam])
		if err != nil {
			return err
		}
		prescriptions, err := tx.Prescriptions().GetMany(ctx, ids[payment.TypePrescription])
		if err != nil {
			return err
		}
		stays, err := s.hospitalizationViews(ctx, tx, ids[payment.TypeHospitalization])
		if err != nil {
			return err
		}

		out = make([]PaymentView, 0, len(payments))
		for _, p := range payments {
			v := PaymentView{Payment: p}
			src := p.Source()
			switch src.Type {
			case payment.TypeRegistration:
				v.Registration = regs[src.ID]
			case payment.TypeExam:
				v.Examination = exams[src.ID]
			case payment.TypePrescription:
				if pres, ok := prescriptions[src.ID]; ok {
					if v.Prescription, err = buildPrescriptionView(ctx, tx, pres); err != nil {
						return err
					}
				}
			case payment.TypeHospitalization:
				v.Hospitalization = stays[src.ID]
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (s *PaymentService) hospitalizationViews(ctx context.Context, tx repository.Tx, ids []uuid.UUID) (map[uuid.UUID]*HospitalizationView, error) {
	out := make(map[uuid.UUID]*HospitalizationView, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	stays, err := tx.Admissions().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	wardIDs := make([]uuid.UUID, 0, len(stays))
	for _, h := range stays {
		wardIDs = append(wardIDs, h.WardID)
	}
	wards, err := tx.Wards().GetWards(ctx, wardIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for id, h := range stays {
		end := h.BillingEnd(now)
		bill, err := s.billing.ComputeAdmissionBill(ctx, tx, h, end)
		if err != nil {
			return nil, err
		}
		out[id] = &HospitalizationView{
			Hospitalization: h,
			Ward:            wards[h.WardID],
			StayHours:       stayHours(h.InDate, end),
			Bill:            bill,
		}
	}
	return out, nil
}

// RevenueSummary totals paid fees by type. Administrators only.
func (s *PaymentService) RevenueSummary(ctx context.Context, actor domain.Actor) (*payment.RevenueSummary, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	summary := &payment.RevenueSummary{Total: decimal.Zero, Lines: []payment.RevenueLine{}}
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		lines, err := tx.Payments().SummarizePaid(ctx)
		if err != nil {
			return err
		}
		for _, l := range lines {
			summary.Total = summary.Total.Add(l.Total)
			summary.Count += l.Count
		}
		summary.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.Total = summary.Total.Round(2)
	return summary, nil
}
