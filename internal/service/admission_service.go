package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AdmissionService struct {
	Deps
	ledger  *LedgerService
	billing *BillingService
}

func NewAdmissionService(deps Deps, ledger *LedgerService, billing *BillingService) *AdmissionService {
	return &AdmissionService{Deps: deps, ledger: ledger, billing: billing}
}

// Admit places the visit's patient in a ward under the calling doctor.
// Admitting an already admitted visit again moves it to the new ward: the
// old row is replaced, its tasks follow and the original admission time is kept.
func (s *AdmissionService) Admit(ctx context.Context, actor domain.Actor, cmd *admission.AdmitCommand) (h *admission.Hospitalization, err error) {
	defer func() {
		var id uuid.UUID
		if h != nil {
			id = h.ID
		}
		s.audit(ctx, actor, domain.ActionCreate, "hospitalization", id, err)
	}()

	if cmd.RegistrationID == uuid.Nil || cmd.WardID == uuid.Nil {
		return nil, validationError("registration_id and ward_id are required")
	}

	outcome := "admitted"
	defer func() {
		switch {
		case errors.Is(err, admission.ErrWardFull):
			outcome = "ward_full"
		case errors.Is(err, admission.ErrAlreadyAdmitted):
			outcome = "already_admitted"
		case err != nil:
			outcome = "rejected"
		}
		s.Metrics.AdmissionsTotal.WithLabelValues(outcome).Inc()
	}()

	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().GetByID(ctx, cmd.RegistrationID)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, reg.DoctorID); err != nil {
			return err
		}
		rec, err := tx.Records().GetByRegistration(ctx, reg.ID)
		if errors.Is(err, mr.ErrRecordNotFound) {
			return mr.ErrRecordRequired
		}
		if err != nil {
			return err
		}

		ward, err := tx.Wards().LockWard(ctx, cmd.WardID)
		if err != nil {
			return err
		}

		current, err := tx.Admissions().ActiveForPatient(ctx, reg.PatientID)
		if err != nil {
			return fmt.Errorf("loading active admission: %w", err)
		}
		if current != nil && current.RegistrationID != reg.ID {
			return admission.ErrAlreadyAdmitted
		}

		occupied, err := s.ledger.Occupied(ctx, tx, ward.ID)
		if err != nil {
			return err
		}
		if current != nil && current.WardID == ward.ID {
			occupied--
		}
		if occupied >= int64(ward.BedCount) {
			return admission.ErrWardFull
		}

		h = &admission.Hospitalization{
			ID:             uuid.New(),
			RegistrationID: reg.ID,
			RecordID:       rec.ID,
			PatientID:      reg.PatientID,
			WardID:         ward.ID,
			DoctorID:       reg.DoctorID,
			InDate:         now,
			Status:         admission.StatusActive,
		}

		if current == nil {
			return tx.Admissions().Create(ctx, h)
		}

		outcome = "ward_changed"
		h.InDate = current.InDate
		if err := tx.Admissions().Delete(ctx, current.ID); err != nil {
			return fmt.Errorf("removing replaced admission: %w", err)
		}
		if err := tx.Admissions().Create(ctx, h); err != nil {
			return err
		}
		if err := tx.Tasks().Reassign(ctx, current.ID, h.ID); err != nil {
			return fmt.Errorf("moving tasks to new admission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.EventPatientAdmitted, h.ID, h.PatientID, now, map[string]any{
		"ward_id":         h.WardID,
		"registration_id": h.RegistrationID,
		"ward_change":     outcome == "ward_changed",
	}))
	return h, nil
}

type DischargeResult struct {
	Hospitalization *admission.Hospitalization `json:"hospitalization"`
	Bill            payment.AdmissionBill      `json:"bill"`
	Payment         *payment.Payment           `json:"payment"`
}

// Discharge ends an active stay, bills it up to now and raises the
// hospitalization payment.
func (s *AdmissionService) Discharge(ctx context.Context, actor domain.Actor, id uuid.UUID) (res *DischargeResult, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "hospitalization", id, err) }()

	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		h, err := tx.Admissions().Lock(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && requireDoctor(actor, h.DoctorID) != nil {
			if err := requireHeadNurse(ctx, tx, actor); err != nil {
				return err
			}
		}

		if err := h.Discharge(now); err != nil {
			return err
		}
		bill, err := s.billing.ComputeAdmissionBill(ctx, tx, h, now)
		if err != nil {
			return err
		}
		if err := tx.Admissions().Update(ctx, h); err != nil {
			return fmt.Errorf("updating hospitalization: %w", err)
		}

		p, err := s.billing.OnDischarged(ctx, tx, h, bill)
		if err != nil {
			return err
		}
		res = &DischargeResult{Hospitalization: h, Bill: bill, Payment: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h := res.Hospitalization
	s.publish(ctx,
		domain.NewEvent(domain.EventPatientDischarged, h.ID, h.PatientID, now, map[string]any{
			"ward_id":   h.WardID,
			"total_fee": res.Bill.TotalFee.StringFixed(2),
		}),
		paymentEvent(res.Payment, now),
	)
	return res, nil
}

type InpatientView struct {
	Hospitalization *admission.Hospitalization `json:"hospitalization"`
	Patient         *patient.Patient           `json:"patient,omitempty"`
	Ward            *admission.Ward            `json:"ward,omitempty"`
	StayHours       decimal.Decimal            `json:"stay_hours"`
}

// DoctorInpatients lists the calling doctor's active admissions.
func (s *AdmissionService) DoctorInpatients(ctx context.Context, actor domain.Actor) ([]InpatientView, error) {
	if actor.Role != domain.RoleDoctor || actor.StaffID == nil {
		return nil, ErrForbidden
	}
	doctorID := *actor.StaffID

	var out []InpatientView
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = s.inpatients(ctx, tx, &admission.ListActiveQuery{DoctorID: &doctorID})
		return err
	})
	return out, err
}

// ActiveInpatients lists active admissions, optionally for some wards. Head nurses and admins only.
func (s *AdmissionService) ActiveInpatients(ctx context.Context, actor domain.Actor, wardIDs []uuid.UUID) ([]InpatientView, error) {
	var out []InpatientView
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if !actor.IsAdmin() {
			if err := requireHeadNurse(ctx, tx, actor); err != nil {
				return err
			}
		}
		var err error
		out, err = s.inpatients(ctx, tx, &admission.ListActiveQuery{WardIDs: wardIDs})
		return err
	})
	return out, err
}

func (s *AdmissionService) inpatients(ctx context.Context, tx repository.Tx, q *admission.ListActiveQuery) ([]InpatientView, error) {
	rows, err := tx.Admissions().ListActive(ctx, q)
	if err != nil {
		return nil, err
	}

	patientIDs := make([]uuid.UUID, 0, len(rows))
	wardIDs := make([]uuid.UUID, 0, len(rows))
	for _, h := range rows {
		patientIDs = append(patientIDs, h.PatientID)
		wardIDs = append(wardIDs, h.WardID)
	}
	patients, err := tx.Patients().GetMany(ctx, patientIDs)
	if err != nil {
		return nil, err
	}
	wards, err := tx.Wards().GetWards(ctx, wardIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]InpatientView, 0, len(rows))
	for _, h := range rows {
		out = append(out, InpatientView{
			Hospitalization: h,
			Patient:         patients[h.PatientID],
			Ward:            wards[h.WardID],
			StayHours:       stayHours(h.InDate, h.BillingEnd(now)),
		})
	}
	return out, nil
}

func stayHours(from, to time.Time) decimal.Decimal {
	return decimal.NewFromFloat(to.Sub(from).Hours()).Round(2)
}
