package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegistrationService struct {
	Deps
	billing *BillingService
}

func NewRegistrationService(deps Deps, billing *BillingService) *RegistrationService {
	return &RegistrationService{Deps: deps, billing: billing}
}

type RegistrationResult struct {
	Registration *registration.Registration `json:"registration"`
	Payment      *payment.Payment           `json:"payment,omitempty"`
}

func (s *RegistrationService) Create(ctx context.Context, actor domain.Actor, cmd *registration.CreateRegistrationCommand) (res *RegistrationResult, err error) {
	defer func() {
		var id uuid.UUID
		if res != nil {
			id = res.Registration.ID
		}
		s.audit(ctx, actor, domain.ActionCreate, "registration", id, err)
	}()

	switch {
	case actor.Role == domain.RolePatient:
		if actor.PatientID == nil {
			return nil, ErrForbidden
		}
		cmd.PatientID = *actor.PatientID
	case actor.IsAdmin():
	default:
		return nil, ErrForbidden
	}

	var fields []string
	if cmd.PatientID == uuid.Nil {
		fields = append(fields, "patient_id is required")
	}
	if cmd.DoctorID == uuid.Nil {
		fields = append(fields, "doctor_id is required")
	}
	if len(fields) > 0 {
		return nil, validationError(fields...)
	}
	if !cmd.Category.IsValid() {
		return nil, registration.ErrInvalidCategory
	}

	today := s.today()
	visitDate := today
	if cmd.VisitDate != nil {
		y, m, d := cmd.VisitDate.Date()
		visitDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if visitDate.Before(today) {
		return nil, registration.ErrVisitDateInPast
	}

	// A visit left waiting from an earlier day must not block this one.
	s.sweepOverdue(ctx, registration.PatientScope(cmd.PatientID))

	var evts []domain.Event
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Patients().Lock(ctx, cmd.PatientID); err != nil {
			return err
		}
		if _, err := tx.Staff().LockDoctor(ctx, cmd.DoctorID); err != nil {
			return err
		}

		active, err := tx.Registrations().HasActive(ctx, cmd.PatientID)
		if err != nil {
			return fmt.Errorf("checking active registration: %w", err)
		}
		if active {
			return registration.ErrActiveVisitExists
		}

		taken, err := tx.Registrations().CountTowardsQuota(ctx, cmd.DoctorID, visitDate, cmd.Category)
		if err != nil {
			return fmt.Errorf("counting quota: %w", err)
		}
		if taken >= int64(cmd.Category.DailyQuota()) {
			return registration.ErrQuotaExceeded
		}

		reg := &registration.Registration{
			ID:        uuid.New(),
			PatientID: cmd.PatientID,
			DoctorID:  cmd.DoctorID,
			VisitDate: visitDate,
			Category:  cmd.Category,
			Fee:       cmd.Category.Fee(),
			Symptoms:  cmd.Symptoms,
			Status:    registration.StatusWaiting,
		}
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return err
		}

		p, err := s.billing.OnRegistrationCreated(ctx, tx, reg)
		if err != nil {
			return err
		}

		now := s.now()
		res = &RegistrationResult{Registration: reg, Payment: p}
		evts = append(evts,
			domain.NewEvent(domain.EventRegistrationCreated, reg.ID, reg.PatientID, now, map[string]any{
				"doctor_id":  reg.DoctorID,
				"visit_date": reg.VisitDate.Format(time.DateOnly),
				"category":   reg.Category,
			}),
			domain.NewEvent(domain.EventPaymentCreated, p.ID, p.PatientID, now, map[string]any{
				"type":   p.Type,
				"amount": p.Amount.StringFixed(2),
			}),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.RegistrationsTotal.WithLabelValues(string(cmd.Category)).Inc()
	s.publish(ctx, evts...)
	return res, nil
}

// Cancel withdraws a waiting registration. An unpaid fee is voided and a
// paid one moves to pending refund.
func (s *RegistrationService) Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (res *RegistrationResult, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "registration", id, err) }()

	var evts []domain.Event
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePatientOrAdmin(actor, reg.PatientID); err != nil {
			return err
		}

		now := s.now()
		if err := reg.Cancel(now); err != nil {
			return err
		}
		if err := tx.Registrations().UpdateStatus(ctx, reg); err != nil {
			return fmt.Errorf("updating registration status: %w", err)
		}

		p, err := s.billing.OnRegistrationCancelled(ctx, tx, reg)
		if err != nil {
			return err
		}

		res = &RegistrationResult{Registration: reg, Payment: p}
		evts = append(evts, domain.NewEvent(domain.EventRegistrationCancelled, reg.ID, reg.PatientID, now, nil))
		if p != nil {
			evts = append(evts, paymentEvent(p, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.VisitTransitionsTotal.WithLabelValues(string(registration.StatusCancelled)).Inc()
	s.publish(ctx, evts...)
	return res, nil
}

func (s *RegistrationService) Start(ctx context.Context, actor domain.Actor, id uuid.UUID) (reg *registration.Registration, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "registration", id, err) }()

	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err = tx.Registrations().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, reg.DoctorID); err != nil {
			return err
		}
		if err := reg.Start(now); err != nil {
			return err
		}
		return tx.Registrations().UpdateStatus(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.VisitTransitionsTotal.WithLabelValues(string(reg.Status)).Inc()
	s.publish(ctx, domain.NewEvent(domain.EventRegistrationStarted, reg.ID, reg.PatientID, now, nil))
	return reg, nil
}

// Finish closes the consultation and bills its prescription, if any.
func (s *RegistrationService) Finish(ctx context.Context, actor domain.Actor, id uuid.UUID) (res *RegistrationResult, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "registration", id, err) }()

	now := s.now()
	var evts []domain.Event
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, reg.DoctorID); err != nil {
			return err
		}
		if err := reg.Finish(now); err != nil {
			return err
		}
		if err := tx.Registrations().UpdateStatus(ctx, reg); err != nil {
			return fmt.Errorf("updating registration status: %w", err)
		}

		p, err := s.billing.OnPrescriptionFinalized(ctx, tx, reg)
		if err != nil {
			return err
		}

		res = &RegistrationResult{Registration: reg, Payment: p}
		evts = append(evts, domain.NewEvent(domain.EventRegistrationFinished, reg.ID, reg.PatientID, now, nil))
		if p != nil {
			evts = append(evts, paymentEvent(p, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.VisitTransitionsTotal.WithLabelValues(string(registration.StatusFinished)).Inc()
	s.publish(ctx, evts...)
	return res, nil
}

// ExpireOverdue moves waiting registrations in scope whose visit date has
// passed to EXPIRED and voids their unpaid fees. Safe to repeat.
func (s *RegistrationService) ExpireOverdue(ctx context.Context, scope registration.Scope) (int, error) {
	now := s.now()
	today := domain.DateOf(now, s.Location)

	var evts []domain.Event
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		overdue, err := tx.Registrations().LockOverdue(ctx, scope, today)
		if err != nil {
			return fmt.Errorf("loading overdue registrations: %w", err)
		}
		for _, reg := range overdue {
			if err := reg.Expire(now); err != nil {
				return err
			}
			if err := tx.Registrations().UpdateStatus(ctx, reg); err != nil {
				return fmt.Errorf("expiring registration %s: %w", reg.ID, err)
			}
			p, err := s.billing.OnRegistrationExpired(ctx, tx, reg)
			if err != nil {
				return err
			}
			evts = append(evts, domain.NewEvent(domain.EventRegistrationExpired, reg.ID, reg.PatientID, now, nil))
			if p != nil && p.Status == payment.StatusCancelled {
				evts = append(evts, paymentEvent(p, now))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, e := range evts {
		if e.Type == domain.EventRegistrationExpired {
			expired++
		}
	}
	if expired > 0 {
		s.Metrics.ExpiredTotal.WithLabelValues("registration").Add(float64(expired))
		s.Metrics.VisitTransitionsTotal.WithLabelValues(string(registration.StatusExpired)).Add(float64(expired))
	}
	s.publish(ctx, evts...)
	return expired, nil
}

// sweepOverdue runs ExpireOverdue for a read path. Failures never fail the read.
func (s *RegistrationService) sweepOverdue(ctx context.Context, scope registration.Scope) {
	if _, err := s.ExpireOverdue(ctx, scope); err != nil {
		s.Log.Warn("registration expiry sweep failed", zap.Error(err))
	}
}

func (s *RegistrationService) ListForPatient(ctx context.Context, actor domain.Actor, patientID uuid.UUID) ([]*registration.Registration, error) {
	if err := requirePatientOrAdmin(actor, patientID); err != nil {
		return nil, err
	}
	s.sweepOverdue(ctx, registration.PatientScope(patientID))

	var out []*registration.Registration
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Registrations().List(ctx, &registration.ListRegistrationsQuery{PatientID: &patientID})
		return err
	})
	return out, err
}

// DoctorQueue lists the calling doctor's waiting and in-progress visits,
// optionally for one visit date.
func (s *RegistrationService) DoctorQueue(ctx context.Context, actor domain.Actor, visitDate *time.Time) ([]*registration.Registration, error) {
	if actor.Role != domain.RoleDoctor || actor.StaffID == nil {
		return nil, ErrForbidden
	}
	doctorID := *actor.StaffID
	s.sweepOverdue(ctx, registration.DoctorScope(doctorID))

	var out []*registration.Registration
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Registrations().List(ctx, &registration.ListRegistrationsQuery{
			DoctorID:  &doctorID,
			Statuses:  registration.ActiveStatuses,
			VisitDate: visitDate,
		})
		return err
	})
	return out, err
}

// History ranges accepted by DoctorHistory.
const (
	HistoryCurrent = "current"
	History7Days   = "7d"
	History30Days  = "30d"
)

type HistoryEntry struct {
	Registration *registration.Registration `json:"registration"`
	Record       *mr.MedicalRecord          `json:"record,omitempty"`
	IsCurrent    bool                       `json:"is_current"`
}

// DoctorHistory lists the calling doctor's visits with a patient, newest first.
// "current" returns the one visit named by currentID; "7d" and "30d" return the
// finished visits registered within that many days.
func (s *RegistrationService) DoctorHistory(ctx context.Context, actor domain.Actor, patientID uuid.UUID, window string, currentID *uuid.UUID) (out []HistoryEntry, err error) {
	if actor.Role != domain.RoleDoctor || actor.StaffID == nil {
		return nil, ErrForbidden
	}
	doctorID := *actor.StaffID

	var days int
	switch window {
	case HistoryCurrent:
		if currentID == nil {
			return nil, validationError("current_id is required for range current")
		}
	case History7Days:
		days = 7
	case History30Days:
		days = 30
	default:
		return nil, validationError("range must be one of current, 7d, 30d")
	}

	defer func() { s.audit(ctx, actor, domain.ActionRead, "registration_history", patientID, err) }()
	s.sweepOverdue(ctx, registration.PatientScope(patientID))

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Patients().GetByID(ctx, patientID); err != nil {
			return err
		}

		var regs []*registration.Registration
		if window == HistoryCurrent {
			reg, err := tx.Registrations().GetByID(ctx, *currentID)
			if err != nil {
				return err
			}
			if reg.DoctorID != doctorID || reg.PatientID != patientID {
				return registration.ErrRegistrationNotFound
			}
			regs = []*registration.Registration{reg}
		} else {
			all, err := tx.Registrations().List(ctx, &registration.ListRegistrationsQuery{
				PatientID: &patientID,
				DoctorID:  &doctorID,
				Statuses:  []registration.Status{registration.StatusFinished},
			})
			if err != nil {
				return err
			}
			since := s.now().AddDate(0, 0, -days)
			for _, r := range all {
				if !r.CreatedAt.Before(since) {
					regs = append(regs, r)
				}
			}
		}
		sort.SliceStable(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })

		ids := make([]uuid.UUID, 0, len(regs))
		for _, r := range regs {
			ids = append(ids, r.ID)
		}
		records, err := tx.Records().ListByRegistrations(ctx, ids)
		if err != nil {
			return err
		}

		out = make([]HistoryEntry, 0, len(regs))
		for _, r := range regs {
			out = append(out, HistoryEntry{
				Registration: r,
				Record:       records[r.ID],
				IsCurrent:    currentID != nil && r.ID == *currentID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type PrescriptionLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	Usage      string    `json:"usage,omitempty"`
	UnitPrice  string    `json:"unit_price"`
	Subtotal   string    `json:"subtotal"`
}

type PrescriptionView struct {
	*prescription.Prescription
	Lines []PrescriptionLine `json:"lines"`
}

type RegistrationDetail struct {
	Registration    *registration.Registration   `json:"registration"`
	Record          *mr.MedicalRecord            `json:"record,omitempty"`
	Examinations    []*mr.Examination            `json:"examinations"`
	Prescription    *PrescriptionView            `json:"prescription,omitempty"`
	Hospitalization []*admission.Hospitalization `json:"hospitalizations"`
}

// Detail returns a visit with its record, examinations, prescription and admissions.
func (s *RegistrationService) Detail(ctx context.Context, actor domain.Actor, id uuid.UUID) (*RegistrationDetail, error) {
	var reg *registration.Registration
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		reg, err = tx.Registrations().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if requirePatientOrAdmin(actor, reg.PatientID) != nil && requireDoctor(actor, reg.DoctorID) != nil {
		return nil, ErrForbidden
	}

	s.sweepOverdue(ctx, registration.PatientScope(reg.PatientID))

	detail := &RegistrationDetail{}
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		if detail.Registration, err = tx.Registrations().GetByID(ctx, id); err != nil {
			return err
		}
		if detail.Hospitalization, err = tx.Admissions().ListByRegistration(ctx, id); err != nil {
			return err
		}

		rec, err := tx.Records().GetByRegistration(ctx, id)
		if errors.Is(err, mr.ErrRecordNotFound) {
			detail.Examinations = []*mr.Examination{}
			return nil
		}
		if err != nil {
			return err
		}
		detail.Record = rec
		if detail.Examinations, err = tx.Records().ListExaminations(ctx, rec.ID); err != nil {
			return err
		}

		pres, err := tx.Prescriptions().GetByRecord(ctx, rec.ID)
		if errors.Is(err, prescription.ErrPrescriptionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		detail.Prescription, err = buildPrescriptionView(ctx, tx, pres)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func buildPrescriptionView(ctx context.Context, tx repository.Tx, pres *prescription.Prescription) (*PrescriptionView, error) {
	ids := make([]uuid.UUID, 0, len(pres.Details))
	for _, d := range pres.Details {
		ids = append(ids, d.MedicineID)
	}
	meds, err := tx.Medicines().GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &PrescriptionView{Prescription: pres, Lines: make([]PrescriptionLine, 0, len(pres.Details))}
	for _, d := range pres.Details {
		line := PrescriptionLine{MedicineID: d.MedicineID, Quantity: d.Quantity, Usage: d.Usage}
		if m, ok := meds[d.MedicineID]; ok {
			line.Name = m.Name
			line.UnitPrice = m.Price.StringFixed(2)
			line.Subtotal = prescription.Total([]prescription.Item{{MedicineID: d.MedicineID, Quantity: d.Quantity}}, meds).StringFixed(2)
		}
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

func paymentEvent(p *payment.Payment, at time.Time) domain.Event {
	t := domain.EventPaymentCreated
	switch p.Status {
	case payment.StatusPaid:
		t = domain.EventPaymentPaid
	case payment.StatusRefunded:
		t = domain.EventPaymentRefunded
	case payment.StatusCancelled, payment.StatusPendingRefund:
		t = domain.EventPaymentCancelled
	}
	return domain.NewEvent(t, p.ID, p.PatientID, at, map[string]any{
		"type":   p.Type,
		"status": p.Status,
		"amount": p.Amount.StringFixed(2),
	})
}
