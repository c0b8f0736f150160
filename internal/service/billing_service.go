package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BillingConfig struct {
	HourlyRate  decimal.Decimal
	FallbackMin int
	FallbackMax int
}

// BillingService is the only writer of payments. Its hooks run inside the
// caller's transaction so a fee commits or rolls back with its source.
type BillingService struct {
	Deps
	catalog pricing.Catalog
	cfg     BillingConfig

	rngMu sync.Mutex
	rng   domain.RandomSource
}

func NewBillingService(deps Deps, catalog pricing.Catalog, rng domain.RandomSource, cfg BillingConfig) *BillingService {
	return &BillingService{Deps: deps, catalog: catalog, rng: rng, cfg: cfg}
}

func (s *BillingService) HourlyRate() decimal.Decimal { return s.cfg.HourlyRate }

// bill creates the payment for src unless one already exists, in which case
// the existing payment is returned unchanged.
func (s *BillingService) bill(ctx context.Context, tx repository.Tx, patientID uuid.UUID, src payment.Source, amount decimal.Decimal) (*payment.Payment, error) {
	existing, err := tx.Payments().FindBySource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("finding %s payment: %w", src.Type, err)
	}
	if existing != nil {
		return existing, nil
	}

	p := payment.New(patientID, src, amount)
	if err := tx.Payments().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating %s payment: %w", src.Type, err)
	}
	s.Metrics.PaymentsTotal.WithLabelValues(string(p.Type), string(p.Status)).Inc()
	return p, nil
}

func (s *BillingService) OnRegistrationCreated(ctx context.Context, tx repository.Tx, reg *registration.Registration) (*payment.Payment, error) {
	return s.bill(ctx, tx, reg.PatientID, payment.Source{Type: payment.TypeRegistration, ID: reg.ID}, reg.Fee)
}

func (s *BillingService) OnRegistrationCancelled(ctx context.Context, tx repository.Tx, reg *registration.Registration) (*payment.Payment, error) {
	return s.resolveVisitFee(ctx, tx, reg, (*payment.Payment).ResolveVisitCancelled)
}

func (s *BillingService) OnRegistrationExpired(ctx context.Context, tx repository.Tx, reg *registration.Registration) (*payment.Payment, error) {
	return s.resolveVisitFee(ctx, tx, reg, (*payment.Payment).ResolveVisitExpired)
}

func (s *BillingService) resolveVisitFee(ctx context.Context, tx repository.Tx, reg *registration.Registration, resolve func(*payment.Payment) bool) (*payment.Payment, error) {
	p, err := tx.Payments().FindBySource(ctx, payment.Source{Type: payment.TypeRegistration, ID: reg.ID})
	if err != nil {
		return nil, fmt.Errorf("finding registration payment: %w", err)
	}
	if p == nil {
		s.Log.Warn("registration has no payment", zap.String("registration_id", reg.ID.String()))
		return nil, nil
	}
	p, err = tx.Payments().Lock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !resolve(p) {
		return p, nil
	}
	if err := tx.Payments().UpdateStatus(ctx, p); err != nil {
		return nil, fmt.Errorf("updating registration payment: %w", err)
	}
	s.Metrics.PaymentsTotal.WithLabelValues(string(p.Type), string(p.Status)).Inc()
	return p, nil
}

func (s *BillingService) OnExamCreated(ctx context.Context, tx repository.Tx, exam *mr.Examination, price decimal.Decimal) (*payment.Payment, error) {
	return s.bill(ctx, tx, exam.PatientID, payment.Source{Type: payment.TypeExam, ID: exam.ID}, price)
}

// OnPrescriptionFinalized bills the visit's prescription when it has a positive total.
func (s *BillingService) OnPrescriptionFinalized(ctx context.Context, tx repository.Tx, reg *registration.Registration) (*payment.Payment, error) {
	rec, err := tx.Records().GetByRegistration(ctx, reg.ID)
	if errors.Is(err, mr.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pres, err := tx.Prescriptions().GetByRecord(ctx, rec.ID)
	if errors.Is(err, prescription.ErrPrescriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !pres.TotalAmount.IsPositive() {
		return nil, nil
	}

	return s.bill(ctx, tx, pres.PatientID, payment.Source{Type: payment.TypePrescription, ID: pres.ID}, pres.TotalAmount)
}

func (s *BillingService) OnDischarged(ctx context.Context, tx repository.Tx, h *admission.Hospitalization, bill payment.AdmissionBill) (*payment.Payment, error) {
	return s.bill(ctx, tx, h.PatientID, payment.Source{Type: payment.TypeHospitalization, ID: h.ID}, bill.TotalFee)
}

// QuoteExam prices an examination from the catalog, falling back to a
// random whole amount in the configured range when the catalog cannot answer.
func (s *BillingService) QuoteExam(ctx context.Context, examName string) decimal.Decimal {
	if s.catalog != nil {
		price, ok, err := s.catalog.Lookup(ctx, examName)
		switch {
		case err != nil:
			s.Log.Warn("exam price lookup failed, using fallback", zap.String("exam", examName), zap.Error(err))
		case ok && price.IsPositive():
			s.Metrics.PriceLookupsTotal.WithLabelValues("catalog").Inc()
			return price.Round(2)
		}
	}

	s.Metrics.PriceLookupsTotal.WithLabelValues("fallback").Inc()
	s.rngMu.Lock()
	n := s.cfg.FallbackMin + s.rng.Intn(s.cfg.FallbackMax-s.cfg.FallbackMin+1)
	s.rngMu.Unlock()
	return decimal.NewFromInt(int64(n))
}

// ComputeAdmissionBill itemises the stay up to end from the tasks' frozen snapshots.
func (s *BillingService) ComputeAdmissionBill(ctx context.Context, tx repository.Tx, h *admission.Hospitalization, end time.Time) (payment.AdmissionBill, error) {
	tasks, err := tx.Tasks().ListByHospitalization(ctx, h.ID)
	if err != nil {
		return payment.AdmissionBill{}, fmt.Errorf("loading tasks for bill: %w", err)
	}
	return payment.ComputeAdmissionBill(h.ID, h.InDate, end, s.cfg.HourlyRate, tasks), nil
}

// Pay settles the patient's fee. Paying an already paid fee is a no-op.
func (s *BillingService) Pay(ctx context.Context, actor domain.Actor, id uuid.UUID) (p *payment.Payment, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "payment", id, err) }()

	var changed bool
	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		p, err = tx.Payments().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePatientOrAdmin(actor, p.PatientID); err != nil {
			return err
		}
		if changed, err = p.Pay(now); err != nil || !changed {
			return err
		}
		return tx.Payments().UpdateStatus(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.Metrics.PaymentsTotal.WithLabelValues(string(p.Type), string(p.Status)).Inc()
		s.publish(ctx, paymentEvent(p, now))
	}
	return p, nil
}

// Refund completes a pending refund of a cancelled visit's fee.
func (s *BillingService) Refund(ctx context.Context, actor domain.Actor, id uuid.UUID) (p *payment.Payment, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "payment", id, err) }()

	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		p, err = tx.Payments().Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePatientOrAdmin(actor, p.PatientID); err != nil {
			return err
		}
		if err := p.Refund(now); err != nil {
			return err
		}
		return tx.Payments().UpdateStatus(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.PaymentsTotal.WithLabelValues(string(p.Type), string(p.Status)).Inc()
	s.publish(ctx, paymentEvent(p, now))
	return p, nil
}
