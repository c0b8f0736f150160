package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/pricing"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2024-06-03 is a Monday.
var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type fixedRand struct{ n int }

func (r fixedRand) Intn(n int) int { return r.n % n }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(t domain.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	now   time.Time
	store *memory.Store
	pub   *recordingPublisher
	audit *memory.AuditRepository

	billing       *BillingService
	registrations *RegistrationService
	consultations *ConsultationService
	ledger        *LedgerService
	admissions    *AdmissionService
	nursing       *NursingService
	payments      *PaymentService
	patients      *PatientService

	doctor     *staff.Doctor
	headNurse  *staff.Nurse
	nurse      *staff.Nurse
	otherNurse *staff.Nurse
	ward       *admission.Ward
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		ctx:   context.Background(),
		now:   t0,
		store: memory.NewStore(),
		pub:   &recordingPublisher{},
		audit: memory.NewAuditRepository(),
	}

	m := metrics.NewCollector("carepath_test", prometheus.NewRegistry())
	auditSvc := NewAuditService(h.audit, m, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	deps := Deps{
		Store:    h.store,
		Audit:    auditSvc,
		Events:   h.pub,
		Metrics:  m,
		Location: time.UTC,
		Clock:    func() time.Time { return h.now },
		Log:      zap.NewNop(),
	}

	catalog := pricing.NewStaticCatalog(map[string]decimal.Decimal{"Blood Routine": decimal.NewFromInt(35)})
	h.billing = NewBillingService(deps, catalog, fixedRand{n: 7}, BillingConfig{
		HourlyRate:  decimal.NewFromInt(80),
		FallbackMin: 50,
		FallbackMax: 300,
	})
	h.registrations = NewRegistrationService(deps, h.billing)
	h.consultations = NewConsultationService(deps, h.billing, fixedRand{n: 1})
	h.ledger = NewLedgerService(deps)
	h.admissions = NewAdmissionService(deps, h.ledger, h.billing)
	h.nursing = NewNursingService(deps, h.ledger)
	h.payments = NewPaymentService(deps, h.billing, h.registrations)
	h.patients = NewPatientService(deps, h.registrations)

	h.doctor = &staff.Doctor{ID: uuid.New(), DepartmentID: uuid.New(), FirstName: "Ada", LastName: "Osei"}
	h.headNurse = &staff.Nurse{ID: uuid.MustParse("00000000-0000-0000-0000-0000000000f0"), FirstName: "Head", IsHeadNurse: true}
	h.nurse = &staff.Nurse{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), FirstName: "Sam"}
	h.otherNurse = &staff.Nurse{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), FirstName: "Kim"}
	h.ward = &admission.Ward{ID: uuid.New(), Name: "General", BedCount: 2}
	h.store.Seed(h.doctor, h.headNurse, h.nurse, h.otherNurse, h.ward)

	return h
}

func (h *harness) admin() domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func (h *harness) doctorActor() domain.Actor {
	id := h.doctor.ID
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleDoctor, StaffID: &id}
}

func nurseActor(n *staff.Nurse) domain.Actor {
	id := n.ID
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleNurse, StaffID: &id}
}

func patientActor(id uuid.UUID) domain.Actor {
	return domain.Actor{UserID: uuid.New(), Role: domain.RolePatient, PatientID: &id}
}

func (h *harness) newPatient() *patient.Patient {
	p := &patient.Patient{ID: uuid.New(), FirstName: "Pat", LastName: "Doe", Gender: patient.GenderUnknown}
	h.store.Seed(p)
	return p
}

func (h *harness) newMedicine(name, price string, stock int) *prescription.Medicine {
	m := &prescription.Medicine{ID: uuid.New(), Name: name, Unit: "box", Price: decimal.RequireFromString(price), Stock: stock}
	h.store.Seed(m)
	return m
}

func (h *harness) newWard(beds int) *admission.Ward {
	w := &admission.Ward{ID: uuid.New(), Name: "Ward", BedCount: beds}
	h.store.Seed(w)
	return w
}

func (h *harness) register(patientID uuid.UUID, category registration.Category) *RegistrationResult {
	h.t.Helper()
	res, err := h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{
		PatientID: patientID,
		DoctorID:  h.doctor.ID,
		Category:  category,
	})
	require.NoError(h.t, err)
	return res
}

// startVisit registers the patient, starts the consultation and writes the record.
func (h *harness) startVisit(patientID uuid.UUID) *registration.Registration {
	h.t.Helper()
	res := h.register(patientID, registration.CategoryNormal)
	reg, err := h.registrations.Start(h.ctx, h.doctorActor(), res.Registration.ID)
	require.NoError(h.t, err)
	_, err = h.consultations.SaveRecord(h.ctx, h.doctorActor(), &mr.SaveRecordCommand{
		RegistrationID: reg.ID,
		Complaint:      "fever",
		Diagnosis:      "influenza",
	})
	require.NoError(h.t, err)
	return reg
}

func (h *harness) admit(regID, wardID uuid.UUID) *admission.Hospitalization {
	h.t.Helper()
	adm, err := h.admissions.Admit(h.ctx, h.doctorActor(), &admission.AdmitCommand{RegistrationID: regID, WardID: wardID})
	require.NoError(h.t, err)
	return adm
}

func (h *harness) paymentFor(patientID uuid.UUID, typ payment.Type) payment.Payment {
	h.t.Helper()
	for _, p := range h.store.Payments(patientID) {
		if p.Type == typ {
			return p
		}
	}
	h.t.Fatalf("no %s payment for patient %s", typ, patientID)
	return payment.Payment{}
}
