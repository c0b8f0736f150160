// Package memory is a transactional in-process Store. Transactions run one
// at a time against a copy of the data that replaces the committed state
// only when the unit of work succeeds, so row locks are implicit and a
// failed operation leaves nothing behind.
package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
)

type dataset struct {
	patients      map[uuid.UUID]*patient.Patient
	doctors       map[uuid.UUID]*staff.Doctor
	nurses        map[uuid.UUID]*staff.Nurse
	registrations map[uuid.UUID]*registration.Registration
	records       map[uuid.UUID]*mr.MedicalRecord
	exams         map[uuid.UUID]*mr.Examination
	medicines     map[uuid.UUID]*prescription.Medicine
	prescriptions map[uuid.UUID]*prescription.Prescription
	wards         map[uuid.UUID]*admission.Ward
	admissions    map[uuid.UUID]*admission.Hospitalization
	schedules     map[uuid.UUID]*nursing.Schedule
	tasks         map[uuid.UUID]*nursing.Task
	payments      map[uuid.UUID]*payment.Payment
}

func newDataset() *dataset {
	return &dataset{
		patients:      map[uuid.UUID]*patient.Patient{},
		doctors:       map[uuid.UUID]*staff.Doctor{},
		nurses:        map[uuid.UUID]*staff.Nurse{},
		registrations: map[uuid.UUID]*registration.Registration{},
		records:       map[uuid.UUID]*mr.MedicalRecord{},
		exams:         map[uuid.UUID]*mr.Examination{},
		medicines:     map[uuid.UUID]*prescription.Medicine{},
		prescriptions: map[uuid.UUID]*prescription.Prescription{},
		wards:         map[uuid.UUID]*admission.Ward{},
		admissions:    map[uuid.UUID]*admission.Hospitalization{},
		schedules:     map[uuid.UUID]*nursing.Schedule{},
		tasks:         map[uuid.UUID]*nursing.Task{},
		payments:      map[uuid.UUID]*payment.Payment{},
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		patients:      cloneMap(d.patients),
		doctors:       cloneMap(d.doctors),
		nurses:        cloneMap(d.nurses),
		registrations: cloneMap(d.registrations),
		records:       cloneMap(d.records),
		exams:         cloneMap(d.exams),
		medicines:     cloneMap(d.medicines),
		prescriptions: make(map[uuid.UUID]*prescription.Prescription, len(d.prescriptions)),
		wards:         cloneMap(d.wards),
		admissions:    cloneMap(d.admissions),
		schedules:     cloneMap(d.schedules),
		tasks:         cloneMap(d.tasks),
		payments:      cloneMap(d.payments),
	}
	for id, p := range d.prescriptions {
		c.prescriptions[id] = copyPrescription(p)
	}
	return c
}

func cloneMap[V any](m map[uuid.UUID]*V) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(m))
	for k, v := range m {
		out[k] = ptr(*v)
	}
	return out
}

func ptr[V any](v V) *V { return &v }

func copyPrescription(p *prescription.Prescription) *prescription.Prescription {
	c := *p
	c.Details = append([]prescription.Detail(nil), p.Details...)
	return &c
}

type Store struct {
	mu   sync.Mutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Seed inserts reference data outside any transaction. Values are copied.
func (s *Store) Seed(rows ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		switch v := r.(type) {
		case *patient.Patient:
			s.data.patients[v.ID] = ptr(*v)
		case *staff.Doctor:
			s.data.doctors[v.ID] = ptr(*v)
		case *staff.Nurse:
			s.data.nurses[v.ID] = ptr(*v)
		case *prescription.Medicine:
			s.data.medicines[v.ID] = ptr(*v)
		case *admission.Ward:
			s.data.wards[v.ID] = ptr(*v)
		case *registration.Registration:
			s.data.registrations[v.ID] = ptr(*v)
		case *mr.MedicalRecord:
			s.data.records[v.ID] = ptr(*v)
		case *admission.Hospitalization:
			s.data.admissions[v.ID] = ptr(*v)
		case *nursing.Schedule:
			s.data.schedules[v.ID] = ptr(*v)
		case *nursing.Task:
			s.data.tasks[v.ID] = ptr(*v)
		case *payment.Payment:
			s.data.payments[v.ID] = ptr(*v)
		default:
			panic("memory: cannot seed value of this type")
		}
	}
}

// Medicine returns the committed medicine row.
func (s *Store) Medicine(id uuid.UUID) (prescription.Medicine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data.medicines[id]
	if !ok {
		return prescription.Medicine{}, false
	}
	return *m, true
}

// Payments returns the committed payments of a patient.
func (s *Store) Payments(patientID uuid.UUID) []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []payment.Payment
	for _, p := range s.data.payments {
		if p.PatientID == patientID {
			out = append(out, *p)
		}
	}
	return out
}

// Tasks returns the committed tasks of a hospitalization.
func (s *Store) Tasks(hospitalizationID uuid.UUID) []nursing.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []nursing.Task
	for _, t := range s.data.tasks {
		if t.HospitalizationID == hospitalizationID {
			out = append(out, *t)
		}
	}
	return out
}

type tx struct {
	d *dataset
}

func (t *tx) Patients() patient.Repository               { return patientRepo{t.d} }
func (t *tx) Staff() staff.Repository                    { return staffRepo{t.d} }
func (t *tx) Registrations() registration.Repository     { return registrationRepo{t.d} }
func (t *tx) Records() mr.Repository                     { return recordRepo{t.d} }
func (t *tx) Prescriptions() prescription.Repository     { return prescriptionRepo{t.d} }
func (t *tx) Medicines() prescription.MedicineRepository { return medicineRepo{t.d} }
func (t *tx) Wards() admission.WardRepository            { return wardRepo{t.d} }
func (t *tx) Admissions() admission.Repository           { return admissionRepo{t.d} }
func (t *tx) Schedules() nursing.ScheduleRepository      { return scheduleRepo{t.d} }
func (t *tx) Tasks() nursing.TaskRepository              { return taskRepo{t.d} }
func (t *tx) Payments() payment.Repository               { return paymentRepo{t.d} }

// AuditRepository keeps audit entries in memory.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *AuditRepository) Entries() []domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.entries...)
}
