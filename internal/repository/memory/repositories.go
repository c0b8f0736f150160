package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errDuplicatePrescription = errors.New("memory: record already has a prescription")

func lessID(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }

func stamp(created *time.Time) {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
}

func pick[V any](m map[uuid.UUID]*V, ids []uuid.UUID) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out[id] = ptr(*v)
		}
	}
	return out
}

// ---- patients & staff ----

type patientRepo struct{ d *dataset }

func (r patientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := r.d.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return ptr(*p), nil
}

func (r patientRepo) Lock(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return r.GetByID(ctx, id)
}

func (r patientRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*patient.Patient, error) {
	return pick(r.d.patients, ids), nil
}

type staffRepo struct{ d *dataset }

func (r staffRepo) GetDoctor(_ context.Context, id uuid.UUID) (*staff.Doctor, error) {
	d, ok := r.d.doctors[id]
	if !ok {
		return nil, staff.ErrDoctorNotFound
	}
	return ptr(*d), nil
}

func (r staffRepo) LockDoctor(ctx context.Context, id uuid.UUID) (*staff.Doctor, error) {
	return r.GetDoctor(ctx, id)
}

func (r staffRepo) GetNurse(_ context.Context, id uuid.UUID) (*staff.Nurse, error) {
	n, ok := r.d.nurses[id]
	if !ok {
		return nil, staff.ErrNurseNotFound
	}
	return ptr(*n), nil
}

func (r staffRepo) GetNurses(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*staff.Nurse, error) {
	return pick(r.d.nurses, ids), nil
}

func (r staffRepo) ListNurses(_ context.Context, filter staff.NurseFilter) ([]*staff.Nurse, error) {
	var out []*staff.Nurse
	for _, n := range r.d.nurses {
		switch {
		case filter == staff.HeadNursesOnly && !n.IsHeadNurse:
			continue
		case filter == staff.StaffNursesOnly && n.IsHeadNurse:
			continue
		}
		out = append(out, ptr(*n))
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

// ---- registrations ----

type registrationRepo struct{ d *dataset }

func (r registrationRepo) Create(_ context.Context, reg *registration.Registration) error {
	if reg.IsActive() {
		for _, other := range r.d.registrations {
			if other.PatientID == reg.PatientID && other.IsActive() {
				return registration.ErrActiveVisitExists
			}
		}
	}
	stamp(&reg.CreatedAt)
	r.d.registrations[reg.ID] = ptr(*reg)
	return nil
}

func (r registrationRepo) GetByID(_ context.Context, id uuid.UUID) (*registration.Registration, error) {
	reg, ok := r.d.registrations[id]
	if !ok {
		return nil, registration.ErrRegistrationNotFound
	}
	return ptr(*reg), nil
}

func (r registrationRepo) Lock(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	return r.GetByID(ctx, id)
}

func (r registrationRepo) UpdateStatus(_ context.Context, reg *registration.Registration) error {
	if _, ok := r.d.registrations[reg.ID]; !ok {
		return registration.ErrRegistrationNotFound
	}
	r.d.registrations[reg.ID] = ptr(*reg)
	return nil
}

func (r registrationRepo) HasActive(_ context.Context, patientID uuid.UUID) (bool, error) {
	for _, reg := range r.d.registrations {
		if reg.PatientID == patientID && reg.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r registrationRepo) CountTowardsQuota(_ context.Context, doctorID uuid.UUID, visitDate time.Time, category registration.Category) (int64, error) {
	var n int64
	for _, reg := range r.d.registrations {
		if reg.DoctorID == doctorID && reg.VisitDate.Equal(visitDate) &&
			reg.Category == category && reg.Status != registration.StatusCancelled {
			n++
		}
	}
	return n, nil
}

func inScope(reg *registration.Registration, scope registration.Scope) bool {
	if scope.PatientID != nil && reg.PatientID != *scope.PatientID {
		return false
	}
	if scope.DoctorID != nil && reg.DoctorID != *scope.DoctorID {
		return false
	}
	return true
}

func (r registrationRepo) LockOverdue(_ context.Context, scope registration.Scope, today time.Time) ([]*registration.Registration, error) {
	var out []*registration.Registration
	for _, reg := range r.d.registrations {
		if inScope(reg, scope) && reg.IsOverdue(today) {
			out = append(out, ptr(*reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (r registrationRepo) List(_ context.Context, q *registration.ListRegistrationsQuery) ([]*registration.Registration, error) {
	statuses := make(map[registration.Status]bool, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses[s] = true
	}

	var out []*registration.Registration
	for _, reg := range r.d.registrations {
		switch {
		case q.PatientID != nil && reg.PatientID != *q.PatientID:
			continue
		case q.DoctorID != nil && reg.DoctorID != *q.DoctorID:
			continue
		case len(statuses) > 0 && !statuses[reg.Status]:
			continue
		case q.VisitDate != nil && !reg.VisitDate.Equal(*q.VisitDate):
			continue
		}
		out = append(out, ptr(*reg))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].VisitDate.Equal(out[j].VisitDate) {
			return out[i].VisitDate.Before(out[j].VisitDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r registrationRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*registration.Registration, error) {
	return pick(r.d.registrations, ids), nil
}

// ---- medical records ----

type recordRepo struct{ d *dataset }

func (r recordRepo) GetByRegistration(_ context.Context, registrationID uuid.UUID) (*mr.MedicalRecord, error) {
	for _, rec := range r.d.records {
		if rec.RegistrationID == registrationID {
			return ptr(*rec), nil
		}
	}
	return nil, mr.ErrRecordNotFound
}

func (r recordRepo) GetByID(_ context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	rec, ok := r.d.records[id]
	if !ok {
		return nil, mr.ErrRecordNotFound
	}
	return ptr(*rec), nil
}

func (r recordRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*mr.MedicalRecord, error) {
	out := []*mr.MedicalRecord{}
	for _, rec := range r.d.records {
		if rec.PatientID == patientID {
			out = append(out, ptr(*rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r recordRepo) ListByRegistrations(_ context.Context, registrationIDs []uuid.UUID) (map[uuid.UUID]*mr.MedicalRecord, error) {
	want := make(map[uuid.UUID]bool, len(registrationIDs))
	for _, id := range registrationIDs {
		want[id] = true
	}
	out := make(map[uuid.UUID]*mr.MedicalRecord)
	for _, rec := range r.d.records {
		if want[rec.RegistrationID] {
			out[rec.RegistrationID] = ptr(*rec)
		}
	}
	return out, nil
}

func (r recordRepo) Save(_ context.Context, rec *mr.MedicalRecord) error {
	if rec.ID == uuid.Nil {
		for _, other := range r.d.records {
			if other.RegistrationID == rec.RegistrationID {
				return errors.New("memory: registration already has a medical record")
			}
		}
		rec.ID = uuid.New()
		stamp(&rec.CreatedAt)
	}
	rec.UpdatedAt = time.Now().UTC()
	r.d.records[rec.ID] = ptr(*rec)
	return nil
}

func (r recordRepo) CreateExamination(_ context.Context, e *mr.Examination) error {
	stamp(&e.CreatedAt)
	r.d.exams[e.ID] = ptr(*e)
	return nil
}

func (r recordRepo) ListExaminations(_ context.Context, recordID uuid.UUID) ([]*mr.Examination, error) {
	out := []*mr.Examination{}
	for _, e := range r.d.exams {
		if e.RecordID == recordID {
			out = append(out, ptr(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PerformedAt.Before(out[j].PerformedAt) })
	return out, nil
}

func (r recordRepo) GetExaminations(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*mr.Examination, error) {
	return pick(r.d.exams, ids), nil
}

func (r recordRepo) ListPatientExaminations(_ context.Context, patientID uuid.UUID) ([]*mr.Examination, error) {
	out := []*mr.Examination{}
	for _, e := range r.d.exams {
		if e.PatientID == patientID {
			out = append(out, ptr(*e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PerformedAt.After(out[j].PerformedAt) })
	return out, nil
}

// ---- prescriptions & medicines ----

type prescriptionRepo struct{ d *dataset }

func (r prescriptionRepo) GetByRecord(_ context.Context, recordID uuid.UUID) (*prescription.Prescription, error) {
	for _, p := range r.d.prescriptions {
		if p.RecordID == recordID {
			return copyPrescription(p), nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

func (r prescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	p, ok := r.d.prescriptions[id]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	return copyPrescription(p), nil
}

func (r prescriptionRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Prescription, error) {
	out := make(map[uuid.UUID]*prescription.Prescription, len(ids))
	for _, id := range ids {
		if p, ok := r.d.prescriptions[id]; ok {
			out[id] = copyPrescription(p)
		}
	}
	return out, nil
}

func (r prescriptionRepo) Create(_ context.Context, p *prescription.Prescription) error {
	for _, other := range r.d.prescriptions {
		if other.RecordID == p.RecordID {
			return errDuplicatePrescription
		}
	}
	stamp(&p.CreatedAt)
	r.d.prescriptions[p.ID] = copyPrescription(p)
	return nil
}

func (r prescriptionRepo) UpdateTotal(_ context.Context, p *prescription.Prescription) error {
	stored, ok := r.d.prescriptions[p.ID]
	if !ok {
		return prescription.ErrPrescriptionNotFound
	}
	stored.TotalAmount = p.TotalAmount
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r prescriptionRepo) SaveDetail(_ context.Context, d *prescription.Detail) error {
	stored, ok := r.d.prescriptions[d.PrescriptionID]
	if !ok {
		return prescription.ErrPrescriptionNotFound
	}
	for i := range stored.Details {
		if stored.Details[i].ID == d.ID {
			stored.Details[i] = *d
			return nil
		}
	}
	stored.Details = append(stored.Details, *d)
	return nil
}

func (r prescriptionRepo) DeleteDetail(_ context.Context, id uuid.UUID) error {
	for _, p := range r.d.prescriptions {
		for i := range p.Details {
			if p.Details[i].ID == id {
				p.Details = append(p.Details[:i], p.Details[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

type medicineRepo struct{ d *dataset }

func (r medicineRepo) Lock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Medicine, error) {
	return r.GetMany(ctx, ids)
}

func (r medicineRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Medicine, error) {
	return pick(r.d.medicines, ids), nil
}

func (r medicineRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int) error {
	m, ok := r.d.medicines[id]
	if !ok {
		return prescription.ErrMedicineNotFound
	}
	if m.Stock-delta < 0 {
		return prescription.ErrInsufficientStock
	}
	m.Stock -= delta
	return nil
}

// ---- wards & admissions ----

type wardRepo struct{ d *dataset }

func (r wardRepo) GetWard(_ context.Context, id uuid.UUID) (*admission.Ward, error) {
	w, ok := r.d.wards[id]
	if !ok {
		return nil, admission.ErrWardNotFound
	}
	return ptr(*w), nil
}

func (r wardRepo) LockWard(ctx context.Context, id uuid.UUID) (*admission.Ward, error) {
	return r.GetWard(ctx, id)
}

func (r wardRepo) ListWards(_ context.Context) ([]*admission.Ward, error) {
	out := make([]*admission.Ward, 0, len(r.d.wards))
	for _, w := range r.d.wards {
		out = append(out, ptr(*w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r wardRepo) GetWards(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*admission.Ward, error) {
	return pick(r.d.wards, ids), nil
}

type admissionRepo struct{ d *dataset }

func (r admissionRepo) Create(_ context.Context, h *admission.Hospitalization) error {
	if h.IsActive() {
		for _, other := range r.d.admissions {
			if other.IsActive() && (other.PatientID == h.PatientID || other.RecordID == h.RecordID) {
				return admission.ErrAlreadyAdmitted
			}
		}
	}
	stamp(&h.CreatedAt)
	r.d.admissions[h.ID] = ptr(*h)
	return nil
}

func (r admissionRepo) GetByID(_ context.Context, id uuid.UUID) (*admission.Hospitalization, error) {
	h, ok := r.d.admissions[id]
	if !ok {
		return nil, admission.ErrHospitalizationNotFound
	}
	return ptr(*h), nil
}

func (r admissionRepo) Lock(ctx context.Context, id uuid.UUID) (*admission.Hospitalization, error) {
	return r.GetByID(ctx, id)
}

func (r admissionRepo) Update(_ context.Context, h *admission.Hospitalization) error {
	if _, ok := r.d.admissions[h.ID]; !ok {
		return admission.ErrHospitalizationNotFound
	}
	r.d.admissions[h.ID] = ptr(*h)
	return nil
}

func (r admissionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.d.admissions, id)
	return nil
}

func (r admissionRepo) ActiveForPatient(_ context.Context, patientID uuid.UUID) (*admission.Hospitalization, error) {
	for _, h := range r.d.admissions {
		if h.PatientID == patientID && h.IsActive() {
			return ptr(*h), nil
		}
	}
	return nil, nil
}

func (r admissionRepo) CountActiveInWard(_ context.Context, wardID uuid.UUID) (int64, error) {
	var n int64
	for _, h := range r.d.admissions {
		if h.WardID == wardID && h.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r admissionRepo) CountActiveByWard(_ context.Context) (map[uuid.UUID]int64, error) {
	out := map[uuid.UUID]int64{}
	for _, h := range r.d.admissions {
		if h.IsActive() {
			out[h.WardID]++
		}
	}
	return out, nil
}

func (r admissionRepo) ListActive(_ context.Context, q *admission.ListActiveQuery) ([]*admission.Hospitalization, error) {
	wards := make(map[uuid.UUID]bool, len(q.WardIDs))
	for _, id := range q.WardIDs {
		wards[id] = true
	}

	var out []*admission.Hospitalization
	for _, h := range r.d.admissions {
		switch {
		case !h.IsActive():
			continue
		case len(wards) > 0 && !wards[h.WardID]:
			continue
		case q.DoctorID != nil && h.DoctorID != *q.DoctorID:
			continue
		}
		out = append(out, ptr(*h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InDate.Before(out[j].InDate) })
	return out, nil
}

func (r admissionRepo) ListByRegistration(_ context.Context, registrationID uuid.UUID) ([]*admission.Hospitalization, error) {
	out := []*admission.Hospitalization{}
	for _, h := range r.d.admissions {
		if h.RegistrationID == registrationID {
			out = append(out, ptr(*h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InDate.Before(out[j].InDate) })
	return out, nil
}

func (r admissionRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*admission.Hospitalization, error) {
	return pick(r.d.admissions, ids), nil
}

// ---- nursing ----

type scheduleRepo struct{ d *dataset }

func (r scheduleRepo) Create(_ context.Context, schedules []*nursing.Schedule) error {
	for _, s := range schedules {
		stamp(&s.CreatedAt)
		r.d.schedules[s.ID] = ptr(*s)
	}
	return nil
}

func (r scheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*nursing.Schedule, error) {
	s, ok := r.d.schedules[id]
	if !ok {
		return nil, nursing.ErrScheduleNotFound
	}
	return ptr(*s), nil
}

func (r scheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.d.schedules, id)
	return nil
}

func (r scheduleRepo) DeleteSlot(_ context.Context, wardID uuid.UUID, start, end time.Time) (int64, error) {
	var n int64
	for id, s := range r.d.schedules {
		if s.WardID == wardID && s.StartTime.Equal(start) && s.EndTime.Equal(end) {
			delete(r.d.schedules, id)
			n++
		}
	}
	return n, nil
}

func (r scheduleRepo) DeleteStartingWithin(_ context.Context, wardIDs []uuid.UUID, from, to time.Time) (int64, error) {
	wards := make(map[uuid.UUID]bool, len(wardIDs))
	for _, id := range wardIDs {
		wards[id] = true
	}
	var n int64
	for id, s := range r.d.schedules {
		if wards[s.WardID] && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			delete(r.d.schedules, id)
			n++
		}
	}
	return n, nil
}

func (r scheduleRepo) Covering(_ context.Context, wardID uuid.UUID, at time.Time) ([]nursing.DutyCandidate, error) {
	var out []nursing.DutyCandidate
	for _, s := range r.d.schedules {
		if s.WardID != wardID || !s.Covers(at) {
			continue
		}
		n, ok := r.d.nurses[s.NurseID]
		if !ok {
			continue
		}
		out = append(out, nursing.DutyCandidate{Schedule: ptr(*s), Nurse: ptr(*n)})
	}
	return out, nil
}

func (r scheduleRepo) LatestEnding(_ context.Context, wardID uuid.UUID) (*nursing.DutyCandidate, error) {
	var best *nursing.Schedule
	for _, s := range r.d.schedules {
		if s.WardID != wardID {
			continue
		}
		if _, ok := r.d.nurses[s.NurseID]; !ok {
			continue
		}
		if best == nil || s.EndTime.After(best.EndTime) ||
			(s.EndTime.Equal(best.EndTime) && lessID(s.NurseID, best.NurseID)) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	return &nursing.DutyCandidate{Schedule: ptr(*best), Nurse: ptr(*r.d.nurses[best.NurseID])}, nil
}

func (r scheduleRepo) List(_ context.Context, q *nursing.ListSchedulesQuery) ([]*nursing.Schedule, error) {
	var out []*nursing.Schedule
	for _, s := range r.d.schedules {
		switch {
		case q.WardID != nil && s.WardID != *q.WardID:
			continue
		case q.NurseID != nil && s.NurseID != *q.NurseID:
			continue
		case q.From != nil && !s.EndTime.After(*q.From):
			continue
		case q.To != nil && !s.StartTime.Before(*q.To):
			continue
		}
		out = append(out, ptr(*s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

type taskRepo struct{ d *dataset }

func (r taskRepo) CreateBatch(_ context.Context, tasks []*nursing.Task) error {
	for _, t := range tasks {
		stamp(&t.CreatedAt)
		r.d.tasks[t.ID] = ptr(*t)
	}
	return nil
}

func (r taskRepo) GetByID(_ context.Context, id uuid.UUID) (*nursing.Task, error) {
	t, ok := r.d.tasks[id]
	if !ok {
		return nil, nursing.ErrTaskNotFound
	}
	return ptr(*t), nil
}

func (r taskRepo) Lock(ctx context.Context, id uuid.UUID) (*nursing.Task, error) {
	return r.GetByID(ctx, id)
}

func (r taskRepo) Update(_ context.Context, t *nursing.Task) error {
	if _, ok := r.d.tasks[t.ID]; !ok {
		return nursing.ErrTaskNotFound
	}
	r.d.tasks[t.ID] = ptr(*t)
	return nil
}

func (r taskRepo) ListByHospitalization(_ context.Context, hospitalizationID uuid.UUID) ([]*nursing.Task, error) {
	return r.List(context.Background(), &nursing.ListTasksQuery{HospitalizationIDs: []uuid.UUID{hospitalizationID}})
}

func (r taskRepo) List(_ context.Context, q *nursing.ListTasksQuery) ([]*nursing.Task, error) {
	var hosp map[uuid.UUID]bool
	if q.HospitalizationIDs != nil {
		hosp = make(map[uuid.UUID]bool, len(q.HospitalizationIDs))
		for _, id := range q.HospitalizationIDs {
			hosp[id] = true
		}
	}

	out := []*nursing.Task{}
	for _, t := range r.d.tasks {
		switch {
		case hosp != nil && !hosp[t.HospitalizationID]:
			continue
		case q.NurseID != nil && t.NurseID != *q.NurseID:
			continue
		case q.From != nil && t.ScheduledAt.Before(*q.From):
			continue
		case q.To != nil && !t.ScheduledAt.Before(*q.To):
			continue
		}
		out = append(out, ptr(*t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r taskRepo) ExpireOverdue(_ context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	var n int64
	for _, id := range ids {
		t, ok := r.d.tasks[id]
		if ok && t.IsOverdue(now) {
			t.Status = nursing.TaskExpired
			n++
		}
	}
	return n, nil
}

func (r taskRepo) Reassign(_ context.Context, from, to uuid.UUID) error {
	for _, t := range r.d.tasks {
		if t.HospitalizationID == from {
			t.HospitalizationID = to
		}
	}
	return nil
}

// ---- payments ----

type paymentRepo struct{ d *dataset }

func (r paymentRepo) Create(_ context.Context, p *payment.Payment) error {
	src := p.Source()
	for _, other := range r.d.payments {
		if other.Source() == src {
			return payment.ErrAlreadyBilled
		}
	}
	stamp(&p.CreatedAt)
	r.d.payments[p.ID] = ptr(*p)
	return nil
}

func (r paymentRepo) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	p, ok := r.d.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return ptr(*p), nil
}

func (r paymentRepo) Lock(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r paymentRepo) UpdateStatus(_ context.Context, p *payment.Payment) error {
	if _, ok := r.d.payments[p.ID]; !ok {
		return payment.ErrPaymentNotFound
	}
	r.d.payments[p.ID] = ptr(*p)
	return nil
}

func (r paymentRepo) FindBySource(_ context.Context, src payment.Source) (*payment.Payment, error) {
	for _, p := range r.d.payments {
		if p.Source() == src {
			return ptr(*p), nil
		}
	}
	return nil, nil
}

func (r paymentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*payment.Payment, error) {
	out := []*payment.Payment{}
	for _, p := range r.d.payments {
		if p.PatientID == patientID {
			out = append(out, ptr(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r paymentRepo) SummarizePaid(_ context.Context) ([]payment.RevenueLine, error) {
	byType := map[payment.Type]*payment.RevenueLine{}
	for _, p := range r.d.payments {
		if p.Status != payment.StatusPaid {
			continue
		}
		line, ok := byType[p.Type]
		if !ok {
			line = &payment.RevenueLine{Type: p.Type, Total: decimal.Zero}
			byType[p.Type] = line
		}
		line.Count++
		line.Total = line.Total.Add(p.Amount)
	}

	out := make([]payment.RevenueLine, 0, len(byType))
	for _, l := range byType {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}
