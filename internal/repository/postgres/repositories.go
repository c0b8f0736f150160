package postgres

import (
	"context"
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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func byID[V any](rows []*V, id func(*V) uuid.UUID) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(rows))
	for _, r := range rows {
		out[id(r)] = r
	}
	return out
}

// ---- patients & staff ----

type patientRepo struct{ db *gorm.DB }

func (r patientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, patient.ErrPatientNotFound, "getting patient")
	}
	return &p, nil
}

func (r patientRepo) Lock(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, patient.ErrPatientNotFound, "locking patient")
	}
	return &p, nil
}

func (r patientRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*patient.Patient, error) {
	var rows []*patient.Patient
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing patients")
		}
	}
	return byID(rows, func(p *patient.Patient) uuid.UUID { return p.ID }), nil
}

type staffRepo struct{ db *gorm.DB }

func (r staffRepo) GetDoctor(ctx context.Context, id uuid.UUID) (*staff.Doctor, error) {
	var d staff.Doctor
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, staff.ErrDoctorNotFound, "getting doctor")
	}
	return &d, nil
}

func (r staffRepo) LockDoctor(ctx context.Context, id uuid.UUID) (*staff.Doctor, error) {
	var d staff.Doctor
	if err := forUpdate(r.db.WithContext(ctx)).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, staff.ErrDoctorNotFound, "locking doctor")
	}
	return &d, nil
}

func (r staffRepo) GetNurse(ctx context.Context, id uuid.UUID) (*staff.Nurse, error) {
	var n staff.Nurse
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, notFound(err, staff.ErrNurseNotFound, "getting nurse")
	}
	return &n, nil
}

func (r staffRepo) GetNurses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*staff.Nurse, error) {
	var rows []*staff.Nurse
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing nurses")
		}
	}
	return byID(rows, func(n *staff.Nurse) uuid.UUID { return n.ID }), nil
}

func (r staffRepo) ListNurses(ctx context.Context, filter staff.NurseFilter) ([]*staff.Nurse, error) {
	q := r.db.WithContext(ctx).Model(&staff.Nurse{})
	switch filter {
	case staff.HeadNursesOnly:
		q = q.Where("is_head_nurse = ?", true)
	case staff.StaffNursesOnly:
		q = q.Where("is_head_nurse = ?", false)
	}
	var rows []*staff.Nurse
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "listing nurses")
	}
	return rows, nil
}

// ---- registrations ----

type registrationRepo struct{ db *gorm.DB }

func (r registrationRepo) Create(ctx context.Context, reg *registration.Registration) error {
	return translate(r.db.WithContext(ctx).Create(reg).Error, "creating registration")
}

func (r registrationRepo) GetByID(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	var reg registration.Registration
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, registration.ErrRegistrationNotFound, "getting registration")
	}
	return &reg, nil
}

func (r registrationRepo) Lock(ctx context.Context, id uuid.UUID) (*registration.Registration, error) {
	var reg registration.Registration
	if err := forUpdate(r.db.WithContext(ctx)).First(&reg, "id = ?", id).Error; err != nil {
		return nil, notFound(err, registration.ErrRegistrationNotFound, "locking registration")
	}
	return &reg, nil
}

func (r registrationRepo) UpdateStatus(ctx context.Context, reg *registration.Registration) error {
	res := r.db.WithContext(ctx).Model(reg).Select("status", "started_at", "finished_at", "cancelled_at", "expired_at").Updates(reg)
	if res.Error != nil {
		return translate(res.Error, "updating registration status")
	}
	if res.RowsAffected == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

func (r registrationRepo) HasActive(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&registration.Registration{}).
		Where("patient_id = ? AND status IN ?", patientID, registration.ActiveStatuses).
		Count(&n).Error
	return n > 0, translate(err, "checking active registration")
}

func (r registrationRepo) CountTowardsQuota(ctx context.Context, doctorID uuid.UUID, visitDate time.Time, category registration.Category) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&registration.Registration{}).
		Where("doctor_id = ? AND visit_date = ? AND category = ? AND status <> ?",
			doctorID, visitDate, category, registration.StatusCancelled).
		Count(&n).Error
	return n, translate(err, "counting registrations")
}

func scoped(q *gorm.DB, scope registration.Scope) *gorm.DB {
	if scope.PatientID != nil {
		q = q.Where("patient_id = ?", *scope.PatientID)
	}
	if scope.DoctorID != nil {
		q = q.Where("doctor_id = ?", *scope.DoctorID)
	}
	return q
}

func (r registrationRepo) LockOverdue(ctx context.Context, scope registration.Scope, today time.Time) ([]*registration.Registration, error) {
	var rows []*registration.Registration
	q := scoped(forUpdate(r.db.WithContext(ctx)), scope).
		Where("status = ? AND visit_date < ?", registration.StatusWaiting, today).
		Order("id ASC")
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, "locking overdue registrations")
	}
	return rows, nil
}

func (r registrationRepo) List(ctx context.Context, q *registration.ListRegistrationsQuery) ([]*registration.Registration, error) {
	db := r.db.WithContext(ctx).Model(&registration.Registration{})
	if q.PatientID != nil {
		db = db.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	if len(q.Statuses) > 0 {
		db = db.Where("status IN ?", q.Statuses)
	}
	if q.VisitDate != nil {
		db = db.Where("visit_date = ?", *q.VisitDate)
	}

	var rows []*registration.Registration
	if err := db.Order("visit_date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "listing registrations")
	}
	return rows, nil
}

func (r registrationRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*registration.Registration, error) {
	var rows []*registration.Registration
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing registrations")
		}
	}
	return byID(rows, func(x *registration.Registration) uuid.UUID { return x.ID }), nil
}

// ---- medical records ----

type recordRepo struct{ db *gorm.DB }

func (r recordRepo) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*mr.MedicalRecord, error) {
	var rec mr.MedicalRecord
	if err := r.db.WithContext(ctx).First(&rec, "registration_id = ?", registrationID).Error; err != nil {
		return nil, notFound(err, mr.ErrRecordNotFound, "getting medical record")
	}
	return &rec, nil
}

func (r recordRepo) GetByID(ctx context.Context, id uuid.UUID) (*mr.MedicalRecord, error) {
	var rec mr.MedicalRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err, mr.ErrRecordNotFound, "getting medical record")
	}
	return &rec, nil
}

func (r recordRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*mr.MedicalRecord, error) {
	rows := []*mr.MedicalRecord{}
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("created_at DESC").Find(&rows).Error
	return rows, translate(err, "listing medical records")
}

func (r recordRepo) ListByRegistrations(ctx context.Context, registrationIDs []uuid.UUID) (map[uuid.UUID]*mr.MedicalRecord, error) {
	var rows []*mr.MedicalRecord
	if len(registrationIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("registration_id IN ?", registrationIDs).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing medical records")
		}
	}
	return byID(rows, func(rec *mr.MedicalRecord) uuid.UUID { return rec.RegistrationID }), nil
}

func (r recordRepo) Save(ctx context.Context, rec *mr.MedicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
		return translate(r.db.WithContext(ctx).Create(rec).Error, "creating medical record")
	}
	err := r.db.WithContext(ctx).Model(rec).
		Select("complaint", "diagnosis", "suggestion", "vitals").
		Updates(rec).Error
	return translate(err, "updating medical record")
}

func (r recordRepo) CreateExamination(ctx context.Context, e *mr.Examination) error {
	return translate(r.db.WithContext(ctx).Create(e).Error, "creating examination")
}

func (r recordRepo) ListExaminations(ctx context.Context, recordID uuid.UUID) ([]*mr.Examination, error) {
	rows := []*mr.Examination{}
	err := r.db.WithContext(ctx).Where("record_id = ?", recordID).Order("performed_at ASC").Find(&rows).Error
	return rows, translate(err, "listing examinations")
}

func (r recordRepo) GetExaminations(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*mr.Examination, error) {
	var rows []*mr.Examination
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing examinations")
		}
	}
	return byID(rows, func(e *mr.Examination) uuid.UUID { return e.ID }), nil
}

func (r recordRepo) ListPatientExaminations(ctx context.Context, patientID uuid.UUID) ([]*mr.Examination, error) {
	rows := []*mr.Examination{}
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("performed_at DESC").Find(&rows).Error
	return rows, translate(err, "listing examinations")
}

// ---- prescriptions & medicines ----

type prescriptionRepo struct{ db *gorm.DB }

func (r prescriptionRepo) GetByRecord(ctx context.Context, recordID uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	if err := r.db.WithContext(ctx).Preload("Details").First(&p, "record_id = ?", recordID).Error; err != nil {
		return nil, notFound(err, prescription.ErrPrescriptionNotFound, "getting prescription")
	}
	return &p, nil
}

func (r prescriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	if err := r.db.WithContext(ctx).Preload("Details").First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, prescription.ErrPrescriptionNotFound, "getting prescription")
	}
	return &p, nil
}

func (r prescriptionRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Prescription, error) {
	var rows []*prescription.Prescription
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Preload("Details").Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing prescriptions")
		}
	}
	return byID(rows, func(p *prescription.Prescription) uuid.UUID { return p.ID }), nil
}

func (r prescriptionRepo) Create(ctx context.Context, p *prescription.Prescription) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "creating prescription")
}

func (r prescriptionRepo) UpdateTotal(ctx context.Context, p *prescription.Prescription) error {
	err := r.db.WithContext(ctx).Model(p).Update("total_amount", p.TotalAmount).Error
	return translate(err, "updating prescription total")
}

func (r prescriptionRepo) SaveDetail(ctx context.Context, d *prescription.Detail) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "usage"}),
	}).Create(d).Error
	return translate(err, "saving prescription line")
}

func (r prescriptionRepo) DeleteDetail(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Delete(&prescription.Detail{}, "id = ?", id).Error, "deleting prescription line")
}

type medicineRepo struct{ db *gorm.DB }

func (r medicineRepo) Lock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Medicine, error) {
	var rows []*prescription.Medicine
	if len(ids) > 0 {
		err := forUpdate(r.db.WithContext(ctx)).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error
		if err != nil {
			return nil, translate(err, "locking medicines")
		}
	}
	return byID(rows, func(m *prescription.Medicine) uuid.UUID { return m.ID }), nil
}

func (r medicineRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*prescription.Medicine, error) {
	var rows []*prescription.Medicine
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing medicines")
		}
	}
	return byID(rows, func(m *prescription.Medicine) uuid.UUID { return m.ID }), nil
}

func (r medicineRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.db.WithContext(ctx).Model(&prescription.Medicine{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock - ?", delta))
	if res.Error != nil {
		return translate(res.Error, "adjusting stock")
	}
	if res.RowsAffected == 0 {
		return prescription.ErrMedicineNotFound
	}
	return nil
}

// ---- wards & admissions ----

type wardRepo struct{ db *gorm.DB }

func (r wardRepo) GetWard(ctx context.Context, id uuid.UUID) (*admission.Ward, error) {
	var w admission.Ward
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, notFound(err, admission.ErrWardNotFound, "getting ward")
	}
	return &w, nil
}

func (r wardRepo) LockWard(ctx context.Context, id uuid.UUID) (*admission.Ward, error) {
	var w admission.Ward
	if err := forUpdate(r.db.WithContext(ctx)).First(&w, "id = ?", id).Error; err != nil {
		return nil, notFound(err, admission.ErrWardNotFound, "locking ward")
	}
	return &w, nil
}

func (r wardRepo) ListWards(ctx context.Context) ([]*admission.Ward, error) {
	var rows []*admission.Ward
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error
	return rows, translate(err, "listing wards")
}

func (r wardRepo) GetWards(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*admission.Ward, error) {
	var rows []*admission.Ward
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing wards")
		}
	}
	return byID(rows, func(w *admission.Ward) uuid.UUID { return w.ID }), nil
}

type admissionRepo struct{ db *gorm.DB }

func (r admissionRepo) Create(ctx context.Context, h *admission.Hospitalization) error {
	return translate(r.db.WithContext(ctx).Create(h).Error, "creating hospitalization")
}

func (r admissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*admission.Hospitalization, error) {
	var h admission.Hospitalization
	if err := r.db.WithContext(ctx).First(&h, "id = ?", id).Error; err != nil {
		return nil, notFound(err, admission.ErrHospitalizationNotFound, "getting hospitalization")
	}
	return &h, nil
}

func (r admissionRepo) Lock(ctx context.Context, id uuid.UUID) (*admission.Hospitalization, error) {
	var h admission.Hospitalization
	if err := forUpdate(r.db.WithContext(ctx)).First(&h, "id = ?", id).Error; err != nil {
		return nil, notFound(err, admission.ErrHospitalizationNotFound, "locking hospitalization")
	}
	return &h, nil
}

func (r admissionRepo) Update(ctx context.Context, h *admission.Hospitalization) error {
	err := r.db.WithContext(ctx).Model(h).Select("ward_id", "out_date", "status").Updates(h).Error
	return translate(err, "updating hospitalization")
}

func (r admissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Delete(&admission.Hospitalization{}, "id = ?", id).Error, "deleting hospitalization")
}

func (r admissionRepo) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*admission.Hospitalization, error) {
	var rows []*admission.Hospitalization
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", patientID, admission.StatusActive).
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, translate(err, "loading active hospitalization")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r admissionRepo) CountActiveInWard(ctx context.Context, wardID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&admission.Hospitalization{}).
		Where("ward_id = ? AND status = ?", wardID, admission.StatusActive).
		Count(&n).Error
	return n, translate(err, "counting ward occupancy")
}

func (r admissionRepo) CountActiveByWard(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		WardID uuid.UUID
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&admission.Hospitalization{}).
		Select("ward_id, COUNT(*) AS n").
		Where("status = ?", admission.StatusActive).
		Group("ward_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "counting occupancy by ward")
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.WardID] = row.N
	}
	return out, nil
}

func (r admissionRepo) ListActive(ctx context.Context, q *admission.ListActiveQuery) ([]*admission.Hospitalization, error) {
	db := r.db.WithContext(ctx).Where("status = ?", admission.StatusActive)
	if len(q.WardIDs) > 0 {
		db = db.Where("ward_id IN ?", q.WardIDs)
	}
	if q.DoctorID != nil {
		db = db.Where("doctor_id = ?", *q.DoctorID)
	}
	var rows []*admission.Hospitalization
	err := db.Order("in_date ASC").Find(&rows).Error
	return rows, translate(err, "listing active hospitalizations")
}

func (r admissionRepo) ListByRegistration(ctx context.Context, registrationID uuid.UUID) ([]*admission.Hospitalization, error) {
	rows := []*admission.Hospitalization{}
	err := r.db.WithContext(ctx).Where("registration_id = ?", registrationID).Order("in_date ASC").Find(&rows).Error
	return rows, translate(err, "listing hospitalizations")
}

func (r admissionRepo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*admission.Hospitalization, error) {
	var rows []*admission.Hospitalization
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, translate(err, "listing hospitalizations")
		}
	}
	return byID(rows, func(h *admission.Hospitalization) uuid.UUID { return h.ID }), nil
}

// ---- nursing ----

type scheduleRepo struct{ db *gorm.DB }

func (r scheduleRepo) Create(ctx context.Context, schedules []*nursing.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Create(&schedules).Error, "creating schedules")
}

func (r scheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*nursing.Schedule, error) {
	var s nursing.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, nursing.ErrScheduleNotFound, "getting schedule")
	}
	return &s, nil
}

func (r scheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Delete(&nursing.Schedule{}, "id = ?", id).Error, "deleting schedule")
}

func (r scheduleRepo) DeleteSlot(ctx context.Context, wardID uuid.UUID, start, end time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("ward_id = ? AND start_time = ? AND end_time = ?", wardID, start, end).
		Delete(&nursing.Schedule{})
	return res.RowsAffected, translate(res.Error, "deleting schedule slot")
}

func (r scheduleRepo) DeleteStartingWithin(ctx context.Context, wardIDs []uuid.UUID, from, to time.Time) (int64, error) {
	if len(wardIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("ward_id IN ? AND start_time >= ? AND start_time < ?", wardIDs, from, to).
		Delete(&nursing.Schedule{})
	return res.RowsAffected, translate(res.Error, "deleting schedules in window")
}

func (r scheduleRepo) candidates(ctx context.Context, schedules []*nursing.Schedule) ([]nursing.DutyCandidate, error) {
	ids := make([]uuid.UUID, 0, len(schedules))
	for _, s := range schedules {
		ids = append(ids, s.NurseID)
	}
	nurses, err := staffRepo{r.db}.GetNurses(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]nursing.DutyCandidate, 0, len(schedules))
	for _, s := range schedules {
		if n, ok := nurses[s.NurseID]; ok {
			out = append(out, nursing.DutyCandidate{Schedule: s, Nurse: n})
		}
	}
	return out, nil
}

func (r scheduleRepo) Covering(ctx context.Context, wardID uuid.UUID, at time.Time) ([]nursing.DutyCandidate, error) {
	var rows []*nursing.Schedule
	err := r.db.WithContext(ctx).
		Where("ward_id = ? AND start_time <= ? AND end_time >= ?", wardID, at, at).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "loading covering schedules")
	}
	return r.candidates(ctx, rows)
}

func (r scheduleRepo) LatestEnding(ctx context.Context, wardID uuid.UUID) (*nursing.DutyCandidate, error) {
	var rows []*nursing.Schedule
	err := r.db.WithContext(ctx).
		Where("ward_id = ?", wardID).
		Order("end_time DESC, nurse_id ASC").
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, translate(err, "loading latest schedule")
	}
	cands, err := r.candidates(ctx, rows)
	if err != nil || len(cands) == 0 {
		return nil, err
	}
	return &cands[0], nil
}

func (r scheduleRepo) List(ctx context.Context, q *nursing.ListSchedulesQuery) ([]*nursing.Schedule, error) {
	db := r.db.WithContext(ctx).Model(&nursing.Schedule{})
	if q.WardID != nil {
		db = db.Where("ward_id = ?", *q.WardID)
	}
	if q.NurseID != nil {
		db = db.Where("nurse_id = ?", *q.NurseID)
	}
	if q.From != nil {
		db = db.Where("end_time > ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("start_time < ?", *q.To)
	}
	var rows []*nursing.Schedule
	err := db.Order("start_time ASC, id ASC").Find(&rows).Error
	return rows, translate(err, "listing schedules")
}

type taskRepo struct{ db *gorm.DB }

func (r taskRepo) CreateBatch(ctx context.Context, tasks []*nursing.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).CreateInBatches(&tasks, 200).Error, "creating tasks")
}

func (r taskRepo) GetByID(ctx context.Context, id uuid.UUID) (*nursing.Task, error) {
	var t nursing.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, nursing.ErrTaskNotFound, "getting task")
	}
	return &t, nil
}

func (r taskRepo) Lock(ctx context.Context, id uuid.UUID) (*nursing.Task, error) {
	var t nursing.Task
	if err := forUpdate(r.db.WithContext(ctx)).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, nursing.ErrTaskNotFound, "locking task")
	}
	return &t, nil
}

func (r taskRepo) Update(ctx context.Context, t *nursing.Task) error {
	err := r.db.WithContext(ctx).Model(t).Select("status", "completed_at", "completed_by").Updates(t).Error
	return translate(err, "updating task")
}

func (r taskRepo) ListByHospitalization(ctx context.Context, hospitalizationID uuid.UUID) ([]*nursing.Task, error) {
	return r.List(ctx, &nursing.ListTasksQuery{HospitalizationIDs: []uuid.UUID{hospitalizationID}})
}

func (r taskRepo) List(ctx context.Context, q *nursing.ListTasksQuery) ([]*nursing.Task, error) {
	db := r.db.WithContext(ctx).Model(&nursing.Task{})
	if q.HospitalizationIDs != nil {
		if len(q.HospitalizationIDs) == 0 {
			return []*nursing.Task{}, nil
		}
		db = db.Where("hospitalization_id IN ?", q.HospitalizationIDs)
	}
	if q.NurseID != nil {
		db = db.Where("nurse_id = ?", *q.NurseID)
	}
	if q.From != nil {
		db = db.Where("scheduled_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("scheduled_at < ?", *q.To)
	}
	rows := []*nursing.Task{}
	err := db.Order("scheduled_at ASC, id ASC").Find(&rows).Error
	return rows, translate(err, "listing tasks")
}

func (r taskRepo) ExpireOverdue(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&nursing.Task{}).
		Where("id IN ? AND status = ? AND scheduled_at < ?", ids, nursing.TaskPending, now).
		Update("status", nursing.TaskExpired)
	return res.RowsAffected, translate(res.Error, "expiring tasks")
}

func (r taskRepo) Reassign(ctx context.Context, from, to uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&nursing.Task{}).
		Where("hospitalization_id = ?", from).
		Update("hospitalization_id", to).Error
	return translate(err, "reassigning tasks")
}

// ---- payments ----

type paymentRepo struct{ db *gorm.DB }

func (r paymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	return translate(r.db.WithContext(ctx).Create(p).Error, "creating payment")
}

func (r paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, payment.ErrPaymentNotFound, "getting payment")
	}
	return &p, nil
}

func (r paymentRepo) Lock(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, payment.ErrPaymentNotFound, "locking payment")
	}
	return &p, nil
}

func (r paymentRepo) UpdateStatus(ctx context.Context, p *payment.Payment) error {
	err := r.db.WithContext(ctx).Model(p).Select("status", "paid_at", "refunded_at").Updates(p).Error
	return translate(err, "updating payment")
}

func sourceColumn(t payment.Type) string {
	switch t {
	case payment.TypeRegistration:
		return "registration_id"
	case payment.TypeExam:
		return "exam_id"
	case payment.TypePrescription:
		return "prescription_id"
	default:
		return "hospitalization_id"
	}
}

func (r paymentRepo) FindBySource(ctx context.Context, src payment.Source) (*payment.Payment, error) {
	var rows []*payment.Payment
	err := r.db.WithContext(ctx).
		Where(sourceColumn(src.Type)+" = ?", src.ID).
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, translate(err, "finding payment by source")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r paymentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*payment.Payment, error) {
	rows := []*payment.Payment{}
	err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("created_at DESC, id ASC").Find(&rows).Error
	return rows, translate(err, "listing payments")
}

func (r paymentRepo) SummarizePaid(ctx context.Context) ([]payment.RevenueLine, error) {
	lines := []payment.RevenueLine{}
	err := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Select("type, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", payment.StatusPaid).
		Group("type").
		Order("type ASC").
		Scan(&lines).Error
	return lines, translate(err, "summarising revenue")
}
