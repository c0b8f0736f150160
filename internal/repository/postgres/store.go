package postgres

import (
	"context"
	"errors"
	"fmt"

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
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/database"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// constraintErrors maps unique indexes to the conflict they signal.
var constraintErrors = map[string]error{
	database.IndexActiveRegistration: registration.ErrActiveVisitExists,
	database.IndexActiveHospRecord:   admission.ErrAlreadyAdmitted,
	database.IndexActiveHospPatient:  admission.ErrAlreadyAdmitted,
	"uq_payments_registration":       payment.ErrAlreadyBilled,
	"uq_payments_exam":               payment.ErrAlreadyBilled,
	"uq_payments_prescription":       payment.ErrAlreadyBilled,
	"uq_payments_hospitalization":    payment.ErrAlreadyBilled,
	"chk_medicines_stock":            prescription.ErrInsufficientStock,
}

// translate turns driver errors into domain errors where the schema encodes
// a rule, and attaches op to anything else.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
		if pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, domain.NewError(domain.KindConflict, "CONFLICT", "conflicting row already exists"))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound maps gorm's missing-row error to the given sentinel.
func notFound(err error, sentinel error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return translate(err, op)
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

type tx struct {
	db *gorm.DB
}

func (t *tx) Patients() patient.Repository               { return patientRepo{t.db} }
func (t *tx) Staff() staff.Repository                    { return staffRepo{t.db} }
func (t *tx) Registrations() registration.Repository     { return registrationRepo{t.db} }
func (t *tx) Records() mr.Repository                     { return recordRepo{t.db} }
func (t *tx) Prescriptions() prescription.Repository     { return prescriptionRepo{t.db} }
func (t *tx) Medicines() prescription.MedicineRepository { return medicineRepo{t.db} }
func (t *tx) Wards() admission.WardRepository            { return wardRepo{t.db} }
func (t *tx) Admissions() admission.Repository           { return admissionRepo{t.db} }
func (t *tx) Schedules() nursing.ScheduleRepository      { return scheduleRepo{t.db} }
func (t *tx) Tasks() nursing.TaskRepository              { return taskRepo{t.db} }
func (t *tx) Payments() payment.Repository               { return paymentRepo{t.db} }

// AuditRepository writes audit entries outside request transactions.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "creating audit log")
}
