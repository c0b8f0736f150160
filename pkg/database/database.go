package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DNS(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Schemas are the logical namespaces the models live in.
var Schemas = []string{"clinical", "pharmacy", "nursing", "billing", "audit"}

// Models lists every table owned by the engine, in creation order.
func Models() []any {
	return []any{
		&domain.AuditLog{},
		&patient.Patient{},
		&staff.Department{},
		&staff.Doctor{},
		&staff.Nurse{},
		&registration.Registration{},
		&mr.MedicalRecord{},
		&mr.Examination{},
		&prescription.Medicine{},
		&prescription.Prescription{},
		&prescription.Detail{},
		&admission.Ward{},
		&admission.Hospitalization{},
		&nursing.Schedule{},
		&nursing.Task{},
		&payment.Payment{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range Schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// Names of the partial unique indexes. The postgres repositories translate
// violations of these into domain conflicts.
const (
	IndexActiveRegistration = "uq_registrations_active_patient"
	IndexActiveHospRecord   = "uq_hosp_active_record"
	IndexActiveHospPatient  = "uq_hosp_active_patient"
)

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name     string
		query    string
		required bool
	}{
		// At most one WAITING or IN_PROGRESS registration per patient.
		{
			name:     IndexActiveRegistration,
			query:    `CREATE UNIQUE INDEX IF NOT EXISTS uq_registrations_active_patient ON clinical.registrations (patient_id) WHERE status IN ('WAITING', 'IN_PROGRESS')`,
			required: true,
		},
		{
			name:     IndexActiveHospRecord,
			query:    `CREATE UNIQUE INDEX IF NOT EXISTS uq_hosp_active_record ON clinical.hospitalizations (record_id) WHERE status = 'active'`,
			required: true,
		},
		{
			name:     IndexActiveHospPatient,
			query:    `CREATE UNIQUE INDEX IF NOT EXISTS uq_hosp_active_patient ON clinical.hospitalizations (patient_id) WHERE status = 'active'`,
			required: true,
		},
		{
			name:     "chk_schedules_window",
			query:    `DO $$ BEGIN ALTER TABLE nursing.schedules ADD CONSTRAINT chk_schedules_window CHECK (end_time > start_time); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
			required: true,
		},
		{
			name:  "idx_tasks_pending_due",
			query: `CREATE INDEX IF NOT EXISTS idx_tasks_pending_due ON nursing.tasks (scheduled_at) WHERE status = 'PENDING'`,
		},
		{
			name:  "idx_registrations_waiting_date",
			query: `CREATE INDEX IF NOT EXISTS idx_registrations_waiting_date ON clinical.registrations (visit_date) WHERE status = 'WAITING'`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			if idx.required {
				return fmt.Errorf("%s: %w", idx.name, err)
			}
			log.Warn("optional index not created", zap.String("index", idx.name), zap.Error(err))
		}
	}

	return nil
}
