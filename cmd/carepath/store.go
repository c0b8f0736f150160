package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type storeOptions struct {
	kind    string
	seed    string
	migrate bool
}

// backend is the persistence the services run on.
type backend struct {
	store repository.Store
	audit service.AuditRepository
	ready func() error
}

func openBackend(ctx context.Context, opts storeOptions, cfg *config.Config, m *metrics.Collector, log *zap.Logger) (*backend, error) {
	switch opts.kind {
	case storePostgres, "":
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.Use(database.Instrumentation{Metrics: m, Log: log, SlowThreshold: cfg.Database.SlowQueryThreshold}); err != nil {
			return nil, fmt.Errorf("installing db instrumentation: %w", err)
		}
		if opts.migrate {
			if err := database.Migrate(db, log); err != nil {
				return nil, err
			}
		}
		go database.ReportPool(ctx, db, m, 15*time.Second)
		return &backend{
			store: postgres.NewStore(db),
			audit: postgres.NewAuditRepository(db),
			ready: pinger(db),
		}, nil

	case storeMemory:
		store := memory.NewStore()
		if opts.seed != "" {
			n, err := loadSeed(store, opts.seed)
			if err != nil {
				return nil, err
			}
			log.Info("seeded in-memory store", zap.String("file", opts.seed), zap.Int("rows", n))
		}
		log.Warn("running on the in-memory store; state is lost on exit")
		return &backend{
			store: store,
			audit: memory.NewAuditRepository(),
			ready: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q (want %s or %s)", opts.kind, storePostgres, storeMemory)
	}
}

// seedFile holds the reference data an in-memory deployment starts from.
type seedFile struct {
	Patients  []*patient.Patient       `json:"patients"`
	Doctors   []*staff.Doctor          `json:"doctors"`
	Nurses    []*staff.Nurse           `json:"nurses"`
	Medicines []*prescription.Medicine `json:"medicines"`
	Wards     []*admission.Ward        `json:"wards"`
}

func loadSeed(store *memory.Store, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}

	var rows []any
	for _, p := range f.Patients {
		rows = append(rows, p)
	}
	for _, d := range f.Doctors {
		rows = append(rows, d)
	}
	for _, n := range f.Nurses {
		rows = append(rows, n)
	}
	for _, med := range f.Medicines {
		rows = append(rows, med)
	}
	for _, w := range f.Wards {
		if w.BedCount <= 0 {
			return 0, fmt.Errorf("seed ward %s: bed_count must be positive", w.ID)
		}
		rows = append(rows, w)
	}
	store.Seed(rows...)
	return len(rows), nil
}
