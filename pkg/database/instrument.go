package database

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "carepath:started_at"

// Instrumentation is a gorm plugin that times every statement into the
// DBQueryDuration histogram and logs statements slower than SlowThreshold.
type Instrumentation struct {
	Metrics       *metrics.Collector
	Log           *zap.Logger
	SlowThreshold time.Duration
}

func (Instrumentation) Name() string { return "carepath:instrumentation" }

func (p Instrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before("carepath:before_"+h.op, markStart); err != nil {
			return err
		}
		if err := h.after("carepath:after_"+h.op, p.observe(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

func (p Instrumentation) observe(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startedAtKey)
		if !ok {
			return
		}
		started, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(started)

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		p.Metrics.DBQueryDuration.WithLabelValues(op, table).Observe(elapsed.Seconds())

		if p.SlowThreshold > 0 && elapsed >= p.SlowThreshold {
			p.Log.Warn("slow query",
				zap.String("operation", op),
				zap.String("table", table),
				zap.Duration("elapsed", elapsed),
				zap.Int64("rows", db.Statement.RowsAffected),
			)
		}
	}
}

// ReportPool samples the connection pool into DBConnections until ctx ends.
func ReportPool(ctx context.Context, db *gorm.DB, m *metrics.Collector, every time.Duration) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		m.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
