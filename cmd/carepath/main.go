package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	v1 "github.com/dmehra2102/prod-golang-projects/carepath/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/pricing"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/tracer"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "carepath",
		Short:         "Hospital visit, admission and billing engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var opts storeOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply migrations before serving")
	cmd.Flags().StringVar(&opts.kind, "store", storePostgres, "persistence backend: postgres or memory")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "JSON reference data loaded into the memory store")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log, cfg.App)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

// tokenCmd mints an access token for operators and integration tests.
func tokenCmd() *cobra.Command {
	var (
		role      string
		userID    string
		email     string
		staffID   string
		patientID string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			claims := &domain.Claims{Role: domain.Role(role), Email: email}
			if claims.UserID, err = parseOrNew(userID); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			if staffID != "" {
				id, err := uuid.Parse(staffID)
				if err != nil {
					return fmt.Errorf("--staff: %w", err)
				}
				claims.StaffID = &id
			}
			if patientID != "" {
				id, err := uuid.Parse(patientID)
				if err != nil {
					return fmt.Errorf("--patient: %w", err)
				}
				claims.PatientID = &id
			}

			token, expiresAt, err := auth.NewJWTManager(cfg.JWT).Issue(claims, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "admin, doctor, nurse, pharmacist or patient")
	cmd.Flags().StringVar(&userID, "user", "", "subject id (random when empty)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&staffID, "staff", "", "doctor or nurse id")
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_TTL)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func parseOrNew(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}

func runServer(opts storeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	tp, err := tracer.Init(cfg.Tracing, cfg.App)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(tp, 5*time.Second); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	loc, err := cfg.Clinic.Location()
	if err != nil {
		return err
	}

	m := metrics.NewCollector("carepath", prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, opts, cfg, m, log)
	if err != nil {
		return err
	}

	publisher := events.New(cfg.Kafka)
	defer publisher.Close() //nolint:errcheck

	catalog, closeCatalog := newCatalog(cfg.Pricing, cfg.Redis, log)
	defer closeCatalog()

	audit := service.NewAuditService(be.audit, m, log)
	defer audit.Shutdown()

	deps := service.Deps{
		Store:    be.store,
		Audit:    audit,
		Events:   publisher,
		Metrics:  m,
		Location: loc,
		Clock:    time.Now,
		Log:      log,
	}

	billing := service.NewBillingService(deps, catalog, newRand(), service.BillingConfig{
		HourlyRate:  decimal.NewFromFloat(cfg.Clinic.HourlyRate),
		FallbackMin: cfg.Pricing.FallbackMin,
		FallbackMax: cfg.Pricing.FallbackMax,
	})
	registrations := service.NewRegistrationService(deps, billing)
	consultations := service.NewConsultationService(deps, billing, newRand())
	ledger := service.NewLedgerService(deps)
	admissions := service.NewAdmissionService(deps, ledger, billing)
	nursingSvc := service.NewNursingService(deps, ledger)
	payments := service.NewPaymentService(deps, billing, registrations)
	patients := service.NewPatientService(deps, registrations)

	router := v1.NewRouter(v1.RouterDeps{
		Config:  cfg,
		JWT:     auth.NewJWTManager(cfg.JWT),
		Metrics: m,
		Tracer:  tracer.Tracer(),
		Log:     log,
		Ready:   be.ready,

		Patients:      v1.NewPatientHandler(patients, log),
		Registrations: v1.NewRegistrationHandler(registrations, consultations, log),
		Admissions:    v1.NewAdmissionHandler(admissions, ledger, time.Now, log),
		Nursing:       v1.NewNursingHandler(nursingSvc, loc, log),
		Billing:       v1.NewBillingHandler(billing, payments, log),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// newCatalog uses the remote catalog when configured; otherwise every exam
// falls back to a drawn price.
func newCatalog(cfg config.PricingConfig, rc config.RedisConfig, log *zap.Logger) (pricing.Catalog, func()) {
	if cfg.BaseURL == "" {
		log.Info("exam price catalog not configured, using fallback prices")
		return pricing.NewStaticCatalog(nil), func() {}
	}
	cache := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	return pricing.NewHTTPCatalog(cfg, cache, log), func() { _ = cache.Close() }
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func pinger(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}
