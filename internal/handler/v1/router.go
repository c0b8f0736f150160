package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config  *config.Config
	JWT     *auth.JWTManager
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Log     *zap.Logger

	// Ready reports whether dependencies such as the database answer.
	Ready func() error

	Patients      *PatientHandler
	Registrations *RegistrationHandler
	Admissions    *AdmissionHandler
	Nursing       *NursingHandler
	Billing       *BillingHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(d.Log),
		Tracing(d.Tracer),
		Metrics(d.Metrics),
		AccessLog(d.Log),
		CORS(d.Config.CORS),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				d.Log.Warn("readiness check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")
	api.Use(NewRateLimiter(d.Config.RateLimit).Middleware(), Authenticate(d.JWT))

	d.Patients.Register(api)
	d.Registrations.Register(api)
	d.Admissions.Register(api)
	d.Nursing.Register(api)
	d.Billing.Register(api)

	return r
}
