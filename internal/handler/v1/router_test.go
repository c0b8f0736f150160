package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/pricing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// brokenStore fails every transaction with an error no layer classifies.
type brokenStore struct{}

func (brokenStore) WithinTx(context.Context, func(repository.Tx) error) error {
	return errors.New("connection refused")
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	jwt    *auth.JWTManager
}

func newTestServer(t *testing.T, store repository.Store) *testServer {
	t.Helper()
	log := zap.NewNop()
	m := metrics.NewCollector("carepath_router_test", prometheus.NewRegistry())

	audit := service.NewAuditService(memory.NewAuditRepository(), m, log)
	t.Cleanup(audit.Shutdown)

	deps := service.Deps{
		Store:    store,
		Audit:    audit,
		Events:   events.NopPublisher{},
		Metrics:  m,
		Location: time.UTC,
		Clock:    time.Now,
		Log:      log,
	}
	rng := rand.New(rand.NewSource(1))
	catalog := pricing.NewStaticCatalog(map[string]decimal.Decimal{"Blood Routine": decimal.NewFromInt(35)})
	billing := service.NewBillingService(deps, catalog, rng, service.BillingConfig{
		HourlyRate:  decimal.NewFromInt(80),
		FallbackMin: 50,
		FallbackMax: 300,
	})
	registrations := service.NewRegistrationService(deps, billing)
	consultations := service.NewConsultationService(deps, billing, rng)
	ledger := service.NewLedgerService(deps)
	admissions := service.NewAdmissionService(deps, ledger, billing)
	nursingSvc := service.NewNursingService(deps, ledger)
	payments := service.NewPaymentService(deps, billing, registrations)
	patients := service.NewPatientService(deps, registrations)

	cors := config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}
	cfg := &config.Config{
		App:       config.AppConfig{Name: "carepath", Environment: "test"},
		CORS:      cors,
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000, IdleTTL: time.Minute},
	}
	jwt := testJWT()

	router := NewRouter(RouterDeps{
		Config:  cfg,
		JWT:     jwt,
		Metrics: m,
		Tracer:  otel.Tracer("carepath-test"),
		Log:     log,
		Ready:   func() error { return nil },

		Patients:      NewPatientHandler(patients, log),
		Registrations: NewRegistrationHandler(registrations, consultations, log),
		Admissions:    NewAdmissionHandler(admissions, ledger, time.Now, log),
		Nursing:       NewNursingHandler(nursingSvc, time.UTC, log),
		Billing:       NewBillingHandler(billing, payments, log),
	})
	return &testServer{t: t, router: router, jwt: jwt}
}

func (s *testServer) token(claims *domain.Claims) string {
	s.t.Helper()
	claims.UserID = uuid.New()
	tok, _, err := s.jwt.Issue(claims, 0)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestRouterRegistrationFlow(t *testing.T) {
	store := memory.NewStore()
	doctor := &staff.Doctor{ID: uuid.New(), DepartmentID: uuid.New(), FirstName: "Ada", LastName: "Osei"}
	pat := &patient.Patient{ID: uuid.New(), FirstName: "Pat", LastName: "Doe", Gender: patient.GenderUnknown}
	stranger := &patient.Patient{ID: uuid.New(), FirstName: "Sal", LastName: "Roe", Gender: patient.GenderUnknown}
	store.Seed(doctor, pat, stranger)

	srv := newTestServer(t, store)
	patientTok := srv.token(&domain.Claims{Role: domain.RolePatient, PatientID: &pat.ID})
	strangerTok := srv.token(&domain.Claims{Role: domain.RolePatient, PatientID: &stranger.ID})
	adminTok := srv.token(&domain.Claims{Role: domain.RoleAdmin})

	create := gin.H{"doctor_id": doctor.ID, "category": "NORMAL", "symptoms": "cough"}

	w := srv.do(http.MethodPost, "/api/v1/registrations", patientTok, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created APIResponse[service.RegistrationResult]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	regID := created.Data.Registration.ID
	require.NotEqual(t, uuid.Nil, regID)

	w = srv.do(http.MethodPost, "/api/v1/registrations", patientTok, create)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT_ACTIVE_VISIT", errorCodeOf(t, w))

	w = srv.do(http.MethodPost, "/api/v1/registrations/"+regID.String()+"/cancel", strangerTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCodeOf(t, w))

	w = srv.do(http.MethodPost, "/api/v1/registrations", strangerTok, gin.H{"doctor_id": uuid.New(), "category": "NORMAL"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/patients/"+uuid.NewString(), adminTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PATIENT_NOT_FOUND", errorCodeOf(t, w))

	w = srv.do(http.MethodPost, "/api/v1/registrations", adminTok, gin.H{"doctor_id": doctor.ID, "category": "NORMAL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var invalid ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invalid))
	assert.Equal(t, "VALIDATION_FAILED", invalid.Code)
	assert.Contains(t, invalid.Fields, "patient_id is required")

	w = srv.do(http.MethodPost, "/api/v1/registrations", strangerTok, gin.H{"doctor_id": doctor.ID, "category": "VIP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CATEGORY", errorCodeOf(t, w))

	w = srv.do(http.MethodGet, "/api/v1/patients/not-a-uuid", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodPost, "/api/v1/registrations/"+regID.String()+"/cancel", patientTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(http.MethodPost, "/api/v1/registrations/"+regID.String()+"/cancel", patientTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterReadPaths(t *testing.T) {
	store := memory.NewStore()
	doctor := &staff.Doctor{ID: uuid.New(), DepartmentID: uuid.New(), FirstName: "Ada"}
	nurse := &staff.Nurse{ID: uuid.New(), FirstName: "Sam"}
	ward := &admission.Ward{ID: uuid.New(), Name: "General", WardType: "general", BedCount: 2}
	pat := &patient.Patient{ID: uuid.New(), FirstName: "Pat", LastName: "Doe", Gender: patient.GenderUnknown}
	store.Seed(doctor, nurse, ward, pat)

	srv := newTestServer(t, store)
	patientTok := srv.token(&domain.Claims{Role: domain.RolePatient, PatientID: &pat.ID})
	doctorTok := srv.token(&domain.Claims{Role: domain.RoleDoctor, StaffID: &doctor.ID})
	nurseTok := srv.token(&domain.Claims{Role: domain.RoleNurse, StaffID: &nurse.ID})

	w := srv.do(http.MethodGet, "/api/v1/patients/"+pat.ID.String()+"/records", patientTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = srv.do(http.MethodGet, "/api/v1/patients/"+pat.ID.String()+"/examinations", doctorTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/doctor/patients/"+pat.ID.String()+"/history?range=7d", doctorTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(http.MethodGet, "/api/v1/doctor/patients/"+pat.ID.String()+"/history?range=1y", doctorTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = srv.do(http.MethodGet, "/api/v1/doctor/patients/"+pat.ID.String()+"/history?range=current&current_id=x", doctorTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/wards/"+ward.ID.String()+"/records", nurseTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = srv.do(http.MethodGet, "/api/v1/wards/"+uuid.NewString()+"/records", nurseTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterHidesUnclassifiedErrors(t *testing.T) {
	srv := newTestServer(t, brokenStore{})
	adminTok := srv.token(&domain.Claims{Role: domain.RoleAdmin})

	w := srv.do(http.MethodGet, "/api/v1/patients/"+uuid.NewString(), adminTok, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", errorCodeOf(t, w))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRouterRequiresToken(t *testing.T) {
	srv := newTestServer(t, memory.NewStore())

	w := srv.do(http.MethodGet, "/api/v1/patients/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
