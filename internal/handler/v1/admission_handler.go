package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdmissionHandler struct {
	admissions *service.AdmissionService
	ledger     *service.LedgerService
	clock      func() time.Time
	log        *zap.Logger
}

func NewAdmissionHandler(admissions *service.AdmissionService, ledger *service.LedgerService, clock func() time.Time, log *zap.Logger) *AdmissionHandler {
	if clock == nil {
		clock = time.Now
	}
	return &AdmissionHandler{admissions: admissions, ledger: ledger, clock: clock, log: log}
}

func (h *AdmissionHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/admissions", h.admit)
	rg.POST("/admissions/:id/discharge", h.discharge)
	rg.GET("/doctor/inpatients", h.doctorInpatients)
	rg.GET("/inpatients", h.activeInpatients)

	rg.GET("/wards", h.wardOverview)
	rg.GET("/wards/:id/on-duty", h.onDuty)
}

type admitRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	WardID         uuid.UUID `json:"ward_id" binding:"required"`
}

func (h *AdmissionHandler) admit(c *gin.Context) {
	var req admitRequest
	if !bindJSON(c, &req) {
		return
	}
	hosp, err := h.admissions.Admit(c.Request.Context(), actorFrom(c), &admission.AdmitCommand{
		RegistrationID: req.RegistrationID,
		WardID:         req.WardID,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, hosp)
}

func (h *AdmissionHandler) discharge(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.admissions.Discharge(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *AdmissionHandler) doctorInpatients(c *gin.Context) {
	res, err := h.admissions.DoctorInpatients(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *AdmissionHandler) activeInpatients(c *gin.Context) {
	wardIDs, ok := parseQueryUUIDs(c, "ward_id")
	if !ok {
		return
	}
	res, err := h.admissions.ActiveInpatients(c.Request.Context(), actorFrom(c), wardIDs)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *AdmissionHandler) wardOverview(c *gin.Context) {
	res, err := h.ledger.WardOverview(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

// onDuty resolves the responsible nurse at ?at= (default now).
func (h *AdmissionHandler) onDuty(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	at, ok := parseQueryTime(c, "at")
	if !ok {
		return
	}
	instant := h.clock()
	if at != nil {
		instant = *at
	}

	res, err := h.ledger.ResolveOnDuty(c.Request.Context(), actorFrom(c), id, instant)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}
