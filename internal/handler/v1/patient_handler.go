package v1

import (
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PatientHandler struct {
	patients *service.PatientService
	log      *zap.Logger
}

func NewPatientHandler(patients *service.PatientService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, log: log}
}

func (h *PatientHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/patients/:id", h.profile)
	rg.GET("/patients/:id/records", h.records)
	rg.GET("/patients/:id/examinations", h.examinations)
}

func (h *PatientHandler) profile(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.patients.Profile(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *PatientHandler) records(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.patients.MedicalRecords(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *PatientHandler) examinations(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.patients.Examinations(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}
