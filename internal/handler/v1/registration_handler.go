package v1

import (
	"net/http"
	"time"

	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegistrationHandler struct {
	registrations *service.RegistrationService
	consultations *service.ConsultationService
	log           *zap.Logger
}

func NewRegistrationHandler(registrations *service.RegistrationService, consultations *service.ConsultationService, log *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, consultations: consultations, log: log}
}

func (h *RegistrationHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/registrations", h.create)
	rg.GET("/registrations/:id", h.detail)
	rg.POST("/registrations/:id/cancel", h.cancel)
	rg.POST("/registrations/:id/start", h.start)
	rg.POST("/registrations/:id/finish", h.finish)
	rg.PUT("/registrations/:id/record", h.saveRecord)
	rg.POST("/registrations/:id/examinations", h.createExamination)
	rg.PUT("/registrations/:id/prescription", h.savePrescription)

	rg.GET("/patients/:id/registrations", h.listForPatient)
	rg.GET("/doctor/queue", h.doctorQueue)
	rg.GET("/doctor/patients/:id/history", h.doctorHistory)
}

type createRegistrationRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Category  string    `json:"category" binding:"required"`
	// YYYY-MM-DD; empty means today.
	VisitDate string `json:"visit_date"`
	Symptoms  string `json:"symptoms" binding:"max=2000"`
}

func (h *RegistrationHandler) create(c *gin.Context) {
	var req createRegistrationRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &registration.CreateRegistrationCommand{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Category:  registration.Category(req.Category),
		Symptoms:  req.Symptoms,
	}
	if req.VisitDate != "" {
		d, err := time.Parse(dateLayout, req.VisitDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid visit_date: expected YYYY-MM-DD")
			return
		}
		cmd.VisitDate = &d
	}

	res, err := h.registrations.Create(c.Request.Context(), actorFrom(c), cmd)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, res)
}

func (h *RegistrationHandler) detail(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.registrations.Detail(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.registrations.Cancel(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) start(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.registrations.Start(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) finish(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.registrations.Finish(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) listForPatient(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.registrations.ListForPatient(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) doctorQueue(c *gin.Context) {
	date, ok := parseQueryDate(c, "date", time.UTC)
	if !ok {
		return
	}
	res, err := h.registrations.DoctorQueue(c.Request.Context(), actorFrom(c), date)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *RegistrationHandler) doctorHistory(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	current, ok := parseQueryUUID(c, "current_id")
	if !ok {
		return
	}
	res, err := h.registrations.DoctorHistory(c.Request.Context(), actorFrom(c), id, c.DefaultQuery("range", service.HistoryCurrent), current)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

type saveRecordRequest struct {
	Complaint  string     `json:"complaint" binding:"max=4000"`
	Diagnosis  string     `json:"diagnosis" binding:"max=4000"`
	Suggestion string     `json:"suggestion" binding:"max=4000"`
	Vitals     *mr.Vitals `json:"vitals"`
}

func (h *RegistrationHandler) saveRecord(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req saveRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.consultations.SaveRecord(c.Request.Context(), actorFrom(c), &mr.SaveRecordCommand{
		RegistrationID: id,
		Complaint:      req.Complaint,
		Diagnosis:      req.Diagnosis,
		Suggestion:     req.Suggestion,
		Vitals:         req.Vitals,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, rec)
}

type createExaminationRequest struct {
	ExamType string `json:"exam_type" binding:"required,max=100"`
}

func (h *RegistrationHandler) createExamination(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req createExaminationRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.consultations.CreateExamination(c.Request.Context(), actorFrom(c), &mr.CreateExaminationCommand{
		RegistrationID: id,
		ExamType:       req.ExamType,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, res)
}

type prescriptionItemRequest struct {
	MedicineID uuid.UUID `json:"medicine_id" binding:"required"`
	Quantity   int       `json:"quantity"`
	Usage      string    `json:"usage" binding:"max=255"`
}

type savePrescriptionRequest struct {
	Items []prescriptionItemRequest `json:"items" binding:"dive"`
}

func (h *RegistrationHandler) savePrescription(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req savePrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]prescription.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, prescription.Item{MedicineID: it.MedicineID, Quantity: it.Quantity, Usage: it.Usage})
	}

	view, err := h.consultations.SavePrescription(c.Request.Context(), actorFrom(c), &prescription.SavePrescriptionCommand{
		RegistrationID: id,
		Items:          items,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, view)
}
