package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NursingHandler struct {
	nursing *service.NursingService
	loc     *time.Location
	log     *zap.Logger
}

func NewNursingHandler(nursing *service.NursingService, loc *time.Location, log *zap.Logger) *NursingHandler {
	return &NursingHandler{nursing: nursing, loc: loc, log: log}
}

func (h *NursingHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/schedules", h.listSchedules)
	rg.PUT("/schedules", h.upsertSchedule)
	rg.POST("/schedules/auto", h.autoSchedule)
	rg.DELETE("/schedules/:id", h.deleteSchedule)

	rg.POST("/admissions/:id/tasks", h.planTasks)
	rg.POST("/tasks/:id/complete", h.completeTask)
	rg.GET("/wards/:id/tasks", h.wardTasks)
	rg.GET("/wards/:id/records", h.wardRecords)
	rg.GET("/nurse/tasks", h.nurseDayTasks)
}

type slotRequest struct {
	WardID *uuid.UUID `json:"ward_id"`
	Start  *time.Time `json:"start"`
	End    *time.Time `json:"end"`
}

type upsertScheduleRequest struct {
	WardID   uuid.UUID   `json:"ward_id" binding:"required"`
	Start    time.Time   `json:"start" binding:"required"`
	End      time.Time   `json:"end" binding:"required"`
	NurseIDs []uuid.UUID `json:"nurse_ids"`
	// Source is the slot being moved; omitted parts default to the target's.
	Source *slotRequest `json:"source"`
}

func (h *NursingHandler) upsertSchedule(c *gin.Context) {
	var req upsertScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &nursing.UpsertScheduleCommand{
		WardID:   req.WardID,
		Start:    req.Start,
		End:      req.End,
		NurseIDs: req.NurseIDs,
	}
	if req.Source != nil {
		cmd.SourceWardID = req.Source.WardID
		cmd.SourceStart = req.Source.Start
		cmd.SourceEnd = req.Source.End
	}

	res, err := h.nursing.UpsertSchedule(c.Request.Context(), actorFrom(c), cmd)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

type autoScheduleRequest struct {
	Start      *time.Time  `json:"start"`
	ShiftHours int         `json:"shift_hours"`
	ShiftCount int         `json:"shift_count"`
	WardIDs    []uuid.UUID `json:"ward_ids"`
}

func (h *NursingHandler) autoSchedule(c *gin.Context) {
	var req autoScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.nursing.AutoSchedule(c.Request.Context(), actorFrom(c), &nursing.AutoScheduleCommand{
		Start:      req.Start,
		ShiftHours: req.ShiftHours,
		ShiftCount: req.ShiftCount,
		WardIDs:    req.WardIDs,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, res)
}

func (h *NursingHandler) deleteSchedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.nursing.DeleteSchedule(c.Request.Context(), actorFrom(c), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NursingHandler) listSchedules(c *gin.Context) {
	q := &nursing.ListSchedulesQuery{}
	var ok bool
	if q.WardID, ok = parseQueryUUID(c, "ward_id"); !ok {
		return
	}
	if q.NurseID, ok = parseQueryUUID(c, "nurse_id"); !ok {
		return
	}
	if q.From, ok = parseQueryTime(c, "from"); !ok {
		return
	}
	if q.To, ok = parseQueryTime(c, "to"); !ok {
		return
	}

	res, err := h.nursing.ListSchedules(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

type planMedicineRequest struct {
	MedicineID uuid.UUID `json:"medicine_id" binding:"required"`
	Quantity   int       `json:"quantity"`
	Usage      string    `json:"usage" binding:"max=255"`
}

type planTasksRequest struct {
	Type         string                `json:"type" binding:"required"`
	Start        time.Time             `json:"start" binding:"required"`
	IntervalDays *int                  `json:"interval_days"`
	TimesPerDay  *int                  `json:"times_per_day"`
	DurationDays int                   `json:"duration_days"`
	Detail       string                `json:"detail" binding:"max=2000"`
	Medicines    []planMedicineRequest `json:"medicines" binding:"dive"`
}

func (h *NursingHandler) planTasks(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req planTasksRequest
	if !bindJSON(c, &req) {
		return
	}

	plan := &nursing.Plan{
		HospitalizationID: id,
		Type:              nursing.TaskType(req.Type),
		Start:             req.Start,
		IntervalDays:      req.IntervalDays,
		TimesPerDay:       req.TimesPerDay,
		DurationDays:      req.DurationDays,
		Detail:            req.Detail,
	}
	for _, m := range req.Medicines {
		plan.Medicines = append(plan.Medicines, nursing.PlanMedicine{MedicineID: m.MedicineID, Quantity: m.Quantity, Usage: m.Usage})
	}

	tasks, err := h.nursing.PlanTasks(c.Request.Context(), actorFrom(c), plan)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondCreated(c, tasks)
}

func (h *NursingHandler) completeTask(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.nursing.CompleteTask(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *NursingHandler) wardTasks(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	from, ok := parseQueryTime(c, "from")
	if !ok {
		return
	}
	to, ok := parseQueryTime(c, "to")
	if !ok {
		return
	}

	res, err := h.nursing.WardTasks(c.Request.Context(), actorFrom(c), id, from, to)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *NursingHandler) wardRecords(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.nursing.WardRecords(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}

func (h *NursingHandler) nurseDayTasks(c *gin.Context) {
	day, ok := parseQueryDate(c, "day", h.loc)
	if !ok {
		return
	}
	res, err := h.nursing.NurseDayTasks(c.Request.Context(), actorFrom(c), day)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respondOK(c, res)
}
