package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type NursingService struct {
	Deps
	ledger *LedgerService
}

func NewNursingService(deps Deps, ledger *LedgerService) *NursingService {
	return &NursingService{Deps: deps, ledger: ledger}
}

// UpsertSchedule replaces one ward slot with a row per nurse. The replaced
// slot is the source slot when given, otherwise the target itself. An empty
// nurse list clears the slot.
func (s *NursingService) UpsertSchedule(ctx context.Context, actor domain.Actor, cmd *nursing.UpsertScheduleCommand) (out []*nursing.Schedule, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionUpdate, "nurse_schedule", cmd.WardID, err) }()

	if !cmd.End.After(cmd.Start) {
		return nil, nursing.ErrInvalidWindow
	}

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireHeadNurse(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := tx.Wards().GetWard(ctx, cmd.WardID); err != nil {
			return err
		}

		nurseIDs := uniqueIDs(cmd.NurseIDs)
		nurses, err := tx.Staff().GetNurses(ctx, nurseIDs)
		if err != nil {
			return err
		}
		for _, id := range nurseIDs {
			if _, ok := nurses[id]; !ok {
				return fmt.Errorf("nurse %s: %w", id, staff.ErrNurseNotFound)
			}
		}

		srcWard, srcStart, srcEnd := cmd.WardID, cmd.Start, cmd.End
		if cmd.SourceWardID != nil {
			srcWard = *cmd.SourceWardID
		}
		if cmd.SourceStart != nil {
			srcStart = *cmd.SourceStart
		}
		if cmd.SourceEnd != nil {
			srcEnd = *cmd.SourceEnd
		}
		if _, err := tx.Schedules().DeleteSlot(ctx, srcWard, srcStart, srcEnd); err != nil {
			return fmt.Errorf("clearing schedule slot: %w", err)
		}

		out = make([]*nursing.Schedule, 0, len(nurseIDs))
		for _, id := range nurseIDs {
			out = append(out, &nursing.Schedule{
				ID:        uuid.New(),
				NurseID:   id,
				WardID:    cmd.WardID,
				StartTime: cmd.Start,
				EndTime:   cmd.End,
			})
		}
		if len(out) == 0 {
			return nil
		}
		return tx.Schedules().Create(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *NursingService) DeleteSchedule(ctx context.Context, actor domain.Actor, id uuid.UUID) (err error) {
	defer func() { s.audit(ctx, actor, domain.ActionDelete, "nurse_schedule", id, err) }()

	return s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireHeadNurse(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := tx.Schedules().GetByID(ctx, id); err != nil {
			return err
		}
		return tx.Schedules().Delete(ctx, id)
	})
}

func (s *NursingService) ListSchedules(ctx context.Context, actor domain.Actor, q *nursing.ListSchedulesQuery) ([]*nursing.Schedule, error) {
	if actor.Role == domain.RolePatient {
		return nil, ErrForbidden
	}
	var out []*nursing.Schedule
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Schedules().List(ctx, q)
		return err
	})
	return out, err
}

// AutoSchedule lays consecutive shifts over every ward with inpatients and
// assigns nurses round-robin. Slots already starting inside the generated
// window are replaced.
func (s *NursingService) AutoSchedule(ctx context.Context, actor domain.Actor, cmd *nursing.AutoScheduleCommand) (out []*nursing.Schedule, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionCreate, "nurse_schedule", uuid.Nil, err) }()

	hours, count := cmd.ShiftHours, cmd.ShiftCount
	if hours == 0 {
		hours = nursing.DefaultShiftHours
	}
	if count == 0 {
		count = nursing.DefaultShiftCount
	}
	if hours < 1 || hours > nursing.MaxShiftHours || count < 1 || count > nursing.MaxShiftCount {
		return nil, nursing.ErrInvalidShift
	}
	start := s.now()
	if cmd.Start != nil {
		start = *cmd.Start
	}
	shift := time.Duration(hours) * time.Hour
	end := start.Add(shift * time.Duration(count))

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := requireHeadNurse(ctx, tx, actor); err != nil {
			return err
		}

		wardIDs, err := s.schedulableWards(ctx, tx, cmd.WardIDs)
		if err != nil {
			return err
		}
		if len(wardIDs) == 0 {
			return nursing.ErrNoSchedulableWards
		}

		nurses, err := tx.Staff().ListNurses(ctx, staff.StaffNursesOnly)
		if err != nil {
			return err
		}
		if len(nurses) == 0 {
			if nurses, err = tx.Staff().ListNurses(ctx, staff.AllNurses); err != nil {
				return err
			}
		}
		if len(nurses) == 0 {
			return nursing.ErrNoNurseAvailable
		}

		if _, err := tx.Schedules().DeleteStartingWithin(ctx, wardIDs, start, end); err != nil {
			return fmt.Errorf("clearing generated window: %w", err)
		}

		out = make([]*nursing.Schedule, 0, count*len(wardIDs))
		next := 0
		for i := 0; i < count; i++ {
			from := start.Add(shift * time.Duration(i))
			for _, wardID := range wardIDs {
				out = append(out, &nursing.Schedule{
					ID:        uuid.New(),
					NurseID:   nurses[next%len(nurses)].ID,
					WardID:    wardID,
					StartTime: from,
					EndTime:   from.Add(shift),
				})
				next++
			}
		}
		return tx.Schedules().Create(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// schedulableWards returns the wards with active admissions in id order,
// restricted to filter when it is non-empty.
func (s *NursingService) schedulableWards(ctx context.Context, tx repository.Tx, filter []uuid.UUID) ([]uuid.UUID, error) {
	counts, err := tx.Admissions().CountActiveByWard(ctx)
	if err != nil {
		return nil, err
	}
	allowed := make(map[uuid.UUID]bool, len(filter))
	for _, id := range filter {
		allowed[id] = true
	}

	ids := make([]uuid.UUID, 0, len(counts))
	for id, n := range counts {
		if n == 0 || (len(filter) > 0 && !allowed[id]) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

// PlanTasks expands a doctor's plan into nurse tasks, each assigned to the
// nurse on duty at its time and carrying a frozen medicine snapshot.
func (s *NursingService) PlanTasks(ctx context.Context, actor domain.Actor, plan *nursing.Plan) (tasks []*nursing.Task, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionCreate, "nurse_task", plan.HospitalizationID, err) }()

	if fields := plan.Validate(); len(fields) > 0 {
		return nil, validationError(fields...)
	}
	now := s.now()
	if plan.Start.Before(now) {
		return nil, nursing.ErrPlanStartsInPast
	}
	occurrences, err := plan.Occurrences(s.Location)
	if err != nil {
		return nil, err
	}

	var patientID uuid.UUID
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		h, err := tx.Admissions().GetByID(ctx, plan.HospitalizationID)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, h.DoctorID); err != nil {
			return err
		}
		if !h.IsActive() {
			return admission.ErrNotActive
		}
		patientID = h.PatientID

		medicines, err := tx.Medicines().GetMany(ctx, plan.MedicineIDs())
		if err != nil {
			return err
		}
		snap, err := nursing.NewSnapshot(plan.Medicines, medicines)
		if err != nil {
			return err
		}

		tasks = make([]*nursing.Task, 0, len(occurrences))
		for _, at := range occurrences {
			nurse, err := s.ledger.OnDuty(ctx, tx, h.WardID, at)
			if err != nil {
				return err
			}
			t := &nursing.Task{
				ID:                uuid.New(),
				HospitalizationID: h.ID,
				NurseID:           nurse.ID,
				Type:              plan.Type,
				ScheduledAt:       at,
				Status:            nursing.TaskPending,
				Detail:            plan.Detail,
				ServiceFee:        plan.Type.ServiceFee(),
				Medicines:         datatypes.NewJSONType(snap),
			}
			tasks = append(tasks, t)
		}
		return tx.Tasks().CreateBatch(ctx, tasks)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.TasksPlannedTotal.WithLabelValues(string(plan.Type)).Add(float64(len(tasks)))
	s.publish(ctx, domain.NewEvent(domain.EventTasksPlanned, plan.HospitalizationID, patientID, now, map[string]any{
		"type":  plan.Type,
		"count": len(tasks),
	}))
	return tasks, nil
}

type CompletionResult struct {
	Task    *nursing.Task             `json:"task"`
	Outcome nursing.CompletionOutcome `json:"outcome"`
}

// CompleteTask records that the calling nurse carried out a task. Only the
// nurse on duty for the task's time, or a head nurse, may complete it.
func (s *NursingService) CompleteTask(ctx context.Context, actor domain.Actor, id uuid.UUID) (res *CompletionResult, err error) {
	defer func() { s.audit(ctx, actor, domain.ActionTransition, "nurse_task", id, err) }()

	if actor.Role != domain.RoleNurse || actor.StaffID == nil {
		return nil, ErrForbidden
	}

	now := s.now()
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		nurse, err := tx.Staff().GetNurse(ctx, *actor.StaffID)
		if err != nil {
			return ErrForbidden
		}
		task, err := tx.Tasks().Lock(ctx, id)
		if err != nil {
			return err
		}

		if !nurse.IsHeadNurse {
			h, err := tx.Admissions().GetByID(ctx, task.HospitalizationID)
			if err != nil {
				return err
			}
			onDuty, err := s.ledger.OnDuty(ctx, tx, h.WardID, task.ScheduledAt)
			if err != nil {
				return err
			}
			if onDuty.ID != nurse.ID {
				return ErrForbidden
			}
		}

		outcome := task.Complete(nurse.ID, now)
		res = &CompletionResult{Task: task, Outcome: outcome}
		if outcome == nursing.OutcomeCompleted || outcome == nursing.OutcomeExpired {
			return tx.Tasks().Update(ctx, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.TaskCompletionsTotal.WithLabelValues(string(res.Outcome)).Inc()
	switch res.Outcome {
	case nursing.OutcomeCompleted:
		s.publish(ctx, domain.NewEvent(domain.EventTaskCompleted, res.Task.ID, uuid.Nil, now, map[string]any{
			"hospitalization_id": res.Task.HospitalizationID,
			"nurse_id":           res.Task.NurseID,
		}))
	case nursing.OutcomeExpired:
		s.Metrics.ExpiredTotal.WithLabelValues("task").Inc()
	}
	return res, nil
}

// SweepExpired expires the pending tasks among ids whose time has passed.
func (s *NursingService) SweepExpired(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		n, err = tx.Tasks().ExpireOverdue(ctx, ids, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Metrics.ExpiredTotal.WithLabelValues("task").Add(float64(n))
	}
	return n, nil
}

// WardTasks lists the tasks of the ward's active admissions within [from, to).
func (s *NursingService) WardTasks(ctx context.Context, actor domain.Actor, wardID uuid.UUID, from, to *time.Time) ([]*nursing.Task, error) {
	if actor.Role == domain.RolePatient || actor.Role == domain.RolePharmacist {
		return nil, ErrForbidden
	}

	var tasks []*nursing.Task
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Wards().GetWard(ctx, wardID); err != nil {
			return err
		}
		active, err := tx.Admissions().ListActive(ctx, &admission.ListActiveQuery{WardIDs: []uuid.UUID{wardID}})
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(active))
		for _, h := range active {
			ids = append(ids, h.ID)
		}
		tasks, err = tx.Tasks().List(ctx, &nursing.ListTasksQuery{HospitalizationIDs: ids, From: from, To: to})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sweepListed(ctx, tasks)
	return tasks, nil
}

type WardRecord struct {
	WardID            uuid.UUID `json:"ward_id"`
	WardType          string    `json:"ward_type"`
	HospitalizationID uuid.UUID `json:"hospitalization_id"`
	RegistrationID    uuid.UUID `json:"registration_id"`
	RecordID          uuid.UUID `json:"record_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	PatientName       string    `json:"patient_name"`
	Complaint         string    `json:"complaint"`
	Diagnosis         string    `json:"diagnosis"`
	Suggestion        string    `json:"suggestion"`
	InDate            time.Time `json:"in_date"`
}

// WardRecords lists the ward's inpatients with their consultation notes.
// Head nurses and admins see any ward; other nurses only wards they are rostered on.
func (s *NursingService) WardRecords(ctx context.Context, actor domain.Actor, wardID uuid.UUID) (out []WardRecord, err error) {
	if !actor.IsAdmin() && (actor.Role != domain.RoleNurse || actor.StaffID == nil) {
		return nil, ErrForbidden
	}
	defer func() { s.audit(ctx, actor, domain.ActionRead, "ward_records", wardID, err) }()

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		ward, err := tx.Wards().GetWard(ctx, wardID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if err := s.requireRostered(ctx, tx, *actor.StaffID, wardID); err != nil {
				return err
			}
		}

		active, err := tx.Admissions().ListActive(ctx, &admission.ListActiveQuery{WardIDs: []uuid.UUID{wardID}})
		if err != nil {
			return err
		}
		regIDs := make([]uuid.UUID, 0, len(active))
		patientIDs := make([]uuid.UUID, 0, len(active))
		for _, h := range active {
			regIDs = append(regIDs, h.RegistrationID)
			patientIDs = append(patientIDs, h.PatientID)
		}
		records, err := tx.Records().ListByRegistrations(ctx, regIDs)
		if err != nil {
			return err
		}
		patients, err := tx.Patients().GetMany(ctx, patientIDs)
		if err != nil {
			return err
		}

		out = make([]WardRecord, 0, len(active))
		for _, h := range active {
			row := WardRecord{
				WardID:            ward.ID,
				WardType:          ward.WardType,
				HospitalizationID: h.ID,
				RegistrationID:    h.RegistrationID,
				RecordID:          h.RecordID,
				PatientID:         h.PatientID,
				InDate:            h.InDate,
			}
			if p, ok := patients[h.PatientID]; ok {
				row.PatientName = p.FullName()
			}
			if rec, ok := records[h.RegistrationID]; ok {
				row.Complaint = rec.Complaint
				row.Diagnosis = rec.Diagnosis
				row.Suggestion = rec.Suggestion
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// requireRostered passes head nurses, and other nurses holding any schedule on the ward.
func (s *NursingService) requireRostered(ctx context.Context, tx repository.Tx, nurseID, wardID uuid.UUID) error {
	n, err := tx.Staff().GetNurse(ctx, nurseID)
	if errors.Is(err, staff.ErrNurseNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if n.IsHeadNurse {
		return nil
	}
	rows, err := tx.Schedules().List(ctx, &nursing.ListSchedulesQuery{WardID: &wardID, NurseID: &nurseID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrForbidden
	}
	return nil
}

// NurseDayTasks lists the calling nurse's tasks on one clinic day (default today).
func (s *NursingService) NurseDayTasks(ctx context.Context, actor domain.Actor, day *time.Time) ([]*nursing.Task, error) {
	if actor.Role != domain.RoleNurse || actor.StaffID == nil {
		return nil, ErrForbidden
	}
	nurseID := *actor.StaffID

	ref := s.now()
	if day != nil {
		ref = *day
	}
	y, m, d := ref.In(s.Location).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.Location)
	to := from.AddDate(0, 0, 1)

	var tasks []*nursing.Task
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		tasks, err = tx.Tasks().List(ctx, &nursing.ListTasksQuery{NurseID: &nurseID, From: &from, To: &to})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.sweepListed(ctx, tasks)
	return tasks, nil
}

// sweepListed expires overdue tasks among a listing and reflects it in the
// returned rows. A failed sweep leaves the listing as read.
func (s *NursingService) sweepListed(ctx context.Context, tasks []*nursing.Task) {
	now := s.now()
	var overdue []uuid.UUID
	for _, t := range tasks {
		if t.IsOverdue(now) {
			overdue = append(overdue, t.ID)
		}
	}
	if len(overdue) == 0 {
		return
	}
	if _, err := s.SweepExpired(ctx, overdue); err != nil {
		s.Log.Warn("task expiry sweep failed", zap.Int("tasks", len(overdue)), zap.Error(err))
		return
	}
	for _, t := range tasks {
		if t.IsOverdue(now) {
			t.Status = nursing.TaskExpired
		}
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
