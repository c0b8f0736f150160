package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func (h *harness) schedule(start, end time.Time, nurses ...*staff.Nurse) []*nursing.Schedule {
	h.t.Helper()
	ids := make([]uuid.UUID, 0, len(nurses))
	for _, n := range nurses {
		ids = append(ids, n.ID)
	}
	out, err := h.nursing.UpsertSchedule(h.ctx, nurseActor(h.headNurse), &nursing.UpsertScheduleCommand{
		WardID:   h.ward.ID,
		Start:    start,
		End:      end,
		NurseIDs: ids,
	})
	require.NoError(h.t, err)
	return out
}

func (h *harness) onDuty(at time.Time) uuid.UUID {
	h.t.Helper()
	view, err := h.ledger.ResolveOnDuty(h.ctx, h.admin(), h.ward.ID, at)
	require.NoError(h.t, err)
	return view.Nurse.ID
}

func TestOnDutyFallbacks(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, h.headNurse.ID, h.onDuty(t0))

	h.schedule(t0, t0.Add(8*time.Hour), h.otherNurse, h.nurse)
	assert.Equal(t, h.nurse.ID, h.onDuty(t0.Add(time.Hour)))

	// Outside every window the latest ending schedule answers.
	assert.Equal(t, h.nurse.ID, h.onDuty(t0.Add(12*time.Hour)))

	h.schedule(t0.Add(2*time.Hour), t0.Add(6*time.Hour), h.otherNurse)
	assert.Equal(t, h.otherNurse.ID, h.onDuty(t0.Add(3*time.Hour)))
	// The short window still covers its own end.
	assert.Equal(t, h.otherNurse.ID, h.onDuty(t0.Add(6*time.Hour)))
	assert.Equal(t, h.nurse.ID, h.onDuty(t0.Add(6*time.Hour+time.Second)))

	h.schedule(t0, t0.Add(8*time.Hour), h.headNurse, h.nurse)
	assert.Equal(t, h.headNurse.ID, h.onDuty(t0.Add(3*time.Hour)))
}

func TestOnDutyAtShiftHandover(t *testing.T) {
	h := newHarness(t)
	h.schedule(t0, t0.Add(8*time.Hour), h.headNurse)
	h.schedule(t0.Add(8*time.Hour), t0.Add(16*time.Hour), h.nurse)

	// Both shifts cover the handover; the head nurse ranks first.
	assert.Equal(t, h.headNurse.ID, h.onDuty(t0.Add(8*time.Hour)))
	assert.Equal(t, h.nurse.ID, h.onDuty(t0.Add(8*time.Hour+time.Second)))
	assert.Equal(t, h.nurse.ID, h.onDuty(t0.Add(16*time.Hour)))
}

func TestResolveOnDutyChecks(t *testing.T) {
	h := newHarness(t)
	w := h.newWard(1)

	view, err := h.ledger.ResolveOnDuty(h.ctx, h.admin(), uuid.New(), t0)
	assert.Nil(t, view)
	assert.True(t, errors.Is(err, admission.ErrWardNotFound))

	_, err = h.ledger.ResolveOnDuty(h.ctx, patientActor(uuid.New()), w.ID, t0)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestUpsertScheduleRequiresHeadNurse(t *testing.T) {
	h := newHarness(t)

	_, err := h.nursing.UpsertSchedule(h.ctx, nurseActor(h.nurse), &nursing.UpsertScheduleCommand{
		WardID: h.ward.ID, Start: t0, End: t0.Add(time.Hour), NurseIDs: []uuid.UUID{h.nurse.ID},
	})
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = h.nursing.UpsertSchedule(h.ctx, nurseActor(h.headNurse), &nursing.UpsertScheduleCommand{
		WardID: h.ward.ID, Start: t0, End: t0, NurseIDs: []uuid.UUID{h.nurse.ID},
	})
	assert.True(t, errors.Is(err, nursing.ErrInvalidWindow))

	_, err = h.nursing.UpsertSchedule(h.ctx, nurseActor(h.headNurse), &nursing.UpsertScheduleCommand{
		WardID: h.ward.ID, Start: t0, End: t0.Add(time.Hour), NurseIDs: []uuid.UUID{uuid.New()},
	})
	assert.True(t, errors.Is(err, staff.ErrNurseNotFound))
}

func TestUpsertScheduleMovesSourceSlot(t *testing.T) {
	h := newHarness(t)
	h.schedule(t0, t0.Add(8*time.Hour), h.nurse, h.otherNurse)

	srcStart, srcEnd := t0, t0.Add(8*time.Hour)
	_, err := h.nursing.UpsertSchedule(h.ctx, nurseActor(h.headNurse), &nursing.UpsertScheduleCommand{
		WardID:      h.ward.ID,
		Start:       t0.Add(8 * time.Hour),
		End:         t0.Add(16 * time.Hour),
		NurseIDs:    []uuid.UUID{h.nurse.ID},
		SourceStart: &srcStart,
		SourceEnd:   &srcEnd,
	})
	require.NoError(t, err)

	wardID := h.ward.ID
	rows, err := h.nursing.ListSchedules(h.ctx, h.admin(), &nursing.ListSchedulesQuery{WardID: &wardID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, t0.Add(8*time.Hour), rows[0].StartTime)

	// An empty nurse list clears the slot.
	h.schedule(t0.Add(8*time.Hour), t0.Add(16*time.Hour))
	rows, err = h.nursing.ListSchedules(h.ctx, h.admin(), &nursing.ListSchedulesQuery{WardID: &wardID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAutoScheduleRoundRobin(t *testing.T) {
	h := newHarness(t)

	_, err := h.nursing.AutoSchedule(h.ctx, nurseActor(h.headNurse), &nursing.AutoScheduleCommand{})
	assert.True(t, errors.Is(err, nursing.ErrNoSchedulableWards))

	p := h.newPatient()
	h.admit(h.startVisit(p.ID).ID, h.ward.ID)

	_, err = h.nursing.AutoSchedule(h.ctx, nurseActor(h.headNurse), &nursing.AutoScheduleCommand{ShiftHours: 25})
	assert.True(t, errors.Is(err, nursing.ErrInvalidShift))

	out, err := h.nursing.AutoSchedule(h.ctx, nurseActor(h.headNurse), &nursing.AutoScheduleCommand{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []uuid.UUID{h.nurse.ID, h.otherNurse.ID, h.nurse.ID}, []uuid.UUID{out[0].NurseID, out[1].NurseID, out[2].NurseID})
	assert.Equal(t, t0.Add(16*time.Hour), out[2].StartTime)
	assert.Equal(t, t0.Add(24*time.Hour), out[2].EndTime)

	// Regenerating replaces the window instead of stacking.
	_, err = h.nursing.AutoSchedule(h.ctx, nurseActor(h.headNurse), &nursing.AutoScheduleCommand{})
	require.NoError(t, err)
	rows, err := h.nursing.ListSchedules(h.ctx, h.admin(), &nursing.ListSchedulesQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestPlanTasksAssignsNurseOnDuty(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	adm := h.admit(h.startVisit(p.ID).ID, h.ward.ID)
	med := h.newMedicine("Paracetamol", "2.25", 100)

	h.schedule(t0, t0.Add(8*time.Hour), h.nurse)
	h.schedule(t0.Add(8*time.Hour), t0.Add(16*time.Hour), h.otherNurse)

	tasks, err := h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID,
		Type:              nursing.TypeOralMedication,
		Start:             t0,
		TimesPerDay:       intPtr(2),
		DurationDays:      1,
		Medicines:         []nursing.PlanMedicine{{MedicineID: med.ID, Quantity: 2, Usage: "with water"}},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, t0.Add(4*time.Hour), tasks[0].ScheduledAt)
	assert.Equal(t, h.nurse.ID, tasks[0].NurseID)
	assert.Equal(t, t0.Add(11*time.Hour), tasks[1].ScheduledAt)
	assert.Equal(t, h.otherNurse.ID, tasks[1].NurseID)

	snap := tasks[0].Medicines.Data()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Paracetamol", snap.Items[0].Name)
	assert.Equal(t, "2.25", snap.Items[0].UnitPrice.StringFixed(2))

	// Stock is not reserved by planning.
	m, _ := h.store.Medicine(med.ID)
	assert.Equal(t, 100, m.Stock)
}

func TestPlanTasksRejections(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	adm := h.admit(h.startVisit(p.ID).ID, h.ward.ID)

	_, err := h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeVitalSigns, Start: t0.Add(-time.Minute),
	})
	assert.True(t, errors.Is(err, nursing.ErrPlanStartsInPast))

	_, err = h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeVitalSigns, Start: t0, TimesPerDay: intPtr(3), DurationDays: 1,
	})
	assert.True(t, errors.Is(err, nursing.ErrOccurrenceBeforeStart))

	var ve *ValidationError
	_, err = h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeInjection, Start: t0,
	})
	assert.True(t, errors.As(err, &ve))

	_, err = h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeVitalSigns, Start: t0, TimesPerDay: intPtr(2), DurationDays: 2,
	})
	require.NoError(t, err)
	assert.Len(t, h.store.Tasks(adm.ID), 4)
}

func TestCompleteTask(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	adm := h.admit(h.startVisit(p.ID).ID, h.ward.ID)
	h.schedule(t0, t0.Add(8*time.Hour), h.nurse)
	h.schedule(t0.Add(8*time.Hour), t0.Add(16*time.Hour), h.otherNurse)

	tasks, err := h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeVitalSigns, Start: t0, TimesPerDay: intPtr(2), DurationDays: 1,
	})
	require.NoError(t, err)
	midday, evening := tasks[0], tasks[1]

	_, err = h.nursing.CompleteTask(h.ctx, nurseActor(h.otherNurse), midday.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = h.nursing.CompleteTask(h.ctx, h.doctorActor(), midday.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	res, err := h.nursing.CompleteTask(h.ctx, nurseActor(h.nurse), midday.ID)
	require.NoError(t, err)
	assert.Equal(t, nursing.OutcomeCompleted, res.Outcome)
	assert.Equal(t, nursing.TaskDone, res.Task.Status)

	res, err = h.nursing.CompleteTask(h.ctx, nurseActor(h.nurse), midday.ID)
	require.NoError(t, err)
	assert.Equal(t, nursing.OutcomeAlreadyDone, res.Outcome)

	h.now = evening.ScheduledAt.Add(time.Minute)
	res, err = h.nursing.CompleteTask(h.ctx, nurseActor(h.otherNurse), evening.ID)
	require.NoError(t, err)
	assert.Equal(t, nursing.OutcomeExpired, res.Outcome)
	assert.Equal(t, nursing.TaskExpired, res.Task.Status)

	res, err = h.nursing.CompleteTask(h.ctx, nurseActor(h.headNurse), evening.ID)
	require.NoError(t, err)
	assert.Equal(t, nursing.OutcomeAlreadyExpired, res.Outcome)
}

func TestTaskListingsExpireOverdue(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	adm := h.admit(h.startVisit(p.ID).ID, h.ward.ID)
	h.schedule(t0, t0.Add(24*time.Hour), h.nurse)

	_, err := h.nursing.PlanTasks(h.ctx, h.doctorActor(), &nursing.Plan{
		HospitalizationID: adm.ID, Type: nursing.TypeVitalSigns, Start: t0, TimesPerDay: intPtr(2), DurationDays: 1,
	})
	require.NoError(t, err)

	h.now = t0.Add(5 * time.Hour)
	mine, err := h.nursing.NurseDayTasks(h.ctx, nurseActor(h.nurse), nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, nursing.TaskExpired, mine[0].Status)
	assert.Equal(t, nursing.TaskPending, mine[1].Status)

	for _, task := range h.store.Tasks(adm.ID) {
		if task.ScheduledAt.Before(h.now) {
			assert.Equal(t, nursing.TaskExpired, task.Status)
		}
	}

	ward, err := h.nursing.WardTasks(h.ctx, h.admin(), h.ward.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, ward, 2)

	_, err = h.nursing.WardTasks(h.ctx, patientActor(p.ID), h.ward.ID, nil, nil)
	assert.True(t, errors.Is(err, ErrForbidden))
}
