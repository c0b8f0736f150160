package nursing

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// 2024-06-03 is a Monday.
var monday9 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func TestOccurrencesTwiceDaily(t *testing.T) {
	p := &Plan{Type: TypeVitalSigns, Start: monday9, TimesPerDay: intPtr(2), DurationDays: 2}

	got, err := p.Occurrences(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 6, 3, 13, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC),
	}, got)
}

func TestOccurrencesThriceDailyBeforeStartRejected(t *testing.T) {
	p := &Plan{Type: TypeVitalSigns, Start: monday9, TimesPerDay: intPtr(3), DurationDays: 1}

	_, err := p.Occurrences(time.UTC)
	assert.True(t, errors.Is(err, ErrOccurrenceBeforeStart))
}

func TestOccurrencesOncePerDayKeepsStartTime(t *testing.T) {
	p := &Plan{Type: TypeNursingCare, Start: monday9, TimesPerDay: intPtr(1), DurationDays: 3}

	got, err := p.Occurrences(time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, monday9.AddDate(0, 0, 2), got[2])
}

func TestOccurrencesInterval(t *testing.T) {
	p := &Plan{Type: TypeNursingCare, Start: monday9, IntervalDays: intPtr(2), DurationDays: 5}

	got, err := p.Occurrences(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{monday9, monday9.AddDate(0, 0, 2), monday9.AddDate(0, 0, 4)}, got)
}

func TestOccurrencesSingle(t *testing.T) {
	p := &Plan{Type: TypeSurgery, Start: monday9, DurationDays: 1, Detail: "appendectomy"}

	got, err := p.Occurrences(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{monday9}, got)
}

func TestOccurrencesUseClinicWallClock(t *testing.T) {
	loc := time.FixedZone("clinic", 8*3600)
	start := time.Date(2024, 6, 3, 7, 0, 0, 0, loc)
	p := &Plan{Type: TypeVitalSigns, Start: start.UTC(), TimesPerDay: intPtr(3), DurationDays: 1}

	got, err := p.Occurrences(loc)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 8, got[0].In(loc).Hour())
	assert.Equal(t, 19, got[2].In(loc).Hour())
}

func TestPlanValidate(t *testing.T) {
	med := uuid.New()
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{
			name: "injection without medicine",
			plan: Plan{HospitalizationID: uuid.New(), Type: TypeInjection, Start: monday9, DurationDays: 1},
			want: "INJECTION tasks need at least one medicine",
		},
		{
			name: "surgery without detail",
			plan: Plan{HospitalizationID: uuid.New(), Type: TypeSurgery, Start: monday9, DurationDays: 1},
			want: "SURGERY tasks need a detail",
		},
		{
			name: "both cadences",
			plan: Plan{HospitalizationID: uuid.New(), Type: TypeVitalSigns, Start: monday9, DurationDays: 1, IntervalDays: intPtr(1), TimesPerDay: intPtr(2)},
			want: "interval_days and times_per_day are mutually exclusive",
		},
		{
			name: "four times a day",
			plan: Plan{HospitalizationID: uuid.New(), Type: TypeVitalSigns, Start: monday9, DurationDays: 1, TimesPerDay: intPtr(4)},
			want: "times_per_day must be 1, 2 or 3",
		},
		{
			name: "duplicate medicine",
			plan: Plan{
				HospitalizationID: uuid.New(), Type: TypeOralMedication, Start: monday9, DurationDays: 1,
				Medicines: []PlanMedicine{{MedicineID: med, Quantity: 1}, {MedicineID: med, Quantity: 2}},
			},
			want: "medicines[1].medicine_id is listed twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.plan.Validate(), tt.want)
		})
	}

	ok := Plan{
		HospitalizationID: uuid.New(), Type: TypeInfusion, Start: monday9, DurationDays: 2, TimesPerDay: intPtr(2),
		Medicines: []PlanMedicine{{MedicineID: med, Quantity: 1}},
	}
	assert.Empty(t, ok.Validate())
}

func TestTaskComplete(t *testing.T) {
	nurse := uuid.New()
	now := monday9

	future := &Task{Status: TaskPending, ScheduledAt: now.Add(time.Hour)}
	assert.Equal(t, OutcomeCompleted, future.Complete(nurse, now))
	assert.Equal(t, TaskDone, future.Status)
	require.NotNil(t, future.CompletedBy)
	assert.Equal(t, nurse, *future.CompletedBy)
	assert.Equal(t, OutcomeAlreadyDone, future.Complete(nurse, now))

	late := &Task{Status: TaskPending, ScheduledAt: now.Add(-time.Minute)}
	assert.Equal(t, OutcomeExpired, late.Complete(nurse, now))
	assert.Equal(t, TaskExpired, late.Status)
	assert.Nil(t, late.CompletedAt)
	assert.Equal(t, OutcomeAlreadyExpired, late.Complete(nurse, now))
}

func TestRankCovering(t *testing.T) {
	low, high := uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002")
	early := &Schedule{StartTime: monday9.Add(-4 * time.Hour), EndTime: monday9.Add(4 * time.Hour)}
	late := &Schedule{StartTime: monday9.Add(-time.Hour), EndTime: monday9.Add(7 * time.Hour)}

	head := &staff.Nurse{ID: uuid.New(), IsHeadNurse: true}
	a := &staff.Nurse{ID: high}
	b := &staff.Nurse{ID: low}

	cands := []DutyCandidate{
		{Schedule: early, Nurse: a},
		{Schedule: late, Nurse: a},
		{Schedule: late, Nurse: b},
		{Schedule: early, Nurse: head},
	}
	RankCovering(cands)

	assert.Equal(t, head.ID, cands[0].Nurse.ID)
	assert.Equal(t, low, cands[1].Nurse.ID)
	assert.Same(t, late, cands[1].Schedule)
	assert.Equal(t, high, cands[2].Nurse.ID)
	assert.Same(t, late, cands[2].Schedule)
	assert.Same(t, early, cands[3].Schedule)
}

func TestScheduleCoversClosedWindow(t *testing.T) {
	s := &Schedule{StartTime: monday9, EndTime: monday9.Add(8 * time.Hour)}
	assert.True(t, s.Covers(monday9))
	assert.True(t, s.Covers(monday9.Add(4*time.Hour)))
	assert.True(t, s.Covers(monday9.Add(8*time.Hour)))
	assert.False(t, s.Covers(monday9.Add(8*time.Hour+time.Nanosecond)))
	assert.False(t, s.Covers(monday9.Add(-time.Second)))
}
