package nursing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PlanMedicine struct {
	MedicineID uuid.UUID
	Quantity   int
	Usage      string
}

// Plan is a doctor's order expanded into concrete tasks. Cadence is either
// every IntervalDays days or TimesPerDay fixed dayparts; with neither the
// plan yields a single task at Start.
type Plan struct {
	HospitalizationID uuid.UUID
	Type              TaskType
	Start             time.Time
	IntervalDays      *int
	TimesPerDay       *int
	DurationDays      int
	Detail            string
	Medicines         []PlanMedicine
}

type daypart struct{ hour, minute int }

var dayparts = map[int][]daypart{
	2: {{13, 0}, {20, 0}},
	3: {{8, 0}, {13, 0}, {19, 0}},
}

// Validate returns one message per invalid field.
func (p *Plan) Validate() []string {
	var errs []string
	if p.HospitalizationID == uuid.Nil {
		errs = append(errs, "hospitalization_id is required")
	}
	if !p.Type.IsValid() {
		errs = append(errs, "type is invalid")
	}
	if p.Start.IsZero() {
		errs = append(errs, "start is required")
	}

	switch {
	case p.IntervalDays != nil && p.TimesPerDay != nil:
		errs = append(errs, "interval_days and times_per_day are mutually exclusive")
	case p.IntervalDays != nil && *p.IntervalDays < 1:
		errs = append(errs, "interval_days must be at least 1")
	case p.TimesPerDay != nil && (*p.TimesPerDay < 1 || *p.TimesPerDay > 3):
		errs = append(errs, "times_per_day must be 1, 2 or 3")
	}
	if (p.IntervalDays != nil || p.TimesPerDay != nil) && p.DurationDays < 1 {
		errs = append(errs, "duration_days must be at least 1")
	}

	if p.Type.RequiresMedicine() && len(p.Medicines) == 0 {
		errs = append(errs, fmt.Sprintf("%s tasks need at least one medicine", p.Type))
	}
	if p.Type.IsProcedure() && strings.TrimSpace(p.Detail) == "" {
		errs = append(errs, fmt.Sprintf("%s tasks need a detail", p.Type))
	}

	seen := make(map[uuid.UUID]bool, len(p.Medicines))
	for i, m := range p.Medicines {
		if m.MedicineID == uuid.Nil {
			errs = append(errs, fmt.Sprintf("medicines[%d].medicine_id is required", i))
		}
		if m.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("medicines[%d].quantity must be positive", i))
		}
		if seen[m.MedicineID] {
			errs = append(errs, fmt.Sprintf("medicines[%d].medicine_id is listed twice", i))
		}
		seen[m.MedicineID] = true
	}
	return errs
}

// MedicineIDs returns the medicines the plan references.
func (p *Plan) MedicineIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Medicines))
	for _, m := range p.Medicines {
		ids = append(ids, m.MedicineID)
	}
	return ids
}

// Occurrences expands the plan into task instants. Dayparts are wall-clock
// times in loc. The whole plan is rejected if any instant precedes Start.
func (p *Plan) Occurrences(loc *time.Location) ([]time.Time, error) {
	start := p.Start.In(loc)

	var out []time.Time
	switch {
	case p.TimesPerDay != nil:
		y, m, d := start.Date()
		for day := 0; day < p.DurationDays; day++ {
			if *p.TimesPerDay == 1 {
				out = append(out, start.AddDate(0, 0, day))
				continue
			}
			for _, dp := range dayparts[*p.TimesPerDay] {
				out = append(out, time.Date(y, m, d+day, dp.hour, dp.minute, 0, 0, loc))
			}
		}
	case p.IntervalDays != nil:
		step := max(*p.IntervalDays, 1)
		for offset := 0; offset < p.DurationDays; offset += step {
			out = append(out, start.AddDate(0, 0, offset))
		}
	default:
		out = append(out, start)
	}

	for _, at := range out {
		if at.Before(start) {
			return nil, fmt.Errorf("%s: %w", at.Format(time.RFC3339), ErrOccurrenceBeforeStart)
		}
	}
	return out, nil
}
