package nursing

import (
	"bytes"
	"sort"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/google/uuid"
)

// Schedule is one nurse on duty for one ward over [StartTime, EndTime].
// Both ends are inclusive, so at a handover both shifts cover the instant.
type Schedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	NurseID   uuid.UUID `gorm:"column:nurse_id;type:uuid;not null;index" json:"nurse_id"`
	WardID    uuid.UUID `gorm:"column:ward_id;type:uuid;not null;index:idx_schedules_ward_window,priority:1" json:"ward_id"`
	StartTime time.Time `gorm:"column:start_time;not null;index:idx_schedules_ward_window,priority:2" json:"start_time"`
	EndTime   time.Time `gorm:"column:end_time;not null;index:idx_schedules_ward_window,priority:3" json:"end_time"`
}

func (Schedule) TableName() string {
	return "nursing.schedules"
}

func (s *Schedule) Covers(at time.Time) bool {
	return !at.Before(s.StartTime) && !at.After(s.EndTime)
}

// DutyCandidate pairs a schedule with the nurse working it.
type DutyCandidate struct {
	Schedule *Schedule
	Nurse    *staff.Nurse
}

// RankCovering orders candidates covering the same instant: head nurses
// first, then the most recently started window, then the lowest nurse id.
func RankCovering(cands []DutyCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Nurse.IsHeadNurse != b.Nurse.IsHeadNurse {
			return a.Nurse.IsHeadNurse
		}
		if !a.Schedule.StartTime.Equal(b.Schedule.StartTime) {
			return a.Schedule.StartTime.After(b.Schedule.StartTime)
		}
		return bytes.Compare(a.Nurse.ID[:], b.Nurse.ID[:]) < 0
	})
}

type UpsertScheduleCommand struct {
	WardID   uuid.UUID
	Start    time.Time
	End      time.Time
	NurseIDs []uuid.UUID

	// Source identifies the slot being replaced; each part defaults to the target's.
	SourceWardID *uuid.UUID
	SourceStart  *time.Time
	SourceEnd    *time.Time
}

type AutoScheduleCommand struct {
	// Start defaults to now.
	Start      *time.Time
	ShiftHours int
	ShiftCount int
	WardIDs    []uuid.UUID
}

const (
	DefaultShiftHours = 8
	DefaultShiftCount = 3
	MaxShiftHours     = 24
	MaxShiftCount     = 24
)

type ListSchedulesQuery struct {
	WardID  *uuid.UUID
	NurseID *uuid.UUID
	From    *time.Time
	To      *time.Time
}
