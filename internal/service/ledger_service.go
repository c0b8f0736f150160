package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
)

// LedgerService answers the two capacity questions every other component
// asks: how many beds a ward uses and which nurse is on duty.
type LedgerService struct {
	Deps
}

func NewLedgerService(deps Deps) *LedgerService {
	return &LedgerService{Deps: deps}
}

func (s *LedgerService) Occupied(ctx context.Context, tx repository.Tx, wardID uuid.UUID) (int64, error) {
	n, err := tx.Admissions().CountActiveInWard(ctx, wardID)
	if err != nil {
		return 0, fmt.Errorf("counting ward occupancy: %w", err)
	}
	return n, nil
}

// OnDuty resolves the nurse responsible for the ward at the instant. When
// no schedule covers it the ward's most recently ending schedule is used,
// then the first head nurse, then the first nurse of any kind.
func (s *LedgerService) OnDuty(ctx context.Context, tx repository.Tx, wardID uuid.UUID, at time.Time) (*staff.Nurse, error) {
	covering, err := tx.Schedules().Covering(ctx, wardID, at)
	if err != nil {
		return nil, fmt.Errorf("loading covering schedules: %w", err)
	}
	if len(covering) > 0 {
		nursing.RankCovering(covering)
		return covering[0].Nurse, nil
	}

	latest, err := tx.Schedules().LatestEnding(ctx, wardID)
	if err != nil {
		return nil, fmt.Errorf("loading latest schedule: %w", err)
	}
	if latest != nil && latest.Nurse != nil {
		return latest.Nurse, nil
	}

	for _, filter := range []staff.NurseFilter{staff.HeadNursesOnly, staff.AllNurses} {
		nurses, err := tx.Staff().ListNurses(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("listing nurses: %w", err)
		}
		if len(nurses) > 0 {
			return nurses[0], nil
		}
	}
	return nil, nursing.ErrNoNurseAvailable
}

type OnDutyView struct {
	WardID uuid.UUID    `json:"ward_id"`
	At     time.Time    `json:"at"`
	Nurse  *staff.Nurse `json:"nurse"`
}

// ResolveOnDuty is the read form of OnDuty for staff.
func (s *LedgerService) ResolveOnDuty(ctx context.Context, actor domain.Actor, wardID uuid.UUID, at time.Time) (*OnDutyView, error) {
	if actor.Role == domain.RolePatient {
		return nil, ErrForbidden
	}
	view := &OnDutyView{WardID: wardID, At: at}
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.Wards().GetWard(ctx, wardID); err != nil {
			return err
		}
		nurse, err := s.OnDuty(ctx, tx, wardID, at)
		view.Nurse = nurse
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *LedgerService) WardOverview(ctx context.Context, actor domain.Actor) ([]admission.WardOccupancy, error) {
	if actor.Role == domain.RolePatient {
		return nil, ErrForbidden
	}

	var out []admission.WardOccupancy
	err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		wards, err := tx.Wards().ListWards(ctx)
		if err != nil {
			return err
		}
		counts, err := tx.Admissions().CountActiveByWard(ctx)
		if err != nil {
			return err
		}
		out = make([]admission.WardOccupancy, 0, len(wards))
		for _, w := range wards {
			out = append(out, admission.NewWardOccupancy(w, int(counts[w.ID])))
		}
		return nil
	})
	return out, err
}
