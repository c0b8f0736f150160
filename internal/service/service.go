package service

import (
	"context"
	"errors"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    repository.Store
	Audit    *AuditService
	Events   events.Publisher
	Metrics  *metrics.Collector
	Location *time.Location
	Clock    func() time.Time
	Log      *zap.Logger
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// today is the clinic's current civil date.
func (d *Deps) today() time.Time {
	return domain.DateOf(d.now(), d.Location)
}

// audit records the outcome of an operation. Call it deferred with the
// operation's named error.
func (d *Deps) audit(ctx context.Context, actor domain.Actor, action domain.AuditAction, resource string, id uuid.UUID, err error) {
	entry := AuditEntry{
		UserID:       actor.UserID,
		UserRole:     string(actor.Role),
		Action:       string(action),
		ResourceType: resource,
		IPAddress:    actor.IP,
		Outcome:      string(domain.OutcomeSuccess),
	}
	if id != uuid.Nil {
		entry.ResourceID = id.String()
	}
	if err != nil {
		entry.Outcome = string(domain.OutcomeFailure)
		entry.ErrorCode = errorCode(err)
	}
	d.Audit.LogAsync(ctx, entry)
}

// publish hands committed events to the event sink. Failures are logged only.
func (d *Deps) publish(ctx context.Context, evts ...domain.Event) {
	if len(evts) == 0 {
		return
	}
	if err := d.Events.Publish(ctx, evts...); err != nil {
		d.Metrics.EventPublishFailures.Add(float64(len(evts)))
		d.Log.Warn("failed to publish domain events", zap.Int("count", len(evts)), zap.Error(err))
	}
}

func errorCode(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "VALIDATION_FAILED"
	}
	if de, ok := domain.AsError(err); ok {
		return de.Code
	}
	return "INTERNAL"
}

// requireDoctor allows only the doctor with the given staff id.
func requireDoctor(actor domain.Actor, doctorID uuid.UUID) error {
	if actor.IsStaff(domain.RoleDoctor, doctorID) {
		return nil
	}
	return ErrForbidden
}

// requirePatientOrAdmin allows the patient themself or an administrator.
func requirePatientOrAdmin(actor domain.Actor, patientID uuid.UUID) error {
	if actor.OwnsPatient(patientID) || actor.IsAdmin() {
		return nil
	}
	return ErrForbidden
}

func staffID(actor domain.Actor) uuid.UUID {
	if actor.StaffID == nil {
		return uuid.Nil
	}
	return *actor.StaffID
}

// requireHeadNurse allows only a nurse whose staff row is a head nurse.
func requireHeadNurse(ctx context.Context, tx repository.Tx, actor domain.Actor) error {
	if actor.Role != domain.RoleNurse || actor.StaffID == nil {
		return ErrForbidden
	}
	n, err := tx.Staff().GetNurse(ctx, *actor.StaffID)
	if errors.Is(err, staff.ErrNurseNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !n.IsHeadNurse {
		return ErrForbidden
	}
	return nil
}
