package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRegistrationCreated   EventType = "registration.created"
	EventRegistrationCancelled EventType = "registration.cancelled"
	EventRegistrationStarted   EventType = "registration.started"
	EventRegistrationFinished  EventType = "registration.finished"
	EventRegistrationExpired   EventType = "registration.expired"
	EventExaminationCreated    EventType = "examination.created"
	EventPrescriptionSaved     EventType = "prescription.saved"
	EventPatientAdmitted       EventType = "admission.admitted"
	EventPatientDischarged     EventType = "admission.discharged"
	EventTasksPlanned          EventType = "nursing.tasks_planned"
	EventTaskCompleted         EventType = "nursing.task_completed"
	EventPaymentCreated        EventType = "payment.created"
	EventPaymentPaid           EventType = "payment.paid"
	EventPaymentRefunded       EventType = "payment.refunded"
	EventPaymentCancelled      EventType = "payment.cancelled"
)

// Event is a fact published after the transaction that produced it commits.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	Type        EventType      `json:"type"`
	AggregateID uuid.UUID      `json:"aggregate_id"`
	PatientID   uuid.UUID      `json:"patient_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func NewEvent(t EventType, aggregateID, patientID uuid.UUID, at time.Time, payload map[string]any) Event {
	return Event{
		ID:          uuid.New(),
		Type:        t,
		AggregateID: aggregateID,
		PatientID:   patientID,
		OccurredAt:  at,
		Payload:     payload,
	}
}
