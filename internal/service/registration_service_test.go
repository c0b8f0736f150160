package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRegistrationBillsFee(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()

	res := h.register(p.ID, registration.CategoryExpert)

	assert.Equal(t, registration.StatusWaiting, res.Registration.Status)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), res.Registration.VisitDate)
	require.NotNil(t, res.Payment)
	assert.Equal(t, payment.StatusUnpaid, res.Payment.Status)
	assert.Equal(t, "50.00", res.Payment.Amount.StringFixed(2))
	assert.Equal(t, res.Registration.ID, *res.Payment.RegistrationID)
	assert.Equal(t, 1, h.pub.count(domain.EventRegistrationCreated))
	assert.Equal(t, 1, h.pub.count(domain.EventPaymentCreated))
}

func TestCreateRegistrationRejectsSecondActiveVisit(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	h.register(p.ID, registration.CategoryNormal)

	_, err := h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{
		PatientID: p.ID,
		DoctorID:  h.doctor.ID,
		Category:  registration.CategoryExpert,
	})
	assert.True(t, errors.Is(err, registration.ErrActiveVisitExists))
	assert.Len(t, h.store.Payments(p.ID), 1)
}

func TestCreateRegistrationQuota(t *testing.T) {
	h := newHarness(t)

	var first *RegistrationResult
	for i := 0; i < registration.CategoryExpert.DailyQuota(); i++ {
		res := h.register(h.newPatient().ID, registration.CategoryExpert)
		if first == nil {
			first = res
		}
	}

	late := h.newPatient()
	cmd := func() *registration.CreateRegistrationCommand {
		return &registration.CreateRegistrationCommand{PatientID: late.ID, DoctorID: h.doctor.ID, Category: registration.CategoryExpert}
	}
	_, err := h.registrations.Create(h.ctx, h.admin(), cmd())
	assert.True(t, errors.Is(err, registration.ErrQuotaExceeded))

	// The normal quota is counted separately.
	_, err = h.registrations.Create(h.ctx, patientActor(late.ID), &registration.CreateRegistrationCommand{
		DoctorID: h.doctor.ID,
		Category: registration.CategoryNormal,
	})
	require.NoError(t, err)

	other := h.newPatient()
	_, err = h.registrations.Cancel(h.ctx, h.admin(), first.Registration.ID)
	require.NoError(t, err)
	_, err = h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{
		PatientID: other.ID, DoctorID: h.doctor.ID, Category: registration.CategoryExpert,
	})
	assert.NoError(t, err)
}

func TestCreateRegistrationValidation(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()

	_, err := h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{PatientID: p.ID, DoctorID: h.doctor.ID, Category: "VIP"})
	assert.True(t, errors.Is(err, registration.ErrInvalidCategory))

	yesterday := t0.AddDate(0, 0, -1)
	_, err = h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{
		PatientID: p.ID, DoctorID: h.doctor.ID, Category: registration.CategoryNormal, VisitDate: &yesterday,
	})
	assert.True(t, errors.Is(err, registration.ErrVisitDateInPast))

	_, err = h.registrations.Create(h.ctx, h.doctorActor(), &registration.CreateRegistrationCommand{
		PatientID: p.ID, DoctorID: h.doctor.ID, Category: registration.CategoryNormal,
	})
	assert.True(t, errors.Is(err, ErrForbidden))

	var ve *ValidationError
	_, err = h.registrations.Create(h.ctx, h.admin(), &registration.CreateRegistrationCommand{Category: registration.CategoryNormal})
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
}

func TestPatientRegistersForThemself(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	other := h.newPatient()

	res, err := h.registrations.Create(h.ctx, patientActor(p.ID), &registration.CreateRegistrationCommand{
		PatientID: other.ID,
		DoctorID:  h.doctor.ID,
		Category:  registration.CategoryNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, res.Registration.PatientID)
}

func TestCancelUnpaidVoidsFee(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.register(p.ID, registration.CategoryNormal).Registration

	res, err := h.registrations.Cancel(h.ctx, patientActor(p.ID), reg.ID)
	require.NoError(t, err)

	assert.Equal(t, registration.StatusCancelled, res.Registration.Status)
	assert.Equal(t, payment.StatusCancelled, res.Payment.Status)
	assert.Equal(t, payment.StatusCancelled, h.paymentFor(p.ID, payment.TypeRegistration).Status)

	_, err = h.registrations.Cancel(h.ctx, patientActor(p.ID), reg.ID)
	assert.True(t, errors.Is(err, registration.ErrInvalidStatusTransition))
}

func TestCancelPaidAwaitsRefund(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	res := h.register(p.ID, registration.CategoryNormal)

	_, err := h.billing.Pay(h.ctx, patientActor(p.ID), res.Payment.ID)
	require.NoError(t, err)

	cancelled, err := h.registrations.Cancel(h.ctx, h.admin(), res.Registration.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPendingRefund, cancelled.Payment.Status)

	refunded, err := h.billing.Refund(h.ctx, patientActor(p.ID), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, refunded.Status)
	assert.Equal(t, 1, h.pub.count(domain.EventPaymentRefunded))
}

func TestCancelByStrangerForbidden(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.register(p.ID, registration.CategoryNormal).Registration

	_, err := h.registrations.Cancel(h.ctx, patientActor(uuid.New()), reg.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
	_, err = h.registrations.Cancel(h.ctx, h.doctorActor(), reg.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestStartRequiresAssignedDoctor(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.register(p.ID, registration.CategoryNormal).Registration

	someone := uuid.New()
	_, err := h.registrations.Start(h.ctx, domain.Actor{Role: domain.RoleDoctor, StaffID: &someone}, reg.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	started, err := h.registrations.Start(h.ctx, h.doctorActor(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusInProgress, started.Status)

	_, err = h.registrations.Cancel(h.ctx, h.admin(), reg.ID)
	assert.True(t, errors.Is(err, registration.ErrInvalidStatusTransition))
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	h := newHarness(t)
	unpaid := h.newPatient()
	paid := h.newPatient()
	h.register(unpaid.ID, registration.CategoryNormal)
	paidRes := h.register(paid.ID, registration.CategoryNormal)
	_, err := h.billing.Pay(h.ctx, h.admin(), paidRes.Payment.ID)
	require.NoError(t, err)

	h.now = t0.Add(48 * time.Hour)

	n, err := h.registrations.ExpireOverdue(h.ctx, registration.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.registrations.ExpireOverdue(h.ctx, registration.Scope{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, payment.StatusCancelled, h.paymentFor(unpaid.ID, payment.TypeRegistration).Status)
	assert.Equal(t, payment.StatusPaid, h.paymentFor(paid.ID, payment.TypeRegistration).Status)
	assert.Equal(t, 2, h.pub.count(domain.EventRegistrationExpired))
}

func TestOverdueVisitDoesNotBlockNewRegistration(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	old := h.register(p.ID, registration.CategoryNormal).Registration

	h.now = t0.AddDate(0, 0, 1)
	res := h.register(p.ID, registration.CategoryNormal)
	assert.NotEqual(t, old.ID, res.Registration.ID)

	list, err := h.registrations.ListForPatient(h.ctx, patientActor(p.ID), p.ID)
	require.NoError(t, err)
	statuses := map[uuid.UUID]registration.Status{}
	for _, r := range list {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, registration.StatusExpired, statuses[old.ID])
	assert.Equal(t, registration.StatusWaiting, statuses[res.Registration.ID])
}

func TestDoctorQueueListsTodaysVisits(t *testing.T) {
	h := newHarness(t)
	a, b := h.newPatient(), h.newPatient()
	h.register(a.ID, registration.CategoryNormal)
	h.register(b.ID, registration.CategoryExpert)

	queue, err := h.registrations.DoctorQueue(h.ctx, h.doctorActor(), nil)
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	_, err = h.registrations.DoctorQueue(h.ctx, nurseActor(h.nurse), nil)
	assert.True(t, errors.Is(err, ErrForbidden))
}
