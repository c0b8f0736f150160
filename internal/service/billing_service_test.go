package service

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayIsIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	res := h.register(p.ID, registration.CategoryNormal)

	first, err := h.billing.Pay(h.ctx, patientActor(p.ID), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, first.Status)

	second, err := h.billing.Pay(h.ctx, patientActor(p.ID), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, second.Status)
	assert.Equal(t, *first.PaidAt, *second.PaidAt)
	assert.Equal(t, 1, h.pub.count(domain.EventPaymentPaid))
}

func TestPayRules(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	res := h.register(p.ID, registration.CategoryNormal)

	_, err := h.billing.Pay(h.ctx, patientActor(uuid.New()), res.Payment.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = h.billing.Pay(h.ctx, h.admin(), uuid.New())
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))

	_, err = h.registrations.Cancel(h.ctx, h.admin(), res.Registration.ID)
	require.NoError(t, err)
	_, err = h.billing.Pay(h.ctx, h.admin(), res.Payment.ID)
	assert.True(t, errors.Is(err, payment.ErrIllegalPaymentState))
}

func TestRefundRules(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.startVisit(p.ID)
	exam, err := h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: "Blood Routine"})
	require.NoError(t, err)

	_, err = h.billing.Pay(h.ctx, h.admin(), exam.Payment.ID)
	require.NoError(t, err)
	_, err = h.billing.Refund(h.ctx, h.admin(), exam.Payment.ID)
	assert.True(t, errors.Is(err, payment.ErrRefundNotAllowed))

	fee := h.paymentFor(p.ID, payment.TypeRegistration)
	_, err = h.billing.Pay(h.ctx, h.admin(), fee.ID)
	require.NoError(t, err)
	// A paid fee of a visit that was not cancelled is not awaiting refund.
	_, err = h.billing.Refund(h.ctx, h.admin(), fee.ID)
	assert.True(t, errors.Is(err, payment.ErrIllegalPaymentState))
}

func TestRevenueSummary(t *testing.T) {
	h := newHarness(t)
	a, b := h.newPatient(), h.newPatient()
	resA := h.register(a.ID, registration.CategoryExpert)
	resB := h.register(b.ID, registration.CategoryNormal)
	h.register(h.newPatient().ID, registration.CategoryNormal)

	_, err := h.billing.Pay(h.ctx, h.admin(), resA.Payment.ID)
	require.NoError(t, err)
	_, err = h.billing.Pay(h.ctx, h.admin(), resB.Payment.ID)
	require.NoError(t, err)

	_, err = h.payments.RevenueSummary(h.ctx, patientActor(a.ID))
	assert.True(t, errors.Is(err, ErrForbidden))

	summary, err := h.payments.RevenueSummary(h.ctx, h.admin())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.Equal(t, "60.00", summary.Total.StringFixed(2))
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, payment.TypeRegistration, summary.Lines[0].Type)
}

func TestPaymentViewJoinsSources(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.startVisit(p.ID)
	_, err := h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: "MRI"})
	require.NoError(t, err)

	views, err := h.payments.View(h.ctx, patientActor(p.ID), p.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		switch v.Type {
		case payment.TypeRegistration:
			require.NotNil(t, v.Registration)
			assert.Equal(t, reg.ID, v.Registration.ID)
		case payment.TypeExam:
			require.NotNil(t, v.Examination)
			assert.Equal(t, "MRI", v.Examination.ExamType)
		default:
			t.Fatalf("unexpected payment type %s", v.Type)
		}
	}

	_, err = h.payments.View(h.ctx, h.doctorActor(), p.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestAuditRecordsOutcomes(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.register(p.ID, registration.CategoryNormal).Registration
	_, err := h.registrations.Cancel(h.ctx, patientActor(uuid.New()), reg.ID)
	require.Error(t, err)

	require.Eventually(t, func() bool { return len(h.audit.Entries()) >= 2 }, time.Second, 10*time.Millisecond)

	var failed *domain.AuditLog
	for _, e := range h.audit.Entries() {
		if e.Outcome == domain.OutcomeFailure {
			failed = &e
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "FORBIDDEN", failed.ErrorCode)
	assert.Equal(t, "registration", failed.ResourceType)
	assert.Equal(t, "{}", failed.Changes)
}
