package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var now = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func TestNewSetsSingleSource(t *testing.T) {
	src := Source{Type: TypeExam, ID: uuid.New()}
	p := New(uuid.New(), src, decimal.RequireFromString("12.345"))

	assert.Equal(t, StatusUnpaid, p.Status)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("12.35")))
	require.NotNil(t, p.ExamID)
	assert.Nil(t, p.RegistrationID)
	assert.Nil(t, p.PrescriptionID)
	assert.Nil(t, p.HospitalizationID)
	assert.Equal(t, src, p.Source())
}

func TestPayIsIdempotent(t *testing.T) {
	p := New(uuid.New(), Source{Type: TypeRegistration, ID: uuid.New()}, decimal.NewFromInt(50))

	changed, err := p.Pay(now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusPaid, p.Status)

	changed, err = p.Pay(now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *p.PaidAt)
}

func TestPayRejectsClosedPayments(t *testing.T) {
	for _, st := range []Status{StatusCancelled, StatusPendingRefund, StatusRefunded} {
		p := &Payment{Status: st}
		_, err := p.Pay(now)
		assert.True(t, errors.Is(err, ErrIllegalPaymentState), st)
	}
}

func TestRefund(t *testing.T) {
	exam := &Payment{Type: TypeExam, Status: StatusPendingRefund}
	assert.True(t, errors.Is(exam.Refund(now), ErrRefundNotAllowed))

	paid := &Payment{Type: TypeRegistration, Status: StatusPaid}
	assert.True(t, errors.Is(paid.Refund(now), ErrIllegalPaymentState))

	pending := &Payment{Type: TypeRegistration, Status: StatusPendingRefund}
	require.NoError(t, pending.Refund(now))
	assert.Equal(t, StatusRefunded, pending.Status)
	assert.Equal(t, now, *pending.RefundedAt)
}

func TestResolveVisitCancelled(t *testing.T) {
	unpaid := &Payment{Status: StatusUnpaid}
	assert.True(t, unpaid.ResolveVisitCancelled())
	assert.Equal(t, StatusCancelled, unpaid.Status)

	paid := &Payment{Status: StatusPaid}
	assert.True(t, paid.ResolveVisitCancelled())
	assert.Equal(t, StatusPendingRefund, paid.Status)

	refunded := &Payment{Status: StatusRefunded}
	assert.False(t, refunded.ResolveVisitCancelled())
}

func TestResolveVisitExpiredKeepsPaid(t *testing.T) {
	paid := &Payment{Status: StatusPaid}
	assert.False(t, paid.ResolveVisitExpired())
	assert.Equal(t, StatusPaid, paid.Status)

	unpaid := &Payment{Status: StatusUnpaid}
	assert.True(t, unpaid.ResolveVisitExpired())
	assert.Equal(t, StatusCancelled, unpaid.Status)
}

func TestComputeAdmissionBill(t *testing.T) {
	in := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	out := in.Add(3*time.Hour + 30*time.Minute)
	med := uuid.New()

	tasks := []*nursing.Task{
		{
			ID:         uuid.New(),
			Type:       nursing.TypeOralMedication,
			Status:     nursing.TaskDone,
			ServiceFee: decimal.Zero,
			Medicines: datatypes.NewJSONType(nursing.MedicineSnapshot{
				Version: nursing.SnapshotVersion,
				Items:   []nursing.SnapshotItem{{MedicineID: med, Name: "Amoxicillin", Quantity: 2, UnitPrice: decimal.RequireFromString("12.345")}},
			}),
		},
		{
			ID:         uuid.New(),
			Type:       nursing.TypeAcupuncture,
			Status:     nursing.TaskExpired,
			Detail:     "lower back",
			ServiceFee: nursing.TypeAcupuncture.ServiceFee(),
		},
	}

	bill := ComputeAdmissionBill(uuid.New(), in, out, decimal.NewFromInt(80), tasks)

	assert.Equal(t, "3.5", bill.BaseHours.String())
	assert.Equal(t, "280", bill.BaseFee.String())
	assert.Equal(t, "24.69", bill.MedicineFee.String())
	assert.Equal(t, "80", bill.ServiceFee.String())
	assert.Equal(t, "384.69", bill.TotalFee.String())
	require.Len(t, bill.Tasks, 2)
	require.Len(t, bill.Tasks[0].Items, 1)
	assert.Equal(t, "24.69", bill.Tasks[0].Items[0].Subtotal.String())
	assert.Empty(t, bill.Tasks[1].Items)
}

func TestComputeAdmissionBillMinimumStay(t *testing.T) {
	in := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	bill := ComputeAdmissionBill(uuid.New(), in, in.Add(10*time.Minute), decimal.NewFromInt(80), nil)

	assert.Equal(t, "0.5", bill.BaseHours.String())
	assert.Equal(t, "40", bill.TotalFee.String())
}
