package payment

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinBillableHours is the shortest stay an admission is charged for.
var MinBillableHours = decimal.NewFromFloat(0.5)

type ItemCharge struct {
	MedicineID uuid.UUID       `json:"medicine_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type TaskCharge struct {
	TaskID      uuid.UUID          `json:"task_id"`
	Type        nursing.TaskType   `json:"type"`
	Status      nursing.TaskStatus `json:"status"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Detail      string             `json:"detail,omitempty"`
	Items       []ItemCharge       `json:"items"`
	MedicineFee decimal.Decimal    `json:"medicine_fee"`
	ServiceFee  decimal.Decimal    `json:"service_fee"`
}

// AdmissionBill is the itemised charge of one hospitalization.
type AdmissionBill struct {
	HospitalizationID uuid.UUID       `json:"hospitalization_id"`
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	BaseHours         decimal.Decimal `json:"base_hours"`
	HourlyRate        decimal.Decimal `json:"hourly_rate"`
	BaseFee           decimal.Decimal `json:"base_fee"`
	MedicineFee       decimal.Decimal `json:"medicine_fee"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	TotalFee          decimal.Decimal `json:"total_fee"`
	Tasks             []TaskCharge    `json:"tasks"`
}

// ComputeAdmissionBill charges the stay from in to end at rate per hour
// (never less than half an hour) plus every task's frozen medicine and
// service charges. Each subtotal is rounded to cents before summing.
func ComputeAdmissionBill(hospitalizationID uuid.UUID, in, end time.Time, rate decimal.Decimal, tasks []*nursing.Task) AdmissionBill {
	hours := decimal.NewFromFloat(end.Sub(in).Seconds()).Div(decimal.NewFromInt(3600))
	if hours.LessThan(MinBillableHours) {
		hours = MinBillableHours
	}

	bill := AdmissionBill{
		HospitalizationID: hospitalizationID,
		From:              in,
		To:                end,
		BaseHours:         hours.Round(2),
		HourlyRate:        rate,
		BaseFee:           hours.Mul(rate).Round(2),
		MedicineFee:       decimal.Zero,
		ServiceFee:        decimal.Zero,
		Tasks:             make([]TaskCharge, 0, len(tasks)),
	}

	for _, t := range tasks {
		tc := TaskCharge{
			TaskID:      t.ID,
			Type:        t.Type,
			Status:      t.Status,
			ScheduledAt: t.ScheduledAt,
			Detail:      t.Detail,
			MedicineFee: decimal.Zero,
			ServiceFee:  t.ServiceFee.Round(2),
		}
		for _, it := range t.Medicines.Data().Items {
			sub := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
			tc.Items = append(tc.Items, ItemCharge{
				MedicineID: it.MedicineID,
				Name:       it.Name,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
				Subtotal:   sub,
			})
			tc.MedicineFee = tc.MedicineFee.Add(sub)
		}
		bill.MedicineFee = bill.MedicineFee.Add(tc.MedicineFee)
		bill.ServiceFee = bill.ServiceFee.Add(tc.ServiceFee)
		bill.Tasks = append(bill.Tasks, tc)
	}

	bill.TotalFee = bill.BaseFee.Add(bill.MedicineFee).Add(bill.ServiceFee).Round(2)
	return bill
}
