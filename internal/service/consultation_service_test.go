package service

import (
	"errors"
	"testing"
	"time"

	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRecordOnlyWhileInProgress(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.register(p.ID, registration.CategoryNormal).Registration

	_, err := h.consultations.SaveRecord(h.ctx, h.doctorActor(), &mr.SaveRecordCommand{RegistrationID: reg.ID, Complaint: "cough"})
	assert.True(t, errors.Is(err, mr.ErrRecordNotEditable))

	_, err = h.registrations.Start(h.ctx, h.doctorActor(), reg.ID)
	require.NoError(t, err)

	first, err := h.consultations.SaveRecord(h.ctx, h.doctorActor(), &mr.SaveRecordCommand{RegistrationID: reg.ID, Complaint: "cough"})
	require.NoError(t, err)
	second, err := h.consultations.SaveRecord(h.ctx, h.doctorActor(), &mr.SaveRecordCommand{RegistrationID: reg.ID, Complaint: "cough", Diagnosis: "bronchitis"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bronchitis", second.Diagnosis)
}

func TestCreateExaminationPricesFromCatalog(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()

	reg := h.register(p.ID, registration.CategoryNormal).Registration
	_, err := h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: "Blood Routine"})
	assert.True(t, errors.Is(err, mr.ErrRecordRequired))

	_, err = h.registrations.Start(h.ctx, h.doctorActor(), reg.ID)
	require.NoError(t, err)
	_, err = h.consultations.SaveRecord(h.ctx, h.doctorActor(), &mr.SaveRecordCommand{RegistrationID: reg.ID})
	require.NoError(t, err)

	res, err := h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: " blood-routine "})
	require.NoError(t, err)
	assert.Equal(t, "blood-routine", res.Examination.ExamType)
	assert.Equal(t, mr.ResultAbnormal, res.Examination.Result)
	assert.Equal(t, "35.00", res.Payment.Amount.StringFixed(2))
	assert.Equal(t, payment.TypeExam, res.Payment.Type)

	mri, err := h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: "MRI"})
	require.NoError(t, err)
	assert.Equal(t, "57.00", mri.Payment.Amount.StringFixed(2))

	_, err = h.consultations.CreateExamination(h.ctx, h.doctorActor(), &mr.CreateExaminationCommand{RegistrationID: reg.ID, ExamType: "  "})
	assert.True(t, errors.Is(err, mr.ErrExamTypeRequired))
}

func TestSavePrescriptionStockIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.startVisit(p.ID)
	ibuprofen := h.newMedicine("Ibuprofen", "4.50", 5)
	saline := h.newMedicine("Saline", "12.00", 1)

	_, err := h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
		RegistrationID: reg.ID,
		Items:          []prescription.Item{{MedicineID: ibuprofen.ID, Quantity: 3}, {MedicineID: saline.ID, Quantity: 2}},
	})
	var shortage *prescription.ShortageError
	require.True(t, errors.As(err, &shortage))
	require.Len(t, shortage.Shortages, 1)
	assert.Equal(t, saline.ID, shortage.Shortages[0].MedicineID)

	m, _ := h.store.Medicine(ibuprofen.ID)
	assert.Equal(t, 5, m.Stock)

	view, err := h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
		RegistrationID: reg.ID,
		Items:          []prescription.Item{{MedicineID: ibuprofen.ID, Quantity: 3, Usage: "after meals"}, {MedicineID: saline.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "25.50", view.TotalAmount.StringFixed(2))
	assert.Len(t, view.Lines, 2)

	m, _ = h.store.Medicine(ibuprofen.ID)
	assert.Equal(t, 2, m.Stock)
	m, _ = h.store.Medicine(saline.ID)
	assert.Equal(t, 0, m.Stock)

	// Editing returns the difference to stock.
	view, err = h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
		RegistrationID: reg.ID,
		Items:          []prescription.Item{{MedicineID: ibuprofen.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "4.50", view.TotalAmount.StringFixed(2))
	require.Len(t, view.Lines, 1)

	m, _ = h.store.Medicine(ibuprofen.ID)
	assert.Equal(t, 4, m.Stock)
	m, _ = h.store.Medicine(saline.ID)
	assert.Equal(t, 1, m.Stock)
}

func TestFinishBillsPrescription(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.startVisit(p.ID)
	med := h.newMedicine("Amoxicillin", "9.99", 10)

	_, err := h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
		RegistrationID: reg.ID,
		Items:          []prescription.Item{{MedicineID: med.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	h.now = t0.Add(20 * time.Minute)
	res, err := h.registrations.Finish(h.ctx, h.doctorActor(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusFinished, res.Registration.Status)
	require.NotNil(t, res.Payment)
	assert.Equal(t, payment.TypePrescription, res.Payment.Type)
	assert.Equal(t, "19.98", res.Payment.Amount.StringFixed(2))

	_, err = h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
		RegistrationID: reg.ID,
		Items:          []prescription.Item{{MedicineID: med.ID, Quantity: 1}},
	})
	assert.True(t, errors.Is(err, prescription.ErrNotEditable))

	detail, err := h.registrations.Detail(h.ctx, patientActor(p.ID), reg.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Record)
	require.NotNil(t, detail.Prescription)
	assert.Equal(t, "Amoxicillin", detail.Prescription.Lines[0].Name)
}

func TestFinishWithoutPrescriptionBillsNothing(t *testing.T) {
	h := newHarness(t)
	p := h.newPatient()
	reg := h.startVisit(p.ID)

	res, err := h.registrations.Finish(h.ctx, h.doctorActor(), reg.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.Len(t, h.store.Payments(p.ID), 1)
}

func TestPrescriptionEditRoundTripRestoresStock(t *testing.T) {
	h := newHarness(t)
	reg := h.startVisit(h.newPatient().ID)
	med := h.newMedicine("Paracetamol", "1.20", 10)

	save := func(qty int) {
		t.Helper()
		_, err := h.consultations.SavePrescription(h.ctx, h.doctorActor(), &prescription.SavePrescriptionCommand{
			RegistrationID: reg.ID,
			Items:          []prescription.Item{{MedicineID: med.ID, Quantity: qty}},
		})
		require.NoError(t, err)
	}
	stock := func() int {
		m, _ := h.store.Medicine(med.ID)
		return m.Stock
	}

	save(3)
	assert.Equal(t, 7, stock())
	save(5)
	assert.Equal(t, 5, stock())
	save(3)
	assert.Equal(t, 7, stock())
}
