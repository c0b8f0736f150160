package repository

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/admission"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/nursing"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/staff"
)

// Store runs units of work. Every repository reached through Tx shares the
// same transaction; returning an error from fn rolls all of it back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Patients() patient.Repository
	Staff() staff.Repository
	Registrations() registration.Repository
	Records() mr.Repository
	Prescriptions() prescription.Repository
	Medicines() prescription.MedicineRepository
	Wards() admission.WardRepository
	Admissions() admission.Repository
	Schedules() nursing.ScheduleRepository
	Tasks() nursing.TaskRepository
	Payments() payment.Repository
}
