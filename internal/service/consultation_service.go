package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	mr "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/medical_record"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsultationService writes what a doctor produces during a visit: the
// medical record, examinations and the prescription.
type ConsultationService struct {
	Deps
	billing *BillingService

	rngMu sync.Mutex
	rng   domain.RandomSource
}

func NewConsultationService(deps Deps, billing *BillingService, rng domain.RandomSource) *ConsultationService {
	return &ConsultationService{Deps: deps, billing: billing, rng: rng}
}

func (s *ConsultationService) SaveRecord(ctx context.Context, actor domain.Actor, cmd *mr.SaveRecordCommand) (rec *mr.MedicalRecord, err error) {
	defer func() {
		var id uuid.UUID
		if rec != nil {
			id = rec.ID
		}
		s.audit(ctx, actor, domain.ActionUpdate, "medical_record", id, err)
	}()

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().Lock(ctx, cmd.RegistrationID)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, reg.DoctorID); err != nil {
			return err
		}
		if reg.Status != registration.StatusInProgress {
			return mr.ErrRecordNotEditable
		}

		rec, err = tx.Records().GetByRegistration(ctx, reg.ID)
		switch {
		case errors.Is(err, mr.ErrRecordNotFound):
			rec = &mr.MedicalRecord{
				RegistrationID: reg.ID,
				PatientID:      reg.PatientID,
				DoctorID:       reg.DoctorID,
			}
		case err != nil:
			return err
		}

		rec.Complaint = cmd.Complaint
		rec.Diagnosis = cmd.Diagnosis
		rec.Suggestion = cmd.Suggestion
		if cmd.Vitals != nil {
			rec.Vitals = cmd.Vitals
		}
		return tx.Records().Save(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type ExaminationResult struct {
	Examination *mr.Examination  `json:"examination"`
	Payment     *payment.Payment `json:"payment"`
}

// CreateExamination performs an examination on the visit and bills it. The
// price is quoted before the write transaction opens so a slow catalog never
// holds row locks.
func (s *ConsultationService) CreateExamination(ctx context.Context, actor domain.Actor, cmd *mr.CreateExaminationCommand) (res *ExaminationResult, err error) {
	defer func() {
		var id uuid.UUID
		if res != nil {
			id = res.Examination.ID
		}
		s.audit(ctx, actor, domain.ActionCreate, "examination", id, err)
	}()

	examType := strings.TrimSpace(cmd.ExamType)
	if examType == "" {
		return nil, mr.ErrExamTypeRequired
	}

	if err := s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		_, err := s.loadRecordForDoctor(ctx, tx, actor, cmd.RegistrationID)
		return err
	}); err != nil {
		return nil, err
	}

	price := s.billing.QuoteExam(ctx, examType)

	var evts []domain.Event
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		rec, err := s.loadRecordForDoctor(ctx, tx, actor, cmd.RegistrationID)
		if err != nil {
			return err
		}

		now := s.now()
		exam := &mr.Examination{
			ID:             uuid.New(),
			RecordID:       rec.ID,
			RegistrationID: rec.RegistrationID,
			PatientID:      rec.PatientID,
			ExamType:       examType,
			Result:         s.drawResult(),
			PerformedAt:    now,
		}
		if err := tx.Records().CreateExamination(ctx, exam); err != nil {
			return fmt.Errorf("creating examination: %w", err)
		}

		p, err := s.billing.OnExamCreated(ctx, tx, exam, price)
		if err != nil {
			return err
		}

		res = &ExaminationResult{Examination: exam, Payment: p}
		evts = append(evts,
			domain.NewEvent(domain.EventExaminationCreated, exam.ID, exam.PatientID, now, map[string]any{
				"exam_type": exam.ExamType,
				"result":    exam.Result,
			}),
			paymentEvent(p, now),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, evts...)
	return res, nil
}

func (s *ConsultationService) loadRecordForDoctor(ctx context.Context, tx repository.Tx, actor domain.Actor, registrationID uuid.UUID) (*mr.MedicalRecord, error) {
	reg, err := tx.Registrations().GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if err := requireDoctor(actor, reg.DoctorID); err != nil {
		return nil, err
	}
	rec, err := tx.Records().GetByRegistration(ctx, reg.ID)
	if errors.Is(err, mr.ErrRecordNotFound) {
		return nil, mr.ErrRecordRequired
	}
	return rec, err
}

func (s *ConsultationService) drawResult() mr.ExamResult {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return mr.ExamResults[s.rng.Intn(len(mr.ExamResults))]
}

// SavePrescription creates or replaces the visit's prescription and moves
// medicine stock by the difference between the old and new quantities.
// Every increase is checked before any stock changes.
func (s *ConsultationService) SavePrescription(ctx context.Context, actor domain.Actor, cmd *prescription.SavePrescriptionCommand) (view *PrescriptionView, err error) {
	defer func() {
		var id uuid.UUID
		if view != nil {
			id = view.ID
		}
		s.audit(ctx, actor, domain.ActionUpdate, "prescription", id, err)
	}()

	if fields := prescription.ValidateItems(cmd.Items); len(fields) > 0 {
		return nil, validationError(fields...)
	}

	var pres *prescription.Prescription
	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().Lock(ctx, cmd.RegistrationID)
		if err != nil {
			return err
		}
		if err := requireDoctor(actor, reg.DoctorID); err != nil {
			return err
		}
		rec, err := tx.Records().GetByRegistration(ctx, reg.ID)
		if errors.Is(err, mr.ErrRecordNotFound) {
			return mr.ErrRecordRequired
		}
		if err != nil {
			return err
		}
		if reg.Status != registration.StatusInProgress {
			return prescription.ErrNotEditable
		}

		pres, err = tx.Prescriptions().GetByRecord(ctx, rec.ID)
		if errors.Is(err, prescription.ErrPrescriptionNotFound) {
			pres = nil
		} else if err != nil {
			return err
		}

		current := map[uuid.UUID]int{}
		if pres != nil {
			current = pres.Quantities()
		}
		changes := prescription.PlanStockChanges(current, cmd.Items)

		ids := make([]uuid.UUID, 0, len(current)+len(cmd.Items))
		for id := range current {
			ids = append(ids, id)
		}
		for _, it := range cmd.Items {
			if _, ok := current[it.MedicineID]; !ok {
				ids = append(ids, it.MedicineID)
			}
		}
		medicines, err := tx.Medicines().Lock(ctx, prescription.SortedIDs(ids))
		if err != nil {
			return fmt.Errorf("locking medicines: %w", err)
		}
		for _, it := range cmd.Items {
			if _, ok := medicines[it.MedicineID]; !ok {
				return fmt.Errorf("medicine %s: %w", it.MedicineID, prescription.ErrMedicineNotFound)
			}
		}

		if err := prescription.CheckStock(changes, medicines); err != nil {
			return err
		}
		for _, ch := range changes {
			if err := tx.Medicines().AdjustStock(ctx, ch.MedicineID, ch.Delta); err != nil {
				return fmt.Errorf("adjusting stock of %s: %w", ch.MedicineID, err)
			}
		}

		total := prescription.Total(cmd.Items, medicines)
		if pres == nil {
			pres = &prescription.Prescription{
				ID:             uuid.New(),
				RecordID:       rec.ID,
				RegistrationID: reg.ID,
				PatientID:      reg.PatientID,
				DoctorID:       reg.DoctorID,
				TotalAmount:    total,
			}
			for _, it := range cmd.Items {
				pres.Details = append(pres.Details, prescription.Detail{
					ID:             uuid.New(),
					PrescriptionID: pres.ID,
					MedicineID:     it.MedicineID,
					Quantity:       it.Quantity,
					Usage:          it.Usage,
				})
			}
			return tx.Prescriptions().Create(ctx, pres)
		}

		return s.replaceDetails(ctx, tx, pres, cmd.Items, total)
	})
	if err != nil {
		return nil, err
	}

	err = s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		view, err = buildPrescriptionView(ctx, tx, pres)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewEvent(domain.EventPrescriptionSaved, pres.ID, pres.PatientID, s.now(), map[string]any{
		"total_amount": pres.TotalAmount.StringFixed(2),
		"lines":        len(pres.Details),
	}))
	return view, nil
}

// replaceDetails edits the prescription lines in place: kept medicines are
// updated, new ones inserted and dropped ones deleted.
func (s *ConsultationService) replaceDetails(ctx context.Context, tx repository.Tx, pres *prescription.Prescription, items []prescription.Item, total decimal.Decimal) error {
	existing := make(map[uuid.UUID]prescription.Detail, len(pres.Details))
	for _, d := range pres.Details {
		existing[d.MedicineID] = d
	}

	details := make([]prescription.Detail, 0, len(items))
	for _, it := range items {
		d, ok := existing[it.MedicineID]
		if !ok {
			d = prescription.Detail{ID: uuid.New(), PrescriptionID: pres.ID, MedicineID: it.MedicineID}
		}
		delete(existing, it.MedicineID)
		d.Quantity = it.Quantity
		d.Usage = it.Usage
		if err := tx.Prescriptions().SaveDetail(ctx, &d); err != nil {
			return fmt.Errorf("saving prescription line: %w", err)
		}
		details = append(details, d)
	}
	for _, d := range existing {
		if err := tx.Prescriptions().DeleteDetail(ctx, d.ID); err != nil {
			return fmt.Errorf("deleting prescription line: %w", err)
		}
	}

	pres.Details = details
	pres.TotalAmount = total
	return tx.Prescriptions().UpdateTotal(ctx, pres)
}
