package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/payment"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/domain/registration"
	"github.com/dmehra2102/prod-golang-projects/carepath/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carepath/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStore(db), mock
}

func TestTranslateConstraintErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "active registration index",
			err:  &pgconn.PgError{Code: uniqueViolation, ConstraintName: database.IndexActiveRegistration},
			want: registration.ErrActiveVisitExists,
		},
		{
			name: "payment source index",
			err:  &pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_payments_exam"},
			want: payment.ErrAlreadyBilled,
		},
		{
			name: "stock check",
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "chk_medicines_stock"},
			want: prescription.ErrInsufficientStock,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(translate(tt.err, "op"), tt.want))
		})
	}
}

func TestTranslateFallbacks(t *testing.T) {
	assert.NoError(t, translate(nil, "op"))

	err := translate(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "uq_something_else"}, "creating thing")
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "creating thing")

	boom := errors.New("connection reset")
	err = translate(boom, "listing things")
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "listing things: connection reset", err.Error())
}

func TestNotFoundMapsMissingRow(t *testing.T) {
	assert.Equal(t, payment.ErrPaymentNotFound, notFound(gorm.ErrRecordNotFound, payment.ErrPaymentNotFound, "op"))

	boom := errors.New("timeout")
	assert.True(t, errors.Is(notFound(boom, payment.ErrPaymentNotFound, "op"), boom))
}

func TestPaymentGetByIDMissing(t *testing.T) {
	store, mock := setupStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "billing"\."payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := tx.Payments().GetByID(context.Background(), uuid.New())
		return err
	})
	assert.True(t, errors.Is(err, payment.ErrPaymentNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommitsAndRollsBack(t *testing.T) {
	store, mock := setupStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, store.WithinTx(ctx, func(repository.Tx) error { return nil }))

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := store.WithinTx(ctx, func(repository.Tx) error { return registration.ErrQuotaExceeded })
	assert.True(t, errors.Is(err, registration.ErrQuotaExceeded))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock(t *testing.T) {
	store, mock := setupStore(t)
	ctx := context.Background()
	repo := medicineRepo{store.db}
	id := uuid.New()

	mock.ExpectExec(`UPDATE "pharmacy"\."medicines" SET "stock"=stock - \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AdjustStock(ctx, id, 2))

	mock.ExpectExec(`UPDATE "pharmacy"\."medicines"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, prescription.ErrMedicineNotFound, repo.AdjustStock(ctx, id, 2))

	mock.ExpectExec(`UPDATE "pharmacy"\."medicines"`).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "chk_medicines_stock"})
	assert.True(t, errors.Is(repo.AdjustStock(ctx, id, 99), prescription.ErrInsufficientStock))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarizePaid(t *testing.T) {
	store, mock := setupStore(t)
	mock.ExpectQuery(`SELECT type, COUNT\(\*\) AS count, COALESCE\(SUM\(amount\), 0\) AS total FROM "billing"\."payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"type", "count", "total"}).
			AddRow("EXAM", 3, "105.00").
			AddRow("REGISTRATION", 2, "60.00"))

	lines, err := paymentRepo{store.db}.SummarizePaid(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, payment.TypeExam, lines[0].Type)
	assert.Equal(t, int64(3), lines[0].Count)
	assert.Equal(t, "105.00", lines[0].Total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
