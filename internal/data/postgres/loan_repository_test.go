package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var loanScanColumns = []string{
	"id", "member_id", "application_id", "serial_number", "principal", "annual_rate_pct",
	"term_months", "emi", "total_repayable", "outstanding_balance", "principal_paid", "interest_paid",
	"penalty_paid", "penalty_amount", "interest_accrued", "classification", "days_in_arrears",
	"arrears_amount", "status", "disbursed_at", "next_payment_date", "last_payment_date",
	"version", "created_at", "updated_at",
}

func testLoanRow(l *loan.Loan) *pgxmock.Rows {
	var serial *string
	if l.SerialNumber != "" {
		serial = &l.SerialNumber
	}
	return pgxmock.NewRows(loanScanColumns).AddRow(
		l.ID, l.MemberID, l.ApplicationID, serial,
		l.Principal, l.AnnualRatePct, l.TermMonths, l.EMI, l.TotalRepayable,
		l.Outstanding, l.PrincipalPaid, l.InterestPaid, l.PenaltyPaid,
		l.PenaltyAmount, l.InterestAccrued, l.Classification, l.DaysInArrears,
		l.ArrearsAmount, l.Status, l.DisbursedAt, l.NextPaymentDate,
		l.LastPaymentDate, l.Version, l.CreatedAt, l.UpdatedAt,
	)
}

func testLoan(t *testing.T) *loan.Loan {
	t.Helper()
	disbursed := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	l, err := loan.NewLoan(
		uuid.New(), uuid.New(),
		decimal.NewFromInt(100_000), decimal.NewFromInt(12), 12,
		decimal.NewFromFloat(8884.88), decimal.NewFromFloat(106618.53),
		disbursed, disbursed.AddDate(0, 1, 0),
	)
	require.NoError(t, err)
	return l
}

func TestLoanRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	l := testLoan(t)

	query := `FROM loans WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(l.ID).WillReturnRows(testLoanRow(l))

		got, err := repo.GetByID(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, l.ID, got.ID)
		assert.True(t, got.Principal.Equal(l.Principal))
		assert.True(t, got.Outstanding.Equal(l.Outstanding))
		assert.Equal(t, shared.LoanStatusDisbursed, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).WithArgs(missing).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, missing)
		assert.Nil(t, got)
		var notFoundErr loan.ErrLoanNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, missing, notFoundErr.LoanID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	l := testLoan(t)

	mock.ExpectQuery(`FROM loans WHERE id = \$1 FOR UPDATE`).
		WithArgs(l.ID).
		WillReturnRows(testLoanRow(l))

	got, err := repo.LockForUpdate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}

	l := testLoan(t)
	l.Version = 2 // Simulates a mutation after load

	query := `UPDATE loans`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				nullableString(l.SerialNumber), l.TotalRepayable, l.Outstanding,
				l.PrincipalPaid, l.InterestPaid, l.PenaltyPaid,
				l.PenaltyAmount, l.InterestAccrued, l.Classification,
				l.DaysInArrears, l.ArrearsAmount, l.Status,
				l.NextPaymentDate, l.LastPaymentDate, l.Version, l.UpdatedAt,
				l.ID, l.Version-1,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, l)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				nullableString(l.SerialNumber), l.TotalRepayable, l.Outstanding,
				l.PrincipalPaid, l.InterestPaid, l.PenaltyPaid,
				l.PenaltyAmount, l.InterestAccrued, l.Classification,
				l.DaysInArrears, l.ArrearsAmount, l.Status,
				l.NextPaymentDate, l.LastPaymentDate, l.Version, l.UpdatedAt,
				l.ID, l.Version-1,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, l)
		var concurrentErr loan.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentErr)
		assert.Equal(t, l.ID, concurrentErr.LoanID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_ListOverdue(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}

	first := testLoan(t)
	second := testLoan(t)

	query := `WHERE status IN \('DISBURSED', 'ACTIVE'\) AND next_payment_date < NOW\(\)`

	t.Run("returns overdue loans", func(t *testing.T) {
		rows := testLoanRow(first)
		rows.AddRow(
			second.ID, second.MemberID, second.ApplicationID, (*string)(nil),
			second.Principal, second.AnnualRatePct, second.TermMonths, second.EMI, second.TotalRepayable,
			second.Outstanding, second.PrincipalPaid, second.InterestPaid, second.PenaltyPaid,
			second.PenaltyAmount, second.InterestAccrued, second.Classification, second.DaysInArrears,
			second.ArrearsAmount, second.Status, second.DisbursedAt, second.NextPaymentDate,
			second.LastPaymentDate, second.Version, second.CreatedAt, second.UpdatedAt,
		)
		mock.ExpectQuery(query).WithArgs(100).WillReturnRows(rows)

		loans, err := repo.ListOverdue(ctx, 100)
		require.NoError(t, err)
		require.Len(t, loans, 2)
		assert.Equal(t, first.ID, loans[0].ID)
		assert.Equal(t, second.ID, loans[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(100).WillReturnError(errors.New("db error"))

		loans, err := repo.ListOverdue(ctx, 100)
		assert.Error(t, err)
		assert.Nil(t, loans)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoanRepository_ScheduleItems(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LoanRepository{querier: mock, logger: logger}
	loanID := uuid.New()
	now := time.Now()

	item := &loan.ScheduleItem{
		ID:              uuid.New(),
		LoanID:          loanID,
		InstallmentNo:   1,
		DueDate:         now.AddDate(0, 1, 0),
		PrincipalAmount: decimal.NewFromFloat(7884.88),
		InterestAmount:  decimal.NewFromInt(1000),
		PaidAmount:      decimal.Zero,
		Status:          shared.ScheduleItemStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	t.Run("create", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO schedule_items`).
			WithArgs(
				item.ID, item.LoanID, item.InstallmentNo, item.DueDate,
				item.PrincipalAmount, item.InterestAmount, item.PaidAmount,
				item.Status, item.CreatedAt, item.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.CreateScheduleItems(ctx, []*loan.ScheduleItem{item})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock loads in due date order", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "loan_id", "installment_no", "due_date", "principal_amount",
			"interest_amount", "paid_amount", "status", "created_at", "updated_at"}).
			AddRow(item.ID, item.LoanID, item.InstallmentNo, item.DueDate, item.PrincipalAmount,
				item.InterestAmount, item.PaidAmount, item.Status, item.CreatedAt, item.UpdatedAt)

		mock.ExpectQuery(`ORDER BY due_date ASC(.|\n)*FOR UPDATE`).
			WithArgs(loanID).
			WillReturnRows(rows)

		items, err := repo.LockScheduleItems(ctx, loanID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, item.ID, items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update", func(t *testing.T) {
		mock.ExpectExec(`UPDATE schedule_items`).
			WithArgs(item.PaidAmount, item.Status, item.UpdatedAt, item.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateScheduleItem(ctx, item)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update missing item", func(t *testing.T) {
		mock.ExpectExec(`UPDATE schedule_items`).
			WithArgs(item.PaidAmount, item.Status, item.UpdatedAt, item.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateScheduleItem(ctx, item)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
