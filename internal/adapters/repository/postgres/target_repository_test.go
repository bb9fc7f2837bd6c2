package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
)

func TestTranslateTargetPgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateTargetPgError(&pgconn.PgError{Code: uniqueViolationCode}), evaluationtarget.ErrTargetAlreadyMapped) {
		t.Fatalf("expected already mapped mapping")
	}
	if !errors.Is(translateTargetPgError(&pgconn.PgError{Code: foreignKeyViolationCode}), evaluationperiod.ErrPeriodNotFound) {
		t.Fatalf("expected period not found mapping")
	}

	other := errors.New("random")
	if translateTargetPgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}

func TestTargetRepository_CreateAndFind(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewTargetRepository(mock)
	now := time.Now().UTC()
	columns := []string{"period_id", "employee_id", "primary_evaluator_id", "secondary_evaluator_ids", "created_at"}

	mock.ExpectQuery(`INSERT INTO evaluation_targets`).
		WithArgs("period-1", "emp-1", "mgr-1", []string{}, now).
		WillReturnRows(pgxmock.NewRows(columns).AddRow("period-1", "emp-1", "mgr-1", []string{}, now))

	created, err := repo.Create(context.Background(), &evaluationtarget.Target{PeriodID: "period-1", EmployeeID: "emp-1", PrimaryEvaluatorID: "mgr-1", CreatedAt: now})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.PrimaryEvaluatorID != "mgr-1" {
		t.Fatalf("unexpected target: %+v", created)
	}

	mock.ExpectQuery(`FROM evaluation_targets\s+WHERE period_id = \$1 AND employee_id = \$2`).
		WithArgs("period-1", "emp-2").
		WillReturnRows(pgxmock.NewRows(columns))

	if _, err := repo.Find(context.Background(), "period-1", "emp-2"); !errors.Is(err, evaluationtarget.ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
