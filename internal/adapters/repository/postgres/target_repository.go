package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

// TargetRepository は PostgreSQL を利用した評価対象永続化の実装です。
type TargetRepository struct {
	pool pgdb.Queryer
}

// NewTargetRepository は TargetRepository を生成します。
func NewTargetRepository(pool pgdb.Queryer) *TargetRepository {
	return &TargetRepository{pool: pool}
}

// Create は社員を評価期間に登録します。
func (r *TargetRepository) Create(ctx context.Context, t *evaluationtarget.Target) (*evaluationtarget.Target, error) {
	secondaries := t.SecondaryEvaluatorIDs
	if secondaries == nil {
		secondaries = []string{}
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO evaluation_targets (period_id, employee_id, primary_evaluator_id, secondary_evaluator_ids, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING period_id, employee_id, primary_evaluator_id, secondary_evaluator_ids, created_at
    `, t.PeriodID, t.EmployeeID, t.PrimaryEvaluatorID, secondaries, t.CreatedAt)

	created, err := scanTarget(row)
	if err != nil {
		return nil, translateTargetPgError(err)
	}
	return created, nil
}

// Find は評価期間と社員で評価対象を取得します。
func (r *TargetRepository) Find(ctx context.Context, periodID, employeeID string) (*evaluationtarget.Target, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT period_id, employee_id, primary_evaluator_id, secondary_evaluator_ids, created_at
          FROM evaluation_targets
         WHERE period_id = $1 AND employee_id = $2
         LIMIT 1
    `, periodID, employeeID)

	return scanTarget(row)
}

// ListByPeriod は評価期間に登録された評価対象を社員 ID 順で返します。
func (r *TargetRepository) ListByPeriod(ctx context.Context, periodID string) ([]*evaluationtarget.Target, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT period_id, employee_id, primary_evaluator_id, secondary_evaluator_ids, created_at
          FROM evaluation_targets
         WHERE period_id = $1
         ORDER BY employee_id
    `, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*evaluationtarget.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

func scanTarget(row pgx.Row) (*evaluationtarget.Target, error) {
	var (
		periodID, employeeID, primary string
		secondaries                   []string
		createdAt                     time.Time
	)

	if err := row.Scan(&periodID, &employeeID, &primary, &secondaries, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, evaluationtarget.ErrTargetNotFound
		}
		return nil, err
	}

	return &evaluationtarget.Target{
		PeriodID:              periodID,
		EmployeeID:            employeeID,
		PrimaryEvaluatorID:    primary,
		SecondaryEvaluatorIDs: secondaries,
		CreatedAt:             createdAt,
	}, nil
}

func translateTargetPgError(err error) error {
	code, _, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		return evaluationtarget.ErrTargetAlreadyMapped
	case foreignKeyViolationCode:
		return evaluationperiod.ErrPeriodNotFound
	}
	return err
}
