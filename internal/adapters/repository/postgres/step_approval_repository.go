package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const approvalColumns = `id, period_id, employee_id, step, evaluator_id, status, revision_comment, version, created_at, updated_at`

// StepApprovalRepository は PostgreSQL を利用した段階承認永続化の実装です。
type StepApprovalRepository struct {
	pool pgdb.Queryer
}

// NewStepApprovalRepository は StepApprovalRepository を生成します。
func NewStepApprovalRepository(pool pgdb.Queryer) *StepApprovalRepository {
	return &StepApprovalRepository{pool: pool}
}

// Create は段階承認行を作成します。
func (r *StepApprovalRepository) Create(ctx context.Context, a *stepapproval.Approval) (*stepapproval.Approval, error) {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employee_step_approvals (`+approvalColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+approvalColumns,
		id,
		a.PeriodID,
		a.EmployeeID,
		string(a.Step),
		a.EvaluatorID,
		string(a.Status),
		a.RevisionComment,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)

	created, err := scanApproval(row)
	if err != nil {
		return nil, translateApprovalPgError(err)
	}
	return created, nil
}

// FindByKey はキーで段階承認行を取得します。
func (r *StepApprovalRepository) FindByKey(ctx context.Context, key stepapproval.Key) (*stepapproval.Approval, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+approvalColumns+`
          FROM employee_step_approvals
         WHERE period_id = $1 AND employee_id = $2 AND step = $3 AND evaluator_id = $4
         LIMIT 1
    `, key.PeriodID, key.EmployeeID, string(key.Step), key.EvaluatorID)

	return scanApproval(row)
}

// Update は version が一致する場合のみ状態とコメントを更新します。
func (r *StepApprovalRepository) Update(ctx context.Context, a *stepapproval.Approval, expectedVersion int64) (*stepapproval.Approval, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employee_step_approvals
           SET status = $1,
               revision_comment = $2,
               version = version + 1,
               updated_at = $3
         WHERE id = $4 AND version = $5
        RETURNING `+approvalColumns,
		string(a.Status),
		a.RevisionComment,
		a.UpdatedAt,
		a.ID,
		expectedVersion,
	)

	updated, err := scanApproval(row)
	if errors.Is(err, stepapproval.ErrApprovalNotFound) {
		return nil, missingRowError(ctx, exec,
			`SELECT EXISTS (SELECT 1 FROM employee_step_approvals WHERE id = $1)`, []any{a.ID},
			stepapproval.ErrApprovalNotFound, stepapproval.ErrVersionConflict)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListByEmployee は社員の段階承認を段階順で返します。
func (r *StepApprovalRepository) ListByEmployee(ctx context.Context, periodID, employeeID string) ([]*stepapproval.Approval, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+approvalColumns+`
          FROM employee_step_approvals
         WHERE period_id = $1 AND employee_id = $2
         ORDER BY array_position(ARRAY['criteria', 'self', 'primary', 'secondary'], step), evaluator_id
    `, periodID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []*stepapproval.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return approvals, nil
}

// translateApprovalPgError は一意制約違反を並行作成との競合として扱います。
func translateApprovalPgError(err error) error {
	code, _, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		return stepapproval.ErrApprovalAlreadyExists
	case foreignKeyViolationCode:
		return evaluationtarget.ErrTargetNotFound
	}
	return err
}

func scanApproval(row pgx.Row) (*stepapproval.Approval, error) {
	var (
		id, periodID, employeeID, step, evaluatorID string
		status, comment                             string
		version                                     int64
		createdAt, updatedAt                        time.Time
	)

	if err := row.Scan(&id, &periodID, &employeeID, &step, &evaluatorID, &status, &comment, &version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, stepapproval.ErrApprovalNotFound
		}
		return nil, err
	}

	return &stepapproval.Approval{
		ID:              id,
		PeriodID:        periodID,
		EmployeeID:      employeeID,
		Step:            stepapproval.Step(step),
		EvaluatorID:     evaluatorID,
		Status:          stepapproval.Status(status),
		RevisionComment: comment,
		Version:         version,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}
