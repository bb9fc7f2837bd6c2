package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const selfEvaluationColumns = `id, period_id, employee_id, item_id, content, score,
               submitted_to_evaluator, submitted_to_evaluator_at, created_at, updated_at`

// SelfEvaluationRepository は PostgreSQL を利用した自己評価永続化の実装です。
type SelfEvaluationRepository struct {
	pool pgdb.Queryer
}

// NewSelfEvaluationRepository は SelfEvaluationRepository を生成します。
func NewSelfEvaluationRepository(pool pgdb.Queryer) *SelfEvaluationRepository {
	return &SelfEvaluationRepository{pool: pool}
}

// Upsert は自己評価項目を作成し、既存であれば内容と点数を更新します。
func (r *SelfEvaluationRepository) Upsert(ctx context.Context, e *selfevaluation.SelfEvaluation) (*selfevaluation.SelfEvaluation, error) {
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO self_evaluations (id, period_id, employee_id, item_id, content, score, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (period_id, employee_id, item_id) DO UPDATE
           SET content = EXCLUDED.content,
               score = EXCLUDED.score,
               updated_at = EXCLUDED.updated_at
        RETURNING `+selfEvaluationColumns,
		id,
		e.PeriodID,
		e.EmployeeID,
		e.ItemID,
		e.Content,
		nullableInt(e.Score),
		e.CreatedAt,
		e.UpdatedAt,
	)

	return scanSelfEvaluation(row)
}

// FindByItem は項目単位で自己評価を取得します。
func (r *SelfEvaluationRepository) FindByItem(ctx context.Context, periodID, employeeID, itemID string) (*selfevaluation.SelfEvaluation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+selfEvaluationColumns+`
          FROM self_evaluations
         WHERE period_id = $1 AND employee_id = $2 AND item_id = $3
         LIMIT 1
    `, periodID, employeeID, itemID)

	return scanSelfEvaluation(row)
}

// ListByEmployee は社員の自己評価を項目 ID 順で返します。
func (r *SelfEvaluationRepository) ListByEmployee(ctx context.Context, periodID, employeeID string) ([]*selfevaluation.SelfEvaluation, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+selfEvaluationColumns+`
          FROM self_evaluations
         WHERE period_id = $1 AND employee_id = $2
         ORDER BY item_id
    `, periodID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*selfevaluation.SelfEvaluation
	for rows.Next() {
		e, err := scanSelfEvaluation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkSubmittedToEvaluator は未提出の項目を提出済みにします。
func (r *SelfEvaluationRepository) MarkSubmittedToEvaluator(ctx context.Context, periodID, employeeID string, at time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE self_evaluations
           SET submitted_to_evaluator = TRUE,
               submitted_to_evaluator_at = $1,
               updated_at = $1
         WHERE period_id = $2 AND employee_id = $3 AND submitted_to_evaluator = FALSE
    `, at, periodID, employeeID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResetSubmissionToEvaluator は提出フラグを全て取り消します。
func (r *SelfEvaluationRepository) ResetSubmissionToEvaluator(ctx context.Context, periodID, employeeID string) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE self_evaluations
           SET submitted_to_evaluator = FALSE,
               submitted_to_evaluator_at = NULL
         WHERE period_id = $1 AND employee_id = $2 AND submitted_to_evaluator = TRUE
    `, periodID, employeeID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSelfEvaluation(row pgx.Row) (*selfevaluation.SelfEvaluation, error) {
	var (
		id, periodID, employeeID, itemID, content string
		score                                     sql.NullInt32
		submitted                                 bool
		submittedAt                               sql.NullTime
		createdAt, updatedAt                      time.Time
	)

	if err := row.Scan(&id, &periodID, &employeeID, &itemID, &content, &score, &submitted, &submittedAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, selfevaluation.ErrNotFound
		}
		return nil, err
	}

	e := &selfevaluation.SelfEvaluation{
		ID:                   id,
		PeriodID:             periodID,
		EmployeeID:           employeeID,
		ItemID:               itemID,
		Content:              content,
		SubmittedToEvaluator: submitted,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}
	if score.Valid {
		v := int(score.Int32)
		e.Score = &v
	}
	if submittedAt.Valid {
		at := submittedAt.Time
		e.SubmittedToEvaluatorAt = &at
	}
	return e, nil
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
