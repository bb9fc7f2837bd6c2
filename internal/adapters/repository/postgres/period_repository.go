package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const periodColumns = `id, name, status, current_phase,
               criteria_setting_enabled, self_evaluation_setting_enabled, final_evaluation_setting_enabled,
               manually_set_fields, version, created_at, updated_at`

// PeriodRepository は PostgreSQL を利用した評価期間永続化の実装です。
type PeriodRepository struct {
	pool pgdb.Queryer
}

// NewPeriodRepository は PeriodRepository を生成します。
func NewPeriodRepository(pool pgdb.Queryer) *PeriodRepository {
	return &PeriodRepository{pool: pool}
}

// Create は評価期間を新規作成します。
func (r *PeriodRepository) Create(ctx context.Context, p *evaluationperiod.Period) (*evaluationperiod.Period, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO evaluation_periods (id, name, status, current_phase,
               criteria_setting_enabled, self_evaluation_setting_enabled, final_evaluation_setting_enabled,
               manually_set_fields, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+periodColumns,
		id,
		p.Name,
		string(p.Status),
		string(p.CurrentPhase),
		p.Settings.CriteriaEnabled,
		p.Settings.SelfEvaluationEnabled,
		p.Settings.FinalEvaluationEnabled,
		fieldNames(p.ManuallySetFields),
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)

	created, err := scanPeriod(row)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindByID は ID で評価期間を取得します。
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*evaluationperiod.Period, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+periodColumns+`
          FROM evaluation_periods
         WHERE id = $1
         LIMIT 1
    `, id)

	return scanPeriod(row)
}

// Update は version が一致する場合のみ評価期間を更新します。
func (r *PeriodRepository) Update(ctx context.Context, p *evaluationperiod.Period, expectedVersion int64) (*evaluationperiod.Period, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE evaluation_periods
           SET name = $1,
               status = $2,
               current_phase = $3,
               criteria_setting_enabled = $4,
               self_evaluation_setting_enabled = $5,
               final_evaluation_setting_enabled = $6,
               manually_set_fields = $7,
               version = version + 1,
               updated_at = $8
         WHERE id = $9 AND version = $10
        RETURNING `+periodColumns,
		p.Name,
		string(p.Status),
		string(p.CurrentPhase),
		p.Settings.CriteriaEnabled,
		p.Settings.SelfEvaluationEnabled,
		p.Settings.FinalEvaluationEnabled,
		fieldNames(p.ManuallySetFields),
		p.UpdatedAt,
		p.ID,
		expectedVersion,
	)

	updated, err := scanPeriod(row)
	if errors.Is(err, evaluationperiod.ErrPeriodNotFound) {
		return nil, missingRowError(ctx, exec,
			`SELECT EXISTS (SELECT 1 FROM evaluation_periods WHERE id = $1)`, []any{p.ID},
			evaluationperiod.ErrPeriodNotFound, evaluationperiod.ErrVersionConflict)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List は評価期間の一覧を取得します。
func (r *PeriodRepository) List(ctx context.Context, filter evaluationperiod.ListPeriodsFilter) ([]*evaluationperiod.Period, string, error) {
	if filter.Limit <= 0 {
		return nil, "", evaluationperiod.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", evaluationperiod.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1
	args := make([]any, 0, 3)

	whereClause := ""
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		whereClause = " WHERE status = $" + strconv.Itoa(len(args))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT ` + periodColumns + `
          FROM evaluation_periods` + whereClause + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	periods := make([]*evaluationperiod.Period, 0, filter.Limit)
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, "", err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextToken string
	if len(periods) == limitWithBuffer {
		periods = periods[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}
	return periods, nextToken, nil
}

func scanPeriod(row pgx.Row) (*evaluationperiod.Period, error) {
	var (
		id, name, status, phase string
		criteria, self, final   bool
		manual                  []string
		version                 int64
		createdAt, updatedAt    time.Time
	)

	if err := row.Scan(&id, &name, &status, &phase, &criteria, &self, &final, &manual, &version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, evaluationperiod.ErrPeriodNotFound
		}
		return nil, err
	}

	fields := make([]evaluationperiod.SettingField, 0, len(manual))
	for _, f := range manual {
		fields = append(fields, evaluationperiod.SettingField(f))
	}

	return &evaluationperiod.Period{
		ID:           id,
		Name:         name,
		Status:       evaluationperiod.Status(status),
		CurrentPhase: evaluationperiod.Phase(phase),
		Settings: evaluationperiod.Settings{
			CriteriaEnabled:        criteria,
			SelfEvaluationEnabled:  self,
			FinalEvaluationEnabled: final,
		},
		ManuallySetFields: fields,
		Version:           version,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}, nil
}

func fieldNames(fields []evaluationperiod.SettingField) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, string(f))
	}
	return names
}
