package selfevaluation

import (
	"context"
	"time"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
)

// Repository は自己評価永続化の抽象です。
type Repository interface {
	// Upsert は (periodID, employeeID, itemID) を一意キーとして作成または更新します。
	Upsert(ctx context.Context, evaluation *SelfEvaluation) (*SelfEvaluation, error)
	FindByItem(ctx context.Context, periodID, employeeID, itemID string) (*SelfEvaluation, error)
	ListByEmployee(ctx context.Context, periodID, employeeID string) ([]*SelfEvaluation, error)
	// MarkSubmittedToEvaluator は未提出の項目を提出済みにし、更新件数を返します。
	MarkSubmittedToEvaluator(ctx context.Context, periodID, employeeID string, at time.Time) (int64, error)
	// ResetSubmissionToEvaluator は全項目の提出フラグを false に戻し、更新件数を返します。
	ResetSubmissionToEvaluator(ctx context.Context, periodID, employeeID string) (int64, error)
}

// PeriodReader は評価期間の参照に必要な操作です。
type PeriodReader interface {
	FindByID(ctx context.Context, id string) (*evaluationperiod.Period, error)
}
