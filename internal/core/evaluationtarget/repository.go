package evaluationtarget

import (
	"context"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
)

// Repository は評価対象永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, target *Target) (*Target, error)
	Find(ctx context.Context, periodID, employeeID string) (*Target, error)
	ListByPeriod(ctx context.Context, periodID string) ([]*Target, error)
}

// PeriodReader は評価期間の参照に必要な操作です。
type PeriodReader interface {
	FindByID(ctx context.Context, id string) (*evaluationperiod.Period, error)
}

// ApprovalSeeder は評価対象登録時に段階承認の初期行を作成します。
type ApprovalSeeder interface {
	SeedApprovals(ctx context.Context, periodID, employeeID string, secondaryEvaluatorIDs []string) error
}
