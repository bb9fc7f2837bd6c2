package evaluationperiod

import "context"

// Repository は評価期間永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, period *Period) (*Period, error)
	FindByID(ctx context.Context, id string) (*Period, error)
	// Update は version が expectedVersion と一致する場合のみ更新し、version を 1 進めます。
	// 一致しない場合は ErrVersionConflict を返します。
	Update(ctx context.Context, period *Period, expectedVersion int64) (*Period, error)
	List(ctx context.Context, filter ListPeriodsFilter) ([]*Period, string, error)
}

// ListPeriodsFilter は一覧取得用フィルタです。
type ListPeriodsFilter struct {
	Status *Status
	Limit  int
	Offset int
}
