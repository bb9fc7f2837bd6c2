package stepapproval

import (
	"context"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
)

// Repository は段階承認永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, approval *Approval) (*Approval, error)
	FindByKey(ctx context.Context, key Key) (*Approval, error)
	// Update は version が expectedVersion と一致する場合のみ更新し、version を 1 進めます。
	Update(ctx context.Context, approval *Approval, expectedVersion int64) (*Approval, error)
	ListByEmployee(ctx context.Context, periodID, employeeID string) ([]*Approval, error)
}

// TargetReader は評価対象 (評価ライン) の参照に必要な操作です。
type TargetReader interface {
	Find(ctx context.Context, periodID, employeeID string) (*evaluationtarget.Target, error)
}

// Dispatcher は修正要求を通知先へ配送する外部協調者です。
// 呼び出しは状態更新と同一トランザクション内で行われます。
type Dispatcher interface {
	Dispatch(ctx context.Context, req RevisionRequest) error
}

// SubmissionResetter は自己評価の評価者提出フラグを取り消す協調者です。
type SubmissionResetter interface {
	OnSelfStepRevisionRequested(ctx context.Context, periodID, employeeID string) error
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, RevisionRequest) error { return nil }

type noopSubmissionResetter struct{}

func (noopSubmissionResetter) OnSelfStepRevisionRequested(context.Context, string, string) error {
	return nil
}
