// Package event はユースケースが発行する構造化イベントと、その送出先の抽象を定義します。
package event

import (
	"context"
	"time"
)

// Type はイベント種別です。
type Type string

const (
	TypePeriodCreated           Type = "period_created"
	TypePeriodStarted           Type = "period_started"
	TypePeriodCompleted         Type = "period_completed"
	TypePhaseChanged            Type = "phase_changed"
	TypeSettingChanged          Type = "setting_changed"
	TypeEmployeeMapped          Type = "employee_mapped"
	TypeStepStatusChanged       Type = "step_status_changed"
	TypeSelfEvaluationSubmitted Type = "self_evaluation_submitted"
)

// Event はコミット済みの状態遷移を表します。
type Event struct {
	Type        Type
	PeriodID    string
	EmployeeID  string
	Step        string
	EvaluatorID string
	Attributes  map[string]string
	OccurredAt  time.Time
}

// Sink はイベントの送出先です。Record はエラーを返さず、呼び出し元の処理結果に影響しません。
type Sink interface {
	Record(ctx context.Context, e Event)
}

// NopSink は何もしない Sink です。
type NopSink struct{}

// Record はイベントを破棄します。
func (NopSink) Record(context.Context, Event) {}

// Multi は複数の Sink へ順にイベントを送出します。
type Multi []Sink

// Record は登録された全ての Sink へイベントを渡します。
func (m Multi) Record(ctx context.Context, e Event) {
	for _, s := range m {
		if s == nil {
			continue
		}
		s.Record(ctx, e)
	}
}

// SinkFunc は関数を Sink として扱うアダプタです。
type SinkFunc func(ctx context.Context, e Event)

// Record は f(ctx, e) を呼び出します。
func (f SinkFunc) Record(ctx context.Context, e Event) {
	f(ctx, e)
}
