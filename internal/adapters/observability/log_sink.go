// Package observability は状態遷移イベントをログ・メトリクス・トレースへ送出する Sink 群です。
package observability

import (
	"context"
	"log/slog"
	"sort"

	"github.com/GTD-web/ems-backend-sub024/internal/core/event"
)

// LogSink はイベントを構造化ログとして出力します。
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink は LogSink を生成します。
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record はイベントを info レベルで記録します。
func (s *LogSink) Record(ctx context.Context, e event.Event) {
	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.String("period_id", e.PeriodID),
		slog.Time("occurred_at", e.OccurredAt),
	}
	if e.EmployeeID != "" {
		attrs = append(attrs, slog.String("employee_id", e.EmployeeID))
	}
	if e.Step != "" {
		attrs = append(attrs, slog.String("step", e.Step))
	}
	if e.EvaluatorID != "" {
		attrs = append(attrs, slog.String("evaluator_id", e.EvaluatorID))
	}
	for _, key := range sortedKeys(e.Attributes) {
		attrs = append(attrs, slog.String(key, e.Attributes[key]))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "evaluation event", attrs...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
