package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/GTD-web/ems-backend-sub024/internal/core/event"
)

// TraceSink はイベントを現在のスパンにスパンイベントとして付与します。
type TraceSink struct{}

// Record は ctx にスパンが無ければ何もしません。
func (TraceSink) Record(ctx context.Context, e event.Event) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("evaluation.period_id", e.PeriodID),
	}
	if e.EmployeeID != "" {
		attrs = append(attrs, attribute.String("evaluation.employee_id", e.EmployeeID))
	}
	if e.Step != "" {
		attrs = append(attrs, attribute.String("evaluation.step", e.Step))
	}
	for _, key := range sortedKeys(e.Attributes) {
		attrs = append(attrs, attribute.String("evaluation."+key, e.Attributes[key]))
	}
	span.AddEvent(string(e.Type), trace.WithAttributes(attrs...), trace.WithTimestamp(e.OccurredAt))
}
