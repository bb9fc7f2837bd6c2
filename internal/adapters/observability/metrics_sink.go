package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GTD-web/ems-backend-sub024/internal/core/event"
)

// MetricsSink はイベント種別ごとの件数を Prometheus カウンタに積み上げます。
type MetricsSink struct {
	events *prometheus.CounterVec
}

// NewMetricsSink はカウンタを reg に登録して MetricsSink を返します。
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "events_total",
		Help:      "Committed evaluation state transitions by event type and step.",
	}, []string{"type", "step"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &MetricsSink{events: events}, nil
}

// Record はカウンタを 1 進めます。
func (s *MetricsSink) Record(_ context.Context, e event.Event) {
	s.events.WithLabelValues(string(e.Type), e.Step).Inc()
}
