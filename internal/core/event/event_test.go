package event

import (
	"context"
	"testing"
)

func TestMulti_RecordFansOut(t *testing.T) {
	t.Parallel()

	var got []Type
	collect := SinkFunc(func(_ context.Context, e Event) {
		got = append(got, e.Type)
	})

	sinks := Multi{collect, nil, NopSink{}, collect}
	sinks.Record(context.Background(), Event{Type: TypePhaseChanged})

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	for _, typ := range got {
		if typ != TypePhaseChanged {
			t.Fatalf("unexpected type %s", typ)
		}
	}
}
