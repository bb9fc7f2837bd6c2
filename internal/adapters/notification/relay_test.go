package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	pending   []Message
	published map[string]time.Time
	failed    map[string]string
	err       error
}

func newFakeStore(messages ...Message) *fakeStore {
	return &fakeStore{pending: messages, published: map[string]time.Time{}, failed: map[string]string{}}
}

func (s *fakeStore) Pending(_ context.Context, limit, maxAttempts int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var candidates []Message
	for _, m := range s.pending {
		if _, done := s.published[m.ID]; done {
			continue
		}
		if m.Attempts >= maxAttempts {
			continue
		}
		candidates = append(candidates, m)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Attempts < candidates[j].Attempts
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *fakeStore) MarkPublished(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[id] = at
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = reason
	for i := range s.pending {
		if s.pending[i].ID == id {
			s.pending[i].Attempts++
		}
	}
	return nil
}

func storePublished(s *fakeStore) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.published))
	for id := range s.published {
		ids = append(ids, id)
	}
	return ids
}

type fakePublisher struct {
	subjects []string
	failOn   map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	if err, ok := p.failOn[string(data)]; ok {
		return err
	}
	p.subjects = append(p.subjects, subject)
	return nil
}

type countingTx struct {
	calls int
}

func (tx *countingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRelay_RunOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		Message{ID: "m1", Topic: "revision_requested.self", Payload: []byte("one")},
		Message{ID: "m2", Topic: "revision_requested.primary", Payload: []byte("two")},
		Message{ID: "m3", Topic: "revision_requested.secondary", Payload: []byte("three")},
	)
	publisher := &fakePublisher{failOn: map[string]error{"two": errors.New("no responders")}}
	tx := &countingTx{}
	relay := NewRelay(store, publisher, tx, discardLogger(), RelayConfig{SubjectPrefix: "evaluation", BatchSize: 10})

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, []string{"evaluation.revision_requested.self", "evaluation.revision_requested.secondary"}, publisher.subjects)
	assert.Contains(t, store.published, "m1")
	assert.Contains(t, store.published, "m3")
	assert.Equal(t, "no responders", store.failed["m2"])

	delete(publisher.failOn, "two")
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, store.published, "m2")
}

func TestRelay_RunOnce_BatchAndStoreError(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		Message{ID: "m1", Topic: "a", Payload: []byte("1")},
		Message{ID: "m2", Topic: "b", Payload: []byte("2")},
	)
	publisher := &fakePublisher{}
	relay := NewRelay(store, publisher, nil, discardLogger(), RelayConfig{BatchSize: 1})

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a"}, publisher.subjects)

	store.err = errors.New("db down")
	_, err = relay.RunOnce(context.Background())
	assert.ErrorIs(t, err, store.err)
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := newFakeStore(Message{ID: "m1", Topic: "x", Payload: []byte("1")})
	relay := NewRelay(store, &fakePublisher{}, nil, discardLogger(), RelayConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return len(storePublished(store)) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestRelay_FailingMessagesDoNotStarveNewerOnes(t *testing.T) {
	t.Parallel()

	store := newFakeStore(
		Message{ID: "bad-1", Topic: "revision_requested.self", Payload: []byte("bad")},
		Message{ID: "bad-2", Topic: "revision_requested.self", Payload: []byte("bad")},
		Message{ID: "bad-3", Topic: "revision_requested.self", Payload: []byte("bad")},
		Message{ID: "good", Topic: "revision_requested.primary", Payload: []byte("good")},
	)
	publisher := &fakePublisher{failOn: map[string]error{"bad": errors.New("payload rejected")}}
	relay := NewRelay(store, publisher, nil, discardLogger(), RelayConfig{BatchSize: 3, MaxAttempts: 3})

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "message with fewer attempts must be picked before retried ones")
	assert.Contains(t, storePublished(store), "good")
}

func TestRelay_StopsRetryingAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	store := newFakeStore(Message{ID: "bad", Topic: "x", Payload: []byte("bad")})
	publisher := &fakePublisher{failOn: map[string]error{"bad": errors.New("payload rejected")}}
	relay := NewRelay(store, publisher, nil, discardLogger(), RelayConfig{MaxAttempts: 2})

	for i := 0; i < 5; i++ {
		_, err := relay.RunOnce(context.Background())
		require.NoError(t, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 2, store.pending[0].Attempts)
	assert.Empty(t, store.published)
}
