package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

type payloadMatcher struct {
	t    *testing.T
	want revisionRequestPayload
}

func (m payloadMatcher) Match(v interface{}) bool {
	data, ok := v.([]byte)
	if !ok {
		return false
	}
	var got revisionRequestPayload
	if err := json.Unmarshal(data, &got); err != nil {
		m.t.Logf("payload is not json: %v", err)
		return false
	}
	if got.Step != m.want.Step || got.RevisionComment != m.want.RevisionComment || len(got.Recipients) != len(m.want.Recipients) {
		return false
	}
	for i := range got.Recipients {
		if got.Recipients[i] != m.want.Recipients[i] {
			return false
		}
	}
	return true
}

func TestRevisionOutbox_Dispatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	outbox := NewRevisionOutbox(mock)
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO revision_request_outbox`).
		WithArgs(pgxmock.AnyArg(), "revision_requested.self", payloadMatcher{t: t, want: revisionRequestPayload{
			Step:            "self",
			RevisionComment: "fix it",
			Recipients:      []recipientPayload{{ID: "emp-1", Role: "employee"}, {ID: "mgr-1", Role: "primary_evaluator"}},
		}}, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = outbox.Dispatch(context.Background(), stepapproval.RevisionRequest{
		PeriodID:        "period-1",
		EmployeeID:      "emp-1",
		Step:            stepapproval.StepSelf,
		RevisionComment: "fix it",
		Recipients: []stepapproval.Recipient{
			{ID: "emp-1", Role: stepapproval.RoleEmployee},
			{ID: "mgr-1", Role: stepapproval.RolePrimaryEvaluator},
		},
		RequestedAt: at,
	})
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevisionOutbox_PendingAndMark(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	outbox := NewRevisionOutbox(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`attempts < \$2\s+ORDER BY attempts, created_at, id\s+LIMIT \$1\s+FOR UPDATE SKIP LOCKED`).
		WithArgs(10, 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "topic", "payload", "attempts", "created_at"}).
			AddRow("o-1", "revision_requested.primary", []byte(`{}`), 2, now))
	mock.ExpectExec(`SET published_at = \$1`).
		WithArgs(now, "o-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`SET attempts = attempts \+ 1`).
		WithArgs("timeout", "o-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	messages, err := outbox.Pending(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(messages) != 1 || messages[0].Topic != "revision_requested.primary" || messages[0].Attempts != 2 {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	if err := outbox.MarkPublished(context.Background(), "o-1", now); err != nil {
		t.Fatalf("MarkPublished returned error: %v", err)
	}
	if err := outbox.MarkFailed(context.Background(), "o-2", "timeout"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
