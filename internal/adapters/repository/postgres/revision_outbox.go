package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GTD-web/ems-backend-sub024/internal/adapters/notification"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
	pgdb "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const revisionRequestedTopic = "revision_requested"

type recipientPayload struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type revisionRequestPayload struct {
	PeriodID        string             `json:"periodId"`
	EmployeeID      string             `json:"employeeId"`
	Step            string             `json:"step"`
	EvaluatorID     string             `json:"evaluatorId,omitempty"`
	RevisionComment string             `json:"revisionComment"`
	Recipients      []recipientPayload `json:"recipients"`
	RequestedAt     time.Time          `json:"requestedAt"`
}

// RevisionOutbox は修正要求を outbox テーブルに記録し、中継側へ未配送分を提供します。
type RevisionOutbox struct {
	pool pgdb.Queryer
}

// NewRevisionOutbox は RevisionOutbox を生成します。
func NewRevisionOutbox(pool pgdb.Queryer) *RevisionOutbox {
	return &RevisionOutbox{pool: pool}
}

// Dispatch は修正要求を呼び出し元と同じトランザクションで outbox に追加します。
func (o *RevisionOutbox) Dispatch(ctx context.Context, req stepapproval.RevisionRequest) error {
	recipients := make([]recipientPayload, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		recipients = append(recipients, recipientPayload{ID: r.ID, Role: string(r.Role)})
	}
	payload, err := json.Marshal(revisionRequestPayload{
		PeriodID:        req.PeriodID,
		EmployeeID:      req.EmployeeID,
		Step:            string(req.Step),
		EvaluatorID:     req.EvaluatorID,
		RevisionComment: req.RevisionComment,
		Recipients:      recipients,
		RequestedAt:     req.RequestedAt,
	})
	if err != nil {
		return fmt.Errorf("postgres: encode revision request: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, o.pool)
	if _, err := exec.Exec(ctx, `
        INSERT INTO revision_request_outbox (id, topic, payload, created_at)
        VALUES ($1, $2, $3, $4)
    `, uuid.NewString(), revisionRequestedTopic+"."+string(req.Step), payload, req.RequestedAt); err != nil {
		return fmt.Errorf("postgres: insert outbox: %w", err)
	}
	return nil
}

// Pending は未配送メッセージを行ロック付きで取得します。並行する中継とは重複しません。
// 試行回数が maxAttempts に達したメッセージは配送対象から外れます。
func (o *RevisionOutbox) Pending(ctx context.Context, limit, maxAttempts int) ([]notification.Message, error) {
	exec := pgdb.QueryerFromContext(ctx, o.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, topic, payload, attempts, created_at
          FROM revision_request_outbox
         WHERE published_at IS NULL
           AND attempts < $2
         ORDER BY attempts, created_at, id
         LIMIT $1
           FOR UPDATE SKIP LOCKED
    `, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []notification.Message
	for rows.Next() {
		var m notification.Message
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Attempts, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkPublished は配送済みとして記録します。
func (o *RevisionOutbox) MarkPublished(ctx context.Context, id string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, o.pool)
	_, err := exec.Exec(ctx, `
        UPDATE revision_request_outbox
           SET published_at = $1
         WHERE id = $2
    `, at, id)
	return err
}

// MarkFailed は配送失敗の回数と理由を記録します。
func (o *RevisionOutbox) MarkFailed(ctx context.Context, id string, reason string) error {
	exec := pgdb.QueryerFromContext(ctx, o.pool)
	_, err := exec.Exec(ctx, `
        UPDATE revision_request_outbox
           SET attempts = attempts + 1,
               last_error = $1
         WHERE id = $2
    `, reason, id)
	return err
}
