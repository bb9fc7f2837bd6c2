// Package notification は修正要求 outbox の中継と NATS JetStream への配送を扱います。
package notification

import (
	"context"
	"time"
)

// Message は outbox に保存された未配送メッセージです。
type Message struct {
	ID        string
	Topic     string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// Store は outbox の読み出しと配送結果の記録を行います。
type Store interface {
	// Pending は試行回数が maxAttempts 未満の未配送メッセージを、
	// 試行回数の少ない順、作成順に最大 limit 件返します。
	Pending(ctx context.Context, limit, maxAttempts int) ([]Message, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Publisher は subject へメッセージを配送します。
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}
