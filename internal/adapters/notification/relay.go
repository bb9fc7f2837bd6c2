package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultBatchSize   = 100
	defaultInterval    = 2 * time.Second
	defaultMaxAttempts = 5
)

// RelayConfig は Relay の動作設定です。
// MaxAttempts 回配送に失敗したメッセージは中継対象から外れ、outbox に残ります。
type RelayConfig struct {
	SubjectPrefix string
	BatchSize     int
	Interval      time.Duration
	MaxAttempts   int
}

// Relay は outbox の未配送メッセージを Publisher へ中継します。
type Relay struct {
	store     Store
	publisher Publisher
	tx        TransactionManager
	logger    *slog.Logger
	cfg       RelayConfig
	now       func() time.Time
}

// NewRelay は Relay を生成します。
func NewRelay(store Store, publisher Publisher, tx TransactionManager, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		tx:        tx,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run は ctx が終了するまで一定間隔で RunOnce を繰り返します。
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "outbox relay failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce は 1 バッチ分を中継し、配送できた件数を返します。
// 配送に失敗したメッセージは試行回数を記録して次回に持ち越します。
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.within(ctx, func(txCtx context.Context) error {
		messages, err := r.store.Pending(txCtx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			subject := r.subject(msg.Topic)
			if err := r.publisher.Publish(txCtx, subject, msg.Payload); err != nil {
				attempts := msg.Attempts + 1
				level := slog.LevelWarn
				logMsg := "outbox message not delivered"
				if attempts >= r.cfg.MaxAttempts {
					level = slog.LevelError
					logMsg = "outbox message abandoned after max attempts"
				}
				r.logger.LogAttrs(txCtx, level, logMsg,
					slog.String("id", msg.ID),
					slog.String("subject", subject),
					slog.Int("attempts", attempts),
					slog.Any("error", err))
				if markErr := r.store.MarkFailed(txCtx, msg.ID, err.Error()); markErr != nil {
					return markErr
				}
				continue
			}
			if err := r.store.MarkPublished(txCtx, msg.ID, r.now()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func (r *Relay) subject(topic string) string {
	if r.cfg.SubjectPrefix == "" {
		return topic
	}
	return r.cfg.SubjectPrefix + "." + topic
}

func (r *Relay) within(ctx context.Context, fn func(context.Context) error) error {
	if r.tx == nil {
		return fn(ctx)
	}
	return r.tx.WithinReadWrite(ctx, fn)
}
