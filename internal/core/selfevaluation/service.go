package selfevaluation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/event"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// UseCase は自己評価ユースケースの公開インターフェースです。
type UseCase interface {
	UpsertSelfEvaluation(ctx context.Context, in UpsertInput) (*SelfEvaluation, error)
	SubmitToEvaluator(ctx context.Context, in SubmitInput) ([]*SelfEvaluation, error)
	ListSelfEvaluations(ctx context.Context, in ListInput) ([]*SelfEvaluation, error)
}

// Service は自己評価の作成と評価者への提出を扱います。
type Service struct {
	repo    Repository
	periods PeriodReader
	clock   Clock
	tx      TransactionManager
	events  event.Sink
}

// NewService は Service を生成します。
func NewService(repo Repository, periods PeriodReader, clock Clock, tx TransactionManager, sink event.Sink) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &Service{repo: repo, periods: periods, clock: clock, tx: tx, events: sink}
}

// UpsertInput は自己評価の作成・更新時の入力です。
type UpsertInput struct {
	PeriodID   string
	EmployeeID string
	ItemID     string
	Content    string
	Score      *int
}

// SubmitInput は評価者への提出時の入力です。
type SubmitInput struct {
	PeriodID   string
	EmployeeID string
}

// ListInput は自己評価一覧取得時の入力です。
type ListInput struct {
	PeriodID   string
	EmployeeID string
}

// UpsertSelfEvaluation は自己評価項目を作成または更新します。
// 期間が進行中で selfEvaluationSettingEnabled が有効な場合のみ書き込めます。
func (s *Service) UpsertSelfEvaluation(ctx context.Context, in UpsertInput) (*SelfEvaluation, error) {
	periodID, employeeID, err := normalizeIDs(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, ErrInvalidItemID
	}
	if in.Score != nil && (*in.Score < minScore || *in.Score > maxScore) {
		return nil, ErrInvalidScore
	}

	var saved *SelfEvaluation
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureWritable(txCtx, periodID); err != nil {
			return err
		}

		now := s.clock.Now()
		working := &SelfEvaluation{
			PeriodID:   periodID,
			EmployeeID: employeeID,
			ItemID:     itemID,
			CreatedAt:  now,
		}
		existing, err := s.repo.FindByItem(txCtx, periodID, employeeID, itemID)
		switch {
		case err == nil:
			if existing.SubmittedToEvaluator {
				return ErrAlreadySubmitted
			}
			working = existing.Clone()
		case !errors.Is(err, ErrNotFound):
			return err
		}

		working.Content = strings.TrimSpace(in.Content)
		working.Score = in.Score
		working.UpdatedAt = now

		result, err := s.repo.Upsert(txCtx, working)
		if err != nil {
			return err
		}
		saved = result
		return nil
	}); err != nil {
		return nil, err
	}
	return saved, nil
}

// SubmitToEvaluator は社員の自己評価を 1 次評価者へ提出します。
func (s *Service) SubmitToEvaluator(ctx context.Context, in SubmitInput) ([]*SelfEvaluation, error) {
	periodID, employeeID, err := normalizeIDs(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var (
		submitted []*SelfEvaluation
		count     int64
		at        time.Time
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureWritable(txCtx, periodID); err != nil {
			return err
		}

		items, err := s.repo.ListByEmployee(txCtx, periodID, employeeID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrNothingToSubmit
		}

		at = s.clock.Now()
		count, err = s.repo.MarkSubmittedToEvaluator(txCtx, periodID, employeeID, at)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrAlreadySubmitted
		}

		submitted, err = s.repo.ListByEmployee(txCtx, periodID, employeeID)
		return err
	}); err != nil {
		return nil, err
	}

	s.events.Record(ctx, event.Event{
		Type:       event.TypeSelfEvaluationSubmitted,
		PeriodID:   periodID,
		EmployeeID: employeeID,
		Attributes: map[string]string{"items": strconv.FormatInt(count, 10)},
		OccurredAt: at,
	})
	return submitted, nil
}

// ListSelfEvaluations は社員の自己評価項目を返します。
func (s *Service) ListSelfEvaluations(ctx context.Context, in ListInput) ([]*SelfEvaluation, error) {
	periodID, employeeID, err := normalizeIDs(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var items []*SelfEvaluation
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListByEmployee(txCtx, periodID, employeeID)
		if err != nil {
			return err
		}
		items = result
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

// OnSelfStepRevisionRequested は self 段階の修正要求に合わせて提出フラグを取り消します。
// 呼び出し元のトランザクションが context にあればそれに参加します。
func (s *Service) OnSelfStepRevisionRequested(ctx context.Context, periodID, employeeID string) error {
	periodID, employeeID, err := normalizeIDs(periodID, employeeID)
	if err != nil {
		return err
	}
	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		_, err := s.repo.ResetSubmissionToEvaluator(txCtx, periodID, employeeID)
		return err
	})
}

func (s *Service) ensureWritable(ctx context.Context, periodID string) error {
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != evaluationperiod.StatusInProgress {
		return ErrPeriodNotInProgress
	}
	if !period.Settings.SelfEvaluationEnabled {
		return ErrWriteDisabled
	}
	return nil
}

func normalizeIDs(rawPeriodID, rawEmployeeID string) (string, string, error) {
	periodID := strings.TrimSpace(rawPeriodID)
	if periodID == "" {
		return "", "", ErrInvalidPeriodID
	}
	employeeID := strings.TrimSpace(rawEmployeeID)
	if employeeID == "" {
		return "", "", ErrInvalidEmployeeID
	}
	return periodID, employeeID, nil
}
