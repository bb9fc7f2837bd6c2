package evaluationtarget

import (
	"context"
	"errors"
	"fmt"
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

// UseCase は評価対象ユースケースの公開インターフェースです。
type UseCase interface {
	MapEmployee(ctx context.Context, in MapEmployeeInput) (*Target, error)
	GetTarget(ctx context.Context, in GetTargetInput) (*Target, error)
	ListTargets(ctx context.Context, in ListTargetsInput) ([]*Target, error)
}

// Service は評価期間への社員登録を扱います。
type Service struct {
	repo    Repository
	periods PeriodReader
	seeder  ApprovalSeeder
	clock   Clock
	tx      TransactionManager
	events  event.Sink
}

// NewService は Service を生成します。
func NewService(repo Repository, periods PeriodReader, seeder ApprovalSeeder, clock Clock, tx TransactionManager, sink event.Sink) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if sink == nil {
		sink = event.NopSink{}
	}
	return &Service{repo: repo, periods: periods, seeder: seeder, clock: clock, tx: tx, events: sink}
}

// MapEmployeeInput は評価対象登録時の入力です。
type MapEmployeeInput struct {
	PeriodID              string
	EmployeeID            string
	PrimaryEvaluatorID    string
	SecondaryEvaluatorIDs []string
}

// GetTargetInput は評価対象取得時の入力です。
type GetTargetInput struct {
	PeriodID   string
	EmployeeID string
}

// ListTargetsInput は評価対象一覧取得時の入力です。
type ListTargetsInput struct {
	PeriodID string
}

// MapEmployee は社員を評価期間に登録し、段階承認の初期行を同一トランザクションで作成します。
func (s *Service) MapEmployee(ctx context.Context, in MapEmployeeInput) (*Target, error) {
	periodID, employeeID, err := normalizeKey(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	primary := strings.TrimSpace(in.PrimaryEvaluatorID)
	if primary == "" {
		return nil, fmt.Errorf("primary_evaluator_id: %w", ErrInvalidEvaluatorID)
	}

	secondaries, err := normalizeEvaluators(in.SecondaryEvaluatorIDs)
	if err != nil {
		return nil, err
	}

	var created *Target
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		period, err := s.periods.FindByID(txCtx, periodID)
		if err != nil {
			return err
		}
		if period.Status == evaluationperiod.StatusCompleted {
			return ErrPeriodCompleted
		}

		if _, err := s.repo.Find(txCtx, periodID, employeeID); err == nil {
			return ErrTargetAlreadyMapped
		} else if !errors.Is(err, ErrTargetNotFound) {
			return err
		}

		result, err := s.repo.Create(txCtx, &Target{
			PeriodID:              periodID,
			EmployeeID:            employeeID,
			PrimaryEvaluatorID:    primary,
			SecondaryEvaluatorIDs: secondaries,
			CreatedAt:             s.clock.Now(),
		})
		if err != nil {
			return err
		}

		if s.seeder != nil {
			if err := s.seeder.SeedApprovals(txCtx, periodID, employeeID, secondaries); err != nil {
				return err
			}
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Record(ctx, event.Event{
		Type:       event.TypeEmployeeMapped,
		PeriodID:   created.PeriodID,
		EmployeeID: created.EmployeeID,
		Attributes: map[string]string{
			"primary_evaluator_id": created.PrimaryEvaluatorID,
			"secondary_evaluators": strconv.Itoa(len(created.SecondaryEvaluatorIDs)),
		},
		OccurredAt: created.CreatedAt,
	})
	return created, nil
}

// GetTarget は評価対象を取得します。
func (s *Service) GetTarget(ctx context.Context, in GetTargetInput) (*Target, error) {
	periodID, employeeID, err := normalizeKey(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var found *Target
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Find(txCtx, periodID, employeeID)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListTargets は評価期間に登録された評価対象を返します。
func (s *Service) ListTargets(ctx context.Context, in ListTargetsInput) ([]*Target, error) {
	periodID := strings.TrimSpace(in.PeriodID)
	if periodID == "" {
		return nil, ErrInvalidPeriodID
	}

	var targets []*Target
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListByPeriod(txCtx, periodID)
		if err != nil {
			return err
		}
		targets = result
		return nil
	}); err != nil {
		return nil, err
	}
	return targets, nil
}

func normalizeKey(rawPeriodID, rawEmployeeID string) (string, string, error) {
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

func normalizeEvaluators(raw []string) ([]string, error) {
	result := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			return nil, fmt.Errorf("secondary_evaluator_ids: %w", ErrInvalidEvaluatorID)
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result, nil
}
