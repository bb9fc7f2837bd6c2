package stepapproval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
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

// UseCase は段階承認ユースケースの公開インターフェースです。
type UseCase interface {
	SetStatus(ctx context.Context, in SetStatusInput) (*SetStatusResult, error)
	SubmitRevisionResponse(ctx context.Context, in SubmitRevisionResponseInput) (*Approval, error)
	GetApproval(ctx context.Context, in GetApprovalInput) (*Approval, error)
	ListApprovals(ctx context.Context, in ListApprovalsInput) ([]*Approval, error)
}

// Dependencies は Service が協調する外部コンポーネントです。
type Dependencies struct {
	Approvals   Repository
	Targets     TargetReader
	Dispatcher  Dispatcher
	Submissions SubmissionResetter
	Events      event.Sink
}

// Service は社員ごとの段階承認の状態遷移を管理します。
type Service struct {
	repo        Repository
	targets     TargetReader
	dispatcher  Dispatcher
	submissions SubmissionResetter
	events      event.Sink
	clock       Clock
	tx          TransactionManager
}

// NewService は Service を生成します。
func NewService(deps Dependencies, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:        deps.Approvals,
		targets:     deps.Targets,
		dispatcher:  deps.Dispatcher,
		submissions: deps.Submissions,
		events:      deps.Events,
		clock:       clock,
		tx:          tx,
	}
	if s.dispatcher == nil {
		s.dispatcher = noopDispatcher{}
	}
	if s.submissions == nil {
		s.submissions = noopSubmissionResetter{}
	}
	if s.events == nil {
		s.events = event.NopSink{}
	}
	return s
}

// SetStatusInput は管理者による状態変更の入力です。
type SetStatusInput struct {
	PeriodID        string
	EmployeeID      string
	Step            string
	Status          string
	RevisionComment string
	EvaluatorID     string
	ExpectedVersion *int64
}

// SetStatusResult は状態変更の結果です。Recipients は修正要求時のみ設定されます。
type SetStatusResult struct {
	Approval   *Approval
	Recipients []Recipient
}

// SubmitRevisionResponseInput は修正完了の応答入力です。
type SubmitRevisionResponseInput struct {
	PeriodID        string
	EmployeeID      string
	Step            string
	EvaluatorID     string
	ExpectedVersion *int64
}

// GetApprovalInput は段階承認取得時の入力です。
type GetApprovalInput struct {
	PeriodID    string
	EmployeeID  string
	Step        string
	EvaluatorID string
}

// ListApprovalsInput は社員単位の段階承認一覧取得時の入力です。
type ListApprovalsInput struct {
	PeriodID   string
	EmployeeID string
}

// SetStatus は段階承認の状態を変更します。
// revision_requested への遷移では通知先を解決して Dispatcher へ渡し、
// self 段階であれば自己評価の提出フラグを同一トランザクションで取り消します。
func (s *Service) SetStatus(ctx context.Context, in SetStatusInput) (*SetStatusResult, error) {
	step, err := ParseStep(in.Step)
	if err != nil {
		return nil, err
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	// 入力値の検証が先。不正な step と revision_completed の組み合わせは ValidationFailure になる。
	if status == StatusRevisionCompleted {
		return nil, ErrDirectRevisionCompleted
	}

	comment := strings.TrimSpace(in.RevisionComment)
	if status == StatusRevisionRequested && comment == "" {
		return nil, ErrRevisionCommentRequired
	}
	if status != StatusRevisionRequested {
		comment = ""
	}

	key, err := buildKey(in.PeriodID, in.EmployeeID, step, in.EvaluatorID)
	if err != nil {
		return nil, err
	}

	var (
		result     SetStatusResult
		fromStatus Status
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		target, err := s.findTarget(txCtx, key)
		if err != nil {
			return err
		}

		existing, err := s.findOrCreate(txCtx, key)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != existing.Version {
			return ErrVersionConflict
		}

		var recipients []Recipient
		if status == StatusRevisionRequested {
			recipients, err = ResolveRecipients(step, key.EmployeeID, target.PrimaryEvaluatorID, key.EvaluatorID)
			if err != nil {
				return err
			}
		}

		working := existing.Clone()
		working.Status = status
		working.RevisionComment = comment
		working.UpdatedAt = s.clock.Now()

		updated, err := s.repo.Update(txCtx, working, existing.Version)
		if err != nil {
			return err
		}

		if status == StatusRevisionRequested {
			if err := s.dispatcher.Dispatch(txCtx, RevisionRequest{
				PeriodID:        key.PeriodID,
				EmployeeID:      key.EmployeeID,
				Step:            step,
				EvaluatorID:     key.EvaluatorID,
				RevisionComment: comment,
				Recipients:      recipients,
				RequestedAt:     updated.UpdatedAt,
			}); err != nil {
				return fmt.Errorf("stepapproval: dispatch revision request: %w", err)
			}

			if step == StepSelf {
				if err := s.submissions.OnSelfStepRevisionRequested(txCtx, key.PeriodID, key.EmployeeID); err != nil {
					return fmt.Errorf("stepapproval: reset self-evaluation submission: %w", err)
				}
			}
		}

		fromStatus = existing.Status
		result = SetStatusResult{Approval: updated, Recipients: recipients}
		return nil
	}); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, result.Approval, fromStatus, len(result.Recipients))
	return &result, nil
}

// SubmitRevisionResponse は修正要求に対する応答として状態を revision_completed に進めます。
func (s *Service) SubmitRevisionResponse(ctx context.Context, in SubmitRevisionResponseInput) (*Approval, error) {
	step, err := ParseStep(in.Step)
	if err != nil {
		return nil, err
	}
	key, err := buildKey(in.PeriodID, in.EmployeeID, step, in.EvaluatorID)
	if err != nil {
		return nil, err
	}

	var (
		result     *Approval
		fromStatus Status
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByKey(txCtx, key)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != nil && *in.ExpectedVersion != existing.Version {
			return ErrVersionConflict
		}
		if existing.Status != StatusRevisionRequested {
			return ErrNotRevisionRequested
		}

		working := existing.Clone()
		working.Status = StatusRevisionCompleted
		working.RevisionComment = ""
		working.UpdatedAt = s.clock.Now()

		updated, err := s.repo.Update(txCtx, working, existing.Version)
		if err != nil {
			return err
		}
		fromStatus = existing.Status
		result = updated
		return nil
	}); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, result, fromStatus, 0)
	return result, nil
}

// GetApproval は段階承認のスナップショットを返します。
func (s *Service) GetApproval(ctx context.Context, in GetApprovalInput) (*Approval, error) {
	step, err := ParseStep(in.Step)
	if err != nil {
		return nil, err
	}
	key, err := buildKey(in.PeriodID, in.EmployeeID, step, in.EvaluatorID)
	if err != nil {
		return nil, err
	}

	var found *Approval
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByKey(txCtx, key)
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

// ListApprovals は社員の全段階承認を返します。
func (s *Service) ListApprovals(ctx context.Context, in ListApprovalsInput) ([]*Approval, error) {
	periodID, employeeID, err := normalizeIDs(in.PeriodID, in.EmployeeID)
	if err != nil {
		return nil, err
	}

	var approvals []*Approval
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListByEmployee(txCtx, periodID, employeeID)
		if err != nil {
			return err
		}
		approvals = result
		return nil
	}); err != nil {
		return nil, err
	}
	return approvals, nil
}

// SeedApprovals は criteria/self/primary と 2 次評価者ごとの secondary 行を pending で作成します。
// 既存の行はそのまま残します。
func (s *Service) SeedApprovals(ctx context.Context, periodID, employeeID string, secondaryEvaluatorIDs []string) error {
	periodID, employeeID, err := normalizeIDs(periodID, employeeID)
	if err != nil {
		return err
	}

	keys := make([]Key, 0, 3+len(secondaryEvaluatorIDs))
	for _, step := range []Step{StepCriteria, StepSelf, StepPrimary} {
		keys = append(keys, Key{PeriodID: periodID, EmployeeID: employeeID, Step: step})
	}
	for _, evaluatorID := range secondaryEvaluatorIDs {
		key, err := buildKey(periodID, employeeID, StepSecondary, evaluatorID)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		for _, key := range keys {
			if _, err := s.findOrCreate(txCtx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) findTarget(ctx context.Context, key Key) (*evaluationtarget.Target, error) {
	target, err := s.targets.Find(ctx, key.PeriodID, key.EmployeeID)
	if err != nil {
		return nil, err
	}
	if key.Step == StepSecondary && !target.HasSecondaryEvaluator(key.EvaluatorID) {
		return nil, ErrEvaluatorNotAssigned
	}
	return target, nil
}

func (s *Service) findOrCreate(ctx context.Context, key Key) (*Approval, error) {
	existing, err := s.repo.FindByKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrApprovalNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	return s.repo.Create(ctx, &Approval{
		PeriodID:    key.PeriodID,
		EmployeeID:  key.EmployeeID,
		Step:        key.Step,
		EvaluatorID: key.EvaluatorID,
		Status:      StatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *Service) recordTransition(ctx context.Context, a *Approval, from Status, recipients int) {
	attrs := map[string]string{
		"from": string(from),
		"to":   string(a.Status),
	}
	if recipients > 0 {
		attrs["recipients"] = strconv.Itoa(recipients)
	}
	s.events.Record(ctx, event.Event{
		Type:        event.TypeStepStatusChanged,
		PeriodID:    a.PeriodID,
		EmployeeID:  a.EmployeeID,
		Step:        string(a.Step),
		EvaluatorID: a.EvaluatorID,
		Attributes:  attrs,
		OccurredAt:  a.UpdatedAt,
	})
}

func buildKey(rawPeriodID, rawEmployeeID string, step Step, rawEvaluatorID string) (Key, error) {
	periodID, employeeID, err := normalizeIDs(rawPeriodID, rawEmployeeID)
	if err != nil {
		return Key{}, err
	}

	evaluatorID := strings.TrimSpace(rawEvaluatorID)
	switch {
	case step == StepSecondary && evaluatorID == "":
		return Key{}, ErrEvaluatorRequired
	case step != StepSecondary && evaluatorID != "":
		return Key{}, ErrEvaluatorNotAllowed
	}

	return Key{PeriodID: periodID, EmployeeID: employeeID, Step: step, EvaluatorID: evaluatorID}, nil
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
