package evaluationperiod

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// UseCase は評価期間ユースケースの公開インターフェースです。
type UseCase interface {
	CreatePeriod(ctx context.Context, in CreatePeriodInput) (*Period, error)
	GetPeriod(ctx context.Context, in GetPeriodInput) (*Period, error)
	ListPeriods(ctx context.Context, in ListPeriodsInput) (*ListPeriodsResult, error)
	StartPeriod(ctx context.Context, in StartPeriodInput) (*Period, error)
	CompletePeriod(ctx context.Context, in CompletePeriodInput) (*Period, error)
	ChangePhase(ctx context.Context, in ChangePhaseInput) (*Period, error)
	SetPermission(ctx context.Context, in SetPermissionInput) (*Period, error)
}

// Service は評価期間の状態と段階を管理します。
type Service struct {
	repo           Repository
	clock          Clock
	tx             TransactionManager
	events         event.Sink
	allowSkipAhead bool
}

// Option は Service の生成オプションです。
type Option func(*Service)

// WithEventSink はコミット後のイベント送出先を設定します。
func WithEventSink(sink event.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithSkipAhead は複数段階を一度に進める遷移を許可するかを設定します。既定は許可です。
func WithSkipAhead(allow bool) Option {
	return func(s *Service) {
		s.allowSkipAhead = allow
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:           repo,
		clock:          clock,
		tx:             tx,
		events:         event.NopSink{},
		allowSkipAhead: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePeriodInput は評価期間作成時の入力です。
type CreatePeriodInput struct {
	Name string
}

// GetPeriodInput は評価期間取得時の入力です。
type GetPeriodInput struct {
	ID string
}

// ListPeriodsInput は一覧取得時の入力です。
type ListPeriodsInput struct {
	PageSize  int
	PageToken string
	Status    *Status
}

// ListPeriodsResult は一覧取得結果です。
type ListPeriodsResult struct {
	Periods       []*Period
	NextPageToken string
}

// StartPeriodInput は評価期間開始時の入力です。
type StartPeriodInput struct {
	ID              string
	ExpectedVersion *int64
}

// CompletePeriodInput は評価期間完了時の入力です。
type CompletePeriodInput struct {
	ID              string
	ExpectedVersion *int64
}

// ChangePhaseInput は段階変更時の入力です。
type ChangePhaseInput struct {
	ID              string
	TargetPhase     string
	ExpectedVersion *int64
}

// SetPermissionInput は設定の手動指定時の入力です。
type SetPermissionInput struct {
	ID              string
	Setting         string
	AllowManual     bool
	Value           *bool
	ExpectedVersion *int64
}

// CreatePeriod は待機状態の評価期間を作成します。
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (*Period, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var created *Period
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Period{
			Name:              name,
			Status:            StatusWaiting,
			CurrentPhase:      PhaseNone,
			ManuallySetFields: []SettingField{},
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.events.Record(ctx, event.Event{
		Type:       event.TypePeriodCreated,
		PeriodID:   created.ID,
		Attributes: map[string]string{"name": created.Name},
		OccurredAt: created.CreatedAt,
	})
	return created, nil
}

// GetPeriod は評価期間のスナップショットを返します。
func (s *Service) GetPeriod(ctx context.Context, in GetPeriodInput) (*Period, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var found *Period
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
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

// ListPeriods は評価期間の一覧を返します。
func (s *Service) ListPeriods(ctx context.Context, in ListPeriodsInput) (*ListPeriodsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *Status
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		statusPtr = &status
	}

	var result ListPeriodsResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		periods, token, err := s.repo.List(txCtx, ListPeriodsFilter{Status: statusPtr, Limit: limit, Offset: offset})
		if err != nil {
			return err
		}
		result.Periods = periods
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartPeriod は待機中の評価期間を開始し、評価設定段階の既定値を適用します。
func (s *Service) StartPeriod(ctx context.Context, in StartPeriodInput) (*Period, error) {
	return s.mutate(ctx, in.ID, in.ExpectedVersion, func(p *Period) ([]event.Event, error) {
		if p.Status != StatusWaiting {
			return nil, ErrPeriodNotWaiting
		}

		settings, err := ResolveSettings(PhaseEvaluationSetup, p.ManuallySetFields, p.Settings)
		if err != nil {
			return nil, err
		}

		p.Status = StatusInProgress
		p.CurrentPhase = PhaseEvaluationSetup
		p.Settings = settings

		return []event.Event{{
			Type:       event.TypePeriodStarted,
			Attributes: settingsAttributes(map[string]string{"phase": string(PhaseEvaluationSetup)}, settings),
		}}, nil
	})
}

// CompletePeriod は進行中の評価期間を完了します。
func (s *Service) CompletePeriod(ctx context.Context, in CompletePeriodInput) (*Period, error) {
	return s.mutate(ctx, in.ID, in.ExpectedVersion, func(p *Period) ([]event.Event, error) {
		if p.Status != StatusInProgress {
			return nil, ErrPeriodNotInProgress
		}
		p.Status = StatusCompleted
		return []event.Event{{
			Type:       event.TypePeriodCompleted,
			Attributes: map[string]string{"phase": string(p.CurrentPhase)},
		}}, nil
	})
}

// ChangePhase は段階を前方へ進め、手動指定されていない設定を段階の既定値で再計算します。
func (s *Service) ChangePhase(ctx context.Context, in ChangePhaseInput) (*Period, error) {
	target, err := ParsePhase(in.TargetPhase)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, in.ID, in.ExpectedVersion, func(p *Period) ([]event.Event, error) {
		switch p.Status {
		case StatusInProgress:
		case StatusCompleted:
			return nil, ErrPeriodCompleted
		default:
			return nil, ErrPeriodNotInProgress
		}
		if err := s.validateTransition(p.CurrentPhase, target); err != nil {
			return nil, err
		}

		settings, err := ResolveSettings(target, p.ManuallySetFields, p.Settings)
		if err != nil {
			return nil, err
		}

		from := p.CurrentPhase
		p.CurrentPhase = target
		p.Settings = settings

		return []event.Event{{
			Type: event.TypePhaseChanged,
			Attributes: settingsAttributes(map[string]string{
				"from": string(from),
				"to":   string(target),
			}, settings),
		}}, nil
	})
}

// SetPermission は設定値を変更します。AllowManual が真の場合は項目を手動指定として固定します。
func (s *Service) SetPermission(ctx context.Context, in SetPermissionInput) (*Period, error) {
	field, err := ParseSettingField(in.Setting)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, in.ID, in.ExpectedVersion, func(p *Period) ([]event.Event, error) {
		if p.Status == StatusCompleted {
			return nil, ErrPeriodCompleted
		}

		pinned := false
		if in.AllowManual {
			pinned = p.markManual(field)
		}

		valueChanged := false
		if in.Value != nil && p.Settings.Get(field) != *in.Value {
			p.Settings.set(field, *in.Value)
			valueChanged = true
		}

		if !pinned && !valueChanged {
			return nil, errNoChange
		}

		return []event.Event{{
			Type: event.TypeSettingChanged,
			Attributes: map[string]string{
				"field":  string(field),
				"value":  strconv.FormatBool(p.Settings.Get(field)),
				"manual": strconv.FormatBool(p.IsManuallySet(field)),
			},
		}}, nil
	})
}

func (s *Service) validateTransition(current, target Phase) error {
	from := current.Order()
	to := target.Order()
	if to <= from {
		return ErrPhaseNotForward
	}
	if !s.allowSkipAhead && to != from+1 {
		return ErrPhaseSkipNotAllowed
	}
	return nil
}

// errNoChange は変更が不要であることを mutate に伝えます。
var errNoChange = errors.New("evaluationperiod: no change")

// mutate は読み込み・検証・更新を 1 つの読み書きトランザクションで実行し、コミット後にイベントを送出します。
func (s *Service) mutate(ctx context.Context, rawID string, expected *int64, fn func(*Period) ([]event.Event, error)) (*Period, error) {
	id, err := normalizeID(rawID)
	if err != nil {
		return nil, err
	}

	var (
		result  *Period
		pending []event.Event
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if expected != nil && *expected != existing.Version {
			return ErrVersionConflict
		}

		working := existing.Clone()
		events, err := fn(working)
		if errors.Is(err, errNoChange) {
			result = existing
			return nil
		}
		if err != nil {
			return err
		}

		working.UpdatedAt = s.clock.Now()
		updated, err := s.repo.Update(txCtx, working, existing.Version)
		if err != nil {
			return err
		}

		result = updated
		pending = events
		return nil
	}); err != nil {
		return nil, err
	}

	for _, e := range pending {
		e.PeriodID = result.ID
		e.OccurredAt = result.UpdatedAt
		s.events.Record(ctx, e)
	}
	return result, nil
}

func settingsAttributes(attrs map[string]string, settings Settings) map[string]string {
	for _, field := range SettingFields() {
		attrs[string(field)] = strconv.FormatBool(settings.Get(field))
	}
	return attrs
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return trimmed, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusWaiting, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
