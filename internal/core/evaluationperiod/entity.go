package evaluationperiod

import (
	"strings"
	"time"
)

// Status は評価期間の状態を表します。
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Phase は評価期間の段階を表します。開始前の期間は空文字列を持ちます。
type Phase string

const (
	PhaseNone            Phase = ""
	PhaseEvaluationSetup Phase = "evaluation-setup"
	PhasePerformance     Phase = "performance"
	PhaseSelfEvaluation  Phase = "self-evaluation"
	PhasePeerEvaluation  Phase = "peer-evaluation"
	PhaseClosure         Phase = "closure"
)

// Phases は段階を進行順に返します。
func Phases() []Phase {
	return []Phase{
		PhaseEvaluationSetup,
		PhasePerformance,
		PhaseSelfEvaluation,
		PhasePeerEvaluation,
		PhaseClosure,
	}
}

// Order は進行順のインデックスを返します。未知の段階は -1 です。
func (p Phase) Order() int {
	for idx, phase := range Phases() {
		if phase == p {
			return idx
		}
	}
	return -1
}

// ParsePhase は文字列を段階に変換します。
func ParsePhase(raw string) (Phase, error) {
	phase := Phase(strings.ToLower(strings.TrimSpace(raw)))
	if phase.Order() < 0 {
		return PhaseNone, ErrInvalidPhase
	}
	return phase, nil
}

// SettingField は段階ごとに書き込み可否を切り替える設定項目の名前です。
type SettingField string

const (
	FieldCriteria        SettingField = "criteriaSettingEnabled"
	FieldSelfEvaluation  SettingField = "selfEvaluationSettingEnabled"
	FieldFinalEvaluation SettingField = "finalEvaluationSettingEnabled"
)

// SettingFields は全ての設定項目を返します。
func SettingFields() []SettingField {
	return []SettingField{FieldCriteria, FieldSelfEvaluation, FieldFinalEvaluation}
}

var settingAliases = map[string]SettingField{
	"criteria":                      FieldCriteria,
	"criteriasettingenabled":        FieldCriteria,
	"self":                          FieldSelfEvaluation,
	"self-evaluation":               FieldSelfEvaluation,
	"selfevaluation":                FieldSelfEvaluation,
	"selfevaluationsettingenabled":  FieldSelfEvaluation,
	"final":                         FieldFinalEvaluation,
	"final-evaluation":              FieldFinalEvaluation,
	"finalevaluation":               FieldFinalEvaluation,
	"finalevaluationsettingenabled": FieldFinalEvaluation,
}

// ParseSettingField は設定名 (短縮名またはフィールド名) を SettingField に変換します。
func ParseSettingField(raw string) (SettingField, error) {
	field, ok := settingAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrInvalidSetting
	}
	return field, nil
}

// Settings は 3 つの書き込み可否フラグです。
type Settings struct {
	CriteriaEnabled        bool
	SelfEvaluationEnabled  bool
	FinalEvaluationEnabled bool
}

// Get は指定項目の値を返します。
func (s Settings) Get(field SettingField) bool {
	switch field {
	case FieldCriteria:
		return s.CriteriaEnabled
	case FieldSelfEvaluation:
		return s.SelfEvaluationEnabled
	case FieldFinalEvaluation:
		return s.FinalEvaluationEnabled
	default:
		return false
	}
}

func (s *Settings) set(field SettingField, value bool) {
	switch field {
	case FieldCriteria:
		s.CriteriaEnabled = value
	case FieldSelfEvaluation:
		s.SelfEvaluationEnabled = value
	case FieldFinalEvaluation:
		s.FinalEvaluationEnabled = value
	}
}

// Period は評価期間エンティティです。
type Period struct {
	ID                string
	Name              string
	Status            Status
	CurrentPhase      Phase
	Settings          Settings
	ManuallySetFields []SettingField
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsManuallySet は field が管理者により固定されているかを返します。
func (p *Period) IsManuallySet(field SettingField) bool {
	for _, f := range p.ManuallySetFields {
		if f == field {
			return true
		}
	}
	return false
}

func (p *Period) markManual(field SettingField) bool {
	if p.IsManuallySet(field) {
		return false
	}
	p.ManuallySetFields = append(p.ManuallySetFields, field)
	return true
}

// Clone は Period の複製を返します。
func (p *Period) Clone() *Period {
	if p == nil {
		return nil
	}
	clone := *p
	if p.ManuallySetFields != nil {
		clone.ManuallySetFields = make([]SettingField, len(p.ManuallySetFields))
		copy(clone.ManuallySetFields, p.ManuallySetFields)
	}
	return &clone
}
