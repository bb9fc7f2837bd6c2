package stepapproval

import (
	"strings"
	"time"
)

// Step は社員評価の段階です。
type Step string

const (
	StepCriteria  Step = "criteria"
	StepSelf      Step = "self"
	StepPrimary   Step = "primary"
	StepSecondary Step = "secondary"
)

// Steps は全ての段階を返します。
func Steps() []Step {
	return []Step{StepCriteria, StepSelf, StepPrimary, StepSecondary}
}

// ParseStep は文字列を Step に変換します。
func ParseStep(raw string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(raw)))
	switch step {
	case StepCriteria, StepSelf, StepPrimary, StepSecondary:
		return step, nil
	default:
		return "", ErrInvalidStep
	}
}

// Status は段階承認の状態です。
type Status string

const (
	StatusPending           Status = "pending"
	StatusApproved          Status = "approved"
	StatusRevisionRequested Status = "revision_requested"
	StatusRevisionCompleted Status = "revision_completed"
)

// ParseStatus は文字列を Status に変換します。
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusPending, StatusApproved, StatusRevisionRequested, StatusRevisionCompleted:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Key は段階承認行を一意に識別します。EvaluatorID は 2 次評価段階でのみ設定されます。
type Key struct {
	PeriodID    string
	EmployeeID  string
	Step        Step
	EvaluatorID string
}

// Approval は社員ごとの段階承認エンティティです。
type Approval struct {
	ID              string
	PeriodID        string
	EmployeeID      string
	Step            Step
	EvaluatorID     string
	Status          Status
	RevisionComment string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key は Approval のキーを返します。
func (a *Approval) Key() Key {
	return Key{PeriodID: a.PeriodID, EmployeeID: a.EmployeeID, Step: a.Step, EvaluatorID: a.EvaluatorID}
}

// Clone は Approval の複製を返します。
func (a *Approval) Clone() *Approval {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
