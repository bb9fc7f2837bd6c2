package stepapproval

import (
	"fmt"
	"strings"
	"time"
)

// RecipientRole は通知先の立場です。
type RecipientRole string

const (
	RoleEmployee           RecipientRole = "employee"
	RolePrimaryEvaluator   RecipientRole = "primary_evaluator"
	RoleSecondaryEvaluator RecipientRole = "secondary_evaluator"
)

// Recipient は修正要求の通知先です。
type Recipient struct {
	ID   string
	Role RecipientRole
}

// ResolveRecipients は段階ごとの通知先を返します。結果の順序は常に同じです。
//
//	criteria, self: 社員本人と 1 次評価者
//	primary:        1 次評価者のみ
//	secondary:      evaluatorID で指定された 2 次評価者のみ
func ResolveRecipients(step Step, employeeID, primaryEvaluatorID, evaluatorID string) ([]Recipient, error) {
	employeeID = strings.TrimSpace(employeeID)
	primaryEvaluatorID = strings.TrimSpace(primaryEvaluatorID)
	evaluatorID = strings.TrimSpace(evaluatorID)

	switch step {
	case StepCriteria, StepSelf:
		if employeeID == "" || primaryEvaluatorID == "" {
			return nil, fmt.Errorf("%s: %w", step, ErrRecipientUnresolved)
		}
		return []Recipient{
			{ID: employeeID, Role: RoleEmployee},
			{ID: primaryEvaluatorID, Role: RolePrimaryEvaluator},
		}, nil
	case StepPrimary:
		if primaryEvaluatorID == "" {
			return nil, fmt.Errorf("%s: %w", step, ErrRecipientUnresolved)
		}
		return []Recipient{{ID: primaryEvaluatorID, Role: RolePrimaryEvaluator}}, nil
	case StepSecondary:
		if evaluatorID == "" {
			return nil, fmt.Errorf("%s: %w", step, ErrRecipientUnresolved)
		}
		return []Recipient{{ID: evaluatorID, Role: RoleSecondaryEvaluator}}, nil
	default:
		return nil, ErrInvalidStep
	}
}

// RevisionRequest は修正要求の配送依頼です。
type RevisionRequest struct {
	PeriodID        string
	EmployeeID      string
	Step            Step
	EvaluatorID     string
	RevisionComment string
	Recipients      []Recipient
	RequestedAt     time.Time
}
