package selfevaluation

import "time"

// SelfEvaluation は評価期間内の自己評価項目 1 件です。
type SelfEvaluation struct {
	ID                     string
	PeriodID               string
	EmployeeID             string
	ItemID                 string
	Content                string
	Score                  *int
	SubmittedToEvaluator   bool
	SubmittedToEvaluatorAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Clone は SelfEvaluation の複製を返します。
func (s *SelfEvaluation) Clone() *SelfEvaluation {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Score != nil {
		score := *s.Score
		clone.Score = &score
	}
	if s.SubmittedToEvaluatorAt != nil {
		at := *s.SubmittedToEvaluatorAt
		clone.SubmittedToEvaluatorAt = &at
	}
	return &clone
}
