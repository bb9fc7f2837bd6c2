package evaluationtarget

import "time"

// Target は評価期間に登録された評価対象社員と評価ラインです。
type Target struct {
	PeriodID              string
	EmployeeID            string
	PrimaryEvaluatorID    string
	SecondaryEvaluatorIDs []string
	CreatedAt             time.Time
}

// HasSecondaryEvaluator は evaluatorID が 2 次評価者として割り当てられているかを返します。
func (t *Target) HasSecondaryEvaluator(evaluatorID string) bool {
	for _, id := range t.SecondaryEvaluatorIDs {
		if id == evaluatorID {
			return true
		}
	}
	return false
}

// Clone は Target の複製を返します。
func (t *Target) Clone() *Target {
	if t == nil {
		return nil
	}
	clone := *t
	if t.SecondaryEvaluatorIDs != nil {
		clone.SecondaryEvaluatorIDs = make([]string, len(t.SecondaryEvaluatorIDs))
		copy(clone.SecondaryEvaluatorIDs, t.SecondaryEvaluatorIDs)
	}
	return &clone
}
