package httpapi

import (
	"time"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

type periodView struct {
	ID                            string    `json:"id"`
	Name                          string    `json:"name"`
	Status                        string    `json:"status"`
	CurrentPhase                  string    `json:"currentPhase,omitempty"`
	CriteriaSettingEnabled        bool      `json:"criteriaSettingEnabled"`
	SelfEvaluationSettingEnabled  bool      `json:"selfEvaluationSettingEnabled"`
	FinalEvaluationSettingEnabled bool      `json:"finalEvaluationSettingEnabled"`
	ManuallySetFields             []string  `json:"manuallySetFields"`
	Version                       int64     `json:"version"`
	CreatedAt                     time.Time `json:"createdAt"`
	UpdatedAt                     time.Time `json:"updatedAt"`
}

func newPeriodView(p *evaluationperiod.Period) periodView {
	fields := make([]string, 0, len(p.ManuallySetFields))
	for _, f := range p.ManuallySetFields {
		fields = append(fields, string(f))
	}
	return periodView{
		ID:                            p.ID,
		Name:                          p.Name,
		Status:                        string(p.Status),
		CurrentPhase:                  string(p.CurrentPhase),
		CriteriaSettingEnabled:        p.Settings.CriteriaEnabled,
		SelfEvaluationSettingEnabled:  p.Settings.SelfEvaluationEnabled,
		FinalEvaluationSettingEnabled: p.Settings.FinalEvaluationEnabled,
		ManuallySetFields:             fields,
		Version:                       p.Version,
		CreatedAt:                     p.CreatedAt,
		UpdatedAt:                     p.UpdatedAt,
	}
}

type targetView struct {
	PeriodID              string    `json:"periodId"`
	EmployeeID            string    `json:"employeeId"`
	PrimaryEvaluatorID    string    `json:"primaryEvaluatorId"`
	SecondaryEvaluatorIDs []string  `json:"secondaryEvaluatorIds"`
	CreatedAt             time.Time `json:"createdAt"`
}

func newTargetView(t *evaluationtarget.Target) targetView {
	secondaries := t.SecondaryEvaluatorIDs
	if secondaries == nil {
		secondaries = []string{}
	}
	return targetView{
		PeriodID:              t.PeriodID,
		EmployeeID:            t.EmployeeID,
		PrimaryEvaluatorID:    t.PrimaryEvaluatorID,
		SecondaryEvaluatorIDs: secondaries,
		CreatedAt:             t.CreatedAt,
	}
}

type approvalView struct {
	ID              string    `json:"id"`
	PeriodID        string    `json:"periodId"`
	EmployeeID      string    `json:"employeeId"`
	Step            string    `json:"step"`
	EvaluatorID     string    `json:"evaluatorId,omitempty"`
	Status          string    `json:"status"`
	RevisionComment string    `json:"revisionComment,omitempty"`
	Version         int64     `json:"version"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newApprovalView(a *stepapproval.Approval) approvalView {
	return approvalView{
		ID:              a.ID,
		PeriodID:        a.PeriodID,
		EmployeeID:      a.EmployeeID,
		Step:            string(a.Step),
		EvaluatorID:     a.EvaluatorID,
		Status:          string(a.Status),
		RevisionComment: a.RevisionComment,
		Version:         a.Version,
		UpdatedAt:       a.UpdatedAt,
	}
}

type selfEvaluationView struct {
	ItemID                 string     `json:"itemId"`
	Content                string     `json:"content"`
	Score                  *int       `json:"score,omitempty"`
	SubmittedToEvaluator   bool       `json:"submittedToEvaluator"`
	SubmittedToEvaluatorAt *time.Time `json:"submittedToEvaluatorAt,omitempty"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

func newSelfEvaluationView(s *selfevaluation.SelfEvaluation) selfEvaluationView {
	return selfEvaluationView{
		ItemID:                 s.ItemID,
		Content:                s.Content,
		Score:                  s.Score,
		SubmittedToEvaluator:   s.SubmittedToEvaluator,
		SubmittedToEvaluatorAt: s.SubmittedToEvaluatorAt,
		UpdatedAt:              s.UpdatedAt,
	}
}
