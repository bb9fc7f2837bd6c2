package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

type stubPeriodUseCase struct {
	changeInput evaluationperiod.ChangePhaseInput
	permInput   evaluationperiod.SetPermissionInput
	listInput   evaluationperiod.ListPeriodsInput
	out         *evaluationperiod.Period
	err         error
}

func (s *stubPeriodUseCase) CreatePeriod(context.Context, evaluationperiod.CreatePeriodInput) (*evaluationperiod.Period, error) {
	return s.out, s.err
}

func (s *stubPeriodUseCase) GetPeriod(context.Context, evaluationperiod.GetPeriodInput) (*evaluationperiod.Period, error) {
	return s.out, s.err
}

func (s *stubPeriodUseCase) ListPeriods(_ context.Context, in evaluationperiod.ListPeriodsInput) (*evaluationperiod.ListPeriodsResult, error) {
	s.listInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &evaluationperiod.ListPeriodsResult{Periods: []*evaluationperiod.Period{s.out}, NextPageToken: "50"}, nil
}

func (s *stubPeriodUseCase) StartPeriod(context.Context, evaluationperiod.StartPeriodInput) (*evaluationperiod.Period, error) {
	return s.out, s.err
}

func (s *stubPeriodUseCase) CompletePeriod(context.Context, evaluationperiod.CompletePeriodInput) (*evaluationperiod.Period, error) {
	return s.out, s.err
}

func (s *stubPeriodUseCase) ChangePhase(_ context.Context, in evaluationperiod.ChangePhaseInput) (*evaluationperiod.Period, error) {
	s.changeInput = in
	return s.out, s.err
}

func (s *stubPeriodUseCase) SetPermission(_ context.Context, in evaluationperiod.SetPermissionInput) (*evaluationperiod.Period, error) {
	s.permInput = in
	return s.out, s.err
}

type stubTargetUseCase struct {
	mapInput evaluationtarget.MapEmployeeInput
	err      error
}

func (s *stubTargetUseCase) MapEmployee(_ context.Context, in evaluationtarget.MapEmployeeInput) (*evaluationtarget.Target, error) {
	s.mapInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &evaluationtarget.Target{PeriodID: in.PeriodID, EmployeeID: in.EmployeeID, PrimaryEvaluatorID: in.PrimaryEvaluatorID, SecondaryEvaluatorIDs: in.SecondaryEvaluatorIDs}, nil
}

func (s *stubTargetUseCase) GetTarget(context.Context, evaluationtarget.GetTargetInput) (*evaluationtarget.Target, error) {
	return nil, s.err
}

func (s *stubTargetUseCase) ListTargets(context.Context, evaluationtarget.ListTargetsInput) ([]*evaluationtarget.Target, error) {
	return nil, s.err
}

type stubApprovalUseCase struct {
	setInput stepapproval.SetStatusInput
	result   *stepapproval.SetStatusResult
	err      error
}

func (s *stubApprovalUseCase) SetStatus(_ context.Context, in stepapproval.SetStatusInput) (*stepapproval.SetStatusResult, error) {
	s.setInput = in
	return s.result, s.err
}

func (s *stubApprovalUseCase) SubmitRevisionResponse(context.Context, stepapproval.SubmitRevisionResponseInput) (*stepapproval.Approval, error) {
	return nil, s.err
}

func (s *stubApprovalUseCase) GetApproval(context.Context, stepapproval.GetApprovalInput) (*stepapproval.Approval, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result.Approval, nil
}

func (s *stubApprovalUseCase) ListApprovals(context.Context, stepapproval.ListApprovalsInput) ([]*stepapproval.Approval, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []*stepapproval.Approval{s.result.Approval}, nil
}

type stubSelfEvaluationUseCase struct {
	upsertInput selfevaluation.UpsertInput
	err         error
}

func (s *stubSelfEvaluationUseCase) UpsertSelfEvaluation(_ context.Context, in selfevaluation.UpsertInput) (*selfevaluation.SelfEvaluation, error) {
	s.upsertInput = in
	if s.err != nil {
		return nil, s.err
	}
	return &selfevaluation.SelfEvaluation{ID: "self-1", PeriodID: in.PeriodID, EmployeeID: in.EmployeeID, ItemID: in.ItemID, Score: in.Score}, nil
}

func (s *stubSelfEvaluationUseCase) SubmitToEvaluator(context.Context, selfevaluation.SubmitInput) ([]*selfevaluation.SelfEvaluation, error) {
	return nil, s.err
}

func (s *stubSelfEvaluationUseCase) ListSelfEvaluations(context.Context, selfevaluation.ListInput) ([]*selfevaluation.SelfEvaluation, error) {
	return nil, s.err
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("failed to build struct: %v", err)
	}
	return s
}

func samplePeriod() *evaluationperiod.Period {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return &evaluationperiod.Period{
		ID:                "period-1",
		Name:              "2025 H1",
		Status:            evaluationperiod.StatusInProgress,
		CurrentPhase:      evaluationperiod.PhasePerformance,
		Settings:          evaluationperiod.Settings{CriteriaEnabled: true},
		ManuallySetFields: []evaluationperiod.SettingField{evaluationperiod.FieldCriteria},
		Version:           4,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func newTestHandler() (*EvaluationGrpcHandler, *stubPeriodUseCase, *stubTargetUseCase, *stubApprovalUseCase, *stubSelfEvaluationUseCase) {
	periods := &stubPeriodUseCase{out: samplePeriod()}
	targets := &stubTargetUseCase{}
	approvals := &stubApprovalUseCase{}
	selfEvals := &stubSelfEvaluationUseCase{}
	return NewEvaluationGrpcHandler(periods, targets, approvals, selfEvals), periods, targets, approvals, selfEvals
}

func TestEvaluationGrpcHandler_ChangePhase(t *testing.T) {
	t.Parallel()

	h, periods, _, _, _ := newTestHandler()

	resp, err := h.ChangePhase(context.Background(), mustStruct(t, map[string]any{
		"periodId":        "period-1",
		"targetPhase":     "performance",
		"expectedVersion": 3,
	}))
	if err != nil {
		t.Fatalf("ChangePhase returned error: %v", err)
	}

	if periods.changeInput.TargetPhase != "performance" || periods.changeInput.ExpectedVersion == nil || *periods.changeInput.ExpectedVersion != 3 {
		t.Fatalf("unexpected input: %+v", periods.changeInput)
	}

	period := resp.GetFields()["period"].GetStructValue().GetFields()
	if period["currentPhase"].GetStringValue() != "performance" || !period["criteriaSettingEnabled"].GetBoolValue() {
		t.Fatalf("unexpected period payload: %v", period)
	}
	if got := period["manuallySetFields"].GetListValue().GetValues()[0].GetStringValue(); got != "criteriaSettingEnabled" {
		t.Fatalf("unexpected manual fields: %s", got)
	}
}

func TestEvaluationGrpcHandler_SetPermission(t *testing.T) {
	t.Parallel()

	h, periods, _, _, _ := newTestHandler()

	if _, err := h.SetPermission(context.Background(), mustStruct(t, map[string]any{
		"periodId":    "period-1",
		"setting":     "criteria",
		"allowManual": true,
		"value":       false,
	})); err != nil {
		t.Fatalf("SetPermission returned error: %v", err)
	}
	if !periods.permInput.AllowManual || periods.permInput.Value == nil || *periods.permInput.Value {
		t.Fatalf("unexpected input: %+v", periods.permInput)
	}

	if _, err := h.SetPermission(context.Background(), mustStruct(t, map[string]any{"periodId": "period-1", "setting": "criteria"})); err != nil {
		t.Fatalf("SetPermission returned error: %v", err)
	}
	if periods.permInput.Value != nil {
		t.Fatalf("expected absent value, got %v", *periods.permInput.Value)
	}
}

func TestEvaluationGrpcHandler_DecodeErrors(t *testing.T) {
	t.Parallel()

	h, _, _, _, _ := newTestHandler()

	cases := []struct {
		name string
		call func() error
	}{
		{"nil request", func() error { _, err := h.StartPeriod(context.Background(), nil); return err }},
		{"wrong type", func() error {
			_, err := h.StartPeriod(context.Background(), mustStruct(t, map[string]any{"periodId": 12}))
			return err
		}},
		{"fractional version", func() error {
			_, err := h.StartPeriod(context.Background(), mustStruct(t, map[string]any{"periodId": "p", "expectedVersion": 1.5}))
			return err
		}},
		{"non-string evaluator list", func() error {
			_, err := h.MapEmployee(context.Background(), mustStruct(t, map[string]any{"secondaryEvaluatorIds": []any{"a", true}}))
			return err
		}},
	}
	for _, tc := range cases {
		if st, _ := status.FromError(tc.call()); st.Code() != codes.InvalidArgument {
			t.Fatalf("%s: expected InvalidArgument, got %v", tc.name, st.Code())
		}
	}
}

func TestEvaluationGrpcHandler_ErrorKindMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{evaluationperiod.ErrPhaseNotForward, codes.FailedPrecondition},
		{evaluationperiod.ErrInvalidPhase, codes.InvalidArgument},
		{evaluationperiod.ErrPeriodNotFound, codes.NotFound},
		{evaluationperiod.ErrVersionConflict, codes.Aborted},
		{stepapproval.ErrDirectRevisionCompleted, codes.FailedPrecondition},
		{stepapproval.ErrRevisionCommentRequired, codes.InvalidArgument},
	}
	for _, tc := range cases {
		h, periods, _, _, _ := newTestHandler()
		periods.err = tc.err
		_, err := h.ChangePhase(context.Background(), mustStruct(t, map[string]any{"periodId": "period-1", "targetPhase": "closure"}))
		if st, _ := status.FromError(err); st.Code() != tc.code {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.code, st.Code())
		}
	}
}

func TestEvaluationGrpcHandler_SetStepApprovalStatus(t *testing.T) {
	t.Parallel()

	h, _, _, approvals, _ := newTestHandler()
	approvals.result = &stepapproval.SetStatusResult{
		Approval: &stepapproval.Approval{
			PeriodID:        "period-1",
			EmployeeID:      "emp-1",
			Step:            stepapproval.StepSelf,
			Status:          stepapproval.StatusRevisionRequested,
			RevisionComment: "fix it",
			Version:         2,
		},
		Recipients: []stepapproval.Recipient{
			{ID: "emp-1", Role: stepapproval.RoleEmployee},
			{ID: "mgr-1", Role: stepapproval.RolePrimaryEvaluator},
		},
	}

	resp, err := h.SetStepApprovalStatus(context.Background(), mustStruct(t, map[string]any{
		"periodId":        "period-1",
		"employeeId":      "emp-1",
		"step":            "self",
		"status":          "revision_requested",
		"revisionComment": "fix it",
	}))
	if err != nil {
		t.Fatalf("SetStepApprovalStatus returned error: %v", err)
	}
	if approvals.setInput.RevisionComment != "fix it" || approvals.setInput.EvaluatorID != "" {
		t.Fatalf("unexpected input: %+v", approvals.setInput)
	}

	recipients := resp.GetFields()["recipients"].GetListValue().GetValues()
	if len(recipients) != 2 || recipients[1].GetStructValue().GetFields()["role"].GetStringValue() != "primary_evaluator" {
		t.Fatalf("unexpected recipients: %v", recipients)
	}
	approval := resp.GetFields()["approval"].GetStructValue().GetFields()
	if approval["revisionComment"].GetStringValue() != "fix it" {
		t.Fatalf("unexpected approval payload: %v", approval)
	}
	if _, ok := approval["evaluatorId"]; ok {
		t.Fatalf("evaluatorId must be omitted for non-secondary steps")
	}
}

func TestEvaluationGrpcHandler_MapEmployeeAndSelfEvaluation(t *testing.T) {
	t.Parallel()

	h, _, targets, _, selfEvals := newTestHandler()

	resp, err := h.MapEmployee(context.Background(), mustStruct(t, map[string]any{
		"periodId":              "period-1",
		"employeeId":            "emp-1",
		"primaryEvaluatorId":    "mgr-1",
		"secondaryEvaluatorIds": []any{"sec-1", "sec-2"},
	}))
	if err != nil {
		t.Fatalf("MapEmployee returned error: %v", err)
	}
	if len(targets.mapInput.SecondaryEvaluatorIDs) != 2 {
		t.Fatalf("unexpected input: %+v", targets.mapInput)
	}
	if got := resp.GetFields()["target"].GetStructValue().GetFields()["secondaryEvaluatorIds"].GetListValue().GetValues(); len(got) != 2 {
		t.Fatalf("unexpected target payload: %v", got)
	}

	saved, err := h.UpsertSelfEvaluation(context.Background(), mustStruct(t, map[string]any{
		"periodId":   "period-1",
		"employeeId": "emp-1",
		"itemId":     "goal-1",
		"score":      85,
	}))
	if err != nil {
		t.Fatalf("UpsertSelfEvaluation returned error: %v", err)
	}
	if selfEvals.upsertInput.Score == nil || *selfEvals.upsertInput.Score != 85 {
		t.Fatalf("unexpected input: %+v", selfEvals.upsertInput)
	}
	if saved.GetFields()["selfEvaluation"].GetStructValue().GetFields()["score"].GetNumberValue() != 85 {
		t.Fatalf("unexpected payload: %v", saved)
	}
}

func TestEvaluationGrpcHandler_ListPeriods(t *testing.T) {
	t.Parallel()

	h, periods, _, _, _ := newTestHandler()

	resp, err := h.ListPeriods(context.Background(), mustStruct(t, map[string]any{"pageSize": 10, "status": "in-progress"}))
	if err != nil {
		t.Fatalf("ListPeriods returned error: %v", err)
	}
	if periods.listInput.PageSize != 10 || periods.listInput.Status == nil || *periods.listInput.Status != evaluationperiod.StatusInProgress {
		t.Fatalf("unexpected input: %+v", periods.listInput)
	}
	if resp.GetFields()["nextPageToken"].GetStringValue() != "50" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
