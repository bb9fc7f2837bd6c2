package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

// EvaluationGrpcHandler は EvaluationAdminService の gRPC 実装です。
type EvaluationGrpcHandler struct {
	periods   evaluationperiod.UseCase
	targets   evaluationtarget.UseCase
	approvals stepapproval.UseCase
	selfEvals selfevaluation.UseCase
}

var _ EvaluationAdminServer = (*EvaluationGrpcHandler)(nil)

// NewEvaluationGrpcHandler は EvaluationGrpcHandler を生成します。
func NewEvaluationGrpcHandler(periods evaluationperiod.UseCase, targets evaluationtarget.UseCase, approvals stepapproval.UseCase, selfEvals selfevaluation.UseCase) *EvaluationGrpcHandler {
	return &EvaluationGrpcHandler{periods: periods, targets: targets, approvals: approvals, selfEvals: selfEvals}
}

// CreatePeriod は評価期間を作成します。
func (h *EvaluationGrpcHandler) CreatePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.CreatePeriodInput{Name: d.str("name")}
	if d.err != nil {
		return nil, d.err
	}

	created, err := h.periods.CreatePeriod(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(created)})
}

// GetPeriod は評価期間を取得します。
func (h *EvaluationGrpcHandler) GetPeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.GetPeriodInput{ID: d.str("periodId")}
	if d.err != nil {
		return nil, d.err
	}

	found, err := h.periods.GetPeriod(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(found)})
}

// ListPeriods は評価期間の一覧を取得します。
func (h *EvaluationGrpcHandler) ListPeriods(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.ListPeriodsInput{PageToken: d.str("pageToken")}
	if size := d.optInt("pageSize"); size != nil {
		in.PageSize = *size
	}
	if raw := d.str("status"); raw != "" {
		s := evaluationperiod.Status(raw)
		in.Status = &s
	}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.periods.ListPeriods(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	periods := make([]any, 0, len(result.Periods))
	for _, p := range result.Periods {
		periods = append(periods, periodToMap(p))
	}
	return respond(map[string]any{"periods": periods, "nextPageToken": result.NextPageToken})
}

// StartPeriod は評価期間を開始します。
func (h *EvaluationGrpcHandler) StartPeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.StartPeriodInput{ID: d.str("periodId"), ExpectedVersion: d.optInt64("expectedVersion")}
	if d.err != nil {
		return nil, d.err
	}

	started, err := h.periods.StartPeriod(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(started)})
}

// CompletePeriod は評価期間を完了します。
func (h *EvaluationGrpcHandler) CompletePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.CompletePeriodInput{ID: d.str("periodId"), ExpectedVersion: d.optInt64("expectedVersion")}
	if d.err != nil {
		return nil, d.err
	}

	completed, err := h.periods.CompletePeriod(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(completed)})
}

// ChangePhase は評価期間の段階を進めます。
func (h *EvaluationGrpcHandler) ChangePhase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.ChangePhaseInput{
		ID:              d.str("periodId"),
		TargetPhase:     d.str("targetPhase"),
		ExpectedVersion: d.optInt64("expectedVersion"),
	}
	if d.err != nil {
		return nil, d.err
	}

	changed, err := h.periods.ChangePhase(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(changed)})
}

// SetPermission は設定項目を手動で固定または変更します。
func (h *EvaluationGrpcHandler) SetPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationperiod.SetPermissionInput{
		ID:              d.str("periodId"),
		Setting:         d.str("setting"),
		AllowManual:     d.boolean("allowManual"),
		Value:           d.optBool("value"),
		ExpectedVersion: d.optInt64("expectedVersion"),
	}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.periods.SetPermission(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"period": periodToMap(updated)})
}

// MapEmployee は社員を評価期間に登録します。
func (h *EvaluationGrpcHandler) MapEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := evaluationtarget.MapEmployeeInput{
		PeriodID:              d.str("periodId"),
		EmployeeID:            d.str("employeeId"),
		PrimaryEvaluatorID:    d.str("primaryEvaluatorId"),
		SecondaryEvaluatorIDs: d.strList("secondaryEvaluatorIds"),
	}
	if d.err != nil {
		return nil, d.err
	}

	mapped, err := h.targets.MapEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"target": targetToMap(mapped)})
}

// SetStepApprovalStatus は段階承認の状態を変更します。
func (h *EvaluationGrpcHandler) SetStepApprovalStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := stepapproval.SetStatusInput{
		PeriodID:        d.str("periodId"),
		EmployeeID:      d.str("employeeId"),
		Step:            d.str("step"),
		Status:          d.str("status"),
		RevisionComment: d.str("revisionComment"),
		EvaluatorID:     d.str("evaluatorId"),
		ExpectedVersion: d.optInt64("expectedVersion"),
	}
	if d.err != nil {
		return nil, d.err
	}

	result, err := h.approvals.SetStatus(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{
		"approval":   approvalToMap(result.Approval),
		"recipients": recipientsToList(result.Recipients),
	})
}

// SubmitRevisionResponse は修正要求への対応完了を記録します。
func (h *EvaluationGrpcHandler) SubmitRevisionResponse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := stepapproval.SubmitRevisionResponseInput{
		PeriodID:        d.str("periodId"),
		EmployeeID:      d.str("employeeId"),
		Step:            d.str("step"),
		EvaluatorID:     d.str("evaluatorId"),
		ExpectedVersion: d.optInt64("expectedVersion"),
	}
	if d.err != nil {
		return nil, d.err
	}

	updated, err := h.approvals.SubmitRevisionResponse(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"approval": approvalToMap(updated)})
}

// GetStepApproval は段階承認を取得します。
func (h *EvaluationGrpcHandler) GetStepApproval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := stepapproval.GetApprovalInput{
		PeriodID:    d.str("periodId"),
		EmployeeID:  d.str("employeeId"),
		Step:        d.str("step"),
		EvaluatorID: d.str("evaluatorId"),
	}
	if d.err != nil {
		return nil, d.err
	}

	found, err := h.approvals.GetApproval(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"approval": approvalToMap(found)})
}

// ListStepApprovals は社員の段階承認一覧を取得します。
func (h *EvaluationGrpcHandler) ListStepApprovals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := stepapproval.ListApprovalsInput{PeriodID: d.str("periodId"), EmployeeID: d.str("employeeId")}
	if d.err != nil {
		return nil, d.err
	}

	approvals, err := h.approvals.ListApprovals(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(approvals))
	for _, a := range approvals {
		list = append(list, approvalToMap(a))
	}
	return respond(map[string]any{"approvals": list})
}

// UpsertSelfEvaluation は自己評価項目を作成または更新します。
func (h *EvaluationGrpcHandler) UpsertSelfEvaluation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := selfevaluation.UpsertInput{
		PeriodID:   d.str("periodId"),
		EmployeeID: d.str("employeeId"),
		ItemID:     d.str("itemId"),
		Content:    d.str("content"),
		Score:      d.optInt("score"),
	}
	if d.err != nil {
		return nil, d.err
	}

	saved, err := h.selfEvals.UpsertSelfEvaluation(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return respond(map[string]any{"selfEvaluation": selfEvaluationToMap(saved)})
}

// SubmitSelfEvaluations は社員の自己評価を評価者へ提出します。
func (h *EvaluationGrpcHandler) SubmitSelfEvaluations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := newFieldDecoder(req)
	if err != nil {
		return nil, err
	}
	in := selfevaluation.SubmitInput{PeriodID: d.str("periodId"), EmployeeID: d.str("employeeId")}
	if d.err != nil {
		return nil, d.err
	}

	submitted, err := h.selfEvals.SubmitToEvaluator(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(submitted))
	for _, e := range submitted {
		list = append(list, selfEvaluationToMap(e))
	}
	return respond(map[string]any{"selfEvaluations": list})
}
