package handler

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

// fieldDecoder は Struct から型付きでフィールドを読み出します。最初の型エラーを保持します。
type fieldDecoder struct {
	fields map[string]*structpb.Value
	err    error
}

func newFieldDecoder(req *structpb.Struct) (*fieldDecoder, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	return &fieldDecoder{fields: req.GetFields()}, nil
}

func (d *fieldDecoder) fail(key, want string) {
	if d.err == nil {
		d.err = status.Errorf(codes.InvalidArgument, "field %s must be %s", key, want)
	}
}

func (d *fieldDecoder) lookup(key string) (*structpb.Value, bool) {
	v, ok := d.fields[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (d *fieldDecoder) str(key string) string {
	v, ok := d.lookup(key)
	if !ok {
		return ""
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		d.fail(key, "a string")
		return ""
	}
	return s.StringValue
}

func (d *fieldDecoder) optBool(key string) *bool {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		d.fail(key, "a bool")
		return nil
	}
	value := b.BoolValue
	return &value
}

func (d *fieldDecoder) boolean(key string) bool {
	if v := d.optBool(key); v != nil {
		return *v
	}
	return false
}

func (d *fieldDecoder) optInt64(key string) *int64 {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) {
		d.fail(key, "an integer")
		return nil
	}
	value := int64(n.NumberValue)
	return &value
}

func (d *fieldDecoder) optInt(key string) *int {
	v := d.optInt64(key)
	if v == nil {
		return nil
	}
	value := int(*v)
	return &value
}

func (d *fieldDecoder) strList(key string) []string {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	list, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		d.fail(key, "a list of strings")
		return nil
	}
	result := make([]string, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			d.fail(key, "a list of strings")
			return nil
		}
		result = append(result, s.StringValue)
	}
	return result
}

func respond(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func stringsToList(values []string) []any {
	list := make([]any, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	return list
}

func periodToMap(p *evaluationperiod.Period) map[string]any {
	manual := make([]string, 0, len(p.ManuallySetFields))
	for _, f := range p.ManuallySetFields {
		manual = append(manual, string(f))
	}
	return map[string]any{
		"id":                            p.ID,
		"name":                          p.Name,
		"status":                        string(p.Status),
		"currentPhase":                  string(p.CurrentPhase),
		"criteriaSettingEnabled":        p.Settings.CriteriaEnabled,
		"selfEvaluationSettingEnabled":  p.Settings.SelfEvaluationEnabled,
		"finalEvaluationSettingEnabled": p.Settings.FinalEvaluationEnabled,
		"manuallySetFields":             stringsToList(manual),
		"version":                       p.Version,
		"createdAt":                     formatTime(p.CreatedAt),
		"updatedAt":                     formatTime(p.UpdatedAt),
	}
}

func targetToMap(t *evaluationtarget.Target) map[string]any {
	return map[string]any{
		"periodId":              t.PeriodID,
		"employeeId":            t.EmployeeID,
		"primaryEvaluatorId":    t.PrimaryEvaluatorID,
		"secondaryEvaluatorIds": stringsToList(t.SecondaryEvaluatorIDs),
		"createdAt":             formatTime(t.CreatedAt),
	}
}

func approvalToMap(a *stepapproval.Approval) map[string]any {
	m := map[string]any{
		"id":         a.ID,
		"periodId":   a.PeriodID,
		"employeeId": a.EmployeeID,
		"step":       string(a.Step),
		"status":     string(a.Status),
		"version":    a.Version,
		"createdAt":  formatTime(a.CreatedAt),
		"updatedAt":  formatTime(a.UpdatedAt),
	}
	if a.EvaluatorID != "" {
		m["evaluatorId"] = a.EvaluatorID
	}
	if a.RevisionComment != "" {
		m["revisionComment"] = a.RevisionComment
	}
	return m
}

func recipientsToList(recipients []stepapproval.Recipient) []any {
	list := make([]any, 0, len(recipients))
	for _, r := range recipients {
		list = append(list, map[string]any{"id": r.ID, "role": string(r.Role)})
	}
	return list
}

func selfEvaluationToMap(e *selfevaluation.SelfEvaluation) map[string]any {
	m := map[string]any{
		"id":                   e.ID,
		"periodId":             e.PeriodID,
		"employeeId":           e.EmployeeID,
		"itemId":               e.ItemID,
		"content":              e.Content,
		"submittedToEvaluator": e.SubmittedToEvaluator,
		"createdAt":            formatTime(e.CreatedAt),
		"updatedAt":            formatTime(e.UpdatedAt),
	}
	if e.Score != nil {
		m["score"] = *e.Score
	}
	if e.SubmittedToEvaluatorAt != nil {
		m["submittedToEvaluatorAt"] = formatTime(*e.SubmittedToEvaluatorAt)
	}
	return m
}
