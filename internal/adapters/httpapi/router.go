// Package httpapi は運用向けの読み取り専用 HTTP エンドポイントを提供します。
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GTD-web/ems-backend-sub024/internal/core/errkind"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
)

// Pinger は依存先の疎通確認です。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies はルーターが参照するユースケースです。
type Dependencies struct {
	Periods         evaluationperiod.UseCase
	Targets         evaluationtarget.UseCase
	Approvals       stepapproval.UseCase
	SelfEvaluations selfevaluation.UseCase
	Gatherer        prometheus.Gatherer
	Readiness       Pinger
	Logger          *slog.Logger
}

type api struct {
	deps Dependencies
}

// NewRouter は chi ルーターを構築します。
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	a := &api{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/periods", func(r chi.Router) {
		r.Get("/", a.handleListPeriods)
		r.Route("/{periodID}", func(r chi.Router) {
			r.Get("/", a.handleGetPeriod)
			r.Get("/targets", a.handleListTargets)
			r.Get("/employees/{employeeID}/approvals", a.handleListApprovals)
			r.Get("/employees/{employeeID}/self-evaluations", a.handleListSelfEvaluations)
		})
	})

	return r
}

func (a *api) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.deps.Logger.LogAttrs(r.Context(), slog.LevelInfo, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.deps.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.deps.Readiness.Ping(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *api) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := evaluationperiod.ListPeriodsInput{PageToken: q.Get("pageToken")}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			a.fail(w, r, evaluationperiod.ErrInvalidPageSize)
			return
		}
		in.PageSize = size
	}
	if raw := q.Get("status"); raw != "" {
		s := evaluationperiod.Status(raw)
		in.Status = &s
	}

	result, err := a.deps.Periods.ListPeriods(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]periodView, 0, len(result.Periods))
	for _, p := range result.Periods {
		views = append(views, newPeriodView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": views, "nextPageToken": result.NextPageToken})
}

func (a *api) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := a.deps.Periods.GetPeriod(r.Context(), evaluationperiod.GetPeriodInput{ID: chi.URLParam(r, "periodID")})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": newPeriodView(p)})
}

func (a *api) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := a.deps.Targets.ListTargets(r.Context(), evaluationtarget.ListTargetsInput{PeriodID: chi.URLParam(r, "periodID")})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]targetView, 0, len(targets))
	for _, t := range targets {
		views = append(views, newTargetView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": views})
}

func (a *api) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := a.deps.Approvals.ListApprovals(r.Context(), stepapproval.ListApprovalsInput{
		PeriodID:   chi.URLParam(r, "periodID"),
		EmployeeID: chi.URLParam(r, "employeeID"),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]approvalView, 0, len(approvals))
	for _, ap := range approvals {
		views = append(views, newApprovalView(ap))
	}
	writeJSON(w, http.StatusOK, map[string]any{"approvals": views})
}

func (a *api) handleListSelfEvaluations(w http.ResponseWriter, r *http.Request) {
	items, err := a.deps.SelfEvaluations.ListSelfEvaluations(r.Context(), selfevaluation.ListInput{
		PeriodID:   chi.URLParam(r, "periodID"),
		EmployeeID: chi.URLParam(r, "employeeID"),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views := make([]selfEvaluationView, 0, len(items))
	for _, it := range items {
		views = append(views, newSelfEvaluationView(it))
	}
	writeJSON(w, http.StatusOK, map[string]any{"selfEvaluations": views})
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		a.deps.Logger.ErrorContext(r.Context(), "http handler failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		message = "internal error"
	}
	writeJSON(w, status, map[string]any{"error": errorBody{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

func statusFor(err error) (int, string) {
	switch errkind.Of(err) {
	case errkind.KindValidation:
		return http.StatusBadRequest, "invalid_argument"
	case errkind.KindNotFound:
		return http.StatusNotFound, "not_found"
	case errkind.KindStateConflict:
		return http.StatusConflict, "failed_precondition"
	case errkind.KindConflict:
		return http.StatusConflict, "aborted"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "deadline_exceeded"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
