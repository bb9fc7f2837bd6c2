//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/GTD-web/ems-backend-sub024/internal/adapters/repository/postgres"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
	"github.com/GTD-web/ems-backend-sub024/internal/platform/config"
	pg "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func TestEvaluationLifecycleIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	require.NoError(t, err)
	require.NoError(t, resetMigrations(cfg.Database.DSN(), migrationsDir))

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	clock := stubClock{now: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	tx := pg.NewTransactionManager(pool)

	periodRepo := repo.NewPeriodRepository(pool)
	targetRepo := repo.NewTargetRepository(pool)
	outbox := repo.NewRevisionOutbox(pool)

	periods := evaluationperiod.NewService(periodRepo, clock, tx, evaluationperiod.WithSkipAhead(true))
	selfEvals := selfevaluation.NewService(repo.NewSelfEvaluationRepository(pool), periodRepo, clock, tx, nil)
	approvals := stepapproval.NewService(stepapproval.Dependencies{
		Approvals:   repo.NewStepApprovalRepository(pool),
		Targets:     targetRepo,
		Dispatcher:  outbox,
		Submissions: selfEvals,
	}, clock, tx)
	targets := evaluationtarget.NewService(targetRepo, periodRepo, approvals, clock, tx, nil)

	period, err := periods.CreatePeriod(ctx, evaluationperiod.CreatePeriodInput{Name: "2025 上期"})
	require.NoError(t, err)
	period, err = periods.StartPeriod(ctx, evaluationperiod.StartPeriodInput{ID: period.ID})
	require.NoError(t, err)
	assert.True(t, period.Settings.CriteriaEnabled)

	period, err = periods.ChangePhase(ctx, evaluationperiod.ChangePhaseInput{ID: period.ID, TargetPhase: "self-evaluation"})
	require.NoError(t, err)
	assert.Equal(t, evaluationperiod.Settings{SelfEvaluationEnabled: true}, period.Settings)

	_, err = targets.MapEmployee(ctx, evaluationtarget.MapEmployeeInput{
		PeriodID:              period.ID,
		EmployeeID:            "emp-1",
		PrimaryEvaluatorID:    "mgr-1",
		SecondaryEvaluatorIDs: []string{"sec-1"},
	})
	require.NoError(t, err)

	seeded, err := approvals.ListApprovals(ctx, stepapproval.ListApprovalsInput{PeriodID: period.ID, EmployeeID: "emp-1"})
	require.NoError(t, err)
	require.Len(t, seeded, 4)

	score := 70
	_, err = selfEvals.UpsertSelfEvaluation(ctx, selfevaluation.UpsertInput{PeriodID: period.ID, EmployeeID: "emp-1", ItemID: "item-1", Content: "shipped", Score: &score})
	require.NoError(t, err)
	_, err = selfEvals.SubmitToEvaluator(ctx, selfevaluation.SubmitInput{PeriodID: period.ID, EmployeeID: "emp-1"})
	require.NoError(t, err)

	result, err := approvals.SetStatus(ctx, stepapproval.SetStatusInput{
		PeriodID:        period.ID,
		EmployeeID:      "emp-1",
		Step:            "self",
		Status:          "revision_requested",
		RevisionComment: "add metrics",
	})
	require.NoError(t, err)
	assert.Equal(t, []stepapproval.Recipient{
		{ID: "emp-1", Role: stepapproval.RoleEmployee},
		{ID: "mgr-1", Role: stepapproval.RolePrimaryEvaluator},
	}, result.Recipients)

	items, err := selfEvals.ListSelfEvaluations(ctx, selfevaluation.ListInput{PeriodID: period.ID, EmployeeID: "emp-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].SubmittedToEvaluator)

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "revision_requested.self", pending[0].Topic)

	completed, err := approvals.SubmitRevisionResponse(ctx, stepapproval.SubmitRevisionResponseInput{PeriodID: period.ID, EmployeeID: "emp-1", Step: "self"})
	require.NoError(t, err)
	assert.Equal(t, stepapproval.StatusRevisionCompleted, completed.Status)
	assert.Empty(t, completed.RevisionComment)

	_, err = approvals.SetStatus(ctx, stepapproval.SetStatusInput{PeriodID: period.ID, EmployeeID: "emp-1", Step: "secondary", Status: "approved", EvaluatorID: "sec-9"})
	assert.True(t, errors.Is(err, stepapproval.ErrEvaluatorNotAssigned), "unexpected error: %v", err)

	_, err = periods.CompletePeriod(ctx, evaluationperiod.CompletePeriodInput{ID: period.ID})
	require.NoError(t, err)
	_, err = periods.ChangePhase(ctx, evaluationperiod.ChangePhaseInput{ID: period.ID, TargetPhase: "closure"})
	assert.ErrorIs(t, err, evaluationperiod.ErrPeriodCompleted)
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
