package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/GTD-web/ems-backend-sub024/internal/adapters/grpc/handler"
	"github.com/GTD-web/ems-backend-sub024/internal/adapters/httpapi"
	"github.com/GTD-web/ems-backend-sub024/internal/adapters/notification"
	"github.com/GTD-web/ems-backend-sub024/internal/adapters/observability"
	"github.com/GTD-web/ems-backend-sub024/internal/adapters/repository/postgres"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationperiod"
	"github.com/GTD-web/ems-backend-sub024/internal/core/evaluationtarget"
	"github.com/GTD-web/ems-backend-sub024/internal/core/event"
	"github.com/GTD-web/ems-backend-sub024/internal/core/selfevaluation"
	"github.com/GTD-web/ems-backend-sub024/internal/core/stepapproval"
	"github.com/GTD-web/ems-backend-sub024/internal/platform/config"
	pg "github.com/GTD-web/ems-backend-sub024/internal/platform/db/postgres"
	"github.com/GTD-web/ems-backend-sub024/internal/platform/logging"
	"github.com/GTD-web/ems-backend-sub024/internal/platform/server"
	"github.com/GTD-web/ems-backend-sub024/internal/platform/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsSink, err := observability.NewMetricsSink(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	sink := event.Multi{observability.NewLogSink(logger), metricsSink, observability.TraceSink{}}

	periodRepo := postgres.NewPeriodRepository(dbPool)
	targetRepo := postgres.NewTargetRepository(dbPool)
	approvalRepo := postgres.NewStepApprovalRepository(dbPool)
	selfEvalRepo := postgres.NewSelfEvaluationRepository(dbPool)
	outbox := postgres.NewRevisionOutbox(dbPool)

	periodSvc := evaluationperiod.NewService(periodRepo, nil, txManager,
		evaluationperiod.WithEventSink(sink),
		evaluationperiod.WithSkipAhead(cfg.Phase.SkipAheadAllowed()),
	)
	selfEvalSvc := selfevaluation.NewService(selfEvalRepo, periodRepo, nil, txManager, sink)
	approvalSvc := stepapproval.NewService(stepapproval.Dependencies{
		Approvals:   approvalRepo,
		Targets:     targetRepo,
		Dispatcher:  outbox,
		Submissions: selfEvalSvc,
		Events:      sink,
	}, nil, txManager)
	targetSvc := evaluationtarget.NewService(targetRepo, periodRepo, approvalSvc, nil, txManager, sink)

	grpcServer := server.New(cfg.Server.ListenAddr, handler.NewEvaluationGrpcHandler(periodSvc, targetSvc, approvalSvc, selfEvalSvc), logger)
	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Dependencies{
			Periods:         periodSvc,
			Targets:         targetSvc,
			Approvals:       approvalSvc,
			SelfEvaluations: selfEvalSvc,
			Gatherer:        registry,
			Readiness:       dbPool,
			Logger:          logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	launch := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
			cancel()
		}()
	}

	launch("grpc", func(ctx context.Context) error {
		logger.Info("gRPC server listening", slog.String("addr", cfg.Server.ListenAddr))
		return grpcServer.Run(ctx)
	})

	if cfg.Server.HTTPAddr != "" {
		launch("http", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			}()
			logger.Info("HTTP server listening", slog.String("addr", cfg.Server.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if cfg.Notification.Enabled {
		nc, js, err := notification.Connect(ctx, cfg.Notification.NATSURL, cfg.Notification.Stream, cfg.Notification.SubjectPrefix)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("connect notification stream: %w", err)
		}
		defer nc.Close()

		relay := notification.NewRelay(outbox, notification.NewJetStreamPublisher(js), txManager, logger, notification.RelayConfig{
			SubjectPrefix: cfg.Notification.SubjectPrefix,
			BatchSize:     cfg.Notification.BatchSize,
			Interval:      cfg.Notification.RelayInterval,
			MaxAttempts:   cfg.Notification.MaxAttempts,
		})
		launch("relay", relay.Run)
	}

	wg.Wait()
	return errors.Join(errs...)
}
