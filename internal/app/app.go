// -----------------------------------------------------------------------
// Application wiring - storage, services, handlers
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/handlers"
	"github.com/ternarybob/tento/internal/httpexec"
	"github.com/ternarybob/tento/internal/interfaces"
	"github.com/ternarybob/tento/internal/services/analysis"
	"github.com/ternarybob/tento/internal/services/auth"
	"github.com/ternarybob/tento/internal/services/events"
	"github.com/ternarybob/tento/internal/services/expansion"
	"github.com/ternarybob/tento/internal/services/jobs"
	"github.com/ternarybob/tento/internal/services/reports"
	"github.com/ternarybob/tento/internal/services/scheduler"
	"github.com/ternarybob/tento/internal/storage/badger"
)

const cleanupJobName = "job-cleanup"

// App holds the wired application graph.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager   interfaces.StorageManager
	EventService     interfaces.EventService
	ExpansionService interfaces.ExpansionService
	JobService       interfaces.JobService
	AnalysisService  interfaces.AnalysisService
	AuthService      interfaces.AuthService
	SchedulerService interfaces.SchedulerService
	ReportService    interfaces.ReportService

	CorpusHandler   *handlers.CorpusHandler
	JobHandler      *handlers.JobHandler
	ResultHandler   *handlers.ResultHandler
	AnalysisHandler *handlers.AnalysisHandler
	ReportHandler   *handlers.ReportHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler

	logStreamer *handlers.LogStreamer
}

// New builds the application graph and starts the background pieces:
// the job dispatcher, the cleanup schedule, and the log streamer.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storage, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storage

	// WebSocket handler is created early so the log streamer can
	// broadcast startup logs.
	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger, &cfg.WebSocket)

	app.logStreamer = handlers.NewLogStreamer(app.WSHandler, &cfg.WebSocket)
	app.logStreamer.Start()
	logger.SetChannel("websocket", app.logStreamer.GetChannel())

	executor := httpexec.NewExecutor(logger, &cfg.Executor)

	app.ExpansionService = expansion.NewService(storage, app.EventService, logger, &cfg.Fuzzer)
	app.JobService = jobs.NewService(storage, executor, app.EventService, logger, &cfg.Executor)
	app.AnalysisService = analysis.NewService(storage, logger)
	app.AuthService = auth.NewService(&cfg.Auth, logger)
	app.SchedulerService = scheduler.NewService(logger)
	app.ReportService = reports.NewService(storage, app.AnalysisService, logger)

	if err := app.JobService.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to start job service: %w", err)
	}

	if cfg.Cleanup.Enabled {
		err := app.SchedulerService.RegisterJob(cleanupJobName, cfg.Cleanup.Schedule, func() error {
			deleted, err := app.JobService.CleanupJobs(context.Background(), cfg.Cleanup.MaxAgeHours)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info().Int("deleted", deleted).Msg("Cleanup sweep removed old jobs")
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register cleanup job: %w", err)
		}
		if err := app.SchedulerService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	app.CorpusHandler = handlers.NewCorpusHandler(app.ExpansionService, logger)
	app.JobHandler = handlers.NewJobHandler(app.JobService, &cfg.Cleanup, logger)
	app.ResultHandler = handlers.NewResultHandler(storage, app.JobService, &cfg.Fuzzer, logger)
	app.AnalysisHandler = handlers.NewAnalysisHandler(app.AnalysisService, logger)
	app.ReportHandler = handlers.NewReportHandler(app.ReportService, logger)
	app.StatusHandler = handlers.NewStatusHandler()

	logger.Info().
		Bool("auth_enabled", cfg.Auth.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts down background workers and storage in reverse order of
// startup.
func (a *App) Close() error {
	ctx := context.Background()

	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.JobService != nil {
		if err := a.JobService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop job service")
		}
	}

	if a.logStreamer != nil {
		a.logStreamer.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
