package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"NotebookSync/internal/config"
	"NotebookSync/internal/domain"
	"NotebookSync/internal/humanize"
	"NotebookSync/internal/importer"
	"NotebookSync/internal/infrastructure/adspower"
	"NotebookSync/internal/infrastructure/browser"
	"NotebookSync/internal/infrastructure/parser"
	"NotebookSync/internal/infrastructure/scheduler"
	"NotebookSync/internal/infrastructure/storage"
	"NotebookSync/internal/infrastructure/telegram"
	"NotebookSync/internal/logging"
	"NotebookSync/internal/ports"
	"NotebookSync/internal/session"
	"NotebookSync/internal/usecase"
)

const stopTimeout = 45 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	repo     *storage.SQLiteRepository
	registry *importer.Registry
	pipeline *usecase.Pipeline
	importer *usecase.Importer
}

// New opens the store and builds every adapter described by cfg.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	repo := storage.NewSQLiteRepository(db)

	registry := importer.NewRegistry()
	parser.Register(registry)

	profiles := adspower.NewClient(cfg.Profiles.APIURL, cfg.Profiles.LaunchArgs, cfg.Profiles.RequestTimeout,
		baseLogger.With("component", "adspower"))
	connector := browser.NewConnector(browser.Options{
		SlowMoMin:               cfg.Browser.SlowMoMin,
		SlowMoMax:               cfg.Browser.SlowMoMax,
		NavigationTimeout:       cfg.Browser.NavigationTimeout,
		SystemClipboardFallback: cfg.Browser.SystemClipboardFallback,
	}, baseLogger.With("component", "browser"))

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	p := cfg.Pipeline
	clicker := humanize.NewClicker(humanize.Options{
		DelayMin:       p.InteractionDelayMin,
		DelayMax:       p.InteractionDelayMax,
		Radius:         p.ClickRadius,
		VisibleTimeout: p.VisibleTimeout,
	}, nil)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sessions:     session.NewManager(profiles, baseLogger.With("component", "session")),
		Connector:    connector,
		Repository:   repo,
		Notifier:     notifier,
		Clicker:      clicker,
		Settings:     settingsFrom(p),
		Selectors:    selectorsFrom(cfg.Selectors),
		WorkspaceURL: cfg.Workspace.URL(),
		Headless:     cfg.Profiles.Headless,
		Logger:       baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		db:       db,
		repo:     repo,
		registry: registry,
		pipeline: pipeline,
		importer: usecase.NewImporter(registry, repo, baseLogger.With("component", "import")),
	}, nil
}

func settingsFrom(p config.PipelineConfig) usecase.Settings {
	return usecase.Settings{
		Instruction:       p.InstructionTemplate,
		SettleDelay:       p.SettleDelay,
		PollInterval:      p.PollInterval,
		CompletionTimeout: p.CompletionTimeout,
		SubmitTimeout:     p.SubmitTimeout,
		VisibleTimeout:    p.VisibleTimeout,
		ClipboardSettle:   p.ClipboardSettle,
	}
}

func selectorsFrom(s config.SelectorConfig) usecase.Selectors {
	return usecase.Selectors{
		SelectAll: s.SelectAll,
		Rows: usecase.GateSelectors{
			Row:    s.SourceRow,
			Title:  s.SourceTitle,
			Toggle: s.SourceToggle,
		},
		Prompt:     s.Prompt,
		Submit:     s.Submit,
		Loading:    s.Loading,
		ChatPanel:  s.ChatPanel,
		CopyButton: s.CopyButton,
	}
}

// Close releases the store.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Run performs a single pipeline execution for profile.
func (a *Application) Run(ctx context.Context, profile string) (domain.Report, error) {
	return a.pipeline.Run(ctx, profile)
}

// Watch re-runs the pipeline every interval until ctx is cancelled.
func (a *Application) Watch(ctx context.Context, profile string, every time.Duration) error {
	if every <= 0 {
		every = a.cfg.Schedule.Interval
	}
	if every <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}

	driver := scheduler.NewIntervalScheduler(every)
	runner := usecase.NewScheduler(driver, a.pipeline, profile, a.logger.With("component", "scheduler"))
	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watch mode started", "profile", profile, "every", every)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := runner.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("watch mode stopped", "profile", profile)
	return nil
}

// Import loads sources from the file at path using the named format.
func (a *Application) Import(ctx context.Context, format, path string) (domain.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	return a.importer.Import(ctx, format, f)
}

// ImportFormats lists the registered import formats.
func (a *Application) ImportFormats() []string {
	return a.registry.Names()
}

// Status returns record counts for every lifecycle status.
func (a *Application) Status(ctx context.Context) (map[domain.Status]int, error) {
	return a.repo.CountByStatus(ctx)
}
