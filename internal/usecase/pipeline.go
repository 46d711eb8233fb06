package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/humanize"
	"NotebookSync/internal/ports"
	"NotebookSync/internal/session"
)

// PipelineDeps wires all driven adapters into the synchronization pipeline.
type PipelineDeps struct {
	Sessions     *session.Manager
	Connector    ports.DriverConnector
	Repository   ports.SourceRepository
	Notifier     ports.Notifier
	Clicker      *humanize.Clicker
	Settings     Settings
	Selectors    Selectors
	WorkspaceURL string
	Headless     bool
	Logger       *slog.Logger
}

// Pipeline implements the per-source synchronization workflow.
type Pipeline struct {
	sessions     *session.Manager
	connector    ports.DriverConnector
	repository   ports.SourceRepository
	notifier     ports.Notifier
	clicker      *humanize.Clicker
	settings     Settings
	selectors    Selectors
	workspaceURL string
	headless     bool
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clicker := deps.Clicker
	if clicker == nil {
		clicker = humanize.NewClicker(humanize.Options{VisibleTimeout: deps.Settings.VisibleTimeout}, nil)
	}
	return &Pipeline{
		sessions:     deps.Sessions,
		connector:    deps.Connector,
		repository:   deps.Repository,
		notifier:     deps.Notifier,
		clicker:      clicker,
		settings:     deps.Settings,
		selectors:    deps.Selectors,
		workspaceURL: deps.WorkspaceURL,
		headless:     deps.Headless,
		logger:       logger,
	}
}

// Run acquires a session for profile, processes every pending source of the
// workspace in on-screen order and releases the session. Per-source failures
// are recorded in the report; only session, driver and cancellation failures
// are returned.
func (p *Pipeline) Run(ctx context.Context, profile string) (domain.Report, error) {
	started := time.Now()
	report := domain.Report{RunID: ulid.Make().String(), Profile: profile}
	logger := p.logger.With("run", report.RunID, "profile", profile)

	if p.sessions == nil || p.connector == nil || p.repository == nil {
		return report, fmt.Errorf("pipeline is not fully configured")
	}

	logger.Info("run started", "workspace", p.workspaceURL)
	err := p.sessions.With(ctx, profile, p.headless, func(ctx context.Context, endpoint string) error {
		driver, err := p.connector.Connect(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("%w: connect: %v", domain.ErrSessionUnavailable, err)
		}
		defer func() {
			if cerr := driver.Close(); cerr != nil {
				logger.Warn("driver close failed", "error", cerr)
			}
		}()

		return p.sync(ctx, driver, &report, logger)
	})
	report.Elapsed = time.Since(started)
	if errors.Is(err, domain.ErrSessionUnavailable) {
		report.Aborted = domain.ErrCodeSessionUnavailable
	}

	if err != nil {
		logger.Error("run aborted", "processed", report.Processed, "skipped", report.SkippedCount(), "elapsed", report.Elapsed, "error", err)
	} else {
		logger.Info("run finished", "processed", report.Processed, "skipped", report.SkippedCount(), "elapsed", report.Elapsed)
	}

	p.notify(ctx, report, logger)
	return report, err
}

func (p *Pipeline) sync(ctx context.Context, driver ports.UIDriver, report *domain.Report, logger *slog.Logger) error {
	if err := driver.GrantClipboardAccess(); err != nil {
		if isFatal(err) {
			return err
		}
		logger.Warn("clipboard permission not granted", "error", err)
	}
	if err := driver.Open(p.workspaceURL); err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	activator := NewActivator(driver, p.clicker, p.repository, p.settings, p.selectors, logger)
	if err := activator.ClearSelection(ctx); err != nil {
		if isFatal(err) {
			return err
		}
		logger.Warn("initial selection reset failed", "error", err)
	}

	gate := NewGate(p.repository, p.selectors.Rows, p.settings.PollInterval, p.settings.VisibleTimeout, logger)
	candidates, skipped, err := gate.ListCandidates(ctx, driver)
	if err != nil {
		return err
	}
	report.Skipped = append(report.Skipped, skipped...)

	pending, skipped, err := gate.Filter(ctx, candidates)
	if err != nil {
		return err
	}
	report.Skipped = append(report.Skipped, skipped...)
	logger.Info("sources pending", "pending", len(pending), "total", len(candidates))

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := activator.Process(ctx, c)
		if err == nil {
			report.Processed++
			continue
		}
		if isFatal(err) {
			return err
		}

		skip := domain.Skip{Title: c.Title, Stage: domain.StageDiscovered, Code: domain.ErrCodePersistenceFailure}
		var se *domain.StageError
		if errors.As(err, &se) {
			skip.Stage, skip.Code = se.Stage, se.Code
		}
		report.Skipped = append(report.Skipped, skip)
		logger.Warn("source skipped", "title", c.Title, "stage", skip.Stage, "reason", skip.Code, "error", err)
	}
	return nil
}

func (p *Pipeline) notify(ctx context.Context, report domain.Report, logger *slog.Logger) {
	if p.notifier == nil || ctx.Err() != nil {
		return
	}
	if err := p.notifier.PublishReport(ctx, report.String()); err != nil {
		logger.Warn("report notification failed", "error", err)
	}
}
