package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/humanize"
	"NotebookSync/internal/logging"
	"NotebookSync/internal/poll"
	"NotebookSync/internal/ports"
)

// Settings are the instruction text and pacing constants of a run.
type Settings struct {
	Instruction       string
	SettleDelay       time.Duration
	PollInterval      time.Duration
	CompletionTimeout time.Duration
	SubmitTimeout     time.Duration
	VisibleTimeout    time.Duration
	ClipboardSettle   time.Duration
}

// Selectors locate the workspace controls the pipeline interacts with.
type Selectors struct {
	SelectAll  string
	Rows       GateSelectors
	Prompt     string
	Submit     string
	Loading    string
	ChatPanel  string
	CopyButton string
}

// Activator drives one source at a time from discovery to persistence.
type Activator struct {
	driver    ports.UIDriver
	clicker   *humanize.Clicker
	repo      ports.SourceRepository
	extractor *Extractor
	settings  Settings
	sel       Selectors
	logger    *slog.Logger
}

// NewActivator binds the state machine to an open workspace page.
func NewActivator(driver ports.UIDriver, clicker *humanize.Clicker, repo ports.SourceRepository, settings Settings, sel Selectors, logger *slog.Logger) *Activator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activator{
		driver:    driver,
		clicker:   clicker,
		repo:      repo,
		extractor: NewExtractor(driver, sel.ChatPanel, sel.CopyButton, settings.ClipboardSettle, logger),
		settings:  settings,
		sel:       sel,
		logger:    logger,
	}
}

// ClearSelection toggles the select-all control once, deselecting the sources
// the workspace enables by default.
func (a *Activator) ClearSelection(ctx context.Context) error {
	return a.toggleAll(ctx, 1)
}

// Process moves c through activation, submission, completion, extraction and
// persistence. Failures are returned as *domain.StageError; the caller decides
// whether the cause is fatal for the run.
func (a *Activator) Process(ctx context.Context, c Candidate) (err error) {
	logger := a.logger.With("title", c.Title)
	stage := domain.StageDiscovered
	fail := func(code domain.ErrorCode, cause error) error {
		return domain.NewStageError(code, stage, c.Title, cause)
	}
	advance := func(next domain.Stage) {
		stage = next
		logger.Debug("source advanced", "stage", stage)
	}

	if err := a.toggleAll(ctx, 2); err != nil {
		if isFatal(err) {
			return fail(domain.ErrCodeControlUnavailable, err)
		}
		logger.Warn("selection reset failed", "error", err)
	}
	if err := a.clicker.Click(ctx, c.Toggle); err != nil {
		return fail(domain.ErrCodeControlUnavailable, fmt.Errorf("enable source: %w", err))
	}
	advance(domain.StageActivationRequested)

	active := true
	defer func() {
		if active && err != nil && !isFatal(err) {
			a.deactivate(ctx, c, logger)
		}
	}()

	if err := a.submit(ctx); err != nil {
		return fail(domain.ErrCodeElementUnavailable, err)
	}
	advance(domain.StageSubmissionSent)

	if err := a.awaitCompletion(ctx); err != nil {
		return fail(domain.ErrCodeCompletionTimeout, err)
	}
	advance(domain.StageAwaitingCompletion)

	result, err := a.extractor.FindResult()
	if err != nil {
		return fail(domain.ErrCodeNoVisibleResult, err)
	}
	advance(domain.StageResultDisambiguated)

	if err := a.clicker.Click(ctx, result); err != nil {
		return fail(domain.ErrCodeElementUnavailable, fmt.Errorf("copy result: %w", err))
	}
	text, err := a.extractor.ReadClipboardText(ctx)
	if err != nil {
		return fail(domain.ErrCodeClipboardReadFailure, err)
	}
	advance(domain.StageResultExtracted)

	a.deactivate(ctx, c, logger)
	active = false

	id, err := a.repo.Insert(ctx, domain.SourceRecord{
		Title:   c.Title,
		Summary: &text,
		Status:  domain.StatusSentToRemoteSummarizer,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			return fail(domain.ErrCodeDuplicateURL, err)
		}
		return fail(domain.ErrCodePersistenceFailure, err)
	}
	advance(domain.StagePersisted)

	logger.Info("source persisted", "id", id, "summary", logging.Preview(text, 100))
	return nil
}

func (a *Activator) toggleAll(ctx context.Context, times int) error {
	if a.sel.SelectAll == "" {
		return nil
	}
	el := a.driver.Locate(a.sel.SelectAll)
	for i := 0; i < times; i++ {
		if err := a.clicker.Click(ctx, el); err != nil {
			return fmt.Errorf("toggle select all: %w", err)
		}
	}
	return nil
}

func (a *Activator) submit(ctx context.Context) error {
	prompt := a.driver.Locate(a.sel.Prompt)
	if a.settings.VisibleTimeout > 0 {
		if err := prompt.WaitFor(ports.StateVisible, a.settings.VisibleTimeout); err != nil {
			return fmt.Errorf("wait for prompt: %w", err)
		}
	}
	if err := a.clicker.Pause(ctx); err != nil {
		return err
	}
	if err := prompt.Fill(a.settings.Instruction); err != nil {
		return fmt.Errorf("fill prompt: %w", err)
	}

	submit := a.driver.Locate(a.sel.Submit)
	err := poll.Until(ctx, a.settings.PollInterval, a.settings.SubmitTimeout, func(context.Context) (bool, error) {
		enabled, err := submit.Enabled()
		if err != nil {
			if isFatal(err) {
				return false, err
			}
			return false, nil
		}
		return enabled, nil
	})
	if err != nil {
		return fmt.Errorf("wait for submit enabled: %w", err)
	}

	if err := a.clicker.Click(ctx, submit); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func (a *Activator) awaitCompletion(ctx context.Context) error {
	if err := poll.Sleep(ctx, a.settings.SettleDelay); err != nil {
		return err
	}
	err := poll.Until(ctx, a.settings.PollInterval, a.settings.CompletionTimeout, func(context.Context) (bool, error) {
		n, err := a.driver.Count(a.sel.Loading)
		if err != nil {
			if isFatal(err) {
				return false, err
			}
			return false, nil
		}
		return n == 0, nil
	})
	if err != nil {
		return fmt.Errorf("wait for completion: %w", err)
	}
	return nil
}

// deactivate is best-effort; it never changes the outcome of the source.
func (a *Activator) deactivate(ctx context.Context, c Candidate, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	if err := a.clicker.Click(ctx, c.Toggle); err != nil {
		logger.Warn("source deactivation failed", "error", err)
	}
}

// isFatal reports whether err must abort the whole run instead of one source.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ports.ErrDriverClosed)
}
