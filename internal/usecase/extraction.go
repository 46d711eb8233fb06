package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/poll"
	"NotebookSync/internal/ports"
)

// InViewport reports whether all four edges of r lie within the viewport.
func InViewport(r ports.Rect, vp ports.Viewport) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= vp.Width &&
		r.Y+r.Height <= vp.Height
}

// FindVisible returns the first candidate, in document order, whose bounding
// box lies entirely inside the viewport. Candidates without geometry are not
// visible. It returns a nil element and index -1 when none qualifies.
func FindVisible(candidates []ports.Element, vp ports.Viewport) (ports.Element, int, error) {
	for i, el := range candidates {
		box, err := el.BoundingBox()
		if err != nil {
			if isFatal(err) {
				return nil, -1, err
			}
			continue
		}
		if box != nil && InViewport(*box, vp) {
			return el, i, nil
		}
	}
	return nil, -1, nil
}

// Extractor locates the result control of the last completed request and
// reads its text through the clipboard.
type Extractor struct {
	driver    ports.UIDriver
	chatPanel string
	copyBtn   string
	settle    time.Duration
	logger    *slog.Logger
}

// NewExtractor builds an extractor over driver.
func NewExtractor(driver ports.UIDriver, chatPanel, copyButton string, settle time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{driver: driver, chatPanel: chatPanel, copyBtn: copyButton, settle: settle, logger: logger}
}

// FindResult scrolls the result panel to its end and picks the visible copy control.
func (e *Extractor) FindResult() (ports.Element, error) {
	if e.chatPanel != "" {
		if err := e.driver.Locate(e.chatPanel).ScrollToEnd(); err != nil {
			if isFatal(err) {
				return nil, err
			}
			e.logger.Debug("result panel scroll failed", "error", err)
		}
	}

	controls, err := e.driver.FindAll(e.copyBtn)
	if err != nil {
		return nil, fmt.Errorf("list result controls: %w", err)
	}
	vp, err := e.driver.Viewport()
	if err != nil {
		return nil, fmt.Errorf("read viewport: %w", err)
	}

	el, idx, err := FindVisible(controls, vp)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("none of %d result controls is inside the viewport", len(controls))
	}
	e.logger.Debug("result control selected", "index", idx, "candidates", len(controls))
	return el, nil
}

// ReadClipboardText focuses the page, waits for the clipboard to settle and
// reads it. Ordinary failures are logged and yield an empty string; only a
// closed driver or a cancelled ctx is returned as an error.
func (e *Extractor) ReadClipboardText(ctx context.Context) (string, error) {
	text, err := e.readClipboard(ctx)
	if err == nil {
		return text, nil
	}
	if isFatal(err) {
		return "", err
	}
	e.logger.Warn("clipboard read failed", "reason", domain.ErrCodeClipboardReadFailure, "error", err)
	return "", nil
}

func (e *Extractor) readClipboard(ctx context.Context) (string, error) {
	if err := e.driver.Focus(); err != nil {
		return "", fmt.Errorf("focus page: %w", err)
	}
	if err := poll.Sleep(ctx, e.settle); err != nil {
		return "", err
	}
	return e.driver.ReadClipboard()
}
