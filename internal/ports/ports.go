package ports

import (
	"context"
	"errors"
	"time"

	"NotebookSync/internal/domain"
)

// ErrDriverClosed signals that the browser connection is gone. It aborts the run.
var ErrDriverClosed = errors.New("ui driver closed")

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Viewport is the size of the visible page area.
type Viewport struct {
	Width  float64
	Height float64
}

// ElementState is a state an element can be awaited for.
type ElementState string

// StateVisible waits until the element is rendered with a non-empty box.
const StateVisible ElementState = "visible"

// Element is a lazily resolved handle on page content.
type Element interface {
	Text() (string, error)
	Enabled() (bool, error)
	WaitFor(state ElementState, timeout time.Duration) error
	// BoundingBox returns nil when the element is not rendered.
	BoundingBox() (*Rect, error)
	// ClickAt clicks at an offset relative to the element's top-left corner.
	ClickAt(x, y float64) error
	Fill(text string) error
	Find(selector string) Element
	ScrollToEnd() error
}

// UIDriver drives the remote workspace page.
type UIDriver interface {
	Open(url string) error
	Locate(selector string) Element
	FindAll(selector string) ([]Element, error)
	Count(selector string) (int, error)
	Viewport() (Viewport, error)
	// Focus brings the page to front and clicks the document body.
	Focus() error
	GrantClipboardAccess() error
	ReadClipboard() (string, error)
	Close() error
}

// DriverConnector attaches a UIDriver to a running browser session.
type DriverConnector interface {
	Connect(ctx context.Context, endpoint string) (UIDriver, error)
}

// ProfileController starts and stops managed browser profiles.
type ProfileController interface {
	Start(ctx context.Context, profile string, headless bool) (string, error)
	Stop(ctx context.Context, profile string) (bool, error)
	IsActive(ctx context.Context, profile string) (bool, error)
}

// SourceRepository persists source records for dedup and downstream stages.
type SourceRepository interface {
	Exists(ctx context.Context, title string) (bool, error)
	Insert(ctx context.Context, record domain.SourceRecord) (int64, error)
	ImportBatch(ctx context.Context, records []domain.SourceRecord) (domain.ImportResult, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// Notifier publishes run reports to Telegram or other channels.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
