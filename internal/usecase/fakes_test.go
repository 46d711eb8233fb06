package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/humanize"
	"NotebookSync/internal/ports"
)

var (
	errNotFound   = errors.New("element not found")
	errDriverGone = fmt.Errorf("%w: websocket closed", ports.ErrDriverClosed)
)

// fakeElement is a ports.Element driven by callbacks; nil callbacks fall back
// to a visible, enabled, inert element.
type fakeElement struct {
	text    func() (string, error)
	box     func() (*ports.Rect, error)
	enabled func() (bool, error)
	click   func() error
	fill    func(string) error
	find    func(string) ports.Element
	scroll  func() error
}

func (e *fakeElement) Text() (string, error) {
	if e.text == nil {
		return "", nil
	}
	return e.text()
}

func (e *fakeElement) visible() (bool, error) {
	box, err := e.BoundingBox()
	return box != nil, err
}

func (e *fakeElement) Enabled() (bool, error) {
	if e.enabled == nil {
		return true, nil
	}
	return e.enabled()
}

func (e *fakeElement) WaitFor(state ports.ElementState, _ time.Duration) error {
	visible, err := e.visible()
	if err != nil {
		return err
	}
	if state == ports.StateVisible && !visible {
		return errNotFound
	}
	return nil
}

func (e *fakeElement) BoundingBox() (*ports.Rect, error) {
	if e.box == nil {
		return &ports.Rect{X: 10, Y: 10, Width: 100, Height: 24}, nil
	}
	return e.box()
}

func (e *fakeElement) ClickAt(float64, float64) error {
	if e.click == nil {
		return nil
	}
	return e.click()
}

func (e *fakeElement) Fill(text string) error {
	if e.fill == nil {
		return nil
	}
	return e.fill(text)
}

func (e *fakeElement) Find(selector string) ports.Element {
	if e.find == nil {
		return missingElement()
	}
	return e.find(selector)
}

func (e *fakeElement) ScrollToEnd() error {
	if e.scroll == nil {
		return nil
	}
	return e.scroll()
}

func missingElement() *fakeElement {
	return &fakeElement{
		text: func() (string, error) { return "", errNotFound },
		box:  func() (*ports.Rect, error) { return nil, nil },
	}
}

func boxAt(y float64) *fakeElement {
	return &fakeElement{box: func() (*ports.Rect, error) {
		return &ports.Rect{X: 20, Y: y, Width: 32, Height: 32}, nil
	}}
}

var testSelectors = Selectors{
	SelectAll:  "select-all",
	Rows:       GateSelectors{Row: "row", Title: "title", Toggle: "toggle"},
	Prompt:     "prompt",
	Submit:     "submit",
	Loading:    "loading",
	ChatPanel:  "chat",
	CopyButton: "copy",
}

var testSettings = Settings{
	Instruction:       "summarize",
	PollInterval:      time.Millisecond,
	CompletionTimeout: 30 * time.Millisecond,
	SubmitTimeout:     30 * time.Millisecond,
	VisibleTimeout:    10 * time.Millisecond,
}

// fakeWorkspace simulates the remote notebook page: source rows with toggles,
// a prompt, a submit button, a loading indicator and a growing list of copy
// controls. Only the newest copy control sits inside the viewport.
type fakeWorkspace struct {
	titles    []string
	active    map[string]bool
	toggles   map[string]int
	prompt    string
	submitted []string

	generating  string
	loadingLeft int
	loadingPer  int
	stuck       map[string]bool

	results      []string
	clipboard    string
	clipboardErr error
	focused      int

	hiddenToggle map[string]bool
	opened       []string
	closed       bool
	rowsErr      error
}

func newFakeWorkspace(titles ...string) *fakeWorkspace {
	w := &fakeWorkspace{
		titles:       titles,
		active:       map[string]bool{},
		toggles:      map[string]int{},
		stuck:        map[string]bool{},
		hiddenToggle: map[string]bool{},
		loadingPer:   2,
	}
	for _, t := range titles {
		w.active[t] = true
	}
	return w
}

func (w *fakeWorkspace) activeTitles() []string {
	var out []string
	for _, t := range w.titles {
		if w.active[t] {
			out = append(out, t)
		}
	}
	return out
}

func (w *fakeWorkspace) Open(url string) error {
	w.opened = append(w.opened, url)
	return nil
}

func (w *fakeWorkspace) Locate(selector string) ports.Element {
	switch selector {
	case testSelectors.SelectAll:
		return &fakeElement{click: func() error {
			all := len(w.activeTitles()) == len(w.titles)
			for _, t := range w.titles {
				w.active[t] = !all
			}
			return nil
		}}
	case testSelectors.Prompt:
		return &fakeElement{fill: func(s string) error {
			w.prompt = s
			return nil
		}}
	case testSelectors.Submit:
		return &fakeElement{
			enabled: func() (bool, error) { return w.prompt != "", nil },
			click: func() error {
				w.generating = strings.Join(w.activeTitles(), "+")
				w.submitted = append(w.submitted, w.generating)
				w.loadingLeft = w.loadingPer
				w.prompt = ""
				return nil
			},
		}
	case testSelectors.ChatPanel:
		return &fakeElement{}
	default:
		return missingElement()
	}
}

func (w *fakeWorkspace) FindAll(selector string) ([]ports.Element, error) {
	switch selector {
	case testSelectors.Rows.Row:
		if w.rowsErr != nil {
			return nil, w.rowsErr
		}
		out := make([]ports.Element, 0, len(w.titles))
		for _, title := range w.titles {
			out = append(out, w.row(title))
		}
		return out, nil
	case testSelectors.CopyButton:
		out := make([]ports.Element, 0, len(w.results))
		for i, text := range w.results {
			y := 400.0
			if i < len(w.results)-1 {
				y = -600
			}
			el := boxAt(y)
			el.click = func() error {
				w.clipboard = text
				return nil
			}
			out = append(out, el)
		}
		return out, nil
	}
	return nil, nil
}

func (w *fakeWorkspace) row(title string) ports.Element {
	return &fakeElement{find: func(selector string) ports.Element {
		switch selector {
		case testSelectors.Rows.Title:
			return &fakeElement{text: func() (string, error) { return "  " + title + "\n", nil }}
		case testSelectors.Rows.Toggle:
			if w.hiddenToggle[title] {
				return missingElement()
			}
			return &fakeElement{click: func() error {
				w.toggles[title]++
				w.active[title] = !w.active[title]
				return nil
			}}
		}
		return missingElement()
	}}
}

func (w *fakeWorkspace) Count(selector string) (int, error) {
	switch selector {
	case testSelectors.Rows.Row:
		if w.rowsErr != nil {
			return 0, w.rowsErr
		}
		return len(w.titles), nil
	case testSelectors.Loading:
		if w.generating == "" {
			return 0, nil
		}
		if w.stuck[w.generating] {
			return 1, nil
		}
		if w.loadingLeft > 0 {
			w.loadingLeft--
			return 1, nil
		}
		w.results = append(w.results, "result-"+w.generating)
		w.generating = ""
		return 0, nil
	}
	return 0, nil
}

func (w *fakeWorkspace) Viewport() (ports.Viewport, error) {
	return ports.Viewport{Width: 1280, Height: 800}, nil
}

func (w *fakeWorkspace) Focus() error {
	w.focused++
	return nil
}

func (w *fakeWorkspace) GrantClipboardAccess() error { return nil }

func (w *fakeWorkspace) ReadClipboard() (string, error) {
	if w.clipboardErr != nil {
		return "", w.clipboardErr
	}
	return w.clipboard, nil
}

func (w *fakeWorkspace) Close() error {
	w.closed = true
	return nil
}

type fakeConnector struct {
	driver ports.UIDriver
	err    error
	calls  int
}

func (c *fakeConnector) Connect(context.Context, string) (ports.UIDriver, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.driver, nil
}

type fakeProfiles struct {
	startErr error
	starts   int
	stops    int
}

func (f *fakeProfiles) Start(context.Context, string, bool) (string, error) {
	f.starts++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "ws://127.0.0.1:9222/devtools/browser/x", nil
}

func (f *fakeProfiles) Stop(context.Context, string) (bool, error) {
	f.stops++
	return true, nil
}

func (f *fakeProfiles) IsActive(context.Context, string) (bool, error) { return false, nil }

type fakeRepo struct {
	records   []domain.SourceRecord
	existsErr error
	insertErr error
	imported  [][]domain.SourceRecord
}

func (r *fakeRepo) Exists(_ context.Context, title string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, rec := range r.records {
		if rec.Title == title && rec.Summary != nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) Insert(_ context.Context, rec domain.SourceRecord) (int64, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.records = append(r.records, rec)
	return int64(len(r.records)), nil
}

func (r *fakeRepo) ImportBatch(_ context.Context, recs []domain.SourceRecord) (domain.ImportResult, error) {
	r.imported = append(r.imported, recs)
	var res domain.ImportResult
	for _, rec := range recs {
		dup := false
		for _, existing := range r.records {
			if existing.URL != "" && existing.URL == rec.URL {
				dup = true
				break
			}
		}
		if dup {
			res.Skipped++
			continue
		}
		r.records = append(r.records, rec)
		res.Added++
	}
	return res, nil
}

func (r *fakeRepo) CountByStatus(context.Context) (map[domain.Status]int, error) {
	out := map[domain.Status]int{}
	for _, rec := range r.records {
		out[rec.Status]++
	}
	return out, nil
}

func (r *fakeRepo) byTitle(title string) []domain.SourceRecord {
	var out []domain.SourceRecord
	for _, rec := range r.records {
		if rec.Title == title {
			out = append(out, rec)
		}
	}
	return out
}

type fakeNotifier struct {
	reports []string
}

func (n *fakeNotifier) PublishReport(_ context.Context, report string) error {
	n.reports = append(n.reports, report)
	return nil
}

func testClicker() *humanize.Clicker {
	return humanize.NewClicker(humanize.Options{VisibleTimeout: testSettings.VisibleTimeout}, rand.New(rand.NewPCG(3, 4)))
}

func strPtr(s string) *string { return &s }
