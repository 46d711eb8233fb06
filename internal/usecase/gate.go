package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/poll"
	"NotebookSync/internal/ports"
)

// Candidate is a source row found in the workspace together with its activation control.
type Candidate struct {
	domain.Candidate
	Toggle ports.Element
}

// GateSelectors locate source rows and their parts.
type GateSelectors struct {
	Row    string
	Title  string
	Toggle string
}

// Gate enumerates workspace sources and drops the ones already processed.
type Gate struct {
	repo     ports.SourceRepository
	sel      GateSelectors
	interval time.Duration
	wait     time.Duration
	logger   *slog.Logger
}

// NewGate builds the enumeration and dedup gate. wait bounds how long
// enumeration waits for the first row to render.
func NewGate(repo ports.SourceRepository, sel GateSelectors, interval, wait time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{repo: repo, sel: sel, interval: interval, wait: wait, logger: logger}
}

// ListCandidates returns the workspace sources in on-screen order. Rows whose
// title cannot be read are returned as skips.
func (g *Gate) ListCandidates(ctx context.Context, driver ports.UIDriver) ([]Candidate, []domain.Skip, error) {
	err := poll.Until(ctx, g.interval, g.wait, func(context.Context) (bool, error) {
		n, err := driver.Count(g.sel.Row)
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
	switch {
	case errors.Is(err, poll.ErrTimeout):
		g.logger.Warn("workspace lists no sources", "wait", g.wait)
		return nil, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("wait for sources: %w", err)
	}

	rows, err := driver.FindAll(g.sel.Row)
	if err != nil {
		return nil, nil, fmt.Errorf("list sources: %w", err)
	}

	var (
		candidates []Candidate
		skipped    []domain.Skip
	)
	for i, row := range rows {
		text, err := row.Find(g.sel.Title).Text()
		if err != nil && isFatal(err) {
			return nil, nil, err
		}
		title := strings.Join(strings.Fields(text), " ")
		if err != nil || title == "" {
			label := "#" + strconv.Itoa(i+1)
			g.logger.Warn("source title unavailable", "index", i, "reason", domain.ErrCodeElementUnavailable, "error", err)
			skipped = append(skipped, domain.Skip{Title: label, Stage: domain.StageDiscovered, Code: domain.ErrCodeElementUnavailable})
			continue
		}
		candidates = append(candidates, Candidate{
			Candidate: domain.Candidate{Index: i, Title: title},
			Toggle:    row.Find(g.sel.Toggle),
		})
	}

	g.logger.Info("sources enumerated", "count", len(rows))
	return candidates, skipped, nil
}

// Filter keeps candidates that have no summarized record yet.
func (g *Gate) Filter(ctx context.Context, candidates []Candidate) ([]Candidate, []domain.Skip, error) {
	var (
		pending []Candidate
		skipped []domain.Skip
	)
	for _, c := range candidates {
		done, err := g.repo.Exists(ctx, c.Title)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			g.logger.Error("dedup lookup failed", "title", c.Title, "reason", domain.ErrCodePersistenceFailure, "error", err)
			skipped = append(skipped, domain.Skip{Title: c.Title, Stage: domain.StageDiscovered, Code: domain.ErrCodePersistenceFailure})
			continue
		}
		if done {
			g.logger.Debug("source already processed", "title", c.Title)
			skipped = append(skipped, domain.Skip{Title: c.Title, Stage: domain.StageDiscovered, Code: domain.ErrCodeAlreadyProcessed})
			continue
		}
		pending = append(pending, c)
	}
	return pending, skipped, nil
}
