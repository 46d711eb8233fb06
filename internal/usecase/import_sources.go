package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/importer"
	"NotebookSync/internal/ports"
)

// Importer seeds the store from bulk import files.
type Importer struct {
	registry   *importer.Registry
	repository ports.SourceRepository
	logger     *slog.Logger
}

// NewImporter builds the bulk import use case.
func NewImporter(registry *importer.Registry, repository ports.SourceRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{registry: registry, repository: repository, logger: logger}
}

// Import parses r with the named format and inserts every new url as a
// DOWNLOADED record. Urls already stored are counted as skipped.
func (i *Importer) Import(ctx context.Context, format string, r io.Reader) (domain.ImportResult, error) {
	if i.registry == nil || i.repository == nil {
		return domain.ImportResult{}, fmt.Errorf("importer is not configured")
	}

	f, err := i.registry.Resolve(format)
	if err != nil {
		return domain.ImportResult{}, err
	}

	entries, err := f.Parse(ctx, r)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("parse %s: %w", format, err)
	}

	records := make([]domain.SourceRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, domain.SourceRecord{
			Title:      e.Title,
			URL:        e.URL,
			ExternalID: importer.VideoID(e.URL),
			Status:     domain.StatusDownloaded,
		})
	}

	res, err := i.repository.ImportBatch(ctx, records)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("store import: %w", err)
	}

	i.logger.Info("import finished", "format", format, "entries", len(entries), "added", res.Added, "skipped", res.Skipped)
	return res, nil
}
