package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/ports"
)

const sourcesTable = "sources"

// SQLiteRepository persists source records into SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.SourceRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository wires an opened database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// withTx runs fn inside a transaction: commit on success, rollback on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit tx: %w", cErr)
		}
	}()

	return fn(tx)
}

// Exists reports whether a record with this title already carries a summary.
func (r *SQLiteRepository) Exists(ctx context.Context, title string) (bool, error) {
	query, args, err := sq.Select("1").
		From(sourcesTable).
		Where(sq.Eq{"title": title}).
		Where(sq.NotEq{"summary": nil}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var found bool
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		switch scanErr := tx.QueryRowContext(ctx, query, args...).Scan(&one); {
		case errors.Is(scanErr, sql.ErrNoRows):
			return nil
		case scanErr != nil:
			return fmt.Errorf("query exists: %w", scanErr)
		}
		found = true
		return nil
	})
	return found, err
}

// Insert stores a new record and returns its id. A url collision yields domain.ErrDuplicateURL.
func (r *SQLiteRepository) Insert(ctx context.Context, record domain.SourceRecord) (int64, error) {
	if strings.TrimSpace(record.Title) == "" {
		return 0, fmt.Errorf("insert source: empty title")
	}
	if record.Status == "" {
		record.Status = domain.StatusDownloaded
	}
	if !record.Status.Valid() {
		return 0, fmt.Errorf("insert source: invalid status %q", record.Status)
	}

	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = r.insertTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *SQLiteRepository) insertTx(ctx context.Context, tx *sql.Tx, record domain.SourceRecord) (int64, error) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	var summary sql.NullString
	if record.Summary != nil {
		summary = sql.NullString{String: *record.Summary, Valid: true}
	}

	query, args, err := sq.Insert(sourcesTable).
		Columns("title", "url", "external_id", "summary", "status",
			"remote_document_id", "reference_item_id", "created_at").
		Values(record.Title, toNullString(record.URL), toNullString(record.ExternalID), summary,
			string(record.Status), toNullString(record.RemoteDocumentID), toNullString(record.ReferenceItemID),
			createdAt.Unix()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("insert source %q: %w", record.Title, domain.ErrDuplicateURL)
		}
		return 0, fmt.Errorf("insert source %q: %w", record.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

// ImportBatch inserts records in one transaction, skipping urls that already exist.
func (r *SQLiteRepository) ImportBatch(ctx context.Context, records []domain.SourceRecord) (domain.ImportResult, error) {
	var result domain.ImportResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		result = domain.ImportResult{}
		for _, rec := range records {
			if rec.URL != "" {
				exists, err := urlExistsTx(ctx, tx, rec.URL)
				if err != nil {
					return err
				}
				if exists {
					result.Skipped++
					continue
				}
			}
			if rec.Status == "" {
				rec.Status = domain.StatusDownloaded
			}
			if _, err := r.insertTx(ctx, tx, rec); err != nil {
				return err
			}
			result.Added++
		}
		return nil
	})
	if err != nil {
		return domain.ImportResult{}, err
	}
	return result, nil
}

func urlExistsTx(ctx context.Context, tx *sql.Tx, url string) (bool, error) {
	query, args, err := sq.Select("COUNT(1)").From(sourcesTable).Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build url query: %w", err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("query url: %w", err)
	}
	return n > 0, nil
}

// CountByStatus returns the number of records per lifecycle status.
func (r *SQLiteRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	query, args, err := sq.Select("status", "COUNT(1)").From(sourcesTable).GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	counts := make(map[domain.Status]int)
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query counts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				raw string
				n   int
			)
			if err := rows.Scan(&raw, &n); err != nil {
				return fmt.Errorf("scan count: %w", err)
			}
			status, err := domain.ParseStatus(raw)
			if err != nil {
				return err
			}
			counts[status] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// FindByTitle returns every record with this title, oldest first.
func (r *SQLiteRepository) FindByTitle(ctx context.Context, title string) ([]domain.SourceRecord, error) {
	query, args, err := sq.Select("id", "title", "url", "external_id", "summary", "status",
		"remote_document_id", "reference_item_id", "created_at").
		From(sourcesTable).
		Where(sq.Eq{"title": title}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var out []domain.SourceRecord
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query by title: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	return out, err
}

func scanRecord(rows *sql.Rows) (domain.SourceRecord, error) {
	var (
		rec                                domain.SourceRecord
		url, externalID, summary, remoteID sql.NullString
		referenceID                        sql.NullString
		status                             string
		createdAt                          int64
	)
	if err := rows.Scan(&rec.ID, &rec.Title, &url, &externalID, &summary, &status,
		&remoteID, &referenceID, &createdAt); err != nil {
		return rec, fmt.Errorf("scan source: %w", err)
	}

	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return rec, err
	}
	rec.Status = parsed
	rec.URL = url.String
	rec.ExternalID = externalID.String
	rec.RemoteDocumentID = remoteID.String
	rec.ReferenceItemID = referenceID.String
	if summary.Valid {
		s := summary.String
		rec.Summary = &s
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return rec, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueConstraintError checks for a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
