package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NotebookSync/internal/importer"
)

var (
	errMissingSeparator = errors.New("missing separator")
	errEmptyField       = errors.New("empty title or url")
)

// TabFormat reads lines whose last two tab separated fields are title and url.
// The separator is either a tab character or the two character escape
// sequence `\t` printed by some downloaders.
type TabFormat struct{}

var _ importer.Format = TabFormat{}

// Name identifies the format inside the registry.
func (TabFormat) Name() string { return "tab" }

// Parse implements importer.Format.
func (TabFormat) Parse(ctx context.Context, r io.Reader) ([]importer.Entry, error) {
	return scanLines(ctx, r, func(line string) (importer.Entry, error) {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			fields = strings.Split(line, `\t`)
		}
		if len(fields) < 2 {
			return importer.Entry{}, fmt.Errorf("%w: expected title<TAB>url", errMissingSeparator)
		}
		return newEntry(fields[len(fields)-2], fields[len(fields)-1])
	})
}

// PipeFormat reads lines of the form "title | url"; the title may itself contain pipes.
type PipeFormat struct{}

var _ importer.Format = PipeFormat{}

// Name identifies the format inside the registry.
func (PipeFormat) Name() string { return "pipe" }

// Parse implements importer.Format.
func (PipeFormat) Parse(ctx context.Context, r io.Reader) ([]importer.Entry, error) {
	return scanLines(ctx, r, func(line string) (importer.Entry, error) {
		idx := strings.LastIndex(line, "|")
		if idx < 0 {
			return importer.Entry{}, fmt.Errorf("%w: expected title|url", errMissingSeparator)
		}
		return newEntry(line[:idx], line[idx+1:])
	})
}

// HTMLFormat reads every absolute http(s) link of an HTML document, such as a
// saved playlist page or a bookmarks export. Each href yields one entry in
// order of first appearance, titled by the first anchor for it that has text.
type HTMLFormat struct{}

var _ importer.Format = HTMLFormat{}

// Name identifies the format inside the registry.
func (HTMLFormat) Name() string { return "html" }

// Parse implements importer.Format.
func (HTMLFormat) Parse(ctx context.Context, r io.Reader) ([]importer.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		entries []importer.Entry
		index   = map[string]int{}
		hasText = map[string]bool{}
	)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}

		text := strings.Join(strings.Fields(a.Text()), " ")
		title := text
		if title == "" {
			title = strings.TrimSpace(a.AttrOr("title", ""))
		}

		i, seen := index[href]
		switch {
		case !seen:
			index[href] = len(entries)
			hasText[href] = text != ""
			if title == "" {
				title = href
			}
			entries = append(entries, importer.Entry{Title: title, URL: href})
		case !hasText[href] && text != "":
			hasText[href] = true
			entries[i].Title = text
		}
	})
	return entries, nil
}

func newEntry(title, url string) (importer.Entry, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" || url == "" {
		return importer.Entry{}, errEmptyField
	}
	return importer.Entry{Title: title, URL: url}, nil
}

// Register adds every built-in format to reg.
func Register(reg *importer.Registry) {
	reg.Register(TabFormat{})
	reg.Register(PipeFormat{})
	reg.Register(HTMLFormat{})
}
