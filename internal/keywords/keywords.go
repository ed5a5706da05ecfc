// Package keywords supplies the ordered search-term list that drives every
// source adapter. The list comes from an external resource (plain text, CSV,
// TSV or XLSX; one term per row, blanks skipped); a missing or unreadable
// resource falls back to the built-in defaults with a warning and never
// fails the pipeline.
package keywords

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourorg/popularity-vision/internal/storage"
)

// Defaults is the built-in fallback term list.
var Defaults = []string{
	"n8n workflow",
	"n8n automation",
	"n8n slack integration",
	"n8n google sheets",
	"n8n webhook",
	"n8n telegram bot",
	"n8n openai",
	"workflow automation",
	"n8n email automation",
	"n8n scraping",
}

// Provider loads keywords from an ObjectStore URI.
type Provider struct {
	store storage.ObjectStore
	uri   string
	log   *zap.Logger
}

func NewProvider(store storage.ObjectStore, uri string, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{store: store, uri: uri, log: log}
}

// Load returns the ordered term list. Same input resource, same ordering:
// adapter iteration order (and therefore dedup merge order) depends on it.
// This call never fails; configuration problems degrade to Defaults.
func (p *Provider) Load(ctx context.Context) []string {
	if p.uri == "" {
		return Defaults
	}
	rc, _, err := p.store.Get(ctx, p.uri)
	if err != nil {
		p.log.Warn("keyword list unreadable, using built-in defaults",
			zap.String("uri", p.uri), zap.Error(err))
		return Defaults
	}
	defer rc.Close()

	terms, err := Parse(p.uri, rc)
	if err != nil {
		p.log.Warn("keyword list unparsable, using built-in defaults",
			zap.String("uri", p.uri), zap.Error(err))
		return Defaults
	}
	if len(terms) == 0 {
		p.log.Warn("keyword list empty, using built-in defaults", zap.String("uri", p.uri))
		return Defaults
	}
	return terms
}

// Parse extracts terms from r based on the URI's extension. Unrecognized
// extensions are treated as plain text, one term per line.
func Parse(uri string, r io.Reader) ([]string, error) {
	switch strings.ToLower(path.Ext(uri)) {
	case ".csv":
		return parseDelimited(r, ',')
	case ".tsv":
		return parseDelimited(r, '\t')
	case ".xlsx":
		return parseXLSX(r)
	default:
		return parseLines(r)
	}
}

func parseLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var out []string
	seen := make(map[string]struct{})
	for sc.Scan() {
		appendTerm(&out, seen, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseDelimited(r io.Reader, comma rune) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	var out []string
	seen := make(map[string]struct{})
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		v := strings.TrimSpace(rec[0])
		if first && looksLikeHeader(v) {
			first = false
			continue
		}
		first = false
		appendTerm(&out, seen, v)
	}
	return out, nil
}

func parseXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	seen := make(map[string]struct{})
	first := true
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			continue
		}
		v := strings.TrimSpace(cols[0])
		if first && looksLikeHeader(v) {
			first = false
			continue
		}
		first = false
		appendTerm(&out, seen, v)
	}
	return out, rows.Error()
}

func appendTerm(out *[]string, seen map[string]struct{}, raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	key := strings.ToLower(v)
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	*out = append(*out, v)
}

func looksLikeHeader(s string) bool {
	lower := strings.ToLower(s)
	for _, h := range []string{"keyword", "term", "query", "search"} {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}
