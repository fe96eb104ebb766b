// Package corpus loads documents from JSONL or CSV files.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

type Format string

const (
	JSONL Format = "jsonl"
	CSV   Format = "csv"
)

// maxLineBytes bounds one JSONL record.
const maxLineBytes = 64 << 20

// Options names the identifier and text fields.
type Options struct {
	Format     Format // empty: from the file extension
	IndexField string // default "id"
	TextField  string // default "text"
	Separator  rune   // CSV only; 0 sniffs ';' or ','
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.IndexField == "" {
		o.IndexField = "id"
	}
	if o.TextField == "" {
		o.TextField = "text"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// DetectFormat maps .jsonl, .ndjson, .json and .csv (optionally .xz).
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(strings.ToLower(path), ".xz")))
	switch ext {
	case ".jsonl", ".ndjson", ".json":
		return JSONL, nil
	case ".csv", ".tsv", ".txt":
		return CSV, nil
	}
	return "", internalerr.NewConfigError("format", "cannot infer corpus format from %q", path)
}

// Load reads a corpus file. Files ending in .xz are decompressed.
func Load(path string, opts Options) ([]extract.Document, error) {
	if opts.Format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open xz stream %s: %w", path, err)
		}
		r = xr
	}

	var docs []extract.Document
	switch opts.Format {
	case JSONL:
		docs, err = ReadJSONL(r, opts)
	case CSV:
		docs, err = ReadCSV(r, opts)
	default:
		return nil, internalerr.NewConfigError("format", "unknown corpus format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return docs, nil
}

// dedup drops repeated identifiers, keeping the first document.
type dedup struct {
	seen   map[string]struct{}
	logger *slog.Logger
}

func (d *dedup) keep(index string, where int) bool {
	if _, dup := d.seen[index]; dup {
		d.logger.Warn("skipping duplicate document index", "index", index, "line", where)
		return false
	}
	d.seen[index] = struct{}{}
	return true
}

// ReadJSONL reads one JSON object per line. Malformed lines and lines
// without an identifier are skipped with a warning; null or missing text
// becomes "".
func ReadJSONL(r io.Reader, opts Options) ([]extract.Document, error) {
	opts = opts.withDefaults()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	seen := &dedup{seen: make(map[string]struct{}), logger: opts.Logger}

	var docs []extract.Document
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			opts.Logger.Warn("skipping malformed JSON", "line", line, "error", err)
			continue
		}

		index, ok := scalar(rec[opts.IndexField])
		if !ok || index == "" {
			opts.Logger.Warn("skipping record without index", "line", line, "field", opts.IndexField)
			continue
		}
		text, _ := scalar(rec[opts.TextField])
		if !seen.keep(index, line) {
			continue
		}
		docs = append(docs, extract.Document{Index: index, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		opts.Logger.Warn("no documents loaded")
	}
	return docs, nil
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case nil:
		return "", false
	}
	return "", false
}

// ReadCSV reads a headed CSV file. Rows that fail to parse are skipped
// with a warning.
func ReadCSV(r io.Reader, opts Options) ([]extract.Document, error) {
	opts = opts.withDefaults()
	br := bufio.NewReader(r)

	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	header = strings.TrimPrefix(header, "\ufeff")
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("missing CSV header")
	}

	sep := opts.Separator
	if sep == 0 {
		sep = sniffSeparator(header)
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	cols, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	indexCol, textCol := -1, -1
	for i, c := range cols {
		switch strings.TrimSpace(c) {
		case opts.IndexField:
			indexCol = i
		case opts.TextField:
			textCol = i
		}
	}
	if indexCol < 0 {
		return nil, internalerr.NewConfigError("index_var", "column %q not in header %v", opts.IndexField, cols)
	}
	if textCol < 0 {
		return nil, internalerr.NewConfigError("text_var", "column %q not in header %v", opts.TextField, cols)
	}

	seen := &dedup{seen: make(map[string]struct{}), logger: opts.Logger}
	var docs []extract.Document
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			opts.Logger.Warn("skipping malformed CSV row", "line", perr.Line, "error", perr.Err)
			continue
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if indexCol >= len(row) || strings.TrimSpace(row[indexCol]) == "" {
			opts.Logger.Warn("skipping row without index", "line", line)
			continue
		}
		text := ""
		if textCol < len(row) {
			text = row[textCol]
		}
		index := strings.TrimSpace(row[indexCol])
		if !seen.keep(index, line) {
			continue
		}
		docs = append(docs, extract.Document{Index: index, Text: text})
	}
	if len(docs) == 0 {
		opts.Logger.Warn("no documents loaded")
	}
	return docs, nil
}

func sniffSeparator(header string) rune {
	best, bestN := ',', strings.Count(header, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(header, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}
