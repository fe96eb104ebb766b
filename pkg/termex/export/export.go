// Package export writes the term table and the document index as CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ulikunitz/xz"

	"github.com/cognicore/termex/pkg/termex/aggregate"
)

const (
	TermsFile = "terms.csv"
	IndexFile = "terms_indexed.csv"
)

// TermsHeader keeps the column names downstream tools already read.
var TermsHeader = []string{"text", "lemma", "ent", "kind", "ngrams", "count_terms"}

// Options controls where and how files are written.
type Options struct {
	Dir      string
	IndexVar string // first column of the index file; defaults to "index"
	Compress bool   // append .xz and compress
}

// WriteTerms writes records in rank order.
func WriteTerms(w io.Writer, records []aggregate.TermRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TermsHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Text,
			r.Lemma,
			r.Label,
			r.Kind.String(),
			strconv.Itoa(r.Length),
			strconv.Itoa(r.DocumentCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIndex writes one row per document with its terms as a JSON list.
func WriteIndex(w io.Writer, indexVar string, entries []aggregate.IndexEntry) error {
	if indexVar == "" {
		indexVar = "index"
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{indexVar, "text"}); err != nil {
		return err
	}
	for _, e := range entries {
		terms, err := json.Marshal(e.Terms)
		if err != nil {
			return fmt.Errorf("encode terms of %q: %w", e.DocIndex, err)
		}
		if err := cw.Write([]string{e.DocIndex, string(terms)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFiles writes both files into opts.Dir and returns their paths.
// Both are fully written to temp files before either takes its final
// name, so a failed write leaves earlier outputs untouched.
func WriteFiles(opts Options, table *aggregate.Table, index *aggregate.Index) ([]string, error) {
	return writeAll(opts, []output{
		{TermsFile, func(w io.Writer) error { return WriteTerms(w, table.Records()) }},
		{IndexFile, func(w io.Writer) error { return WriteIndex(w, opts.IndexVar, index.Entries()) }},
	})
}

type output struct {
	name  string
	write func(io.Writer) error
}

type staged struct {
	tmp, final string
}

func writeAll(opts Options, outputs []output) ([]string, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var files []staged
	discard := func() {
		for _, f := range files {
			os.Remove(f.tmp)
		}
	}
	for _, o := range outputs {
		f, err := writeTemp(opts, o.name, o.write)
		if err != nil {
			discard()
			return nil, err
		}
		files = append(files, f)
	}

	paths := make([]string, 0, len(files))
	for i, f := range files {
		if err := os.Rename(f.tmp, f.final); err != nil {
			for _, rest := range files[i:] {
				os.Remove(rest.tmp)
			}
			return nil, fmt.Errorf("rename %s: %w", filepath.Base(f.final), err)
		}
		paths = append(paths, f.final)
	}
	return paths, nil
}

func writeTemp(opts Options, name string, write func(io.Writer) error) (staged, error) {
	if opts.Compress {
		name += ".xz"
	}
	final := filepath.Join(opts.Dir, name)

	tmp, err := os.CreateTemp(opts.Dir, "."+name+"-*")
	if err != nil {
		return staged{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	var w io.Writer = tmp
	var xw *xz.Writer
	if opts.Compress {
		if xw, err = xz.NewWriter(tmp); err != nil {
			cleanup()
			return staged{}, fmt.Errorf("create xz writer: %w", err)
		}
		w = xw
	}

	if err := write(w); err != nil {
		cleanup()
		return staged{}, fmt.Errorf("write %s: %w", name, err)
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			cleanup()
			return staged{}, fmt.Errorf("finish xz stream %s: %w", name, err)
		}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return staged{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return staged{}, fmt.Errorf("close %s: %w", name, err)
	}
	return staged{tmp: tmpPath, final: final}, nil
}
