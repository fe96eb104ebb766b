package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/cognicore/termex/pkg/termex/config"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func parse(t *testing.T, args ...string) (*CLI, *kong.Context, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cli := &CLI{Globals: Globals{Out: out}}
	parser, err := newParser(cli, context.Background(), kong.Exit(func(int) { t.Fatalf("parser exited on %v", args) }))
	if err != nil {
		t.Fatalf("newParser: %v", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return cli, kctx, out
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	_, kctx, out := parse(t, args...)
	err := kctx.Run()
	return out.String(), err
}

func TestExtractFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "corpus.jsonl", `{"id":"1","text":"hello"}`+"\n")

	cli, kctx, _ := parse(t, "extract", "-i", input,
		"--language", "fr", "--ncs", "--no-ents", "--ngram-max", "3",
		"--sample-size", "0", "--min-count", "2", "--dedup-policy", "frequency",
		"--store", "sqlite", "--store-path", filepath.Join(dir, "runs.db"))
	if kctx.Command() != "extract" {
		t.Fatalf("command = %q", kctx.Command())
	}

	cfg := config.Default()
	cli.Extract.apply(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Extraction.Language != "fr" || !cfg.Extraction.Ncs || cfg.Extraction.Ents {
		t.Errorf("extraction = %+v", cfg.Extraction)
	}
	if cfg.Extraction.Ngrams[0] != 2 || cfg.Extraction.Ngrams[1] != 3 {
		t.Errorf("ngrams = %v", cfg.Extraction.Ngrams)
	}
	if cfg.Dispatch.SampleSize != 0 || cfg.Aggregate.MinCount != 2 || cfg.Aggregate.DedupPolicy != "frequency" {
		t.Errorf("unexpected overrides %+v %+v", cfg.Dispatch, cfg.Aggregate)
	}
	if cfg.Store.Driver != "sqlite" || !strings.HasSuffix(cfg.Store.Path, "runs.db") {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestExtractDefaultsKeepConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "corpus.jsonl", `{"id":"1","text":"hello"}`+"\n")

	cli, _, _ := parse(t, "extract", "-i", input)
	cfg := config.Default()
	cfg.Dispatch.SampleSize = 7
	cli.Extract.apply(cfg)
	if cfg.Dispatch.SampleSize != 7 || !cfg.Extraction.Ngs || !cfg.Extraction.Ents {
		t.Errorf("unset flags must not touch the config: %+v", cfg)
	}
	if opts := cli.Extract.corpusOptions(); opts.Format != "" || opts.TextField != "text" {
		t.Errorf("corpus options = %+v", opts)
	}
}

func TestExtractTopDoc(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "corpus.jsonl", strings.Join([]string{
		`{"id":"1","text":"Apple Inc. released a new phone."}`,
		`{"id":"2","text":"Reviewers liked the new phone."}`,
		`{"id":"3","text":""}`,
	}, "\n")+"\n")
	outDir := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")
	storeArgs := []string{"--store", "sqlite", "--store-path", db}

	out, err := execute(t, append([]string{"extract", "-i", input, "-o", outDir, "--mode", "sequential"}, storeArgs...)...)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	first := strings.SplitN(out, "\n", 2)[0]
	if !strings.HasPrefix(first, "run ") || !strings.Contains(first, "2 documents") {
		t.Fatalf("unexpected summary %q", first)
	}
	runID := strings.TrimSuffix(strings.Fields(first)[1], ":")

	terms, err := os.ReadFile(filepath.Join(outDir, "terms.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(terms), "new phone,new phone,,ngram,2,2\n") {
		t.Errorf("terms.csv missing shared bigram:\n%s", terms)
	}
	if _, err := os.Stat(filepath.Join(outDir, "terms_indexed.csv")); err != nil {
		t.Errorf("index file: %v", err)
	}

	out, err = execute(t, append([]string{"top", "--run", runID, "-k", "1"}, storeArgs...)...)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if !strings.Contains(out, "new phone") || strings.Count(out, "\n") != 2 {
		t.Errorf("top output:\n%s", out)
	}

	out, err = execute(t, append([]string{"doc", "--run", runID, "2"}, storeArgs...)...)
	if err != nil {
		t.Fatalf("doc: %v", err)
	}
	if !strings.Contains(out, "new phone\n") {
		t.Errorf("doc output:\n%s", out)
	}

	out, err = execute(t, append([]string{"runs"}, storeArgs...)...)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, runID) {
		t.Errorf("runs output:\n%s", out)
	}

	_, err = execute(t, append([]string{"top", "--run", "01HZZZZZZZZZZZZZZZZZZZZZZZ"}, storeArgs...)...)
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("unknown run: got %v", err)
	}
}

func TestQueriesNeedStore(t *testing.T) {
	_, err := execute(t, "top", "--run", "x")
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("got %v, want invalid config", err)
	}
}

func TestInvalidOverrideFails(t *testing.T) {
	dir := t.TempDir()
	input := writeTestFile(t, dir, "corpus.jsonl", `{"id":"1","text":"hello"}`+"\n")
	_, err := execute(t, "extract", "-i", input, "-o", filepath.Join(dir, "out"), "--language", "de")
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("got %v, want invalid config", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "termex ") {
		t.Errorf("version = %q, %v", out, err)
	}
}
