package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/cognicore/termex/internal/corpus"
	"github.com/cognicore/termex/internal/logger"
	"github.com/cognicore/termex/pkg/termex"
	"github.com/cognicore/termex/pkg/termex/config"
	"github.com/cognicore/termex/pkg/termex/export"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/metrics"
	"github.com/cognicore/termex/pkg/termex/store"
)

// loadConfig layers flags over the file and environment, then validates.
func loadConfig(g *Globals, apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Logging.Format = g.LogFormat
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func storeTarget(cfg *config.Config) string {
	if cfg.Store.Driver == "postgres" {
		return cfg.Store.DSN
	}
	return cfg.Store.Path
}

// openStore opens the configured store and fails when none is configured.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := termex.OpenStore(ctx, cfg.Store.Driver, storeTarget(cfg))
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, internalerr.NewConfigError("store.driver", "queries need a sqlite or postgres store")
	}
	return st, nil
}

// StoreFlags override the store section.
type StoreFlags struct {
	Store     string `name:"store" help:"Store driver (sqlite, postgres, none)."`
	StorePath string `name:"store-path" help:"SQLite database file." type:"path"`
	StoreDSN  string `name:"store-dsn" help:"Postgres DSN."`
}

func (f StoreFlags) apply(cfg *config.Config) {
	if f.Store != "" {
		cfg.Store.Driver = f.Store
	}
	if f.StorePath != "" {
		cfg.Store.Path = f.StorePath
	}
	if f.StoreDSN != "" {
		cfg.Store.DSN = f.StoreDSN
	}
}

// ExtractCmd runs the pipeline over a corpus file.
type ExtractCmd struct {
	Input     string `short:"i" required:"" help:"Corpus file (JSONL or CSV, optionally .xz)." type:"existingfile"`
	Format    string `enum:"auto,jsonl,csv" default:"auto" help:"Corpus format."`
	IndexVar  string `name:"index-var" help:"Document index field or column, also the first index column on output."`
	TextVar   string `name:"text-var" default:"text" help:"Text field or column."`
	OutputDir string `name:"output-dir" short:"o" help:"Output directory (overrides output.dir)." type:"path"`

	Language   string `short:"l" help:"Document language (en, fr, zh)."`
	Mode       string `help:"Dispatch mode (parallel, sequential)."`
	Workers    int    `help:"Worker count; 0 uses the config."`
	SampleSize int    `name:"sample-size" default:"-1" help:"Sample at most this many documents; 0 disables sampling, -1 uses the config."`
	Seed       uint64 `help:"Sampling seed; 0 uses the config."`
	NgramMin   int    `name:"ngram-min" help:"Smallest n-gram length."`
	NgramMax   int    `name:"ngram-max" help:"Largest n-gram length."`
	NoNgs      bool   `name:"no-ngs" help:"Disable n-gram extraction."`
	NoEnts     bool   `name:"no-ents" help:"Disable entity extraction."`
	Ncs        bool   `name:"ncs" help:"Enable noun chunk extraction."`
	Dedup      string `name:"dedup-policy" help:"Dedup policy (lexical, frequency, priority)."`
	MinCount   int    `name:"min-count" help:"Drop terms seen in fewer documents."`
	Compress   bool   `help:"Write .xz compressed outputs."`
	Metrics    string `name:"metrics-textfile" help:"Write Prometheus textfile metrics here." type:"path"`

	StoreFlags `embed:""`
}

func (c *ExtractCmd) apply(cfg *config.Config) {
	if c.OutputDir != "" {
		cfg.Output.Dir = c.OutputDir
	}
	if c.IndexVar != "" {
		cfg.Output.IndexVar = c.IndexVar
	}
	if c.Language != "" {
		cfg.Extraction.Language = c.Language
	}
	if c.Mode != "" {
		cfg.Dispatch.Mode = c.Mode
	}
	if c.Workers > 0 {
		cfg.Dispatch.Workers = c.Workers
	}
	if c.SampleSize >= 0 {
		cfg.Dispatch.SampleSize = c.SampleSize
	}
	if c.Seed != 0 {
		cfg.Dispatch.Seed = c.Seed
	}
	if c.NgramMin > 0 || c.NgramMax > 0 {
		lo, hi := 2, 2
		if len(cfg.Extraction.Ngrams) == 2 {
			lo, hi = cfg.Extraction.Ngrams[0], cfg.Extraction.Ngrams[1]
		}
		if c.NgramMin > 0 {
			lo = c.NgramMin
		}
		if c.NgramMax > 0 {
			hi = c.NgramMax
		}
		cfg.Extraction.Ngrams = []int{lo, hi}
	}
	if c.NoNgs {
		cfg.Extraction.Ngs = false
	}
	if c.NoEnts {
		cfg.Extraction.Ents = false
	}
	if c.Ncs {
		cfg.Extraction.Ncs = true
	}
	if c.Dedup != "" {
		cfg.Aggregate.DedupPolicy = c.Dedup
	}
	if c.MinCount > 0 {
		cfg.Aggregate.MinCount = c.MinCount
	}
	if c.Compress {
		cfg.Output.Compress = true
	}
	if c.Metrics != "" {
		cfg.Metrics.Textfile = c.Metrics
	}
	c.StoreFlags.apply(cfg)
}

func (c *ExtractCmd) corpusOptions() corpus.Options {
	opts := corpus.Options{
		IndexField: c.IndexVar,
		TextField:  c.TextVar,
		Logger:     logger.WithComponent("corpus"),
	}
	if c.Format != "auto" {
		opts.Format = corpus.Format(c.Format)
	}
	return opts
}

// buildPipeline opens the annotator and the optional store. cleanup
// closes the store.
func buildPipeline(ctx context.Context, cfg *config.Config) (*termex.Pipeline, *metrics.Metrics, func(), error) {
	lang, err := cfg.Language()
	if err != nil {
		return nil, nil, nil, err
	}
	annotator, err := config.NewLoader(cfg).Open(lang)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open annotator: %w", err)
	}

	st, err := termex.OpenStore(ctx, cfg.Store.Driver, storeTarget(cfg))
	if err != nil {
		return nil, nil, nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Textfile != "" {
		m = metrics.New()
	}

	p, err := termex.New(termex.Options{
		Annotator: annotator,
		Extract:   cfg.ExtractOptions(),
		Dispatch:  cfg.DispatchOptions(),
		Aggregate: cfg.AggregateOptions(),
		Store:     st,
		Metrics:   m,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, nil, err
	}
	return p, m, func() { p.Close() }, nil
}

func (c *ExtractCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g, c.apply)
	if err != nil {
		return err
	}

	docs, err := corpus.Load(c.Input, c.corpusOptions())
	if err != nil {
		return err
	}

	p, m, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := p.Run(ctx, docs)
	if err != nil {
		return err
	}

	files, err := export.WriteFiles(export.Options{
		Dir:      cfg.Output.Dir,
		IndexVar: cfg.Output.IndexVar,
		Compress: cfg.Output.Compress,
	}, res.Table, res.Index)
	if err != nil {
		return err
	}
	if m != nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	slog.Info("outputs written", "files", files)
	fmt.Fprintf(g.Out, "run %s: %d documents, %d terms\n", res.RunID, res.Stats.Processed, res.Table.Len())
	for _, f := range files {
		fmt.Fprintln(g.Out, f)
	}
	return nil
}

// TopCmd prints a stored run's best terms.
type TopCmd struct {
	RunID string `name:"run" required:"" help:"Run id."`
	K     int    `short:"k" default:"20" help:"Number of terms; 0 prints all."`

	StoreFlags `embed:""`
}

func (c *TopCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g, c.StoreFlags.apply)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.TopTerms(ctx, c.RunID, c.K)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTEXT\tKIND\tLABEL\tDOCS")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", i+1, r.Text, r.Kind, r.Label, r.DocumentCount)
	}
	return tw.Flush()
}

// DocCmd prints one document's terms.
type DocCmd struct {
	RunID    string `name:"run" required:"" help:"Run id."`
	DocIndex string `arg:"" name:"doc-index" help:"Document index."`

	StoreFlags `embed:""`
}

func (c *DocCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g, c.StoreFlags.apply)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	terms, err := st.DocumentTerms(ctx, c.RunID, c.DocIndex)
	if err != nil {
		return err
	}
	for _, t := range terms {
		fmt.Fprintln(g.Out, t)
	}
	return nil
}

// RunsCmd lists stored runs.
type RunsCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum runs; 0 lists all."`

	StoreFlags `embed:""`
}

func (c *RunsCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := loadConfig(g, c.StoreFlags.apply)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, c.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tLANG\tDOCS\tTERMS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Language, r.Documents, r.Terms, r.Duration)
	}
	return tw.Flush()
}
