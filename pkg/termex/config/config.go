// Package config loads run configuration from YAML with environment
// overrides, validates it, and converts it into component options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/dispatch"
	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/preprocess"
)

// Config is the top-level run configuration.
type Config struct {
	Extraction ExtractionConfig   `yaml:"extraction"`
	Preprocess preprocess.Options `yaml:"preprocess"`
	Dispatch   DispatchConfig     `yaml:"dispatch"`
	Aggregate  AggregateConfig    `yaml:"aggregate"`
	Resources  ResourcesConfig    `yaml:"resources"`
	Output     OutputConfig       `yaml:"output"`
	Store      StoreConfig        `yaml:"store"`
	Logging    LoggingConfig      `yaml:"logging"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// ExtractionConfig selects capabilities and their filters.
type ExtractionConfig struct {
	Language           string   `yaml:"language"`
	Ngs                bool     `yaml:"ngs"`
	Ents               bool     `yaml:"ents"`
	Ncs                bool     `yaml:"ncs"`
	Ngrams             []int    `yaml:"ngrams"` // [min, max]
	IncludePOS         []string `yaml:"include_pos"`
	IncludeTypes       []string `yaml:"include_types"`
	NounChunkMinLength int      `yaml:"noun_chunk_min_length"`
}

// DispatchConfig controls scheduling and sampling.
type DispatchConfig struct {
	Mode       string `yaml:"mode"`
	Workers    int    `yaml:"workers"`
	SampleSize int    `yaml:"sample_size"`
	Seed       uint64 `yaml:"seed"`
	LogEvery   int    `yaml:"log_every"`
}

type AggregateConfig struct {
	DedupPolicy string `yaml:"dedup_policy"`
	MinCount    int    `yaml:"min_count"`
}

// ResourcesConfig points at annotator resource files. Empty paths use the
// built-in tables only.
type ResourcesConfig struct {
	Lexicon          string `yaml:"lexicon"`
	Gazetteer        string `yaml:"gazetteer"`
	Stoplist         string `yaml:"stoplist"`
	MaxDocumentBytes int    `yaml:"max_document_bytes"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	IndexVar string `yaml:"index_var"`
	Compress bool   `yaml:"compress"`
}

// StoreConfig selects run persistence. Driver is sqlite, postgres or none.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names the node-exporter textfile; empty disables metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ext := extract.DefaultOptions()
	disp := dispatch.DefaultOptions()
	return &Config{
		Extraction: ExtractionConfig{
			Language:           string(annotate.English),
			Ngs:                ext.Ngrams,
			Ents:               ext.Entities,
			Ncs:                ext.NounChunks,
			Ngrams:             []int{ext.MinN, ext.MaxN},
			IncludePOS:         ext.IncludePOS,
			IncludeTypes:       ext.IncludeTypes,
			NounChunkMinLength: ext.NounChunkMinLength,
		},
		Preprocess: preprocess.DefaultOptions(),
		Dispatch: DispatchConfig{
			Mode:       string(disp.Mode),
			SampleSize: disp.SampleSize,
			LogEvery:   disp.LogEvery,
		},
		Aggregate: AggregateConfig{
			DedupPolicy: string(aggregate.Lexical),
			MinCount:    1,
		},
		Output: OutputConfig{
			Dir:      "out",
			IndexVar: "index",
		},
		Store: StoreConfig{
			Driver: "none",
			Path:   "termex.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file (if provided) over the defaults and then
// applies TERMEX_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"TERMEX_LANGUAGE":         &cfg.Extraction.Language,
		"TERMEX_MODE":             &cfg.Dispatch.Mode,
		"TERMEX_DEDUP_POLICY":     &cfg.Aggregate.DedupPolicy,
		"TERMEX_LEXICON":          &cfg.Resources.Lexicon,
		"TERMEX_GAZETTEER":        &cfg.Resources.Gazetteer,
		"TERMEX_STOPLIST":         &cfg.Resources.Stoplist,
		"TERMEX_OUTPUT_DIR":       &cfg.Output.Dir,
		"TERMEX_INDEX_VAR":        &cfg.Output.IndexVar,
		"TERMEX_STORE_DRIVER":     &cfg.Store.Driver,
		"TERMEX_STORE_PATH":       &cfg.Store.Path,
		"TERMEX_STORE_DSN":        &cfg.Store.DSN,
		"TERMEX_LOGGING_LEVEL":    &cfg.Logging.Level,
		"TERMEX_LOGGING_FORMAT":   &cfg.Logging.Format,
		"TERMEX_METRICS_TEXTFILE": &cfg.Metrics.Textfile,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TERMEX_WORKERS":     &cfg.Dispatch.Workers,
		"TERMEX_SAMPLE_SIZE": &cfg.Dispatch.SampleSize,
		"TERMEX_MIN_COUNT":   &cfg.Aggregate.MinCount,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return internalerr.NewConfigError(name, "not an integer: %q", v)
			}
			*dst = n
		}
	}

	if v := os.Getenv("TERMEX_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return internalerr.NewConfigError("TERMEX_SEED", "not an unsigned integer: %q", v)
		}
		cfg.Dispatch.Seed = n
	}
	if v := os.Getenv("TERMEX_COMPRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return internalerr.NewConfigError("TERMEX_COMPRESS", "not a boolean: %q", v)
		}
		cfg.Output.Compress = b
	}
	return nil
}

// Validate reports every unusable option. The result matches
// internalerr.ErrInvalidConfig and unwraps to *internalerr.ConfigError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, internalerr.NewConfigError(field, format, args...))
	}

	if _, err := annotate.ParseLanguage(c.Extraction.Language); err != nil {
		errs = append(errs, err)
	}
	x := c.Extraction
	if x.Ngs {
		switch {
		case len(x.Ngrams) != 2:
			add("extraction.ngrams", "want [min, max], got %v", x.Ngrams)
		case x.Ngrams[0] < 1:
			add("extraction.ngrams", "min_n must be at least 1, got %d", x.Ngrams[0])
		case x.Ngrams[0] > x.Ngrams[1]:
			add("extraction.ngrams", "min_n %d exceeds max_n %d", x.Ngrams[0], x.Ngrams[1])
		}
		if len(x.IncludePOS) == 0 {
			add("extraction.include_pos", "must not be empty when ngs is on")
		}
	}
	if x.Ents && len(x.IncludeTypes) == 0 {
		add("extraction.include_types", "must not be empty when ents is on")
	}
	if x.Ncs && x.NounChunkMinLength < 1 {
		add("extraction.noun_chunk_min_length", "must be at least 1, got %d", x.NounChunkMinLength)
	}

	if _, err := dispatch.ParseMode(c.Dispatch.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Dispatch.Workers < 0 {
		add("dispatch.workers", "must not be negative, got %d", c.Dispatch.Workers)
	}
	if _, err := aggregate.ParsePolicy(c.Aggregate.DedupPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Aggregate.MinCount < 0 {
		add("aggregate.min_count", "must not be negative, got %d", c.Aggregate.MinCount)
	}
	if c.Resources.MaxDocumentBytes < 0 {
		add("resources.max_document_bytes", "must not be negative, got %d", c.Resources.MaxDocumentBytes)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "", "none":
	case "sqlite":
		if c.Store.Path == "" {
			add("store.path", "required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			add("store.dsn", "required for the postgres driver")
		}
	default:
		add("store.driver", "unknown driver %q (want sqlite, postgres or none)", c.Store.Driver)
	}

	return errors.Join(errs...)
}

// Language returns the validated language.
func (c *Config) Language() (annotate.Language, error) {
	return annotate.ParseLanguage(c.Extraction.Language)
}

// ExtractOptions converts the extraction and preprocess sections.
func (c *Config) ExtractOptions() extract.Options {
	opts := extract.Options{
		Ngrams:             c.Extraction.Ngs,
		Entities:           c.Extraction.Ents,
		NounChunks:         c.Extraction.Ncs,
		IncludePOS:         upper(c.Extraction.IncludePOS),
		IncludeTypes:       c.Extraction.IncludeTypes,
		NounChunkMinLength: c.Extraction.NounChunkMinLength,
		Preprocess:         c.Preprocess,
	}
	if len(c.Extraction.Ngrams) == 2 {
		opts.MinN, opts.MaxN = c.Extraction.Ngrams[0], c.Extraction.Ngrams[1]
	}
	return opts
}

// DispatchOptions converts the dispatch section. Mode must be valid.
func (c *Config) DispatchOptions() dispatch.Options {
	mode, _ := dispatch.ParseMode(c.Dispatch.Mode)
	return dispatch.Options{
		Mode:       mode,
		Workers:    c.Dispatch.Workers,
		SampleSize: c.Dispatch.SampleSize,
		Seed:       c.Dispatch.Seed,
		LogEvery:   c.Dispatch.LogEvery,
	}
}

// AggregateOptions converts the aggregate section.
func (c *Config) AggregateOptions() aggregate.Options {
	policy, _ := aggregate.ParsePolicy(c.Aggregate.DedupPolicy)
	return aggregate.Options{Policy: policy, MinCount: c.Aggregate.MinCount}
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
