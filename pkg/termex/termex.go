// Package termex runs term extraction over a corpus: every document is
// annotated and mined for terms in parallel, then the occurrences are
// folded into a ranked term table and a per-document index.
package termex

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"

	"github.com/cognicore/termex/internal/logger"
	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/dispatch"
	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/metrics"
	"github.com/cognicore/termex/pkg/termex/store"
)

// Options configures a Pipeline. Annotator is required; Store and Metrics
// are optional.
type Options struct {
	Annotator annotate.Annotator
	Extract   extract.Options
	Dispatch  dispatch.Options
	Aggregate aggregate.Options
	Store     store.Store
	Metrics   *metrics.Metrics
}

// DefaultOptions returns the default stage options without an annotator.
func DefaultOptions() Options {
	return Options{
		Extract:   extract.DefaultOptions(),
		Dispatch:  dispatch.DefaultOptions(),
		Aggregate: aggregate.Options{Policy: aggregate.Lexical, MinCount: 1},
	}
}

// Pipeline is the extraction facade. It is safe to call Run from several
// goroutines.
type Pipeline struct {
	annotator annotate.Annotator
	extractor *extract.Extractor
	dispOpts  dispatch.Options
	aggOpts   aggregate.Options
	store     store.Store
	metrics   *metrics.Metrics

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Digest    string
	Language  annotate.Language
	Table     *aggregate.Table
	Index     *aggregate.Index
	Stats     dispatch.Stats
	StartedAt time.Time
	Duration  time.Duration
}

// New validates opts and wires the stages together.
func New(opts Options) (*Pipeline, error) {
	ex, err := extract.New(opts.Annotator, opts.Extract)
	if err != nil {
		return nil, err
	}
	if _, err := aggregate.ParsePolicy(string(opts.Aggregate.Policy)); err != nil {
		return nil, err
	}

	dispOpts := opts.Dispatch
	if opts.Metrics != nil && dispOpts.Observer == nil {
		dispOpts.Observer = opts.Metrics
	}
	// surface dispatch option errors at construction time
	if _, err := dispatch.New(ex, dispOpts, nil); err != nil {
		return nil, err
	}

	return &Pipeline{
		annotator: opts.Annotator,
		extractor: ex,
		dispOpts:  dispOpts,
		aggOpts:   opts.Aggregate,
		store:     opts.Store,
		metrics:   opts.Metrics,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close releases the store, if any.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Store returns the configured store or nil.
func (p *Pipeline) Store() store.Store {
	return p.store
}

func (p *Pipeline) newRunID(t time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// Run extracts terms from docs. Any document failure aborts the run; in
// that case nothing is recorded or persisted.
func (p *Pipeline) Run(ctx context.Context, docs []extract.Document) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:     p.newRunID(start),
		Digest:    Digest(docs),
		Language:  p.annotator.Language(),
		StartedAt: start,
	}

	ctx = logger.WithRun(ctx, res.RunID)
	log := logger.FromContext(ctx).With("component", "pipeline")
	log.Info("run started", "documents", len(docs), "language", res.Language, "digest", res.Digest)
	if len(docs) == 0 {
		log.Warn("empty corpus")
	}

	disp, err := dispatch.New(p.extractor, p.dispOpts, log.With("stage", "dispatch"))
	if err != nil {
		return nil, err
	}
	occs, stats, err := disp.Run(ctx, docs)
	if err != nil {
		log.Error("run failed", "error", err)
		return nil, err
	}
	res.Stats = stats

	table, index, err := aggregate.Aggregate(occs, p.aggOpts)
	if err != nil {
		return nil, fmt.Errorf("aggregating run %s: %w", res.RunID, err)
	}
	res.Table, res.Index = table, index
	res.Duration = time.Since(start)

	if p.metrics != nil {
		p.metrics.ObserveRun(stats.Empty, stats.SampledOut, table.Len(), res.Duration)
	}
	if p.store != nil {
		if err := p.store.SaveRun(ctx, res.StoreRun()); err != nil {
			return nil, fmt.Errorf("saving run %s: %w", res.RunID, err)
		}
	}

	log.Info("run complete",
		"terms", table.Len(),
		"documents_indexed", index.Len(),
		"duration", res.Duration,
		slog.Group("stats",
			"processed", stats.Processed,
			"empty", stats.Empty,
			"sampled_out", stats.SampledOut,
		),
	)
	return res, nil
}

// StoreRun converts the result into its persisted form.
func (r *Result) StoreRun() store.Run {
	return store.Run{
		RunInfo: store.RunInfo{
			ID:        r.RunID,
			Digest:    r.Digest,
			Language:  string(r.Language),
			StartedAt: r.StartedAt,
			Duration:  r.Duration,
			Documents: r.Stats.Processed,
			Terms:     r.Table.Len(),
		},
		Records: r.Table.Records(),
		Index:   r.Index.Entries(),
	}
}

// Digest is the hex BLAKE3 hash of the corpus, independent of document
// order.
func Digest(docs []extract.Document) string {
	sorted := append([]extract.Document(nil), docs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Index != sorted[j].Index {
			return sorted[i].Index < sorted[j].Index
		}
		return sorted[i].Text < sorted[j].Text
	})

	h := blake3.New()
	var buf []byte
	for _, d := range sorted {
		buf = binary.AppendUvarint(buf[:0], uint64(len(d.Index)))
		buf = append(buf, d.Index...)
		buf = binary.AppendUvarint(buf, uint64(len(d.Text)))
		buf = append(buf, d.Text...)
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// requireStore is used by query helpers that need persistence.
func (p *Pipeline) requireStore() (store.Store, error) {
	if p.store == nil {
		return nil, internalerr.NewConfigError("store.driver", "no store configured")
	}
	return p.store, nil
}

// TopTerms returns the k best terms of a stored run.
func (p *Pipeline) TopTerms(ctx context.Context, runID string, k int) ([]aggregate.TermRecord, error) {
	st, err := p.requireStore()
	if err != nil {
		return nil, err
	}
	return st.TopTerms(ctx, runID, k)
}

// DocumentTerms returns the terms of one document in a stored run.
func (p *Pipeline) DocumentTerms(ctx context.Context, runID, docIndex string) ([]string, error) {
	st, err := p.requireStore()
	if err != nil {
		return nil, err
	}
	return st.DocumentTerms(ctx, runID, docIndex)
}
