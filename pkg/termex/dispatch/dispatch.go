// Package dispatch runs the extractor over a corpus, in parallel or
// sequentially, with identical ordered output either way.
package dispatch

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

// Mode selects how documents are scheduled.
type Mode string

const (
	Parallel   Mode = "parallel"
	Sequential Mode = "sequential"
)

// ParseMode validates a mode name. Empty means parallel.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Parallel, Sequential:
		return m, nil
	case "":
		return Parallel, nil
	}
	return "", internalerr.NewConfigError("mode", "unknown mode %q (want parallel or sequential)", s)
}

// Extractor is the per-document work unit.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) ([]extract.TermOccurrence, error)
}

// Observer receives per-document timings. Calls may be concurrent.
type Observer interface {
	ObserveDocument(elapsed time.Duration, occs []extract.TermOccurrence)
}

// Options controls scheduling and sampling.
type Options struct {
	Mode       Mode
	Workers    int    // 0 = NumCPU-2, at least 1
	SampleSize int    // <= 0 = no cap
	Seed       uint64 // 0 = time-seeded
	LogEvery   int    // 0 = no progress log
	// Progress is called after each completed document. Calls are
	// serialized and done increases by one each time.
	Progress func(done, total int)
	Observer Observer
}

// DefaultOptions mirrors the batch defaults: parallel, 100k sample cap.
func DefaultOptions() Options {
	return Options{
		Mode:       Parallel,
		SampleSize: 100000,
		LogEvery:   1000,
	}
}

// Stats describes one run.
type Stats struct {
	Received    int
	Empty       int // excluded for blank text
	SampledOut  int
	Processed   int
	Occurrences int
	Workers     int
	Seed        uint64
	Duration    time.Duration
}

// Dispatcher fans documents out to an Extractor.
type Dispatcher struct {
	ex     Extractor
	opts   Options
	logger *slog.Logger
}

// New validates opts. A nil logger uses slog.Default().
func New(ex Extractor, opts Options, logger *slog.Logger) (*Dispatcher, error) {
	if ex == nil {
		return nil, internalerr.NewConfigError("extractor", "is required")
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.Workers < 0 {
		return nil, internalerr.NewConfigError("workers", "must not be negative, got %d", opts.Workers)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{ex: ex, opts: opts, logger: logger}, nil
}

// Workers returns the pool size a parallel run uses.
func (d *Dispatcher) Workers() int {
	if d.opts.Mode == Sequential {
		return 1
	}
	return resolveWorkers(d.opts.Workers)
}

func resolveWorkers(n int) int {
	if n > 0 {
		return n
	}
	if n = runtime.NumCPU() - 2; n < 1 {
		n = 1
	}
	return n
}

// Run extracts every non-blank document, after sampling, and returns the
// occurrences in corpus order. The first failure cancels the run and no
// partial result is returned.
func (d *Dispatcher) Run(ctx context.Context, docs []extract.Document) ([]extract.TermOccurrence, Stats, error) {
	start := time.Now()
	stats := Stats{Received: len(docs), Workers: d.Workers()}

	kept := make([]extract.Document, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			stats.Empty++
			continue
		}
		kept = append(kept, doc)
	}

	selected, seed := sample(kept, d.opts.SampleSize, d.opts.Seed)
	stats.SampledOut = len(kept) - len(selected)
	stats.Seed = seed

	d.logger.Info("dispatching documents",
		"mode", d.opts.Mode,
		"workers", stats.Workers,
		"received", stats.Received,
		"empty", stats.Empty,
		"selected", len(selected),
		"seed", seed,
	)

	slots := make([][]extract.TermOccurrence, len(selected))
	tick := d.progress(len(selected))

	var err error
	if d.opts.Mode == Sequential {
		err = d.runSequential(ctx, selected, slots, tick)
	} else {
		err = d.runParallel(ctx, selected, slots, tick, stats.Workers)
	}
	stats.Duration = time.Since(start)
	if err != nil {
		return nil, stats, err
	}

	total := 0
	for _, s := range slots {
		total += len(s)
	}
	occs := make([]extract.TermOccurrence, 0, total)
	for _, s := range slots {
		occs = append(occs, s...)
	}
	stats.Processed = len(selected)
	stats.Occurrences = len(occs)

	d.logger.Info("dispatch complete",
		"processed", stats.Processed,
		"occurrences", stats.Occurrences,
		"duration", stats.Duration,
	)
	return occs, stats, nil
}

func (d *Dispatcher) runSequential(ctx context.Context, docs []extract.Document, slots [][]extract.TermOccurrence, tick func()) error {
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		occs, err := d.one(ctx, doc)
		if err != nil {
			return err
		}
		slots[i] = occs
		tick()
	}
	return nil
}

func (d *Dispatcher) runParallel(ctx context.Context, docs []extract.Document, slots [][]extract.TermOccurrence, tick func(), workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			occs, err := d.one(gctx, doc)
			if err != nil {
				return err
			}
			slots[i] = occs
			tick()
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) one(ctx context.Context, doc extract.Document) ([]extract.TermOccurrence, error) {
	began := time.Now()
	occs, err := d.ex.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	if d.opts.Observer != nil {
		d.opts.Observer.ObserveDocument(time.Since(began), occs)
	}
	return occs, nil
}

func (d *Dispatcher) progress(total int) func() {
	var mu sync.Mutex
	done := 0
	return func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if d.opts.Progress != nil {
			d.opts.Progress(done, total)
		}
		if d.opts.LogEvery > 0 && (done%d.opts.LogEvery == 0 || done == total) {
			d.logger.Info("extraction progress", "done", done, "total", total)
		}
	}
}

// sample picks min(size, len(docs)) documents uniformly without
// replacement and returns them in their original order with the seed used.
func sample(docs []extract.Document, size int, seed uint64) ([]extract.Document, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if size <= 0 || size >= len(docs) {
		return docs, seed
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	picked := r.Perm(len(docs))[:size]
	sort.Ints(picked)

	out := make([]extract.Document, size)
	for i, idx := range picked {
		out[i] = docs[idx]
	}
	return out, seed
}
