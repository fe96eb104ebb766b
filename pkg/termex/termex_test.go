package termex

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/annotate/annotatetest"
	"github.com/cognicore/termex/pkg/termex/dispatch"
	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/metrics"
	"github.com/cognicore/termex/pkg/termex/store/memstore"
)

func newPipeline(t *testing.T, mutate func(*Options)) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.Annotator = &annotatetest.Fake{}
	opts.Dispatch.Workers = 2
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func docs(pairs ...string) []extract.Document {
	var out []extract.Document
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, extract.Document{Index: pairs[i], Text: pairs[i+1]})
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	st := memstore.New()
	m := metrics.New()
	p := newPipeline(t, func(o *Options) {
		o.Store = st
		o.Metrics = m
	})
	ctx := context.Background()

	res, err := p.Run(ctx, docs("1", "new phone", "2", "new phone", "3", "  "))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec, ok := res.Table.Lookup("new phone")
	if !ok || rec.DocumentCount != 2 {
		t.Fatalf("record = %+v, %v", rec, ok)
	}
	if res.Stats.Empty != 1 || res.Stats.Processed != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.RunID) != 26 || len(res.Digest) != 64 {
		t.Errorf("run id %q, digest %q", res.RunID, res.Digest)
	}

	info, err := st.GetRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if info.Documents != 2 || info.Terms != 1 || info.Digest != res.Digest || info.Language != "en" {
		t.Errorf("stored run = %+v", info)
	}

	top, err := p.TopTerms(ctx, res.RunID, 5)
	if err != nil || len(top) != 1 || top[0].Text != "new phone" {
		t.Errorf("TopTerms = %v, %v", top, err)
	}
	terms, err := p.DocumentTerms(ctx, res.RunID, "2")
	if err != nil || !reflect.DeepEqual(terms, []string{"new phone"}) {
		t.Errorf("DocumentTerms = %v, %v", terms, err)
	}

	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "termex_unique_terms" {
			found = true
			if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
				t.Errorf("termex_unique_terms = %v", v)
			}
		}
	}
	if !found {
		t.Error("termex_unique_terms not registered")
	}
}

func TestRunFailureIsNotPersisted(t *testing.T) {
	st := memstore.New()
	p := newPipeline(t, func(o *Options) {
		o.Annotator = &annotatetest.Fake{Fail: map[string]error{"boom": errors.New("model crashed")}}
		o.Store = st
	})
	ctx := context.Background()

	_, err := p.Run(ctx, docs("1", "new phone", "2", "boom box"))
	if !errors.Is(err, internalerr.ErrAnnotation) {
		t.Fatalf("got %v, want annotation error", err)
	}
	runs, err := st.ListRuns(ctx, 0)
	if err != nil || len(runs) != 0 {
		t.Errorf("failed run should not be stored: %v, %v", runs, err)
	}
}

func TestSequentialMatchesParallel(t *testing.T) {
	corpus := docs(
		"a", "solar panel wind farm",
		"b", "wind farm battery pack",
		"c", "solar panel battery pack",
		"d", "",
	)
	seq := newPipeline(t, func(o *Options) { o.Dispatch.Mode = dispatch.Sequential })
	par := newPipeline(t, nil)

	r1, err := seq.Run(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := par.Run(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r1.Table.Records(), r2.Table.Records()) {
		t.Errorf("tables differ:\n%v\n%v", r1.Table.Records(), r2.Table.Records())
	}
	if !reflect.DeepEqual(r1.Index.Entries(), r2.Index.Entries()) {
		t.Errorf("indexes differ")
	}
	if r1.Digest != r2.Digest {
		t.Errorf("same corpus, different digests")
	}
}

func TestRunIDsIncrease(t *testing.T) {
	p := newPipeline(t, nil)
	r1, err := p.Run(context.Background(), docs("1", "new phone"))
	if err != nil {
		t.Fatal(err)
	}
	r2, err := p.Run(context.Background(), docs("1", "new phone"))
	if err != nil {
		t.Fatal(err)
	}
	if r2.RunID <= r1.RunID {
		t.Errorf("run ids not increasing: %s then %s", r1.RunID, r2.RunID)
	}
}

func TestDigest(t *testing.T) {
	a := docs("1", "alpha", "2", "beta")
	b := docs("2", "beta", "1", "alpha")
	if Digest(a) != Digest(b) {
		t.Error("digest should not depend on document order")
	}
	if Digest(a) == Digest(docs("1", "alpha", "2", "gamma")) {
		t.Error("digest should change with text")
	}
	// length prefixes keep field boundaries apart
	if Digest(docs("1", "2x")) == Digest(docs("12", "x")) {
		t.Error("digest should separate index from text")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no annotator", func(o *Options) { o.Annotator = nil }},
		{"bad policy", func(o *Options) { o.Aggregate.Policy = "random" }},
		{"negative workers", func(o *Options) { o.Dispatch.Workers = -1 }},
		{"bad mode", func(o *Options) { o.Dispatch.Mode = "distributed" }},
		{"bad ngram range", func(o *Options) { o.Extract.MinN = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Annotator = &annotatetest.Fake{}
			tt.mutate(&opts)
			if _, err := New(opts); !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("got %v, want invalid config", err)
			}
		})
	}
}

func TestQueriesNeedStore(t *testing.T) {
	p := newPipeline(t, nil)
	if _, err := p.TopTerms(context.Background(), "x", 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("got %v", err)
	}
	if p.Store() != nil {
		t.Error("expected no store")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := OpenStore(ctx, "none", "")
	if err != nil || st != nil {
		t.Errorf("none driver = %v, %v", st, err)
	}

	st, err = OpenStore(ctx, "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}

	p := newPipeline(t, func(o *Options) { o.Store = st })
	res, err := p.Run(ctx, docs("1", "new phone"))
	if err != nil {
		t.Fatal(err)
	}
	top, err := st.TopTerms(ctx, res.RunID, 0)
	if err != nil || len(top) != 1 {
		t.Errorf("TopTerms = %v, %v", top, err)
	}

	if _, err := OpenStore(ctx, "mongo", ""); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unknown driver: got %v", err)
	}
}

func TestMinCountPassesThrough(t *testing.T) {
	p := newPipeline(t, func(o *Options) { o.Aggregate = aggregate.Options{MinCount: 2} })
	res, err := p.Run(context.Background(), docs("1", "solar panel", "2", "solar panel", "3", "wind farm"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Table.Len() != 1 || res.Index.Terms("3") != nil {
		t.Errorf("unexpected table %v", res.Table.Records())
	}
}
