// Package storetest holds behaviour every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
)

// SampleRun returns a small ranked run.
func SampleRun(id string, startedAt time.Time) store.Run {
	return store.Run{
		RunInfo: store.RunInfo{
			ID:        id,
			Digest:    "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
			Language:  "en",
			StartedAt: startedAt,
			Duration:  1500 * time.Millisecond,
			Documents: 3,
		},
		Records: []aggregate.TermRecord{
			{Text: "new phone", Lemma: "new phone", Kind: annotate.KindNgram, Length: 2, DocumentCount: 2},
			{Text: "Apple Inc.", Lemma: "apple inc.", Kind: annotate.KindEntity, Label: "ORG", Length: 2, DocumentCount: 1},
			{Text: "battery life", Lemma: "battery life", Kind: annotate.KindNounChunk, Length: 2, DocumentCount: 1},
		},
		Index: []aggregate.IndexEntry{
			{DocIndex: "1", Terms: []string{"Apple Inc.", "new phone"}},
			{DocIndex: "2", Terms: []string{"new phone", "battery life"}},
		},
	}
}

// Run exercises st. It must be empty.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC)

	run := SampleRun("01HRUNAAAAAAAAAAAAAAAAAAAA", started)
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	info, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if info.ID != run.ID || info.Digest != run.Digest || info.Language != "en" ||
		info.Documents != 3 || info.Terms != 3 || info.Duration != run.Duration {
		t.Errorf("GetRun = %+v", info)
	}
	if !info.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", info.StartedAt, started)
	}

	top, err := st.TopTerms(ctx, run.ID, 2)
	if err != nil {
		t.Fatalf("TopTerms: %v", err)
	}
	if !reflect.DeepEqual(top, run.Records[:2]) {
		t.Errorf("TopTerms(2) = %+v", top)
	}
	all, err := st.TopTerms(ctx, run.ID, 0)
	if err != nil || len(all) != 3 {
		t.Errorf("TopTerms(0) = %v, %v", all, err)
	}

	terms, err := st.DocumentTerms(ctx, run.ID, "2")
	if err != nil {
		t.Fatalf("DocumentTerms: %v", err)
	}
	if !reflect.DeepEqual(terms, []string{"new phone", "battery life"}) {
		t.Errorf("DocumentTerms = %v", terms)
	}
	if terms, err := st.DocumentTerms(ctx, run.ID, "missing"); err != nil || len(terms) != 0 {
		t.Errorf("unknown document = %v, %v", terms, err)
	}

	if err := st.SaveRun(ctx, run); err == nil {
		t.Error("saving a run id twice should fail")
	}

	later := SampleRun("01HRUNBBBBBBBBBBBBBBBBBBBB", started.Add(time.Hour))
	later.Records = nil
	later.Index = nil
	if err := st.SaveRun(ctx, later); err != nil {
		t.Fatalf("SaveRun empty run: %v", err)
	}
	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != later.ID || runs[1].ID != run.ID {
		t.Errorf("ListRuns should be newest first, got %+v", runs)
	}
	if runs, _ := st.ListRuns(ctx, 1); len(runs) != 1 {
		t.Errorf("ListRuns(1) returned %d runs", len(runs))
	}

	for name, call := range map[string]func() error{
		"GetRun":        func() error { _, err := st.GetRun(ctx, "nope"); return err },
		"TopTerms":      func() error { _, err := st.TopTerms(ctx, "nope", 5); return err },
		"DocumentTerms": func() error { _, err := st.DocumentTerms(ctx, "nope", "1"); return err },
	} {
		if err := call(); !errors.Is(err, internalerr.ErrNotFound) {
			t.Errorf("%s on unknown run: expected ErrNotFound, got %v", name, err)
		}
	}
}
