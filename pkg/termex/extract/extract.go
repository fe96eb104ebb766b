// Package extract turns one document into term occurrences: preprocess,
// annotate, then run the enabled capabilities over the annotated document.
package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/preprocess"
)

// Document is one corpus entry. Index is the caller's unique identifier.
type Document struct {
	Index string
	Text  string
}

// TermOccurrence is one term found in one document.
type TermOccurrence struct {
	Text     string
	Lemma    string
	Kind     annotate.Kind
	Label    string
	Length   int
	DocIndex string
}

// Options selects the capabilities and their filters.
type Options struct {
	Ngrams             bool
	Entities           bool
	NounChunks         bool
	MinN               int
	MaxN               int
	IncludePOS         []string
	IncludeTypes       []string
	NounChunkMinLength int
	Preprocess         preprocess.Options
}

// DefaultOptions returns bigrams over nouns, proper nouns and adjectives,
// plus PERSON and ORG entities.
func DefaultOptions() Options {
	return Options{
		Ngrams:             true,
		Entities:           true,
		NounChunks:         false,
		MinN:               2,
		MaxN:               2,
		IncludePOS:         []string{annotate.POSNoun, annotate.POSPropn, annotate.POSAdj},
		IncludeTypes:       []string{"PERSON", "ORG"},
		NounChunkMinLength: 3,
		Preprocess:         preprocess.DefaultOptions(),
	}
}

// Validate reports the first option that cannot be used.
func (o Options) Validate() error {
	if o.Ngrams {
		if o.MinN < 1 {
			return internalerr.NewConfigError("ngrams", "min_n must be at least 1, got %d", o.MinN)
		}
		if o.MinN > o.MaxN {
			return internalerr.NewConfigError("ngrams", "min_n %d exceeds max_n %d", o.MinN, o.MaxN)
		}
		if len(o.IncludePOS) == 0 {
			return internalerr.NewConfigError("include_pos", "must not be empty when n-grams are enabled")
		}
	}
	if o.Entities && len(o.IncludeTypes) == 0 {
		return internalerr.NewConfigError("include_types", "must not be empty when entities are enabled")
	}
	if o.NounChunks && o.NounChunkMinLength < 1 {
		return internalerr.NewConfigError("noun_chunk_min_length", "must be at least 1, got %d", o.NounChunkMinLength)
	}
	return nil
}

// Extractor is safe for concurrent use when its annotator is.
type Extractor struct {
	annotator annotate.Annotator
	opts      Options
}

// New validates opts and binds them to an annotator.
func New(annotator annotate.Annotator, opts Options) (*Extractor, error) {
	if annotator == nil {
		return nil, internalerr.NewConfigError("annotator", "is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{annotator: annotator, opts: opts}, nil
}

type spanKey struct {
	start, end int
	label      string
}

// Extract returns the occurrences of doc in capability order: n-grams,
// entities, noun chunks. Spans over the same tokens with the same label
// are reported once.
func (e *Extractor) Extract(ctx context.Context, doc Document) ([]TermOccurrence, error) {
	text := preprocess.Normalize(doc.Text, e.opts.Preprocess)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	annotated, err := e.annotator.Annotate(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &internalerr.AnnotationError{DocIndex: doc.Index, Err: err}
	}

	var spans []annotate.Span
	if e.opts.Ngrams {
		spans = append(spans, annotated.Ngrams(e.opts.MinN, e.opts.MaxN, e.opts.IncludePOS)...)
	}
	if e.opts.Entities {
		spans = append(spans, annotated.Entities(e.opts.IncludeTypes)...)
	}
	if e.opts.NounChunks {
		spans = append(spans, annotated.NounChunks(e.opts.NounChunkMinLength)...)
	}

	seen := make(map[spanKey]struct{}, len(spans))
	occs := make([]TermOccurrence, 0, len(spans))
	for _, s := range spans {
		key := spanKey{start: s.Start, end: s.End, label: s.Label}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		occs = append(occs, TermOccurrence{
			Text:     s.Text,
			Lemma:    strings.ToLower(s.Lemma),
			Kind:     s.Kind,
			Label:    s.Label,
			Length:   s.Len(),
			DocIndex: doc.Index,
		})
	}
	return occs, nil
}
