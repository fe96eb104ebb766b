package annotate

import (
	"sort"
	"strings"
)

// Token is one annotated token. Start and End are byte offsets into the
// document text.
type Token struct {
	Text    string
	Lemma   string
	POS     string
	IsStop  bool
	IsPunct bool
	Start   int
	End     int
}

// Span is a contiguous run of tokens [Start, End) with its surface text
// and lemma.
type Span struct {
	Kind  Kind
	Label string
	Start int
	End   int
	Text  string
	Lemma string
}

// Len returns the number of tokens in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

type spanRange struct {
	start, end int
	label      string
}

// Doc is an annotated document.
type Doc struct {
	text   string
	tokens []Token
	ents   []spanRange
	chunks []spanRange
}

// NewDoc wraps annotator output. Tokens must be in text order.
func NewDoc(text string, tokens []Token) *Doc {
	return &Doc{text: text, tokens: tokens}
}

// Text returns the annotated text.
func (d *Doc) Text() string { return d.text }

// Tokens returns the document tokens.
func (d *Doc) Tokens() []Token { return d.tokens }

// AddEntity records a named entity over tokens [start, end).
// Out of range spans are ignored.
func (d *Doc) AddEntity(start, end int, label string) {
	if d.validRange(start, end) && label != "" {
		d.ents = append(d.ents, spanRange{start: start, end: end, label: label})
	}
}

// AddNounChunk records a noun phrase over tokens [start, end).
func (d *Doc) AddNounChunk(start, end int) {
	if d.validRange(start, end) {
		d.chunks = append(d.chunks, spanRange{start: start, end: end})
	}
}

func (d *Doc) validRange(start, end int) bool {
	return start >= 0 && start < end && end <= len(d.tokens)
}

// Ngrams returns every contiguous span of minN..maxN tokens, shortest first
// and in text order within a length. Spans containing punctuation, spans
// that begin or end with a stop word, and spans with a token whose POS is
// outside includePOS are dropped. An empty includePOS disables the POS
// filter.
func (d *Doc) Ngrams(minN, maxN int, includePOS []string) []Span {
	if minN < 1 {
		minN = 1
	}
	maxN = min(maxN, len(d.tokens))
	allowed := toSet(includePOS)

	var out []Span
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(d.tokens); i++ {
			window := d.tokens[i : i+n]
			if window[0].IsStop || window[n-1].IsStop {
				continue
			}
			if !d.keepNgram(window, allowed) {
				continue
			}
			out = append(out, d.span(KindNgram, i, i+n, ""))
		}
	}
	return out
}

func (d *Doc) keepNgram(window []Token, allowed map[string]struct{}) bool {
	for _, tok := range window {
		if tok.IsPunct || strings.TrimSpace(tok.Text) == "" {
			return false
		}
		if len(allowed) > 0 {
			if _, ok := allowed[tok.POS]; !ok {
				return false
			}
		}
	}
	return true
}

// Entities returns entity spans whose label is in includeTypes, with a
// leading determiner dropped. An empty includeTypes keeps every label.
func (d *Doc) Entities(includeTypes []string) []Span {
	allowed := toSet(includeTypes)

	ents := append([]spanRange(nil), d.ents...)
	sort.SliceStable(ents, func(i, j int) bool { return ents[i].start < ents[j].start })

	var out []Span
	for _, e := range ents {
		if len(allowed) > 0 {
			if _, ok := allowed[e.label]; !ok {
				continue
			}
		}
		start := d.dropDeterminer(e.start, e.end)
		if start == e.end {
			continue
		}
		out = append(out, d.span(KindEntity, start, e.end, e.label))
	}
	return out
}

// NounChunks returns noun phrases, leading determiners dropped, with at
// least minLength tokens.
func (d *Doc) NounChunks(minLength int) []Span {
	chunks := append([]spanRange(nil), d.chunks...)
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].start < chunks[j].start })

	var out []Span
	for _, c := range chunks {
		start := d.dropDeterminer(c.start, c.end)
		if c.end-start < minLength || start == c.end {
			continue
		}
		out = append(out, d.span(KindNounChunk, start, c.end, ""))
	}
	return out
}

func (d *Doc) dropDeterminer(start, end int) int {
	if start < end && d.tokens[start].POS == POSDet {
		return start + 1
	}
	return start
}

// span builds the surface text from source offsets and the lemma from
// token lemmas, keeping a space wherever the source had whitespace.
func (d *Doc) span(kind Kind, start, end int, label string) Span {
	first, last := d.tokens[start], d.tokens[end-1]

	var lemma strings.Builder
	for i := start; i < end; i++ {
		tok := d.tokens[i]
		if i > start && tok.Start > d.tokens[i-1].End {
			lemma.WriteByte(' ')
		}
		if tok.Lemma != "" {
			lemma.WriteString(tok.Lemma)
		} else {
			lemma.WriteString(tok.Text)
		}
	}

	return Span{
		Kind:  kind,
		Label: label,
		Start: start,
		End:   end,
		Text:  d.text[first.Start:last.End],
		Lemma: lemma.String(),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
