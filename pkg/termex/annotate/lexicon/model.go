// Package lexicon is a resource-driven annotator. It tokenizes, tags and
// lemmatizes with built-in per-language tables extended by a word lexicon,
// recognises entities with a gazetteer plus organisation-suffix and title
// rules, and derives noun chunks from tag patterns.
//
// It trades accuracy for zero runtime dependencies; any statistical
// annotator can replace it behind annotate.Annotator.
package lexicon

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

// DefaultMaxBytes caps the size of a single annotated document.
const DefaultMaxBytes = 4 << 20

// WordEntry overrides tagging for one word form. Either field may be empty.
type WordEntry struct {
	POS   string `yaml:"pos"`
	Lemma string `yaml:"lemma"`
}

// Resources extends the built-in language tables.
type Resources struct {
	Words         map[string]WordEntry // form (case-insensitive) -> entry
	Stopwords     []string
	Entities      map[string][]string // label -> phrases
	Abbreviations []string
	MaxBytes      int
}

var knownPOS = map[string]struct{}{
	annotate.POSAdj: {}, annotate.POSAdp: {}, annotate.POSAdv: {}, annotate.POSAux: {},
	annotate.POSCconj: {}, annotate.POSDet: {}, annotate.POSNoun: {}, annotate.POSNum: {},
	annotate.POSPart: {}, annotate.POSPron: {}, annotate.POSPropn: {}, annotate.POSPunct: {},
	annotate.POSSconj: {}, annotate.POSSym: {}, annotate.POSVerb: {},
}

// Model is an annotate.Annotator for one language. It is immutable after
// Open and safe for concurrent use.
type Model struct {
	lang        annotate.Language
	prof        *profile
	tok         *tokenizer
	words       map[string]WordEntry
	stops       map[string]struct{}
	orgSuffixes map[string]struct{}
	titles      map[string]struct{}
	gaz         *gazetteer
	maxBytes    int
}

// Open builds the model for lang. Unsupported languages and malformed
// resources fail with a configuration error.
func Open(lang annotate.Language, res Resources) (*Model, error) {
	prof, ok := profileFor(lang)
	if !ok {
		return nil, internalerr.NewConfigError("language", "no lexicon model for %q", lang)
	}

	m := &Model{
		lang:        lang,
		prof:        prof,
		words:       make(map[string]WordEntry, len(res.Words)),
		stops:       lowerSet(prof.stopwords, res.Stopwords),
		orgSuffixes: lowerSet(prof.orgSuffixes),
		titles:      lowerSet(prof.titles),
		gaz:         newGazetteer(),
		maxBytes:    res.MaxBytes,
	}
	if m.maxBytes <= 0 {
		m.maxBytes = DefaultMaxBytes
	}

	abbrevs := lowerSet(prof.abbreviations)
	for _, a := range res.Abbreviations {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if !strings.HasSuffix(a, ".") {
			a += "."
		}
		abbrevs[a] = struct{}{}
	}
	m.tok = &tokenizer{
		abbreviations: abbrevs,
		elisions:      prof.elisions,
		segmentHan:    prof.segmentHan,
	}

	for form, entry := range res.Words {
		entry.POS = strings.ToUpper(strings.TrimSpace(entry.POS))
		if entry.POS != "" {
			if _, ok := knownPOS[entry.POS]; !ok {
				return nil, internalerr.NewConfigError("resources.words", "word %q has unknown POS %q", form, entry.POS)
			}
		}
		lower := strings.ToLower(form)
		m.words[lower] = entry
		m.tok.addHanWord(lower)
	}
	for w := range prof.closed {
		m.tok.addHanWord(w)
	}
	for _, w := range prof.stopwords {
		m.tok.addHanWord(w)
	}
	for _, w := range prof.orgSuffixes {
		m.tok.addHanWord(w)
	}

	// phrases first so segmentation keeps them whole, then tokenize
	labels := make([]string, 0, len(res.Entities))
	for label := range res.Entities {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		for _, phrase := range res.Entities[label] {
			m.tok.addHanWord(phrase)
		}
	}
	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			return nil, internalerr.NewConfigError("resources.entities", "empty entity label")
		}
		for _, phrase := range res.Entities[label] {
			m.gaz.add(rawTexts(m.tok.tokenize(phrase)), label)
		}
	}

	return m, nil
}

// Language implements annotate.Annotator.
func (m *Model) Language() annotate.Language {
	return m.lang
}

// EntityLabels lists the labels the gazetteer and the built-in rules can
// produce.
func (m *Model) EntityLabels() []string {
	set := map[string]struct{}{m.prof.orgLabel: {}, m.prof.personLabel: {}}
	for _, l := range m.gaz.labels() {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Annotate implements annotate.Annotator.
func (m *Model) Annotate(ctx context.Context, text string) (*annotate.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(text) > m.maxBytes {
		return nil, fmt.Errorf("document is %d bytes, limit is %d", len(text), m.maxBytes)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("document is not valid UTF-8")
	}

	tokens := m.tag(m.tok.tokenize(text))
	doc := annotate.NewDoc(text, tokens)
	for _, e := range m.entities(tokens) {
		doc.AddEntity(e.start, e.end, e.label)
	}
	for _, c := range m.nounChunks(tokens) {
		doc.AddNounChunk(c[0], c[1])
	}
	return doc, nil
}

func (m *Model) tag(raw []rawToken) []annotate.Token {
	tokens := make([]annotate.Token, len(raw))
	sentenceStart := true
	for i, rt := range raw {
		lower := strings.ToLower(rt.text)
		tok := annotate.Token{Text: rt.text, Start: rt.start, End: rt.end}
		_, tok.IsStop = m.stops[lower]
		tok.POS, tok.Lemma = m.tagWord(rt.text, lower, sentenceStart)
		tok.IsPunct = tok.POS == annotate.POSPunct
		tokens[i] = tok
		sentenceStart = rt.text == "." || rt.text == "!" || rt.text == "?" || rt.text == "…"
	}
	return tokens
}

func (m *Model) tagWord(text, lower string, sentenceStart bool) (pos, lemma string) {
	switch {
	case allRunes(text, unicode.IsPunct) && !strings.HasPrefix(text, "_"):
		return annotate.POSPunct, text
	case allRunes(text, unicode.IsSymbol), strings.HasPrefix(text, "_"):
		return annotate.POSSym, text
	}

	entry, known := m.words[lower]
	if known && entry.POS != "" {
		return entry.POS, lemmaOr(entry.Lemma, lower)
	}
	if p, ok := m.prof.closed[lower]; ok {
		return p, lemmaOr(entry.Lemma, lower)
	}
	if isNumeric(text) {
		return annotate.POSNum, text
	}

	pos = m.guess(text, lower, sentenceStart)
	switch {
	case entry.Lemma != "":
		lemma = entry.Lemma
	case pos == annotate.POSPropn:
		lemma = text
	case pos == annotate.POSNoun:
		lemma = m.prof.singular(lower)
	default:
		lemma = lower
	}
	return pos, lemma
}

func (m *Model) guess(text, lower string, sentenceStart bool) string {
	if m.prof.capitalized {
		if isAcronym(text) {
			return annotate.POSPropn
		}
		if first, _ := utf8.DecodeRuneInString(text); unicode.IsUpper(first) {
			if !sentenceStart {
				return annotate.POSPropn
			}
			if pos := m.suffixPOS(lower); pos != "" {
				return pos
			}
			return annotate.POSPropn
		}
	}
	if pos := m.suffixPOS(lower); pos != "" {
		return pos
	}
	return annotate.POSNoun
}

func (m *Model) suffixPOS(lower string) string {
	n := utf8.RuneCountInString(lower)
	for _, rule := range m.prof.suffixes {
		if n >= rule.minLen && strings.HasSuffix(lower, rule.suffix) {
			return rule.pos
		}
	}
	return ""
}

// entities resolves gazetteer matches first, then the organisation-suffix
// rule, then the title rule. Entities never overlap.
func (m *Model) entities(tokens []annotate.Token) []entityMatch {
	n := len(tokens)
	covered := make([]bool, n)
	mark := func(e entityMatch) {
		for i := e.start; i < e.end; i++ {
			covered[i] = true
		}
	}

	var out []entityMatch
	for _, e := range m.gaz.match(tokenTexts(tokens)) {
		out = append(out, e)
		mark(e)
	}

	for i, tok := range tokens {
		if covered[i] {
			continue
		}
		if _, ok := m.orgSuffixes[strings.ToLower(tok.Text)]; !ok {
			continue
		}
		start := i
		for start > 0 && !covered[start-1] && tokens[start-1].POS == annotate.POSPropn {
			start--
		}
		if start == i {
			continue
		}
		e := entityMatch{start: start, end: i + 1, label: m.prof.orgLabel}
		out = append(out, e)
		mark(e)
	}

	for i := 0; i < n; i++ {
		if covered[i] {
			continue
		}
		if _, ok := m.titles[strings.ToLower(tokens[i].Text)]; !ok {
			continue
		}
		end := i + 1
		for end < n && !covered[end] && tokens[end].POS == annotate.POSPropn {
			end++
		}
		if end > i+1 {
			e := entityMatch{start: i + 1, end: end, label: m.prof.personLabel}
			out = append(out, e)
			mark(e)
			i = end - 1
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// nounChunks finds maximal DET? (ADJ|NUM)* (NOUN|PROPN)+ runs, followed by
// ADJ* in languages with postnominal adjectives.
func (m *Model) nounChunks(tokens []annotate.Token) [][2]int {
	var out [][2]int
	n := len(tokens)
	i := 0
	for i < n {
		j := i
		if tokens[j].POS == annotate.POSDet {
			j++
		}
		for j < n && (tokens[j].POS == annotate.POSAdj || tokens[j].POS == annotate.POSNum) {
			j++
		}
		k := j
		for k < n && (tokens[k].POS == annotate.POSNoun || tokens[k].POS == annotate.POSPropn) {
			k++
		}
		if k == j {
			i++
			continue
		}
		if m.prof.postnominal {
			for k < n && tokens[k].POS == annotate.POSAdj {
				k++
			}
		}
		out = append(out, [2]int{i, k})
		i = k
	}
	return out
}

func rawTexts(tokens []rawToken) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.text
	}
	return out
}

func tokenTexts(tokens []annotate.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func lowerSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			set[strings.ToLower(w)] = struct{}{}
		}
	}
	return set
}

func lemmaOr(lemma, fallback string) string {
	if lemma != "" {
		return lemma
	}
	return fallback
}

func allRunes(s string, pred func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return digits > 0
}

func isAcronym(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}
