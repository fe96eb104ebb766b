package annotate

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cognicore/termex/pkg/termex/internalerr"
)

// buildDoc lays out whitespace-separated words; tags[i] is "POS" or
// "POS/stop" and the lemma is the lowercased word.
func buildDoc(words []string, tags []string) *Doc {
	text := strings.Join(words, " ")
	tokens := make([]Token, len(words))
	offset := 0
	for i, w := range words {
		pos, stop := tags[i], false
		if strings.HasSuffix(pos, "/stop") {
			pos, stop = strings.TrimSuffix(pos, "/stop"), true
		}
		tokens[i] = Token{
			Text:    w,
			Lemma:   strings.ToLower(w),
			POS:     pos,
			IsStop:  stop,
			IsPunct: pos == POSPunct,
			Start:   offset,
			End:     offset + len(w),
		}
		offset += len(w) + 1
	}
	return NewDoc(text, tokens)
}

func spanTexts(spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

func TestNgramsFiltersStopsPunctAndPOS(t *testing.T) {
	doc := buildDoc(
		[]string{"Apple", "released", "a", "new", "phone", ",", "finally"},
		[]string{"PROPN", "VERB", "DET/stop", "ADJ", "NOUN", "PUNCT", "ADV"},
	)

	got := spanTexts(doc.Ngrams(2, 2, []string{"NOUN", "PROPN", "ADJ"}))
	want := []string{"new phone"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Ngrams = %v, want %v", got, want)
	}
}

func TestNgramsLengthRangeOrder(t *testing.T) {
	doc := buildDoc(
		[]string{"new", "phone", "launch"},
		[]string{"ADJ", "NOUN", "NOUN"},
	)

	got := spanTexts(doc.Ngrams(1, 2, []string{"NOUN", "ADJ"}))
	want := []string{"new", "phone", "launch", "new phone", "phone launch"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Ngrams = %v, want %v", got, want)
	}

	for _, s := range doc.Ngrams(1, 2, nil) {
		if s.Kind != KindNgram || s.Label != "" {
			t.Errorf("unexpected kind/label on %+v", s)
		}
	}
}

func TestNgramsEmptyIncludePOSKeepsAll(t *testing.T) {
	doc := buildDoc([]string{"runs", "quickly"}, []string{"VERB", "ADV"})
	if got := doc.Ngrams(2, 2, nil); len(got) != 1 {
		t.Errorf("expected 1 bigram without POS filter, got %v", spanTexts(got))
	}
}

func TestNgramsInvalidRange(t *testing.T) {
	doc := buildDoc([]string{"new", "phone"}, []string{"ADJ", "NOUN"})
	if got := doc.Ngrams(3, 2, nil); len(got) != 0 {
		t.Errorf("min > max should yield nothing, got %v", spanTexts(got))
	}
	if got := doc.Ngrams(5, 6, nil); len(got) != 0 {
		t.Errorf("n larger than doc should yield nothing, got %v", spanTexts(got))
	}
}

func TestNgramsHugeMaxIsBoundedByDoc(t *testing.T) {
	doc := buildDoc([]string{"new", "phone"}, []string{"ADJ", "NOUN"})
	got := spanTexts(doc.Ngrams(1, math.MaxInt, nil))
	want := []string{"new", "phone", "new phone"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Ngrams = %v, want %v", got, want)
	}
}

func TestEntitiesFilterAndDropDeterminer(t *testing.T) {
	doc := buildDoc(
		[]string{"the", "Apple", "Inc.", "hired", "Tim", "Cook"},
		[]string{"DET/stop", "PROPN", "PROPN", "VERB", "PROPN", "PROPN"},
	)
	doc.AddEntity(4, 6, "PERSON")
	doc.AddEntity(0, 3, "ORG")
	doc.AddEntity(3, 9, "ORG") // out of range, ignored

	got := doc.Entities([]string{"ORG"})
	if len(got) != 1 {
		t.Fatalf("expected 1 ORG entity, got %v", spanTexts(got))
	}
	if got[0].Text != "Apple Inc." || got[0].Label != "ORG" || got[0].Len() != 2 {
		t.Errorf("unexpected entity %+v", got[0])
	}
	if got[0].Lemma != "apple inc." {
		t.Errorf("lemma = %q", got[0].Lemma)
	}

	all := spanTexts(doc.Entities(nil))
	if strings.Join(all, "|") != "Apple Inc.|Tim Cook" {
		t.Errorf("entities should be in text order, got %v", all)
	}
}

func TestNounChunksMinLength(t *testing.T) {
	doc := buildDoc(
		[]string{"the", "new", "smart", "phone", "and", "a", "laptop"},
		[]string{"DET/stop", "ADJ", "ADJ", "NOUN", "CCONJ/stop", "DET/stop", "NOUN"},
	)
	doc.AddNounChunk(0, 4)
	doc.AddNounChunk(5, 7)

	got := doc.NounChunks(3)
	if len(got) != 1 || got[0].Text != "new smart phone" {
		t.Fatalf("NounChunks(3) = %v", spanTexts(got))
	}
	if got[0].Kind != KindNounChunk {
		t.Errorf("kind = %v", got[0].Kind)
	}

	if got := doc.NounChunks(1); len(got) != 2 {
		t.Errorf("NounChunks(1) = %v", spanTexts(got))
	}
}

func TestSpanLemmaFollowsSourceSpacing(t *testing.T) {
	tokens := []Token{
		{Text: "e-mail", Lemma: "e-mail", POS: POSNoun, Start: 0, End: 6},
		{Text: "servers", Lemma: "server", POS: POSNoun, Start: 7, End: 14},
	}
	doc := NewDoc("e-mail servers", tokens)
	got := doc.Ngrams(2, 2, nil)
	if len(got) != 1 || got[0].Lemma != "e-mail server" {
		t.Errorf("unexpected spans %+v", got)
	}

	han := []Token{
		{Text: "苹果", Lemma: "苹果", POS: POSNoun, Start: 0, End: 6},
		{Text: "手机", Lemma: "手机", POS: POSNoun, Start: 6, End: 12},
	}
	zh := NewDoc("苹果手机", han)
	got = zh.Ngrams(2, 2, nil)
	if len(got) != 1 || got[0].Text != "苹果手机" || got[0].Lemma != "苹果手机" {
		t.Errorf("adjacent tokens should join without a space: %+v", got)
	}
}

func TestParseLanguage(t *testing.T) {
	for _, in := range []string{"en", "FR", " zh "} {
		if _, err := ParseLanguage(in); err != nil {
			t.Errorf("ParseLanguage(%q): %v", in, err)
		}
	}

	_, err := ParseLanguage("de")
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindNgram, KindEntity, KindNounChunk} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("phrase"); err == nil {
		t.Error("unknown kind should fail")
	}
}
