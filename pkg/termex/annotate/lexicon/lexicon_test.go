package lexicon

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

func openEnglish(t *testing.T, res Resources) *Model {
	t.Helper()
	m, err := Open(annotate.English, res)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return m
}

func annotateText(t *testing.T, m *Model, text string) *annotate.Doc {
	t.Helper()
	doc, err := m.Annotate(context.Background(), text)
	if err != nil {
		t.Fatalf("Annotate(%q): %v", text, err)
	}
	return doc
}

func texts(spans []annotate.Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

func TestTokenizeSplitsWordsAndPunct(t *testing.T) {
	m := openEnglish(t, Resources{})

	tests := []struct {
		in   string
		want []string
	}{
		{"Apple released a phone.", []string{"Apple", "released", "a", "phone", "."}},
		{"state-of-the-art e-mail", []string{"state-of-the-art", "e-mail"}},
		{"It costs 3.50 or 1,000", []string{"It", "costs", "3.50", "or", "1,000"}},
		{"The U.S. market", []string{"The", "U.S.", "market"}},
		{"Apple Inc. said", []string{"Apple", "Inc.", "said"}},
		{"end. Next", []string{"end", ".", "Next"}},
		{"(hello)", []string{"(", "hello", ")"}},
	}

	for _, tt := range tests {
		got := rawTexts(m.tok.tokenize(tt.in))
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTokenizeOffsets(t *testing.T) {
	m := openEnglish(t, Resources{})
	text := "café  au lait"
	for _, tok := range m.tok.tokenize(text) {
		if text[tok.start:tok.end] != tok.text {
			t.Errorf("offsets [%d,%d) do not cover %q", tok.start, tok.end, tok.text)
		}
	}
}

func TestTokenizeFrenchElision(t *testing.T) {
	m, err := Open(annotate.French, Resources{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := rawTexts(m.tok.tokenize("l'entreprise d'Apple aujourd'hui"))
	want := []string{"l'", "entreprise", "d'", "Apple", "aujourd'hui"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeHanSegmentation(t *testing.T) {
	m, err := Open(annotate.Chinese, Resources{
		Words: map[string]WordEntry{"苹果": {POS: "PROPN"}, "手机": {}},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := rawTexts(m.tok.tokenize("苹果公司的手机"))
	want := []string{"苹果", "公司", "的", "手机"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("tokenize = %v, want %v", got, want)
	}
}

func TestTagging(t *testing.T) {
	m := openEnglish(t, Resources{
		Words: map[string]WordEntry{"mice": {POS: "noun", Lemma: "mouse"}},
	})
	doc := annotateText(t, m, "Apple released a new phone for mice, said NASA.")

	want := map[string]struct {
		pos   string
		lemma string
		stop  bool
	}{
		"Apple":    {annotate.POSPropn, "Apple", false},
		"released": {annotate.POSVerb, "released", false},
		"a":        {annotate.POSDet, "a", true},
		"new":      {annotate.POSAdj, "new", false},
		"phone":    {annotate.POSNoun, "phone", false},
		"mice":     {annotate.POSNoun, "mouse", false},
		",":        {annotate.POSPunct, ",", false},
		"NASA":     {annotate.POSPropn, "NASA", false},
	}
	for _, tok := range doc.Tokens() {
		w, ok := want[tok.Text]
		if !ok {
			continue
		}
		if tok.POS != w.pos || tok.Lemma != w.lemma || tok.IsStop != w.stop {
			t.Errorf("%q tagged %s/%q stop=%v, want %s/%q stop=%v",
				tok.Text, tok.POS, tok.Lemma, tok.IsStop, w.pos, w.lemma, w.stop)
		}
		if tok.IsPunct != (w.pos == annotate.POSPunct) {
			t.Errorf("%q IsPunct = %v", tok.Text, tok.IsPunct)
		}
	}
}

func TestPluralNounLemma(t *testing.T) {
	m := openEnglish(t, Resources{})
	doc := annotateText(t, m, "the phones and batteries")
	lemmas := map[string]string{}
	for _, tok := range doc.Tokens() {
		lemmas[tok.Text] = tok.Lemma
	}
	if lemmas["phones"] != "phone" || lemmas["batteries"] != "battery" {
		t.Errorf("unexpected lemmas %v", lemmas)
	}
}

func TestOrganisationSuffixEntity(t *testing.T) {
	m := openEnglish(t, Resources{})

	doc := annotateText(t, m, "Apple Inc. released a new phone")
	ents := doc.Entities([]string{"ORG"})
	if len(ents) != 1 || ents[0].Text != "Apple Inc." {
		t.Fatalf("entities = %v, want [Apple Inc.]", texts(ents))
	}

	grams := texts(doc.Ngrams(2, 2, []string{"NOUN", "PROPN", "ADJ"}))
	found := false
	for _, g := range grams {
		if g == "new phone" {
			found = true
		}
	}
	if !found {
		t.Errorf("bigrams %v should contain %q", grams, "new phone")
	}

	other := annotateText(t, m, "Apple released a new laptop")
	if ents := other.Entities(nil); len(ents) != 0 {
		t.Errorf("no suffix should mean no entity, got %v", texts(ents))
	}
}

func TestTitleEntity(t *testing.T) {
	m := openEnglish(t, Resources{})
	doc := annotateText(t, m, "He met Dr. Jane Smith yesterday")
	ents := doc.Entities([]string{"PERSON"})
	if len(ents) != 1 || ents[0].Text != "Jane Smith" {
		t.Errorf("entities = %v, want [Jane Smith]", texts(ents))
	}
}

func TestGazetteerEntities(t *testing.T) {
	m := openEnglish(t, Resources{
		Entities: map[string][]string{
			"GPE":    {"New York", "New York City"},
			"PERSON": {"Tim Cook"},
		},
	})
	doc := annotateText(t, m, "Tim Cook flew to New York City and new york")

	got := doc.Entities(nil)
	want := []struct{ text, label string }{
		{"Tim Cook", "PERSON"},
		{"New York City", "GPE"},
		{"new york", "GPE"},
	}
	if len(got) != len(want) {
		t.Fatalf("entities = %v", texts(got))
	}
	for i, w := range want {
		if got[i].Text != w.text || got[i].Label != w.label {
			t.Errorf("entity %d = %q/%s, want %q/%s", i, got[i].Text, got[i].Label, w.text, w.label)
		}
	}

	labels := strings.Join(m.EntityLabels(), ",")
	if labels != "GPE,ORG,PERSON" {
		t.Errorf("EntityLabels = %s", labels)
	}
}

func TestNounChunks(t *testing.T) {
	m := openEnglish(t, Resources{})
	doc := annotateText(t, m, "The new smart phone is an old laptop.")
	got := texts(doc.NounChunks(1))
	want := []string{"new smart phone", "old laptop"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("NounChunks = %v, want %v", got, want)
	}
}

func TestFrenchPostnominalChunk(t *testing.T) {
	m, err := Open(annotate.French, Resources{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	doc := annotateText(t, m, "une voiture électrique")
	got := texts(doc.NounChunks(1))
	if len(got) != 1 || got[0] != "voiture électrique" {
		t.Errorf("NounChunks = %v", got)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(annotate.Language("de"), Resources{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("unsupported language: got %v", err)
	}

	_, err := Open(annotate.English, Resources{Words: map[string]WordEntry{"x": {POS: "WIDGET"}}})
	var cfgErr *internalerr.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "resources.words" {
		t.Errorf("unknown POS: got %v", err)
	}
}

func TestAnnotateLimits(t *testing.T) {
	m := openEnglish(t, Resources{MaxBytes: 8})
	if _, err := m.Annotate(context.Background(), "far too long"); err == nil {
		t.Error("expected size limit error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Annotate(ctx, "short"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if _, err := m.Annotate(context.Background(), "\xff\xfe"); err == nil {
		t.Error("expected invalid UTF-8 error")
	}
}

func TestLanguage(t *testing.T) {
	m := openEnglish(t, Resources{})
	if m.Language() != annotate.English {
		t.Errorf("Language = %s", m.Language())
	}
}
