package preprocess

import (
	"strings"
	"testing"
)

func TestNormalizeDefaultSteps(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", "  Apple   released\t\ta  phone  ", "Apple released a phone"},
		{"linebreaks", "first line\r\n\r\n\n  second line", "first line\nsecond line"},
		{"quotes", "“Smart” phones aren’t cheap", `"Smart" phones aren't cheap`},
		{"bullets", "• first\n• second", "- first\n- second"},
		{"hyphenated", "a well-known exam-\nple", "a well-known example"},
		{"hyphen then space", "an exam- ple of it", "an example of it"},
		{"brackets", "the phone (released today) is new", "the phone is new"},
		{"nested brackets", "a (b (c) d) e", "a e"},
		{"deeply nested brackets", "a (((((b))))) c", "a c"},
		{"mixed brackets", "x ([{(y)}]) z", "x z"},
		{"currency", "costs $500 or €450", "costs _CUR_500 or _CUR_450"},
		{"html", "<p>Hello <b>world</b></p>", "Hello world"},
		{"script", "<script>var x = 1;</script>visible", "visible"},
		{"entities kept", "fish &amp; chips", "fish &amp; chips"},
		{"emoji", "great phone 📱🔥 today", "great phone today"},
		{"less than is text", "a < b", "a < b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in, DefaultOptions())
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeUnicodeComposes(t *testing.T) {
	decomposed := "cafe\u0301"
	got := Normalize(decomposed, Options{Unicode: true})
	if got != "caf\u00e9" {
		t.Errorf("expected NFC composition, got %q", got)
	}
}

func TestNormalizeRemovePunctuation(t *testing.T) {
	opts := DefaultOptions()
	opts.RemovePunctuation = true

	got := Normalize("Apple Inc. released a phone, finally!", opts)
	want := "Apple Inc released a phone finally"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeKeepsEmojiWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.DropEmoji = false

	got := Normalize("launch 🚀", opts)
	if !strings.Contains(got, "🚀") {
		t.Errorf("emoji should be kept, got %q", got)
	}
}

func TestNormalizeNoStepsIsIdentity(t *testing.T) {
	in := "  <b>raw</b> (text) $5 🚀  "
	if got := Normalize(in, Options{}); got != in {
		t.Errorf("with no steps enabled, got %q, want input unchanged", got)
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	inputs := []string{
		"\xff\xfe broken utf8",
		"<div unclosed",
		"((( unbalanced",
		"<<b>b>",
		"\x00\x01 control",
	}
	for _, in := range inputs {
		// must not panic
		_ = Normalize(in, DefaultOptions())
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Apple Inc. released a new phone",
		"  The “new” phone (2024) costs $999!!  ",
		"<p>Breaking: <i>Apple</i> &amp; Google</p>\n\n\n• merger talks",
		"ab- (x)\ncd and exam-\nple",
		"a (b (c) d) e",
		"a (((((b))))) c",
		"x ((((((((y)))))))) z",
		"([{(x)}]) left",
		"aa- bb- cc",
		"<<b>b> tags",
		"emoji 😀 in\t\ttext ✨",
		"",
	}
	variants := []Options{DefaultOptions(), {}, {Whitespace: true, Brackets: true}}
	withPunct := DefaultOptions()
	withPunct.RemovePunctuation = true
	variants = append(variants, withPunct)

	for _, opts := range variants {
		for _, in := range inputs {
			once := Normalize(in, opts)
			twice := Normalize(once, opts)
			if once != twice {
				t.Errorf("not idempotent for %q (opts %+v): %q then %q", in, opts, once, twice)
			}
		}
	}
}
