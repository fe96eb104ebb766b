// Package preprocess normalizes raw document text before it reaches the
// linguistic annotator. Every step is a pure string transformation; a step
// that cannot apply returns its input unchanged.
package preprocess

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// CurrencyPlaceholder replaces every currency symbol.
const CurrencyPlaceholder = "_CUR_"

// Options toggles the individual normalization steps. Steps run in the
// order the fields are declared.
type Options struct {
	Unicode           bool `yaml:"unicode"`
	BulletPoints      bool `yaml:"bullet_points"`
	QuotationMarks    bool `yaml:"quotation_marks"`
	Whitespace        bool `yaml:"whitespace"`
	HyphenatedWords   bool `yaml:"hyphenated_words"`
	Brackets          bool `yaml:"brackets"`
	CurrencySymbols   bool `yaml:"currency_symbols"`
	HTMLTags          bool `yaml:"html_tags"`
	DropEmoji         bool `yaml:"drop_emoji"`
	RemovePunctuation bool `yaml:"remove_punctuation"`
}

// DefaultOptions enables the standard cleaning pipeline and emoji removal.
// Punctuation is kept.
func DefaultOptions() Options {
	return Options{
		Unicode:         true,
		BulletPoints:    true,
		QuotationMarks:  true,
		Whitespace:      true,
		HyphenatedWords: true,
		Brackets:        true,
		CurrencySymbols: true,
		HTMLTags:        true,
		DropEmoji:       true,
	}
}

type step struct {
	enabled func(Options) bool
	apply   func(string) string
}

var steps = []step{
	{func(o Options) bool { return o.Unicode }, normalizeUnicode},
	{func(o Options) bool { return o.BulletPoints }, normalizeBulletPoints},
	{func(o Options) bool { return o.QuotationMarks }, normalizeQuotationMarks},
	{func(o Options) bool { return o.Whitespace }, normalizeWhitespace},
	{func(o Options) bool { return o.HyphenatedWords }, normalizeHyphenatedWords},
	{func(o Options) bool { return o.Brackets }, removeBrackets},
	{func(o Options) bool { return o.CurrencySymbols }, replaceCurrencySymbols},
	{func(o Options) bool { return o.HTMLTags }, removeHTMLTags},
	{func(o Options) bool { return o.DropEmoji }, removeEmoji},
	{func(o Options) bool { return o.RemovePunctuation }, removePunctuation},
	// removals above leave gaps behind
	{func(o Options) bool { return o.Whitespace }, normalizeWhitespace},
}

// Normalize applies the enabled steps to text. Passes repeat until the
// output is stable, so Normalize(Normalize(s)) == Normalize(s). Tags
// revealed by stripping other tags need a second pass.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func Normalize(text string, opts Options) string {
	out := strings.ToValidUTF8(text, string(unicode.ReplacementChar))
	for {
		next := out
		for _, s := range steps {
			if s.enabled(opts) {
				next = s.apply(next)
			}
		}
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeUnicode(s string) string {
	return norm.NFC.String(s)
}

var bulletPattern = regexp.MustCompile(`(?m)^([^\S\n]*)[\x{2022}\x{2023}\x{2043}\x{204C}\x{204D}\x{2219}\x{25AA}\x{25CF}\x{25E6}\x{29BE}\x{29BF}\x{25C9}\x{25CB}\x{25A0}\x{25A1}\x{F0B7}]`)

func normalizeBulletPoints(s string) string {
	return bulletPattern.ReplaceAllString(s, "$1-")
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"«", `"`, "»", `"`,
)

func normalizeQuotationMarks(s string) string {
	return quoteReplacer.Replace(s)
}

var (
	linebreakPattern = regexp.MustCompile(`[\t\f\p{Zs}]*(\r\n|[\r\n\v])[\s\v\p{Zs}]*`)
	spacePattern     = regexp.MustCompile(`[\t\f\p{Zs}]+`)
)

func normalizeWhitespace(s string) string {
	s = linebreakPattern.ReplaceAllString(s, "\n")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var hyphenatedPattern = regexp.MustCompile(`(\p{L}{2,})-\s+(\p{L}{2,})`)

func normalizeHyphenatedWords(s string) string {
	return hyphenatedPattern.ReplaceAllString(s, "$1$2")
}

var bracketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\([^()]*\)`),
	regexp.MustCompile(`\[[^\[\]]*\]`),
	regexp.MustCompile(`\{[^{}]*\}`),
}

// removeBrackets strips innermost groups until none are left, so any
// nesting depth or mix of bracket kinds goes in one call.
func removeBrackets(s string) string {
	for {
		prev := s
		for _, re := range bracketPatterns {
			s = re.ReplaceAllString(s, "")
		}
		if s == prev {
			return s
		}
	}
}

func replaceCurrencySymbols(s string) string {
	if strings.IndexFunc(s, isCurrency) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isCurrency(r) {
			b.WriteString(CurrencyPlaceholder)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isCurrency(r rune) bool {
	return unicode.Is(unicode.Sc, r)
}

// removeHTMLTags drops tags, comments and doctypes along with the body of
// script and style elements. Text is kept verbatim, entities included.
func removeHTMLTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var buf bytes.Buffer
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return buf.String()
			}
			return s
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Raw())
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextElement(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextElement(name) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawTextElement(name []byte) bool {
	return bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style"))
}

var emojiRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200D, Hi: 0x200D, Stride: 1},
		{Lo: 0x203C, Hi: 0x203C, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2190, Hi: 0x21FF, Stride: 1},
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23FA, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25B6, Hi: 0x25B6, Stride: 1},
		{Lo: 0x25C0, Hi: 0x25C0, Stride: 1},
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303D, Hi: 0x303D, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 1},
		{Lo: 0xFE0E, Hi: 0xFE0F, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1},
		{Lo: 0xE0020, Hi: 0xE007F, Stride: 1},
	},
}

func removeEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(emojiRanges, r) {
			return -1
		}
		return r
	}, s)
}

func removePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, s)
}
