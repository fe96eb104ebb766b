// Package annotatetest provides a deterministic annotator for tests.
package annotatetest

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/cognicore/termex/pkg/termex/annotate"
)

// Fake splits on whitespace and tags from a table. Tokens made only of
// punctuation are PUNCT; unknown words are NOUN.
type Fake struct {
	Tags     map[string]string // lowercase word -> POS
	Stop     map[string]bool   // lowercase word -> stop-word
	Entities map[string]string // exact phrase -> label
	Chunks   bool              // maximal DET/ADJ/NOUN/PROPN runs become noun chunks
	Fail     map[string]error  // substring -> error returned for matching text

	calls atomic.Int64
}

// Calls reports how many times Annotate ran.
func (f *Fake) Calls() int {
	return int(f.calls.Load())
}

// Language implements annotate.Annotator.
func (f *Fake) Language() annotate.Language {
	return annotate.English
}

// Annotate implements annotate.Annotator.
func (f *Fake) Annotate(ctx context.Context, text string) (*annotate.Doc, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for sub, err := range f.Fail {
		if strings.Contains(text, sub) {
			return nil, err
		}
	}

	var tokens []annotate.Token
	offset := 0
	for _, field := range strings.Fields(text) {
		start := offset + strings.Index(text[offset:], field)
		offset = start + len(field)

		lower := strings.ToLower(field)
		pos, ok := f.Tags[lower]
		switch {
		case ok:
		case strings.IndexFunc(field, func(r rune) bool { return !unicode.IsPunct(r) }) < 0:
			pos = annotate.POSPunct
		default:
			pos = annotate.POSNoun
		}
		tokens = append(tokens, annotate.Token{
			Text:    field,
			Lemma:   lower,
			POS:     pos,
			IsStop:  f.Stop[lower],
			IsPunct: pos == annotate.POSPunct,
			Start:   start,
			End:     offset,
		})
	}

	doc := annotate.NewDoc(text, tokens)
	for phrase, label := range f.Entities {
		words := strings.Fields(phrase)
		for i := 0; i+len(words) <= len(tokens); i++ {
			if matches(tokens[i:i+len(words)], words) {
				doc.AddEntity(i, i+len(words), label)
			}
		}
	}
	if f.Chunks {
		for i := 0; i < len(tokens); {
			j := i
			for j < len(tokens) && chunkPOS(tokens[j].POS) {
				j++
			}
			if j > i {
				doc.AddNounChunk(i, j)
				i = j
			} else {
				i++
			}
		}
	}
	return doc, nil
}

func matches(tokens []annotate.Token, words []string) bool {
	for i, w := range words {
		if tokens[i].Text != w {
			return false
		}
	}
	return true
}

func chunkPOS(pos string) bool {
	switch pos {
	case annotate.POSDet, annotate.POSAdj, annotate.POSNoun, annotate.POSPropn:
		return true
	}
	return false
}
