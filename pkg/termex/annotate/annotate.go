// Package annotate defines the boundary to the linguistic annotator: the
// Annotator interface, the annotated document it returns, and the three
// term extraction capabilities (n-grams, named entities, noun chunks) that
// operate over an annotated document.
//
// The package never tokenizes or tags text itself. Implementations such as
// annotate/lexicon provide that.
package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/termex/pkg/termex/internalerr"
)

// Annotator turns preprocessed text into an annotated document.
// Implementations must be safe for concurrent use.
type Annotator interface {
	Language() Language
	Annotate(ctx context.Context, text string) (*Doc, error)
}

// Language selects the linguistic model.
type Language string

const (
	English Language = "en"
	French  Language = "fr"
	Chinese Language = "zh"
)

// SupportedLanguages lists languages with an available model.
func SupportedLanguages() []Language {
	return []Language{English, French, Chinese}
}

// ParseLanguage validates a language code.
func ParseLanguage(s string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range SupportedLanguages() {
		if l == lang {
			return lang, nil
		}
	}
	return "", internalerr.NewConfigError("language", "unsupported language %q", s)
}

// Kind identifies the capability that produced a span.
type Kind uint8

const (
	KindNgram Kind = iota
	KindEntity
	KindNounChunk
)

func (k Kind) String() string {
	switch k {
	case KindNgram:
		return "ngram"
	case KindEntity:
		return "entity"
	case KindNounChunk:
		return "noun_chunk"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ngram":
		return KindNgram, nil
	case "entity":
		return KindEntity, nil
	case "noun_chunk":
		return KindNounChunk, nil
	}
	return 0, fmt.Errorf("unknown term kind %q", s)
}

// Universal part-of-speech tags used by the bundled models.
const (
	POSAdj   = "ADJ"
	POSAdp   = "ADP"
	POSAdv   = "ADV"
	POSAux   = "AUX"
	POSCconj = "CCONJ"
	POSDet   = "DET"
	POSNoun  = "NOUN"
	POSNum   = "NUM"
	POSPart  = "PART"
	POSPron  = "PRON"
	POSPropn = "PROPN"
	POSPunct = "PUNCT"
	POSSconj = "SCONJ"
	POSSym   = "SYM"
	POSVerb  = "VERB"
)
