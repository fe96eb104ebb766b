package lexicon

import (
	"sort"
	"strings"
)

// gazetteer maps known entity phrases to their labels. Phrases are keyed
// by their lowercased token sequence so matching follows tokenization.
type gazetteer struct {
	phrases map[string]string // joined lowercase tokens -> label
	maxLen  int               // in tokens
}

// entityMatch is a recognised entity over tokens [start, end).
type entityMatch struct {
	start, end int
	label      string
}

func newGazetteer() *gazetteer {
	return &gazetteer{phrases: make(map[string]string), maxLen: 0}
}

// add registers a tokenized phrase. Later labels for the same phrase win.
func (g *gazetteer) add(tokens []string, label string) {
	if len(tokens) == 0 || label == "" {
		return
	}
	g.phrases[phraseKey(tokens)] = label
	if len(tokens) > g.maxLen {
		g.maxLen = len(tokens)
	}
}

// match applies greedy longest match from left to right.
func (g *gazetteer) match(tokens []string) []entityMatch {
	if g.maxLen == 0 {
		return nil
	}

	var out []entityMatch
	i := 0
	for i < len(tokens) {
		maxPhrase := g.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}

		matched := 0
		for n := maxPhrase; n >= 1; n-- {
			if label, ok := g.phrases[phraseKey(tokens[i:i+n])]; ok {
				out = append(out, entityMatch{start: i, end: i + n, label: label})
				matched = n
				break
			}
		}

		if matched > 0 {
			i += matched
		} else {
			i++
		}
	}
	return out
}

// labels lists the distinct labels, sorted.
func (g *gazetteer) labels() []string {
	set := make(map[string]struct{})
	for _, l := range g.phrases {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func phraseKey(tokens []string) string {
	lowered := make([]string, len(tokens))
	for i, t := range tokens {
		lowered[i] = strings.ToLower(t)
	}
	return strings.Join(lowered, "\x1f")
}
