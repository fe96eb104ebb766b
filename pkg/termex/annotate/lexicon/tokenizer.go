package lexicon

import (
	"strings"
	"unicode"
)

// rawToken is a token before tagging; start and end are byte offsets.
type rawToken struct {
	text       string
	start, end int
}

// tokenizer splits text into word and punctuation tokens.
type tokenizer struct {
	abbreviations map[string]struct{}
	elisions      []string
	segmentHan    bool
	hanWords      map[string]struct{}
	hanMaxLen     int // in runes
}

func (t *tokenizer) tokenize(text string) []rawToken {
	runes := []rune(text)
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = pos

	var tokens []rawToken
	emit := func(i, j int) {
		tokens = append(tokens, rawToken{
			text:  text[offsets[i]:offsets[j]],
			start: offsets[i],
			end:   offsets[j],
		})
	}

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case t.segmentHan && unicode.Is(unicode.Han, r):
			j := t.segmentHanRun(runes, i)
			emit(i, j)
			i = j
		case isWordRune(r):
			j := t.scanWord(runes, i)
			if k := t.elisionSplit(runes, i, j); k > i {
				emit(i, k)
				if k < j {
					emit(k, j)
				}
			} else {
				emit(i, j)
			}
			i = j
		default:
			emit(i, i+1)
			i++
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func isJoiner(r rune) bool {
	return r == '-' || r == '\'' || r == '’'
}

// scanWord returns the end of the word starting at i. Inner hyphens and
// apostrophes, decimal separators between digits, acronyms such as "U.S."
// and known abbreviations ending in a period stay inside the word.
func (t *tokenizer) scanWord(runes []rune, i int) int {
	if j := scanAcronym(runes, i); j > i {
		return j
	}

	n := len(runes)
	j := i
scan:
	for j < n {
		r := runes[j]
		switch {
		case isWordRune(r) && !(t.segmentHan && unicode.Is(unicode.Han, r)):
			j++
		case isJoiner(r) && j > i && j+1 < n && isWordRune(runes[j+1]):
			j++
		case (r == '.' || r == ',') && j > i && unicode.IsDigit(runes[j-1]) && j+1 < n && unicode.IsDigit(runes[j+1]):
			j++
		default:
			break scan
		}
	}
	if j < n && runes[j] == '.' {
		word := strings.ToLower(string(runes[i:j])) + "."
		if _, ok := t.abbreviations[word]; ok {
			j++
		}
	}
	return j
}

// scanAcronym matches two or more single letters each followed by a period.
func scanAcronym(runes []rune, i int) int {
	n := len(runes)
	j := i
	count := 0
	for j+1 < n && unicode.IsLetter(runes[j]) && runes[j+1] == '.' {
		if j+2 < n && isWordRune(runes[j+2]) && !(j+3 < n && runes[j+3] == '.') {
			// "a.b" where b starts a longer word
			break
		}
		j += 2
		count++
	}
	if count >= 2 {
		return j
	}
	return i
}

// elisionSplit returns the end of a leading elided article ("l'" in
// "l'entreprise"), or i when the word has none.
func (t *tokenizer) elisionSplit(runes []rune, i, j int) int {
	if len(t.elisions) == 0 {
		return i
	}
	for k := i + 1; k < j-1; k++ {
		if runes[k] != '\'' && runes[k] != '’' {
			continue
		}
		prefix := strings.ToLower(string(runes[i:k])) + "'"
		for _, e := range t.elisions {
			if prefix == e {
				return k + 1
			}
		}
		return i
	}
	return i
}

// segmentHanRun applies greedy longest match against the known words and
// falls back to a single character.
func (t *tokenizer) segmentHanRun(runes []rune, i int) int {
	end := i
	for end < len(runes) && unicode.Is(unicode.Han, runes[end]) {
		end++
	}

	maxLen := t.hanMaxLen
	if remaining := end - i; maxLen > remaining {
		maxLen = remaining
	}
	for n := maxLen; n >= 2; n-- {
		if _, ok := t.hanWords[string(runes[i:i+n])]; ok {
			return i + n
		}
	}
	return i + 1
}

func (t *tokenizer) addHanWord(w string) {
	if !t.segmentHan {
		return
	}
	if t.hanWords == nil {
		t.hanWords = make(map[string]struct{})
	}
	for _, r := range w {
		if !unicode.Is(unicode.Han, r) {
			return
		}
	}
	t.hanWords[w] = struct{}{}
	if l := len([]rune(w)); l > t.hanMaxLen {
		t.hanMaxLen = l
	}
}
