// Package aggregate folds term occurrences into a ranked term table with
// one record per surface text, and a per-document term index.
package aggregate

import (
	"sort"
	"strings"

	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/extract"
	"github.com/cognicore/termex/pkg/termex/internalerr"
)

// DedupPolicy picks the canonical record when several groups share a
// surface text.
type DedupPolicy string

const (
	// Lexical keeps the first candidate by (Text, Label, Lemma, Length).
	Lexical DedupPolicy = "lexical"
	// Frequency keeps the candidate seen in the most documents.
	Frequency DedupPolicy = "frequency"
	// Priority prefers entity over ngram over noun_chunk.
	Priority DedupPolicy = "priority"
)

// ParsePolicy validates a policy name. Empty means lexical.
func ParsePolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case Lexical, Frequency, Priority:
		return p, nil
	case "":
		return Lexical, nil
	}
	return "", internalerr.NewConfigError("dedup_policy", "unknown policy %q (want lexical, frequency or priority)", s)
}

// Options controls canonicalization and filtering.
type Options struct {
	Policy   DedupPolicy
	MinCount int // records below this document count are dropped; <= 1 keeps all
}

// TermRecord is one distinct surface text over the corpus.
type TermRecord struct {
	Text          string
	Lemma         string
	Kind          annotate.Kind
	Label         string
	Length        int
	DocumentCount int
}

type groupKey struct {
	text, lemma, label string
	length             int
}

type group struct {
	rec  TermRecord
	docs map[string]struct{}
}

// Aggregate groups occurrences, keeps one record per surface text, ranks
// by document count and builds the document index.
func Aggregate(occs []extract.TermOccurrence, opts Options) (*Table, *Index, error) {
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, nil, err
	}

	groups := make(map[groupKey]*group)
	for _, occ := range occs {
		key := groupKey{text: occ.Text, lemma: occ.Lemma, label: occ.Label, length: occ.Length}
		g, ok := groups[key]
		if !ok {
			g = &group{
				rec: TermRecord{
					Text:   occ.Text,
					Lemma:  occ.Lemma,
					Kind:   occ.Kind,
					Label:  occ.Label,
					Length: occ.Length,
				},
				docs: make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.rec.Kind = mergeKind(g.rec, occ.Kind)
		g.docs[occ.DocIndex] = struct{}{}
	}

	byText := make(map[string][]TermRecord)
	for _, g := range groups {
		g.rec.DocumentCount = len(g.docs)
		byText[g.rec.Text] = append(byText[g.rec.Text], g.rec)
	}

	records := make([]TermRecord, 0, len(byText))
	for _, candidates := range byText {
		rec := canonical(candidates, policy)
		if rec.DocumentCount < opts.MinCount {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].DocumentCount != records[j].DocumentCount {
			return records[i].DocumentCount > records[j].DocumentCount
		}
		return records[i].Text < records[j].Text
	})

	table := newTable(records)
	index := buildIndex(occs, table)
	if err := verify(table, index); err != nil {
		return nil, nil, err
	}
	return table, index, nil
}

// mergeKind keeps entity for labelled groups and otherwise the lowest
// ordered kind seen.
func mergeKind(rec TermRecord, k annotate.Kind) annotate.Kind {
	if rec.Label != "" {
		return annotate.KindEntity
	}
	if rank(k) < rank(rec.Kind) {
		return k
	}
	return rec.Kind
}

func rank(k annotate.Kind) int {
	switch k {
	case annotate.KindNgram:
		return 0
	case annotate.KindNounChunk:
		return 1
	default:
		return 2
	}
}

func priority(k annotate.Kind) int {
	switch k {
	case annotate.KindEntity:
		return 0
	case annotate.KindNgram:
		return 1
	default:
		return 2
	}
}

func lexicalLess(a, b TermRecord) bool {
	if a.Text != b.Text {
		return a.Text < b.Text
	}
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	if a.Lemma != b.Lemma {
		return a.Lemma < b.Lemma
	}
	return a.Length < b.Length
}

func canonical(candidates []TermRecord, policy DedupPolicy) TermRecord {
	less := lexicalLess
	switch policy {
	case Frequency:
		less = func(a, b TermRecord) bool {
			if a.DocumentCount != b.DocumentCount {
				return a.DocumentCount > b.DocumentCount
			}
			return lexicalLess(a, b)
		}
	case Priority:
		less = func(a, b TermRecord) bool {
			if pa, pb := priority(a.Kind), priority(b.Kind); pa != pb {
				return pa < pb
			}
			return lexicalLess(a, b)
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if less(c, best) {
			best = c
		}
	}
	return best
}

func verify(table *Table, index *Index) error {
	seen := make(map[string]struct{}, len(table.records))
	for _, rec := range table.records {
		if _, dup := seen[rec.Text]; dup {
			return internalerr.Integrityf("surface text %q appears twice in the term table", rec.Text)
		}
		seen[rec.Text] = struct{}{}
	}
	for _, entry := range index.entries {
		for _, term := range entry.Terms {
			if _, ok := seen[term]; !ok {
				return internalerr.Integrityf("document %q lists %q, which is not in the term table", entry.DocIndex, term)
			}
		}
	}
	return nil
}
