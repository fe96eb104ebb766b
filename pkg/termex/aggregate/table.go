package aggregate

import "github.com/cognicore/termex/pkg/termex/extract"

// Table is the ranked term table. It is read-only once built.
type Table struct {
	records []TermRecord
	byText  map[string]int
}

func newTable(records []TermRecord) *Table {
	t := &Table{records: records, byText: make(map[string]int, len(records))}
	for i, r := range records {
		if _, ok := t.byText[r.Text]; !ok {
			t.byText[r.Text] = i
		}
	}
	return t
}

// NewTable wraps already ranked records, for example ones read back from
// a store.
func NewTable(records []TermRecord) *Table {
	return newTable(append([]TermRecord(nil), records...))
}

// Records returns the records in rank order.
func (t *Table) Records() []TermRecord {
	return t.records
}

// Lookup finds the record for a surface text.
func (t *Table) Lookup(text string) (TermRecord, bool) {
	i, ok := t.byText[text]
	if !ok {
		return TermRecord{}, false
	}
	return t.records[i], true
}

func (t *Table) Len() int {
	return len(t.records)
}

// Top returns at most k records from the head of the ranking.
func (t *Table) Top(k int) []TermRecord {
	if k < 0 || k > len(t.records) {
		k = len(t.records)
	}
	return t.records[:k]
}

// IndexEntry lists the distinct terms of one document in first-seen order.
type IndexEntry struct {
	DocIndex string
	Terms    []string
}

// Index maps documents to their terms, in first-seen document order.
type Index struct {
	entries []IndexEntry
	byDoc   map[string]int
}

func buildIndex(occs []extract.TermOccurrence, table *Table) *Index {
	idx := &Index{byDoc: make(map[string]int)}
	type pair struct{ doc, text string }
	seen := make(map[pair]struct{}, len(occs))

	for _, occ := range occs {
		if _, ok := table.byText[occ.Text]; !ok {
			continue
		}
		p := pair{doc: occ.DocIndex, text: occ.Text}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		i, ok := idx.byDoc[occ.DocIndex]
		if !ok {
			i = len(idx.entries)
			idx.byDoc[occ.DocIndex] = i
			idx.entries = append(idx.entries, IndexEntry{DocIndex: occ.DocIndex})
		}
		idx.entries[i].Terms = append(idx.entries[i].Terms, occ.Text)
	}
	return idx
}

// NewIndex wraps prebuilt entries.
func NewIndex(entries []IndexEntry) *Index {
	idx := &Index{entries: append([]IndexEntry(nil), entries...), byDoc: make(map[string]int, len(entries))}
	for i, e := range idx.entries {
		idx.byDoc[e.DocIndex] = i
	}
	return idx
}

// Entries returns the index in first-seen document order.
func (x *Index) Entries() []IndexEntry {
	return x.entries
}

// Terms returns the terms of one document, or nil when it has none.
func (x *Index) Terms(docIndex string) []string {
	i, ok := x.byDoc[docIndex]
	if !ok {
		return nil
	}
	return x.entries[i].Terms
}

func (x *Index) Len() int {
	return len(x.entries)
}
