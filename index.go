/*
Package coredb – secondary index support.
*/
package coredb

import (
	"sort"

	"github.com/tidwall/btree"
)

// IndexDefinition names an index and the ordered list of fields whose
// values form its composite key.
type IndexDefinition struct {
	Name   string
	Table  string
	Fields []string
}

// indexEntry is one composite key and the set of local document ids
// sharing it.
type indexEntry struct {
	key []Value
	ids map[string]struct{}
}

func indexEntryLess(a, b indexEntry) bool { return compareArrays(a.key, b.key) < 0 }

// Index is a single secondary index: a composite key, drawn from one
// or more document fields, ordered under the total Value order and
// mapped to the set of local document ids sharing that key. Backed by
// an ordered btree so equality lookups, half-open range scans, and
// ordered iteration are all efficient.
type Index struct {
	def     IndexDefinition
	entries *btree.BTreeG[indexEntry]
}

// NewIndex constructs an empty index for the given definition.
func NewIndex(def IndexDefinition) *Index {
	return &Index{def: def, entries: btree.NewBTreeG(indexEntryLess)}
}

func (idx *Index) Definition() IndexDefinition { return idx.def }

// extractKey pulls the indexed fields out of a document's field map in
// definition order. A field absent from the document indexes as Null,
// so "missing" and "explicitly null" collide under the same key —
// matching how queries see absent fields elsewhere in this package.
func (idx *Index) extractKey(fields map[string]Value) []Value {
	key := make([]Value, len(idx.def.Fields))
	for i, name := range idx.def.Fields {
		if v, ok := fields[name]; ok {
			key[i] = v
		} else {
			key[i] = Null
		}
	}
	return key
}

// Insert records a document's entry in the index. The id set is
// copied rather than mutated in place so a btree.Copy() snapshot
// taken before this call stays untouched by it.
func (idx *Index) Insert(docId string, fields map[string]Value) {
	key := idx.extractKey(fields)
	old, found := idx.entries.Get(indexEntry{key: key})
	ids := make(map[string]struct{}, len(old.ids)+1)
	if found {
		for id := range old.ids {
			ids[id] = struct{}{}
		}
	}
	ids[docId] = struct{}{}
	idx.entries.Set(indexEntry{key: key, ids: ids})
}

// Remove deletes a document's entry from the index, dropping the key
// entirely once its id set empties out.
func (idx *Index) Remove(docId string, fields map[string]Value) {
	key := idx.extractKey(fields)
	old, found := idx.entries.Get(indexEntry{key: key})
	if !found {
		return
	}
	if _, present := old.ids[docId]; !present {
		return
	}
	if len(old.ids) == 1 {
		idx.entries.Delete(indexEntry{key: key})
		return
	}
	ids := make(map[string]struct{}, len(old.ids)-1)
	for id := range old.ids {
		if id != docId {
			ids[id] = struct{}{}
		}
	}
	idx.entries.Set(indexEntry{key: key, ids: ids})
}

// Update moves a document's entry from its old key to its new one.
func (idx *Index) Update(docId string, oldFields, newFields map[string]Value) {
	idx.Remove(docId, oldFields)
	idx.Insert(docId, newFields)
}

func sortedIds(ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Lookup returns every document id whose indexed fields exactly match
// values, sorted for deterministic output.
func (idx *Index) Lookup(values []Value) []string {
	entry, found := idx.entries.Get(indexEntry{key: values})
	if !found {
		return nil
	}
	return sortedIds(entry.ids)
}

// Range performs a half-open [lower, upper) scan: a nil bound is
// unbounded on that side. Results are ordered by key, with ties
// between ids sharing a key broken lexicographically.
func (idx *Index) Range(lower, upper []Value) []string {
	var out []string
	visit := func(e indexEntry) bool {
		if upper != nil && compareArrays(e.key, upper) >= 0 {
			return false
		}
		out = append(out, sortedIds(e.ids)...)
		return true
	}
	if lower != nil {
		idx.entries.Ascend(indexEntry{key: lower}, visit)
	} else {
		idx.entries.Scan(visit)
	}
	return out
}

// IndexPair is one (key, docId) pair produced by Scan.
type IndexPair struct {
	Key []Value
	Id  string
}

// Scan iterates every entry in key order, with ids within a shared key
// sub-sorted lexicographically so iteration is fully deterministic.
func (idx *Index) Scan() []IndexPair {
	var out []IndexPair
	idx.entries.Scan(func(e indexEntry) bool {
		for _, id := range sortedIds(e.ids) {
			out = append(out, IndexPair{Key: e.key, Id: id})
		}
		return true
	})
	return out
}

// KeyCount returns the number of distinct composite key values.
func (idx *Index) KeyCount() int { return idx.entries.Len() }

// EntryCount returns the total number of document references held by
// the index, across all keys.
func (idx *Index) EntryCount() int {
	total := 0
	idx.entries.Scan(func(e indexEntry) bool {
		total += len(e.ids)
		return true
	})
	return total
}

// copy returns a structurally-shared clone suitable for a
// transaction's working snapshot.
func (idx *Index) copy() *Index {
	return &Index{def: idx.def, entries: idx.entries.Copy()}
}
