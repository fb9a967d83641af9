/*
Package coredb – Table type.
*/
package coredb

import (
	"sort"

	"github.com/tidwall/btree"
)

// tableEntry is one row of the ordered document store, keyed by local
// id so lookups, range scans, and ordered iteration all land on the
// same btree.
type tableEntry struct {
	id  string
	doc *Document
}

func tableEntryLess(a, b tableEntry) bool { return a.id < b.id }

// Table is a single table's document storage: an ordered, in-memory
// map from local document id to Document. Ordered storage keeps
// iteration deterministic and gives Database.Begin an O(1)
// structural-sharing snapshot via btree's Copy.
type Table struct {
	name string
	docs *btree.BTreeG[tableEntry]
}

// NewTable creates an empty table with the given name.
func NewTable(name string) *Table {
	return &Table{name: name, docs: btree.NewBTreeG(tableEntryLess)}
}

func (t *Table) Name() string  { return t.name }
func (t *Table) Len() int      { return t.docs.Len() }
func (t *Table) IsEmpty() bool { return t.docs.Len() == 0 }

// Insert adds a new document. Fails if a document with the same local
// id already exists.
func (t *Table) Insert(doc *Document) error {
	id := doc.Id().Id
	if _, found := t.docs.Get(tableEntry{id: id}); found {
		return errDuplicateDocument(doc.Id())
	}
	t.docs.Set(tableEntry{id: id, doc: doc})
	return nil
}

// Get looks up a document by its local id (not the full DocumentId).
func (t *Table) Get(id string) (*Document, error) {
	entry, found := t.docs.Get(tableEntry{id: id})
	if !found {
		return nil, errDocumentNotFound(NewDocumentId(t.name, id))
	}
	return entry.doc, nil
}

// Replace overwrites all user fields of an existing document,
// preserving its system fields (_id, _creationTime). The document is
// cloned before mutation so an in-flight transaction snapshot sharing
// the same btree nodes never sees the change.
func (t *Table) Replace(id string, fields map[string]Value) error {
	doc, err := t.Get(id)
	if err != nil {
		return err
	}
	next := doc.clone()
	next.ReplaceFields(fields)
	t.docs.Set(tableEntry{id: id, doc: next})
	return nil
}

// Patch merges the given fields into an existing document, leaving
// fields not mentioned untouched. Fields are applied one at a time;
// the first rejected field name (e.g. a system field) stops the merge
// without undoing fields already applied, and the partially-merged
// document is still stored.
func (t *Table) Patch(id string, fields map[string]Value) error {
	doc, err := t.Get(id)
	if err != nil {
		return err
	}
	next := doc.clone()
	t.docs.Set(tableEntry{id: id, doc: next})
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := next.Set(name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a document by id, returning the removed document.
func (t *Table) Delete(id string) (*Document, error) {
	entry, found := t.docs.Delete(tableEntry{id: id})
	if !found {
		return nil, errDocumentNotFound(NewDocumentId(t.name, id))
	}
	return entry.doc, nil
}

// List collects every document in id order.
func (t *Table) List() []*Document {
	out := make([]*Document, 0, t.docs.Len())
	t.docs.Scan(func(e tableEntry) bool {
		out = append(out, e.doc)
		return true
	})
	return out
}

// Contains reports whether a document with the given id exists.
func (t *Table) Contains(id string) bool {
	_, found := t.docs.Get(tableEntry{id: id})
	return found
}

// copy returns a structurally-shared clone of the table, the
// mechanism behind Database.Begin's working snapshot: cloning is
// O(1) up front, and only the btree nodes actually touched during the
// transaction get copied lazily.
func (t *Table) copy() *Table {
	return &Table{name: t.name, docs: t.docs.Copy()}
}
