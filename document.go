package coredb

import (
	"fmt"
	"strings"
)

// DocumentId identifies a document within a table: a table name paired
// with a locally-unique id string. Ordered first by table, then by id,
// so documents from different tables never interleave under the total
// order.
type DocumentId struct {
	Table string
	Id    string
}

// NewDocumentId builds a DocumentId from an explicit table and id.
func NewDocumentId(table, id string) DocumentId {
	return DocumentId{Table: table, Id: id}
}

// String renders the canonical "table:id" form used both for display
// and as the encoding of an Id(table) field reference.
func (d DocumentId) String() string { return fmt.Sprintf("%s:%s", d.Table, d.Id) }

// Compare orders DocumentIds by table, then by local id.
func (d DocumentId) Compare(other DocumentId) int {
	if c := cmpString(d.Table, other.Table); c != 0 {
		return c
	}
	return cmpString(d.Id, other.Id)
}

// systemFieldId and systemFieldCreationTime are the implicit fields
// every document carries; user field names may never begin with '_'.
const (
	systemFieldId           = "_id"
	systemFieldCreationTime = "_creationTime"
)

// Document is a single record: an id, a creation timestamp (epoch
// milliseconds, matching the Float64 representation JSON clients
// expect), and a map of user-defined fields. Field names starting
// with '_' are reserved for system fields: Set rejects them, while
// NewDocument and ReplaceFields store the given map without checking.
type Document struct {
	id           DocumentId
	creationTime float64
	fields       map[string]Value
}

// NewDocument constructs a Document with an explicit creation time
// (epoch milliseconds). Callers that want "now" should source it from
// a TimeSource rather than calling time.Now directly, so tests stay
// deterministic.
func NewDocument(id DocumentId, creationTime float64, fields map[string]Value) *Document {
	return &Document{id: id, creationTime: creationTime, fields: cloneFields(fields)}
}

// NewDocumentNow constructs a Document stamped with the current
// wall-clock time.
func NewDocumentNow(id DocumentId, fields map[string]Value) *Document {
	return NewDocument(id, systemClock{}.NowMillis(), fields)
}

func cloneFields(fields map[string]Value) map[string]Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

func (d *Document) Id() DocumentId        { return d.id }
func (d *Document) CreationTime() float64 { return d.creationTime }

// Fields returns the document's user fields. The returned map must
// not be mutated by callers; use Set/Remove/ReplaceFields instead.
func (d *Document) Fields() map[string]Value { return d.fields }

// Get returns a field's value, or false if the field is absent.
func (d *Document) Get(field string) (Value, bool) {
	v, ok := d.fields[field]
	return v, ok
}

// Set assigns a user field. System field names are rejected.
func (d *Document) Set(field string, value Value) error {
	if strings.HasPrefix(field, "_") {
		return errInvalidFieldName(field)
	}
	d.fields[field] = value
	return nil
}

// Remove deletes a field, returning its previous value if present.
func (d *Document) Remove(field string) (Value, bool) {
	v, ok := d.fields[field]
	delete(d.fields, field)
	return v, ok
}

// ReplaceFields swaps out the entire user field set at once, used for
// full-document replacement.
func (d *Document) ReplaceFields(fields map[string]Value) {
	d.fields = cloneFields(fields)
}

// ToValue renders the document as an Object Value including its
// system fields, the representation callers see from Get/List/query
// results.
func (d *Document) ToValue() Value {
	fields := make(map[string]Value, len(d.fields)+2)
	fields[systemFieldId] = Str(d.id.String())
	fields[systemFieldCreationTime] = Float64(d.creationTime)
	for k, v := range d.fields {
		fields[k] = v
	}
	return Obj(fields)
}

// clone returns a deep-enough copy for snapshotting: the field map is
// copied so transaction working copies can mutate it independently of
// the committed document.
func (d *Document) clone() *Document {
	return &Document{id: d.id, creationTime: d.creationTime, fields: cloneFields(d.fields)}
}
