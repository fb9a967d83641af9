/*
Package coredb – Database type.
*/
package coredb

import "sort"

// docKey identifies one document for write-version tracking and
// transaction read/write sets.
type docKey struct {
	table string
	id    string
}

// DatabaseOptions configures a Database at construction time.
type DatabaseOptions struct {
	IDGenerator IDGenerator
	TimeSource  TimeSource
	Logger      Logger
}

// Option mutates DatabaseOptions; see WithIDGenerator, WithTimeSource,
// WithLogger.
type Option func(*DatabaseOptions)

func WithIDGenerator(g IDGenerator) Option {
	return func(o *DatabaseOptions) { o.IDGenerator = g }
}

func WithTimeSource(t TimeSource) Option {
	return func(o *DatabaseOptions) { o.TimeSource = t }
}

func WithLogger(l Logger) Option {
	return func(o *DatabaseOptions) { o.Logger = l }
}

// Database is the top-level engine: named tables, a per-table
// IndexRegistry, an optional schema, and a monotonic version counter
// used for optimistic transaction conflict detection.
//
// A Database is exclusively owned by its caller; concurrent use from
// multiple goroutines requires external synchronization.
type Database struct {
	tables        map[string]*Table
	indexes       map[string]*IndexRegistry
	schema        *SchemaDefinition
	version       uint64
	writeVersions map[docKey]uint64
	idgen         IDGenerator
	clock         TimeSource
	log           Logger
}

// NewDatabase constructs an empty Database. Defaults: UUIDv7Generator
// for ids, the system clock for timestamps, and a Logger that writes
// Info/Error through the standard log package.
func NewDatabase(opts ...Option) *Database {
	o := DatabaseOptions{
		IDGenerator: UUIDv7Generator{},
		TimeSource:  systemClock{},
		Logger:      defaultLogger{},
	}
	for _, apply := range opts {
		apply(&o)
	}
	return &Database{
		tables:        make(map[string]*Table),
		indexes:       make(map[string]*IndexRegistry),
		writeVersions: make(map[docKey]uint64),
		idgen:         o.IDGenerator,
		clock:         o.TimeSource,
		log:           o.Logger,
	}
}

// CreateTable creates a new, empty table. A no-op if the table
// already exists.
func (db *Database) CreateTable(name string) {
	if _, exists := db.tables[name]; exists {
		return
	}
	db.tables[name] = NewTable(name)
	db.indexes[name] = NewIndexRegistry()
}

// TableExists reports whether a table has been created.
func (db *Database) TableExists(name string) bool {
	_, exists := db.tables[name]
	return exists
}

// ListTableNames lists every table name, sorted for deterministic
// output.
func (db *Database) ListTableNames() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetSchema installs a schema definition, enabling validation for any
// table it names.
func (db *Database) SetSchema(def *SchemaDefinition) { db.schema = def }

// ClearSchema removes the installed schema; subsequent writes are
// unvalidated.
func (db *Database) ClearSchema() { db.schema = nil }

// Schema returns the currently installed schema, or nil if none.
func (db *Database) Schema() *SchemaDefinition { return db.schema }

// Version returns the monotonic version counter.
func (db *Database) Version() uint64 { return db.version }

func (db *Database) table(name string) (*Table, error) {
	t, exists := db.tables[name]
	if !exists {
		return nil, errTableNotFound(name)
	}
	return t, nil
}

func (db *Database) registry(name string) *IndexRegistry {
	reg, exists := db.indexes[name]
	if !exists {
		reg = NewIndexRegistry()
		db.indexes[name] = reg
	}
	return reg
}

// bump advances the version counter and records it as the last-write
// version for key, the mechanism conflict detection consults at
// commit time.
func (db *Database) bump(key docKey) uint64 {
	db.version++
	db.writeVersions[key] = db.version
	return db.version
}

func (db *Database) validate(table string, fields map[string]Value) error {
	if db.schema == nil {
		return nil
	}
	if err := db.schema.ValidateTable(table, fields); err != nil {
		return errSchemaViolation(table, err.Error())
	}
	return nil
}

// CreateIndex registers a new secondary index and back-fills it from
// the table's current contents. The table must already exist.
func (db *Database) CreateIndex(def IndexDefinition) error {
	tbl, err := db.table(def.Table)
	if err != nil {
		return err
	}
	reg := db.registry(def.Table)
	if err := reg.AddIndex(def); err != nil {
		return err
	}
	idx, err := reg.GetIndex(def.Name)
	if err != nil {
		return err
	}
	for _, doc := range tbl.List() {
		idx.Insert(doc.Id().Id, doc.Fields())
	}
	return nil
}

// RemoveIndex drops a secondary index by name.
func (db *Database) RemoveIndex(table, name string) error {
	return db.registry(table).RemoveIndex(name)
}

// QueryIndex looks up documents by equality against a secondary
// index's composite key.
func (db *Database) QueryIndex(table, indexName string, values []Value) ([]*Document, error) {
	tbl, err := db.table(table)
	if err != nil {
		return nil, err
	}
	idx, err := db.registry(table).GetIndex(indexName)
	if err != nil {
		return nil, err
	}
	return resolveIds(tbl, idx.Lookup(values))
}

// QueryIndexRange looks up documents whose indexed key falls in the
// half-open range [lower, upper); either bound may be nil for
// unbounded.
func (db *Database) QueryIndexRange(table, indexName string, lower, upper []Value) ([]*Document, error) {
	tbl, err := db.table(table)
	if err != nil {
		return nil, err
	}
	idx, err := db.registry(table).GetIndex(indexName)
	if err != nil {
		return nil, err
	}
	return resolveIds(tbl, idx.Range(lower, upper))
}

func resolveIds(tbl *Table, ids []string) ([]*Document, error) {
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := tbl.Get(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Insert validates fields (if a schema is set for the table),
// allocates a new DocumentId, stamps the creation time, inserts the
// document, and maintains indexes. Returns the new id.
func (db *Database) Insert(table string, fields map[string]Value) (DocumentId, error) {
	if err := db.validate(table, fields); err != nil {
		return DocumentId{}, err
	}
	tbl, err := db.table(table)
	if err != nil {
		return DocumentId{}, err
	}
	id := db.idgen.NewId(table)
	doc := NewDocument(id, db.clock.NowMillis(), fields)
	if err := tbl.Insert(doc); err != nil {
		return DocumentId{}, err
	}
	db.registry(table).OnInsert(id.Id, doc.Fields())
	db.bump(docKey{table: table, id: id.Id})
	logTrace(db.log, "insert", map[string]any{"table": table, "id": id.String()})
	return id, nil
}

// InsertWithId inserts a document under a caller-chosen id.
func (db *Database) InsertWithId(id DocumentId, fields map[string]Value) error {
	if err := db.validate(id.Table, fields); err != nil {
		return err
	}
	tbl, err := db.table(id.Table)
	if err != nil {
		return err
	}
	doc := NewDocument(id, db.clock.NowMillis(), fields)
	if err := tbl.Insert(doc); err != nil {
		return err
	}
	db.registry(id.Table).OnInsert(id.Id, doc.Fields())
	db.bump(docKey{table: id.Table, id: id.Id})
	logTrace(db.log, "insert_with_id", map[string]any{"table": id.Table, "id": id.String()})
	return nil
}

// Get looks up a document by its full DocumentId.
func (db *Database) Get(id DocumentId) (*Document, error) {
	tbl, err := db.table(id.Table)
	if err != nil {
		return nil, err
	}
	return tbl.Get(id.Id)
}

// Replace validates and overwrites all user fields of an existing
// document, then updates indexes from the old/new field diff.
func (db *Database) Replace(id DocumentId, fields map[string]Value) error {
	if err := db.validate(id.Table, fields); err != nil {
		return err
	}
	tbl, err := db.table(id.Table)
	if err != nil {
		return err
	}
	old, err := tbl.Get(id.Id)
	if err != nil {
		return err
	}
	oldFields := old.Fields()
	if err := tbl.Replace(id.Id, fields); err != nil {
		return err
	}
	next, _ := tbl.Get(id.Id)
	db.registry(id.Table).OnUpdate(id.Id, oldFields, next.Fields())
	db.bump(docKey{table: id.Table, id: id.Id})
	logTrace(db.log, "replace", map[string]any{"table": id.Table, "id": id.String()})
	return nil
}

// Patch merges fields into an existing document, updates indexes,
// then re-validates the post-merge document against the schema. If
// re-validation fails the error is surfaced but the merge already
// applied is not rolled back (DESIGN.md, Open Question O2).
func (db *Database) Patch(id DocumentId, fields map[string]Value) error {
	tbl, err := db.table(id.Table)
	if err != nil {
		return err
	}
	old, err := tbl.Get(id.Id)
	if err != nil {
		return err
	}
	oldFields := old.Fields()
	if err := tbl.Patch(id.Id, fields); err != nil {
		return err
	}
	next, _ := tbl.Get(id.Id)
	newFields := next.Fields()
	db.registry(id.Table).OnUpdate(id.Id, oldFields, newFields)
	db.bump(docKey{table: id.Table, id: id.Id})
	logTrace(db.log, "patch", map[string]any{"table": id.Table, "id": id.String()})
	if err := db.validate(id.Table, newFields); err != nil {
		logErr(db.log, "patch re-validation failed", map[string]any{"table": id.Table, "id": id.String()})
		return err
	}
	return nil
}

// Delete removes a document and updates indexes.
func (db *Database) Delete(id DocumentId) (*Document, error) {
	tbl, err := db.table(id.Table)
	if err != nil {
		return nil, err
	}
	doc, err := tbl.Delete(id.Id)
	if err != nil {
		return nil, err
	}
	db.registry(id.Table).OnRemove(id.Id, doc.Fields())
	db.bump(docKey{table: id.Table, id: id.Id})
	logTrace(db.log, "delete", map[string]any{"table": id.Table, "id": id.String()})
	return doc, nil
}

// List collects every document in a table, in id order.
func (db *Database) List(table string) ([]*Document, error) {
	tbl, err := db.table(table)
	if err != nil {
		return nil, err
	}
	return tbl.List(), nil
}

// Count returns the number of documents in a table.
func (db *Database) Count(table string) (int, error) {
	tbl, err := db.table(table)
	if err != nil {
		return 0, err
	}
	return tbl.Len(), nil
}
