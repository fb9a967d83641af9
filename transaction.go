/*
Package coredb – Transaction type: optimistic, snapshot-isolated
batches of operations against a Database.
*/
package coredb

// Transaction is a snapshot-isolated working copy of a Database's
// tables and indexes, taken at Begin time. Reads and writes against a
// Transaction never affect the originating Database until Commit
// succeeds; Commit fails with a transaction-conflict error if any key
// the transaction read or wrote has been written by someone else
// since the transaction began.
type Transaction struct {
	db           *Database
	tables       map[string]*Table
	indexes      map[string]*IndexRegistry
	schema       *SchemaDefinition
	beginVersion uint64
	readSet      map[docKey]struct{}
	writeSet     map[docKey]struct{}
	done         bool
}

// Begin opens a new transaction against a structurally-shared
// snapshot of the database's current state.
func (db *Database) Begin() *Transaction {
	tables := make(map[string]*Table, len(db.tables))
	for name, t := range db.tables {
		tables[name] = t.copy()
	}
	indexes := make(map[string]*IndexRegistry, len(db.indexes))
	for name, reg := range db.indexes {
		indexes[name] = reg.copy()
	}
	return &Transaction{
		db:           db,
		tables:       tables,
		indexes:      indexes,
		schema:       db.schema,
		beginVersion: db.version,
		readSet:      make(map[docKey]struct{}),
		writeSet:     make(map[docKey]struct{}),
	}
}

// Commit validates that nothing the transaction read or wrote has
// changed in the database since Begin, then atomically installs the
// transaction's working tables and indexes as the database's new
// state. A committed or already-failed transaction cannot be reused.
func (db *Database) Commit(tx *Transaction) error {
	if tx.db != db {
		return errTransactionConflict("transaction does not belong to this database")
	}
	if tx.done {
		return errTransactionConflict("transaction already committed")
	}
	for key := range tx.readSet {
		if v, ok := db.writeVersions[key]; ok && v > tx.beginVersion {
			return errTransactionConflict("read set key modified since transaction began")
		}
	}
	for key := range tx.writeSet {
		if v, ok := db.writeVersions[key]; ok && v > tx.beginVersion {
			return errTransactionConflict("write set key modified since transaction began")
		}
	}

	db.tables = tx.tables
	db.indexes = tx.indexes
	db.schema = tx.schema
	db.version++
	for key := range tx.writeSet {
		db.writeVersions[key] = db.version
	}
	tx.done = true
	logTrace(db.log, "commit", map[string]any{"version": db.version})
	return nil
}

func (tx *Transaction) table(name string) (*Table, error) {
	t, exists := tx.tables[name]
	if !exists {
		return nil, errTableNotFound(name)
	}
	return t, nil
}

func (tx *Transaction) registry(name string) *IndexRegistry {
	reg, exists := tx.indexes[name]
	if !exists {
		reg = NewIndexRegistry()
		tx.indexes[name] = reg
	}
	return reg
}

func (tx *Transaction) validate(table string, fields map[string]Value) error {
	if tx.schema == nil {
		return nil
	}
	if err := tx.schema.ValidateTable(table, fields); err != nil {
		return errSchemaViolation(table, err.Error())
	}
	return nil
}

// CreateTable creates a new, empty table within the transaction's
// working snapshot. A no-op if the table already exists.
func (tx *Transaction) CreateTable(name string) {
	if _, exists := tx.tables[name]; exists {
		return
	}
	tx.tables[name] = NewTable(name)
	tx.indexes[name] = NewIndexRegistry()
}

// CreateIndex registers and back-fills a secondary index within the
// transaction's working snapshot.
func (tx *Transaction) CreateIndex(def IndexDefinition) error {
	tbl, err := tx.table(def.Table)
	if err != nil {
		return err
	}
	reg := tx.registry(def.Table)
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

// QueryIndex looks up documents by equality against a secondary
// index's composite key within the transaction's working snapshot,
// recording every matched key in the read set.
func (tx *Transaction) QueryIndex(table, indexName string, values []Value) ([]*Document, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	idx, err := tx.registry(table).GetIndex(indexName)
	if err != nil {
		return nil, err
	}
	ids := idx.Lookup(values)
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := tbl.Get(id)
		if err != nil {
			return nil, err
		}
		tx.readSet[docKey{table: table, id: id}] = struct{}{}
		docs = append(docs, doc)
	}
	return docs, nil
}

// QueryIndexRange looks up documents in a half-open key range within
// the transaction's working snapshot, recording every matched key in
// the read set.
func (tx *Transaction) QueryIndexRange(table, indexName string, lower, upper []Value) ([]*Document, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	idx, err := tx.registry(table).GetIndex(indexName)
	if err != nil {
		return nil, err
	}
	ids := idx.Range(lower, upper)
	docs := make([]*Document, 0, len(ids))
	for _, id := range ids {
		doc, err := tbl.Get(id)
		if err != nil {
			return nil, err
		}
		tx.readSet[docKey{table: table, id: id}] = struct{}{}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Insert validates and inserts a new document into the transaction's
// working snapshot, recording the new key in the write set.
func (tx *Transaction) Insert(table string, fields map[string]Value) (DocumentId, error) {
	if err := tx.validate(table, fields); err != nil {
		return DocumentId{}, err
	}
	tbl, err := tx.table(table)
	if err != nil {
		return DocumentId{}, err
	}
	id := tx.db.idgen.NewId(table)
	doc := NewDocument(id, tx.db.clock.NowMillis(), fields)
	if err := tbl.Insert(doc); err != nil {
		return DocumentId{}, err
	}
	tx.registry(table).OnInsert(id.Id, doc.Fields())
	tx.writeSet[docKey{table: table, id: id.Id}] = struct{}{}
	return id, nil
}

// InsertWithId inserts a document under a caller-chosen id into the
// transaction's working snapshot.
func (tx *Transaction) InsertWithId(id DocumentId, fields map[string]Value) error {
	if err := tx.validate(id.Table, fields); err != nil {
		return err
	}
	tbl, err := tx.table(id.Table)
	if err != nil {
		return err
	}
	doc := NewDocument(id, tx.db.clock.NowMillis(), fields)
	if err := tbl.Insert(doc); err != nil {
		return err
	}
	tx.registry(id.Table).OnInsert(id.Id, doc.Fields())
	tx.writeSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	return nil
}

// Get looks up a document within the transaction's working snapshot,
// recording the key in the read set.
func (tx *Transaction) Get(id DocumentId) (*Document, error) {
	tbl, err := tx.table(id.Table)
	if err != nil {
		return nil, err
	}
	doc, err := tbl.Get(id.Id)
	if err != nil {
		return nil, err
	}
	tx.readSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	return doc, nil
}

// Replace overwrites an existing document's user fields within the
// transaction's working snapshot.
func (tx *Transaction) Replace(id DocumentId, fields map[string]Value) error {
	if err := tx.validate(id.Table, fields); err != nil {
		return err
	}
	tbl, err := tx.table(id.Table)
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
	tx.registry(id.Table).OnUpdate(id.Id, oldFields, next.Fields())
	tx.readSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	tx.writeSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	return nil
}

// Patch merges fields into an existing document within the
// transaction's working snapshot, then re-validates the merged
// document. As with Database.Patch, a re-validation failure does not
// roll back the merge already applied to the working snapshot.
func (tx *Transaction) Patch(id DocumentId, fields map[string]Value) error {
	tbl, err := tx.table(id.Table)
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
	tx.registry(id.Table).OnUpdate(id.Id, oldFields, newFields)
	tx.readSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	tx.writeSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	return tx.validate(id.Table, newFields)
}

// Delete removes a document within the transaction's working
// snapshot.
func (tx *Transaction) Delete(id DocumentId) (*Document, error) {
	tbl, err := tx.table(id.Table)
	if err != nil {
		return nil, err
	}
	doc, err := tbl.Delete(id.Id)
	if err != nil {
		return nil, err
	}
	tx.registry(id.Table).OnRemove(id.Id, doc.Fields())
	tx.readSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	tx.writeSet[docKey{table: id.Table, id: id.Id}] = struct{}{}
	return doc, nil
}

// List collects every document in a table within the transaction's
// working snapshot, in id order, recording each document's key in the
// read set.
func (tx *Transaction) List(table string) ([]*Document, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return nil, err
	}
	docs := tbl.List()
	for _, doc := range docs {
		tx.readSet[docKey{table: table, id: doc.Id().Id}] = struct{}{}
	}
	return docs, nil
}

// Count returns the number of documents in a table within the
// transaction's working snapshot.
func (tx *Transaction) Count(table string) (int, error) {
	tbl, err := tx.table(table)
	if err != nil {
		return 0, err
	}
	return tbl.Len(), nil
}
