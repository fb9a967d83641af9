package coredb

import (
	"github.com/google/uuid"

	"github.com/arborlabs/coredb/internal/uid"
)

// IDGenerator produces a new, table-unique local id for DocumentId
// allocation. Implementations must be non-blocking and must not
// return the same id twice for the same table.
type IDGenerator interface {
	NewId(table string) DocumentId
}

// UUIDv7Generator is the default IDGenerator: time-ordered UUIDv7
// strings, so ids sort roughly by creation order even though the
// table's primary ordering is lexicographic on the id string.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewId(table string) DocumentId {
	id, err := uuid.NewV7()
	if err != nil {
		// crypto/rand failure; uuid.NewV7 only errors if the entropy
		// source is broken, which we treat as unrecoverable here.
		panic("coredb: uuid.NewV7: " + err.Error())
	}
	return NewDocumentId(table, id.String())
}

// ULIDGenerator is an alternate IDGenerator built on the package's
// own Crockford-base32 ULID encoder, for callers that want
// lexicographically sortable, millisecond-precision ids without
// pulling in UUID parsing.
type ULIDGenerator struct{}

func (ULIDGenerator) NewId(table string) DocumentId {
	return NewDocumentId(table, uid.New().String())
}
