package coredb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(age int64) map[string]Value {
	return map[string]Value{"age": Int64(age)}
}

func TestIndex_InsertAndLookup(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(30))
	idx.Insert("2", fields(30))
	idx.Insert("3", fields(40))

	got := idx.Lookup([]Value{Int64(30)})
	assert.Equal(t, []string{"1", "2"}, got)

	got = idx.Lookup([]Value{Int64(99)})
	assert.Nil(t, got)
}

func TestIndex_MissingFieldIndexesAsNull(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", map[string]Value{})
	got := idx.Lookup([]Value{Null})
	assert.Equal(t, []string{"1"}, got)
}

func TestIndex_Remove(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(30))
	idx.Insert("2", fields(30))
	idx.Remove("1", fields(30))

	assert.Equal(t, []string{"2"}, idx.Lookup([]Value{Int64(30)}))
	assert.Equal(t, 1, idx.KeyCount())
}

func TestIndex_RemoveLastIdDropsKey(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(30))
	idx.Remove("1", fields(30))
	assert.Equal(t, 0, idx.KeyCount())
}

func TestIndex_Update(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(30))
	idx.Update("1", fields(30), fields(40))

	assert.Nil(t, idx.Lookup([]Value{Int64(30)}))
	assert.Equal(t, []string{"1"}, idx.Lookup([]Value{Int64(40)}))
}

func TestIndex_RangeHalfOpen(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(10))
	idx.Insert("2", fields(20))
	idx.Insert("3", fields(30))

	got := idx.Range([]Value{Int64(10)}, []Value{Int64(30)})
	assert.Equal(t, []string{"1", "2"}, got)

	got = idx.Range(nil, []Value{Int64(20)})
	assert.Equal(t, []string{"1"}, got)

	got = idx.Range([]Value{Int64(20)}, nil)
	assert.Equal(t, []string{"2", "3"}, got)
}

func TestIndex_ScanIsOrderedAndCounted(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("2", fields(30))
	idx.Insert("1", fields(30))
	idx.Insert("3", fields(10))

	pairs := idx.Scan()
	require.Len(t, pairs, 3)
	assert.Equal(t, "3", pairs[0].Id)
	assert.Equal(t, "1", pairs[1].Id)
	assert.Equal(t, "2", pairs[2].Id)

	assert.Equal(t, 2, idx.KeyCount())
	assert.Equal(t, 3, idx.EntryCount())
}

func TestIndex_CopyIsolatesMutations(t *testing.T) {
	idx := NewIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}})
	idx.Insert("1", fields(30))

	snapshot := idx.copy()
	idx.Insert("2", fields(30))

	assert.Equal(t, []string{"1"}, snapshot.Lookup([]Value{Int64(30)}))
	assert.Equal(t, []string{"1", "2"}, idx.Lookup([]Value{Int64(30)}))
}

func TestIndexRegistry_FanOut(t *testing.T) {
	reg := NewIndexRegistry()
	require.NoError(t, reg.AddIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}}))

	reg.OnInsert("1", fields(30))
	idx, err := reg.GetIndex("by_age")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, idx.Lookup([]Value{Int64(30)}))

	reg.OnUpdate("1", fields(30), fields(40))
	assert.Nil(t, idx.Lookup([]Value{Int64(30)}))
	assert.Equal(t, []string{"1"}, idx.Lookup([]Value{Int64(40)}))

	reg.OnRemove("1", fields(40))
	assert.Equal(t, 0, idx.KeyCount())
}

func TestIndexRegistry_DuplicateNameFails(t *testing.T) {
	reg := NewIndexRegistry()
	def := IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}}
	require.NoError(t, reg.AddIndex(def))
	err := reg.AddIndex(def)
	require.Error(t, err)
}

func TestIndexRegistry_RebuildAll(t *testing.T) {
	reg := NewIndexRegistry()
	require.NoError(t, reg.AddIndex(IndexDefinition{Name: "by_age", Table: "users", Fields: []string{"age"}}))
	reg.RebuildAll([]docFields{
		{id: "1", fields: fields(30)},
		{id: "2", fields: fields(40)},
	})
	idx, err := reg.GetIndex("by_age")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.KeyCount())
}
