package coredb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_RequiredFieldMissing(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"name": Required(StringType()),
	}))
	err := def.ValidateTable("users", map[string]Value{})
	require.Error(t, err)
}

func TestSchema_OptionalFieldMayBeAbsent(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"nickname": OptionalField(StringType()),
	}))
	assert.NoError(t, def.ValidateTable("users", map[string]Value{}))
}

func TestSchema_StrictRejectsUnknownField(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"name": Required(StringType()),
	}))
	err := def.ValidateTable("users", map[string]Value{
		"name":    Str("a"),
		"surplus": Str("nope"),
	})
	require.Error(t, err)
}

func TestSchema_PermissiveAllowsUnknownField(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", PermissiveSchema(map[string]FieldDefinition{
		"name": Required(StringType()),
	}))
	err := def.ValidateTable("users", map[string]Value{
		"name":    Str("a"),
		"surplus": Str("fine"),
	})
	assert.NoError(t, err)
}

func TestSchema_TypeMismatch(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"age": Required(NumberType()),
	}))
	err := def.ValidateTable("users", map[string]Value{"age": Str("old")})
	require.Error(t, err)
}

func TestSchema_NestedObjectIsAlwaysPermissive(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"profile": Required(ObjectType(map[string]FieldDefinition{
			"bio": Required(StringType()),
		})),
	}))
	err := def.ValidateTable("users", map[string]Value{
		"profile": Obj(map[string]Value{
			"bio":   Str("hi"),
			"extra": Str("allowed"),
		}),
	})
	assert.NoError(t, err)
}

func TestSchema_ArrayElementType(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"tags": Required(ArrayType(StringType())),
	}))
	assert.NoError(t, def.ValidateTable("users", map[string]Value{
		"tags": Arr(Str("a"), Str("b")),
	}))
	err := def.ValidateTable("users", map[string]Value{
		"tags": Arr(Str("a"), Int64(1)),
	})
	require.Error(t, err)
}

func TestSchema_Union(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", StrictSchema(map[string]FieldDefinition{
		"status": Required(UnionType(LiteralStringType("active"), LiteralStringType("inactive"))),
	}))
	assert.NoError(t, def.ValidateTable("users", map[string]Value{"status": Str("active")}))
	err := def.ValidateTable("users", map[string]Value{"status": Str("deleted")})
	require.Error(t, err)
}

func TestSchema_IdReference(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("posts", StrictSchema(map[string]FieldDefinition{
		"author": Required(IdType("users")),
	}))
	assert.NoError(t, def.ValidateTable("posts", map[string]Value{"author": Str("users:abc")}))
	err := def.ValidateTable("posts", map[string]Value{"author": Str("posts:abc")})
	require.Error(t, err)
}

func TestSchema_UnregisteredTableIsUnvalidated(t *testing.T) {
	def := NewSchemaDefinition()
	assert.NoError(t, def.ValidateTable("anything", map[string]Value{"whatever": Str("goes")}))
}

func TestSchema_FieldNamesCannotStartWithUnderscore(t *testing.T) {
	def := NewSchemaDefinition()
	def.DefineTable("users", PermissiveSchema(map[string]FieldDefinition{}))
	err := def.ValidateTable("users", map[string]Value{"_bad": Str("x")})
	require.Error(t, err)
}
