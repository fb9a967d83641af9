/*
Package coredb – recursive schema validation.
*/
package coredb

import (
	"fmt"
	"math"
	"strings"
)

// literalNumberEpsilon is the tolerance used when comparing a value
// against a LiteralNumber field type, since float round-tripping
// through JSON can perturb the low bits.
const literalNumberEpsilon = 1e-9

// FieldKind identifies which shape a FieldType describes.
type FieldKind int

const (
	FieldAny FieldKind = iota
	FieldNull
	FieldString
	FieldNumber
	FieldBoolean
	FieldBytesType
	FieldIdRef
	FieldArrayType
	FieldObjectType
	FieldUnion
	FieldLiteralString
	FieldLiteralNumber
	FieldLiteralBool
)

var fieldKindNames = map[FieldKind]string{
	FieldAny:           "any",
	FieldNull:          "null",
	FieldString:        "string",
	FieldNumber:        "number",
	FieldBoolean:       "boolean",
	FieldBytesType:     "bytes",
	FieldIdRef:         "id",
	FieldArrayType:     "array",
	FieldObjectType:    "object",
	FieldUnion:         "union",
	FieldLiteralString: "literal_string",
	FieldLiteralNumber: "literal_number",
	FieldLiteralBool:   "literal_bool",
}

func (k FieldKind) String() string { return fieldKindNames[k] }

// FieldType describes the expected shape of a document field:
// primitives, nested objects, arrays with an element type, Id
// references to another table, unions, and literal constants.
type FieldType struct {
	kind    FieldKind
	idTable string
	elem    *FieldType
	object  map[string]FieldDefinition
	union   []FieldType
	litStr  string
	litNum  float64
	litBool bool
}

func AnyType() FieldType     { return FieldType{kind: FieldAny} }
func NullType() FieldType    { return FieldType{kind: FieldNull} }
func StringType() FieldType  { return FieldType{kind: FieldString} }
func NumberType() FieldType  { return FieldType{kind: FieldNumber} }
func BooleanType() FieldType { return FieldType{kind: FieldBoolean} }
func BytesType() FieldType   { return FieldType{kind: FieldBytesType} }

// IdType references documents in the named table.
func IdType(table string) FieldType { return FieldType{kind: FieldIdRef, idTable: table} }

// ArrayType describes an array whose elements all match elem.
func ArrayType(elem FieldType) FieldType { return FieldType{kind: FieldArrayType, elem: &elem} }

// ObjectType describes a nested object with its own field definitions.
// Nested objects are always permissive of extra fields, regardless of
// the enclosing table schema's strictness.
func ObjectType(fields map[string]FieldDefinition) FieldType {
	return FieldType{kind: FieldObjectType, object: fields}
}

// UnionType accepts a value matching any one of the given variants.
func UnionType(variants ...FieldType) FieldType {
	return FieldType{kind: FieldUnion, union: variants}
}

func LiteralStringType(s string) FieldType { return FieldType{kind: FieldLiteralString, litStr: s} }
func LiteralNumberType(n float64) FieldType {
	return FieldType{kind: FieldLiteralNumber, litNum: n}
}
func LiteralBoolType(b bool) FieldType { return FieldType{kind: FieldLiteralBool, litBool: b} }

// FieldDefinition pairs a FieldType with whether the field may be
// omitted from a document.
type FieldDefinition struct {
	Type     FieldType
	Optional bool
}

// Required builds a mandatory field definition.
func Required(t FieldType) FieldDefinition { return FieldDefinition{Type: t} }

// OptionalField builds a field definition that may be absent.
func OptionalField(t FieldType) FieldDefinition { return FieldDefinition{Type: t, Optional: true} }

// TableSchema defines the expected shape of documents in one table.
// Only user fields are listed — the system fields (_id,
// _creationTime) are implicit and never appear here.
type TableSchema struct {
	Fields map[string]FieldDefinition
	Strict bool
}

// StrictSchema rejects documents carrying fields not listed here.
func StrictSchema(fields map[string]FieldDefinition) TableSchema {
	return TableSchema{Fields: fields, Strict: true}
}

// PermissiveSchema allows documents to carry extra, unlisted fields.
func PermissiveSchema(fields map[string]FieldDefinition) TableSchema {
	return TableSchema{Fields: fields, Strict: false}
}

// SchemaDefinition maps table names to their TableSchema. A table with
// no entry here is unvalidated: any document shape is accepted.
type SchemaDefinition struct {
	Tables map[string]TableSchema
}

// NewSchemaDefinition returns an empty schema definition.
func NewSchemaDefinition() *SchemaDefinition {
	return &SchemaDefinition{Tables: make(map[string]TableSchema)}
}

// DefineTable registers (or replaces) the schema for a table.
func (s *SchemaDefinition) DefineTable(name string, schema TableSchema) {
	s.Tables[name] = schema
}

// GetTableSchema looks up a table's schema.
func (s *SchemaDefinition) GetTableSchema(table string) (TableSchema, bool) {
	schema, ok := s.Tables[table]
	return schema, ok
}

// ValidateTable validates a field set against a named table's schema
// without requiring an insert or replace to be in flight — useful for
// tooling built on top of the database. Tables with no registered
// schema are considered valid (schema is opt-in per table).
func (s *SchemaDefinition) ValidateTable(table string, fields map[string]Value) error {
	schema, ok := s.GetTableSchema(table)
	if !ok {
		return nil
	}
	return validateDocument(fields, schema)
}

// validateDocument checks a field set against a table schema,
// returning a descriptive error on the first violation found.
func validateDocument(fields map[string]Value, schema TableSchema) error {
	for name, def := range schema.Fields {
		if !def.Optional {
			if _, ok := fields[name]; !ok {
				return fmt.Errorf("missing required field: `%s`", name)
			}
		}
	}

	for name, value := range fields {
		if strings.HasPrefix(name, "_") {
			return fmt.Errorf("field names cannot start with underscore: `%s`", name)
		}

		def, known := schema.Fields[name]
		switch {
		case known:
			if err := validateValue(value, def.Type, name); err != nil {
				return err
			}
		case schema.Strict:
			return fmt.Errorf("unknown field `%s` in strict schema", name)
		}
	}
	return nil
}

// validateValue recursively checks a single value against a field
// type. Nested objects are always validated permissively: only the
// enclosing TableSchema's Strict flag can reject unknown fields.
func validateValue(value Value, expected FieldType, path string) error {
	switch expected.kind {
	case FieldAny:
		return nil
	case FieldNull:
		if value.Kind() != KindNull {
			return typeError(path, "null", value)
		}
		return nil
	case FieldString:
		if value.Kind() != KindString {
			return typeError(path, "string", value)
		}
		return nil
	case FieldNumber:
		if value.Kind() != KindNumber {
			return typeError(path, "number", value)
		}
		return nil
	case FieldBoolean:
		if value.Kind() != KindBoolean {
			return typeError(path, "boolean", value)
		}
		return nil
	case FieldBytesType:
		if value.Kind() != KindBytes {
			return typeError(path, "bytes", value)
		}
		return nil
	case FieldIdRef:
		s, ok := value.AsString()
		if !ok {
			return typeError(path, fmt.Sprintf("Id<%s>", expected.idTable), value)
		}
		if !strings.HasPrefix(s, expected.idTable+":") {
			return fmt.Errorf("field `%s`: expected Id reference to table `%s`, got different reference", path, expected.idTable)
		}
		return nil
	case FieldArrayType:
		items, ok := value.AsArray()
		if !ok {
			return typeError(path, "array", value)
		}
		for i, item := range items {
			if err := validateValue(item, *expected.elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case FieldObjectType:
		obj, ok := value.AsObject()
		if !ok {
			return typeError(path, "object", value)
		}
		for key, def := range expected.object {
			if !def.Optional {
				if _, ok := obj[key]; !ok {
					return fmt.Errorf("field `%s.%s`: required but missing", path, key)
				}
			}
		}
		for key, val := range obj {
			if def, known := expected.object[key]; known {
				if err := validateValue(val, def.Type, fmt.Sprintf("%s.%s", path, key)); err != nil {
					return err
				}
			}
			// nested objects are always permissive of extra fields
		}
		return nil
	case FieldUnion:
		names := make([]string, len(expected.union))
		for i, variant := range expected.union {
			names[i] = variant.kind.String()
			if validateValue(value, variant, path) == nil {
				return nil
			}
		}
		return fmt.Errorf("field `%s`: expected one of [%s], got %s", path, strings.Join(names, ", "), value.TypeName())
	case FieldLiteralString:
		s, ok := value.AsString()
		if !ok {
			return typeError(path, fmt.Sprintf("literal %q", expected.litStr), value)
		}
		if s != expected.litStr {
			return fmt.Errorf("field `%s`: expected literal %q, got %q", path, expected.litStr, s)
		}
		return nil
	case FieldLiteralNumber:
		f, ok := value.AsFloat64()
		if !ok || math.Abs(f-expected.litNum) > literalNumberEpsilon {
			return typeError(path, fmt.Sprintf("literal %g", expected.litNum), value)
		}
		return nil
	case FieldLiteralBool:
		b, ok := value.AsBool()
		if !ok || b != expected.litBool {
			return typeError(path, fmt.Sprintf("literal %t", expected.litBool), value)
		}
		return nil
	}
	return nil
}

func typeError(path, expected string, got Value) error {
	return fmt.Errorf("field `%s`: expected %s, got %s", path, expected, got.TypeName())
}
