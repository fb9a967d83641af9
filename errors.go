/*
Package coredb – error types.
*/
package coredb

import "fmt"

// ErrorCode is a well-known error category string.
type ErrorCode string

const (
	ErrTableNotFound       ErrorCode = "TableNotFound"
	ErrDocumentNotFound    ErrorCode = "DocumentNotFound"
	ErrDuplicateDocument   ErrorCode = "DuplicateDocument"
	ErrSchemaViolation     ErrorCode = "SchemaViolation"
	ErrInvalidFieldName    ErrorCode = "InvalidFieldName"
	ErrTransactionConflict ErrorCode = "TransactionConflict"
	ErrIndex               ErrorCode = "IndexError"
)

// CoreError is the error type returned by the Database, Transaction,
// Table, Document and IndexRegistry operations in this package;
// SchemaDefinition.ValidateTable and the JSON helpers return plain
// errors. It carries an optional Code and a free-form Context
// map for extra debugging data; Cause wraps an underlying error when
// one exists.
type CoreError struct {
	Message string
	Code    ErrorCode
	Context map[string]any
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NewError constructs a CoreError.
func NewError(msg string, opts ...func(*CoreError)) *CoreError {
	err := &CoreError{Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithCode sets the error code.
func WithCode(c ErrorCode) func(*CoreError) {
	return func(e *CoreError) { e.Code = c }
}

// WithContext attaches a context map.
func WithContext(ctx map[string]any) func(*CoreError) {
	return func(e *CoreError) { e.Context = ctx }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*CoreError) {
	return func(e *CoreError) { e.Cause = cause }
}

func errTableNotFound(table string) error {
	return NewError(fmt.Sprintf("table not found: %s", table),
		WithCode(ErrTableNotFound), WithContext(map[string]any{"table": table}))
}

func errDocumentNotFound(id DocumentId) error {
	return NewError(fmt.Sprintf("document not found: %s", id),
		WithCode(ErrDocumentNotFound), WithContext(map[string]any{"id": id.String()}))
}

func errDuplicateDocument(id DocumentId) error {
	return NewError(fmt.Sprintf("document already exists: %s", id),
		WithCode(ErrDuplicateDocument), WithContext(map[string]any{"id": id.String()}))
}

func errSchemaViolation(table, message string) error {
	return NewError(fmt.Sprintf("%s: %s", table, message),
		WithCode(ErrSchemaViolation), WithContext(map[string]any{"table": table}))
}

func errInvalidFieldName(name string) error {
	return NewError(fmt.Sprintf("invalid field name: %s", name),
		WithCode(ErrInvalidFieldName), WithContext(map[string]any{"field": name}))
}

func errTransactionConflict(reason string) error {
	return NewError(reason, WithCode(ErrTransactionConflict))
}

func errIndexExists(name string) error {
	return NewError(fmt.Sprintf("index already exists: %s", name),
		WithCode(ErrIndex), WithContext(map[string]any{"index": name}))
}

func errIndexNotFound(name string) error {
	return NewError(fmt.Sprintf("index not found: %s", name),
		WithCode(ErrIndex), WithContext(map[string]any{"index": name}))
}
