package typegen

import "fmt"

// ErrorCode categorizes converter diagnostics. None of them is fatal.
type ErrorCode string

const (
	UnsupportedKeyword ErrorCode = "UnsupportedKeyword"
	AnonymousObject    ErrorCode = "AnonymousObject"
	UnresolvedRef      ErrorCode = "UnresolvedRef"
	RecursiveRef       ErrorCode = "RecursiveRef"
)

// SchemaError is a diagnostic raised while converting a schema. Type is the
// name of the type being produced when the problem was found, if any.
type SchemaError struct {
	Code   ErrorCode
	Type   string
	Detail string
}

func (e SchemaError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Type, e.Detail)
}
