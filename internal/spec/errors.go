package spec

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError    ErrorCode = "InputError"
	InvalidJSON   ErrorCode = "InvalidJSON"
	MissingField  ErrorCode = "MissingField"
	UnresolvedRef ErrorCode = "UnresolvedRef"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path
	JSONPointer string // e.g. "#/methods/2/params/0"
	Cause       error
}

func (e *SpecError) Error() string {
	if e.JSONPointer == "" {
		return e.Message
	}
	return e.Message + " at " + e.JSONPointer
}

func (e *SpecError) Unwrap() error { return e.Cause }
