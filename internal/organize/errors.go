package organize

// ErrorCode categorizes organizer failures. All of them are fatal.
type ErrorCode string

const (
	DuplicateCode    ErrorCode = "DuplicateCode"
	DuplicateMethod  ErrorCode = "DuplicateMethod"
	DuplicateService ErrorCode = "DuplicateService"
)

// OrganizerError reports an irreconcilable conflict between methods.
type OrganizerError struct {
	Code    ErrorCode
	Message string
}

func (e *OrganizerError) Error() string { return e.Message }
