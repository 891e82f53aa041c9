package apimodel

// Response codes carried in Envelope.Code.
const (
	CodeOK              = 2000
	CodeCreated         = 2010
	CodeInvalidPin      = 4001
	CodeInvalidRequest  = 4000
	CodeUnauthorized    = 4010
	CodeUserNotFound    = 4040
	CodeDuplicatePhone  = 4090
	CodeInternalFailure = 5000
)

// Envelope is the common response wrapper of every backend endpoint.
type Envelope[T any] struct {
	// IsSuccess is false for business failures even when the HTTP status is 200.
	IsSuccess bool `json:"isSuccess"`

	// Code is the backend specific result code.
	// Example: 4040 (user not found)
	Code int `json:"code"`

	// Message is displayable to the user as-is.
	// Example: "PIN does not match."
	Message string `json:"message"`

	// Result is only populated on success.
	Result *T `json:"result,omitempty"`
}

// OK builds a successful envelope.
func OK[T any](result T) Envelope[T] {
	return Envelope[T]{IsSuccess: true, Code: CodeOK, Message: "OK", Result: &result}
}

// Fail builds a failed envelope without a result.
func Fail(code int, message string) Envelope[struct{}] {
	return Envelope[struct{}]{IsSuccess: false, Code: code, Message: message}
}
