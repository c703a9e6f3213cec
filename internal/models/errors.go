package models

import "fmt"

// Error codes carried by Error. They mirror the codes a PostgREST backend
// would return so callers can branch on them the same way.
const (
	CodeNotFound           = "PGRST116"
	CodeUnknownTable       = "42P01"
	CodeDuplicate          = "23505"
	CodeInvalidInput       = "22023"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInternal           = "internal"
)

// Error is the error half of every engine result.
type Error struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Is matches errors with the same code, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "Row not found"}
	ErrUnknownTable       = &Error{Code: CodeUnknownTable, Message: "Unknown table"}
	ErrDuplicate          = &Error{Code: CodeDuplicate, Message: "duplicate key value violates unique constraint"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid login. Use teacher@demo.com or buyer@demo.com for the demo."}
)

// NotFound returns the "row not found" error of a single-row read.
func NotFound() *Error {
	return &Error{Code: CodeNotFound, Message: ErrNotFound.Message}
}

// UnknownTable returns the error for a collection name the engine does not know.
func UnknownTable(name string) *Error {
	return &Error{Code: CodeUnknownTable, Message: "Unknown table: " + name}
}

// Duplicate returns a unique-constraint violation naming the constraint.
func Duplicate(constraint string) *Error {
	return &Error{Code: CodeDuplicate, Message: fmt.Sprintf("%s %q", ErrDuplicate.Message, constraint)}
}

// InvalidCredentials returns the sign-in rejection.
func InvalidCredentials() *Error {
	return &Error{Code: CodeInvalidCredentials, Message: ErrInvalidCredentials.Message}
}

// InvalidInput rejects a malformed request before it touches the store.
func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}
