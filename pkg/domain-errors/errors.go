// Package domainerrors defines coded errors shared between services and the HTTP
// layer. Services return these; the transport translates codes to status codes
// without inspecting error strings.
package domainerrors

import "net/http"

// Code identifies the class of failure in a transport-agnostic way.
type Code string

const (
	CodeBadRequest  Code = "bad_request"
	CodeNotFound    Code = "not_found"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"
)

// Error carries a code plus a human-readable description. The description is
// safe to show to API consumers except for internal errors, which the HTTP
// layer redacts.
type Error struct {
	Code        Code
	Description string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Description
}

// New builds a coded error.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500 so a
// missed case fails closed.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
