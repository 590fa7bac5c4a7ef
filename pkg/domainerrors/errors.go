// Package domainerrors defines coded errors that services return and the
// HTTP layer translates into status codes. Stores and clients return
// sentinel errors instead; services wrap those into coded errors at the
// boundary so handlers never inspect infrastructure failures directly.
package domainerrors

import "net/http"

// Code identifies the class of a domain error.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "upstream_unavailable"
	CodeInternal     Code = "internal_error"
)

// Error carries a code plus a human-readable description. The description
// is safe to show to callers except for internal errors, which the HTTP
// layer redacts.
type Error struct {
	Code        Code
	Description string
}

func (e Error) Error() string {
	return string(e.Code) + ": " + e.Description
}

// New builds a coded domain error.
func New(code Code, description string) Error {
	return Error{Code: code, Description: description}
}

// ToHTTPStatus maps a code onto its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
