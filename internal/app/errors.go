package app

import (
	"fmt"
	"net/http"
)

// DomainError is the gateway's caller-facing error shape. Every internal
// fault is translated into one of these before it leaves the gateway.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// errUnauthorized means no valid caller identity at all.
func errUnauthorized() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Please sign in", nil)
}

// errForbidden means a valid identity with insufficient privilege on this board.
func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "You do not have access to this board", nil)
}

func errNotFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// errColumnNotEmpty is the domain-specific rejection for deleting a column
// that still holds cards. Distinct from generic validation so clients can
// surface it as its own message.
func errColumnNotEmpty() *DomainError {
	return domainError(http.StatusConflict, "COLUMN_NOT_EMPTY", "Column still has cards and cannot be deleted", nil)
}
