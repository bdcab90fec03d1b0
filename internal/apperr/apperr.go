// Package apperr defines the error taxonomy surfaced to clients and the
// fixed code-to-message tables used to translate provider and store
// failures. Raw backend codes never reach the end user.
package apperr

import "fmt"

// Provider-side auth codes.
const (
	CodeEmailAlreadyInUse = "email-already-in-use"
	CodeInvalidEmail      = "invalid-email"
	CodeWeakPassword      = "weak-password"
	CodeUserNotFound      = "user-not-found"
	CodeWrongPassword     = "wrong-password"
	CodeTooManyRequests   = "too-many-requests"
	CodeNetworkFailed     = "network-request-failed"
)

// Store-side post mutation codes.
const (
	CodePermissionDenied  = "permission-denied"
	CodeNotFound          = "not-found"
	CodeAlreadyExists     = "already-exists"
	CodeResourceExhausted = "resource-exhausted"
	CodeUnauthenticated   = "unauthenticated"
)

var authMessages = map[string]string{
	CodeEmailAlreadyInUse: "This email is already registered. Please sign in instead.",
	CodeInvalidEmail:      "Please enter a valid email address.",
	CodeWeakPassword:      "Password should be at least 6 characters.",
	CodeUserNotFound:      "No account found with this email.",
	CodeWrongPassword:     "Incorrect password. Please try again.",
	CodeTooManyRequests:   "Too many failed attempts. Please try again later.",
	CodeNetworkFailed:     "Network error. Please check your connection.",
}

var postMessages = map[string]string{
	CodePermissionDenied:  "You don't have permission to perform this action.",
	CodeNotFound:          "The requested post was not found.",
	CodeAlreadyExists:     "This post already exists.",
	CodeResourceExhausted: "Too many requests. Please try again later.",
	CodeUnauthenticated:   "Please sign in to perform this action.",
}

const genericMessage = "An error occurred. Please try again."

// AuthError is an identity-provider failure translated for display.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError translates a provider code through the fixed table.
// Unknown codes map to a generic retry-suggesting message.
func NewAuthError(code string, err error) *AuthError {
	msg, ok := authMessages[code]
	if !ok {
		msg = genericMessage
	}
	return &AuthError{Code: code, Message: msg, Err: err}
}

// PostError is a store-level failure on a post mutation.
type PostError struct {
	Code    string
	Message string
	Err     error
}

func (e *PostError) Error() string { return e.Message }
func (e *PostError) Unwrap() error { return e.Err }

// NewPostError translates a store code through the fixed table.
func NewPostError(code string, err error) *PostError {
	msg, ok := postMessages[code]
	if !ok {
		msg = genericMessage
	}
	return &PostError{Code: code, Message: msg, Err: err}
}

// ValidationError is a locally-detected precondition violation,
// rejected before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a validation failure with a literal message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
