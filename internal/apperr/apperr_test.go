package apperr

import (
	"errors"
	"testing"
)

func TestNewAuthErrorTranslatesKnownCodes(t *testing.T) {
	tests := []struct {
		code    string
		message string
	}{
		{CodeEmailAlreadyInUse, "This email is already registered. Please sign in instead."},
		{CodeInvalidEmail, "Please enter a valid email address."},
		{CodeWeakPassword, "Password should be at least 6 characters."},
		{CodeUserNotFound, "No account found with this email."},
		{CodeWrongPassword, "Incorrect password. Please try again."},
		{CodeTooManyRequests, "Too many failed attempts. Please try again later."},
		{CodeNetworkFailed, "Network error. Please check your connection."},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewAuthError(tt.code, nil)
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestNewAuthErrorUnknownCodeUsesGenericMessage(t *testing.T) {
	err := NewAuthError("internal/some-backend-code", nil)
	if err.Error() != genericMessage {
		t.Errorf("Error() = %q, want generic message", err.Error())
	}
	if err.Code != "internal/some-backend-code" {
		t.Errorf("Code = %q, want the raw code preserved", err.Code)
	}
}

func TestNewPostErrorTranslatesKnownCodes(t *testing.T) {
	tests := []struct {
		code    string
		message string
	}{
		{CodePermissionDenied, "You don't have permission to perform this action."},
		{CodeNotFound, "The requested post was not found."},
		{CodeAlreadyExists, "This post already exists."},
		{CodeResourceExhausted, "Too many requests. Please try again later."},
		{CodeUnauthenticated, "Please sign in to perform this action."},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewPostError(tt.code, nil)
			if err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestNewPostErrorUnknownCodeUsesGenericMessage(t *testing.T) {
	if got := NewPostError("", nil).Error(); got != genericMessage {
		t.Errorf("Error() = %q, want generic message", got)
	}
}

func TestErrorsUnwrapToCause(t *testing.T) {
	cause := errors.New("connection reset")

	if !errors.Is(NewAuthError(CodeNetworkFailed, cause), cause) {
		t.Error("AuthError should unwrap to its cause")
	}
	if !errors.Is(NewPostError(CodeNotFound, cause), cause) {
		t.Error("PostError should unwrap to its cause")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("Post must contain text or an image")
	if err.Error() != "Post must contain text or an image" {
		t.Errorf("Error() = %q", err.Error())
	}
}
