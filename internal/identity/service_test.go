package identity

import (
	"context"
	"errors"
	"testing"

	"framez-backend/internal/apperr"
)

func newTestService() *Service {
	return NewService(NewMemoryAccounts(), NewMemoryTokens(), "test-secret")
}

func authCode(t *testing.T, err error) string {
	t.Helper()
	var authErr *apperr.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *apperr.AuthError", err)
	}
	return authErr.Code
}

func TestCreateAccountRejectsInvalidEmails(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name  string
		email string
	}{
		{"no at sign", "annexample.com"},
		{"leading at", "@example.com"},
		{"trailing at", "ann@"},
		{"no domain dot", "ann@example"},
		{"embedded space", "ann smith@example.com"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateAccount(ctx, tt.email, "secret1")
			if code := authCode(t, err); code != apperr.CodeInvalidEmail {
				t.Errorf("code = %q, want %q", code, apperr.CodeInvalidEmail)
			}
		})
	}
}

func TestCreateAccountRejectsShortPassword(t *testing.T) {
	s := newTestService()

	_, err := s.CreateAccount(context.Background(), "ann@example.com", "12345")
	if code := authCode(t, err); code != apperr.CodeWeakPassword {
		t.Errorf("code = %q, want %q", code, apperr.CodeWeakPassword)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.CreateAccount(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	_, err := s.CreateAccount(ctx, "Ann@Example.com", "secret1")
	if code := authCode(t, err); code != apperr.CodeEmailAlreadyInUse {
		t.Errorf("code = %q, want %q", code, apperr.CodeEmailAlreadyInUse)
	}
}

func TestCreateAccountNormalizesEmail(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	ident, err := s.CreateAccount(ctx, "  Ann@Example.COM ", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if ident.Email != "ann@example.com" {
		t.Errorf("Email = %q, want normalized lowercase", ident.Email)
	}
	if ident.UID == "" {
		t.Error("UID not assigned")
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, "ann@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := s.Authenticate(ctx, "bob@example.com", "secret1")
		if code := authCode(t, err); code != apperr.CodeUserNotFound {
			t.Errorf("code = %q, want %q", code, apperr.CodeUserNotFound)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := s.Authenticate(ctx, "ann@example.com", "wrong-password")
		if code := authCode(t, err); code != apperr.CodeWrongPassword {
			t.Errorf("code = %q, want %q", code, apperr.CodeWrongPassword)
		}
	})

	t.Run("success issues a valid token", func(t *testing.T) {
		ident, token, err := s.Authenticate(ctx, "ann@example.com", "secret1")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if ident.UID != created.UID {
			t.Errorf("UID = %q, want %q", ident.UID, created.UID)
		}

		uid, err := s.ValidateToken(ctx, token)
		if err != nil {
			t.Fatalf("ValidateToken() error = %v", err)
		}
		if uid != created.UID {
			t.Errorf("token subject = %q, want %q", uid, created.UID)
		}
	})
}

func TestValidateTokenRejectsForgedTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	other := NewService(NewMemoryAccounts(), NewMemoryTokens(), "different-secret")

	if _, err := other.CreateAccount(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	_, token, err := other.Authenticate(ctx, "ann@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if _, err := s.ValidateToken(ctx, token); err == nil {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
	if _, err := s.ValidateToken(ctx, "garbage"); err == nil {
		t.Error("ValidateToken() accepted a malformed token")
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.CreateAccount(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	_, token, err := s.Authenticate(ctx, "ann@example.com", "secret1")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if _, err := s.ValidateToken(ctx, token); err != nil {
		t.Fatalf("ValidateToken() before sign-out error = %v", err)
	}
	if err := s.SignOut(ctx, token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := s.ValidateToken(ctx, token); err == nil {
		t.Error("ValidateToken() accepted a revoked token")
	}
}

func TestUpdateDisplayName(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	ident, err := s.CreateAccount(ctx, "ann@example.com", "secret1")
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if err := s.UpdateDisplayName(ctx, ident.UID, "Ann"); err != nil {
		t.Fatalf("UpdateDisplayName() error = %v", err)
	}

	got, err := s.IdentityByUID(ctx, ident.UID)
	if err != nil {
		t.Fatalf("IdentityByUID() error = %v", err)
	}
	if got.DisplayName != "Ann" {
		t.Errorf("DisplayName = %q, want Ann", got.DisplayName)
	}
}

func TestIdentityByUIDMissing(t *testing.T) {
	s := newTestService()

	_, err := s.IdentityByUID(context.Background(), "missing-uid")
	if code := authCode(t, err); code != apperr.CodeUserNotFound {
		t.Errorf("code = %q, want %q", code, apperr.CodeUserNotFound)
	}
}
