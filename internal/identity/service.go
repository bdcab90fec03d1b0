// Package identity implements the identity-provider collaborator:
// account records with bcrypt-hashed credentials, JWT bearer tokens with
// a revocation set consulted on every validation, and a per-consumer
// Client that owns the "current identity" state and emits change
// notifications.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"framez-backend/internal/apperr"
	"framez-backend/internal/models"
	"framez-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL          = 30 * 24 * time.Hour
	minPasswordLength = 6
)

// Accounts is the persistence surface the service needs.
type Accounts interface {
	Create(ctx context.Context, account *models.Account) error
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ByUID(ctx context.Context, uid string) (*models.Account, error)
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
}

// Tokens records revoked token ids so sign-out invalidates a bearer
// token before its natural expiry.
type Tokens interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service is the provider-side account and token authority.
type Service struct {
	accounts  Accounts
	tokens    Tokens
	jwtSecret string
}

// NewService creates the identity service.
func NewService(accounts Accounts, tokens Tokens, jwtSecret string) *Service {
	return &Service{
		accounts:  accounts,
		tokens:    tokens,
		jwtSecret: jwtSecret,
	}
}

// CreateAccount registers a new identity. Provider-side validation:
// well-formed email and the minimum password length the provider
// enforces. Failures surface as AuthError through the fixed table.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) {
		return nil, apperr.NewAuthError(apperr.CodeInvalidEmail, nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperr.NewAuthError(apperr.CodeWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.NewAuthError(apperr.CodeNetworkFailed, fmt.Errorf("failed to hash password: %w", err))
	}

	account := &models.Account{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperr.NewAuthError(apperr.CodeEmailAlreadyInUse, err)
		}
		return nil, apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}

	return identityOf(account), nil
}

// Authenticate verifies credentials and issues a bearer token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	account, err := s.accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperr.NewAuthError(apperr.CodeUserNotFound, err)
		}
		return nil, "", apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.NewAuthError(apperr.CodeWrongPassword, err)
	}

	token, err := s.issueToken(account.UID)
	if err != nil {
		return nil, "", apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}
	return identityOf(account), token, nil
}

// SignOut revokes the token so it no longer validates.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return apperr.NewAuthError(apperr.CodeUnauthenticated, err)
	}

	jti, _ := claims["jti"].(string)
	ttl := tokenTTL
	if exp, ok := claims["exp"].(float64); ok {
		if remaining := time.Until(time.Unix(int64(exp), 0)); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.tokens.Revoke(ctx, jti, ttl); err != nil {
		return apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}
	return nil
}

// ValidateToken checks signature, expiry, and revocation, returning the
// token's subject uid.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	jti, _ := claims["jti"].(string)
	revoked, err := s.tokens.IsRevoked(ctx, jti)
	if err != nil {
		return "", fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return "", fmt.Errorf("token revoked")
	}

	uid, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}
	return uid, nil
}

// UpdateDisplayName updates the provider-held display name field.
func (s *Service) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	if err := s.accounts.UpdateDisplayName(ctx, uid, displayName); err != nil {
		return apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}
	return nil
}

// IdentityByUID resolves a uid back to its identity record.
func (s *Service) IdentityByUID(ctx context.Context, uid string) (*models.Identity, error) {
	account, err := s.accounts.ByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NewAuthError(apperr.CodeUserNotFound, err)
		}
		return nil, apperr.NewAuthError(apperr.CodeNetworkFailed, err)
	}
	return identityOf(account), nil
}

func (s *Service) issueToken(uid string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": uid,
		"jti":     uuid.New().String(),
		"exp":     now.Add(tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func identityOf(account *models.Account) *models.Identity {
	return &models.Identity{
		UID:         account.UID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		PhotoURL:    account.PhotoURL,
		CreatedAt:   account.CreatedAt,
	}
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(email, " \t")
}
