package repository

import (
	"context"
	"errors"
	"fmt"

	"framez-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors the identity layer translates into its own taxonomy.
var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

// AccountRepository handles database operations for identity accounts.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account. Returns ErrEmailTaken when the email is
// already registered.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (uid, email, password_hash, display_name, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		account.UID, account.Email, account.PasswordHash,
		account.DisplayName, account.PhotoURL, account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// ByEmail retrieves an account by email.
func (r *AccountRepository) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT uid, email, password_hash, display_name, photo_url, created_at
		FROM accounts
		WHERE email = $1
	`
	var account models.Account
	err := r.db.QueryRow(ctx, query, email).Scan(
		&account.UID, &account.Email, &account.PasswordHash,
		&account.DisplayName, &account.PhotoURL, &account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// ByUID retrieves an account by its unique identifier.
func (r *AccountRepository) ByUID(ctx context.Context, uid string) (*models.Account, error) {
	query := `
		SELECT uid, email, password_hash, display_name, photo_url, created_at
		FROM accounts
		WHERE uid = $1
	`
	var account models.Account
	err := r.db.QueryRow(ctx, query, uid).Scan(
		&account.UID, &account.Email, &account.PasswordHash,
		&account.DisplayName, &account.PhotoURL, &account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// UpdateDisplayName updates the provider-held display name.
func (r *AccountRepository) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	query := `UPDATE accounts SET display_name = $1 WHERE uid = $2`
	result, err := r.db.Exec(ctx, query, displayName, uid)
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
