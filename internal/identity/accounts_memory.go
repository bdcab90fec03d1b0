package identity

import (
	"context"
	"sync"

	"framez-backend/internal/models"
	"framez-backend/internal/repository"
)

// MemoryAccounts is an in-process Accounts implementation for the
// embedded mode and tests.
type MemoryAccounts struct {
	mu      sync.RWMutex
	byUID   map[string]*models.Account
	byEmail map[string]*models.Account
}

// NewMemoryAccounts creates an empty in-process account store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byUID:   make(map[string]*models.Account),
		byEmail: make(map[string]*models.Account),
	}
}

// Create registers an account. Returns repository.ErrEmailTaken when
// the email is already in use.
func (m *MemoryAccounts) Create(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[account.Email]; ok {
		return repository.ErrEmailTaken
	}
	cp := *account
	m.byUID[cp.UID] = &cp
	m.byEmail[cp.Email] = &cp
	return nil
}

// ByEmail retrieves an account by email.
func (m *MemoryAccounts) ByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// ByUID retrieves an account by uid.
func (m *MemoryAccounts) ByUID(_ context.Context, uid string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.byUID[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// UpdateDisplayName updates the provider-held display name.
func (m *MemoryAccounts) UpdateDisplayName(_ context.Context, uid, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byUID[uid]
	if !ok {
		return repository.ErrNotFound
	}
	account.DisplayName = displayName
	return nil
}
