// Package session resolves and tracks "who is signed in now". The
// manager starts unresolved, settles on the first provider callback,
// and from then on flips between absent and present, merging identity
// fields with the stored profile on every resolution.
package session

import (
	"context"
	"sync"

	"framez-backend/internal/models"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// State is the resolution state of the session.
type State int

const (
	// Unresolved means the provider has not reported yet.
	Unresolved State = iota
	// Absent means the provider reported no signed-in identity.
	Absent
	// Present means an identity is signed in and merged with its profile.
	Present
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unresolved"
	}
}

// Provider is the identity collaborator surface the manager consumes.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	OnChange(fn func(*models.Identity)) func()
}

// Manager owns the session value. All session mutations happen on the
// provider's notification path; everything else reads.
type Manager struct {
	provider Provider
	store    store.Store

	mu    sync.RWMutex
	state State
	user  *models.User

	cancelOnce sync.Once
	cancel     func()
}

// NewManager creates a manager and registers its provider listener. The
// listener fires immediately with the provider's current state, so the
// session settles before NewManager returns.
func NewManager(provider Provider, st store.Store) *Manager {
	m := &Manager{
		provider: provider,
		store:    st,
		state:    Unresolved,
	}
	m.cancel = provider.OnChange(m.resolve)
	return m
}

// Close unregisters the provider listener. Idempotent.
func (m *Manager) Close() {
	m.cancelOnce.Do(m.cancel)
}

// resolve settles the session for one provider-reported change.
func (m *Manager) resolve(ident *models.Identity) {
	if ident == nil {
		m.mu.Lock()
		m.state = Absent
		m.user = nil
		m.mu.Unlock()
		log.Debug().Msg("Session resolved: signed out")
		return
	}

	// Profile read failure never blocks resolution: degrade to the
	// identity's own fields.
	var profile *models.Profile
	fields, ok, err := m.store.ReadOne(context.Background(), store.CollectionUsers, ident.UID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ident.UID).Msg("Failed to read profile during session resolve")
	} else if ok {
		profile = store.ProfileFromFields(fields)
	}

	user := MergeUser(ident, profile)
	m.mu.Lock()
	m.state = Present
	m.user = user
	m.mu.Unlock()
	log.Debug().Str("user_id", user.UID).Msg("Session resolved: signed in")
}

// Session returns the current state and, when present, the user.
func (m *Manager) Session() (State, *models.User) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return m.state, nil
	}
	user := *m.user
	return m.state, &user
}

// CurrentUser returns the signed-in user, if the session is present.
func (m *Manager) CurrentUser() (*models.User, bool) {
	state, user := m.Session()
	return user, state == Present
}

// SignUp creates the identity and then its profile record. The two
// writes are not atomic: a profile failure after identity creation is
// logged and the sign-up still succeeds with a degraded session.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) error {
	ident, err := m.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		return err
	}

	profile := &models.Profile{
		UID:         ident.UID,
		Email:       ident.Email,
		DisplayName: displayName,
		PhotoURL:    "",
		CreatedAt:   ident.CreatedAt,
		Bio:         "",
		PostsCount:  0,
	}
	if err := m.store.Put(ctx, store.CollectionUsers, ident.UID, store.ProfileFields(profile)); err != nil {
		log.Error().Err(err).Str("user_id", ident.UID).Msg("Failed to create profile after sign-up")
	}
	return nil
}

// SignIn authenticates; the provider's notification resolves the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	return m.provider.SignIn(ctx, email, password)
}

// SignOut clears the provider session. On provider failure the session
// is left unchanged.
func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to sign out")
		return err
	}
	return nil
}

// MergeUser applies the precedence rule: identity values win when
// non-empty, the profile supplies fallbacks plus the creation
// timestamp, bio, and counter.
func MergeUser(ident *models.Identity, profile *models.Profile) *models.User {
	user := &models.User{
		UID:         ident.UID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
		CreatedAt:   ident.CreatedAt,
	}
	if profile == nil {
		return user
	}
	if user.DisplayName == "" {
		user.DisplayName = profile.DisplayName
	}
	if user.PhotoURL == "" {
		user.PhotoURL = profile.PhotoURL
	}
	if !profile.CreatedAt.IsZero() {
		user.CreatedAt = profile.CreatedAt
	}
	user.Bio = profile.Bio
	user.PostsCount = profile.PostsCount
	return user
}
