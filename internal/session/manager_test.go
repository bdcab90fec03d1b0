package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"framez-backend/internal/identity"
	"framez-backend/internal/models"
	"framez-backend/internal/store"
)

// fakeProvider hands control of the notification path to the test: the
// listener is captured on registration and fired explicitly.
type fakeProvider struct {
	fire      func(*models.Identity)
	cancelled int

	signUpFn  func(ctx context.Context, email, password, displayName string) (*models.Identity, error)
	signInFn  func(ctx context.Context, email, password string) error
	signOutFn func(ctx context.Context) error
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	if p.signUpFn != nil {
		return p.signUpFn(ctx, email, password, displayName)
	}
	return nil, errors.New("not implemented")
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) error {
	if p.signInFn != nil {
		return p.signInFn(ctx, email, password)
	}
	return nil
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	if p.signOutFn != nil {
		return p.signOutFn(ctx)
	}
	return nil
}

func (p *fakeProvider) OnChange(fn func(*models.Identity)) func() {
	p.fire = fn
	return func() { p.cancelled++ }
}

// faultStore wraps the in-memory store with injectable failures.
type faultStore struct {
	*store.Memory
	readOneErr error
	putErr     error
}

func (f *faultStore) ReadOne(ctx context.Context, collection, id string) (store.Fields, bool, error) {
	if f.readOneErr != nil {
		return nil, false, f.readOneErr
	}
	return f.Memory.ReadOne(ctx, collection, id)
}

func (f *faultStore) Put(ctx context.Context, collection, id string, fields store.Fields) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Memory.Put(ctx, collection, id, fields)
}

func TestManagerStartsUnresolved(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, store.NewMemory())
	defer m.Close()

	state, user := m.Session()
	if state != Unresolved {
		t.Errorf("state = %v, want Unresolved", state)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil", user)
	}
	if _, ok := m.CurrentUser(); ok {
		t.Error("CurrentUser() ok = true while unresolved")
	}
}

func TestManagerResolvesAbsent(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, store.NewMemory())
	defer m.Close()

	provider.fire(nil)

	state, user := m.Session()
	if state != Absent || user != nil {
		t.Errorf("Session() = (%v, %+v), want (Absent, nil)", state, user)
	}
}

func TestManagerResolvePresentMergesProfile(t *testing.T) {
	provider := &fakeProvider{}
	st := store.NewMemory()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err := st.Put(context.Background(), store.CollectionUsers, "uid-1", store.ProfileFields(&models.Profile{
		UID:         "uid-1",
		Email:       "ann@example.com",
		DisplayName: "Profile Ann",
		PhotoURL:    "https://cdn/profile.jpg",
		CreatedAt:   created,
		Bio:         "hello",
		PostsCount:  7,
	}))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	m := NewManager(provider, st)
	defer m.Close()

	tests := []struct {
		name            string
		ident           *models.Identity
		wantDisplayName string
		wantPhotoURL    string
	}{
		{
			name: "identity fields win when non-empty",
			ident: &models.Identity{
				UID:         "uid-1",
				Email:       "ann@example.com",
				DisplayName: "Identity Ann",
				PhotoURL:    "https://cdn/identity.jpg",
			},
			wantDisplayName: "Identity Ann",
			wantPhotoURL:    "https://cdn/identity.jpg",
		},
		{
			name:            "profile supplies fallbacks",
			ident:           &models.Identity{UID: "uid-1", Email: "ann@example.com"},
			wantDisplayName: "Profile Ann",
			wantPhotoURL:    "https://cdn/profile.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider.fire(tt.ident)

			user, ok := m.CurrentUser()
			if !ok {
				t.Fatal("CurrentUser() ok = false, want Present")
			}
			if user.DisplayName != tt.wantDisplayName {
				t.Errorf("DisplayName = %q, want %q", user.DisplayName, tt.wantDisplayName)
			}
			if user.PhotoURL != tt.wantPhotoURL {
				t.Errorf("PhotoURL = %q, want %q", user.PhotoURL, tt.wantPhotoURL)
			}
			if user.Bio != "hello" || user.PostsCount != 7 {
				t.Errorf("profile extras not merged: bio=%q postsCount=%d", user.Bio, user.PostsCount)
			}
			if !user.CreatedAt.Equal(created) {
				t.Errorf("CreatedAt = %v, want the profile's %v", user.CreatedAt, created)
			}
		})
	}
}

func TestManagerDegradesWhenProfileReadFails(t *testing.T) {
	provider := &fakeProvider{}
	st := &faultStore{Memory: store.NewMemory(), readOneErr: errors.New("store down")}
	m := NewManager(provider, st)
	defer m.Close()

	provider.fire(&models.Identity{UID: "uid-1", Email: "ann@example.com", DisplayName: "Ann"})

	user, ok := m.CurrentUser()
	if !ok {
		t.Fatal("CurrentUser() ok = false, want Present despite the profile failure")
	}
	if user.DisplayName != "Ann" || user.Bio != "" || user.PostsCount != 0 {
		t.Errorf("user = %+v, want the identity's own fields", user)
	}
}

func TestManagerSignOutFlipsBackToAbsent(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, store.NewMemory())
	defer m.Close()

	provider.fire(&models.Identity{UID: "uid-1", Email: "ann@example.com"})
	if state, _ := m.Session(); state != Present {
		t.Fatalf("state = %v, want Present", state)
	}

	provider.fire(nil)
	state, user := m.Session()
	if state != Absent || user != nil {
		t.Errorf("Session() = (%v, %+v), want (Absent, nil)", state, user)
	}
}

func TestManagerSignUpCreatesProfile(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		signUpFn: func(_ context.Context, email, _, _ string) (*models.Identity, error) {
			return &models.Identity{UID: "uid-1", Email: email, CreatedAt: created}, nil
		},
	}
	st := store.NewMemory()
	m := NewManager(provider, st)
	defer m.Close()

	if err := m.SignUp(context.Background(), "ann@example.com", "secret1", "Ann"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	fields, ok, err := st.ReadOne(context.Background(), store.CollectionUsers, "uid-1")
	if err != nil || !ok {
		t.Fatalf("profile document missing: ok=%v err=%v", ok, err)
	}
	profile := store.ProfileFromFields(fields)
	if profile.Email != "ann@example.com" || profile.DisplayName != "Ann" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.PostsCount != 0 {
		t.Errorf("PostsCount = %d, want 0", profile.PostsCount)
	}
	if !profile.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", profile.CreatedAt, created)
	}
}

func TestManagerSignUpSucceedsWhenProfileWriteFails(t *testing.T) {
	provider := &fakeProvider{
		signUpFn: func(_ context.Context, email, _, _ string) (*models.Identity, error) {
			return &models.Identity{UID: "uid-1", Email: email}, nil
		},
	}
	st := &faultStore{Memory: store.NewMemory(), putErr: errors.New("store down")}
	m := NewManager(provider, st)
	defer m.Close()

	if err := m.SignUp(context.Background(), "ann@example.com", "secret1", "Ann"); err != nil {
		t.Errorf("SignUp() error = %v, want success with a degraded profile", err)
	}
}

func TestManagerSignUpPropagatesProviderFailure(t *testing.T) {
	wantErr := errors.New("email taken")
	provider := &fakeProvider{
		signUpFn: func(context.Context, string, string, string) (*models.Identity, error) {
			return nil, wantErr
		},
	}
	st := store.NewMemory()
	m := NewManager(provider, st)
	defer m.Close()

	if err := m.SignUp(context.Background(), "ann@example.com", "secret1", "Ann"); !errors.Is(err, wantErr) {
		t.Errorf("SignUp() error = %v, want %v", err, wantErr)
	}
	if _, ok, _ := st.ReadOne(context.Background(), store.CollectionUsers, "uid-1"); ok {
		t.Error("profile created despite provider failure")
	}
}

func TestManagerCloseUnregistersOnce(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, store.NewMemory())

	m.Close()
	m.Close()
	if provider.cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", provider.cancelled)
	}
}

// Full sign-up / sign-out / sign-in cycle against the real identity
// client, the path the auth handlers drive.
func TestManagerLifecycleWithIdentityClient(t *testing.T) {
	ctx := context.Background()
	svc := identity.NewService(identity.NewMemoryAccounts(), identity.NewMemoryTokens(), "test-secret")
	st := store.NewMemory()

	client := identity.NewClient(svc)
	m := NewManager(client, st)
	defer m.Close()

	if state, _ := m.Session(); state != Absent {
		t.Fatalf("state = %v, want Absent (client fires immediately)", state)
	}

	if err := m.SignUp(ctx, "ann@example.com", "secret1", "Ann"); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	user, ok := m.CurrentUser()
	if !ok {
		t.Fatal("session not present after sign-up")
	}
	if user.Email != "ann@example.com" || user.DisplayName != "Ann" {
		t.Errorf("user = %+v", user)
	}

	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if state, _ := m.Session(); state != Absent {
		t.Errorf("state after sign-out = %v, want Absent", state)
	}

	if err := m.SignIn(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	user, ok = m.CurrentUser()
	if !ok {
		t.Fatal("session not present after sign-in")
	}
	if user.DisplayName != "Ann" || user.PostsCount != 0 {
		t.Errorf("user = %+v, want the stored profile merged in", user)
	}
}
