package feed

import (
	"context"
	"testing"

	"framez-backend/internal/apperr"
	"framez-backend/internal/models"
	"framez-backend/internal/store"
)

func TestNewRequiresPresentSession(t *testing.T) {
	st := &manualStore{}

	_, err := New(st, StaticSession(nil), nil)
	if code := postCode(t, err); code != apperr.CodeUnauthenticated {
		t.Errorf("code = %q, want %q", code, apperr.CodeUnauthenticated)
	}
	if st.onSnapshot != nil {
		t.Error("subscription opened despite the refused construction")
	}
}

// End-to-end against the in-memory store: mutations come back through
// the subscription, and each delivery replaces the streamed feed.
func TestSynchronizerWriteThroughAndStream(t *testing.T) {
	st := store.NewMemory()
	user := testUser()
	seedProfile(t, st, user)
	ctx := context.Background()

	var updates [][]*models.Post
	s, err := New(st, StaticSession(user), func(posts []*models.Post) {
		updates = append(updates, posts)
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if len(updates) != 1 || len(updates[0]) != 0 {
		t.Fatalf("initial updates = %+v, want one empty delivery", updates)
	}

	id, err := s.Create(ctx, "hello", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	last := updates[len(updates)-1]
	if len(last) != 1 || last[0].ID != id {
		t.Fatalf("streamed feed = %+v, want the created post", last)
	}
	if got := s.Posts(); len(got) != 1 || got[0].Content != "hello" {
		t.Errorf("Posts() = %+v", got)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	last = updates[len(updates)-1]
	if len(last) != 0 {
		t.Errorf("streamed feed after delete = %+v, want empty", last)
	}
}
