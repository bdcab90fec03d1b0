package feed

import (
	"sync"

	"framez-backend/internal/metrics"
	"framez-backend/internal/models"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// Mirror is a live local copy of the post collection, replaced wholesale
// by every subscription snapshot. The feed is globally visible, so the
// mirror itself is identity-independent.
type Mirror struct {
	onUpdate func([]*models.Post)

	mu    sync.RWMutex
	posts []*models.Post
	ready bool

	cancelOnce sync.Once
	cancel     store.CancelFunc
}

// NewMirror opens the standing subscription. onUpdate, when non-nil,
// receives every applied snapshot and may be used to stream the mirror
// onward.
func NewMirror(st store.Store, onUpdate func([]*models.Post)) *Mirror {
	m := &Mirror{onUpdate: onUpdate}
	m.cancel = st.Subscribe(store.Query{
		Collection: store.CollectionPosts,
		OrderBy:    "createdAt",
		Descending: true,
	}, m.applySnapshot, m.deliveryFailed)
	return m
}

// Close tears the subscription down. Idempotent.
func (m *Mirror) Close() {
	m.cancelOnce.Do(m.cancel)
}

// applySnapshot replaces the mirror with the delivered contents. This
// is the only path that mutates the mirror.
func (m *Mirror) applySnapshot(snap store.Snapshot) {
	posts := make([]*models.Post, 0, len(snap))
	for _, doc := range snap {
		posts = append(posts, store.PostFromDocument(doc))
	}

	m.mu.Lock()
	m.posts = posts
	m.ready = true
	m.mu.Unlock()

	metrics.SnapshotsApplied.Inc()
	log.Debug().Int("posts", len(posts)).Msg("Feed snapshot applied")

	if m.onUpdate != nil {
		m.onUpdate(m.Posts())
	}
}

// deliveryFailed logs and fails open: the mirror keeps its last known
// value and reports ready rather than staying stuck in a loading state.
func (m *Mirror) deliveryFailed(err error) {
	log.Error().Err(err).Msg("Feed snapshot delivery failed")
	metrics.SnapshotFailures.Inc()

	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
}

// Ready reports whether the first snapshot (or first failure) arrived.
func (m *Mirror) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Posts returns a copy of the mirror in feed order.
func (m *Mirror) Posts() []*models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Post, len(m.posts))
	for i, p := range m.posts {
		cp := *p
		out[i] = &cp
	}
	return out
}

// PostsByUser returns the mirror entries owned by uid, in feed order.
func (m *Mirror) PostsByUser(uid string) []*models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Post
	for _, p := range m.posts {
		if p.UserID == uid {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}
