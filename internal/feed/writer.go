package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"framez-backend/internal/apperr"
	"framez-backend/internal/metrics"
	"framez-backend/internal/models"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// Sessions exposes the signed-in user to the feed. It is read when
// composing a post; session state is never mutated here.
type Sessions interface {
	CurrentUser() (*models.User, bool)
}

// StaticSession adapts an already-resolved user into a Sessions value,
// for request-scoped callers that carry their own authentication.
func StaticSession(user *models.User) Sessions {
	return staticSession{user: user}
}

type staticSession struct {
	user *models.User
}

func (s staticSession) CurrentUser() (*models.User, bool) {
	if s.user == nil {
		return nil, false
	}
	return s.user, true
}

// Writer performs the post mutations: write-through to the store plus
// the denormalized counter update. It holds no mirror; reconciliation
// is the subscription's job.
type Writer struct {
	store    store.Store
	sessions Sessions
}

// NewWriter creates a mutation surface bound to a session view.
func NewWriter(st store.Store, sessions Sessions) *Writer {
	return &Writer{store: st, sessions: sessions}
}

// Create inserts a new post owned by the current user and increments
// the owner's post counter. The two writes are not atomic: a counter
// failure after a successful insert is surfaced but not rolled back,
// and the post still reaches the mirror on the next push.
func (w *Writer) Create(ctx context.Context, content, imageURL string) (string, error) {
	user, ok := w.sessions.CurrentUser()
	if !ok {
		return "", apperr.NewPostError(apperr.CodeUnauthenticated, errors.New("session not present"))
	}

	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return "", apperr.NewValidationError("Post must contain text or an image")
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = "Anonymous"
	}
	post := &models.Post{
		UserID:          user.UID,
		UserDisplayName: displayName,
		UserPhotoURL:    user.PhotoURL,
		Content:         content,
		ImageURL:        imageURL,
		CreatedAt:       time.Now(),
		Likes:           0,
		LikedBy:         []string{},
	}

	id, err := w.store.Insert(ctx, store.CollectionPosts, store.PostFields(post))
	if err != nil {
		return "", translate(err)
	}
	metrics.PostsCreated.Inc()

	if err := w.store.Increment(ctx, store.CollectionUsers, user.UID, "postsCount", 1); err != nil {
		log.Error().Err(err).Str("user_id", user.UID).Msg("Failed to increment post counter")
		return id, translate(err)
	}

	log.Info().Str("user_id", user.UID).Str("post_id", id).Msg("Post created")
	return id, nil
}

// Delete removes a post and decrements the owner's counter. Callers are
// responsible for confirming ownership first; the store's access rules
// enforce it independently.
func (w *Writer) Delete(ctx context.Context, postID string) error {
	user, ok := w.sessions.CurrentUser()
	if !ok {
		return apperr.NewPostError(apperr.CodeUnauthenticated, errors.New("session not present"))
	}

	if err := w.store.Delete(ctx, store.CollectionPosts, postID); err != nil {
		return translate(err)
	}
	metrics.PostsDeleted.Inc()

	if err := w.store.Increment(ctx, store.CollectionUsers, user.UID, "postsCount", -1); err != nil {
		log.Error().Err(err).Str("user_id", user.UID).Msg("Failed to decrement post counter")
		return translate(err)
	}

	log.Info().Str("user_id", user.UID).Str("post_id", postID).Msg("Post deleted")
	return nil
}

// Refresh exists for interface symmetry. The subscription keeps the
// mirror current, so there is nothing to pull.
func (w *Writer) Refresh(ctx context.Context) error {
	log.Debug().Msg("Feed refresh requested, handled by the live subscription")
	return nil
}

// translate maps a coded store failure onto the post error taxonomy.
func translate(err error) error {
	var coded *store.Error
	if errors.As(err, &coded) {
		return apperr.NewPostError(coded.Code, err)
	}
	return apperr.NewPostError("", err)
}
