package handlers

import (
	"encoding/json"
	"net/http"

	"framez-backend/internal/apperr"
	"framez-backend/internal/feed"
	"framez-backend/internal/identity"
	"framez-backend/internal/middleware"
	"framez-backend/internal/models"
	"framez-backend/internal/push"
	"framez-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PostHandler serves the feed and the post mutations. Reads come from
// the shared live mirror; writes go through a request-scoped writer so
// the acting user is the authenticated caller.
type PostHandler struct {
	store           store.Store
	identityService *identity.Service
	mirror          *feed.Mirror
	notifier        *push.Notifier
	hub             *Hub
}

// NewPostHandler creates a new post handler. notifier may be nil when
// push is not configured.
func NewPostHandler(st store.Store, identityService *identity.Service, mirror *feed.Mirror, notifier *push.Notifier, hub *Hub) *PostHandler {
	return &PostHandler{
		store:           st,
		identityService: identityService,
		mirror:          mirror,
		notifier:        notifier,
		hub:             hub,
	}
}

type createPostRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

// CreatePost handles POST /api/v1/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := resolveUser(ctx, h.identityService, h.store, userID)
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}

	writer := feed.NewWriter(h.store, feed.StaticSession(user))
	postID, err := writer.Create(ctx, req.Content, req.ImageURL)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create post")
		respondTaxonomyError(w, err)
		return
	}

	if h.notifier != nil {
		if fields, ok, readErr := h.store.ReadOne(ctx, store.CollectionPosts, postID); readErr == nil && ok {
			post := store.PostFromDocument(store.Document{ID: postID, Fields: fields})
			h.notifier.NotifyNewPost(post, h.hub.IsOnline)
		}
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": postID})
}

// DeletePost handles DELETE /api/v1/posts/{post_id}. Ownership is
// confirmed here before the delete is issued; the store's access rules
// are the independent second line.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	postID := chi.URLParam(r, "post_id")

	fields, ok, err := h.store.ReadOne(ctx, store.CollectionPosts, postID)
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}
	if !ok {
		respondTaxonomyError(w, apperr.NewPostError(apperr.CodeNotFound, nil))
		return
	}
	post := store.PostFromDocument(store.Document{ID: postID, Fields: fields})
	if post.UserID != userID {
		respondTaxonomyError(w, apperr.NewPostError(apperr.CodePermissionDenied, nil))
		return
	}

	user, err := resolveUser(ctx, h.identityService, h.store, userID)
	if err != nil {
		respondTaxonomyError(w, err)
		return
	}

	writer := feed.NewWriter(h.store, feed.StaticSession(user))
	if err := writer.Delete(ctx, postID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("post_id", postID).Msg("Failed to delete post")
		respondTaxonomyError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetFeed handles GET /api/v1/feed
func (h *PostHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"posts": h.mirror.Posts(),
		"ready": h.mirror.Ready(),
	})
}

// GetUserPosts handles GET /api/v1/users/{user_id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	posts := h.mirror.PostsByUser(userID)
	if posts == nil {
		posts = []*models.Post{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}
