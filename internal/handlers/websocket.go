package handlers

import (
	"encoding/json"
	"net/http"

	"framez-backend/internal/apperr"
	"framez-backend/internal/feed"
	"framez-backend/internal/identity"
	"framez-backend/internal/metrics"
	"framez-backend/internal/models"
	"framez-backend/internal/push"
	"framez-backend/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // clients are mobile apps, no browser origin to pin
	},
}

// WSMessage is one frame in either direction on a feed connection.
type WSMessage struct {
	Type     string         `json:"type"`
	Content  string         `json:"content,omitempty"`
	ImageURL string         `json:"image_url,omitempty"`
	PostID   string         `json:"post_id,omitempty"`
	Posts    []*models.Post `json:"posts,omitempty"`
	Ready    *bool          `json:"ready,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// WebSocketHandler serves the live feed: each authenticated connection
// gets its own feed synchronizer whose snapshots stream down the
// socket, and whose mutations are driven by client frames. The
// subscription is torn down when the connection closes.
type WebSocketHandler struct {
	hub             *Hub
	identityService *identity.Service
	store           store.Store
	notifier        *push.Notifier
}

// NewWebSocketHandler creates a new WebSocket handler. notifier may be
// nil when push is not configured.
func NewWebSocketHandler(hub *Hub, identityService *identity.Service, st store.Store, notifier *push.Notifier) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		identityService: identityService,
		store:           st,
		notifier:        notifier,
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}
	userID, err := h.identityService.ValidateToken(r.Context(), token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := resolveUser(r.Context(), h.identityService, h.store, userID)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID)
	defer h.hub.Unregister(userID)
	metrics.FeedSubscribers.Inc()
	defer metrics.FeedSubscribers.Dec()

	// One writer goroutine owns the connection's write side; snapshot
	// deliveries and command replies both go through send.
	send := make(chan WSMessage, 16)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Error().Err(err).Str("user_id", userID).Msg("Failed to write WebSocket message")
					return
				}
			case <-done:
				return
			}
		}
	}()

	enqueue := func(msg WSMessage) {
		select {
		case send <- msg:
		case <-done:
		}
	}

	ready := true
	feedSync, err := feed.New(h.store, feed.StaticSession(user), func(posts []*models.Post) {
		enqueue(WSMessage{Type: "feed", Posts: posts, Ready: &ready})
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to start feed synchronizer")
		return
	}
	defer feedSync.Close()

	log.Info().Str("user_id", userID).Msg("Feed connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			enqueue(WSMessage{Type: "error", Message: "Invalid message format"})
			continue
		}

		h.handleMessage(r, userID, msg, feedSync, enqueue)
	}
}

func (h *WebSocketHandler) handleMessage(r *http.Request, userID string, msg WSMessage, feedSync *feed.Synchronizer, enqueue func(WSMessage)) {
	ctx := r.Context()

	switch msg.Type {
	case "create_post":
		postID, err := feedSync.Create(ctx, msg.Content, msg.ImageURL)
		if err != nil {
			enqueue(WSMessage{Type: "error", Message: err.Error()})
			return
		}
		enqueue(WSMessage{Type: "post_created", PostID: postID})

		if h.notifier != nil {
			if fields, ok, readErr := h.store.ReadOne(ctx, store.CollectionPosts, postID); readErr == nil && ok {
				post := store.PostFromDocument(store.Document{ID: postID, Fields: fields})
				h.notifier.NotifyNewPost(post, h.hub.IsOnline)
			}
		}

	case "delete_post":
		fields, ok, err := h.store.ReadOne(ctx, store.CollectionPosts, msg.PostID)
		if err != nil || !ok {
			enqueue(WSMessage{Type: "error", Message: apperr.NewPostError(apperr.CodeNotFound, err).Error()})
			return
		}
		post := store.PostFromDocument(store.Document{ID: msg.PostID, Fields: fields})
		if post.UserID != userID {
			enqueue(WSMessage{Type: "error", Message: apperr.NewPostError(apperr.CodePermissionDenied, nil).Error()})
			return
		}
		if err := feedSync.Delete(ctx, msg.PostID); err != nil {
			enqueue(WSMessage{Type: "error", Message: err.Error()})
			return
		}
		enqueue(WSMessage{Type: "post_deleted", PostID: msg.PostID})

	case "refresh":
		if err := feedSync.Refresh(ctx); err == nil {
			enqueue(WSMessage{Type: "refreshed"})
		}

	default:
		enqueue(WSMessage{Type: "error", Message: "Unknown message type"})
	}
}
