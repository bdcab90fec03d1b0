package handlers

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks which users hold live feed connections. Push notifications
// skip users the hub reports online; their open socket already delivers
// the update.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]int)}
}

// Register records a new connection for a user.
func (h *Hub) Register(userID string) {
	h.mu.Lock()
	h.conns[userID]++
	h.mu.Unlock()
	log.Info().Str("user_id", userID).Msg("Feed connection registered")
}

// Unregister removes one connection for a user.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	if h.conns[userID] > 1 {
		h.conns[userID]--
	} else {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	log.Info().Str("user_id", userID).Msg("Feed connection unregistered")
}

// IsOnline reports whether a user holds at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[userID] > 0
}
