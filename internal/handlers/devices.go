package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"framez-backend/internal/middleware"
	"framez-backend/internal/models"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// DeviceHandler registers push notification targets. One device per
// user: re-registration replaces the previous token.
type DeviceHandler struct {
	store store.Store
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(st store.Store) *DeviceHandler {
	return &DeviceHandler{store: st}
}

type registerDeviceRequest struct {
	Token string `json:"token"`
}

// RegisterDevice handles POST /api/v1/devices
func (h *DeviceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondError(w, "token is required", http.StatusBadRequest)
		return
	}

	device := &models.Device{
		UserID:    userID,
		Token:     req.Token,
		CreatedAt: time.Now(),
	}
	if err := h.store.Put(ctx, store.CollectionDevices, userID, store.DeviceFields(device)); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register device")
		respondError(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}
