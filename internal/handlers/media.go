package handlers

import (
	"net/http"

	"framez-backend/internal/media"
	"framez-backend/internal/middleware"

	"github.com/rs/zerolog/log"
)

const maxUploadBytes = 10 << 20

// MediaHandler handles image uploads for posts.
type MediaHandler struct {
	uploader *media.Uploader
}

// NewMediaHandler creates a new media handler. uploader may be nil when
// media storage is not configured.
func NewMediaHandler(uploader *media.Uploader) *MediaHandler {
	return &MediaHandler{uploader: uploader}
}

// Upload handles POST /api/v1/media/upload. The response URL is the
// opaque image reference a subsequent post create carries.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondError(w, "Image uploads are not available", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, "Invalid upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	url, err := h.uploader.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", middleware.GetUserID(r.Context())).
			Str("filename", header.Filename).
			Msg("Failed to upload image")
		respondError(w, "Failed to upload image", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
