package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"framez-backend/internal/apperr"
	"framez-backend/internal/identity"
	"framez-backend/internal/models"
	"framez-backend/internal/session"
	"framez-backend/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondTaxonomyError maps the error taxonomy onto HTTP statuses. Only
// translated messages reach the client, never backend codes.
func respondTaxonomyError(w http.ResponseWriter, err error) {
	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		respondError(w, validationErr.Message, http.StatusBadRequest)
		return
	}

	var authErr *apperr.AuthError
	if errors.As(err, &authErr) {
		status := http.StatusInternalServerError
		switch authErr.Code {
		case apperr.CodeEmailAlreadyInUse:
			status = http.StatusConflict
		case apperr.CodeInvalidEmail, apperr.CodeWeakPassword:
			status = http.StatusBadRequest
		case apperr.CodeUserNotFound, apperr.CodeWrongPassword, apperr.CodeUnauthenticated:
			status = http.StatusUnauthorized
		case apperr.CodeTooManyRequests:
			status = http.StatusTooManyRequests
		}
		respondError(w, authErr.Message, status)
		return
	}

	var postErr *apperr.PostError
	if errors.As(err, &postErr) {
		status := http.StatusInternalServerError
		switch postErr.Code {
		case apperr.CodePermissionDenied:
			status = http.StatusForbidden
		case apperr.CodeNotFound:
			status = http.StatusNotFound
		case apperr.CodeResourceExhausted:
			status = http.StatusTooManyRequests
		case apperr.CodeUnauthenticated:
			status = http.StatusUnauthorized
		}
		respondError(w, postErr.Message, status)
		return
	}

	respondError(w, "An error occurred. Please try again.", http.StatusInternalServerError)
}

// resolveUser rebuilds the merged user view for an authenticated uid:
// identity fields first, profile fallbacks second.
func resolveUser(ctx context.Context, identityService *identity.Service, st store.Store, uid string) (*models.User, error) {
	ident, err := identityService.IdentityByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	var profile *models.Profile
	fields, ok, err := st.ReadOne(ctx, store.CollectionUsers, uid)
	if err == nil && ok {
		profile = store.ProfileFromFields(fields)
	}
	return session.MergeUser(ident, profile), nil
}
