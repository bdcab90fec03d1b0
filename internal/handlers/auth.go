package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"framez-backend/internal/identity"
	"framez-backend/internal/metrics"
	"framez-backend/internal/models"
	"framez-backend/internal/session"
	"framez-backend/internal/store"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles sign-up, sign-in and sign-out. Each request gets
// its own short-lived identity client and session manager, so the
// session lifecycle matches the one long-lived clients go through.
type AuthHandler struct {
	identityService *identity.Service
	store           store.Store
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identityService *identity.Service, st store.Store) *AuthHandler {
	return &AuthHandler{
		identityService: identityService,
		store:           st,
	}
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		respondError(w, "display_name is required", http.StatusBadRequest)
		return
	}

	client := identity.NewClient(h.identityService)
	manager := session.NewManager(client, h.store)
	defer manager.Close()

	if err := manager.SignUp(r.Context(), req.Email, req.Password, req.DisplayName); err != nil {
		metrics.AuthFailures.Inc()
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to sign up")
		respondTaxonomyError(w, err)
		return
	}

	user, _ := manager.CurrentUser()
	log.Info().Str("user_id", user.UID).Msg("User signed up")
	respondJSON(w, http.StatusCreated, authResponse{Token: client.Token(), User: user})
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	client := identity.NewClient(h.identityService)
	manager := session.NewManager(client, h.store)
	defer manager.Close()

	if err := manager.SignIn(r.Context(), req.Email, req.Password); err != nil {
		metrics.AuthFailures.Inc()
		log.Warn().Err(err).Str("email", req.Email).Msg("Failed to sign in")
		respondTaxonomyError(w, err)
		return
	}

	user, _ := manager.CurrentUser()
	log.Info().Str("user_id", user.UID).Msg("User signed in")
	respondJSON(w, http.StatusOK, authResponse{Token: client.Token(), User: user})
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 {
		respondError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := h.identityService.SignOut(r.Context(), parts[1]); err != nil {
		log.Error().Err(err).Msg("Failed to sign out")
		respondTaxonomyError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
