package http

import (
	"net/http"

	httpmiddleware "github.com/assemblymk1/localgov/internal/http/middleware"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a resident and returns a token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.auth.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err, "registration failed")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Resident registered successfully",
		"token":   result.Token,
	})
}

// Login checks credentials and returns a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, r, err, "login failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   result.Token,
	})
}

// Profile returns the authenticated resident.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.auth.Profile(r.Context(), httpmiddleware.ResidentID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "unable to load profile")
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}
