package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/assemblymk1/localgov/internal/service"
)

// ErrorBody is the JSON shape of every failure.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WriteJSON writes data as the bare response body.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a normalised error body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Message: message, Code: code})
}

// writeServiceError maps service errors onto the HTTP taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, "VALIDATION", verr.Message)
	case errors.Is(err, service.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error())
	case errors.Is(err, service.ErrResidentNotFound), errors.Is(err, service.ErrProcessNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		log.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg(fallback)
		WriteError(w, http.StatusInternalServerError, "INTERNAL", fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid id")
		return 0, false
	}
	return id, true
}
