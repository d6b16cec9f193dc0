package http

import (
	"net/http"

	httpmiddleware "github.com/assemblymk1/localgov/internal/http/middleware"
)

// Dashboard returns the per-category records of the resident.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Get(r.Context(), httpmiddleware.ResidentID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "unable to load dashboard")
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// RatesProperties returns the resident's properties with their rates details.
func (h *Handler) RatesProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.rates.ListProperties(r.Context(), httpmiddleware.ResidentID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "unable to load properties")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"properties": props})
}
