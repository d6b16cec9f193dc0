package http

import (
	"encoding/json"
	"net/http"

	httpmiddleware "github.com/assemblymk1/localgov/internal/http/middleware"
	"github.com/assemblymk1/localgov/internal/service"
)

type processRequest struct {
	Title       *string         `json:"title"`
	Category    *string         `json:"category"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	FormData    json.RawMessage `json:"form_data"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListProcesses returns the resident's processes.
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	items, err := h.processes.List(r.Context(), httpmiddleware.ResidentID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "unable to list processes")
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// CreateProcess stores a resident submission.
func (h *Handler) CreateProcess(w http.ResponseWriter, r *http.Request) {
	var payload processRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	p, err := h.processes.Create(r.Context(), httpmiddleware.ResidentID(r.Context()), service.CreateProcessInput{
		Title:       deref(payload.Title),
		Category:    deref(payload.Category),
		Description: payload.Description,
		Status:      deref(payload.Status),
		FormData:    payload.FormData,
	})
	if err != nil {
		writeServiceError(w, r, err, "unable to create process")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"message":    "Process created successfully",
		"process_id": p.ID,
		"process":    p,
	})
}

// GetProcess returns one of the resident's processes.
func (h *Handler) GetProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.processes.Get(r.Context(), httpmiddleware.ResidentID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, "unable to load process")
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// UpdateProcess applies a partial update.
func (h *Handler) UpdateProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload processRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	p, err := h.processes.Update(r.Context(), httpmiddleware.ResidentID(r.Context()), id, service.UpdateProcessInput{
		Title:       payload.Title,
		Category:    payload.Category,
		Description: payload.Description,
		Status:      payload.Status,
		FormData:    payload.FormData,
	})
	if err != nil {
		writeServiceError(w, r, err, "unable to update process")
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// DeleteProcess removes one of the resident's processes.
func (h *Handler) DeleteProcess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.processes.Delete(r.Context(), httpmiddleware.ResidentID(r.Context()), id); err != nil {
		writeServiceError(w, r, err, "unable to delete process")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Process deleted successfully"})
}

// AdminListAll returns every process.
func (h *Handler) AdminListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.processes.AdminListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "unable to list processes")
		return
	}
	WriteJSON(w, http.StatusOK, items)
}

// AdminUpdateStatus overwrites the status of a process.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	p, err := h.processes.AdminUpdateStatus(r.Context(), id, payload.Status)
	if err != nil {
		writeServiceError(w, r, err, "unable to update status")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Status updated",
		"process": p,
	})
}
