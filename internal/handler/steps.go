// Package handler translates HTTP requests into service calls and domain
// errors back into status codes. Handlers stay thin: decode, call, encode.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/palmmar/prommis/internal/auth"
	"github.com/palmmar/prommis/internal/service"
)

// StepHandler serves the step logging endpoints.
type StepHandler struct {
	steps  *service.StepService
	logger *slog.Logger
}

// NewStepHandler creates a StepHandler.
func NewStepHandler(steps *service.StepService, logger *slog.Logger) *StepHandler {
	return &StepHandler{steps: steps, logger: logger}
}

type stepRequest struct {
	Steps int `json:"steps"`
}

// HandleCreate logs a step entry for today.
//
// HTTP: POST /api/steps
// BODY: {"steps": 8000}
func (h *StepHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req stepRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.steps.Add(r.Context(), identity.UserID, req.Steps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleUpdate changes the step count of one of today's own entries.
//
// HTTP: PUT /api/steps/{id}
// BODY: {"steps": 9500}
func (h *StepHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "entry id is required",
		})
		return
	}

	var req stepRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.steps.Edit(r.Context(), identity.UserID, id, req.Steps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDelete removes one of today's own entries.
//
// HTTP: DELETE /api/steps/{id}
func (h *StepHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "entry id is required",
		})
		return
	}

	if err := h.steps.Delete(r.Context(), identity.UserID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
