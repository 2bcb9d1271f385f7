package handler

import (
	"log/slog"
	"net/http"

	"github.com/palmmar/prommis/internal/auth"
	"github.com/palmmar/prommis/internal/service"
)

// InviteHandler serves the invitation endpoints.
type InviteHandler struct {
	invites *service.InviteService
	logger  *slog.Logger
}

// NewInviteHandler creates an InviteHandler.
func NewInviteHandler(invites *service.InviteService, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{invites: invites, logger: logger}
}

// HandleCreate issues a new invitation for a group.
//
// HTTP: POST /api/groups/{id}/invites
func (h *InviteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	invite, err := h.invites.Create(r.Context(), identity.UserID, identity.IsAdmin, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

// HandlePreview shows which group a token opens, without consuming it.
//
// HTTP: GET /api/invites/{token}
func (h *InviteHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.invites.Preview(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// HandleAccept consumes a token and enrolls the caller in its group.
//
// HTTP: POST /api/invites/{token}/accept
func (h *InviteHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	groupID, err := h.invites.Accept(r.Context(), identity.UserID, r.PathValue("token"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"groupId": groupID})
}
