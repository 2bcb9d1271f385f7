package handler

import (
	"log/slog"
	"net/http"

	"github.com/palmmar/prommis/internal/auth"
	"github.com/palmmar/prommis/internal/service"
)

// GroupHandler serves the group endpoints: listing, creation, the detail
// page, member removal and ownership transfer.
type GroupHandler struct {
	groups *service.GroupService
	logger *slog.Logger
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(groups *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

// HandleList returns the groups the caller belongs to.
//
// HTTP: GET /api/groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	overviews, err := h.groups.ListMine(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviews)
}

// HandleCreate creates a group owned by the caller.
//
// HTTP: POST /api/groups
// BODY: {"name": "Walking club"}
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := h.groups.Create(r.Context(), identity.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// HandleDetails returns the full group page: members, active invites and
// the combined charts.
//
// HTTP: GET /api/groups/{id}
func (h *GroupHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	details, err := h.groups.Details(r.Context(), identity.UserID, identity.IsAdmin, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// HandleRemoveMember removes a member from a group.
//
// HTTP: DELETE /api/groups/{id}/members/{userId}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	err := h.groups.RemoveMember(r.Context(),
		identity.UserID, identity.IsAdmin, r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransfer hands the group to another member.
//
// HTTP: POST /api/groups/{id}/transfer
// BODY: {"newOwnerId": "..."}
func (h *GroupHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req struct {
		NewOwnerID string `json:"newOwnerId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.groups.TransferOwnership(r.Context(), identity.UserID, r.PathValue("id"), req.NewOwnerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAll returns every group on the platform. The route sits behind
// the admin middleware; the service checks the role again anyway.
//
// HTTP: GET /api/admin/groups
func (h *GroupHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	overviews, err := h.groups.ListAll(r.Context(), identity.IsAdmin)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviews)
}
