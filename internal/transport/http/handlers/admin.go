package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/service/audit"
	"github.com/pribylovaa/go-telemed/internal/storage"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

// ListUsers — GET /admin/usuarios?rol=&activo=&limit=&offset=.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	var filter storage.UserFilter

	q := r.URL.Query()
	if raw := q.Get("rol"); raw != "" {
		role := models.Role(raw)
		filter.Role = &role
	}
	if raw := q.Get("activo"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	var err error
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = parseInt32(raw); err != nil {
			apierrors.WriteError(w, r, badRequest("invalid limit"))
			return
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if filter.Offset, err = parseInt32(raw); err != nil {
			apierrors.WriteError(w, r, badRequest("invalid offset"))
			return
		}
	}

	users, err := h.Admin.ListUsers(r.Context(), filter)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"usuarios": out})
}

type patchUserRequest struct {
	Active *bool   `json:"activo"`
	Role   *string `json:"rol"`
}

// PatchUser — PATCH /admin/usuarios/{id}: активация/деактивация и
// смена роли. Оба поля опциональны, применяются по очереди.
func (h *Handlers) PatchUser(w http.ResponseWriter, r *http.Request) {
	actor, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	userID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in patchUserRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}
	if in.Active == nil && in.Role == nil {
		apierrors.WriteError(w, r, badRequest("empty patch"))
		return
	}

	var user *models.User

	if in.Active != nil {
		user, err = h.Admin.SetActive(r.Context(), actor.UserID, userID, *in.Active)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		action := "admin.user.activate"
		if !*in.Active {
			action = "admin.user.deactivate"
		}
		h.Audit.Record(r.Context(), audit.Event{
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Action:     action,
			Entity:     "user",
			EntityID:   userID.String(),
		})
	}

	if in.Role != nil {
		user, err = h.Admin.SetRole(r.Context(), actor.UserID, userID, models.Role(*in.Role))
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		h.Audit.Record(r.Context(), audit.Event{
			ActorID:    actor.UserID,
			ActorEmail: actor.Email,
			Action:     "admin.user.set_role",
			Entity:     "user",
			EntityID:   userID.String(),
			Detail:     *in.Role,
		})
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// AuditLog — GET /admin/auditoria?actorId=&accion=&desde=&hasta=&limit=.
func (h *Handlers) AuditLog(w http.ResponseWriter, r *http.Request) {
	var filter storage.AuditFilter

	q := r.URL.Query()
	if raw := q.Get("actorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apierrors.WriteError(w, r, badRequest("invalid actorId"))
			return
		}
		filter.ActorID = &id
	}
	filter.Action = q.Get("accion")
	var err error
	if raw := q.Get("desde"); raw != "" {
		if filter.From, err = time.Parse(time.RFC3339, raw); err != nil {
			apierrors.WriteError(w, r, badRequest("invalid desde"))
			return
		}
	}
	if raw := q.Get("hasta"); raw != "" {
		if filter.To, err = time.Parse(time.RFC3339, raw); err != nil {
			apierrors.WriteError(w, r, badRequest("invalid hasta"))
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if filter.Limit, err = parseInt32(raw); err != nil {
			apierrors.WriteError(w, r, badRequest("invalid limit"))
			return
		}
	}

	events, err := h.Audit.List(r.Context(), filter)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]auditEventDTO, 0, len(events))
	for i := range events {
		out = append(out, toAuditEventDTO(&events[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"eventos": out})
}
