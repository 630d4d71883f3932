package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

// ListNotifications — GET /notificaciones?limit=: уведомления вызывающего.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = parseInt32(raw)
		if err != nil {
			apierrors.WriteError(w, r, badRequest("invalid limit"))
			return
		}
	}

	items, err := h.Notifications.ListByUser(r.Context(), id.UserID, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]notificationDTO, 0, len(items))
	for i := range items {
		out = append(out, toNotificationDTO(&items[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"notificaciones": out})
}

// MarkNotificationRead — POST /notificaciones/{id}/leida.
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	notifID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Notifications.MarkRead(r.Context(), notifID, id.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
