package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

// Doctors — GET /medicos: активные врачи для выбора при записи.
func (h *Handlers) Doctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.Auth.Doctors(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]userDTO, 0, len(doctors))
	for i := range doctors {
		out = append(out, toUserDTO(&doctors[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"medicos": out})
}

// DoctorSlots — GET /medicos/{id}/horarios?fecha=2026-09-01:
// свободные слоты врача на день.
func (h *Handlers) DoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("fecha"))
	if err != nil {
		apierrors.WriteError(w, r, badRequest("invalid fecha"))
		return
	}

	slots, err := h.Appointments.AvailableSlots(r.Context(), doctorID, day)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format(time.RFC3339))
	}

	writeJSON(w, http.StatusOK, map[string]any{"horarios": out})
}

// DoctorReviews — GET /medicos/{id}/resenas?pageSize=&pageToken=:
// отзывы о враче со сводкой рейтинга.
func (h *Handlers) DoctorReviews(w http.ResponseWriter, r *http.Request) {
	doctorID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	params := models.ListParams{PageToken: r.URL.Query().Get("pageToken")}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		size, err := parseInt32(raw)
		if err != nil {
			apierrors.WriteError(w, r, badRequest("invalid pageSize"))
			return
		}
		params.PageSize = size
	}

	page, err := h.Reviews.ListByDoctor(r.Context(), doctorID, params)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	avg, count, err := h.Reviews.RatingSummary(r.Context(), doctorID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items := make([]reviewDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toReviewDTO(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resenas":       items,
		"nextPageToken": page.NextPageToken,
		"calificacion":  avg,
		"total":         count,
	})
}
