package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/service/appointments"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

type createAppointmentRequest struct {
	DoctorID string `json:"medicoId"`
	StartsAt string `json:"inicio"`
	Type     string `json:"tipo"`
	Reason   string `json:"motivo"`
}

// CreateAppointment — POST /citas: пациент бронирует слот.
func (h *Handlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in createAppointmentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, badRequest("malformed body"))
		return
	}

	doctorID, err := parseUUID(in.DoctorID, "medicoId")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	startsAt, err := time.Parse(time.RFC3339, in.StartsAt)
	if err != nil {
		apierrors.WriteError(w, r, badRequest("invalid inicio"))
		return
	}

	appt, err := h.Appointments.Create(r.Context(), appointments.CreateParams{
		PatientID: id.UserID,
		DoctorID:  doctorID,
		StartsAt:  startsAt,
		Type:      models.ConsultType(in.Type),
		Reason:    in.Reason,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentDTO(appt))
}

// MyAppointments — GET /citas: записи текущего пациента.
func (h *Handlers) MyAppointments(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items, err := h.Appointments.ListByPatient(r.Context(), id.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"citas": toAppointmentDTOs(items)})
}

// CancelAppointment — DELETE /citas/{id}.
func (h *Handlers) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	apptID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	appt, err := h.Appointments.Cancel(r.Context(), apptID, id.UserID, id.Role)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentDTO(appt))
}

// CompleteAppointment — POST /citas/{id}/completar: врач закрывает приём.
func (h *Handlers) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	apptID, err := pathUUID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	appt, err := h.Appointments.Complete(r.Context(), apptID, id.UserID, id.Role)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentDTO(appt))
}

// Agenda — GET /citas/agenda?fecha=2006-01-02: расписание врача на день.
func (h *Handlers) Agenda(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("fecha"))
	if err != nil {
		apierrors.WriteError(w, r, badRequest("invalid fecha"))
		return
	}

	items, err := h.Appointments.Agenda(r.Context(), id.UserID, day)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"citas": toAppointmentDTOs(items)})
}
