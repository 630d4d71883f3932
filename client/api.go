package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Doctors возвращает активных врачей (публичный эндпойнт).
func (c *Client) Doctors(ctx context.Context) ([]User, error) {
	const op = "client.Doctors"

	var resp struct {
		Doctors []User `json:"medicos"`
	}
	if err := c.do(ctx, c.plain, http.MethodGet, "/medicos", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Doctors, nil
}

// DoctorSlots возвращает свободные слоты врача на день.
func (c *Client) DoctorSlots(ctx context.Context, doctorID string, day time.Time) ([]time.Time, error) {
	const op = "client.DoctorSlots"

	path := query("/medicos/"+doctorID+"/horarios", map[string]string{
		"fecha": day.Format("2006-01-02"),
	})

	var resp struct {
		Slots []string `json:"horarios"`
	}
	if err := c.do(ctx, c.plain, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]time.Time, 0, len(resp.Slots))
	for _, raw := range resp.Slots {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// DoctorReviews возвращает страницу отзывов о враче.
func (c *Client) DoctorReviews(ctx context.Context, doctorID, pageToken string, pageSize int32) (*ReviewPage, error) {
	const op = "client.DoctorReviews"

	kv := map[string]string{"pageToken": pageToken}
	if pageSize > 0 {
		kv["pageSize"] = strconv.FormatInt(int64(pageSize), 10)
	}

	var page ReviewPage
	if err := c.do(ctx, c.plain, http.MethodGet, query("/medicos/"+doctorID+"/resenas", kv), nil, &page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &page, nil
}

// CreateAppointmentParams — бронирование слота.
type CreateAppointmentParams struct {
	DoctorID string `json:"medicoId"`
	StartsAt string `json:"inicio"`
	Type     string `json:"tipo"`
	Reason   string `json:"motivo,omitempty"`
}

// CreateAppointment бронирует слот. Лимит активных записей приходит
// как *APIError с кодом limite_citas — см. IsAppointmentLimit.
func (c *Client) CreateAppointment(ctx context.Context, p CreateAppointmentParams) (*Appointment, error) {
	const op = "client.CreateAppointment"

	var appt Appointment
	if err := c.do(ctx, c.authed, http.MethodPost, "/citas", p, &appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &appt, nil
}

// MyAppointments возвращает записи текущего пациента.
func (c *Client) MyAppointments(ctx context.Context) ([]Appointment, error) {
	const op = "client.MyAppointments"

	var resp struct {
		Items []Appointment `json:"citas"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, "/citas", nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Items, nil
}

// CancelAppointment отменяет запись.
func (c *Client) CancelAppointment(ctx context.Context, id string) (*Appointment, error) {
	const op = "client.CancelAppointment"

	var appt Appointment
	if err := c.do(ctx, c.authed, http.MethodDelete, "/citas/"+id, nil, &appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &appt, nil
}

// CompleteAppointment закрывает приём (врач).
func (c *Client) CompleteAppointment(ctx context.Context, id string) (*Appointment, error) {
	const op = "client.CompleteAppointment"

	var appt Appointment
	if err := c.do(ctx, c.authed, http.MethodPost, "/citas/"+id+"/completar", nil, &appt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &appt, nil
}

// Agenda возвращает расписание врача на день (врач).
func (c *Client) Agenda(ctx context.Context, day time.Time) ([]Appointment, error) {
	const op = "client.Agenda"

	path := query("/citas/agenda", map[string]string{"fecha": day.Format("2006-01-02")})

	var resp struct {
		Items []Appointment `json:"citas"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Items, nil
}

// CreateReviewParams — отзыв по завершённому приёму.
type CreateReviewParams struct {
	AppointmentID string `json:"citaId"`
	Rating        int32  `json:"calificacion"`
	Comment       string `json:"comentario,omitempty"`
}

func (c *Client) CreateReview(ctx context.Context, p CreateReviewParams) (*Review, error) {
	const op = "client.CreateReview"

	var review Review
	if err := c.do(ctx, c.authed, http.MethodPost, "/resenas", p, &review); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &review, nil
}

// Notifications возвращает ленту уведомлений.
func (c *Client) Notifications(ctx context.Context, limit int32) ([]Notification, error) {
	const op = "client.Notifications"

	kv := map[string]string{}
	if limit > 0 {
		kv["limit"] = strconv.FormatInt(int64(limit), 10)
	}

	var resp struct {
		Items []Notification `json:"notificaciones"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, query("/notificaciones", kv), nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Items, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	const op = "client.MarkNotificationRead"

	if err := c.do(ctx, c.authed, http.MethodPost, "/notificaciones/"+id+"/leida", nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AdminListUsers возвращает пользователей по фильтру (админ).
func (c *Client) AdminListUsers(ctx context.Context, role string, limit, offset int32) ([]User, error) {
	const op = "client.AdminListUsers"

	kv := map[string]string{"rol": role}
	if limit > 0 {
		kv["limit"] = strconv.FormatInt(int64(limit), 10)
	}
	if offset > 0 {
		kv["offset"] = strconv.FormatInt(int64(offset), 10)
	}

	var resp struct {
		Users []User `json:"usuarios"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, query("/admin/usuarios", kv), nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Users, nil
}

// AdminPatchUserParams — активация/деактивация и смена роли.
type AdminPatchUserParams struct {
	Active *bool   `json:"activo,omitempty"`
	Role   *string `json:"rol,omitempty"`
}

func (c *Client) AdminPatchUser(ctx context.Context, id string, p AdminPatchUserParams) (*User, error) {
	const op = "client.AdminPatchUser"

	var user User
	if err := c.do(ctx, c.authed, http.MethodPatch, "/admin/usuarios/"+id, p, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// AdminAudit возвращает журнал аудита (админ).
func (c *Client) AdminAudit(ctx context.Context, action string, limit int32) ([]AuditEvent, error) {
	const op = "client.AdminAudit"

	kv := map[string]string{"accion": action}
	if limit > 0 {
		kv["limit"] = strconv.FormatInt(int64(limit), 10)
	}

	var resp struct {
		Events []AuditEvent `json:"eventos"`
	}
	if err := c.do(ctx, c.authed, http.MethodGet, query("/admin/auditoria", kv), nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Events, nil
}
