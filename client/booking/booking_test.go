package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/client"
)

// stubAPI — подменный API с управляемыми ответами.
type stubAPI struct {
	doctors   []client.User
	slots     []time.Time
	appt      *client.Appointment
	createErr error

	created []client.CreateAppointmentParams
}

func (s *stubAPI) Doctors(context.Context) ([]client.User, error) {
	return s.doctors, nil
}

func (s *stubAPI) DoctorSlots(_ context.Context, _ string, _ time.Time) ([]time.Time, error) {
	return s.slots, nil
}

func (s *stubAPI) CreateAppointment(_ context.Context, p client.CreateAppointmentParams) (*client.Appointment, error) {
	s.created = append(s.created, p)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.appt, nil
}

func tomorrowAt(hh int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), hh, 0, 0, 0, time.UTC)
}

func runToConfirm(t *testing.T, w *Wizard) time.Time {
	t.Helper()

	slot := tomorrowAt(10)
	require.NoError(t, w.SelectDoctor("d1"))
	require.NoError(t, w.SelectDate(slot.Truncate(24*time.Hour)))
	require.NoError(t, w.SelectSlot(slot, ConsultVideo, "control anual"))
	require.Equal(t, StepConfirm, w.Step())
	return slot
}

func TestWizard_HappyPath(t *testing.T) {
	t.Parallel()

	api := &stubAPI{appt: &client.Appointment{ID: "c1", Status: "PROGRAMADA"}}
	w := NewWizard(api)
	require.Equal(t, StepDoctor, w.Step())

	slot := runToConfirm(t, w)

	appt, err := w.Confirm(context.Background())
	require.NoError(t, err)
	require.Equal(t, "c1", appt.ID)
	require.Equal(t, StepDone, w.Step())

	// Черновик сброшен по завершении.
	require.Empty(t, w.Draft().DoctorID)

	require.Len(t, api.created, 1)
	require.Equal(t, slot.Format(time.RFC3339), api.created[0].StartsAt)
	require.Equal(t, ConsultVideo, api.created[0].Type)
}

func TestWizard_OutOfOrder(t *testing.T) {
	t.Parallel()

	w := NewWizard(&stubAPI{})

	require.ErrorIs(t, w.SelectDate(tomorrowAt(0)), ErrOutOfOrder)
	require.ErrorIs(t, w.SelectSlot(tomorrowAt(10), ConsultVideo, ""), ErrOutOfOrder)

	_, err := w.Confirm(context.Background())
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestWizard_Validation(t *testing.T) {
	t.Parallel()

	w := NewWizard(&stubAPI{})

	require.ErrorIs(t, w.SelectDoctor(""), ErrInvalidInput)
	require.NoError(t, w.SelectDoctor("d1"))

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	require.ErrorIs(t, w.SelectDate(yesterday), ErrInvalidInput)
	require.NoError(t, w.SelectDate(tomorrowAt(0)))

	// Тип консультации — закрытый список.
	require.ErrorIs(t, w.SelectSlot(tomorrowAt(10), "TELEPATIA", ""), ErrInvalidInput)
	// Слот должен попадать в выбранный день.
	otherDay := tomorrowAt(10).AddDate(0, 0, 3)
	require.ErrorIs(t, w.SelectSlot(otherDay, ConsultVideo, ""), ErrInvalidInput)
}

// Отказ по лимиту — отдельная ошибка, мастер остаётся на подтверждении.
func TestWizard_LimitReached_SurfacedDistinctly(t *testing.T) {
	t.Parallel()

	api := &stubAPI{createErr: &client.APIError{
		Status:  422,
		Code:    client.CodeAppointmentLimit,
		Message: "active appointment limit reached",
	}}
	w := NewWizard(api)
	runToConfirm(t, w)

	_, err := w.Confirm(context.Background())
	require.ErrorIs(t, err, ErrLimitReached)
	require.Equal(t, StepConfirm, w.Step())

	// Черновик не потерян: пользователь может отменить другую запись
	// и подтвердить ещё раз.
	require.Equal(t, "d1", w.Draft().DoctorID)
}

func TestWizard_Reset(t *testing.T) {
	t.Parallel()

	w := NewWizard(&stubAPI{})
	runToConfirm(t, w)

	w.Reset()
	require.Equal(t, StepDoctor, w.Step())
	require.Empty(t, w.Draft().DoctorID)
}
