// booking — мастер записи на приём: типизированная пошаговая машина
// врач -> дата -> время -> подтверждение. Черновик живёт только внутри
// мастера и сбрасывается по завершении.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-telemed/client"
)

// Step — текущий шаг мастера.
type Step string

const (
	StepDoctor  Step = "doctor"
	StepDate    Step = "fecha"
	StepTime    Step = "hora"
	StepConfirm Step = "confirmacion"
	StepDone    Step = "done"
)

// Типы консультаций, принимаемые сервером.
const (
	ConsultVideo    = "VIDEOCONSULTA"
	ConsultInPerson = "PRESENCIAL"
)

var (
	// ErrOutOfOrder — операция не соответствует текущему шагу.
	ErrOutOfOrder = errors.New("step out of order")
	// ErrInvalidInput — входные данные шага не проходят проверку.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLimitReached — сервер отказал по лимиту активных записей;
	// фронт открывает на этой ошибке сценарий расширенного тарифа.
	ErrLimitReached = errors.New("active appointment limit reached")
)

// Draft — черновик записи, заполняемый по шагам.
type Draft struct {
	DoctorID string
	Day      time.Time
	Slot     time.Time
	Type     string
	Reason   string
}

// API — операции SDK, нужные мастеру. Реализуется *client.Client.
type API interface {
	Doctors(ctx context.Context) ([]client.User, error)
	DoctorSlots(ctx context.Context, doctorID string, day time.Time) ([]time.Time, error)
	CreateAppointment(ctx context.Context, p client.CreateAppointmentParams) (*client.Appointment, error)
}

// Wizard — машина шагов записи. Не потокобезопасна: мастер живёт
// в одном UI-потоке.
type Wizard struct {
	api   API
	step  Step
	draft Draft
}

func NewWizard(api API) *Wizard {
	return &Wizard{api: api, step: StepDoctor}
}

func (w *Wizard) Step() Step   { return w.step }
func (w *Wizard) Draft() Draft { return w.draft }

// Doctors возвращает врачей для первого шага.
func (w *Wizard) Doctors(ctx context.Context) ([]client.User, error) {
	return w.api.Doctors(ctx)
}

// SelectDoctor фиксирует врача и переводит мастер к выбору даты.
func (w *Wizard) SelectDoctor(doctorID string) error {
	if w.step != StepDoctor {
		return fmt.Errorf("select doctor: %w", ErrOutOfOrder)
	}
	if doctorID == "" {
		return fmt.Errorf("select doctor: %w", ErrInvalidInput)
	}

	w.draft.DoctorID = doctorID
	w.step = StepDate
	return nil
}

// SelectDate фиксирует день приёма. Прошедшие дни отклоняются.
func (w *Wizard) SelectDate(day time.Time) error {
	if w.step != StepDate {
		return fmt.Errorf("select date: %w", ErrOutOfOrder)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return fmt.Errorf("select date: %w", ErrInvalidInput)
	}

	w.draft.Day = day
	w.step = StepTime
	return nil
}

// AvailableSlots возвращает свободные слоты выбранного врача на
// выбранный день.
func (w *Wizard) AvailableSlots(ctx context.Context) ([]time.Time, error) {
	if w.step != StepTime {
		return nil, fmt.Errorf("available slots: %w", ErrOutOfOrder)
	}
	return w.api.DoctorSlots(ctx, w.draft.DoctorID, w.draft.Day)
}

// SelectSlot фиксирует время, тип консультации и причину обращения.
func (w *Wizard) SelectSlot(slot time.Time, consultType, reason string) error {
	if w.step != StepTime {
		return fmt.Errorf("select slot: %w", ErrOutOfOrder)
	}
	if consultType != ConsultVideo && consultType != ConsultInPerson {
		return fmt.Errorf("select slot: %w", ErrInvalidInput)
	}
	if slot.IsZero() || !sameDay(slot, w.draft.Day) {
		return fmt.Errorf("select slot: %w", ErrInvalidInput)
	}

	w.draft.Slot = slot
	w.draft.Type = consultType
	w.draft.Reason = reason
	w.step = StepConfirm
	return nil
}

// Confirm отправляет бронь. Успех завершает мастер и сбрасывает
// черновик; отказ по лимиту приходит как ErrLimitReached, мастер
// остаётся на подтверждении.
func (w *Wizard) Confirm(ctx context.Context) (*client.Appointment, error) {
	if w.step != StepConfirm {
		return nil, fmt.Errorf("confirm: %w", ErrOutOfOrder)
	}

	appt, err := w.api.CreateAppointment(ctx, client.CreateAppointmentParams{
		DoctorID: w.draft.DoctorID,
		StartsAt: w.draft.Slot.UTC().Format(time.RFC3339),
		Type:     w.draft.Type,
		Reason:   w.draft.Reason,
	})
	if err != nil {
		if client.IsAppointmentLimit(err) {
			return nil, fmt.Errorf("confirm: %w", ErrLimitReached)
		}
		return nil, fmt.Errorf("confirm: %w", err)
	}

	w.draft = Draft{}
	w.step = StepDone
	return appt, nil
}

// Reset возвращает мастер к первому шагу с пустым черновиком.
func (w *Wizard) Reset() {
	w.draft = Draft{}
	w.step = StepDoctor
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
