package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// Notifier — уведомления о событиях записи на приём.
// Реализуется сервисом notifications; ошибки доставки не влияют
// на результат операции.
type Notifier interface {
	AppointmentCreated(ctx context.Context, a *models.Appointment)
	AppointmentCancelled(ctx context.Context, a *models.Appointment)
}

// CreateParams — данные бронирования слота.
type CreateParams struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time
	Type      models.ConsultType
	Reason    string
}

// Create бронирует слот у врача.
//
// Порядок проверок: тип консультации, врач (существует, роль MEDICO,
// активен), время (будущее, в рабочем окне, на границе слота),
// лимит активных записей пациента, занятость слота. Гонку на слоте
// закрывает уникальный индекс — ErrAlreadyExists от хранилища
// маппится в ErrSlotTaken.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Appointment, error) {
	const op = "service.appointments.Create"

	lg := log.From(ctx).With("op", op, "doctor_id", p.DoctorID.String())

	if !p.Type.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidConsultType)
	}

	doctor, err := s.storage.UserByID(ctx, p.DoctorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrDoctorNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if doctor.Role != models.RoleDoctor || !doctor.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrDoctorNotFound)
	}

	startsAt := p.StartsAt.UTC()
	now := time.Now().UTC()

	if !startsAt.After(now) {
		return nil, fmt.Errorf("%s: %w", op, ErrPastDate)
	}

	if !s.onSlotBoundary(startsAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrOffSchedule)
	}

	active, err := s.storage.CountActiveByPatient(ctx, p.PatientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if active >= s.cfg.ActiveLimit {
		return nil, fmt.Errorf("%s: %w", op, ErrAppointmentLimit)
	}

	appointment := &models.Appointment{
		ID:        uuid.New(),
		PatientID: p.PatientID,
		DoctorID:  p.DoctorID,
		StartsAt:  startsAt,
		Type:      p.Type,
		Reason:    p.Reason,
		Status:    models.AppointmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveAppointment(ctx, appointment); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrSlotTaken)
		}

		lg.Error("save_appointment_failed", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.notifier != nil {
		s.notifier.AppointmentCreated(ctx, appointment)
	}

	return appointment, nil
}

// Cancel отменяет запись. Разрешено владельцу-пациенту, врачу записи
// и администратору; отменить можно только запланированную запись.
func (s *Service) Cancel(ctx context.Context, id, actorID uuid.UUID, actorRole models.Role) (*models.Appointment, error) {
	const op = "service.appointments.Cancel"

	appointment, err := s.storage.AppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	allowed := actorRole == models.RoleAdmin ||
		appointment.PatientID == actorID ||
		appointment.DoctorID == actorID
	if !allowed {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if appointment.Status != models.AppointmentScheduled {
		return nil, fmt.Errorf("%s: %w", op, ErrNotCancellable)
	}

	cancelled, err := s.storage.UpdateAppointmentStatus(ctx, id, models.AppointmentCancelled)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.notifier != nil {
		s.notifier.AppointmentCancelled(ctx, cancelled)
	}

	return cancelled, nil
}

// Complete переводит запись в статус COMPLETADA (врач записи или админ).
// Завершённая запись открывает пациенту возможность оставить отзыв.
func (s *Service) Complete(ctx context.Context, id, actorID uuid.UUID, actorRole models.Role) (*models.Appointment, error) {
	const op = "service.appointments.Complete"

	appointment, err := s.storage.AppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if actorRole != models.RoleAdmin && appointment.DoctorID != actorID {
		return nil, fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if appointment.Status != models.AppointmentScheduled {
		return nil, fmt.Errorf("%s: %w", op, ErrNotCancellable)
	}

	completed, err := s.storage.UpdateAppointmentStatus(ctx, id, models.AppointmentCompleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return completed, nil
}

// ListByPatient возвращает записи пациента (новые сверху).
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	const op = "service.appointments.ListByPatient"

	items, err := s.storage.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// Agenda возвращает записи врача за день (по возрастанию времени).
func (s *Service) Agenda(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]models.Appointment, error) {
	const op = "service.appointments.Agenda"

	items, err := s.storage.ListByDoctorDay(ctx, doctorID, day.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// AvailableSlots возвращает свободные слоты врача за день:
// сетка рабочего окна минус занятые и минус уже прошедшие.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]time.Time, error) {
	const op = "service.appointments.AvailableSlots"

	doctor, err := s.storage.UserByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrDoctorNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if doctor.Role != models.RoleDoctor || !doctor.Active {
		return nil, fmt.Errorf("%s: %w", op, ErrDoctorNotFound)
	}

	taken, err := s.storage.TakenSlots(ctx, doctorID, day.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	busy := make(map[time.Time]struct{}, len(taken))
	for _, t := range taken {
		busy[t.UTC()] = struct{}{}
	}

	now := time.Now().UTC()
	midnight := day.UTC().Truncate(24 * time.Hour)

	var free []time.Time
	for off := s.dayStart; off < s.dayEnd; off += s.slot {
		slot := midnight.Add(off)
		if !slot.After(now) {
			continue
		}

		if _, ok := busy[slot]; ok {
			continue
		}

		free = append(free, slot)
	}

	return free, nil
}

// onSlotBoundary проверяет, что t лежит в рабочем окне и на границе слота.
func (s *Service) onSlotBoundary(t time.Time) bool {
	midnight := t.Truncate(24 * time.Hour)
	off := t.Sub(midnight)

	if off < s.dayStart || off >= s.dayEnd {
		return false
	}

	return (off-s.dayStart)%s.slot == 0
}
