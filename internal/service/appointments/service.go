// appointments содержит бизнес-логику записи на приём:
// бронирование слотов в расписании врача, отмену, списки для
// пациента и врача, расчёт свободных слотов.
//
// Слоты дискретны (cfg.SlotMinutes) и лежат в рабочем окне врача
// [DayStart, DayEnd) в UTC. Занятость слота гарантирует частичный
// уникальный индекс в Postgres — сервисная проверка лишь даёт
// быстрый отказ до вставки.
package appointments

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

var (
	// ErrDoctorNotFound — врач не найден или это не врач. Транспорт: HTTP 404.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrAppointmentNotFound — запись на приём не найдена. Транспорт: HTTP 404.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPastDate — дата приёма в прошлом. Транспорт: HTTP 400.
	ErrPastDate = errors.New("appointment date is in the past")

	// ErrOffSchedule — время вне рабочего окна или не на границе слота.
	// Транспорт: HTTP 400.
	ErrOffSchedule = errors.New("time is off the doctor's schedule")

	// ErrInvalidConsultType — неизвестный тип консультации. Транспорт: HTTP 400.
	ErrInvalidConsultType = errors.New("invalid consult type")

	// ErrSlotTaken — слот уже занят другим пациентом. Транспорт: HTTP 409.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrAppointmentLimit — достигнут лимит активных записей пациента.
	// Отдельный стабильный код на транспорте: фронт ветвится на нём
	// (предложение тарифа), поэтому ошибка типизирована, а не зашита строкой.
	// Транспорт: HTTP 422.
	ErrAppointmentLimit = errors.New("active appointment limit reached")

	// ErrPermissionDenied — операция доступна владельцу записи или админу.
	// Транспорт: HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotCancellable — отменить можно только запланированную запись.
	// Транспорт: HTTP 409.
	ErrNotCancellable = errors.New("appointment is not cancellable")
)

// Service описывает бизнес-логику записей на приём.
type Service struct {
	storage  storage.Storage
	cfg      config.AppointmentsConfig
	notifier Notifier // может быть nil — уведомления опциональны

	dayStart time.Duration // смещение начала рабочего окна от полуночи
	dayEnd   time.Duration
	slot     time.Duration
}

// New создаёт новый экземпляр Service.
// Ошибка конфигурации рабочего окна — ошибка старта, не рантайма.
func New(st storage.Storage, cfg config.AppointmentsConfig) (*Service, error) {
	const op = "service.appointments.New"

	start, err := parseClock(cfg.DayStart)
	if err != nil {
		return nil, fmt.Errorf("%s: day_start: %w", op, err)
	}

	end, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: day_end: %w", op, err)
	}

	slot := time.Duration(cfg.SlotMinutes) * time.Minute
	if slot <= 0 || end <= start {
		return nil, fmt.Errorf("%s: invalid schedule window", op)
	}

	return &Service{
		storage:  st,
		cfg:      cfg,
		dayStart: start,
		dayEnd:   end,
		slot:     slot,
	}, nil
}

// SetNotifier подключает отправку уведомлений о создании/отмене записи.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// parseClock разбирает "HH:MM" в смещение от полуночи.
func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}

	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
