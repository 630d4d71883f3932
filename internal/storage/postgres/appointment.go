package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

const appointmentColumns = `
	id, patient_id, doctor_id, starts_at, consult_type, reason, status,
	created_at, updated_at
`

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartsAt,
		&a.Type,
		&a.Reason,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// SaveAppointment создаёт запись на приём.
// Занятость слота обеспечивает частичный уникальный индекс
// (doctor_id, starts_at) WHERE status <> 'CANCELADA'.
func (s *Storage) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	const op = "storage.postgres.SaveAppointment"

	query := `
		INSERT INTO appointments(id, patient_id, doctor_id, starts_at,
			consult_type, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		a.ID,
		a.PatientID,
		a.DoctorID,
		a.StartsAt,
		a.Type,
		a.Reason,
		a.Status,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AppointmentByID возвращает запись по ID.
func (s *Storage) AppointmentByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	const op = "storage.postgres.AppointmentByID"

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// UpdateAppointmentStatus меняет статус записи.
func (s *Storage) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) (*models.Appointment, error) {
	const op = "storage.postgres.UpdateAppointmentStatus"

	query := `UPDATE appointments SET status = $2, updated_at = now()
		WHERE id = $1 RETURNING ` + appointmentColumns

	a, err := scanAppointment(s.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

// ListByPatient возвращает записи пациента (starts_at DESC).
func (s *Storage) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	const op = "storage.postgres.ListByPatient"

	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE patient_id = $1
		ORDER BY starts_at DESC`

	return s.listAppointments(ctx, op, query, patientID)
}

// ListByDoctorDay возвращает записи врача за сутки day (UTC).
func (s *Storage) ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]models.Appointment, error) {
	const op = "storage.postgres.ListByDoctorDay"

	from, to := dayBounds(day)

	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE doctor_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at ASC`

	return s.listAppointments(ctx, op, query, doctorID, from, to)
}

// TakenSlots возвращает занятые starts_at врача за сутки day (неотменённые).
func (s *Storage) TakenSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]time.Time, error) {
	const op = "storage.postgres.TakenSlots"

	from, to := dayBounds(day)

	query := `
		SELECT starts_at FROM appointments
		WHERE doctor_id = $1 AND starts_at >= $2 AND starts_at < $3 AND status <> $4
		ORDER BY starts_at ASC
	`

	rows, err := s.db.Query(ctx, query, doctorID, from, to, models.AppointmentCancelled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var slots []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		slots = append(slots, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// CountActiveByPatient считает записи пациента в статусе PROGRAMADA.
func (s *Storage) CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	const op = "storage.postgres.CountActiveByPatient"

	query := `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND status = $2
	`

	var count int
	if err := s.db.QueryRow(ctx, query, patientID, models.AppointmentScheduled).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (s *Storage) listAppointments(ctx context.Context, op, query string, args ...any) ([]models.Appointment, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// dayBounds возвращает границы суток [00:00; 24:00) для day в UTC.
func dayBounds(day time.Time) (time.Time, time.Time) {
	d := day.UTC()
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)

	return from, from.Add(24 * time.Hour)
}
