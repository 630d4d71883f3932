package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Файл интеграционных тестов для пакета postgres:
// - поднимает реальный PostgreSQL через testcontainers-go (образ postgres:16-alpine);
// - применяет миграции из ./migrations (1..5);
// - проверяет happy-path пользователей (CITEXT-уникальность email), однократный отзыв
//   refresh-токена и частичный уникальный индекс слота записи на приём;
// - валидирует сценарии отсутствия записей (storage.ErrNotFound) и ошибки контекста.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile — определяет корень репозитория относительно текущего файла тестов.
// Используется для поиска SQL-миграций в каталоге ./migrations независимо от текущего рабочего каталога.
func repoRootFromThisFile() string {
	// internal/storage/postgres/... -> подняться на 3 уровня до корня.
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

// readMigration — читает содержимое SQL-миграции из подкаталога ./migrations.
func readMigration(t *testing.T, name string) string {
	t.Helper()
	root := repoRootFromThisFile()
	path := filepath.Join(root, "migrations", name)
	b, err := os.ReadFile(path)
	require.NoError(t, err, "read migration %s", path)
	return string(b)
}

// startPostgres — поднимает временный экземпляр PostgreSQL через testcontainers-go,
// применяет все миграции и возвращает инициализированное хранилище и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startPostgres(t *testing.T) (*Storage, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	// применяем миграции.
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	migrations := []string{
		"1_init_users.up.sql",
		"2_init_refresh_tokens.up.sql",
		"3_init_appointments.up.sql",
		"4_init_notifications.up.sql",
		"5_init_audit_events.up.sql",
	}
	for _, m := range migrations {
		_, err = pool.Exec(ctx, readMigration(t, m))
		require.NoError(t, err, "apply migration %s", m)
	}

	st, err := New(ctx, dsn)
	require.NoError(t, err)

	cleanup := func() {
		st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func newPatient(email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "García",
		Role:         models.RolePatient,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestIntegration_SaveUser_And_Lookup_OK — happy-path:
// сохранение пользователя и последующий поиск по email и ID; проверка CITEXT (регистронезависимо).
func TestIntegration_SaveUser_And_Lookup_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newPatient("paciente@clinica.mx")
	require.NoError(t, st.SaveUser(context.Background(), u))

	gotByEmail, err := st.UserByEmail(context.Background(), "PACIENTE@CLINICA.MX")
	require.NoError(t, err)
	require.Equal(t, u.ID, gotByEmail.ID)
	require.Equal(t, strings.ToLower(u.Email), strings.ToLower(gotByEmail.Email))
	require.WithinDuration(t, u.CreatedAt, gotByEmail.CreatedAt, time.Second)

	gotByID, err := st.UserByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, gotByID.Email)
	require.Equal(t, models.RolePatient, gotByID.Role)
}

// TestIntegration_SaveUser_UniqueEmail_CaseInsensitive_Violation — конфликт уникальности
// по email при различии только в регистре, ожидаем storage.ErrAlreadyExists.
func TestIntegration_SaveUser_UniqueEmail_CaseInsensitive_Violation(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	require.NoError(t, st.SaveUser(context.Background(), newPatient("user@clinica.mx")))

	err := st.SaveUser(context.Background(), newPatient("USER@CLINICA.MX"))
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

// TestIntegration_UserByEmail_NotFound — поиск по email для отсутствующей записи,
// ожидаем storage.ErrNotFound.
func TestIntegration_UserByEmail_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	_, err := st.UserByEmail(context.Background(), "absent@clinica.mx")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_UpdateProfile_Partial — частичное обновление: nil-поля не трогаются.
func TestIntegration_UpdateProfile_Partial(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newPatient("perfil@clinica.mx")
	require.NoError(t, st.SaveUser(context.Background(), u))

	phone := "+52 55 1234 5678"
	got, err := st.UpdateProfile(context.Background(), u.ID, storage.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, phone, got.Phone)
	require.Equal(t, u.FirstName, got.FirstName)
	require.Equal(t, u.LastName, got.LastName)
}

// TestIntegration_RevokeRefreshToken_Once — отзыв активного токена срабатывает ровно один раз:
// повторный отзыв того же хэша возвращает (false, nil), неизвестный хэш — ErrNotFound.
func TestIntegration_RevokeRefreshToken_Once(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newPatient("tokens@clinica.mx")
	require.NoError(t, st.SaveUser(context.Background(), u))

	now := time.Now().UTC()
	tok := &models.RefreshToken{
		RefreshTokenHash: "hash-1",
		UserID:           u.ID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(24 * time.Hour),
	}
	require.NoError(t, st.SaveRefreshToken(context.Background(), tok))

	revoked, err := st.RevokeRefreshToken(context.Background(), tok.RefreshTokenHash)
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = st.RevokeRefreshToken(context.Background(), tok.RefreshTokenHash)
	require.NoError(t, err)
	require.False(t, revoked)

	_, err = st.RevokeRefreshToken(context.Background(), "unknown-hash")
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_DeleteExpiredTokens — просроченные токены удаляются, живые остаются.
func TestIntegration_DeleteExpiredTokens(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newPatient("limpieza@clinica.mx")
	require.NoError(t, st.SaveUser(context.Background(), u))

	now := time.Now().UTC()
	expired := &models.RefreshToken{
		RefreshTokenHash: "hash-expired",
		UserID:           u.ID,
		CreatedAt:        now.Add(-48 * time.Hour),
		ExpiresAt:        now.Add(-24 * time.Hour),
	}
	alive := &models.RefreshToken{
		RefreshTokenHash: "hash-alive",
		UserID:           u.ID,
		CreatedAt:        now,
		ExpiresAt:        now.Add(24 * time.Hour),
	}
	require.NoError(t, st.SaveRefreshToken(context.Background(), expired))
	require.NoError(t, st.SaveRefreshToken(context.Background(), alive))

	require.NoError(t, st.DeleteExpiredTokens(context.Background(), now))

	_, err := st.RefreshTokenByHash(context.Background(), expired.RefreshTokenHash)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := st.RefreshTokenByHash(context.Background(), alive.RefreshTokenHash)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
}

// TestIntegration_SaveAppointment_SlotTaken — второй пациент на тот же слот врача
// получает storage.ErrAlreadyExists; после отмены первой записи слот освобождается.
func TestIntegration_SaveAppointment_SlotTaken(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	patientA := newPatient("a@clinica.mx")
	patientB := newPatient("b@clinica.mx")
	doctor := newPatient("medico@clinica.mx")
	doctor.Role = models.RoleDoctor
	doctor.Specialty = "Cardiología"
	for _, u := range []*models.User{patientA, patientB, doctor} {
		require.NoError(t, st.SaveUser(context.Background(), u))
	}

	now := time.Now().UTC()
	slot := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	first := &models.Appointment{
		ID:        uuid.New(),
		PatientID: patientA.ID,
		DoctorID:  doctor.ID,
		StartsAt:  slot,
		Type:      models.ConsultVideo,
		Status:    models.AppointmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.SaveAppointment(context.Background(), first))

	second := &models.Appointment{
		ID:        uuid.New(),
		PatientID: patientB.ID,
		DoctorID:  doctor.ID,
		StartsAt:  slot, // тот же слот
		Type:      models.ConsultInPerson,
		Status:    models.AppointmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := st.SaveAppointment(context.Background(), second)
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// отмена первой записи освобождает слот (частичный индекс игнорирует CANCELADA).
	_, err = st.UpdateAppointmentStatus(context.Background(), first.ID, models.AppointmentCancelled)
	require.NoError(t, err)
	require.NoError(t, st.SaveAppointment(context.Background(), second))

	taken, err := st.TakenSlots(context.Background(), doctor.ID, slot)
	require.NoError(t, err)
	require.Len(t, taken, 1)
	require.True(t, taken[0].Equal(slot))
}

// TestIntegration_CountActiveByPatient — считаются только записи в статусе PROGRAMADA.
func TestIntegration_CountActiveByPatient(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	patient := newPatient("contador@clinica.mx")
	doctor := newPatient("doc@clinica.mx")
	doctor.Role = models.RoleDoctor
	require.NoError(t, st.SaveUser(context.Background(), patient))
	require.NoError(t, st.SaveUser(context.Background(), doctor))

	now := time.Now().UTC()
	base := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC).Add(24 * time.Hour)

	var cancelled uuid.UUID
	for i := 0; i < 3; i++ {
		a := &models.Appointment{
			ID:        uuid.New(),
			PatientID: patient.ID,
			DoctorID:  doctor.ID,
			StartsAt:  base.Add(time.Duration(i) * 30 * time.Minute),
			Type:      models.ConsultVideo,
			Status:    models.AppointmentScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, st.SaveAppointment(context.Background(), a))
		if i == 0 {
			cancelled = a.ID
		}
	}

	_, err := st.UpdateAppointmentStatus(context.Background(), cancelled, models.AppointmentCancelled)
	require.NoError(t, err)

	count, err := st.CountActiveByPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

// TestIntegration_Queries_ContextCanceled — отменённый контекст должен «просочиться»
// в ошибки чтения как context.Canceled.
func TestIntegration_Queries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // отменяем заранее

	_, err := st.UserByEmail(ctx, "user@clinica.mx")
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.UserByID(ctx, uuid.New())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
