// Package http собирает REST-роутер публичного API поверх chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/transport/http/handlers"
	"github.com/pribylovaa/go-telemed/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, v middleware.TokenValidator, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, v)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, v)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
// Публичные маршруты идут без Authn, защищённые — группами с Authn
// и, где нужно, RequireRole.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenValidator) {
	authn := middleware.Authn(v)

	// Публичные: регистрация, вход, обновление токенов.
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)

	// Каталог врачей доступен без токена.
	r.Get("/medicos", h.Doctors)
	r.Get("/medicos/{id}/horarios", h.DoctorSlots)
	r.Get("/medicos/{id}/resenas", h.DoctorReviews)

	// Личный кабинет.
	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Post("/auth/logout", h.Logout)
		r.Post("/auth/change-password", h.ChangePassword)
		r.Get("/auth/profile", h.Profile)
		r.Put("/auth/profile", h.UpdateProfile)
		r.Post("/auth/avatar/presign", h.AvatarPresign)
		r.Post("/auth/avatar/confirm", h.AvatarConfirm)

		r.Get("/notificaciones", h.ListNotifications)
		r.Post("/notificaciones/{id}/leida", h.MarkNotificationRead)
	})

	// Запись на приём: создание и отзывы — только пациенты.
	r.Group(func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(models.RolePatient))

		r.Post("/citas", h.CreateAppointment)
		r.Get("/citas", h.MyAppointments)
		r.Post("/resenas", h.CreateReview)
	})

	// Отмена и закрытие приёма: конкретные права (владелец записи,
	// лечащий врач, администратор) проверяет сервисный слой.
	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Delete("/citas/{id}", h.CancelAppointment)
		r.Post("/citas/{id}/completar", h.CompleteAppointment)
	})

	// Врачебные маршруты.
	r.Group(func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(models.RoleDoctor))

		r.Get("/citas/agenda", h.Agenda)
	})

	// Администрирование.
	r.Group(func(r chi.Router) {
		r.Use(authn, middleware.RequireRole(models.RoleAdmin))

		r.Get("/admin/usuarios", h.ListUsers)
		r.Patch("/admin/usuarios/{id}", h.PatchUser)
		r.Get("/admin/auditoria", h.AuditLog)
	})
}
