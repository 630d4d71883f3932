package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-telemed/internal/cache"
	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/jobs/cleanup"
	"github.com/pribylovaa/go-telemed/internal/service/admin"
	"github.com/pribylovaa/go-telemed/internal/service/appointments"
	"github.com/pribylovaa/go-telemed/internal/service/audit"
	"github.com/pribylovaa/go-telemed/internal/service/auth"
	"github.com/pribylovaa/go-telemed/internal/service/notifications"
	"github.com/pribylovaa/go-telemed/internal/service/reviews"
	"github.com/pribylovaa/go-telemed/internal/storage/miniostore"
	"github.com/pribylovaa/go-telemed/internal/storage/mongodb"
	"github.com/pribylovaa/go-telemed/internal/storage/postgres"
	apihttp "github.com/pribylovaa/go-telemed/internal/transport/http"
	"github.com/pribylovaa/go-telemed/internal/transport/http/handlers"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting telemed-api", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// PostgreSQL — основное хранилище.
	db, err := postgres.New(rootCtx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("postgres_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// MongoDB — отзывы.
	mongo, err := mongodb.New(rootCtx, cfg)
	if err != nil {
		log.Error("mongo_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := mongo.Close(closeCtx); cerr != nil {
			log.Warn("mongo_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("storage_initialized")

	// Сервисы.
	authSvc := auth.New(db, cfg.Auth)
	auditSvc := audit.New(db)
	notifySvc := notifications.New(db, cfg.Notify)
	adminSvc := admin.New(db)
	reviewsSvc := reviews.New(mongo, db, cfg.Reviews)

	apptSvc, err := appointments.New(db, cfg.Appointments)
	if err != nil {
		log.Error("appointments_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	apptSvc.SetNotifier(notifySvc)

	// Redis-кэш refresh-токенов: опционален, без него валидация
	// ходит напрямую в PostgreSQL.
	if cfg.Redis.RedisURL != "" {
		rcache, err := cache.NewRedisCache(cfg.Redis.RedisURL, "telemed:rt:")
		if err != nil {
			log.Error("redis_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := rcache.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()
		authSvc.SetRefreshCache(rcache)
		log.Info("refresh_cache_enabled")
	}

	// MinIO: опционален, без него presign-эндпойнты отвечают 503.
	if cfg.S3.RootUser != "" {
		avatars, err := miniostore.New(rootCtx, cfg)
		if err != nil {
			log.Error("minio_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		authSvc.SetAvatarStorage(avatars)
		log.Info("avatar_storage_enabled", slog.String("bucket", cfg.S3.Bucket))
	}

	log.Info("services_initialized")

	// Фоновые задачи: диспетчер webhook-уведомлений и уборка.
	if cfg.Notify.WebhookURL != "" {
		go func() {
			if err := notifySvc.StartDispatcher(rootCtx); err != nil {
				log.Error("dispatcher_failed", slog.String("err", err.Error()))
			}
		}()
	}
	go func() {
		if err := cleanup.New(db, cfg.Cleanup).Start(rootCtx); err != nil {
			log.Error("cleanup_failed", slog.String("err", err.Error()))
		}
	}()

	h := handlers.New(authSvc, apptSvc, reviewsSvc, notifySvc, adminSvc, auditSvc)
	apiHandler := apihttp.NewRouter(h, authSvc, apihttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
	})

	var ready int32 // 0 — not ready; 1 — ready

	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	opsMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)

	startServer := func(name string, srv *http.Server) {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Error("listen_failed", slog.String("server", name), slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			os.Exit(1)
		}

		log.Info("listen_start", slog.String("server", name), slog.String("addr", srv.Addr))

		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- err
			}
		}()
	}

	startServer("api", httpSrv)
	startServer("ops", opsSrv)

	atomic.StoreInt32(&ready, 1)
	log.Info("telemed_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops_shutdown_incomplete", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
