// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация платформы.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	HTTP         HTTPConfig         `yaml:"http"`
	Ops          OpsConfig          `yaml:"ops"`
	Auth         AuthConfig         `yaml:"auth"`
	DB           DBConfig           `yaml:"db"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	S3           S3Config           `yaml:"s3"`
	Avatar       AvatarConfig       `yaml:"avatar"`
	Appointments AppointmentsConfig `yaml:"appointments"`
	Reviews      ReviewsConfig      `yaml:"reviews"`
	Notify       NotifyConfig       `yaml:"notify"`
	Cleanup      CleanupConfig      `yaml:"cleanup"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"15s"`
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50070"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// OpsConfig — отдельный HTTP для /livez, /healthz и Prometheus.
type OpsConfig struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"50071"`
}

// Addr возвращает адрес в формате host:port.
func (o OpsConfig) Addr() string { return net.JoinHostPort(o.Host, o.Port) }

// AuthConfig содержит параметры выпуска и валидации токенов.
// TTL по умолчанию — контракт клиента: access живёт сутки, refresh — неделю.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer"   env:"ISSUER" env-default:"telemed"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"telemed-web"`
}

// DBConfig — настройки подключения к PostgreSQL.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
}

// MongoConfig — настройки подключения к MongoDB (хранилище отзывов).
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL" env-required:"true"`
}

// RedisConfig — кэш refresh-токенов; пустой URL отключает кэш.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:""`
}

// S3Config — MinIO/S3 для аватаров.
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER" env-default:""`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD" env-default:""`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-default:"telemed-avatars"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"15m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL" env-default:""`
}

// AvatarConfig — ограничения на загружаемые аватары.
type AvatarConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"AVATAR_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"AVATAR_ALLOWED_CONTENT_TYPES" env-default:"image/jpeg,image/png,image/webp"`
}

// AppointmentsConfig — расписание и лимиты записи на приём.
//
// DayStart/DayEnd — границы рабочего дня врача ("09:00".."17:00", UTC).
// ActiveLimit — максимум активных (PROGRAMADA) записей у пациента;
// превышение отдаётся отдельным доменным кодом для upsell-сценария фронта.
type AppointmentsConfig struct {
	SlotMinutes int    `yaml:"slot_minutes" env:"APPT_SLOT_MINUTES" env-default:"30"`
	DayStart    string `yaml:"day_start" env:"APPT_DAY_START" env-default:"09:00"`
	DayEnd      string `yaml:"day_end" env:"APPT_DAY_END" env-default:"17:00"`
	ActiveLimit int    `yaml:"active_limit" env:"APPT_ACTIVE_LIMIT" env-default:"3"`
}

// ReviewsConfig — лимиты постраничной выдачи отзывов.
type ReviewsConfig struct {
	PageSizeDefault int32 `yaml:"page_size_default" env:"REVIEWS_PAGE_SIZE_DEFAULT" env-default:"20"`
	PageSizeMax     int32 `yaml:"page_size_max" env:"REVIEWS_PAGE_SIZE_MAX" env-default:"100"`
}

// NotifyConfig — доставка уведомлений на внешний webhook.
// Пустой WebhookURL отключает диспетчер (уведомления остаются в ленте).
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" env:"NOTIFY_WEBHOOK_URL" env-default:""`
	Interval   time.Duration `yaml:"interval" env:"NOTIFY_INTERVAL" env-default:"30s"`
	BatchSize  int           `yaml:"batch_size" env:"NOTIFY_BATCH_SIZE" env-default:"50"`
}

// CleanupConfig — периодическая уборка просроченных токенов и
// доставленных уведомлений старше окна хранения.
type CleanupConfig struct {
	Interval  time.Duration `yaml:"interval" env:"CLEANUP_INTERVAL" env-default:"1h"`
	Retention time.Duration `yaml:"retention" env:"CLEANUP_RETENTION" env-default:"720h"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
