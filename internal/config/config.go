// Пакет config — загрузка и валидация конфигурации Tools Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Tools Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int `env:"TM_PORT" envDefault:"8040"`
	// Уровень логирования (debug, info, warn, error)
	LogLevelName string `env:"TM_LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"TM_LOG_FORMAT" envDefault:"json"`

	// LogLevel вычисляется из LogLevelName при загрузке.
	LogLevel slog.Level

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string `env:"TM_DB_HOST,required,notEmpty"`
	// Порт PostgreSQL
	DBPort int `env:"TM_DB_PORT" envDefault:"5432"`
	// Имя базы данных
	DBName string `env:"TM_DB_NAME,required,notEmpty"`
	// Имя пользователя PostgreSQL
	DBUser string `env:"TM_DB_USER,required,notEmpty"`
	// Пароль пользователя PostgreSQL
	DBPassword string `env:"TM_DB_PASSWORD,required,notEmpty"`
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string `env:"TM_DB_SSL_MODE" envDefault:"disable"`

	// --- Импорт / экспорт ---

	// Версия backend, записываемая в tblExtracts.AppVersionBackend (numeric(3,2))
	AppVersion float64 `env:"TM_APP_VERSION" envDefault:"0"`
	// Логическая папка, записываемая в tblExtracts.ExtractFolder
	ExtractFolder string `env:"TM_EXTRACT_FOLDER" envDefault:"items"`
	// Максимальный размер загружаемого файла
	MaxUploadBytes int64 `env:"TM_MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// --- Кэш extracts ---

	// Максимальное количество записей в LRU-кэше
	ExtractCacheSize int `env:"TM_EXTRACT_CACHE_SIZE" envDefault:"1000"`
	// TTL записи в кэше
	ExtractCacheTTL time.Duration `env:"TM_EXTRACT_CACHE_TTL" envDefault:"10m"`

	// --- JWT ---

	// Включает JWT-аутентификацию для /api/v1
	AuthEnabled bool `env:"TM_AUTH_ENABLED" envDefault:"false"`
	// URL JWKS endpoint (обязателен при TM_AUTH_ENABLED=true)
	JWTJWKSURL string `env:"TM_JWT_JWKS_URL"`
	// Ожидаемый issuer (пусто — не проверяется)
	JWTIssuer string `env:"TM_JWT_ISSUER"`
	// Claim с числовым ID пользователя для AuditUserID
	JWTUserIDClaim string `env:"TM_JWT_USER_ID_CLAIM" envDefault:"audit_user_id"`
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration `env:"TM_JWT_LEEWAY" envDefault:"30s"`
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration `env:"TM_JWKS_REFRESH_INTERVAL" envDefault:"15m"`

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string `env:"TM_DEPHEALTH_GROUP" envDefault:"openimis"`
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration `env:"TM_DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration `env:"TM_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate проверяет диапазоны и допустимые значения после разбора.
func (c *Config) validate() error {
	if c.Port < 8040 || c.Port > 8049 {
		return fmt.Errorf("TM_PORT: значение %d вне допустимого диапазона 8040-8049", c.Port)
	}

	level, err := parseLogLevel(c.LogLevelName)
	if err != nil {
		return fmt.Errorf("TM_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("TM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", c.LogFormat)
	}

	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[c.DBSSLMode] {
		return fmt.Errorf("TM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", c.DBSSLMode)
	}

	// numeric(3,2): максимум 9.99
	if c.AppVersion < 0 || c.AppVersion > 9.99 {
		return fmt.Errorf("TM_APP_VERSION: значение %v вне диапазона 0-9.99", c.AppVersion)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("TM_MAX_UPLOAD_BYTES: значение должно быть > 0")
	}
	if c.ExtractCacheSize < 1 {
		return fmt.Errorf("TM_EXTRACT_CACHE_SIZE: значение должно быть >= 1")
	}

	if c.AuthEnabled {
		if c.JWTJWKSURL == "" {
			return fmt.Errorf("TM_JWT_JWKS_URL: обязателен при TM_AUTH_ENABLED=true")
		}
		if strings.TrimSpace(c.JWTUserIDClaim) == "" {
			return fmt.Errorf("TM_JWT_USER_ID_CLAIM: не может быть пустым")
		}
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL в формате postgres://.
// Используется topologymetrics для лейблов (без пароля).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
