// Точка входа Tools Module — импорт и экспорт каталога медицинских позиций.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт сервисный слой и API handlers, запускает topologymetrics,
// HTTP-сервер с опциональным JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/openimis/tools-module/internal/api/handlers"
	"github.com/openimis/tools-module/internal/api/middleware"
	"github.com/openimis/tools-module/internal/api/openapi"
	"github.com/openimis/tools-module/internal/config"
	"github.com/openimis/tools-module/internal/database"
	"github.com/openimis/tools-module/internal/importexport"
	"github.com/openimis/tools-module/internal/repository"
	"github.com/openimis/tools-module/internal/server"
	"github.com/openimis/tools-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Tools Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories и сервисы
	txRunner := repository.NewTxRunner(pool)
	itemRepo := repository.NewItemRepository(pool)
	extractRepo := repository.NewExtractRepository(pool)

	extractCfg := service.ExtractConfig{
		Folder:     cfg.ExtractFolder,
		AppVersion: cfg.AppVersion,
	}
	resource := importexport.NewItemResource()

	importSvc := service.NewImportService(txRunner, resource, extractCfg, logger)
	exportSvc := service.NewExportService(itemRepo, txRunner, resource, extractCfg, logger)
	extractSvc := service.NewExtractService(
		extractRepo,
		service.NewExtractCache(cfg.ExtractCacheSize, cfg.ExtractCacheTTL),
		logger,
	)

	// 6. JWT middleware и readiness checkers
	pgChecker := database.NewReadinessChecker(pool)
	var (
		jwtAuth     *middleware.JWTAuth
		jwksChecker handlers.ReadinessChecker
	)
	if cfg.AuthEnabled {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.JWTIssuer,
			cfg.JWTUserIDClaim,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jwksChecker = middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, 5*time.Second)
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("JWT-аутентификация отключена (TM_AUTH_ENABLED=false), пользователь берётся из заголовка",
			slog.String("header", handlers.HeaderAuditUserID),
		)
	}

	healthHandler := handlers.NewHealthHandler(pgChecker, jwksChecker)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		importSvc,
		exportSvc,
		extractSvc,
		cfg.MaxUploadBytes,
		logger,
	)

	// Описание API (встроенный openapi.yaml)
	apiDoc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки описания API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	specHandler, err := openapi.Handler(apiDoc)
	if err != nil {
		logger.Error("Ошибка загрузки описания API", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"tools-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, specHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Tools Module остановлен")
}
