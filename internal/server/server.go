// Пакет server — HTTP-сервер Tools Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openimis/tools-module/internal/api/handlers"
	"github.com/openimis/tools-module/internal/api/middleware"
	"github.com/openimis/tools-module/internal/config"
)

// openapiPath — публичный путь описания API.
const openapiPath = "/api/v1/openapi.json"

// Server — HTTP-сервер Tools Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (nil при TM_AUTH_ENABLED=false).
// apiDoc — обработчик /api/v1/openapi.json.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, apiDoc http.Handler, jwtAuth *middleware.JWTAuth) *Server {
	var auth func(http.Handler) http.Handler
	if jwtAuth != nil {
		auth = jwtAuth.Middleware()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, handler, apiDoc, auth),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты API.
// apiDoc == nil — описание API не публикуется.
// auth — middleware аутентификации; nil — запросы проходят без проверки.
func NewRouter(logger *slog.Logger, handler *handlers.APIHandler, apiDoc http.Handler, auth func(http.Handler) http.Handler) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if auth != nil {
		router.Use(authWithExclusions(auth, "/health/", "/metrics", openapiPath))
	}

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		if apiDoc != nil {
			r.Method(http.MethodGet, "/openapi.json", apiDoc)
		}
		r.Get("/items/export", handler.ExportItems)
		r.Post("/items/import", handler.ImportItems)
		r.Get("/extracts", handler.ListExtracts)
		r.Get("/extracts/{uuid}", handler.GetExtract)
	})

	return router
}

// authWithExclusions оборачивает middleware аутентификации, пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func authWithExclusions(auth func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
