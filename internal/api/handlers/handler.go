// handler.go — основной обработчик API Tools Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/openimis/tools-module/internal/api/middleware"
	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/service"
	"github.com/openimis/tools-module/internal/tabular"
)

// HeaderAuditUserID — заголовок с ID пользователя при выключенной аутентификации.
const HeaderAuditUserID = "X-Audit-User-ID"

// ItemImporter — импорт каталога позиций (service.ImportService).
type ItemImporter interface {
	Import(ctx context.Context, ds *tabular.Dataset, opts service.ImportOptions) (*service.ImportResult, error)
}

// ItemExporter — выгрузка каталога позиций (service.ExportService).
type ItemExporter interface {
	Export(ctx context.Context, format tabular.Format, auditUserID int) (*service.ExportResult, error)
}

// ExtractReader — чтение журнала выгрузок (service.ExtractService).
type ExtractReader interface {
	List(ctx context.Context, limit, offset int) (*service.ExtractListResult, error)
	Get(ctx context.Context, extractUUID string) (*model.Extract, error)
}

// APIHandler — основной обработчик API Tools Module.
type APIHandler struct {
	health         *HealthHandler
	importer       ItemImporter
	exporter       ItemExporter
	extracts       ExtractReader
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	importer ItemImporter,
	exporter ItemExporter,
	extracts ExtractReader,
	maxUploadBytes int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:         health,
		importer:       importer,
		exporter:       exporter,
		extracts:       extracts,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// auditUserID определяет пользователя, от имени которого выполняется запрос.
// Аутентифицированный запрос: claim токена, без claim — model.NoAuditUser.
// Без аутентификации: заголовок X-Audit-User-ID, без заголовка — model.NoAuditUser.
func auditUserID(r *http.Request) (int, error) {
	if id, ok := middleware.AuditUserFromContext(r.Context()); ok {
		return id, nil
	}
	if middleware.ClaimsFromContext(r.Context()) != nil {
		return model.NoAuditUser, nil
	}

	v := strings.TrimSpace(r.Header.Get(HeaderAuditUserID))
	if v == "" {
		return model.NoAuditUser, nil
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("заголовок %s должен быть целым числом", HeaderAuditUserID)
	}
	return id, nil
}
