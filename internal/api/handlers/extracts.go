// extracts.go — обработчики журнала выгрузок tblExtracts.
// GET /api/v1/extracts?limit=&offset=
// GET /api/v1/extracts/{uuid}
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/openimis/tools-module/internal/api/errors"
	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/service"
)

// defaultLimit — размер страницы журнала по умолчанию.
const defaultLimit = 100

// extractResponse — запись журнала выгрузок в ответе API.
type extractResponse struct {
	ID            int        `json:"id"`
	UUID          string     `json:"uuid"`
	Type          int16      `json:"type"`
	Direction     int16      `json:"direction"`
	DirectionName string     `json:"direction_name"`
	Sequence      int        `json:"sequence"`
	Date          time.Time  `json:"date"`
	FileName      string     `json:"file_name"`
	Folder        string     `json:"folder"`
	AppVersion    float64    `json:"app_version"`
	ValidityFrom  time.Time  `json:"validity_from"`
	ValidityTo    *time.Time `json:"validity_to,omitempty"`
	LegacyID      *int       `json:"legacy_id,omitempty"`
	AuditUserID   int        `json:"audit_user_id"`
}

// extractListResponse — страница журнала выгрузок.
type extractListResponse struct {
	Items   []extractResponse `json:"items"`
	Total   int               `json:"total"`
	HasMore bool              `json:"has_more"`
}

// ListExtracts — GET /api/v1/extracts.
func (h *APIHandler) ListExtracts(w http.ResponseWriter, r *http.Request) {
	var limitParam, offsetParam *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limitParam); err != nil {
		apierrors.ValidationError(w, "параметр limit должен быть целым числом")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offsetParam); err != nil {
		apierrors.ValidationError(w, "параметр offset должен быть целым числом")
		return
	}

	limit, offset := defaultLimit, 0
	if limitParam != nil {
		limit = *limitParam
	}
	if offsetParam != nil {
		offset = *offsetParam
	}

	result, err := h.extracts.List(r.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка получения журнала выгрузок", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	resp := extractListResponse{
		Items:   make([]extractResponse, 0, len(result.Items)),
		Total:   result.Total,
		HasMore: result.HasMore,
	}
	for _, e := range result.Items {
		resp.Items = append(resp.Items, toExtractResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetExtract — GET /api/v1/extracts/{uuid}.
func (h *APIHandler) GetExtract(w http.ResponseWriter, r *http.Request) {
	var extractUUID openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "uuid", chi.URLParam(r, "uuid"), &extractUUID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		apierrors.ValidationError(w, "некорректный UUID выгрузки")
		return
	}
	id := extractUUID.String()

	e, err := h.extracts.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Выгрузка не найдена")
		default:
			h.logger.Error("Ошибка получения выгрузки",
				slog.String("extract_uuid", id),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка сервера")
		}
		return
	}
	writeJSON(w, http.StatusOK, toExtractResponse(e))
}

func toExtractResponse(e *model.Extract) extractResponse {
	return extractResponse{
		ID:            e.ID,
		UUID:          e.UUID,
		Type:          e.Type,
		Direction:     e.Direction,
		DirectionName: directionName(e.Direction),
		Sequence:      e.Sequence,
		Date:          e.Date,
		FileName:      e.FileName,
		Folder:        e.Folder,
		AppVersion:    e.AppVersion,
		ValidityFrom:  e.ValidityFrom,
		ValidityTo:    e.ValidityTo,
		LegacyID:      e.LegacyID,
		AuditUserID:   e.AuditUserID,
	}
}

// directionName — строковое имя направления выгрузки.
func directionName(d int16) string {
	if d == model.ExtractDirectionImport {
		return "import"
	}
	return "export"
}
