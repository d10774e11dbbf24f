// items.go — обработчики импорта и экспорта каталога позиций.
// GET  /api/v1/items/export?format=csv|xlsx
// POST /api/v1/items/import?format=csv|xlsx&dry_run=true
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	apierrors "github.com/openimis/tools-module/internal/api/errors"
	"github.com/openimis/tools-module/internal/service"
	"github.com/openimis/tools-module/internal/tabular"
)

// uploadFormField — имя поля multipart-формы с файлом.
const uploadFormField = "file"

// rowResultResponse — результат строки импорта.
type rowResultResponse struct {
	Line   int    `json:"line"`
	Code   string `json:"code,omitempty"`
	Action string `json:"action"`
	ItemID int    `json:"item_id,omitempty"`
	Column string `json:"column,omitempty"`
	Error  string `json:"error,omitempty"`
}

// importResponse — ответ импорта.
type importResponse struct {
	DryRun    bool                `json:"dry_run"`
	Committed bool                `json:"committed"`
	Totals    map[string]int      `json:"totals"`
	Rows      []rowResultResponse `json:"rows"`
	Extract   *extractResponse    `json:"extract,omitempty"`
}

// ExportItems — GET /api/v1/items/export.
// Возвращает файл актуального каталога как вложение.
func (h *APIHandler) ExportItems(w http.ResponseWriter, r *http.Request) {
	userID, err := auditUserID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	format := tabular.FormatCSV
	if v := r.URL.Query().Get("format"); v != "" {
		format = tabular.Format(strings.ToLower(v))
	}

	result, err := h.exporter.Export(r.Context(), format, userID)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedFormat) {
			apierrors.UnsupportedFormat(w, err.Error())
			return
		}
		h.logger.Error("Ошибка экспорта позиций", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if result.Extract != nil {
		w.Header().Set("X-Extract-UUID", result.Extract.UUID)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// ImportItems — POST /api/v1/items/import.
// Файл принимается как multipart-поле "file" или как тело запроса.
// Формат берётся из параметра format, иначе из расширения имени файла.
// 200 — импорт сохранён (или dry run без ошибок), 422 — есть ошибки строк.
func (h *APIHandler) ImportItems(w http.ResponseWriter, r *http.Request) {
	userID, err := auditUserID(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var dryRunParam *bool
	if err := runtime.BindQueryParameter("form", true, false, "dry_run", r.URL.Query(), &dryRunParam); err != nil {
		apierrors.ValidationError(w, "параметр dry_run должен быть true или false")
		return
	}
	dryRun := dryRunParam != nil && *dryRunParam

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	body, fileName, err := uploadedFile(r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	defer body.Close()

	format, err := detectFormat(r.URL.Query().Get("format"), fileName)
	if err != nil {
		apierrors.UnsupportedFormat(w, err.Error())
		return
	}
	if fileName == "" {
		fileName = "upload-" + time.Now().UTC().Format("20060102-150405") + format.Extension()
	}

	ds, err := tabular.Decode(format, body)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	result, err := h.importer.Import(r.Context(), ds, service.ImportOptions{
		AuditUserID: userID,
		DryRun:      dryRun,
		FileName:    fileName,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка импорта позиций",
			slog.String("file_name", fileName),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	status := http.StatusOK
	if result.HasErrors() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toImportResponse(result))
}

// writeUploadError отображает ошибку чтения загруженного файла в ответ API.
func (h *APIHandler) writeUploadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		apierrors.PayloadTooLarge(w, fmt.Sprintf("Размер файла превышает %d байт", maxErr.Limit))
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		apierrors.UnsupportedFormat(w, err.Error())
	default:
		apierrors.ValidationError(w, "Не удалось прочитать файл: "+err.Error())
	}
}

// uploadedFile возвращает содержимое файла и его имя (если известно).
func uploadedFile(r *http.Request) (io.ReadCloser, string, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "multipart/form-data") {
		name := r.URL.Query().Get("filename")
		if name != "" {
			name = filepath.Base(name)
		}
		return r.Body, name, nil
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, "", err
	}
	return file, filepath.Base(header.Filename), nil
}

// detectFormat выбирает формат по явному параметру или расширению файла.
// Без параметра и расширения используется CSV.
func detectFormat(param, fileName string) (tabular.Format, error) {
	if param != "" {
		return tabular.ParseFormat(param)
	}
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" {
		return tabular.FormatCSV, nil
	}
	return tabular.ParseFormat(ext)
}

func toImportResponse(r *service.ImportResult) importResponse {
	resp := importResponse{
		DryRun:    r.DryRun,
		Committed: r.Committed(),
		Totals:    make(map[string]int, len(r.Totals)),
		Rows:      make([]rowResultResponse, 0, len(r.Rows)),
	}
	for action, n := range r.Totals {
		resp.Totals[string(action)] = n
	}
	for _, rr := range r.Rows {
		resp.Rows = append(resp.Rows, rowResultResponse{
			Line:   rr.Line,
			Code:   rr.Code,
			Action: string(rr.Action),
			ItemID: rr.ItemID,
			Column: rr.Column,
			Error:  rr.Error,
		})
	}
	if r.Extract != nil {
		e := toExtractResponse(r.Extract)
		resp.Extract = &e
	}
	return resp
}
