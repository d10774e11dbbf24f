package importexport

import (
	"time"

	"github.com/openimis/tools-module/internal/domain/model"
)

// Row — одна строка табличного файла: имя столбца → сырое значение ячейки.
type Row map[string]string

// Clone возвращает независимую копию строки.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has проверяет наличие столбца в строке.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// RowContext — параметры одного запуска импорта, общие для всех строк.
type RowContext struct {
	// AuditUserID — пользователь, выполняющий импорт (model.NoAuditUser, если неизвестен)
	AuditUserID int
	// Now — момент, относительно которого определяется актуальность записей
	Now time.Time
	// Line — номер строки в файле, начиная с 1 (для сообщений)
	Line int
}

// NewRowContext создаёт контекст импорта с пользователем по умолчанию.
func NewRowContext(now time.Time) RowContext {
	return RowContext{AuditUserID: model.NoAuditUser, Now: now}
}

// RowTransform — шаг обработки строки. Не изменяет входную строку,
// возвращает новую или ошибку.
type RowTransform func(row Row, rc RowContext) (Row, error)

// Pipeline — последовательность шагов обработки строки.
type Pipeline []RowTransform

// Apply прогоняет строку через все шаги и останавливается на первой ошибке.
// Входная строка не изменяется ни при успехе, ни при ошибке.
func (p Pipeline) Apply(row Row, rc RowContext) (Row, error) {
	current := row.Clone()
	for _, step := range p {
		next, err := step(current, rc)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
