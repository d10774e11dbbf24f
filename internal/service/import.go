// import.go — пакетный импорт каталога позиций из табличного файла.
//
// Import выполняет весь файл в одной транзакции:
//  1. строка проходит цепочку ItemResource (тип, категории, пользователь)
//  2. ищется единственная актуальная позиция с тем же кодом
//  3. строка помеченная delete закрывает окно валидности найденной позиции
//  4. иначе позиция создаётся, обновляется или пропускается без изменений
//
// Любая ошибка строки откатывает весь импорт. Пробный запуск (dry run)
// откатывается всегда, но возвращает те же результаты по строкам.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/importexport"
	"github.com/openimis/tools-module/internal/repository"
	"github.com/openimis/tools-module/internal/tabular"
)

// Prometheus-метрики импорта.
var (
	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tm_import_rows_total",
		Help: "Количество обработанных строк импорта по результату",
	}, []string{"action"}) // action: new, update, delete, skip, error

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tm_import_duration_seconds",
		Help:    "Длительность импорта файла",
		Buckets: prometheus.DefBuckets,
	})
)

// errRollback — внутренний сигнал отката транзакции без ошибки для вызывающего.
var errRollback = errors.New("откат импорта")

// TxRunner — выполнение операций в транзакции. Реализуется repository.TxRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// RowAction — результат обработки строки импорта.
type RowAction string

const (
	RowActionNew    RowAction = "new"
	RowActionUpdate RowAction = "update"
	RowActionDelete RowAction = "delete"
	RowActionSkip   RowAction = "skip"
	RowActionError  RowAction = "error"
)

// RowResult — результат одной строки.
type RowResult struct {
	// Line — номер строки в файле (заголовок — строка 1)
	Line int
	// Code — код позиции из строки
	Code string
	// Action — что сделано со строкой
	Action RowAction
	// ItemID — ID созданной, изменённой или закрытой позиции
	ItemID int
	// Column — столбец с ошибкой (для RowActionError)
	Column string
	// Error — текст ошибки (для RowActionError)
	Error string
}

// ImportOptions — параметры запуска импорта.
type ImportOptions struct {
	// AuditUserID — пользователь, выполняющий импорт
	AuditUserID int
	// DryRun — выполнить без сохранения изменений
	DryRun bool
	// FileName — имя загруженного файла для журнала выгрузок
	FileName string
}

// ImportResult — итог импорта.
type ImportResult struct {
	DryRun bool
	Totals map[RowAction]int
	Rows   []RowResult
	// Extract — запись журнала (только для сохранённого импорта)
	Extract *model.Extract
}

// HasErrors — true, если хотя бы одна строка отклонена.
func (r *ImportResult) HasErrors() bool {
	return r.Totals[RowActionError] > 0
}

// Committed — true, если изменения сохранены.
func (r *ImportResult) Committed() bool {
	return !r.DryRun && !r.HasErrors()
}

func (r *ImportResult) add(rr RowResult) {
	r.Rows = append(r.Rows, rr)
	r.Totals[rr.Action]++
}

// ImportService — пакетный импорт позиций каталога.
type ImportService struct {
	tx       TxRunner
	resource *importexport.ItemResource
	cfg      ExtractConfig
	items    func(db repository.DBTX) repository.ItemRepository
	extracts func(db repository.DBTX) repository.ExtractRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewImportService создаёт сервис импорта.
func NewImportService(tx TxRunner, resource *importexport.ItemResource, cfg ExtractConfig, logger *slog.Logger) *ImportService {
	return &ImportService{
		tx:       tx,
		resource: resource,
		cfg:      cfg,
		items:    repository.NewItemRepository,
		extracts: repository.NewExtractRepository,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "import")),
	}
}

// Import загружает набор данных в каталог позиций.
// Ошибки строк не возвращаются как error: они в ImportResult, а транзакция откатывается.
// error возвращается при некорректном наборе данных или сбое базы данных.
func (s *ImportService) Import(ctx context.Context, ds *tabular.Dataset, opts ImportOptions) (*ImportResult, error) {
	if err := s.checkHeaders(ds); err != nil {
		return nil, err
	}

	start := time.Now()
	now := s.now().UTC()
	rc := importexport.NewRowContext(now)
	rc.AuditUserID = opts.AuditUserID

	result := &ImportResult{
		DryRun: opts.DryRun,
		Totals: make(map[RowAction]int),
	}

	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		items := s.items(tx)
		for i := 0; i < ds.Len(); i++ {
			rc.Line = ds.Line(i)
			rr, err := s.importRow(ctx, items, ds.Row(i), rc)
			if err != nil {
				return fmt.Errorf("строка %d: %w", rc.Line, err)
			}
			result.add(rr)
		}

		if result.HasErrors() || opts.DryRun {
			return errRollback
		}

		e := newExtract(s.cfg, model.ExtractDirectionImport, opts.FileName, opts.AuditUserID, now)
		if err := recordExtract(ctx, s.extracts(tx), e); err != nil {
			return fmt.Errorf("ошибка записи в журнал выгрузок: %w", err)
		}
		result.Extract = e
		return nil
	})
	if err != nil && !errors.Is(err, errRollback) {
		s.logger.Error("Импорт прерван",
			slog.String("file", opts.FileName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ошибка импорта: %w", err)
	}

	importDuration.Observe(time.Since(start).Seconds())
	for action, n := range result.Totals {
		importRowsTotal.WithLabelValues(string(action)).Add(float64(n))
	}

	s.logger.Info("Импорт завершён",
		slog.String("file", opts.FileName),
		slog.Int("audit_user_id", opts.AuditUserID),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("committed", result.Committed()),
		slog.Int("new", result.Totals[RowActionNew]),
		slog.Int("update", result.Totals[RowActionUpdate]),
		slog.Int("delete", result.Totals[RowActionDelete]),
		slog.Int("skip", result.Totals[RowActionSkip]),
		slog.Int("error", result.Totals[RowActionError]),
	)

	return result, nil
}

// checkHeaders проверяет наличие ключевых столбцов.
func (s *ImportService) checkHeaders(ds *tabular.Dataset) error {
	if ds == nil || len(ds.Headers) == 0 {
		return fmt.Errorf("%w: файл не содержит заголовков", ErrValidation)
	}

	present := make(map[string]bool, len(ds.Headers))
	for _, h := range ds.Headers {
		present[h] = true
	}

	var missing []string
	for _, col := range append(append([]string(nil), importexport.ImportIDFields...), importexport.ColumnType) {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: отсутствуют столбцы %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// importRow обрабатывает одну строку. error — только сбой базы данных.
func (s *ImportService) importRow(
	ctx context.Context,
	items repository.ItemRepository,
	raw importexport.Row,
	rc importexport.RowContext,
) (RowResult, error) {
	rr := RowResult{Line: rc.Line, Code: strings.TrimSpace(raw[importexport.ColumnCode])}

	row, err := s.resource.Transform(raw, rc)
	if err != nil {
		return rowError(rr, err)
	}

	code, err := s.resource.ImportID(row)
	if err != nil {
		return rowError(rr, err)
	}

	existing, err := items.FindCurrentByCode(ctx, code, rc.Now)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case errors.Is(err, repository.ErrAmbiguousMatch):
		return rowError(rr, err)
	case err != nil:
		return rr, err
	}

	del, err := s.resource.ShouldDelete(row)
	if err != nil {
		return rowError(rr, err)
	}
	if del {
		if existing == nil {
			rr.Action = RowActionSkip
			return rr, nil
		}
		if err := items.CloseValidity(ctx, existing.ID, rc.Now, rc.AuditUserID); err != nil {
			return rr, err
		}
		rr.Action = RowActionDelete
		rr.ItemID = existing.ID
		return rr, nil
	}

	item, err := s.resource.Hydrate(row)
	if err != nil {
		return rowError(rr, err)
	}

	if existing == nil {
		item.ValidityFrom = rc.Now
		if err := items.Create(ctx, item); err != nil {
			return rr, err
		}
		rr.Action = RowActionNew
		rr.ItemID = item.ID
		return rr, nil
	}

	rr.ItemID = existing.ID
	if existing.SameContent(item) {
		rr.Action = RowActionSkip
		return rr, nil
	}

	item.ID = existing.ID
	if err := items.Update(ctx, item); err != nil {
		return rr, err
	}
	rr.Action = RowActionUpdate
	return rr, nil
}

// rowError помечает строку отклонённой.
func rowError(rr RowResult, err error) (RowResult, error) {
	rr.Action = RowActionError
	rr.Error = err.Error()
	var ve *importexport.ValidationError
	if errors.As(err, &ve) {
		rr.Column = ve.Column
		rr.Error = ve.Message
	}
	return rr, nil
}
