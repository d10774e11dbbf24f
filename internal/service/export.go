package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/importexport"
	"github.com/openimis/tools-module/internal/repository"
	"github.com/openimis/tools-module/internal/tabular"
)

var exportItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tm_export_items_total",
	Help: "Количество выгруженных позиций по формату",
}, []string{"format"})

// ExportResult — готовый файл выгрузки.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
	Rows        int
	Extract     *model.Extract
}

// ExportService — выгрузка актуального каталога позиций в файл.
type ExportService struct {
	items    repository.ItemRepository
	tx       TxRunner
	extracts func(db repository.DBTX) repository.ExtractRepository
	resource *importexport.ItemResource
	cfg      ExtractConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewExportService создаёт сервис выгрузки.
func NewExportService(
	items repository.ItemRepository,
	tx TxRunner,
	resource *importexport.ItemResource,
	cfg ExtractConfig,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		items:    items,
		tx:       tx,
		extracts: repository.NewExtractRepository,
		resource: resource,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "export")),
	}
}

// Export выгружает актуальные позиции в указанном формате
// и записывает выгрузку в журнал.
func (s *ExportService) Export(ctx context.Context, format tabular.Format, auditUserID int) (*ExportResult, error) {
	if format != tabular.FormatCSV && format != tabular.FormatXLSX {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	now := s.now().UTC()
	items, err := s.items.ListCurrent(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения позиций: %w", err)
	}

	ds := tabular.NewDataset(s.resource.Columns())
	for _, item := range items {
		ds.Append(s.resource.Dehydrate(item))
	}

	var buf bytes.Buffer
	if err := tabular.Encode(format, ds, &buf); err != nil {
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
		return nil, fmt.Errorf("ошибка формирования файла: %w", err)
	}

	fileName := "items-" + now.Format("20060102-150405") + format.Extension()
	e := newExtract(s.cfg, model.ExtractDirectionExport, fileName, auditUserID, now)
	err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		return recordExtract(ctx, s.extracts(tx), e)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка записи в журнал выгрузок: %w", err)
	}

	exportItemsTotal.WithLabelValues(string(format)).Add(float64(len(items)))
	s.logger.Info("Выгрузка сформирована",
		slog.String("file", fileName),
		slog.Int("items", len(items)),
		slog.Int("audit_user_id", auditUserID),
		slog.String("extract_uuid", e.UUID),
	)

	return &ExportResult{
		FileName:    fileName,
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
		Rows:        len(items),
		Extract:     e,
	}, nil
}
