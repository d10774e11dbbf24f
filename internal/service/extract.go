package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openimis/tools-module/internal/domain/model"
	"github.com/openimis/tools-module/internal/repository"
)

// ExtractConfig — значения, которые записываются в каждую выгрузку.
type ExtractConfig struct {
	// Folder — ExtractFolder
	Folder string
	// AppVersion — AppVersionBackend
	AppVersion float64
}

// ExtractListResult — страница журнала выгрузок.
type ExtractListResult struct {
	Items   []*model.Extract
	Total   int
	HasMore bool
}

// ExtractService — чтение журнала выгрузок tblExtracts.
type ExtractService struct {
	repo   repository.ExtractRepository
	cache  *ExtractCache
	logger *slog.Logger
}

// NewExtractService создаёт сервис журнала выгрузок.
func NewExtractService(repo repository.ExtractRepository, cache *ExtractCache, logger *slog.Logger) *ExtractService {
	return &ExtractService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "extracts")),
	}
}

// List возвращает страницу выгрузок, новые первыми.
func (s *ExtractService) List(ctx context.Context, limit, offset int) (*ExtractListResult, error) {
	if limit < 1 || limit > 1000 {
		return nil, fmt.Errorf("%w: limit должен быть в диапазоне 1-1000", ErrValidation)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset не может быть отрицательным", ErrValidation)
	}

	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения выгрузок: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта выгрузок: %w", err)
	}

	return &ExtractListResult{
		Items:   items,
		Total:   total,
		HasMore: offset+len(items) < total,
	}, nil
}

// Get возвращает выгрузку по UUID. Сначала проверяется кэш.
func (s *ExtractService) Get(ctx context.Context, extractUUID string) (*model.Extract, error) {
	if _, err := uuid.Parse(extractUUID); err != nil {
		return nil, fmt.Errorf("%w: некорректный UUID %q", ErrValidation, extractUUID)
	}

	if e, ok := s.cache.Get(extractUUID); ok {
		return e, nil
	}

	e, err := s.repo.GetByUUID(ctx, extractUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения выгрузки: %w", err)
	}

	s.cache.Set(e)
	return e, nil
}

// recordExtract присваивает выгрузке следующий номер и сохраняет её.
func recordExtract(ctx context.Context, repo repository.ExtractRepository, e *model.Extract) error {
	seq, err := repo.NextSequence(ctx, e.Direction)
	if err != nil {
		return err
	}
	e.Sequence = seq
	return repo.Create(ctx, e)
}

// newExtract заполняет запись выгрузки общими значениями.
func newExtract(cfg ExtractConfig, direction int16, fileName string, auditUserID int, now time.Time) *model.Extract {
	return &model.Extract{
		UUID:         uuid.New().String(),
		ValidityFrom: now,
		Type:         model.ExtractTypeItems,
		Direction:    direction,
		Date:         now,
		FileName:     fileName,
		Folder:       cfg.Folder,
		AppVersion:   cfg.AppVersion,
		AuditUserID:  auditUserID,
	}
}
