package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openimis/tools-module/internal/domain/model"
)

// ExtractRepository — журнал выгрузок tblExtracts.
type ExtractRepository interface {
	// Create записывает новую выгрузку. Заполняет ID и UUID (если пуст).
	Create(ctx context.Context, e *model.Extract) error
	// GetByUUID возвращает выгрузку по ExtractUUID.
	GetByUUID(ctx context.Context, extractUUID string) (*model.Extract, error)
	// List возвращает выгрузки, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.Extract, error)
	// Count возвращает общее количество выгрузок.
	Count(ctx context.Context) (int, error)
	// NextSequence возвращает следующий ExtractSequence для направления.
	NextSequence(ctx context.Context, direction int16) (int, error)
}

// extractRepo — реализация ExtractRepository.
type extractRepo struct {
	db DBTX
}

// NewExtractRepository создаёт репозиторий журнала выгрузок.
func NewExtractRepository(db DBTX) ExtractRepository {
	return &extractRepo{db: db}
}

const extractColumns = `"ExtractID", "ExtractUUID", "ValidityFrom", "ValidityTo", "LegacyID",
	"ExtractType", "ExtractDirection", "ExtractSequence", "ExtractDate",
	"ExtractFileName", "ExtractFolder", "AppVersionBackend", "AuditUserID"`

func scanExtract(row pgx.Row) (*model.Extract, error) {
	e := &model.Extract{}
	err := row.Scan(
		&e.ID, &e.UUID, &e.ValidityFrom, &e.ValidityTo, &e.LegacyID,
		&e.Type, &e.Direction, &e.Sequence, &e.Date,
		&e.FileName, &e.Folder, &e.AppVersion, &e.AuditUserID,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *extractRepo) Create(ctx context.Context, e *model.Extract) error {
	if e.UUID == "" {
		e.UUID = uuid.New().String()
	}
	now := time.Now().UTC()
	if e.ValidityFrom.IsZero() {
		e.ValidityFrom = now
	}
	if e.Date.IsZero() {
		e.Date = now
	}

	query := `
		INSERT INTO "tblExtracts" ("ExtractUUID", "ValidityFrom", "ValidityTo", "LegacyID",
			"ExtractType", "ExtractDirection", "ExtractSequence", "ExtractDate",
			"ExtractFileName", "ExtractFolder", "AppVersionBackend", "AuditUserID")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING "ExtractID"`

	err := r.db.QueryRow(ctx, query,
		e.UUID, e.ValidityFrom, e.ValidityTo, e.LegacyID,
		e.Type, e.Direction, e.Sequence, e.Date,
		e.FileName, e.Folder, e.AppVersion, e.AuditUserID,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: выгрузка с таким UUID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка записи выгрузки: %w", err)
	}
	return nil
}

func (r *extractRepo) GetByUUID(ctx context.Context, extractUUID string) (*model.Extract, error) {
	query := fmt.Sprintf(`SELECT %s FROM "tblExtracts" WHERE "ExtractUUID" = $1`, extractColumns)

	e, err := scanExtract(r.db.QueryRow(ctx, query, extractUUID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения выгрузки: %w", err)
	}
	return e, nil
}

func (r *extractRepo) List(ctx context.Context, limit, offset int) ([]*model.Extract, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "tblExtracts"
		ORDER BY "ExtractDate" DESC, "ExtractID" DESC
		LIMIT $1 OFFSET $2`, extractColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка выгрузок: %w", err)
	}
	defer rows.Close()

	var extracts []*model.Extract
	for rows.Next() {
		e, err := scanExtract(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования выгрузки: %w", err)
		}
		extracts = append(extracts, e)
	}
	return extracts, rows.Err()
}

func (r *extractRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM "tblExtracts"`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта выгрузок: %w", err)
	}
	return count, nil
}

func (r *extractRepo) NextSequence(ctx context.Context, direction int16) (int, error) {
	var next int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX("ExtractSequence"), 0) + 1 FROM "tblExtracts" WHERE "ExtractDirection" = $1`,
		direction,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("ошибка вычисления номера выгрузки: %w", err)
	}
	return next, nil
}
