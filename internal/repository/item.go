package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openimis/tools-module/internal/domain/model"
)

// ItemRepository — доступ к каталогу позиций tblItems.
type ItemRepository interface {
	// FindCurrentByCode ищет единственную актуальную на момент now позицию с кодом code.
	// ErrNotFound — актуальной позиции нет; ErrAmbiguousMatch — их несколько.
	FindCurrentByCode(ctx context.Context, code string, now time.Time) (*model.Item, error)
	// ListCurrent возвращает все позиции, актуальные на момент now, по коду.
	ListCurrent(ctx context.Context, now time.Time) ([]*model.Item, error)
	// Create вставляет новую позицию. Заполняет ID, UUID (если пуст).
	Create(ctx context.Context, item *model.Item) error
	// Update обновляет бизнес-поля и аудит позиции по ID.
	Update(ctx context.Context, item *model.Item) error
	// CloseValidity закрывает окно валидности позиции (удаление).
	// Закрывается запись, действующая на момент at, в том числе с ValidityTo в будущем.
	CloseValidity(ctx context.Context, id int, at time.Time, auditUserID int) error
}

// itemRepo — реализация ItemRepository.
type itemRepo struct {
	db DBTX
}

// NewItemRepository создаёт репозиторий каталога позиций.
func NewItemRepository(db DBTX) ItemRepository {
	return &itemRepo{db: db}
}

const itemColumns = `"ItemID", "ItemUUID", "ItemCode", "ItemName", "ItemType", "ItemPackage",
	"ItemPrice", "ItemQuantity", "ItemCareType", "ItemFrequency", "ItemPatCat",
	"ValidityFrom", "ValidityTo", "LegacyID", "AuditUserID"`

// scanItem читает строку в порядке itemColumns.
func scanItem(row pgx.Row) (*model.Item, error) {
	item := &model.Item{}
	var patCat int
	err := row.Scan(
		&item.ID, &item.UUID, &item.Code, &item.Name, &item.Type, &item.Package,
		&item.Price, &item.Quantity, &item.CareType, &item.Frequency, &patCat,
		&item.ValidityFrom, &item.ValidityTo, &item.LegacyID, &item.AuditUserID,
	)
	if err != nil {
		return nil, err
	}
	item.PatientCategory = model.DecodePatientCategory(patCat)
	return item, nil
}

func (r *itemRepo) FindCurrentByCode(ctx context.Context, code string, now time.Time) (*model.Item, error) {
	// LIMIT 2 достаточно, чтобы отличить единственное совпадение от нескольких
	query := fmt.Sprintf(`
		SELECT %s
		FROM "tblItems"
		WHERE "ItemCode" = $1 AND %s
		ORDER BY "ItemID"
		LIMIT 2`, itemColumns, currentCondition(2))

	rows, err := r.db.Query(ctx, query, code, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска позиции: %w", err)
	}
	defer rows.Close()

	var found []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции: %w", err)
		}
		found = append(found, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка поиска позиции: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: код %q", ErrAmbiguousMatch, code)
	}
}

func (r *itemRepo) ListCurrent(ctx context.Context, now time.Time) ([]*model.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM "tblItems"
		WHERE %s
		ORDER BY "ItemCode", "ItemID"`, itemColumns, currentCondition(1))

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка позиций: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования позиции: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	if item.UUID == "" {
		item.UUID = uuid.New().String()
	}
	if item.ValidityFrom.IsZero() {
		item.ValidityFrom = time.Now().UTC()
	}

	query := `
		INSERT INTO "tblItems" ("ItemUUID", "ItemCode", "ItemName", "ItemType", "ItemPackage",
			"ItemPrice", "ItemQuantity", "ItemCareType", "ItemFrequency", "ItemPatCat",
			"ValidityFrom", "ValidityTo", "LegacyID", "AuditUserID")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING "ItemID"`

	err := r.db.QueryRow(ctx, query,
		item.UUID, item.Code, item.Name, item.Type, item.Package,
		item.Price, item.Quantity, item.CareType, item.Frequency, item.PatientCategory.Int(),
		item.ValidityFrom, item.ValidityTo, item.LegacyID, item.AuditUserID,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: позиция с таким UUID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания позиции: %w", err)
	}
	return nil
}

func (r *itemRepo) Update(ctx context.Context, item *model.Item) error {
	query := `
		UPDATE "tblItems"
		SET "ItemName" = $2, "ItemType" = $3, "ItemPackage" = $4, "ItemPrice" = $5,
			"ItemQuantity" = $6, "ItemCareType" = $7, "ItemFrequency" = $8,
			"ItemPatCat" = $9, "AuditUserID" = $10
		WHERE "ItemID" = $1`

	tag, err := r.db.Exec(ctx, query,
		item.ID, item.Name, item.Type, item.Package, item.Price,
		item.Quantity, item.CareType, item.Frequency,
		item.PatientCategory.Int(), item.AuditUserID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления позиции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *itemRepo) CloseValidity(ctx context.Context, id int, at time.Time, auditUserID int) error {
	query := `
		UPDATE "tblItems"
		SET "ValidityTo" = $2, "AuditUserID" = $3
		WHERE "ItemID" = $1 AND ("ValidityTo" IS NULL OR "ValidityTo" > $2)`

	tag, err := r.db.Exec(ctx, query, id, at, auditUserID)
	if err != nil {
		return fmt.Errorf("ошибка закрытия позиции: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
