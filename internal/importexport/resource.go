// Пакет importexport — адаптер табличного импорта/экспорта каталога позиций.
// Экспорт превращает model.Item в строку столбцов, импорт прогоняет строку
// через Pipeline и собирает из неё model.Item.
package importexport

import (
	"strconv"
	"strings"

	"github.com/openimis/tools-module/internal/domain/model"
)

// Столбцы табличного файла.
const (
	ColumnCode      = "code"
	ColumnName      = "name"
	ColumnType      = "type"
	ColumnPackage   = "package"
	ColumnPrice     = "price"
	ColumnQuantity  = "quantity"
	ColumnCareType  = "care_type"
	ColumnFrequency = "frequency"
	ColumnMaleCat   = "male_cat"
	ColumnFemaleCat = "female_cat"
	ColumnAdultCat  = "adult_cat"
	ColumnMinorCat  = "minor_cat"
	ColumnDelete    = "delete"

	// Столбцы, добавляемые при импорте на стороне сервера.
	ColumnPatientCategory = "patient_category"
	ColumnAuditUserID     = "audit_user_id"
)

// Максимальная длина текстовых столбцов tblItems.
const (
	maxCodeLength    = 6
	maxNameLength    = 100
	maxPackageLength = 255
)

// ExportColumns — столбцы экспорта в порядке вывода.
var ExportColumns = []string{
	ColumnCode, ColumnName, ColumnType, ColumnPackage, ColumnPrice, ColumnQuantity,
	ColumnCareType, ColumnFrequency,
	ColumnMaleCat, ColumnFemaleCat, ColumnAdultCat, ColumnMinorCat,
	ColumnDelete,
}

// ImportIDFields — столбцы, по которым строка сопоставляется с существующей позицией.
var ImportIDFields = []string{ColumnCode}

// categoryColumns связывает столбцы флагов с категориями пациентов.
var categoryColumns = []struct {
	column   string
	category model.Category
}{
	{ColumnMaleCat, model.CategoryMale},
	{ColumnFemaleCat, model.CategoryFemale},
	{ColumnAdultCat, model.CategoryAdult},
	{ColumnMinorCat, model.CategoryMinor},
}

// ItemResource — описание импорта/экспорта позиций каталога.
type ItemResource struct {
	pipeline Pipeline
}

// NewItemResource создаёт ресурс со стандартной цепочкой обработки строк.
func NewItemResource() *ItemResource {
	return &ItemResource{
		pipeline: Pipeline{validateType, packPatientCategory, stampAuditUser},
	}
}

// Pipeline возвращает цепочку обработки строки импорта.
func (r *ItemResource) Pipeline() Pipeline {
	return r.pipeline
}

// Columns возвращает столбцы экспорта.
func (r *ItemResource) Columns() []string {
	return ExportColumns
}

// Dehydrate превращает позицию в строку экспорта.
// patient_category не выгружается: вместо него четыре столбца 0/1.
func (r *ItemResource) Dehydrate(item *model.Item) Row {
	row := Row{
		ColumnCode:      item.Code,
		ColumnName:      item.Name,
		ColumnType:      item.Type,
		ColumnPackage:   item.Package,
		ColumnPrice:     formatDecimal(item.Price),
		ColumnQuantity:  "",
		ColumnCareType:  item.CareType,
		ColumnFrequency: "",
		ColumnDelete:    "",
	}
	if item.Quantity != nil {
		row[ColumnQuantity] = formatDecimal(*item.Quantity)
	}
	if item.Frequency != nil {
		row[ColumnFrequency] = strconv.Itoa(*item.Frequency)
	}
	for _, cc := range categoryColumns {
		row[cc.column] = strconv.Itoa(item.PatientCategory.Flag(cc.category))
	}
	return row
}

// Transform прогоняет строку импорта через цепочку обработки.
func (r *ItemResource) Transform(row Row, rc RowContext) (Row, error) {
	return r.pipeline.Apply(row, rc)
}

// ShouldDelete определяет, помечена ли строка на удаление.
// Отсутствующий или пустой столбец delete — не удалять.
func (r *ItemResource) ShouldDelete(row Row) (bool, error) {
	return cleanBool(ColumnDelete, row[ColumnDelete])
}

// ImportID возвращает значение ключа сопоставления строки.
func (r *ItemResource) ImportID(row Row) (string, error) {
	code := strings.TrimSpace(row[ColumnCode])
	if code == "" {
		return "", newValidationError(ColumnCode, ErrMissingColumn, "код позиции обязателен")
	}
	if err := checkLength(ColumnCode, code, maxCodeLength); err != nil {
		return "", err
	}
	return code, nil
}

// Hydrate собирает позицию из строки, прошедшей Transform.
func (r *ItemResource) Hydrate(row Row) (*model.Item, error) {
	code, err := r.ImportID(row)
	if err != nil {
		return nil, err
	}

	item := &model.Item{
		Code:     code,
		Name:     strings.TrimSpace(row[ColumnName]),
		Type:     strings.TrimSpace(row[ColumnType]),
		Package:  strings.TrimSpace(row[ColumnPackage]),
		CareType: strings.ToUpper(strings.TrimSpace(row[ColumnCareType])),
	}
	if err := checkLength(ColumnName, item.Name, maxNameLength); err != nil {
		return nil, err
	}
	if err := checkLength(ColumnPackage, item.Package, maxPackageLength); err != nil {
		return nil, err
	}
	// Пустой тип помощи — значение столбца по умолчанию.
	if item.CareType == "" {
		item.CareType = model.CareTypeBoth
	}
	if !model.IsValidCareType(item.CareType) {
		return nil, newValidationError(ColumnCareType, ErrInvalidValue,
			"ожидается одно из %s, получено %q", strings.Join(model.CareTypeValues, ", "), row[ColumnCareType])
	}

	price, ok, err := cleanDecimal(ColumnPrice, row[ColumnPrice])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newValidationError(ColumnPrice, ErrMissingColumn, "цена обязательна")
	}
	item.Price = price

	if q, ok, err := cleanDecimal(ColumnQuantity, row[ColumnQuantity]); err != nil {
		return nil, err
	} else if ok {
		item.Quantity = &q
	}

	if f, ok, err := cleanSmallint(ColumnFrequency, row[ColumnFrequency]); err != nil {
		return nil, err
	} else if ok {
		item.Frequency = &f
	}

	patCat, _, err := cleanInt(ColumnPatientCategory, row[ColumnPatientCategory])
	if err != nil {
		return nil, err
	}
	item.PatientCategory = model.DecodePatientCategory(patCat)

	auditUser, ok, err := cleanInt(ColumnAuditUserID, row[ColumnAuditUserID])
	if err != nil {
		return nil, err
	}
	if !ok {
		auditUser = model.NoAuditUser
	}
	item.AuditUserID = auditUser

	return item, nil
}

// validateType отклоняет строки с неизвестным типом позиции.
func validateType(row Row, _ RowContext) (Row, error) {
	if !model.IsValidItemType(row[ColumnType]) {
		return nil, &ValidationError{
			Column:  ColumnType,
			Message: ErrInvalidItemType.Error(),
			Err:     ErrInvalidItemType,
		}
	}
	return row, nil
}

// packPatientCategory заменяет четыре столбца флагов одним patient_category.
// Отсутствующие и пустые флаги считаются нулевыми.
func packPatientCategory(row Row, _ RowContext) (Row, error) {
	var pc model.PatientCategory
	for _, cc := range categoryColumns {
		v, _, err := cleanInt(cc.column, row[cc.column])
		if err != nil {
			return nil, err
		}
		if v != 0 {
			pc = pc.With(cc.category)
		}
	}

	out := row.Clone()
	for _, cc := range categoryColumns {
		delete(out, cc.column)
	}
	out[ColumnPatientCategory] = strconv.Itoa(pc.Int())
	return out, nil
}

// stampAuditUser проставляет пользователя, выполняющего импорт.
func stampAuditUser(row Row, rc RowContext) (Row, error) {
	out := row.Clone()
	out[ColumnAuditUserID] = strconv.Itoa(rc.AuditUserID)
	return out, nil
}
