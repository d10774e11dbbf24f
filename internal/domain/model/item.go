package model

import "time"

// Типы позиций каталога (ItemType).
const (
	ItemTypeDrug              = "D"
	ItemTypeMedicalConsumable = "M"
)

// ItemTypeValues — допустимые значения ItemType.
var ItemTypeValues = []string{ItemTypeDrug, ItemTypeMedicalConsumable}

// IsValidItemType проверяет, что тип позиции входит в ItemTypeValues.
func IsValidItemType(t string) bool {
	for _, v := range ItemTypeValues {
		if v == t {
			return true
		}
	}
	return false
}

// Типы оказания помощи (ItemCareType).
const (
	CareTypeOutPatient = "O"
	CareTypeInPatient  = "I"
	CareTypeBoth       = "B"
)

// CareTypeValues — допустимые значения ItemCareType.
var CareTypeValues = []string{CareTypeOutPatient, CareTypeInPatient, CareTypeBoth}

// IsValidCareType проверяет, что тип помощи входит в CareTypeValues.
func IsValidCareType(t string) bool {
	for _, v := range CareTypeValues {
		if v == t {
			return true
		}
	}
	return false
}

// NoAuditUser — значение AuditUserID, когда пользователь не передан.
const NoAuditUser = -1

// Item — позиция медицинского каталога (лекарство или расходный материал).
// Хранится в таблице tblItems; история версий ведётся через окно валидности.
type Item struct {
	// ID — ItemID, автоинкремент
	ID int
	// UUID — ItemUUID
	UUID string
	// Code — ItemCode, естественный ключ при импорте
	Code string
	// Name — ItemName
	Name string
	// Type — ItemType (D, M)
	Type string
	// Package — ItemPackage
	Package string
	// Price — ItemPrice, numeric(18,2)
	Price float64
	// Quantity — ItemQuantity (опционально)
	Quantity *float64
	// CareType — ItemCareType (O, I, B)
	CareType string
	// Frequency — ItemFrequency (опционально)
	Frequency *int
	// PatientCategory — ItemPatCat
	PatientCategory PatientCategory
	// ValidityFrom — начало окна валидности
	ValidityFrom time.Time
	// ValidityTo — конец окна валидности; nil — запись актуальна
	ValidityTo *time.Time
	// LegacyID — ID предыдущей версии записи
	LegacyID *int
	// AuditUserID — пользователь, внёсший изменение
	AuditUserID int
}

// IsCurrent проверяет, покрывает ли окно валидности момент now.
func (i *Item) IsCurrent(now time.Time) bool {
	return isCurrent(i.ValidityFrom, i.ValidityTo, now)
}

// SameContent сравнивает бизнес-поля двух версий позиции.
// Служебные поля (ID, UUID, валидность, аудит) не сравниваются.
func (i *Item) SameContent(o *Item) bool {
	return i.Code == o.Code &&
		i.Name == o.Name &&
		i.Type == o.Type &&
		i.Package == o.Package &&
		i.Price == o.Price &&
		equalFloatPtr(i.Quantity, o.Quantity) &&
		i.CareType == o.CareType &&
		equalIntPtr(i.Frequency, o.Frequency) &&
		i.PatientCategory == o.PatientCategory
}

// isCurrent — общая проверка окна валидности.
func isCurrent(from time.Time, to *time.Time, now time.Time) bool {
	if from.After(now) {
		return false
	}
	return to == nil || to.After(now)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
