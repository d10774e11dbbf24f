package model

import "time"

// Направление выгрузки (ExtractDirection).
const (
	ExtractDirectionExport = 0
	ExtractDirectionImport = 1
)

// Тип выгрузки (ExtractType).
const (
	// ExtractTypeItems — табличный файл каталога позиций.
	ExtractTypeItems = 0
)

// Extract — запись журнала выгрузок/загрузок файлов.
// Хранится в таблице tblExtracts. После создания не изменяется,
// допускается только закрытие окна валидности.
type Extract struct {
	// ID — ExtractID, автоинкремент
	ID int
	// UUID — ExtractUUID, уникальный
	UUID string
	// ValidityFrom — начало окна валидности
	ValidityFrom time.Time
	// ValidityTo — конец окна валидности; nil — запись актуальна
	ValidityTo *time.Time
	// LegacyID — ID предыдущей версии записи
	LegacyID *int
	// Type — ExtractType
	Type int16
	// Direction — ExtractDirection (0 — export, 1 — import)
	Direction int16
	// Sequence — ExtractSequence
	Sequence int
	// Date — ExtractDate
	Date time.Time
	// FileName — ExtractFileName
	FileName string
	// Folder — ExtractFolder
	Folder string
	// AppVersion — AppVersionBackend, numeric(3,2)
	AppVersion float64
	// AuditUserID — пользователь, инициировавший выгрузку
	AuditUserID int
}

// IsCurrent проверяет, покрывает ли окно валидности момент now.
func (e *Extract) IsCurrent(now time.Time) bool {
	return isCurrent(e.ValidityFrom, e.ValidityTo, now)
}
