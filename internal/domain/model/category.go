package model

// Category — одна из категорий пациентов, для которых допустима позиция каталога.
type Category uint8

const (
	// CategoryMale — мужчины.
	CategoryMale Category = iota
	// CategoryFemale — женщины.
	CategoryFemale
	// CategoryAdult — взрослые.
	CategoryAdult
	// CategoryMinor — несовершеннолетние.
	CategoryMinor
)

// Битовые маски legacy-столбца ItemPatCat. Совместимы с существующей схемой.
const (
	PatientCategoryMaskMale   = 1
	PatientCategoryMaskFemale = 2
	PatientCategoryMaskAdult  = 4
	PatientCategoryMaskMinor  = 8

	patientCategoryMaskAll = PatientCategoryMaskMale | PatientCategoryMaskFemale |
		PatientCategoryMaskAdult | PatientCategoryMaskMinor
)

// AllCategories — все категории в порядке столбцов экспорта.
var AllCategories = []Category{CategoryMale, CategoryFemale, CategoryAdult, CategoryMinor}

// Mask возвращает битовую маску категории.
func (c Category) Mask() int {
	switch c {
	case CategoryMale:
		return PatientCategoryMaskMale
	case CategoryFemale:
		return PatientCategoryMaskFemale
	case CategoryAdult:
		return PatientCategoryMaskAdult
	case CategoryMinor:
		return PatientCategoryMaskMinor
	default:
		return 0
	}
}

// String возвращает имя категории.
func (c Category) String() string {
	switch c {
	case CategoryMale:
		return "male"
	case CategoryFemale:
		return "female"
	case CategoryAdult:
		return "adult"
	case CategoryMinor:
		return "minor"
	default:
		return "unknown"
	}
}

// PatientCategory — множество категорий пациентов.
// Нулевое значение — пустое множество.
type PatientCategory struct {
	bits int
}

// NewPatientCategory создаёт множество из перечисленных категорий.
func NewPatientCategory(cats ...Category) PatientCategory {
	var pc PatientCategory
	for _, c := range cats {
		pc.bits |= c.Mask()
	}
	return pc
}

// PatientCategoryFromFlags собирает множество из четырёх независимых флагов.
func PatientCategoryFromFlags(male, female, adult, minor bool) PatientCategory {
	var pc PatientCategory
	if male {
		pc.bits |= PatientCategoryMaskMale
	}
	if female {
		pc.bits |= PatientCategoryMaskFemale
	}
	if adult {
		pc.bits |= PatientCategoryMaskAdult
	}
	if minor {
		pc.bits |= PatientCategoryMaskMinor
	}
	return pc
}

// DecodePatientCategory разбирает legacy-значение ItemPatCat.
// Биты вне четырёх известных масок отбрасываются.
func DecodePatientCategory(v int) PatientCategory {
	return PatientCategory{bits: v & patientCategoryMaskAll}
}

// Int возвращает legacy-представление (OR масок всех элементов).
func (pc PatientCategory) Int() int {
	return pc.bits
}

// Has проверяет принадлежность категории множеству.
func (pc PatientCategory) Has(c Category) bool {
	m := c.Mask()
	return m != 0 && pc.bits&m != 0
}

// Flag возвращает 1, если категория входит в множество, иначе 0.
func (pc PatientCategory) Flag(c Category) int {
	if pc.Has(c) {
		return 1
	}
	return 0
}

// With возвращает множество с добавленной категорией.
func (pc PatientCategory) With(c Category) PatientCategory {
	return PatientCategory{bits: pc.bits | c.Mask()}
}

// Categories возвращает элементы множества в порядке AllCategories.
func (pc PatientCategory) Categories() []Category {
	var result []Category
	for _, c := range AllCategories {
		if pc.Has(c) {
			result = append(result, c)
		}
	}
	return result
}

// IsEmpty — true, если ни одна категория не выбрана.
func (pc PatientCategory) IsEmpty() bool {
	return pc.bits == 0
}
