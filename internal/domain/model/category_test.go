package model

import "testing"

// TestPatientCategory_DecodeEncode проверяет, что для любого значения,
// составленного только из известных масок, decode → encode даёт исходное значение.
func TestPatientCategory_DecodeEncode(t *testing.T) {
	for v := 0; v <= 15; v++ {
		if got := DecodePatientCategory(v).Int(); got != v {
			t.Errorf("DecodePatientCategory(%d).Int() = %d", v, got)
		}
	}
}

// TestPatientCategory_EncodeDecode перебирает все 16 комбинаций флагов.
func TestPatientCategory_EncodeDecode(t *testing.T) {
	for i := 0; i < 16; i++ {
		male, female, adult, minor := i&1 != 0, i&2 != 0, i&4 != 0, i&8 != 0

		pc := DecodePatientCategory(PatientCategoryFromFlags(male, female, adult, minor).Int())

		want := map[Category]bool{
			CategoryMale: male, CategoryFemale: female,
			CategoryAdult: adult, CategoryMinor: minor,
		}
		for c, set := range want {
			wantFlag := 0
			if set {
				wantFlag = 1
			}
			if got := pc.Flag(c); got != wantFlag {
				t.Errorf("комбинация %04b: Flag(%s) = %d, ожидали %d", i, c, got, wantFlag)
			}
		}
	}
}

func TestPatientCategory_Masks(t *testing.T) {
	tests := []struct {
		name string
		pc   PatientCategory
		want int
	}{
		{"пустое", PatientCategory{}, 0},
		{"мужчины", NewPatientCategory(CategoryMale), 1},
		{"женщины", NewPatientCategory(CategoryFemale), 2},
		{"взрослые", NewPatientCategory(CategoryAdult), 4},
		{"дети", NewPatientCategory(CategoryMinor), 8},
		{"мужчины и взрослые", NewPatientCategory(CategoryMale, CategoryAdult), 5},
		{"повтор не меняет маску", NewPatientCategory(CategoryMinor, CategoryMinor), 8},
		{"все", NewPatientCategory(AllCategories...), 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pc.Int(); got != tt.want {
				t.Errorf("Int() = %d, ожидали %d", got, tt.want)
			}
		})
	}
}

func TestDecodePatientCategory_UnknownBits(t *testing.T) {
	pc := DecodePatientCategory(16 | 4 | 1)
	if pc.Int() != 5 {
		t.Errorf("Int() = %d, ожидали 5 (неизвестные биты отброшены)", pc.Int())
	}
	if !pc.Has(CategoryMale) || !pc.Has(CategoryAdult) {
		t.Error("ожидали male и adult в множестве")
	}
	if pc.Has(CategoryFemale) || pc.Has(CategoryMinor) {
		t.Error("female и minor не должны входить в множество")
	}
}

func TestPatientCategory_Categories(t *testing.T) {
	pc := PatientCategory{}.With(CategoryMinor).With(CategoryFemale)

	got := pc.Categories()
	if len(got) != 2 || got[0] != CategoryFemale || got[1] != CategoryMinor {
		t.Errorf("Categories() = %v, ожидали [female minor]", got)
	}
	if pc.IsEmpty() {
		t.Error("IsEmpty() = true для непустого множества")
	}
	if !(PatientCategory{}).IsEmpty() {
		t.Error("нулевое значение должно быть пустым множеством")
	}
}
