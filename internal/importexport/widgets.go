package importexport

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Ограничения столбцов tblItems.
const (
	// decimalScale — множитель для округления numeric(18,2) до сотых.
	decimalScale = 100
	// decimalLimit — модуль numeric(18,2) должен быть строго меньше 10^16.
	decimalLimit = 1e16

	smallintMin = math.MinInt16
	smallintMax = math.MaxInt16
)

// Значения, которые булев виджет принимает как true/false (без учёта регистра).
var (
	boolTrueValues  = map[string]bool{"1": true, "true": true, "yes": true, "y": true, "on": true}
	boolFalseValues = map[string]bool{"": true, "0": true, "false": true, "no": true, "n": true, "off": true}
)

// cleanBool разбирает булево значение ячейки.
func cleanBool(column, value string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case boolTrueValues[v]:
		return true, nil
	case boolFalseValues[v]:
		return false, nil
	default:
		return false, newValidationError(column, ErrInvalidValue, "ожидается булево значение, получено %q", value)
	}
}

// cleanInt разбирает целое значение. Пустая ячейка — ok=false.
// Допускается запись вида "1.0", которую дают табличные редакторы.
func cleanInt(column, value string) (n int, ok bool, err error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false, nil
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i, true, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false, newValidationError(column, ErrInvalidValue, "ожидается целое число, получено %q", value)
	}
	return int(f), true, nil
}

// cleanFloat разбирает десятичное значение. Пустая ячейка — ok=false.
func cleanFloat(column, value string) (f float64, ok bool, err error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false, nil
	}
	f, err = strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, newValidationError(column, ErrInvalidValue, "ожидается число, получено %q", value)
	}
	return f, true, nil
}

// cleanDecimal разбирает значение numeric(18,2): округляет до сотых,
// как это сделает база, и проверяет диапазон.
func cleanDecimal(column, value string) (f float64, ok bool, err error) {
	f, ok, err = cleanFloat(column, value)
	if err != nil || !ok {
		return f, ok, err
	}
	f = math.Round(f*decimalScale) / decimalScale
	if math.Abs(f) >= decimalLimit {
		return 0, false, newValidationError(column, ErrInvalidValue, "значение %q вне диапазона numeric(18,2)", value)
	}
	return f, true, nil
}

// cleanSmallint разбирает целое в диапазоне SMALLINT.
func cleanSmallint(column, value string) (n int, ok bool, err error) {
	n, ok, err = cleanInt(column, value)
	if err != nil || !ok {
		return n, ok, err
	}
	if n < smallintMin || n > smallintMax {
		return 0, false, newValidationError(column, ErrInvalidValue, "значение %d вне диапазона %d..%d", n, smallintMin, smallintMax)
	}
	return n, true, nil
}

// checkLength отклоняет строки длиннее limit символов.
func checkLength(column, value string, limit int) error {
	if n := utf8.RuneCountInString(value); n > limit {
		return newValidationError(column, ErrInvalidValue, "длина %d превышает %d символов", n, limit)
	}
	return nil
}

// formatDecimal форматирует numeric(18,2) для экспорта.
func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
