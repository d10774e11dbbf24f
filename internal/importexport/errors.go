package importexport

import (
	"errors"
	"fmt"
)

// ErrInvalidItemType — значение столбца type не входит в допустимые типы позиций.
// Текст совпадает с сообщением, которое видят пользователи загрузки.
var ErrInvalidItemType = errors.New("Invalid item type") //nolint:staticcheck // пользовательское сообщение

// ErrInvalidValue — значение ячейки не разбирается виджетом столбца.
var ErrInvalidValue = errors.New("недопустимое значение")

// ErrMissingColumn — в строке нет обязательного столбца.
var ErrMissingColumn = errors.New("отсутствует обязательный столбец")

// ValidationError — отказ в обработке строки импорта.
// Строка с такой ошибкой не записывается.
type ValidationError struct {
	// Column — столбец, вызвавший ошибку (пусто — строка целиком)
	Column string
	// Message — сообщение для пользователя
	Message string
	// Err — базовая ошибка для errors.Is
	Err error
}

func (e *ValidationError) Error() string {
	if e.Column == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Column, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// newValidationError создаёт ошибку валидации столбца.
func newValidationError(column string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{
		Column:  column,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
