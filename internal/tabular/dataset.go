// Пакет tabular — табличные наборы данных и их кодеки (CSV, XLSX).
package tabular

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format — формат табличного файла.
type Format string

const (
	// FormatCSV — текст с разделителем-запятой, UTF-8.
	FormatCSV Format = "csv"
	// FormatXLSX — книга Excel, используется первый лист.
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat — формат не поддерживается.
var ErrUnsupportedFormat = errors.New("неподдерживаемый формат")

// ErrEmptyDataset — в файле нет строки заголовков.
var ErrEmptyDataset = errors.New("файл не содержит заголовков")

// ParseFormat разбирает имя формата (без учёта регистра).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType возвращает MIME-тип формата.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension возвращает расширение файла с точкой.
func (f Format) Extension() string {
	return "." + string(f)
}

// Dataset — таблица со строкой заголовков.
type Dataset struct {
	Headers []string
	Records [][]string
	// Lines — номера строк исходного файла для Records (заголовок — строка 1).
	// Пусто для наборов, собранных через Append.
	Lines []int
}

// NewDataset создаёт пустой набор с заданными заголовками.
func NewDataset(headers []string) *Dataset {
	return &Dataset{Headers: append([]string(nil), headers...)}
}

// Append добавляет строку, беря значения столбцов из row по заголовкам.
func (d *Dataset) Append(row map[string]string) {
	rec := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		rec[i] = row[h]
	}
	d.Records = append(d.Records, rec)
}

// Len возвращает количество строк данных.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Line возвращает номер строки исходного файла для i-й записи.
// Без сведений об источнике записи считаются идущими подряд после заголовка.
func (d *Dataset) Line(i int) int {
	if i < len(d.Lines) {
		return d.Lines[i]
	}
	return i + 2
}

// Row возвращает i-ю строку как отображение заголовок → значение.
// Недостающие ячейки считаются пустыми, лишние отбрасываются.
func (d *Dataset) Row(i int) map[string]string {
	rec := d.Records[i]
	row := make(map[string]string, len(d.Headers))
	for j, h := range d.Headers {
		if j < len(rec) {
			row[h] = rec[j]
		} else {
			row[h] = ""
		}
	}
	return row
}

// Decode читает набор данных в указанном формате.
func Decode(format Format, r io.Reader) (*Dataset, error) {
	var (
		records [][]string
		lines   []int
		err     error
	)
	switch format {
	case FormatCSV:
		records, lines, err = readCSV(r)
	case FormatXLSX:
		records, lines, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records, lines)
}

// Encode записывает набор данных в указанном формате.
func Encode(format Format, d *Dataset, w io.Writer) error {
	switch format {
	case FormatCSV:
		return writeCSV(d, w)
	case FormatXLSX:
		return writeXLSX(d, w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// fromRecords отделяет заголовки и пропускает полностью пустые строки.
// lines[i] — номер строки файла для records[i].
func fromRecords(records [][]string, lines []int) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	d := &Dataset{Headers: headers}
	for i := 1; i < len(records); i++ {
		if isBlank(records[i]) {
			continue
		}
		d.Records = append(d.Records, records[i])
		d.Lines = append(d.Lines, lines[i])
	}
	return d, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
