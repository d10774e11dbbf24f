package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// readCSV возвращает записи и номера строк, с которых они начинаются.
// encoding/csv сам пропускает пустые строки, поэтому номер берётся из FieldPos.
func readCSV(r io.Reader) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	// Число полей в строках может различаться: недостающие ячейки — пустые.
	cr.FieldsPerRecord = -1

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка чтения CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

func writeCSV(d *Dataset, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Headers); err != nil {
		return fmt.Errorf("ошибка записи CSV: %w", err)
	}
	if err := cw.WriteAll(d.Records); err != nil {
		return fmt.Errorf("ошибка записи CSV: %w", err)
	}
	return nil
}
