package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DecodeWorkbook читает xlsx и превращает каждый лист в последовательность
// строк ключ/значение. Первая непустая строка листа считается заголовком.
// Ячейки читаются сырыми, чтобы серийные даты Excel дошли до парсера
// периода числами, а не отформатированным текстом.
func DecodeWorkbook(r io.Reader) (WorkbookData, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return WorkbookData{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	if len(sheetNames) == 0 {
		return WorkbookData{}, fmt.Errorf("no sheets found in workbook")
	}

	data := WorkbookData{Sheets: make([]SheetData, 0, len(sheetNames))}
	for _, name := range sheetNames {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return WorkbookData{}, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		data.Sheets = append(data.Sheets, SheetData{
			Name: name,
			Rows: decodeSheetRows(rows),
		})
	}

	return data, nil
}

// decodeSheetRows превращает сырые строки листа в записи по заголовкам.
// Пустые строки пропускаются, но физический номер строки в файле сохраняется
// в каждой записи: он нужен для провенанса при ручном ревью.
func decodeSheetRows(rows [][]string) []SheetRow {
	headerIdx := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil
	}

	headers := rows[headerIdx]
	out := make([]SheetRow, 0, len(rows)-headerIdx-1)
	for i, row := range rows[headerIdx+1:] {
		if isEmptyRow(row) {
			continue
		}
		record := make(map[string]any, len(headers))
		for j, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			if j < len(row) {
				record[header] = strings.TrimSpace(row[j])
			} else {
				record[header] = ""
			}
		}
		out = append(out, SheetRow{
			Number: headerIdx + i + 2, // 1-based строка файла
			Cells:  record,
		})
	}
	return out
}

// isEmptyRow проверяет, является ли строка пустой
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
