package normalization

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat формат экспорта сводки нормализации
type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// SummaryExporter экспортер сводки нормализации для ревью человеком
type SummaryExporter struct{}

// NewSummaryExporter создает новый экспортер
func NewSummaryExporter() *SummaryExporter {
	return &SummaryExporter{}
}

// Export записывает сводку в указанном формате
func (e *SummaryExporter) Export(w io.Writer, summary Summary, format ExportFormat) error {
	switch format {
	case FormatJSON:
		return e.exportJSON(w, summary)
	case FormatCSV:
		return e.exportCSV(w, summary)
	case FormatExcel:
		return e.exportExcel(w, summary)
	}
	return fmt.Errorf("unsupported export format: %s", format)
}

// exportJSON экспортирует сводку в JSON
func (e *SummaryExporter) exportJSON(w io.Writer, summary Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]interface{}{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"summary":     summary,
	}

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// exportCSV экспортирует сводку в CSV одним плоским списком
func (e *SummaryExporter) exportCSV(w io.Writer, summary Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Kind", "Original", "Normalized", "Occurrences"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	rows := [][]string{}
	for _, c := range summary.Organizations {
		rows = append(rows, []string{"organization", c.Original, c.Normalized, strconv.Itoa(c.OccurrenceCount)})
	}
	for _, c := range summary.Metrics {
		rows = append(rows, []string{"metric", c.Original, c.Normalized, strconv.Itoa(c.OccurrenceCount)})
	}
	for _, c := range summary.Industries {
		rows = append(rows, []string{"industry", c.Original, c.Normalized, strconv.Itoa(c.OccurrenceCount)})
	}
	for _, u := range summary.UnmatchedOrganizations {
		rows = append(rows, []string{"unmatched_organization", u.Name, "", strconv.Itoa(u.OccurrenceCount)})
	}
	for _, u := range summary.UnmatchedMetrics {
		rows = append(rows, []string{"unmatched_metric", u.Name, "", strconv.Itoa(u.OccurrenceCount)})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

// exportExcel экспортирует сводку в книгу с отдельными листами по категориям
func (e *SummaryExporter) exportExcel(w io.Writer, summary Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeChangeSheet(f, "Organizations", summary.Organizations, true); err != nil {
		return err
	}
	if err := writeChangeSheet(f, "Metrics", summary.Metrics, false); err != nil {
		return err
	}
	if err := writeChangeSheet(f, "Industries", summary.Industries, false); err != nil {
		return err
	}
	if err := writeUnmatchedSheet(f, "Unmatched Orgs", summary.UnmatchedOrganizations); err != nil {
		return err
	}
	if err := writeUnmatchedSheet(f, "Unmatched Metrics", summary.UnmatchedMetrics); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeChangeSheet(f *excelize.File, name string, changes []NormalizationChange, first bool) error {
	if first {
		// Переименовываем дефолтный лист вместо создания нового
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to rename sheet %s: %w", name, err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	if err := f.SetSheetRow(name, "A1", &[]interface{}{"Original", "Normalized", "Occurrences"}); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for i, c := range changes {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &[]interface{}{c.Original, c.Normalized, c.OccurrenceCount}); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", name, err)
		}
	}
	return nil
}

func writeUnmatchedSheet(f *excelize.File, name string, values []UnmatchedValue) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &[]interface{}{"Name", "Occurrences"}); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	for i, u := range values {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &[]interface{}{u.Name, u.OccurrenceCount}); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", name, err)
		}
	}
	return nil
}
