// Package xlsx renders batch export sections as an Excel workbook, one sheet per section.
package xlsx

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheet = "Sheet1"
	// Column width is the longest cell in characters plus this padding.
	widthPadding = 2
)

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteWorkbook(out io.Writer, sections []domain.ExportSection) error {
	f := excelize.NewFile()
	defer f.Close()

	if len(sections) == 0 {
		// A workbook needs at least one sheet.
		sections = []domain.ExportSection{{
			Type:    domain.TypeUnknown,
			Title:   domain.TypeUnknown.SheetTitle(),
			Columns: []string{"Archivo", "Estado Validación"},
		}}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, section := range sections {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, section.Title); err != nil {
				return fmt.Errorf("rename sheet %q: %w", section.Title, err)
			}
		} else if _, err := f.NewSheet(section.Title); err != nil {
			return fmt.Errorf("create sheet %q: %w", section.Title, err)
		}
		if err := writeSection(f, section, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(out); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeSection(f *excelize.File, section domain.ExportSection, headerStyle int) error {
	sheet := section.Title
	rows := make([][]string, 0, len(section.Rows)+1)
	rows = append(rows, section.Columns)
	rows = append(rows, section.Rows...)

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}

	if len(section.Columns) == 0 {
		return nil
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(section.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for c, width := range columnWidths(rows, len(section.Columns)) {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("size %s column %s: %w", sheet, col, err)
		}
	}
	return nil
}

func columnWidths(rows [][]string, columns int) []int {
	widths := make([]int, columns)
	for _, row := range rows {
		for c := 0; c < columns && c < len(row); c++ {
			if n := utf8.RuneCountInString(row[c]); n > widths[c] {
				widths[c] = n
			}
		}
	}
	for c := range widths {
		widths[c] += widthPadding
	}
	return widths
}
