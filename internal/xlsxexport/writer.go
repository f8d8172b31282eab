// Package xlsxexport wraps excelize for building multi-sheet spreadsheet
// exports row by row.
package xlsxexport

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type for .xlsx downloads.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds an xlsx file sheet by sheet.
type Workbook struct {
	file   *excelize.File
	sheets int
}

// Sheet appends rows to one worksheet.
type Sheet struct {
	file *excelize.File
	name string
	row  int
}

// NewWorkbook creates an empty workbook. The first added sheet replaces the
// default one.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet creates a named worksheet and returns its row appender.
func (w *Workbook) AddSheet(name string) (*Sheet, error) {
	if w.sheets == 0 {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return nil, fmt.Errorf("renaming sheet: %w", err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return nil, fmt.Errorf("adding sheet %s: %w", name, err)
		}
	}
	w.sheets++
	return &Sheet{file: w.file, name: name}, nil
}

// Write serializes the workbook.
func (w *Workbook) Write(out io.Writer) error {
	return w.file.Write(out)
}

// Close releases the underlying file resources.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// AppendRow writes one row of cell values below the previous one.
func (s *Sheet) AppendRow(values ...any) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", s.row, s.name, err)
	}
	return nil
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition. Replaces
// non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.xlsx
func BuildFilename(name string) string {
	return fmt.Sprintf("%s_%s.xlsx", SanitizeFilename(name), time.Now().Format("2006-01-02"))
}
