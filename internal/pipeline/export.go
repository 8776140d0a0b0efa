package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/logging"
	"mitcircs/internal/util"
)

const (
	maxColumnWidth = 255
	maxSheetName   = 31
)

// OutputFilename names the tracker workbook after the student count and day.
func OutputFilename(dir string, students int, now time.Time) string {
	name := fmt.Sprintf("Mitigating Circumstances Tracker - %d Students - %s.xlsx", students, now.Format("02-January-2006"))
	return filepath.Join(dir, name)
}

func SheetName(students int) string {
	name := fmt.Sprintf("Mitigating Circumstances (%d)", students)
	if len(name) > maxSheetName {
		name = fmt.Sprintf("MitCircs (%d)", students)
	}
	return name
}

// RequiredColumnWidth is the width of the longest single line in any of the
// cells, so wrapped cells never cut a line short.
func RequiredColumnWidth(cells []string) int {
	widest := 0
	for _, c := range cells {
		if w := util.LongestLineWidth(c); w > widest {
			widest = w
		}
	}
	return widest
}

func columnWidth(header string, cells []string, wrapped bool, padding int) float64 {
	var width int
	if wrapped {
		width = RequiredColumnWidth(cells) + padding
	} else {
		width = util.DisplayWidth(header)
		for _, c := range cells {
			if w := util.DisplayWidth(c); w > width {
				width = w
			}
		}
	}
	if width < 1 {
		width = util.DisplayWidth(header)
	}
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return float64(width)
}

// WriteTrackerXLSX writes the projected tracker table to outputPath, sizing
// each column and wrapping the multi-line ones. Cells longer than Excel allows
// are cut short by excelize; each one is logged.
func WriteTrackerXLSX(table internal.Table, outputPath string, padding int, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(len(table.Rows))
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return errors.Wrap(err, "wrap style")
	}

	for i, h := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, row := range table.Rows {
		for c := range table.Columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			value := row.Cell(c)
			if n := utf8.RuneCountInString(value); n > excelize.TotalCellChars {
				logger.Warn("cell truncated",
					zap.String("cell", cell),
					zap.String("column", table.Columns[c]),
					zap.Int("chars", n),
					zap.Int("limit", excelize.TotalCellChars),
				)
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	for c, h := range table.Columns {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		cells := make([]string, len(table.Rows))
		for r, row := range table.Rows {
			cells[r] = row.Cell(c)
		}
		_, wrapped := WrappedColumns[h]
		if err := f.SetColWidth(sheet, col, col, columnWidth(h, cells, wrapped, padding)); err != nil {
			return errors.Wrapf(err, "width of column %s", h)
		}
		if wrapped {
			if err := f.SetColStyle(sheet, col, wrapStyle); err != nil {
				return errors.Wrapf(err, "style of column %s", h)
			}
			if n := len(table.Rows); n > 0 {
				if err := f.SetCellStyle(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, n+1), wrapStyle); err != nil {
					return errors.Wrapf(err, "style of column %s", h)
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(outputPath); err != nil {
		return errors.Wrapf(err, "save %s", outputPath)
	}
	return nil
}
