package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: the first row is treated as the header.
type Sheet struct {
	Name string
	Rows [][]any
}

// maxSheetName is Excel's limit on worksheet names.
const maxSheetName = 31

var sheetNameCleaner = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// Workbook builds a single workbook with one worksheet per sheet, in order.
func Workbook(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"343A40"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	used := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		name := uniqueSheetName(s.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}
		width := 0
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", name, r+1, err)
			}
			width = max(width, len(row))
		}
		if width > 0 && len(s.Rows) > 0 {
			last, err := excelize.CoordinatesToCellName(width, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
				return nil, fmt.Errorf("style %s header: %w", name, err)
			}
			lastCol, _ := excelize.ColumnNumberToName(width)
			if err := f.SetColWidth(name, "A", lastCol, 22); err != nil {
				return nil, fmt.Errorf("size %s columns: %w", name, err)
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.TrimSpace(sheetNameCleaner.Replace(name))
	if name == "" {
		name = "Sheet"
	}
	runes := []rune(name)
	if len(runes) > maxSheetName {
		runes = runes[:maxSheetName]
	}
	candidate := string(runes)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" %d", n)
		candidate = string(runes[:min(len(runes), maxSheetName-len(suffix))]) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
