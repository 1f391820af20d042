package fetcher

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetSelector picks a worksheet. Name wins over Index; the zero value
// selects the first sheet.
type SheetSelector struct {
	Index int    `yaml:"index" mapstructure:"index"`
	Name  string `yaml:"name" mapstructure:"name"`
}

func (s SheetSelector) String() string {
	if s.Name != "" {
		return strconv.Quote(s.Name)
	}
	return fmt.Sprintf("#%d", s.Index)
}

// ReadXLSX reads a worksheet and returns all rows as string slices.
func ReadXLSX(path string, sel SheetSelector) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, sel)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}

	return rows, nil
}

// SheetNames lists the worksheets of an XLSX file in workbook order.
func SheetNames(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	names := make([]string, len(f.Sheets))
	for i, s := range f.Sheets {
		names[i] = s.Name
	}
	return names, nil
}

func getSheet(f *xlsx.File, sel SheetSelector) (*xlsx.Sheet, error) {
	if sel.Name != "" {
		sheet, ok := f.Sheet[sel.Name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", sel.Name)
		}
		return sheet, nil
	}

	if sel.Index < 0 || sel.Index >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", sel.Index, len(f.Sheets))
	}

	return f.Sheets[sel.Index], nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}
