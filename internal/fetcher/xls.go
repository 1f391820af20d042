package fetcher

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/rotisserie/eris"
)

// ole2Magic opens every OLE2 compound file, the container of BIFF (.xls)
// workbooks.
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// isOLE2 reports whether the file at path starts with the OLE2 signature.
func isOLE2(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close() //nolint:errcheck

	head := make([]byte, len(ole2Magic))
	if _, err := io.ReadFull(f, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, ole2Magic), nil
}

// ReadXLS reads a worksheet of a legacy BIFF workbook and returns all rows
// as string slices. Trailing empty cells are trimmed from each row.
func ReadXLS(path string, sel SheetSelector) (rows [][]string, err error) {
	// The BIFF decoder panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, eris.Errorf("xls: decode %s: %v", path, r)
		}
	}()

	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, eris.Wrap(err, "xls: open file")
	}

	sheet, err := xlsSheet(wb, sel)
	if err != nil {
		return nil, err
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func xlsSheet(wb *xls.WorkBook, sel SheetSelector) (*xls.WorkSheet, error) {
	n := wb.NumSheets()
	if sel.Name != "" {
		for i := 0; i < n; i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == sel.Name {
				return s, nil
			}
		}
		return nil, eris.Errorf("xls: sheet %q not found", sel.Name)
	}

	if sel.Index < 0 || sel.Index >= n {
		return nil, eris.Errorf("xls: sheet index %d out of range (file has %d sheets)", sel.Index, n)
	}
	s := wb.GetSheet(sel.Index)
	if s == nil {
		return nil, eris.Errorf("xls: sheet index %d unreadable", sel.Index)
	}
	return s, nil
}
