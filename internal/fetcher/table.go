package fetcher

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// LoadTable parses a spreadsheet into a table. The first row supplies the
// column names verbatim; later rows are padded to the header width and empty
// cells become nil. Files carrying the OLE2 signature are read as BIFF
// workbooks whatever their extension; otherwise CSV files are recognized by
// extension and everything else is read as XLSX.
func LoadTable(ctx context.Context, path string, sel SheetSelector) (model.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Table{}, model.NotFoundError("load table", eris.Wrap(err, path))
		}
		return model.Table{}, model.IOError("load table", eris.Wrap(err, path))
	}
	if info.IsDir() {
		return model.Table{}, model.ParseError("load table", eris.Errorf("%s is a directory", path))
	}

	legacy, err := isOLE2(path)
	if err != nil {
		return model.Table{}, model.IOError("load table", eris.Wrap(err, path))
	}

	var records [][]string
	switch {
	case legacy:
		records, err = ReadXLS(path, sel)
	case strings.EqualFold(filepath.Ext(path), ".csv"):
		records, err = readCSVFile(ctx, path)
	default:
		records, err = ReadXLSX(path, sel)
	}
	if err != nil {
		return model.Table{}, model.ParseError("load table "+filepath.Base(path), err)
	}

	tbl := recordsToTable(records)
	zap.L().Debug("table loaded",
		zap.String("path", path),
		zap.String("sheet", sel.String()),
		zap.Int("columns", len(tbl.Columns)),
		zap.Int("rows", tbl.Len()),
	)
	return tbl, nil
}

const sniffBytes = 4096

func readCSVFile(ctx context.Context, path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer file.Close() //nolint:errcheck

	r, err := decodeLegacy(bufio.NewReaderSize(file, sniffBytes))
	if err != nil {
		return nil, err
	}

	return ReadCSV(ctx, r, CSVOptions{LazyQuotes: true})
}

// decodeLegacy sniffs the head of a CSV export. Files that are not valid
// UTF-8 are assumed to be Windows-1252, the usual encoding of spreadsheet
// exports from Spanish-language portals.
func decodeLegacy(br *bufio.Reader) (io.Reader, error) {
	head, err := br.Peek(sniffBytes)
	switch {
	case err == nil:
		// The window is full; drop a multi-byte rune cut off at its end.
		for i := len(head) - 1; i >= 0 && i >= len(head)-utf8.UTFMax; i-- {
			if utf8.RuneStart(head[i]) {
				if !utf8.FullRune(head[i:]) {
					head = head[:i]
				}
				break
			}
		}
	case err != io.EOF:
		return nil, eris.Wrap(err, "csv: sniff encoding")
	}
	if utf8.Valid(head) {
		return br, nil
	}
	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
}

// recordsToTable turns raw rows into a text table. Rows wider than the
// header extend it with unnamed columns.
func recordsToTable(records [][]string) model.Table {
	if len(records) == 0 {
		return model.NewTextTable(nil, nil)
	}

	header := append([]string(nil), records[0]...)
	width := len(header)
	for _, rec := range records[1:] {
		if len(rec) > width {
			width = len(rec)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}

	rows := make([][]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]any, width)
		for i, v := range rec {
			if strings.TrimSpace(v) == "" {
				continue
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return model.NewTextTable(header, rows)
}
