// Package fetcher downloads remote files over HTTP and FTP, unpacks ZIP
// archives and parses XLSX and CSV spreadsheets into tables.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	// Delimiter separates fields. Zero picks ',', ';' or tab, whichever is
	// most frequent in the first line.
	Delimiter  rune
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV reads every record from r. A leading UTF-8 byte order mark is
// dropped and rows may have different widths.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([][]string, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = sniffDelimiter(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = opts.Delimiter
	reader.Comment = opts.Comment
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read row %d", len(records)+1)
		}
		if opts.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}
		records = append(records, record)
	}
}

// sniffDelimiter counts candidate separators outside quotes in the first
// buffered line. Ties and lines without any separator fall back to ','.
func sniffDelimiter(br *bufio.Reader) rune {
	buf, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}

	counts := map[byte]int{}
	quoted := false
	for _, c := range buf {
		switch c {
		case '"':
			quoted = !quoted
		case ',', ';', '\t':
			if !quoted {
				counts[c]++
			}
		}
	}

	best := byte(',')
	for _, c := range []byte{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return rune(best)
}
