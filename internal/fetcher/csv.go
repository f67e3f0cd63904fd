// Package fetcher reads house, amenity and resale transaction tables from
// CSV, XLSX and shapefile sources.
package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Delimiter rune // default ','
	HasHeader bool // first row goes to HeaderCh instead of the row channel
	HeaderCh  chan<- []string
	TrimSpace bool
}

// StreamCSV reads r on a goroutine and sends each row on the returned channel.
// Both channels are closed when reading stops; at most one error is sent.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.ReuseRecord = false

		send := func(ch chan<- []string, rec []string) bool {
			select {
			case ch <- rec:
				return true
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return false
			}
		}

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i := range record {
					record[i] = strings.TrimSpace(record[i])
				}
			}

			if first {
				first = false
				// Excel-exported CSVs often start with a UTF-8 BOM.
				if len(record) > 0 {
					record[0] = strings.TrimPrefix(record[0], "\ufeff")
				}
				if opts.HasHeader {
					if opts.HeaderCh != nil && !send(opts.HeaderCh, record) {
						return
					}
					continue
				}
			}

			if !send(rowCh, record) {
				return
			}
		}
	}()

	return rowCh, errCh
}

// readTable loads a whole CSV or XLSX file as a header plus rows.
func readTable(ctx context.Context, path string) ([]string, [][]string, error) {
	if isXLSX(path) {
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, nil, err
		}
		if len(rows) == 0 {
			return nil, nil, eris.Errorf("fetcher: %s is empty", path)
		}
		return rows[0], rows[1:], nil
	}

	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{HasHeader: true, HeaderCh: headerCh, TrimSpace: true})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrapf(err, "fetcher: read %s", path)
	}

	select {
	case header := <-headerCh:
		return header, rows, nil
	default:
		return nil, nil, eris.Errorf("fetcher: %s is empty", path)
	}
}

// columnIndex finds a header column case-insensitively, trying each name in turn.
func columnIndex(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
