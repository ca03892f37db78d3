package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/garyellow/program-lookup/internal/stringutil"
	"github.com/xuri/excelize/v2"
)

// Format identifies how a dataset file is encoded.
type Format string

// Supported formats
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for file names without a known extension.
var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// errNoSheets is returned for workbooks without any worksheet.
var errNoSheets = errors.New("workbook has no sheets")

// FormatFromName derives the format from a file name or object key.
// A trailing ".zst" or ".br" is ignored, so "programs.xlsx.zst" is xlsx.
func FormatFromName(name string) (Format, error) {
	name = strings.ToLower(trimCompression(name))
	switch filepath.Ext(name) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Decode reads rows from r and converts them to Records using the first row
// as column names. Returns the records and the de-duplicated header row.
func Decode(r io.Reader, format Format) ([]Record, []string, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, nil, err
	}
	records, headers := buildRecords(rows)
	return records, headers, nil
}

// readXLSX returns the cell text of the first worksheet only.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoSheets
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\uFEFF")
	}
	return rows, nil
}

// buildRecords maps data rows onto the header row, which is the first
// non-blank row. Empty header cells are skipped, repeated headers get "_1",
// "_2" suffixes, blank rows are dropped, and cells past the header width
// are ignored.
func buildRecords(rows [][]string) ([]Record, []string) {
	start := slices.IndexFunc(rows, func(row []string) bool {
		return slices.ContainsFunc(row, func(cell string) bool { return !stringutil.IsBlank(cell) })
	})
	if start < 0 {
		return []Record{}, nil
	}
	rows = rows[start:]

	headers := uniqueHeaders(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		values := make(map[string]string, len(headers))
		for i, cell := range row {
			if i >= len(headers) {
				break
			}
			if headers[i] == "" || cell == "" {
				continue
			}
			values[headers[i]] = cell
		}
		if isBlankRow(values) {
			continue
		}
		records = append(records, NewRecord(values))
	}

	named := make([]string, 0, len(headers))
	for _, h := range headers {
		if h != "" {
			named = append(named, h)
		}
	}
	return records, named
}

// uniqueHeaders renames repeated header cells to name_1, name_2, ...,
// skipping any suffix already in use, so "a,a,a_1" becomes "a,a_1,a_1_1".
func uniqueHeaders(row []string) []string {
	headers := make([]string, len(row))
	counts := make(map[string]int, len(row))
	for i, h := range row {
		if h == "" {
			continue
		}
		name := h
		if n := counts[h]; n == 0 {
			counts[h] = 1
		} else {
			for {
				name = h + "_" + strconv.Itoa(n)
				n++
				if counts[name] == 0 {
					break
				}
			}
			counts[h] = n
			counts[name] = 1
		}
		headers[i] = name
	}
	return headers
}

func isBlankRow(values map[string]string) bool {
	for _, v := range values {
		if !stringutil.IsBlank(v) {
			return false
		}
	}
	return true
}
