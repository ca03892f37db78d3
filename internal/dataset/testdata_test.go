package dataset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeXLSX creates a workbook under t.TempDir with one sheet per entry
// in sheets, in order. Each sheet is a list of rows; an empty row is left
// unwritten.
func writeXLSX(t *testing.T, name string, sheets ...[][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, rows := range sheets {
		sheet := "Sheet1"
		if i > 0 {
			sheet = "Extra" + string(rune('A'+i-1))
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for r, row := range rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}
