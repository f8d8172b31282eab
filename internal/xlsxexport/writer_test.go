package xlsxexport_test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qbridge/internal/xlsxexport"
)

func TestWorkbook_SheetsAndRows(t *testing.T) {
	wb := xlsxexport.NewWorkbook()
	defer wb.Close()

	first, err := wb.AddSheet("Invoices")
	require.NoError(t, err)
	second, err := wb.AddSheet("Totals")
	require.NoError(t, err)

	require.NoError(t, first.AppendRow("Invoice#", "Amount"))
	require.NoError(t, first.AppendRow("INV-1", 125.5))
	require.NoError(t, second.AppendRow("Count", 1))

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	// The first added sheet replaces the default sheet.
	assert.Equal(t, []string{"Invoices", "Totals"}, f.GetSheetList())

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Invoice#", "Amount"}, rows[0])
	assert.Equal(t, "INV-1", rows[1][0])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Invoices_All", xlsxexport.SanitizeFilename("Invoices_All"))
	assert.Equal(t, "QBO-UI-Overpayments", xlsxexport.SanitizeFilename("QBO-UI-Overpayments"))
	assert.Equal(t, "a_b_c", xlsxexport.SanitizeFilename("a  b//c"))
	assert.Equal(t, "report", xlsxexport.SanitizeFilename("__report__"))
}

func TestBuildFilename(t *testing.T) {
	want := fmt.Sprintf("Invoices_All_%s.xlsx", time.Now().Format("2006-01-02"))
	assert.Equal(t, want, xlsxexport.BuildFilename("Invoices_All"))
}
