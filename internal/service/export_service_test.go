package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/service"
	"qbridge/internal/xlsxexport"
	"qbridge/mocks"
)

func newExportService(query *mocks.MockQueryClient, storage port.ObjectStorage, bucket string) service.ExportService {
	log := quietLogger()
	taxes := service.NewTaxService(query)
	allocations := service.NewAllocationService(query)
	overpayments := service.NewOverpaymentService(query, log)
	return service.NewExportService(query, taxes, allocations, overpayments, storage, bucket, 900, log)
}

func mockTaxMaster(query *mocks.MockQueryClient, conn domain.Connection) {
	query.On("QueryAll", mock.Anything, conn, domain.EntityTaxCode, "").
		Return(rawRows(`{"Id":"5","Name":"GST@18%","SalesTaxRateList":{"TaxRateDetail":[{"TaxRateRef":{"value":"11"}},{"TaxRateRef":{"value":"12"}}]}}`), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityTaxRate, "").
		Return(rawRows(
			`{"Id":"11","Name":"CGST 9%","RateValue":9}`,
			`{"Id":"12","Name":"SGST 9%","RateValue":9}`,
		), nil)
}

func sheetRows(t *testing.T, wb *xlsxexport.Workbook, sheet string) [][]string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestExportService_ExportInvoices(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)
	mockTaxMaster(query, conn)

	query.On("QueryPage", mock.Anything, conn, domain.EntityInvoice, "", 1, 500).
		Return(rawRows(`{
			"Id":"1","DocNumber":"INV-1","TxnDate":"2024-01-10","TotalAmt":1180,"Balance":0,
			"CustomerRef":{"value":"c1","name":"Acme"},
			"TxnTaxDetail":{"TotalTax":180,"TaxLine":[{"TaxLineDetail":{"TaxPercent":18}}]},
			"Line":[{"Amount":1000,"DetailType":"SalesItemLineDetail","Description":"Consulting",
				"SalesItemLineDetail":{"TaxCodeRef":{"value":"5"},"ItemRef":{"value":"i1","name":"Consulting"}}}]
		}`), nil)

	svc := newExportService(query, nil, "")
	wb, err := svc.ExportInvoices(context.Background(), conn, "", "")
	require.NoError(t, err)
	defer wb.Close()

	rows := sheetRows(t, wb, "Invoices")
	require.Len(t, rows, 2)
	assert.Equal(t, "Doc Type", rows[0][0])

	row := rows[1]
	assert.Equal(t, "Invoice", row[0])
	assert.Equal(t, "INV-1", row[2])
	assert.Equal(t, "Acme", row[8])
	assert.Equal(t, "TaxExcluded", row[12])
	// Tax-excluded: raw 1000, excl 1000, tax 180, incl 1180.
	assert.Equal(t, "1000", row[43])
	assert.Equal(t, "1000", row[44])
	assert.Equal(t, "180", row[47])
	assert.Equal(t, "1180", row[48])
	// CGST/SGST split from the tax master, amounts on the excl-tax base.
	assert.Equal(t, "9", row[49])
	assert.Equal(t, "9", row[50])
	assert.Equal(t, "0", row[51])
	assert.Equal(t, "90", row[52])
	assert.Equal(t, "90", row[53])
}

func TestExportService_ExportInvoices_TaxInclusive(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)
	mockTaxMaster(query, conn)

	query.On("QueryPage", mock.Anything, conn, domain.EntityInvoice, "", 1, 500).
		Return(rawRows(`{
			"Id":"2","DocNumber":"INV-2","TotalAmt":1180,"GlobalTaxCalculation":"TaxInclusive",
			"TxnTaxDetail":{"TotalTax":180,"TaxLine":[{"TaxLineDetail":{"TaxPercent":18}}]},
			"Line":[{"Amount":1180,"DetailType":"SalesItemLineDetail",
				"SalesItemLineDetail":{"TaxCodeRef":{"value":"5"}}}]
		}`), nil)

	svc := newExportService(query, nil, "")
	wb, err := svc.ExportInvoices(context.Background(), conn, "", "")
	require.NoError(t, err)
	defer wb.Close()

	row := sheetRows(t, wb, "Invoices")[1]
	// Tax-inclusive: raw 1180, excl = raw - tax, incl stays raw.
	assert.Equal(t, "1180", row[43])
	assert.Equal(t, "967.6", row[44])
	assert.Equal(t, "212.4", row[47])
	assert.Equal(t, "1180", row[48])
}

func TestExportService_ExportEstimates_EmptyLinesPadded(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)
	mockTaxMaster(query, conn)

	// The query projection has no lines and the refetch finds nothing, so a
	// single padded document row is written.
	query.On("QueryAll", mock.Anything, conn, domain.EntityEstimate, "").
		Return(rawRows(`{"Id":"9","DocNumber":"EST-9","TotalAmt":250}`), nil)
	query.On("FetchByID", mock.Anything, conn, domain.EntityEstimate, "9").
		Return(nil, nil)

	svc := newExportService(query, nil, "")
	wb, err := svc.ExportEstimates(context.Background(), conn, "", "")
	require.NoError(t, err)
	defer wb.Close()

	rows := sheetRows(t, wb, "Estimates")
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 49)
	assert.Len(t, rows[1], 49)
	assert.Equal(t, "EST-9", rows[1][2])
}

func TestExportService_ExportAllocations(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)

	query.On("QueryAll", mock.Anything, conn, domain.EntityCreditMemo, "").
		Return(rawRows(`{"Id":"C1","DocNumber":"CM-1","TxnDate":"2024-03-01","TotalAmt":400}`), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityVendorCredit, "").Return(rawRows(), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityInvoice, "").
		Return(rawRows(`{"Id":"I1","DocNumber":"INV-1","TotalAmt":400}`), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityPayment, "").
		Return(rawRows(`{"Id":"P1","TxnDate":"2024-03-02","TotalAmt":400,
			"Line":[{"Amount":400,"LinkedTxn":[{"TxnId":"I1","TxnType":"Invoice"},{"TxnId":"C1","TxnType":"CreditMemo"}]}]}`), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityBillPayment, "").Return(rawRows(), nil)

	svc := newExportService(query, nil, "")
	wb, err := svc.ExportAllocations(context.Background(), conn, "", "", domain.FilterByInvoice)
	require.NoError(t, err)
	defer wb.Close()

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"CreditMemoAllocation", "VendorCreditAllocation"}, f.GetSheetList())

	rows, err := f.GetRows("CreditMemoAllocation")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "CM-1", row[1])
	assert.Equal(t, "400", row[7])  // allocated
	assert.Equal(t, "0", row[8])    // remaining
	assert.Equal(t, "INV-1", row[10])
	assert.Equal(t, "Payment", row[12])
}

func TestExportService_ExportOverpayments_Sheets(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)

	query.On("QueryAll", mock.Anything, conn, domain.EntityPayment, "").Return(rawRows(), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityBillPayment, "").Return(rawRows(), nil)
	query.On("QueryAll", mock.Anything, conn, domain.EntityAccount, mock.Anything).Return(rawRows(), nil)

	svc := newExportService(query, nil, "")
	wb, err := svc.ExportOverpayments(context.Background(), conn, "", "")
	require.NoError(t, err)
	defer wb.Close()

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{
		"CustomerPaymentApplyLines",
		"CustomerOverpaymentSummary",
		"VendorBillPaymentApplyLines",
		"VendorOverpaymentSummary",
	}, f.GetSheetList())
}

func TestExportService_ArchivesToStorage(t *testing.T) {
	conn := fromConn
	query := new(mocks.MockQueryClient)
	mockTaxMaster(query, conn)
	query.On("QueryPage", mock.Anything, conn, domain.EntityInvoice, "", 1, 500).
		Return(rawRows(), nil)

	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "exports-bucket" &&
			strings.HasPrefix(in.Key, "exports/Invoices_All") &&
			in.ContentType == xlsxexport.ContentType
	})).Return(&port.UploadOutput{Location: "https://s3/exports"}, nil)
	storage.On("GetPresignedURL", mock.Anything, "exports-bucket",
		mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "exports/Invoices_All") }),
		int64(900)).Return("https://s3/exports?signed", nil)

	svc := newExportService(query, storage, "exports-bucket")
	wb, err := svc.ExportInvoices(context.Background(), conn, "", "")
	require.NoError(t, err)
	defer wb.Close()

	storage.AssertExpectations(t)
}
