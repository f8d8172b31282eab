package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/service"
	"qbridge/internal/xlsxexport"
)

// ExportHandler streams spreadsheet exports built against the main connection.
type ExportHandler struct {
	store   port.ConnectionStore
	exports service.ExportService
	log     *logrus.Logger
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(store port.ConnectionStore, exports service.ExportService, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{store: store, exports: exports, log: log}
}

type buildWorkbookFunc func(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error)

// serve runs the builder and streams the workbook as an attachment download.
func (h *ExportHandler) serve(c *gin.Context, baseName string, build buildWorkbookFunc) {
	conn := h.store.Get(domain.SlotMain)
	if !conn.Usable() {
		HandleError(c, h.log, domain.NewSlotError(domain.SlotMain))
		return
	}

	wb, err := build(c.Request.Context(), conn, c.Query("fromDate"), c.Query("toDate"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	defer wb.Close()

	filename := xlsxexport.BuildFilename(baseName)
	c.Header("Content-Type", xlsxexport.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Status(http.StatusOK)

	if err := wb.Write(c.Writer); err != nil {
		// Headers are already out; all we can do is log.
		h.log.WithError(err).WithField("filename", filename).Error("workbook write failed")
	}
}

// Invoices exports all invoices in the date range with per-line tax columns.
func (h *ExportHandler) Invoices(c *gin.Context) {
	h.serve(c, "Invoices_All", h.exports.ExportInvoices)
}

// Estimates exports all estimates in the date range with per-line tax columns.
func (h *ExportHandler) Estimates(c *gin.Context) {
	h.serve(c, "Estimates_All", h.exports.ExportEstimates)
}

// CreditMemos exports all credit memos in the date range with per-line tax
// columns.
func (h *ExportHandler) CreditMemos(c *gin.Context) {
	h.serve(c, "CreditMemos_All", h.exports.ExportCreditMemos)
}

// Overpayments exports the customer and vendor overpayment workbook.
func (h *ExportHandler) Overpayments(c *gin.Context) {
	h.serve(c, "QBO-UI-Overpayments", h.exports.ExportOverpayments)
}

type allocationExportRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
	FilterBy string `json:"filterBy"`
}

// Allocations exports the credit memo and vendor credit allocation workbook.
// The date range and filter side arrive in the JSON body.
func (h *ExportHandler) Allocations(c *gin.Context) {
	var req allocationExportRequest
	_ = c.ShouldBindJSON(&req)
	filterBy := domain.ParseAllocationFilter(req.FilterBy)

	conn := h.store.Get(domain.SlotMain)
	if !conn.Usable() {
		HandleError(c, h.log, domain.NewSlotError(domain.SlotMain))
		return
	}

	wb, err := h.exports.ExportAllocations(c.Request.Context(), conn, req.FromDate, req.ToDate, filterBy)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	defer wb.Close()

	filename := xlsxexport.BuildFilename("QBO-CreditMemo-VendorCredit-Allocation")
	c.Header("Content-Type", xlsxexport.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Status(http.StatusOK)

	if err := wb.Write(c.Writer); err != nil {
		h.log.WithError(err).WithField("filename", filename).Error("workbook write failed")
	}
}
