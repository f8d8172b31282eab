package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/xlsxexport"
)

const invoiceExportPageSize = 500

var invoiceColumns = []any{
	"Doc Type", "Invoice ID", "Invoice Number", "Txn Date", "Due Date", "Created Time", "Updated Time",
	"Customer ID", "Customer Name", "Customer Email", "Customer GSTIN",
	"Terms", "Tax Mode", "Currency", "Exchange Rate", "PO Number", "Reference Number", "Private Note",
	"Discount Total", "Tax Total", "Total Amount", "Balance",
	"Bill Addr Line1", "Bill Addr Line2", "Bill City", "Bill State", "Bill Postal Code", "Bill Country",
	"Ship Addr Line1", "Ship Addr Line2", "Ship City", "Ship State", "Ship Postal Code", "Ship Country",
	"Line No", "Item ID", "Item Name", "Class ID", "Class Name", "Service Date", "Description", "Qty", "Rate",
	"Line Amount Raw", "Line Amount Excl Tax", "Tax Code", "Tax Rate", "Line Tax Amount", "Line Amount Incl Tax",
	"CGST %", "SGST %", "IGST %", "CGST Amount", "SGST Amount", "IGST Amount",
}

var estimateColumns = []any{
	"Doc Type", "Doc ID", "Doc Number", "Txn Date", "Expiry Date", "Created Date", "Last Updated Time",
	"Customer ID", "Customer Name", "Customer Email", "Terms", "Currency", "Exchange Rate", "PO Number",
	"Ref Number", "Private Note", "Sales Tax Total", "Txn Total Amount",
	"Bill To Line1", "Bill To Line2", "Bill To City", "Bill To State", "Bill To PostalCode", "Bill To Country",
	"Ship To Line1", "Ship To Line2", "Ship To City", "Ship To State", "Ship To PostalCode", "Ship To Country",
	"Line No", "Item ID", "Item Name", "Class ID", "Class Name", "Service Date", "Line Description",
	"Qty", "Rate", "Line Amount", "Line Tax Code", "Line Tax %", "Line Tax Amount",
	"CGST %", "SGST %", "IGST %", "CGST Amt", "SGST Amt", "IGST Amt",
}

var creditMemoColumns = []any{
	"Doc Type", "Doc ID", "Doc Number", "Txn Date", "Created Date", "Last Updated Time",
	"Customer ID", "Customer Name", "Customer Email", "Terms", "Currency", "Exchange Rate",
	"Ref Number", "Private Note", "Discount", "Sales Tax Total", "Txn Total Amount", "Balance",
	"Bill To Line1", "Bill To Line2", "Bill To City", "Bill To State", "Bill To PostalCode", "Bill To Country",
	"Ship To Line1", "Ship To Line2", "Ship To City", "Ship To State", "Ship To PostalCode", "Ship To Country",
	"Line No", "Item ID", "Item Name", "Class ID", "Class Name", "Service Date", "Line Description",
	"Qty", "Rate", "Line Amount", "Line Tax Code", "Line Tax %", "Line Tax Amount",
	"CGST %", "SGST %", "IGST %", "CGST Amt", "SGST Amt", "IGST Amt",
}

// ExportService builds the spreadsheet exports. Every export returns a
// finished in-memory workbook; the transport layer decides how to send it.
type ExportService interface {
	ExportInvoices(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error)
	ExportEstimates(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error)
	ExportCreditMemos(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error)
	ExportAllocations(ctx context.Context, conn domain.Connection, fromDate, toDate string, filterBy domain.AllocationFilter) (*xlsxexport.Workbook, error)
	ExportOverpayments(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error)
}

type exportService struct {
	query         port.QueryClient
	taxes         TaxService
	allocations   AllocationService
	overpayments  OverpaymentService
	storage       port.ObjectStorage
	bucket        string
	presignExpiry int64
	log           *logrus.Logger
}

// NewExportService creates an ExportService. storage may be nil; exports are
// archived to the bucket only when both are configured. presignExpiry bounds
// the lifetime of the download link minted for each archived copy.
func NewExportService(query port.QueryClient, taxes TaxService, allocations AllocationService, overpayments OverpaymentService, storage port.ObjectStorage, bucket string, presignExpiry int64, log *logrus.Logger) ExportService {
	return &exportService{
		query:         query,
		taxes:         taxes,
		allocations:   allocations,
		overpayments:  overpayments,
		storage:       storage,
		bucket:        bucket,
		presignExpiry: presignExpiry,
		log:           log,
	}
}

// ExportInvoices writes one row per sales line of every invoice in the date
// window. Invoices are paged through in batches so large tenants export
// without holding the whole set.
func (s *exportService) ExportInvoices(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error) {
	master, err := s.taxes.LoadTaxMaster(ctx, conn)
	if err != nil {
		return nil, err
	}

	wb := xlsxexport.NewWorkbook()
	sheet, err := wb.AddSheet("Invoices")
	if err != nil {
		return nil, err
	}
	if err := sheet.AppendRow(invoiceColumns...); err != nil {
		return nil, err
	}

	where := dateWhere("TxnDate", fromDate, toDate)
	startPos := 1
	for {
		rows, err := s.query.QueryPage(ctx, conn, domain.EntityInvoice, where, startPos, invoiceExportPageSize)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		docs, err := decodeAll[domain.Transaction](rows)
		if err != nil {
			return nil, err
		}

		for i := range docs {
			if err := s.writeInvoiceRows(sheet, &docs[i], master); err != nil {
				return nil, err
			}
		}

		if len(rows) < invoiceExportPageSize {
			break
		}
		startPos += invoiceExportPageSize
	}

	s.archive(ctx, wb, "Invoices_All")
	return wb, nil
}

func (s *exportService) writeInvoiceRows(sheet *xlsxexport.Sheet, doc *domain.Transaction, master *domain.TaxMaster) error {
	lines := s.taxes.ExtractLineTaxes(doc, master)
	discountTotal := discountTotal(doc)
	taxMode := doc.TaxMode()
	billTo := addrOrEmpty(doc.BillAddr)
	shipTo := addrOrEmpty(doc.ShipAddr)

	refNumber := doc.DocNumber
	if doc.CustomerMemo != nil && doc.CustomerMemo.Value != "" {
		refNumber = doc.CustomerMemo.Value
	}
	privateNote := strings.TrimSpace(doc.PrivateNote)

	for _, ln := range lines {
		cgst := breakupRate(ln.TaxBreakup, "CGST")
		sgst := breakupRate(ln.TaxBreakup, "SGST")
		igst := breakupRate(ln.TaxBreakup, "IGST")

		exclTax, inclTax := ln.Amount, ln.Amount
		if taxMode == domain.TaxModeInclusive {
			exclTax = domain.Round2(ln.Amount - ln.TaxAmount)
		} else {
			inclTax = domain.Round2(ln.Amount + ln.TaxAmount)
		}

		err := sheet.AppendRow(
			"Invoice", doc.ID, doc.DocNumber, doc.TxnDate, doc.DueDate, metaCreate(doc), metaUpdate(doc),
			refValue(doc.CustomerRef), refName(doc.CustomerRef), paymentEmail(doc), "",
			termsLabel(doc), taxMode, refValue(doc.CurrencyRef), exchangeCell(doc.ExchangeRate), doc.PONumber, refNumber, privateNote,
			discountTotal, taxTotal(doc), doc.TotalAmt, floatOrZero(doc.Balance),
			billTo.Line1, billTo.Line2, billTo.City, billTo.CountrySubDivisionCode, billTo.PostalCode, billTo.Country,
			shipTo.Line1, shipTo.Line2, shipTo.City, shipTo.CountrySubDivisionCode, shipTo.PostalCode, shipTo.Country,
			ln.LineNo, ln.ItemID, ln.ItemName, ln.ClassID, ln.ClassName, ln.ServiceDate, ln.Description,
			floatPtrCell(ln.Qty), floatPtrCell(ln.Rate),
			ln.Amount, exclTax, ln.TaxCode, ln.TaxRate, ln.TaxAmount, inclTax,
			cgst, sgst, igst,
			domain.Round2(exclTax*cgst/100), domain.Round2(exclTax*sgst/100), domain.Round2(exclTax*igst/100),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ExportEstimates writes one row per sales line of every estimate, with a
// single document row when an estimate has no sales lines. Query rows that
// come back without lines are refetched individually.
func (s *exportService) ExportEstimates(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error) {
	master, err := s.taxes.LoadTaxMaster(ctx, conn)
	if err != nil {
		return nil, err
	}

	where := dateWhere("TxnDate", fromDate, toDate)
	rows, err := s.query.QueryAll(ctx, conn, domain.EntityEstimate, where)
	if err != nil {
		return nil, err
	}
	estimates, err := decodeAll[domain.Transaction](rows)
	if err != nil {
		return nil, err
	}

	wb := xlsxexport.NewWorkbook()
	sheet, err := wb.AddSheet("Estimates")
	if err != nil {
		return nil, err
	}
	if err := sheet.AppendRow(estimateColumns...); err != nil {
		return nil, err
	}

	for i := range estimates {
		doc := &estimates[i]
		if len(doc.Line) == 0 {
			if full := s.refetch(ctx, conn, domain.EntityEstimate, doc.ID); full != nil {
				doc = full
			}
		}

		taxMode := doc.TaxMode()
		lines := s.taxes.ExtractLineTaxes(doc, master)
		billTo := addrOrEmpty(doc.BillAddr)
		shipTo := addrOrEmpty(doc.ShipAddr)
		head := []any{
			"Estimate", doc.ID, doc.DocNumber, doc.TxnDate, doc.ExpirationDate, metaCreate(doc), metaUpdate(doc),
			refValue(doc.CustomerRef), refName(doc.CustomerRef), paymentEmail(doc),
			termsLabel(doc), refValue(doc.CurrencyRef), exchangeCell(doc.ExchangeRate), doc.PONumber,
			memoValue(doc.CustomerMemo), strings.TrimSpace(doc.PrivateNote),
			taxTotal(doc), doc.TotalAmt,
			billTo.Line1, billTo.Line2, billTo.City, billTo.CountrySubDivisionCode, billTo.PostalCode, billTo.Country,
			shipTo.Line1, shipTo.Line2, shipTo.City, shipTo.CountrySubDivisionCode, shipTo.PostalCode, shipTo.Country,
		}

		if len(lines) == 0 {
			row := append(append([]any{}, head...),
				"", "", "", "", "", "", "", "", "", 0, "", 0, 0, 0, 0, 0, 0, 0, 0)
			if err := sheet.AppendRow(row...); err != nil {
				return nil, err
			}
			continue
		}

		for _, ln := range lines {
			cgst := breakupRate(ln.TaxBreakup, "CGST")
			sgst := breakupRate(ln.TaxBreakup, "SGST")
			igst := breakupRate(ln.TaxBreakup, "IGST")

			exclTax := ln.Amount
			if taxMode == domain.TaxModeInclusive {
				exclTax = domain.Round2(ln.Amount - ln.TaxAmount)
			}

			row := append(append([]any{}, head...),
				ln.LineNo, ln.ItemID, ln.ItemName, ln.ClassID, ln.ClassName, ln.ServiceDate, ln.Description,
				floatPtrCell(ln.Qty), floatPtrCell(ln.Rate), ln.Amount, ln.TaxCode, ln.TaxRate, ln.TaxAmount,
				cgst, sgst, igst,
				domain.Round2(exclTax*cgst/100), domain.Round2(exclTax*sgst/100), domain.Round2(exclTax*igst/100))
			if err := sheet.AppendRow(row...); err != nil {
				return nil, err
			}
		}
	}

	s.archive(ctx, wb, "Estimates_All")
	return wb, nil
}

// ExportCreditMemos writes one row per sales line of every credit memo in
// the date window.
func (s *exportService) ExportCreditMemos(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error) {
	master, err := s.taxes.LoadTaxMaster(ctx, conn)
	if err != nil {
		return nil, err
	}

	where := dateWhere("TxnDate", fromDate, toDate)
	rows, err := s.query.QueryAll(ctx, conn, domain.EntityCreditMemo, where)
	if err != nil {
		return nil, err
	}
	memos, err := decodeAll[domain.Transaction](rows)
	if err != nil {
		return nil, err
	}

	wb := xlsxexport.NewWorkbook()
	sheet, err := wb.AddSheet("CreditMemos")
	if err != nil {
		return nil, err
	}
	if err := sheet.AppendRow(creditMemoColumns...); err != nil {
		return nil, err
	}

	for i := range memos {
		doc := &memos[i]
		lines := s.taxes.ExtractLineTaxes(doc, master)
		discount := discountTotal(doc)
		billTo := addrOrEmpty(doc.BillAddr)
		shipTo := addrOrEmpty(doc.ShipAddr)

		for _, ln := range lines {
			cgst := breakupRate(ln.TaxBreakup, "CGST")
			sgst := breakupRate(ln.TaxBreakup, "SGST")
			igst := breakupRate(ln.TaxBreakup, "IGST")

			err := sheet.AppendRow(
				"CreditMemo", doc.ID, doc.DocNumber, doc.TxnDate, metaCreate(doc), metaUpdate(doc),
				refValue(doc.CustomerRef), refName(doc.CustomerRef), paymentEmail(doc),
				termsLabel(doc), refValue(doc.CurrencyRef), exchangeCell(doc.ExchangeRate),
				memoValue(doc.CustomerMemo), strings.TrimSpace(doc.PrivateNote),
				discount, taxTotal(doc), doc.TotalAmt, floatOrZero(doc.Balance),
				billTo.Line1, billTo.Line2, billTo.City, billTo.CountrySubDivisionCode, billTo.PostalCode, billTo.Country,
				shipTo.Line1, shipTo.Line2, shipTo.City, shipTo.CountrySubDivisionCode, shipTo.PostalCode, shipTo.Country,
				ln.LineNo, ln.ItemID, ln.ItemName, ln.ClassID, ln.ClassName, ln.ServiceDate, ln.Description,
				floatPtrCell(ln.Qty), floatPtrCell(ln.Rate), ln.Amount, ln.TaxCode, ln.TaxRate, ln.TaxAmount,
				cgst, sgst, igst,
				domain.Round2(ln.Amount*cgst/100), domain.Round2(ln.Amount*sgst/100), domain.Round2(ln.Amount*igst/100),
			)
			if err != nil {
				return nil, err
			}
		}
	}

	s.archive(ctx, wb, "CreditMemos_All")
	return wb, nil
}

// ExportAllocations builds the two-sheet allocation workbook: credit memo
// allocations with exploded applied-invoice rows, and vendor credit
// allocations.
func (s *exportService) ExportAllocations(ctx context.Context, conn domain.Connection, fromDate, toDate string, filterBy domain.AllocationFilter) (*xlsxexport.Workbook, error) {
	result, err := s.allocations.Reconcile(ctx, conn, fromDate, toDate, filterBy)
	if err != nil {
		return nil, err
	}

	wb := xlsxexport.NewWorkbook()

	cmSheet, err := wb.AddSheet("CreditMemoAllocation")
	if err != nil {
		return nil, err
	}
	err = cmSheet.AppendRow(
		"CreditMemo ID", "CreditMemo Number", "CreditMemo Date", "Customer ID", "Customer Name", "Currency",
		"CreditMemo Total", "Total Allocated", "Remaining Balance",
		"Applied Invoice ID", "Applied Invoice Number", "Applied Invoice Amount",
		"Alloc Type", "Alloc Source ID", "Alloc Date", "Alloc Amount", "Alloc Ref Number")
	if err != nil {
		return nil, err
	}

	for _, id := range result.CreditMemoIDs {
		bucket := result.CreditMemos[id]
		doc := bucket.Doc
		head := []any{
			id, doc.DocNumber, doc.TxnDate, refValue(doc.CustomerRef), refName(doc.CustomerRef),
			refValue(doc.CurrencyRef), doc.TotalAmt,
		}

		if len(bucket.Allocs) == 0 {
			row := append(append([]any{}, head...),
				0.0, doc.TotalAmt, "", "", "", "", "", "", "", "")
			if err := cmSheet.AppendRow(row...); err != nil {
				return nil, err
			}
			continue
		}

		for _, a := range bucket.Allocs {
			for _, invID := range ExplodeIDs(a.AppliedInvoiceIDs) {
				var invNumber string
				var invAmount any = ""
				if inv, ok := result.Invoices[invID]; invID != "" && ok {
					invNumber = inv.Number
					invAmount = inv.Total
				}
				row := append(append([]any{}, head...),
					bucket.Allocated, bucket.Remaining,
					invID, invNumber, invAmount,
					a.Type, a.SourceID, a.Date, a.Amount, a.RefNumber)
				if err := cmSheet.AppendRow(row...); err != nil {
					return nil, err
				}
			}
		}
	}

	vcSheet, err := wb.AddSheet("VendorCreditAllocation")
	if err != nil {
		return nil, err
	}
	err = vcSheet.AppendRow(
		"VendorCredit ID", "VendorCredit Number", "VendorCredit Date", "Vendor ID", "Vendor Name", "Currency",
		"VendorCredit Total", "Total Allocated", "Remaining Balance",
		"Applied Bill ID", "Applied Bill Number",
		"Alloc Type", "Alloc Source ID", "Alloc Date", "Alloc Amount", "Alloc Ref Number")
	if err != nil {
		return nil, err
	}

	for _, id := range result.VendorCreditIDs {
		bucket := result.VendorCredits[id]
		doc := bucket.Doc
		head := []any{
			id, doc.DocNumber, doc.TxnDate, refValue(doc.VendorRef), refName(doc.VendorRef),
			refValue(doc.CurrencyRef), doc.TotalAmt,
		}

		if len(bucket.Allocs) == 0 {
			row := append(append([]any{}, head...),
				0.0, doc.TotalAmt, "", "", "", "", "", "", "")
			if err := vcSheet.AppendRow(row...); err != nil {
				return nil, err
			}
			continue
		}

		for _, a := range bucket.Allocs {
			row := append(append([]any{}, head...),
				bucket.Allocated, bucket.Remaining,
				a.BillID, a.BillNumber,
				a.Type, a.SourceID, a.Date, a.Amount, a.RefNumber)
			if err := vcSheet.AppendRow(row...); err != nil {
				return nil, err
			}
		}
	}

	s.archive(ctx, wb, "CreditMemo_VendorCredit_Allocation")
	return wb, nil
}

// ExportOverpayments builds the four-sheet overpayment workbook: customer
// apply lines, customer overpayment summary, vendor apply lines, vendor
// overpayment summary.
func (s *exportService) ExportOverpayments(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*xlsxexport.Workbook, error) {
	report, err := s.overpayments.Detect(ctx, conn, fromDate, toDate)
	if err != nil {
		return nil, err
	}

	wb := xlsxexport.NewWorkbook()

	s1, err := wb.AddSheet("CustomerPaymentApplyLines")
	if err != nil {
		return nil, err
	}
	err = s1.AppendRow(
		"Payment ID", "Payment Date", "Customer", "Amount Received", "Payment Ref No", "Deposit To",
		"Linked Txn Type", "Linked Txn ID", "Txn Date", "No.", "Due Date", "Amount", "Open Balance",
		"Applied (Payment Column)")
	if err != nil {
		return nil, err
	}
	for _, pa := range report.Payments {
		p := pa.Doc
		head := []any{
			p.ID, p.TxnDate, refName(p.CustomerRef), p.TotalAmt, pa.RefNumber, pa.DepositTo,
		}
		if len(pa.Linked) == 0 {
			row := append(append([]any{}, head...), "", "", "", "", "", "", "", "")
			if err := s1.AppendRow(row...); err != nil {
				return nil, err
			}
		}
		for _, ln := range pa.Linked {
			row := append(append([]any{}, head...), linkedCells(report, ln)...)
			if err := s1.AppendRow(row...); err != nil {
				return nil, err
			}
		}
	}

	s2, err := wb.AddSheet("CustomerOverpaymentSummary")
	if err != nil {
		return nil, err
	}
	err = s2.AppendRow(
		"Type", "Payment ID", "Payment Date", "Customer", "Amount Received", "Applied Total", "Unapplied",
		"Payment Ref", "Deposit To", "Email", "Currency", "Exchange Rate")
	if err != nil {
		return nil, err
	}
	for _, r := range report.CustomerOverpayments {
		err := s2.AppendRow(r.Type, r.PaymentID, r.PaymentDate, r.Customer, r.AmountReceived,
			r.AppliedTotal, r.Unapplied, r.PaymentRef, r.DepositTo, r.Email, r.Currency, r.ExchangeRate)
		if err != nil {
			return nil, err
		}
	}

	s3, err := wb.AddSheet("VendorBillPaymentApplyLines")
	if err != nil {
		return nil, err
	}
	err = s3.AppendRow(
		"BillPayment ID", "Payment Date", "Vendor", "Payment Total", "Ref No / Check No", "Bank Account",
		"Linked Txn Type", "Linked Txn ID", "Txn Date", "No.", "Due Date", "Amount", "Open Balance", "Applied")
	if err != nil {
		return nil, err
	}
	for _, bpa := range report.BillPayments {
		bp := bpa.Doc
		head := []any{
			bp.ID, bp.TxnDate, refName(bp.VendorRef), bp.TotalAmt, bpa.RefNumber, bpa.BankAccount,
		}
		if len(bpa.Linked) == 0 {
			row := append(append([]any{}, head...), "", "", "", "", "", "", "", "")
			if err := s3.AppendRow(row...); err != nil {
				return nil, err
			}
		}
		for _, ln := range bpa.Linked {
			row := append(append([]any{}, head...), linkedCells(report, ln)...)
			if err := s3.AppendRow(row...); err != nil {
				return nil, err
			}
		}
	}

	s4, err := wb.AddSheet("VendorOverpaymentSummary")
	if err != nil {
		return nil, err
	}
	err = s4.AppendRow(
		"Type", "BillPayment ID", "Payment Date", "Vendor", "Payment Total", "Applied Total", "Unapplied",
		"Ref No / Check No", "Bank Account")
	if err != nil {
		return nil, err
	}
	for _, r := range report.VendorOverpayments {
		err := s4.AppendRow(r.Type, r.PaymentID, r.PaymentDate, r.Vendor, r.PaymentTotal,
			r.AppliedTotal, r.Unapplied, r.RefNo, r.BankAccount)
		if err != nil {
			return nil, err
		}
	}

	s.archive(ctx, wb, "Overpayments")
	return wb, nil
}

// refetch reads a full document when the query projection came back without
// lines. Failure falls back to the projected document.
func (s *exportService) refetch(ctx context.Context, conn domain.Connection, entity domain.EntityType, id string) *domain.Transaction {
	raw, err := s.query.FetchByID(ctx, conn, entity, id)
	if err != nil || raw == nil {
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"type": entity, "id": id}).Warn("full document refetch failed")
		}
		return nil
	}
	var doc domain.Transaction
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return &doc
}

// archive uploads a copy of the workbook to the export bucket when one is
// configured and mints a time-limited download link for the archived copy.
// Archive failure never fails the export.
func (s *exportService) archive(ctx context.Context, wb *xlsxexport.Workbook, name string) {
	if s.storage == nil || s.bucket == "" {
		return
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		s.log.WithError(err).Warn("export archive serialization failed")
		return
	}

	key := "exports/" + xlsxexport.BuildFilename(name)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.bucket,
		Key:         key,
		Body:        &buf,
		ContentType: xlsxexport.ContentType,
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("export archive upload failed")
		return
	}

	downloadURL, err := s.storage.GetPresignedURL(ctx, s.bucket, key, s.presignExpiry)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("export archive presign failed")
	}
	s.log.WithFields(logrus.Fields{
		"key":          key,
		"location":     out.Location,
		"download_url": downloadURL,
	}).Info("export archived")
}

func breakupRate(breakup []domain.TaxBreakupEntry, substr string) float64 {
	for _, b := range breakup {
		if strings.Contains(strings.ToUpper(b.Name), substr) {
			return b.Rate
		}
	}
	return 0
}

func discountTotal(doc *domain.Transaction) float64 {
	var total float64
	for _, l := range doc.Line {
		if l.DetailType == domain.DetailTypeDiscount {
			total += abs(l.Amount)
			continue
		}
		if l.SalesItemLineDetail != nil && l.SalesItemLineDetail.ItemRef != nil &&
			strings.Contains(strings.ToLower(l.SalesItemLineDetail.ItemRef.Name), "discount") {
			total += abs(l.Amount)
		}
	}
	return domain.Round2(total)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func taxTotal(doc *domain.Transaction) float64 {
	if doc.TxnTaxDetail == nil {
		return 0
	}
	return doc.TxnTaxDetail.TotalTax
}

func termsLabel(doc *domain.Transaction) string {
	if doc.SalesTermRef == nil {
		return ""
	}
	return firstNonEmpty(doc.SalesTermRef.Name, doc.SalesTermRef.Value)
}

func memoValue(m *domain.Memo) string {
	if m == nil {
		return ""
	}
	return m.Value
}

func metaCreate(doc *domain.Transaction) string {
	return doc.MetaData.CreateTime
}

func metaUpdate(doc *domain.Transaction) string {
	return doc.MetaData.LastUpdatedTime
}

func addrOrEmpty(a *domain.Address) domain.Address {
	if a == nil {
		return domain.Address{}
	}
	return *a
}

// floatPtrCell renders an optional number as a cell value: blank when unset.
func floatPtrCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// exchangeCell renders an exchange rate, blank when the document has none.
func exchangeCell(v float64) any {
	if v == 0 {
		return ""
	}
	return v
}

// linkedCells renders the shared lookup columns of one linked transaction.
func linkedCells(report *OverpaymentReport, ln LinkedTxnInfo) []any {
	info, ok := report.TxnInfo(ln.TxnType, ln.TxnID)
	if !ok {
		return []any{ln.TxnType, ln.TxnID, "", "", "", "", "", ln.Amount}
	}
	return []any{ln.TxnType, ln.TxnID, info.Date, info.No, info.DueDate, info.Amount, info.OpenBalance, ln.Amount}
}
