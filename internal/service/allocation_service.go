package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

// AllocationEntry records one application of a payment document against a
// credit document. BillID/BillNumber are set only for vendor-side entries.
type AllocationEntry struct {
	Type              string   `json:"type"`
	SourceID          string   `json:"sourceId"`
	Date              string   `json:"date"`
	Amount            float64  `json:"amount"`
	RefNumber         string   `json:"refNumber"`
	AppliedInvoiceIDs []string `json:"appliedInvoiceIds,omitempty"`
	BillID            string   `json:"billId,omitempty"`
	BillNumber        string   `json:"billNumber,omitempty"`
}

// AllocationBucket collects the allocations applied against one credit
// document, with its computed totals.
type AllocationBucket struct {
	Doc       *domain.Transaction
	Allocs    []AllocationEntry
	Allocated float64
	Remaining float64
}

// InvoiceInfo is the lookup payload for an applied invoice.
type InvoiceInfo struct {
	Number string
	Total  float64
}

// AllocationResult is a full reconciliation: credit memo buckets in source
// order, vendor credit buckets in source order, and the invoice lookup map.
type AllocationResult struct {
	CreditMemoIDs   []string
	CreditMemos     map[string]*AllocationBucket
	VendorCreditIDs []string
	VendorCredits   map[string]*AllocationBucket
	Invoices        map[string]InvoiceInfo
}

// AllocationService reconciles credit memos against customer payments and
// vendor credits against bill payments.
type AllocationService interface {
	Reconcile(ctx context.Context, conn domain.Connection, fromDate, toDate string, filterBy domain.AllocationFilter) (*AllocationResult, error)
}

type allocationService struct {
	query port.QueryClient
}

// NewAllocationService creates an AllocationService backed by the remote
// query client.
func NewAllocationService(query port.QueryClient) AllocationService {
	return &allocationService{query: query}
}

// Reconcile fetches the five entity sets and applies payment lines to the
// credit documents they reference. The date filter lands on the credit and
// invoice side or the payment side depending on filterBy; the other side is
// always fetched unfiltered so cross-period applications still resolve.
func (s *allocationService) Reconcile(ctx context.Context, conn domain.Connection, fromDate, toDate string, filterBy domain.AllocationFilter) (*AllocationResult, error) {
	whereTxn := dateWhere("TxnDate", fromDate, toDate)

	creditWhere, paymentWhere := "", ""
	if filterBy == domain.FilterByPayment {
		paymentWhere = whereTxn
	} else {
		creditWhere = whereTxn
	}

	var creditMemos, vendorCredits, payments, billPayments, invoices []domain.Transaction

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(entity domain.EntityType, where string, dst *[]domain.Transaction) {
		g.Go(func() error {
			rows, err := s.query.QueryAll(gctx, conn, entity, where)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", entity, err)
			}
			docs, err := decodeAll[domain.Transaction](rows)
			if err != nil {
				return err
			}
			*dst = docs
			return nil
		})
	}
	fetch(domain.EntityCreditMemo, creditWhere, &creditMemos)
	fetch(domain.EntityVendorCredit, creditWhere, &vendorCredits)
	fetch(domain.EntityPayment, paymentWhere, &payments)
	fetch(domain.EntityBillPayment, paymentWhere, &billPayments)
	fetch(domain.EntityInvoice, creditWhere, &invoices)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &AllocationResult{
		CreditMemos:   make(map[string]*AllocationBucket, len(creditMemos)),
		VendorCredits: make(map[string]*AllocationBucket, len(vendorCredits)),
		Invoices:      make(map[string]InvoiceInfo, len(invoices)),
	}
	for i := range creditMemos {
		cm := &creditMemos[i]
		result.CreditMemoIDs = append(result.CreditMemoIDs, cm.ID)
		result.CreditMemos[cm.ID] = &AllocationBucket{Doc: cm}
	}
	for i := range vendorCredits {
		vc := &vendorCredits[i]
		result.VendorCreditIDs = append(result.VendorCreditIDs, vc.ID)
		result.VendorCredits[vc.ID] = &AllocationBucket{Doc: vc}
	}
	for i := range invoices {
		inv := &invoices[i]
		result.Invoices[inv.ID] = InvoiceInfo{Number: inv.DocNumber, Total: inv.TotalAmt}
	}

	for i := range payments {
		s.applyPayment(&payments[i], result)
	}
	for i := range billPayments {
		s.applyBillPayment(&billPayments[i], result)
	}

	for _, id := range result.CreditMemoIDs {
		bucket := result.CreditMemos[id]
		var allocated float64
		for _, a := range bucket.Allocs {
			allocated += a.Amount * float64(len(ExplodeIDs(a.AppliedInvoiceIDs)))
		}
		bucket.Allocated = domain.Round2(allocated)
		bucket.Remaining = domain.Round2(bucket.Doc.TotalAmt - allocated)
	}
	for _, id := range result.VendorCreditIDs {
		bucket := result.VendorCredits[id]
		var allocated float64
		for _, a := range bucket.Allocs {
			allocated += a.Amount
		}
		bucket.Allocated = domain.Round2(allocated)
		bucket.Remaining = domain.Round2(bucket.Doc.TotalAmt - allocated)
	}

	return result, nil
}

// applyPayment spreads a customer payment across the credit memos it
// references. Invoice and credit memo ids are collected across all payment
// lines plus the document header first, so the apportionment sees the whole
// payment. A linkage may surface at either level; dedup keeps a repeated one
// from counting twice.
func (s *allocationService) applyPayment(p *domain.Transaction, result *AllocationResult) {
	var invoiceIDs, creditMemoIDs []string
	collect := func(links []domain.LinkedTxn) {
		for _, ln := range links {
			switch strings.ToLower(ln.TxnType) {
			case "invoice":
				if ln.TxnID != "" {
					invoiceIDs = append(invoiceIDs, ln.TxnID)
				}
			case "creditmemo":
				if ln.TxnID != "" {
					creditMemoIDs = append(creditMemoIDs, ln.TxnID)
				}
			}
		}
	}
	for _, line := range p.Line {
		collect(line.LinkedTxn)
	}
	collect(p.LinkedTxn)
	if len(creditMemoIDs) == 0 {
		return
	}

	uniqInvoices := dedupe(invoiceIDs)
	uniqCreditMemos := dedupe(creditMemoIDs)

	refNumber := firstNonEmpty(p.PaymentRefNum, p.DocNumber, p.TxnNumber)

	paymentTotal := p.TotalAmt
	invCount := len(uniqInvoices)
	if invCount == 0 {
		invCount = 1
	}
	amountPerInvoice := domain.Round2(paymentTotal / float64(invCount))

	appliedIDs := uniqInvoices
	amount := amountPerInvoice
	if len(uniqInvoices) == 0 {
		appliedIDs = []string{""}
		amount = paymentTotal
	}

	for _, cmID := range uniqCreditMemos {
		bucket, ok := result.CreditMemos[cmID]
		if !ok {
			continue
		}
		bucket.Allocs = append(bucket.Allocs, AllocationEntry{
			Type:              "Payment",
			SourceID:          p.ID,
			Date:              p.TxnDate,
			Amount:            amount,
			RefNumber:         refNumber,
			AppliedInvoiceIDs: appliedIDs,
		})
	}
}

// applyBillPayment records each vendor credit application of a bill payment.
// Unlike the customer side, the applied amount is read per linkage, falling
// back to the owning line's amount for line-level linkages that omit it.
// Vendor credit linkages can also surface at the document header; those are
// scanned too, skipping ids a line already applied.
func (s *allocationService) applyBillPayment(bp *domain.Transaction, result *AllocationResult) {
	var checkNumber string
	if bp.CheckPayment != nil {
		checkNumber = bp.CheckPayment.CheckNumber
	}
	refNumber := firstNonEmpty(checkNumber, bp.PaymentRefNum, bp.DocNumber, bp.TxnNumber)

	record := func(vcID string, amount float64) {
		bucket, ok := result.VendorCredits[vcID]
		if !ok {
			return
		}
		bucket.Allocs = append(bucket.Allocs, AllocationEntry{
			Type:       "BillPayment",
			SourceID:   bp.ID,
			Date:       bp.TxnDate,
			Amount:     amount,
			RefNumber:  refNumber,
			BillID:     bp.ID,
			BillNumber: bp.DocNumber,
		})
	}

	applied := make(map[string]struct{})
	for _, line := range bp.Line {
		for _, ln := range line.LinkedTxn {
			if strings.ToLower(ln.TxnType) != "vendorcredit" {
				continue
			}
			amount := floatOrZero(ln.Amount)
			if ln.Amount == nil {
				amount = line.Amount
			}
			applied[ln.TxnID] = struct{}{}
			record(ln.TxnID, amount)
		}
	}
	for _, ln := range bp.LinkedTxn {
		if strings.ToLower(ln.TxnType) != "vendorcredit" {
			continue
		}
		if _, ok := applied[ln.TxnID]; ok {
			continue
		}
		record(ln.TxnID, floatOrZero(ln.Amount))
	}
}

// ExplodeIDs normalizes an applied-invoice id list for row explosion: an
// empty list still yields one blank row, and comma-joined ids are split.
func ExplodeIDs(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	var out []string
	for _, id := range ids {
		if strings.Contains(id, ",") {
			for _, part := range strings.Split(id, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			continue
		}
		out = append(out, strings.TrimSpace(id))
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// dateWhere builds a TxnDate-style range filter; either bound may be empty.
func dateWhere(field, from, to string) string {
	switch {
	case from == "" && to == "":
		return ""
	case from != "" && to != "":
		return fmt.Sprintf("%s >= '%s' AND %s <= '%s'", field, escapeLiteral(from), field, escapeLiteral(to))
	case from != "":
		return fmt.Sprintf("%s >= '%s'", field, escapeLiteral(from))
	default:
		return fmt.Sprintf("%s <= '%s'", field, escapeLiteral(to))
	}
}
