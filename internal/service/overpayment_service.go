package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

const idChunkSize = 30

// LinkedTxnInfo is one resolved application of a payment: the transaction it
// was applied to and the applied amount.
type LinkedTxnInfo struct {
	TxnType string  `json:"txnType"`
	TxnID   string  `json:"txnId"`
	Amount  float64 `json:"amount"`
}

// TxnInfo is the lookup payload for a transaction referenced by a payment.
type TxnInfo struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	No          string  `json:"no"`
	DueDate     string  `json:"dueDate"`
	Amount      float64 `json:"amount"`
	OpenBalance float64 `json:"openBalance"`
}

// PaymentApply is a customer payment with its resolved applications.
type PaymentApply struct {
	Doc          *domain.Transaction
	RefNumber    string
	DepositTo    string
	Linked       []LinkedTxnInfo
	AppliedTotal float64
	Unapplied    float64
}

// BillPaymentApply is a vendor bill payment with its resolved applications.
type BillPaymentApply struct {
	Doc          *domain.Transaction
	RefNumber    string
	BankAccount  string
	Linked       []LinkedTxnInfo
	AppliedTotal float64
	Unapplied    float64
}

// CustomerOverpayment is one payment whose received amount strictly exceeds
// the sum of its applications.
type CustomerOverpayment struct {
	Type           string  `json:"type"`
	PaymentID      string  `json:"paymentId"`
	PaymentDate    string  `json:"paymentDate"`
	Customer       string  `json:"customer"`
	AmountReceived float64 `json:"amountReceived"`
	AppliedTotal   float64 `json:"appliedTotal"`
	Unapplied      float64 `json:"unapplied"`
	PaymentRef     string  `json:"paymentRef"`
	DepositTo      string  `json:"depositTo"`
	Email          string  `json:"email"`
	Currency       string  `json:"currency"`
	ExchangeRate   float64 `json:"exchangeRate"`
}

// VendorOverpayment is the vendor-side counterpart of CustomerOverpayment.
type VendorOverpayment struct {
	Type         string  `json:"type"`
	PaymentID    string  `json:"paymentId"`
	PaymentDate  string  `json:"paymentDate"`
	Vendor       string  `json:"vendor"`
	PaymentTotal float64 `json:"paymentTotal"`
	AppliedTotal float64 `json:"appliedTotal"`
	Unapplied    float64 `json:"unapplied"`
	RefNo        string  `json:"refNo"`
	BankAccount  string  `json:"bankAccount"`
}

// OverpaymentReport holds every payment and bill payment in the window with
// their applications, the overpayment subsets, and a lookup for the linked
// transactions.
type OverpaymentReport struct {
	Payments             []PaymentApply
	BillPayments         []BillPaymentApply
	CustomerOverpayments []CustomerOverpayment
	VendorOverpayments   []VendorOverpayment

	refs map[string]TxnInfo
}

// TxnInfo resolves a linked transaction reference; the type match is
// case-insensitive.
func (r *OverpaymentReport) TxnInfo(txnType, txnID string) (TxnInfo, bool) {
	info, ok := r.refs[strings.ToLower(txnType)+":"+txnID]
	return info, ok
}

// OverpaymentService finds payments whose received amount exceeds the total
// they were applied to.
type OverpaymentService interface {
	Detect(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*OverpaymentReport, error)
}

type overpaymentService struct {
	query port.QueryClient
	log   *logrus.Logger
}

// NewOverpaymentService creates an OverpaymentService.
func NewOverpaymentService(query port.QueryClient, log *logrus.Logger) OverpaymentService {
	return &overpaymentService{query: query, log: log}
}

// Detect fetches payments and bill payments in the date window, resolves
// every transaction they link to, and flags the ones whose applied total
// falls short of the payment amount.
func (s *overpaymentService) Detect(ctx context.Context, conn domain.Connection, fromDate, toDate string) (*OverpaymentReport, error) {
	whereTxn := dateWhere("TxnDate", fromDate, toDate)

	var payments, billPayments []domain.Transaction
	var bankAccounts []domain.Account

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.query.QueryAll(gctx, conn, domain.EntityPayment, whereTxn)
		if err != nil {
			return fmt.Errorf("fetching payments: %w", err)
		}
		payments, err = decodeAll[domain.Transaction](rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.query.QueryAll(gctx, conn, domain.EntityBillPayment, whereTxn)
		if err != nil {
			return fmt.Errorf("fetching bill payments: %w", err)
		}
		billPayments, err = decodeAll[domain.Transaction](rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.query.QueryAll(gctx, conn, domain.EntityAccount, "AccountType IN ('Bank','Other Current Asset')")
		if err != nil {
			return fmt.Errorf("fetching bank accounts: %w", err)
		}
		bankAccounts, err = decodeAll[domain.Account](rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accountLabels := make(map[string]string, len(bankAccounts))
	for _, a := range bankAccounts {
		accountLabels[a.ID] = a.Label()
	}

	report := &OverpaymentReport{refs: make(map[string]TxnInfo)}

	var invoiceIDs, creditMemoIDs, depositIDs, billIDs, vendorCreditIDs []string
	for i := range payments {
		p := &payments[i]
		linked := linkedTxns(p)
		for _, ln := range linked {
			switch strings.ToLower(ln.TxnType) {
			case "invoice":
				invoiceIDs = append(invoiceIDs, ln.TxnID)
			case "creditmemo":
				creditMemoIDs = append(creditMemoIDs, ln.TxnID)
			case "deposit":
				depositIDs = append(depositIDs, ln.TxnID)
			}
		}
		report.Payments = append(report.Payments, buildPaymentApply(p, linked, accountLabels))
	}
	for i := range billPayments {
		bp := &billPayments[i]
		linked := linkedTxns(bp)
		for _, ln := range linked {
			switch strings.ToLower(ln.TxnType) {
			case "bill":
				billIDs = append(billIDs, ln.TxnID)
			case "vendorcredit":
				vendorCreditIDs = append(vendorCreditIDs, ln.TxnID)
			}
		}
		report.BillPayments = append(report.BillPayments, buildBillPaymentApply(bp, linked))
	}

	if err := s.resolveRefs(ctx, conn, report, invoiceIDs, creditMemoIDs, depositIDs, billIDs, vendorCreditIDs); err != nil {
		return nil, err
	}

	for _, pa := range report.Payments {
		if pa.Unapplied > 0 {
			p := pa.Doc
			report.CustomerOverpayments = append(report.CustomerOverpayments, CustomerOverpayment{
				Type:           "Payment",
				PaymentID:      p.ID,
				PaymentDate:    p.TxnDate,
				Customer:       refName(p.CustomerRef),
				AmountReceived: p.TotalAmt,
				AppliedTotal:   pa.AppliedTotal,
				Unapplied:      pa.Unapplied,
				PaymentRef:     pa.RefNumber,
				DepositTo:      pa.DepositTo,
				Email:          paymentEmail(p),
				Currency:       refValue(p.CurrencyRef),
				ExchangeRate:   exchangeRateOrOne(p),
			})
		}
	}
	for _, bpa := range report.BillPayments {
		if bpa.Unapplied > 0 {
			bp := bpa.Doc
			report.VendorOverpayments = append(report.VendorOverpayments, VendorOverpayment{
				Type:         "BillPayment",
				PaymentID:    bp.ID,
				PaymentDate:  bp.TxnDate,
				Vendor:       refName(bp.VendorRef),
				PaymentTotal: bp.TotalAmt,
				AppliedTotal: bpa.AppliedTotal,
				Unapplied:    bpa.Unapplied,
				RefNo:        bpa.RefNumber,
				BankAccount:  bpa.BankAccount,
			})
		}
	}

	return report, nil
}

// resolveRefs batch-fetches every linked transaction type concurrently.
// Deposit reads are tolerated failing: some tenants deny them and the rows
// degrade to blank lookup fields.
func (s *overpaymentService) resolveRefs(ctx context.Context, conn domain.Connection, report *OverpaymentReport, invoiceIDs, creditMemoIDs, depositIDs, billIDs, vendorCreditIDs []string) error {
	g, gctx := errgroup.WithContext(ctx)
	resolve := func(entity domain.EntityType, ids []string, tolerate bool) {
		g.Go(func() error {
			docs, err := s.fetchByIDs(gctx, conn, entity, ids)
			if err != nil {
				if tolerate {
					s.log.WithError(err).WithField("type", entity).Warn("linked transaction fetch failed, continuing")
					return nil
				}
				return err
			}
			key := strings.ToLower(string(entity))
			for i := range docs {
				d := &docs[i]
				report.refs[key+":"+d.ID] = TxnInfo{
					ID:          d.ID,
					Type:        string(entity),
					Date:        d.TxnDate,
					No:          d.DocNumber,
					DueDate:     d.DueDate,
					Amount:      d.TotalAmt,
					OpenBalance: openBalance(d),
				}
			}
			return nil
		})
	}
	resolve(domain.EntityInvoice, invoiceIDs, false)
	resolve(domain.EntityCreditMemo, creditMemoIDs, false)
	resolve(domain.EntityDeposit, depositIDs, true)
	resolve(domain.EntityBill, billIDs, false)
	resolve(domain.EntityVendorCredit, vendorCreditIDs, false)
	return g.Wait()
}

// fetchByIDs reads the given entities in id-batches small enough for one
// filter expression.
func (s *overpaymentService) fetchByIDs(ctx context.Context, conn domain.Connection, entity domain.EntityType, ids []string) ([]domain.Transaction, error) {
	uniq := dedupe(nonEmpty(ids))
	if len(uniq) == 0 {
		return nil, nil
	}

	var all []domain.Transaction
	for start := 0; start < len(uniq); start += idChunkSize {
		end := start + idChunkSize
		if end > len(uniq) {
			end = len(uniq)
		}
		quoted := make([]string, 0, end-start)
		for _, id := range uniq[start:end] {
			quoted = append(quoted, "'"+escapeLiteral(id)+"'")
		}
		where := fmt.Sprintf("Id IN (%s)", strings.Join(quoted, ", "))

		rows, err := s.query.QueryAll(ctx, conn, entity, where)
		if err != nil {
			return nil, err
		}
		docs, err := decodeAll[domain.Transaction](rows)
		if err != nil {
			return nil, err
		}
		all = append(all, docs...)
	}
	return all, nil
}

// linkedTxns flattens both the line-level and the document-level linked
// transactions of a payment. Line-level amounts fall back to the line amount;
// document-level ones to zero.
func linkedTxns(p *domain.Transaction) []LinkedTxnInfo {
	var out []LinkedTxnInfo
	for _, line := range p.Line {
		for _, ln := range line.LinkedTxn {
			amount := floatOrZero(ln.Amount)
			if ln.Amount == nil {
				amount = line.Amount
			}
			out = append(out, LinkedTxnInfo{TxnType: ln.TxnType, TxnID: ln.TxnID, Amount: amount})
		}
	}
	for _, ln := range p.LinkedTxn {
		out = append(out, LinkedTxnInfo{TxnType: ln.TxnType, TxnID: ln.TxnID, Amount: floatOrZero(ln.Amount)})
	}
	return out
}

func buildPaymentApply(p *domain.Transaction, linked []LinkedTxnInfo, accountLabels map[string]string) PaymentApply {
	var applied float64
	for _, ln := range linked {
		applied += ln.Amount
	}
	total := p.TotalAmt
	return PaymentApply{
		Doc:          p,
		RefNumber:    firstNonEmpty(p.PaymentRefNum, p.DocNumber, p.TxnNumber),
		DepositTo:    depositToLabel(p, accountLabels),
		Linked:       linked,
		AppliedTotal: domain.Round2(applied),
		Unapplied:    domain.Round2(total - applied),
	}
}

func buildBillPaymentApply(bp *domain.Transaction, linked []LinkedTxnInfo) BillPaymentApply {
	var applied float64
	for _, ln := range linked {
		applied += ln.Amount
	}
	total := bp.TotalAmt

	var checkNumber, bankAccount string
	if bp.CheckPayment != nil {
		checkNumber = bp.CheckPayment.CheckNumber
		if bp.CheckPayment.BankAccountRef != nil {
			bankAccount = bp.CheckPayment.BankAccountRef.Name
		}
	}
	if bankAccount == "" && bp.CreditCardPayment != nil && bp.CreditCardPayment.CCAccountRef != nil {
		bankAccount = bp.CreditCardPayment.CCAccountRef.Name
	}

	return BillPaymentApply{
		Doc:          bp,
		RefNumber:    firstNonEmpty(checkNumber, bp.PaymentRefNum, bp.DocNumber, bp.TxnNumber),
		BankAccount:  bankAccount,
		Linked:       linked,
		AppliedTotal: domain.Round2(applied),
		Unapplied:    domain.Round2(total - applied),
	}
}

// depositToLabel resolves the deposit account label: the inline reference
// name wins, then the bank account lookup, then blank.
func depositToLabel(p *domain.Transaction, accountLabels map[string]string) string {
	ref := p.DepositToAccountRef
	if ref == nil {
		return ""
	}
	if ref.Name != "" {
		return ref.Name
	}
	return accountLabels[ref.Value]
}

// openBalance prefers the explicit balance, then the remaining credit, then
// the transaction total.
func openBalance(d *domain.Transaction) float64 {
	if d.Balance != nil {
		return *d.Balance
	}
	if d.RemainingCredit != nil {
		return *d.RemainingCredit
	}
	return d.TotalAmt
}

func paymentEmail(p *domain.Transaction) string {
	if p.BillEmail != nil && p.BillEmail.Address != "" {
		return p.BillEmail.Address
	}
	if p.PrimaryEmailAddr != nil {
		return p.PrimaryEmailAddr.Address
	}
	return ""
}

func refName(r *domain.Ref) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func refValue(r *domain.Ref) string {
	if r == nil {
		return ""
	}
	return r.Value
}

func exchangeRateOrOne(p *domain.Transaction) float64 {
	if p.ExchangeRate == 0 {
		return 1
	}
	return p.ExchangeRate
}

func nonEmpty(ids []string) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
