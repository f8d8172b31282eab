package domain

// Connection holds the credentials for one company instance. A connection is
// usable iff AccessToken and RealmID are both non-empty.
type Connection struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	RealmID      string `json:"realm_id"`
	CompanyName  string `json:"company_name"`
}

// Usable reports whether the connection can authenticate API calls.
func (c Connection) Usable() bool {
	return c.AccessToken != "" && c.RealmID != ""
}

// Ref is the remote API's {value, name} reference pair.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// MetaData carries the remote create/update timestamps.
type MetaData struct {
	CreateTime      string `json:"CreateTime"`
	LastUpdatedTime string `json:"LastUpdatedTime"`
}

// Address is a billing or shipping address block.
type Address struct {
	Line1                  string `json:"Line1"`
	Line2                  string `json:"Line2"`
	City                   string `json:"City"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode"`
	PostalCode             string `json:"PostalCode"`
	Country                string `json:"Country"`
}

// EmailAddress wraps the API's email container.
type EmailAddress struct {
	Address string `json:"Address"`
}

// Memo wraps the API's {value} memo container.
type Memo struct {
	Value string `json:"value"`
}

// LinkedTxn is an embedded linkage record pointing at the transaction a
// payment or credit settles. Amount is a pointer because a linkage may omit
// it, in which case the owning line's amount applies.
type LinkedTxn struct {
	TxnID   string   `json:"TxnId"`
	TxnType string   `json:"TxnType"`
	Amount  *float64 `json:"Amount,omitempty"`
}

// SalesItemLineDetail marks a sellable-item line and carries its item fields.
type SalesItemLineDetail struct {
	ItemRef     *Ref     `json:"ItemRef,omitempty"`
	ClassRef    *Ref     `json:"ClassRef,omitempty"`
	TaxCodeRef  *Ref     `json:"TaxCodeRef,omitempty"`
	Qty         *float64 `json:"Qty,omitempty"`
	UnitPrice   *float64 `json:"UnitPrice,omitempty"`
	ServiceDate string   `json:"ServiceDate,omitempty"`
}

// DetailTypeSalesItem is the Line.DetailType value that marks a sellable-item
// line; other detail types (discount, subtotal, group) are skipped by the tax
// extractor and do not consume a line number.
const DetailTypeSalesItem = "SalesItemLineDetail"

// DetailTypeDiscount marks a document-level discount line.
const DetailTypeDiscount = "DiscountLineDetail"

// Line is one row of a transaction document.
type Line struct {
	ID                  string               `json:"Id"`
	Description         string               `json:"Description"`
	Amount              float64              `json:"Amount"`
	DetailType          string               `json:"DetailType"`
	SalesItemLineDetail *SalesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
	LinkedTxn           []LinkedTxn          `json:"LinkedTxn,omitempty"`
}

// TaxLineDetail carries the document-level tax percentage.
type TaxLineDetail struct {
	TaxPercent float64 `json:"TaxPercent"`
}

// TaxLine is one entry of a document's tax-detail collection.
type TaxLine struct {
	Amount        float64       `json:"Amount"`
	TaxLineDetail TaxLineDetail `json:"TaxLineDetail"`
}

// TxnTaxDetail is the document-level tax summary.
type TxnTaxDetail struct {
	TotalTax float64   `json:"TotalTax"`
	TaxLine  []TaxLine `json:"TaxLine,omitempty"`
}

// CheckPayment is the check sub-record of a bill payment.
type CheckPayment struct {
	CheckNumber    string `json:"CheckNumber"`
	BankAccountRef *Ref   `json:"BankAccountRef,omitempty"`
}

// CreditCardPayment is the card sub-record of a bill payment.
type CreditCardPayment struct {
	CCAccountRef *Ref `json:"CCAccountRef,omitempty"`
}

// Transaction is the superset wire model for every transaction entity the
// engines read (Invoice, CreditMemo, Payment, BillPayment, ...). Fields absent
// from a given entity type decode to their zero values.
type Transaction struct {
	ID                   string             `json:"Id"`
	DocNumber            string             `json:"DocNumber"`
	TxnNumber            string             `json:"TxnNumber"`
	RefNumber            string             `json:"RefNumber"`
	PaymentRefNum        string             `json:"PaymentRefNum"`
	TxnDate              string             `json:"TxnDate"`
	DueDate              string             `json:"DueDate"`
	ExpirationDate       string             `json:"ExpirationDate"`
	PONumber             string             `json:"PONumber"`
	MetaData             MetaData           `json:"MetaData"`
	CustomerRef          *Ref               `json:"CustomerRef,omitempty"`
	VendorRef            *Ref               `json:"VendorRef,omitempty"`
	SalesTermRef         *Ref               `json:"SalesTermRef,omitempty"`
	CurrencyRef          *Ref               `json:"CurrencyRef,omitempty"`
	DepositToAccountRef  *Ref               `json:"DepositToAccountRef,omitempty"`
	BillEmail            *EmailAddress      `json:"BillEmail,omitempty"`
	PrimaryEmailAddr     *EmailAddress      `json:"PrimaryEmailAddr,omitempty"`
	CustomerMemo         *Memo              `json:"CustomerMemo,omitempty"`
	PrivateNote          string             `json:"PrivateNote"`
	GlobalTaxCalculation string             `json:"GlobalTaxCalculation"`
	ExchangeRate         float64            `json:"ExchangeRate"`
	TotalAmt             float64            `json:"TotalAmt"`
	Balance              *float64           `json:"Balance,omitempty"`
	RemainingCredit      *float64           `json:"RemainingCredit,omitempty"`
	BillAddr             *Address           `json:"BillAddr,omitempty"`
	ShipAddr             *Address           `json:"ShipAddr,omitempty"`
	Line                 []Line             `json:"Line,omitempty"`
	LinkedTxn            []LinkedTxn        `json:"LinkedTxn,omitempty"`
	TxnTaxDetail         *TxnTaxDetail      `json:"TxnTaxDetail,omitempty"`
	CheckPayment         *CheckPayment      `json:"CheckPayment,omitempty"`
	CreditCardPayment    *CreditCardPayment `json:"CreditCardPayment,omitempty"`
}

// TaxModeInclusive is the GlobalTaxCalculation value for tax-inclusive
// documents; anything else is treated as tax-excluded.
const TaxModeInclusive = "TaxInclusive"

// TaxMode returns the document's tax mode, defaulting to "TaxExcluded".
func (t *Transaction) TaxMode() string {
	if t.GlobalTaxCalculation == "" {
		return "TaxExcluded"
	}
	return t.GlobalTaxCalculation
}

// EntityRef is the target of an attachment link.
type EntityRef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AttachableRef links an attachment to one transaction document.
type AttachableRef struct {
	EntityRef *EntityRef `json:"EntityRef,omitempty"`
}

// Attachable is a file-attachment record owned by the source tenant. The
// engines only ever read it.
type Attachable struct {
	ID              string          `json:"Id"`
	FileName        string          `json:"FileName"`
	Note            string          `json:"Note"`
	FileAccessURI   string          `json:"FileAccessUri"`
	TempDownloadURI string          `json:"TempDownloadUri"`
	AttachableRef   []AttachableRef `json:"AttachableRef,omitempty"`
}

// FileURL returns the downloadable URL for the attachment, or "".
func (a *Attachable) FileURL() string {
	if a.FileAccessURI != "" {
		return a.FileAccessURI
	}
	return a.TempDownloadURI
}

// Account is a ledger account row, used for deposit-target resolution.
type Account struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	AcctNum     string `json:"AcctNum"`
	AccountType string `json:"AccountType"`
}

// Label returns "{AcctNum} {Name}" when an account code exists, else the name.
func (a *Account) Label() string {
	if a.AcctNum != "" {
		return a.AcctNum + " " + a.Name
	}
	return a.Name
}

// TaxRateDetail references one component rate of a tax code.
type TaxRateDetail struct {
	TaxRateRef Ref `json:"TaxRateRef"`
}

// SalesTaxRateList is the component-rate list of a tax code.
type SalesTaxRateList struct {
	TaxRateDetail []TaxRateDetail `json:"TaxRateDetail,omitempty"`
}

// TaxCode is one row of the tax-code reference table.
type TaxCode struct {
	ID               string            `json:"Id"`
	Name             string            `json:"Name"`
	SalesTaxRateList *SalesTaxRateList `json:"SalesTaxRateList,omitempty"`
}

// TaxRate is one row of the tax-rate reference table.
type TaxRate struct {
	ID        string  `json:"Id"`
	Name      string  `json:"Name"`
	RateValue float64 `json:"RateValue"`
}

// TaxMaster is the reference set needed to decompose an aggregate tax
// percentage into named components. Loaded fresh per call, never cached
// across calls.
type TaxMaster struct {
	TaxCodes []TaxCode
	TaxRates []TaxRate
}

// FindTaxCode looks up a tax code by id or, failing that, by name.
func (m *TaxMaster) FindTaxCode(ref string) *TaxCode {
	for i := range m.TaxCodes {
		if m.TaxCodes[i].ID == ref || m.TaxCodes[i].Name == ref {
			return &m.TaxCodes[i]
		}
	}
	return nil
}

// FindTaxRate looks up a tax rate by id.
func (m *TaxMaster) FindTaxRate(id string) *TaxRate {
	for i := range m.TaxRates {
		if m.TaxRates[i].ID == id {
			return &m.TaxRates[i]
		}
	}
	return nil
}

// TaxBreakupEntry is one named component of a line's tax.
type TaxBreakupEntry struct {
	Rate float64 `json:"rate"`
	Name string  `json:"name"`
}

// LineTaxResult is the per-line decomposition produced by the tax extractor.
// Qty and Rate are pointers so absent values serialize as null.
type LineTaxResult struct {
	LineNo      int               `json:"lineNo"`
	LineIndex   int               `json:"lineIndex"`
	Description string            `json:"description"`
	Qty         *float64          `json:"qty"`
	Rate        *float64          `json:"rate"`
	Amount      float64           `json:"amount"`
	TaxCode     string            `json:"taxCode"`
	TaxRate     float64           `json:"taxRate"`
	TaxAmount   float64           `json:"taxAmount"`
	TaxBreakup  []TaxBreakupEntry `json:"taxBreakup"`
	ItemID      string            `json:"itemId"`
	ItemName    string            `json:"itemName"`
	ClassID     string            `json:"classId"`
	ClassName   string            `json:"className"`
	ServiceDate string            `json:"serviceDate"`
}
