package domain

// EntityType identifies a transaction entity in the remote accounting API.
type EntityType string

const (
	EntityInvoice          EntityType = "Invoice"
	EntityCreditMemo       EntityType = "CreditMemo"
	EntityBill             EntityType = "Bill"
	EntityVendorCredit     EntityType = "VendorCredit"
	EntitySalesReceipt     EntityType = "SalesReceipt"
	EntityEstimate         EntityType = "Estimate"
	EntityCreditCardCharge EntityType = "CreditCardCharge"
	EntityPurchase         EntityType = "Purchase"
	EntityCheck            EntityType = "Check"
	EntityDelayedCharge    EntityType = "DelayedCharge"
	EntityJournalEntry     EntityType = "JournalEntry"
	EntityPayment          EntityType = "Payment"
	EntityRefundReceipt    EntityType = "RefundReceipt"
	EntityBillPayment      EntityType = "BillPayment"
	EntityAccount          EntityType = "Account"
	EntityDeposit          EntityType = "Deposit"
	EntityAttachable       EntityType = "Attachable"
	EntityTaxCode          EntityType = "TaxCode"
	EntityTaxRate          EntityType = "TaxRate"
)

// AllCopyableEntities lists the transaction types eligible for attachment
// migration, in scan order.
var AllCopyableEntities = []EntityType{
	EntityInvoice,
	EntityCreditMemo,
	EntityBill,
	EntityVendorCredit,
	EntitySalesReceipt,
	EntityEstimate,
	EntityCreditCardCharge,
	EntityPurchase,
	EntityCheck,
	EntityDelayedCharge,
	EntityJournalEntry,
	EntityPayment,
	EntityRefundReceipt,
}

// endpointByEntity maps each entity type to its read-endpoint path segment.
var endpointByEntity = map[EntityType]string{
	EntityInvoice:          "invoice",
	EntityCreditMemo:       "creditmemo",
	EntityBill:             "bill",
	EntityVendorCredit:     "vendorcredit",
	EntitySalesReceipt:     "salesreceipt",
	EntityEstimate:         "estimate",
	EntityCreditCardCharge: "creditcardcharge",
	EntityPurchase:         "purchase",
	EntityCheck:            "check",
	EntityDelayedCharge:    "delayedcharge",
	EntityJournalEntry:     "journalentry",
	EntityPayment:          "payment",
	EntityRefundReceipt:    "refundreceipt",
	EntityBillPayment:      "billpayment",
	EntityAccount:          "account",
	EntityDeposit:          "deposit",
}

// ParseEntityType validates a caller-supplied entity type name.
func ParseEntityType(s string) (EntityType, bool) {
	e := EntityType(s)
	if _, ok := endpointByEntity[e]; ok {
		return e, true
	}
	switch e {
	case EntityAttachable, EntityTaxCode, EntityTaxRate:
		return e, true
	}
	return "", false
}

// Endpoint returns the read-endpoint path segment, or "" when the entity has
// no per-id read endpoint.
func (e EntityType) Endpoint() string {
	return endpointByEntity[e]
}

// RootKey returns the JSON key under which the API nests entities of this
// type, both in query responses and in single-entity reads.
func (e EntityType) RootKey() string {
	return string(e)
}

// DocNumberFunc extracts the business matching key from a fetched document.
// The key correlates the same logical document across two tenants, so the
// policy is registered per entity type and can be swapped without touching
// the migration engine.
type DocNumberFunc func(doc *Transaction) string

func defaultDocNumber(doc *Transaction) string {
	for _, v := range []string{doc.DocNumber, doc.TxnNumber, doc.RefNumber, doc.PaymentRefNum} {
		if v != "" {
			return v
		}
	}
	return ""
}

var docNumberByEntity = map[EntityType]DocNumberFunc{
	EntityInvoice:          defaultDocNumber,
	EntityCreditMemo:       defaultDocNumber,
	EntityBill:             defaultDocNumber,
	EntityVendorCredit:     defaultDocNumber,
	EntitySalesReceipt:     defaultDocNumber,
	EntityEstimate:         defaultDocNumber,
	EntityCreditCardCharge: defaultDocNumber,
	EntityPurchase:         defaultDocNumber,
	EntityCheck:            defaultDocNumber,
	EntityDelayedCharge:    defaultDocNumber,
	EntityJournalEntry:     defaultDocNumber,
	EntityPayment:          defaultDocNumber,
	EntityRefundReceipt:    defaultDocNumber,
}

// MatchKey returns the business matching key for a document of this type,
// or "" when the document carries none. Keys are assumed unique per tenant
// per entity type; the first match in the target tenant wins.
func (e EntityType) MatchKey(doc *Transaction) string {
	if doc == nil {
		return ""
	}
	if fn, ok := docNumberByEntity[e]; ok {
		return fn(doc)
	}
	return defaultDocNumber(doc)
}

// ConnectionSlot names one of the three held connections.
type ConnectionSlot string

const (
	SlotMain ConnectionSlot = "main"
	SlotFrom ConnectionSlot = "from"
	SlotTo   ConnectionSlot = "to"
)

// ParseSlot normalizes a slot name, defaulting to main.
func ParseSlot(s string) ConnectionSlot {
	switch ConnectionSlot(s) {
	case SlotFrom:
		return SlotFrom
	case SlotTo:
		return SlotTo
	default:
		return SlotMain
	}
}

// AllocationFilter selects which side of an allocation run the date-range
// filter applies to: the credit/invoice documents or the payment documents.
type AllocationFilter string

const (
	FilterByInvoice AllocationFilter = "invoice"
	FilterByPayment AllocationFilter = "payment"
)

// ParseAllocationFilter normalizes a filter name, defaulting to invoice.
func ParseAllocationFilter(s string) AllocationFilter {
	if AllocationFilter(s) == FilterByPayment {
		return FilterByPayment
	}
	return FilterByInvoice
}
