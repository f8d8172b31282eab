package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qbridge/internal/domain"
)

func TestParseEntityType_Known(t *testing.T) {
	for _, name := range []string{"Invoice", "CreditMemo", "BillPayment", "TaxCode", "Attachable"} {
		entity, ok := domain.ParseEntityType(name)
		assert.True(t, ok, name)
		assert.Equal(t, domain.EntityType(name), entity)
	}
}

func TestParseEntityType_Unknown(t *testing.T) {
	_, ok := domain.ParseEntityType("Widget")
	assert.False(t, ok)

	// Entity names are case sensitive on the wire.
	_, ok = domain.ParseEntityType("invoice")
	assert.False(t, ok)
}

func TestEntityType_Endpoint(t *testing.T) {
	assert.Equal(t, "creditmemo", domain.EntityCreditMemo.Endpoint())
	assert.Equal(t, "billpayment", domain.EntityBillPayment.Endpoint())

	// Reference tables have no per-id read endpoint.
	assert.Equal(t, "", domain.EntityTaxCode.Endpoint())
}

func TestEntityType_MatchKey(t *testing.T) {
	assert.Equal(t, "", domain.EntityInvoice.MatchKey(nil))

	doc := &domain.Transaction{TxnNumber: "T-9", RefNumber: "R-4"}
	assert.Equal(t, "T-9", domain.EntityInvoice.MatchKey(doc))

	doc.DocNumber = "D-1"
	assert.Equal(t, "D-1", domain.EntityInvoice.MatchKey(doc))

	pay := &domain.Transaction{PaymentRefNum: "P-7"}
	assert.Equal(t, "P-7", domain.EntityPayment.MatchKey(pay))

	assert.Equal(t, "", domain.EntityBill.MatchKey(&domain.Transaction{}))
}

func TestParseSlot(t *testing.T) {
	assert.Equal(t, domain.SlotFrom, domain.ParseSlot("from"))
	assert.Equal(t, domain.SlotTo, domain.ParseSlot("to"))
	assert.Equal(t, domain.SlotMain, domain.ParseSlot("main"))
	assert.Equal(t, domain.SlotMain, domain.ParseSlot(""))
	assert.Equal(t, domain.SlotMain, domain.ParseSlot("other"))
}

func TestParseAllocationFilter(t *testing.T) {
	assert.Equal(t, domain.FilterByPayment, domain.ParseAllocationFilter("payment"))
	assert.Equal(t, domain.FilterByInvoice, domain.ParseAllocationFilter("invoice"))
	assert.Equal(t, domain.FilterByInvoice, domain.ParseAllocationFilter(""))
}
