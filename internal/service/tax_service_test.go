package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qbridge/internal/domain"
	"qbridge/internal/service"
	"qbridge/mocks"
)

func float64Ptr(v float64) *float64 { return &v }

func gstMaster() *domain.TaxMaster {
	return &domain.TaxMaster{
		TaxCodes: []domain.TaxCode{
			{ID: "5", Name: "GST@18%", SalesTaxRateList: &domain.SalesTaxRateList{
				TaxRateDetail: []domain.TaxRateDetail{
					{TaxRateRef: domain.Ref{Value: "11"}},
					{TaxRateRef: domain.Ref{Value: "12"}},
				},
			}},
		},
		TaxRates: []domain.TaxRate{
			{ID: "11", Name: "CGST 9%", RateValue: 9},
			{ID: "12", Name: "SGST 9%", RateValue: 9},
		},
	}
}

func TestTaxService_LoadTaxMaster(t *testing.T) {
	query := new(mocks.MockQueryClient)
	query.On("QueryAll", mock.Anything, fromConn, domain.EntityTaxCode, "").
		Return(rawRows(`{"Id":"5","Name":"GST@18%"}`), nil)
	query.On("QueryAll", mock.Anything, fromConn, domain.EntityTaxRate, "").
		Return(rawRows(`{"Id":"11","Name":"CGST 9%","RateValue":9}`), nil)

	svc := service.NewTaxService(query)
	master, err := svc.LoadTaxMaster(context.Background(), fromConn)

	require.NoError(t, err)
	require.Len(t, master.TaxCodes, 1)
	require.Len(t, master.TaxRates, 1)
	assert.Equal(t, "GST@18%", master.TaxCodes[0].Name)
	assert.Equal(t, 9.0, master.TaxRates[0].RateValue)
}

func TestTaxService_ExtractLineTaxes(t *testing.T) {
	svc := service.NewTaxService(new(mocks.MockQueryClient))

	doc := &domain.Transaction{
		TxnTaxDetail: &domain.TxnTaxDetail{
			TaxLine: []domain.TaxLine{{TaxLineDetail: domain.TaxLineDetail{TaxPercent: 18}}},
		},
		Line: []domain.Line{
			{
				Description: "Consulting",
				Amount:      1000,
				DetailType:  domain.DetailTypeSalesItem,
				SalesItemLineDetail: &domain.SalesItemLineDetail{
					ItemRef:    &domain.Ref{Value: "i1", Name: "Consulting"},
					TaxCodeRef: &domain.Ref{Value: "5"},
					Qty:        float64Ptr(2),
					UnitPrice:  float64Ptr(500),
				},
			},
			{
				// Discount lines are skipped and do not consume a line number.
				Amount:     100,
				DetailType: domain.DetailTypeDiscount,
			},
			{
				Description: "Unmapped code",
				Amount:      333.33,
				DetailType:  domain.DetailTypeSalesItem,
				SalesItemLineDetail: &domain.SalesItemLineDetail{
					TaxCodeRef: &domain.Ref{Value: "99"},
				},
			},
		},
	}

	results := svc.ExtractLineTaxes(doc, gstMaster())

	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, 1, first.LineNo)
	assert.Equal(t, 0, first.LineIndex)
	assert.Equal(t, 18.0, first.TaxRate)
	assert.Equal(t, 180.0, first.TaxAmount)
	assert.Equal(t, "5", first.TaxCode)
	assert.Equal(t, []domain.TaxBreakupEntry{
		{Rate: 9, Name: "CGST 9%"},
		{Rate: 9, Name: "SGST 9%"},
	}, first.TaxBreakup)

	second := results[1]
	assert.Equal(t, 2, second.LineNo)
	assert.Equal(t, 2, second.LineIndex)
	assert.Equal(t, 60.0, second.TaxAmount)
	// Unresolvable tax codes fall back to one generic component.
	assert.Equal(t, []domain.TaxBreakupEntry{{Rate: 18, Name: "GST"}}, second.TaxBreakup)
}

func TestTaxService_ExtractLineTaxes_ByCodeName(t *testing.T) {
	svc := service.NewTaxService(new(mocks.MockQueryClient))

	doc := &domain.Transaction{
		TxnTaxDetail: &domain.TxnTaxDetail{
			TaxLine: []domain.TaxLine{{TaxLineDetail: domain.TaxLineDetail{TaxPercent: 18}}},
		},
		Line: []domain.Line{{
			Amount:     500,
			DetailType: domain.DetailTypeSalesItem,
			SalesItemLineDetail: &domain.SalesItemLineDetail{
				TaxCodeRef: &domain.Ref{Value: "GST@18%"},
			},
		}},
	}

	results := svc.ExtractLineTaxes(doc, gstMaster())
	require.Len(t, results, 1)
	assert.Len(t, results[0].TaxBreakup, 2)
}

func TestTaxService_ExtractLineTaxes_EmptyDoc(t *testing.T) {
	svc := service.NewTaxService(new(mocks.MockQueryClient))
	assert.Empty(t, svc.ExtractLineTaxes(nil, gstMaster()))
	assert.Empty(t, svc.ExtractLineTaxes(&domain.Transaction{}, gstMaster()))
}
