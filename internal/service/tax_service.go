package service

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

// TaxService loads the tenant tax master and derives per-line tax breakdowns
// from sales documents.
type TaxService interface {
	LoadTaxMaster(ctx context.Context, conn domain.Connection) (*domain.TaxMaster, error)
	ExtractLineTaxes(doc *domain.Transaction, master *domain.TaxMaster) []domain.LineTaxResult
}

type taxService struct {
	query port.QueryClient
}

// NewTaxService creates a TaxService backed by the remote query client.
func NewTaxService(query port.QueryClient) TaxService {
	return &taxService{query: query}
}

// LoadTaxMaster fetches all tax codes and tax rates for the connected tenant
// concurrently.
func (s *taxService) LoadTaxMaster(ctx context.Context, conn domain.Connection) (*domain.TaxMaster, error) {
	master := &domain.TaxMaster{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.query.QueryAll(ctx, conn, domain.EntityTaxCode, "")
		if err != nil {
			return fmt.Errorf("loading tax codes: %w", err)
		}
		codes, err := decodeAll[domain.TaxCode](rows)
		if err != nil {
			return err
		}
		master.TaxCodes = codes
		return nil
	})
	g.Go(func() error {
		rows, err := s.query.QueryAll(ctx, conn, domain.EntityTaxRate, "")
		if err != nil {
			return fmt.Errorf("loading tax rates: %w", err)
		}
		rates, err := decodeAll[domain.TaxRate](rows)
		if err != nil {
			return err
		}
		master.TaxRates = rates
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTaxMasterUnloaded, err)
	}
	return master, nil
}

// ExtractLineTaxes derives a per-line tax result for every sales item line of
// the document. The document-level tax percent (first tax line of the tax
// detail block) applies uniformly to all lines; the breakdown is resolved
// through the tax master and falls back to a single generic GST component at
// the document percent when the line's tax code resolves to nothing.
func (s *taxService) ExtractLineTaxes(doc *domain.Transaction, master *domain.TaxMaster) []domain.LineTaxResult {
	if doc == nil || len(doc.Line) == 0 {
		return []domain.LineTaxResult{}
	}

	taxPercent := docTaxPercent(doc)

	results := make([]domain.LineTaxResult, 0, len(doc.Line))
	lineNo := 1
	for idx, line := range doc.Line {
		if line.DetailType != domain.DetailTypeSalesItem {
			continue
		}

		detail := line.SalesItemLineDetail
		if detail == nil {
			detail = &domain.SalesItemLineDetail{}
		}

		var taxCode string
		if detail.TaxCodeRef != nil {
			taxCode = detail.TaxCodeRef.Value
		}

		res := domain.LineTaxResult{
			LineNo:      lineNo,
			LineIndex:   idx,
			Description: line.Description,
			Qty:         detail.Qty,
			Rate:        detail.UnitPrice,
			Amount:      line.Amount,
			TaxCode:     taxCode,
			TaxRate:     taxPercent,
			TaxAmount:   domain.Round2(line.Amount * taxPercent / 100),
			TaxBreakup:  resolveBreakup(master, taxCode, taxPercent),
			ServiceDate: detail.ServiceDate,
		}
		if detail.ItemRef != nil {
			res.ItemID = detail.ItemRef.Value
			res.ItemName = detail.ItemRef.Name
		}
		if detail.ClassRef != nil {
			res.ClassID = detail.ClassRef.Value
			res.ClassName = detail.ClassRef.Name
		}

		results = append(results, res)
		lineNo++
	}
	return results
}

// docTaxPercent reads the document-level tax percent from the first tax line.
func docTaxPercent(doc *domain.Transaction) float64 {
	if doc.TxnTaxDetail == nil || len(doc.TxnTaxDetail.TaxLine) == 0 {
		return 0
	}
	return doc.TxnTaxDetail.TaxLine[0].TaxLineDetail.TaxPercent
}

// resolveBreakup maps a line tax code to its component rates via the tax
// master. The code may be referenced by id or by name. When nothing resolves,
// a single generic component at the document percent stands in.
func resolveBreakup(master *domain.TaxMaster, taxCode string, taxPercent float64) []domain.TaxBreakupEntry {
	var breakup []domain.TaxBreakupEntry
	if master != nil && taxCode != "" {
		if code := master.FindTaxCode(taxCode); code != nil && code.SalesTaxRateList != nil {
			for _, d := range code.SalesTaxRateList.TaxRateDetail {
				if rate := master.FindTaxRate(d.TaxRateRef.Value); rate != nil {
					breakup = append(breakup, domain.TaxBreakupEntry{Rate: rate.RateValue, Name: rate.Name})
				}
			}
		}
	}
	if len(breakup) == 0 {
		breakup = []domain.TaxBreakupEntry{{Rate: taxPercent, Name: "GST"}}
	}
	return breakup
}

// decodeAll unmarshals every raw row into T, failing on the first bad row.
func decodeAll[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, raw := range rows {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding row: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
