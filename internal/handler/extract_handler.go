package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/service"
)

// ExtractHandler serves per-line tax extraction and raw entity reads against
// the main connection.
type ExtractHandler struct {
	store port.ConnectionStore
	query port.QueryClient
	taxes service.TaxService
	log   *logrus.Logger
}

// NewExtractHandler creates an ExtractHandler.
func NewExtractHandler(store port.ConnectionStore, query port.QueryClient, taxes service.TaxService, log *logrus.Logger) *ExtractHandler {
	return &ExtractHandler{store: store, query: query, taxes: taxes, log: log}
}

// ExtractEstimate returns the per-line tax breakdown of one estimate.
func (h *ExtractHandler) ExtractEstimate(c *gin.Context) {
	h.extract(c, domain.EntityEstimate, "estimateId")
}

// ExtractCreditMemo returns the per-line tax breakdown of one credit memo.
func (h *ExtractHandler) ExtractCreditMemo(c *gin.Context) {
	h.extract(c, domain.EntityCreditMemo, "creditMemoId")
}

func (h *ExtractHandler) extract(c *gin.Context, entity domain.EntityType, idField string) {
	conn := h.store.Get(domain.SlotMain)
	if !conn.Usable() {
		HandleError(c, h.log, domain.NewSlotError(domain.SlotMain))
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()

	master, err := h.taxes.LoadTaxMaster(ctx, conn)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	raw, err := h.query.FetchByID(ctx, conn, entity, id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if raw == nil {
		HandleError(c, h.log, fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound))
		return
	}

	var doc domain.Transaction
	if err := json.Unmarshal(raw, &doc); err != nil {
		HandleError(c, h.log, fmt.Errorf("decoding %s %s: %w", entity, id, err))
		return
	}

	RespondOK(c, http.StatusOK, gin.H{
		"type":     string(entity),
		idField:    id,
		"taxLines": h.taxes.ExtractLineTaxes(&doc, master),
	})
}

// RawInvoice returns the remote invoice payload untouched, for debugging
// field mappings against the live wire format.
func (h *ExtractHandler) RawInvoice(c *gin.Context) {
	conn := h.store.Get(domain.SlotMain)
	if !conn.Usable() {
		HandleError(c, h.log, domain.NewSlotError(domain.SlotMain))
		return
	}

	id := c.Param("id")
	raw, err := h.query.FetchByID(c.Request.Context(), conn, domain.EntityInvoice, id)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	if raw == nil {
		HandleError(c, h.log, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound))
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
