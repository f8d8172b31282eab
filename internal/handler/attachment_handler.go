package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/service"
)

// AttachmentHandler serves the cross-tenant attachment scan and copy runs.
type AttachmentHandler struct {
	attachments service.AttachmentService
	log         *logrus.Logger
}

// NewAttachmentHandler creates an AttachmentHandler.
func NewAttachmentHandler(attachments service.AttachmentService, log *logrus.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, log: log}
}

type attachmentRequest struct {
	DocTypes []string `json:"docTypes"`
}

func (r attachmentRequest) entityTypes() ([]domain.EntityType, error) {
	types := make([]domain.EntityType, 0, len(r.DocTypes))
	for _, name := range r.DocTypes {
		entity, ok := domain.ParseEntityType(name)
		if !ok {
			return nil, fmt.Errorf("doc type %q: %w", name, domain.ErrUnknownEntityType)
		}
		types = append(types, entity)
	}
	return types, nil
}

// Scan counts attachments on the source tenant per entity type, without
// copying anything.
func (h *AttachmentHandler) Scan(c *gin.Context) {
	var req attachmentRequest
	_ = c.ShouldBindJSON(&req)

	docTypes, err := req.entityTypes()
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	report, err := h.attachments.Scan(c.Request.Context(), docTypes)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, http.StatusOK, gin.H{
		"stats":   report.Stats,
		"errors":  report.Errors,
		"message": "attachment scan complete",
	})
}

// Copy migrates attachments from the source tenant to the target tenant,
// matching documents by document number.
func (h *AttachmentHandler) Copy(c *gin.Context) {
	var req attachmentRequest
	_ = c.ShouldBindJSON(&req)

	docTypes, err := req.entityTypes()
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	report, err := h.attachments.Copy(c.Request.Context(), docTypes)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}
	RespondOK(c, http.StatusOK, gin.H{
		"summary": report.Summary,
		"errors":  report.Errors,
		"message": "attachment copy complete",
	})
}
