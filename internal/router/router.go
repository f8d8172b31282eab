package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/handler"
	"qbridge/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Health      *handler.HealthHandler
	Connect     *handler.ConnectHandler
	Extract     *handler.ExtractHandler
	Attachments *handler.AttachmentHandler
	Exports     *handler.ExportHandler
}

// Setup builds the gin engine with middleware and all routes. The route paths
// match the frontend's expectations, so they live at the root rather than
// under an /api prefix.
func Setup(h Handlers, allowedOrigins []string, log *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/readyz", h.Health.Readyz)

	// OAuth connect flow. One callback serves all three slots; the slot is
	// carried in the signed state token.
	r.GET("/qbo/auth", h.Connect.Authorize(domain.SlotMain))
	r.GET("/qbo/auth-from", h.Connect.Authorize(domain.SlotFrom))
	r.GET("/qbo/auth-to", h.Connect.Authorize(domain.SlotTo))
	r.GET("/data_access", h.Connect.Callback)
	r.GET("/qbo/status", h.Connect.Status)
	r.POST("/qbo/disconnect", h.Connect.Disconnect)

	// Tax extraction and raw reads.
	r.GET("/extract/estimate/:id", h.Extract.ExtractEstimate)
	r.GET("/extract/creditmemo/:id", h.Extract.ExtractCreditMemo)
	r.GET("/raw/invoice/:id", h.Extract.RawInvoice)

	// Cross-tenant attachment migration.
	r.POST("/attachments/sync", h.Attachments.Scan)
	r.POST("/attachments/copy", h.Attachments.Copy)

	// Spreadsheet exports.
	r.GET("/export/invoices", h.Exports.Invoices)
	r.GET("/export/estimates", h.Exports.Estimates)
	r.GET("/export/creditmemos", h.Exports.CreditMemos)
	r.GET("/export/overpayments", h.Exports.Overpayments)
	r.POST("/export/allocation/excel", h.Exports.Allocations)

	return r
}
