package handler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qbridge/internal/domain"
	"qbridge/internal/port"
	"qbridge/internal/qbo"
)

// ConnectHandler owns the OAuth connect flow for the three connection slots.
type ConnectHandler struct {
	store port.ConnectionStore
	auth  *qbo.Authorizer
	query port.QueryClient
	log   *logrus.Logger
}

// NewConnectHandler creates a ConnectHandler.
func NewConnectHandler(store port.ConnectionStore, auth *qbo.Authorizer, query port.QueryClient, log *logrus.Logger) *ConnectHandler {
	return &ConnectHandler{store: store, auth: auth, query: query, log: log}
}

type slotStatus struct {
	Connected   bool   `json:"connected"`
	RealmID     string `json:"realmId"`
	CompanyName string `json:"companyName"`
}

// Status reports the connection state of all three slots.
func (h *ConnectHandler) Status(c *gin.Context) {
	status := make(map[string]slotStatus, 3)
	for _, slot := range []domain.ConnectionSlot{domain.SlotMain, domain.SlotFrom, domain.SlotTo} {
		conn := h.store.Get(slot)
		status[string(slot)] = slotStatus{
			Connected:   conn.Usable(),
			RealmID:     conn.RealmID,
			CompanyName: conn.CompanyName,
		}
	}
	RespondOK(c, http.StatusOK, status)
}

// Authorize redirects the browser to the provider's consent screen for the
// given slot.
func (h *ConnectHandler) Authorize(slot domain.ConnectionSlot) gin.HandlerFunc {
	return func(c *gin.Context) {
		url, err := h.auth.AuthURL(slot)
		if err != nil {
			HandleError(c, h.log, err)
			return
		}
		c.Redirect(http.StatusFound, url)
	}
}

// Callback completes the OAuth exchange. The slot travels through the signed
// state token, so one redirect URI serves all three slots. The response is a
// self-closing popup page that notifies the opener window.
func (h *ConnectHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		HandleError(c, h.log, domain.ErrMissingAuthCode)
		return
	}
	realmID := c.Query("realmId")

	slot, err := h.auth.DecodeState(c.Query("state"))
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	token, err := h.auth.Exchange(c.Request.Context(), code)
	if err != nil {
		HandleError(c, h.log, err)
		return
	}

	conn := domain.Connection{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		RealmID:      realmID,
	}

	// Best effort: a failed lookup still leaves a usable connection.
	if name, err := h.query.CompanyName(c.Request.Context(), conn); err != nil {
		h.log.WithError(err).WithField("slot", slot).Warn("company name lookup failed")
	} else {
		conn.CompanyName = name
	}

	h.store.Set(slot, conn)
	h.log.WithFields(logrus.Fields{
		"slot":     slot,
		"realm_id": realmID,
		"company":  conn.CompanyName,
	}).Info("connection established")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(popupCloseHTML(slot, conn)))
}

// Disconnect clears one slot. The slot may come from the JSON body or the
// query string and defaults to main.
func (h *ConnectHandler) Disconnect(c *gin.Context) {
	var body struct {
		Which string `json:"which"`
	}
	_ = c.ShouldBindJSON(&body)
	which := body.Which
	if which == "" {
		which = c.Query("which")
	}

	slot := domain.ParseSlot(which)
	h.store.Clear(slot)
	h.log.WithField("slot", slot).Info("connection cleared")
	RespondOK(c, http.StatusOK, gin.H{"disconnected": string(slot)})
}

// popupCloseHTML notifies the opener window of the completed connection and
// closes the popup.
func popupCloseHTML(slot domain.ConnectionSlot, conn domain.Connection) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Connected</title></head>
<body>
<p>Connected to %s. You can close this window.</p>
<script>
if (window.opener) {
  window.opener.postMessage({type: "QBO_CONNECTED", which: %q, companyName: %q, realmId: %q}, "*");
}
window.close();
</script>
</body>
</html>`, html.EscapeString(conn.CompanyName), slot, conn.CompanyName, conn.RealmID)
}
