package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mataager/SwiftStore/internal/gate"
)

// StoreAccess returns the gate decision as JSON for front ends that render
// their own notice.
func (h HandlerSet) StoreAccess(c *gin.Context) {
	decision := h.deps.Gate.Check(c.Request.Context(), c.Param("storeId"))
	c.JSON(http.StatusOK, decision)
}

// StoreGate answers 204 when the store may load and otherwise serves the
// full block page with 403. The id comes from the path or the uid query
// parameter.
func (h HandlerSet) StoreGate(c *gin.Context) {
	storeID := c.Param("storeId")
	if storeID == "" {
		storeID = c.Query("uid")
	}

	decision := h.deps.Gate.Check(c.Request.Context(), strings.TrimSpace(storeID))
	if decision.Allowed {
		c.Status(http.StatusNoContent)
		return
	}

	var page bytes.Buffer
	if err := gate.Render(&page, decision.Block); err != nil {
		h.log.Error().Err(err).Msg("render block page failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusForbidden, "text/html; charset=utf-8", page.Bytes())
}
