package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Components  map[string]string `json:"components"`
	Environment string            `json:"environment"`
}

// Health pings every configured dependency. The service stays "ok" when a
// dependency is down so the sync upload path keeps receiving traffic.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps.Checks))
	for name := range h.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make(map[string]string, len(names))
	for _, name := range names {
		components[name] = "ok"
		if err := h.deps.Checks[name].Ping(ctx); err != nil {
			components[name] = "error"
			h.log.Error().Err(err).Str("component", name).Msg("health check failed")
		}
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Components:  components,
		Environment: h.deps.Environment,
	})
}
