package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mataager/SwiftStore/internal/ids"
	"github.com/mataager/SwiftStore/internal/jobs"
)

func (h HandlerSet) GetJob(c *gin.Context) {
	if h.deps.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async_unavailable"})
		return
	}

	id := c.Param("id")
	if !ids.ValidJobID(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job_not_found"})
		return
	}

	result, err := h.deps.Jobs.GetResult(c.Request.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job_not_found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", id).Msg("load job result failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, result)
}
