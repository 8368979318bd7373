package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form fields and part headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// BodyLimit caps the request body at maxFileBytes plus multipart framing.
// A zero limit disables the cap.
func BodyLimit(maxFileBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxFileBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFileBytes+multipartOverhead)
		}
		c.Next()
	}
}
