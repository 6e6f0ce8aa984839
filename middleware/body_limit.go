package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at n bytes. Reading past the limit fails
// with *http.MaxBytesError, which handlers map to 413.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if n > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, n)
		}
		ctx.Next()
	}
}
