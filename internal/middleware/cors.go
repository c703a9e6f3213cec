package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	// PostgREST clients send Prefer and apikey and read Content-Range.
	corsHeaders = "Content-Type, Authorization, Accept, Prefer, apikey, X-Client-Info"
	corsExpose  = "Content-Range"
)

// CORS answers preflight requests and marks responses for the configured
// origins. allowed is "*" or a comma-separated origin list; empty means any.
func CORS(allowed string) gin.HandlerFunc {
	origins := originSet(allowed)
	anyOrigin := len(origins) == 0 || origins["*"]
	return func(c *gin.Context) {
		if origin, ok := allowOrigin(c.GetHeader("Origin"), origins, anyOrigin); ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExpose)
			h.Set("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func allowOrigin(origin string, origins map[string]bool, anyOrigin bool) (string, bool) {
	switch {
	case anyOrigin:
		return "*", true
	case origin != "" && origins[origin]:
		return origin, true
	}
	return "", false
}

func originSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	return set
}
