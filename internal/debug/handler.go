// Package debug exposes the recovery probes: which keys hold data, and a
// reset that clears everything.
package debug

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/client"
	"github.com/evently-demo/backend/pkg/response"
)

type Handler struct {
	client *client.Client
	logger *zap.Logger
}

func NewHandler(c *client.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: c, logger: logger}
}

func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/session", h.SessionInfo)
	g.POST("/clear-session", h.ClearSession)
}

// SessionInfo handles GET /debug/session.
func (h *Handler) SessionInfo(c *gin.Context) {
	response.OK(c, h.client.Store().Info(c.Request.Context()))
}

// ClearSession handles POST /debug/clear-session.
func (h *Handler) ClearSession(c *gin.Context) {
	if err := h.client.Auth.ClearSession(c.Request.Context()); err != nil {
		h.logger.Error("clear session failed", zap.Error(err))
		response.Internal(c, "failed to clear storage")
		return
	}
	h.logger.Info("session and demo data cleared")
	response.OK(c, gin.H{"cleared": true})
}
