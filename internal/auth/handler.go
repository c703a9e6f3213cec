package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/models"
	"github.com/evently-demo/backend/pkg/response"
)

// CredentialsRequest is the body for POST /auth/v1/token.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
}

// SignUpRequest is the body for POST /auth/v1/signup.
type SignUpRequest struct {
	Email    string              `json:"email" binding:"required,email"`
	Password string              `json:"password"`
	Data     models.UserMetadata `json:"data"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	sim    *Simulator
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(sim *Simulator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sim: sim, logger: logger}
}

// Register mounts the non-streaming auth routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/token", h.SignIn)
	g.POST("/signup", h.SignUp)
	g.POST("/logout", h.SignOut)
	g.GET("/session", h.Session)
	g.GET("/user", h.User)
	g.GET("/profile", h.Profile)
}

// SignIn handles POST /auth/v1/token.
func (h *Handler) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.write(c, h.sim.SignInWithPassword(c.Request.Context(), req.Email, req.Password))
}

// SignUp handles POST /auth/v1/signup.
func (h *Handler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	h.write(c, h.sim.SignUp(c.Request.Context(), req.Email, req.Password, req.Data))
}

// SignOut handles POST /auth/v1/logout.
func (h *Handler) SignOut(c *gin.Context) {
	h.write(c, h.sim.SignOut(c.Request.Context()))
}

// Session handles GET /auth/v1/session.
func (h *Handler) Session(c *gin.Context) {
	h.write(c, h.sim.GetSession(c.Request.Context()))
}

// User handles GET /auth/v1/user.
func (h *Handler) User(c *gin.Context) {
	h.write(c, h.sim.GetUser(c.Request.Context()))
}

// Profile handles GET /auth/v1/profile: the signed-in user's profile,
// created on first access.
func (h *Handler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	res := h.sim.GetUser(ctx)
	if res.Data.User == nil {
		response.Unauthorized(c, "not signed in")
		return
	}
	profile, err := h.sim.EnsureProfile(ctx, *res.Data.User)
	if err != nil {
		h.logger.Error("ensure profile failed", zap.String("user_id", res.Data.User.ID), zap.Error(err))
		response.Fail(c, http.StatusInternalServerError, err.Code, err.Message)
		return
	}
	response.OK(c, profile)
}

func (h *Handler) write(c *gin.Context, res Response) {
	status := http.StatusOK
	if res.Error != nil {
		status = http.StatusInternalServerError
		if errors.Is(res.Error, models.ErrInvalidCredentials) {
			status = http.StatusBadRequest
		}
	}
	c.JSON(status, res)
}
