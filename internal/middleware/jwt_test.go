package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently-demo/backend/internal/auth"
	"github.com/evently-demo/backend/internal/clock"
	"github.com/evently-demo/backend/internal/engine"
	"github.com/evently-demo/backend/internal/store"
)

func newSimulator() *auth.Simulator {
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	env := engine.NewEnv(store.NewAdapter(store.NewMemoryMedium(), "demo_", nil), clk)
	return auth.NewSimulator(env, auth.Options{Tokens: auth.NewTokenIssuer("test-secret", clk)})
}

func protected(sim *auth.Simulator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWT(sim), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID)+":"+c.GetString(ContextUserRole))
	})
	return r
}

func get(r http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator()
	r := protected(sim)

	res := sim.SignInWithPassword(ctx, "teacher@demo.com", "pw")
	require.Nil(t, res.Error)
	token := res.Data.Session.AccessToken

	w := get(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher-1:teacher", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Basic "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer garbage").Code)
}

func TestJWT_rejects_token_after_sign_out(t *testing.T) {
	ctx := context.Background()
	sim := newSimulator()
	r := protected(sim)

	token := sim.SignInWithPassword(ctx, "buyer@demo.com", "pw").Data.Session.AccessToken
	require.Equal(t, http.StatusOK, get(r, "Bearer "+token).Code)

	sim.SignOut(ctx)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+token).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Prefer")
	assert.Equal(t, "Content-Range", w.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
