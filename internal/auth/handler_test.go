package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_sign_in_flow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHarness(t, Options{})
	r := gin.New()
	NewHandler(h.sim, nil).Register(r.Group("/auth/v1"))

	w := serve(r, http.MethodGet, "/auth/v1/profile", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/auth/v1/token", `{"email":"teacher@demo.com","password":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/auth/v1/token", `{"email":"teacher@demo.com","password":"pw"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Data.Session)
	assert.NotEmpty(t, res.Data.Session.AccessToken)

	w = serve(r, http.MethodGet, "/auth/v1/profile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"teacher"`)

	w = serve(r, http.MethodPost, "/auth/v1/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodGet, "/auth/v1/session", "")
	assert.JSONEq(t, `{"data":{"user":null,"session":null},"error":null}`, w.Body.String())
}

func TestHandler_sign_up(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHarness(t, Options{})
	r := gin.New()
	NewHandler(h.sim, nil).Register(r.Group("/auth/v1"))

	w := serve(r, http.MethodPost, "/auth/v1/signup", `{"email":"nadia@example.com","password":"pw","data":{"full_name":"Nadia","role":"teacher"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/auth/v1/user", "")
	var res Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotNil(t, res.Data.User)
	assert.Equal(t, "Nadia", res.Data.User.UserMetadata.FullName)

	w = serve(r, http.MethodPost, "/auth/v1/signup", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
