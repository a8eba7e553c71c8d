package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gappy/pkg/utils"
)

var testSecret = []byte("test-secret")

func newCredentialsRouter(secret []byte, verify AccountVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceIDMiddleware())
	handlers := []gin.HandlerFunc{AccountCredentialsMiddleware(secret)}
	if verify != nil {
		handlers = append(handlers, VerifiedAccountMiddleware(verify))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"accountId":   c.GetString(AccountIDKey),
			"accessToken": c.GetString(AccessTokenKey),
			"userId":      c.GetString(UserIDKey),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func doRequest(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccountCredentialsRequired(t *testing.T) {
	r := newCredentialsRouter(nil, nil)

	w := doRequest(r, map[string]string{utils.AccountIDHeader: "acct-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(TraceIDHeader))

	w = doRequest(r, map[string]string{utils.AccountIDHeader: "acct-1", utils.AccountTokenHeader: "tok"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accountId":"acct-1"`)
}

func TestBearerTokenValidatedWhenSecretSet(t *testing.T) {
	r := newCredentialsRouter(testSecret, nil)
	base := map[string]string{utils.AccountIDHeader: "acct-1", utils.AccountTokenHeader: "tok"}

	token, err := utils.CreateToken(testSecret, "user-7", "authenticated", time.Minute)
	require.NoError(t, err)
	base["Authorization"] = "Bearer " + token
	w := doRequest(r, base)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"user-7"`)

	forged, err := utils.CreateToken([]byte("other"), "user-7", "authenticated", time.Minute)
	require.NoError(t, err)
	base["Authorization"] = "Bearer " + forged
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, base).Code)

	base["Authorization"] = "Basic abc"
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, base).Code)
}

func TestBearerTokenForwardedWithoutSecret(t *testing.T) {
	r := newCredentialsRouter(nil, nil)
	w := doRequest(r, map[string]string{
		utils.AccountIDHeader:    "acct-1",
		utils.AccountTokenHeader: "tok",
		"Authorization":          "Bearer opaque",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"opaque"`)
}

func TestVerifiedAccount(t *testing.T) {
	verify := func(ctx context.Context, accountID, accountToken string) error {
		if accountToken != "good" {
			return errors.New("bad token")
		}
		return nil
	}
	r := newCredentialsRouter(nil, verify)

	ok := doRequest(r, map[string]string{utils.AccountIDHeader: "acct-1", utils.AccountTokenHeader: "good"})
	assert.Equal(t, http.StatusOK, ok.Code)

	bad := doRequest(r, map[string]string{utils.AccountIDHeader: "acct-1", utils.AccountTokenHeader: "bad"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestTraceIDReusesValidHeader(t *testing.T) {
	r := newCredentialsRouter(nil, nil)
	w := doRequest(r, map[string]string{TraceIDHeader: "7b1f2a44-0c1e-4c55-9a57-1c1f3b0a9e21"})
	assert.Equal(t, "7b1f2a44-0c1e-4c55-9a57-1c1f3b0a9e21", w.Header().Get(TraceIDHeader))

	w = doRequest(r, map[string]string{TraceIDHeader: "not-a-uuid"})
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(TraceIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://gappy.app"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://gappy.app")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://gappy.app", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), utils.AccountTokenHeader)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin", JWTAuthMiddleware(testSecret), RoleMiddleware("service_role"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	post := func(authorization string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post(""))

	user, err := utils.CreateToken(testSecret, "user-7", "authenticated", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, post("Bearer "+user))

	service, err := utils.CreateToken(testSecret, "ingest", "service_role", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post("Bearer "+service))
}
