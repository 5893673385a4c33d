package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formlift/formlift/pkg/auth"
	"github.com/formlift/formlift/pkg/cache"
	"github.com/formlift/formlift/pkg/models"
)

const testSecret = "test-secret-key-for-middleware"

func okHandler(c echo.Context) error {
	id := AccountID(c)
	if id == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"anonymous": true})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"account_id": *id})
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(okHandler)(c))
	return rec
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	token, err := auth.GenerateJWT(42, "owner@example.com", models.PlanPro, false, testSecret, 1)
	require.NoError(t, err)

	rec := doRequest(t, JWTMiddleware(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account_id":42`)
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	rec := doRequest(t, JWTMiddleware(testSecret), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization header is required")
}

func TestJWTMiddlewareMalformedHeader(t *testing.T) {
	for _, header := range []string{"Bearer", "Basic abc123", "Bearer a b"} {
		rec := doRequest(t, JWTMiddleware(testSecret), header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestJWTMiddlewareWrongSecret(t *testing.T) {
	token, err := auth.GenerateJWT(42, "owner@example.com", models.PlanFree, false, "other-secret", 1)
	require.NoError(t, err)

	rec := doRequest(t, JWTMiddleware(testSecret), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}

func TestJWTMiddlewareBlacklistedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	blacklist := auth.NewTokenBlacklist(&cache.Client{
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	})

	token, err := auth.GenerateJWT(42, "owner@example.com", models.PlanFree, false, testSecret, 1)
	require.NoError(t, err)
	require.NoError(t, blacklist.Add(context.Background(), token, time.Hour))

	rec := doRequest(t, JWTMiddlewareWithBlacklist(testSecret, blacklist, nil), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareSetsClaims(t *testing.T) {
	token, err := auth.GenerateJWT(7, "admin@example.com", models.PlanBusiness, true, testSecret, 1)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
		assert.Equal(t, token, c.Get(ContextToken))
		assert.Equal(t, "admin@example.com", c.Get(ContextEmail))
		assert.Equal(t, models.PlanBusiness, c.Get(ContextPlan))
		assert.Equal(t, true, c.Get(ContextAdmin))
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalJWTAnonymous(t *testing.T) {
	rec := doRequest(t, OptionalJWT(testSecret, nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anonymous")
}

func TestOptionalJWTInvalidTokenTreatedAsAnonymous(t *testing.T) {
	rec := doRequest(t, OptionalJWT(testSecret, nil), "Bearer not-a-jwt")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anonymous")
}

func TestOptionalJWTResolvesAccount(t *testing.T) {
	token, err := auth.GenerateJWT(9, "owner@example.com", models.PlanFree, false, testSecret, 1)
	require.NoError(t, err)

	rec := doRequest(t, OptionalJWT(testSecret, nil), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account_id":9`)
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()

	run := func(admin interface{}) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/settings", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if admin != nil {
			c.Set(ContextAdmin, admin)
		}
		handler := RequireAdmin()(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		require.NoError(t, handler(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, run(true).Code)
	assert.Equal(t, http.StatusForbidden, run(false).Code)
	assert.Equal(t, http.StatusForbidden, run(nil).Code)
}
