package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	secret := "test-secret"
	signed, expiresAt, err := GenerateToken("admin", secret, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "admin", claims[claimSubject])
	assert.Equal(t, "admin", claims[claimUsername])
	assert.Equal(t, "admin", claims[claimRole])
}

func TestGenerateTokenValidation(t *testing.T) {
	t.Parallel()

	_, _, err := GenerateToken("", "secret", time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("admin", "", time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("admin", "secret", 0)
	assert.Error(t, err)
}

func TestGenerateTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	signed, _, err := GenerateToken("admin", "right-secret", time.Hour)
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("wrong-secret"), nil
	})
	assert.Error(t, err)
}

func TestUsernameFromContext(t *testing.T) {
	t.Parallel()

	e := echo.New()
	newCtx := func() echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return e.NewContext(req, httptest.NewRecorder())
	}

	t.Run("no token falls back to default actor", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, DefaultActor, UsernameFromContext(newCtx()))
	})

	t.Run("username claim wins", func(t *testing.T) {
		t.Parallel()
		c := newCtx()
		c.Set("user", &jwt.Token{Valid: true, Claims: jwt.MapClaims{claimUsername: "boss"}})
		assert.Equal(t, "boss", UsernameFromContext(c))
	})

	t.Run("subject claim as fallback", func(t *testing.T) {
		t.Parallel()
		c := newCtx()
		c.Set("user", &jwt.Token{Valid: true, Claims: jwt.MapClaims{claimSubject: "sub-user"}})
		assert.Equal(t, "sub-user", UsernameFromContext(c))
	})

	t.Run("invalid token ignored", func(t *testing.T) {
		t.Parallel()
		c := newCtx()
		c.Set("user", &jwt.Token{Valid: false, Claims: jwt.MapClaims{claimUsername: "spoof"}})
		assert.Equal(t, DefaultActor, UsernameFromContext(c))
	})
}

func TestJWTMiddleware(t *testing.T) {
	t.Parallel()

	secret := "mw-secret"
	e := echo.New()
	e.Use(JWTMiddleware(secret, func(c echo.Context) bool {
		return c.Request().URL.Path == "/open"
	}))
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/open", handler)
	e.GET("/locked", handler)

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/open", ""))
	assert.GreaterOrEqual(t, do("/locked", ""), http.StatusBadRequest)
	assert.Equal(t, http.StatusUnauthorized, do("/locked", "not-a-token"))

	signed, _, err := GenerateToken("admin", secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do("/locked", signed))
}
