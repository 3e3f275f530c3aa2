package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/users"
)

const testSecret = "access-secret-with-enough-length"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims tokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(tokenType string) tokenClaims {
	now := time.Now()
	return tokenClaims{
		Email: "ana@test.com",
		Role:  string(users.RoleProducer),
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}
}

func TestParseAccessToken(t *testing.T) {
	v := NewVerifier(testSecret)

	t.Run("valid access token", func(t *testing.T) {
		p, err := v.ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("access")))
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.UserID)
		assert.Equal(t, "ana@test.com", p.Email)
		assert.Equal(t, users.RoleProducer, p.Role)
	})

	t.Run("refresh token is rejected", func(t *testing.T) {
		_, err := v.ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("refresh")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ParseAccessToken(signToken(t, "another-secret-entirely", jwt.SigningMethodHS256, validClaims("access")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		_, err := v.ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("access")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims("access")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS256, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiration", func(t *testing.T) {
		claims := validClaims("access")
		claims.ExpiresAt = nil
		_, err := v.ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS256, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.ParseAccessToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("verifier without secret", func(t *testing.T) {
		_, err := NewVerifier("").ParseAccessToken(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("access")))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func newProtectedRouter(roles ...users.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperror.Handler(zap.NewNop(), false))
	r.GET("/me", Authenticate(NewVerifier(testSecret)), RequireRole(roles...), func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.UserID})
	})
	return r
}

func TestAuthenticateMiddleware(t *testing.T) {
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("access"))

	tests := []struct {
		name   string
		header string
		roles  []users.Role
		want   int
	}{
		{"no header", "", []users.Role{users.RoleProducer}, http.StatusUnauthorized},
		{"not bearer", "Basic abc", []users.Role{users.RoleProducer}, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", []users.Role{users.RoleProducer}, http.StatusUnauthorized},
		{"allowed role", "Bearer " + token, []users.Role{users.RoleProducer, users.RoleAdmin}, http.StatusOK},
		{"forbidden role", "Bearer " + token, []users.Role{users.RoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newProtectedRouter(tt.roles...).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperror.Handler(zap.NewNop(), false))
	r.GET("/admin", RequireRole(users.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}
