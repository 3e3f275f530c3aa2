package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type upstreamError struct{ status int }

func (e upstreamError) Error() string         { return fmt.Sprintf("upstream %d", e.status) }
func (e upstreamError) HTTPStatus() int       { return e.status }
func (e upstreamError) ErrorCode() string     { return "PAYMENT_GATEWAY_ERROR" }
func (e upstreamError) PublicMessage() string { return "card declined" }

type signupRequest struct {
	Email string `json:"email" binding:"required,email"`
	Doc   string `json:"document" binding:"required,len=11,numeric"`
}

func newRouter(exposeDetail bool, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	UseJSONFieldNames()
	r := gin.New()
	r.Use(Handler(zap.NewNop(), exposeDetail))
	r.POST("/", h)
	return r
}

func do(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestHandler_MapsKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{"not found", NotFound("Pedido não encontrado."), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", Conflict("dup"), http.StatusConflict, "CONFLICT"},
		{"forbidden", Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{"invalid state", InvalidState("not paid"), http.StatusBadRequest, "INVALID_STATE"},
		{"wrapped", fmt.Errorf("refund: %w", Forbidden("no")), http.StatusForbidden, "FORBIDDEN"},
		{"gateway passthrough", upstreamError{status: http.StatusPaymentRequired}, http.StatusPaymentRequired, "PAYMENT_GATEWAY_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(false, func(c *gin.Context) { _ = c.Error(tt.err) })
			w, body := do(t, r, `{}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestHandler_HidesDetailInProduction(t *testing.T) {
	h := func(c *gin.Context) { _ = c.Error(errors.New("pgx: connection refused")) }

	_, prod := do(t, newRouter(false, h), `{}`)
	assert.NotContains(t, prod, "detail")

	_, dev := do(t, newRouter(true, h), `{}`)
	assert.Equal(t, "pgx: connection refused", dev["detail"])
}

func TestHandler_ValidationErrors(t *testing.T) {
	r := newRouter(false, func(c *gin.Context) {
		var req signupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w, body := do(t, r, `{"email":"not-an-email","document":"123"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	fields, ok := body["errors"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"email", "document"}, names)
}

func TestHandler_MalformedJSON(t *testing.T) {
	r := newRouter(false, func(c *gin.Context) {
		var req signupRequest
		_ = c.Error(c.ShouldBindJSON(&req))
	})

	w, body := do(t, r, `{"email":`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Conflict("x"))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.False(t, Is(errors.New("plain"), KindConflict))
}
