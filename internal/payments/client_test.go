package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &captured.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestClient(baseURL string) *Client {
	c := NewClient(Config{BaseURL: baseURL, SecretKey: "sk_test_123", WebhookSecret: "whsec"}, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func sampleInput(method PaymentMethod) CreateOrderInput {
	return CreateOrderInput{
		AmountMinor: 19700,
		Method:      method,
		Customer:    Customer{Name: "Ana Paula", Email: "ana@test.com", Document: "12345678901"},
		Items:       []Item{{Amount: 19700, Description: "Curso X", Quantity: 1, Code: "prod-123"}},
	}
}

func firstPayment(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	list, ok := body["payments"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	return list[0].(map[string]any)
}

func TestCreateOrder_Pix(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{
		"id": "or_123", "status": "pending",
		"charges": [{"id": "ch_1", "status": "pending", "last_transaction": {"qr_code": "qr-abc", "qr_code_url": "http://pix"}}]
	}`)

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), sampleInput(Pix()))
	require.NoError(t, err)

	assert.Equal(t, "or_123", order.ID)
	assert.Equal(t, RemoteStatusPending, order.Status)
	require.NotNil(t, order.FirstCharge())
	assert.Equal(t, "qr-abc", order.FirstCharge().LastTransaction.QRCode)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/orders", captured.Path)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("sk_test_123:")), captured.Auth)
	assert.Equal(t, "DAVORI-1773144000000", captured.Body["code"])

	customer := captured.Body["customer"].(map[string]any)
	assert.Equal(t, "individual", customer["type"])
	assert.Equal(t, "CPF", customer["document_type"])

	payment := firstPayment(t, captured.Body)
	assert.Equal(t, "pix", payment["payment_method"])
	assert.EqualValues(t, 19700, payment["amount"])
	assert.EqualValues(t, 3600, payment["pix"].(map[string]any)["expires_in"])
	assert.NotContains(t, payment, "credit_card")
	assert.NotContains(t, payment, "boleto")
}

func TestCreateOrder_Boleto(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id": "or_b", "status": "pending", "charges": []}`)

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), sampleInput(Boleto()))
	require.NoError(t, err)

	payment := firstPayment(t, captured.Body)
	assert.Equal(t, "boleto", payment["payment_method"])
	assert.Equal(t, "2026-03-13T12:00:00Z", payment["boleto"].(map[string]any)["due_at"])
}

func TestCreateOrder_Card(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id": "or_c", "status": "paid", "charges": [{"id": "ch_c", "status": "paid"}]}`)

	card, err := NewCardPayment("tok_abc", 3)
	require.NoError(t, err)

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), sampleInput(card))
	require.NoError(t, err)
	assert.Equal(t, RemoteStatusPaid, order.Status)

	payment := firstPayment(t, captured.Body)
	assert.Equal(t, "credit_card", payment["payment_method"])
	cc := payment["credit_card"].(map[string]any)
	assert.Equal(t, "tok_abc", cc["card_token"])
	assert.EqualValues(t, 3, cc["installments"])
	assert.Equal(t, false, cc["recurrence"])
}

func TestCreateOrder_UpstreamErrorBecomesGatewayError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnprocessableEntity, `{"message": "The request is invalid."}`)

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), sampleInput(Pix()))
	require.Error(t, err)

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.StatusCode)
	assert.Equal(t, "The request is invalid.", gwErr.Message)
	assert.Equal(t, "PAYMENT_GATEWAY_ERROR", gwErr.ErrorCode())
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.HTTPStatus())
}

func TestCreateOrder_TimeoutBecomesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, zap.NewNop())
	_, err := c.CreateOrder(context.Background(), sampleInput(Pix()))

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusGatewayTimeout, gwErr.StatusCode)
}

func TestCreateOrder_RequiresMethod(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.CreateOrder(context.Background(), CreateOrderInput{AmountMinor: 100})
	assert.Error(t, err)
}

func TestGetOrder(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id": "or_9", "status": "paid", "charges": [{"id": "ch_9"}]}`)

	order, err := newTestClient(srv.URL).GetOrder(context.Background(), "or_9")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "/orders/or_9", captured.Path)
	assert.Equal(t, "ch_9", order.FirstCharge().ID)
}

func TestRefundCharge(t *testing.T) {
	t.Run("full refund sends no body", func(t *testing.T) {
		srv, captured := newTestServer(t, http.StatusOK, `{}`)
		require.NoError(t, newTestClient(srv.URL).RefundCharge(context.Background(), "ch_1", nil))
		assert.Equal(t, "/charges/ch_1/cancel", captured.Path)
		assert.Nil(t, captured.Body)
	})

	t.Run("partial refund sends amount", func(t *testing.T) {
		srv, captured := newTestServer(t, http.StatusOK, `{}`)
		amount := int64(500)
		require.NoError(t, newTestClient(srv.URL).RefundCharge(context.Background(), "ch_1", &amount))
		assert.EqualValues(t, 500, captured.Body["amount"])
	})

	t.Run("non refundable charge", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusBadRequest, `{"message": "Charge can not be canceled."}`)
		err := newTestClient(srv.URL).RefundCharge(context.Background(), "ch_1", nil)
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	})
}
