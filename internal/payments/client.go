package payments

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.pagar.me/core/v5"

// Config reúne os parâmetros do adapter do Pagar.me
type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// Client é o adapter HTTP para o Pagar.me v5. Não guarda estado mutável.
type Client struct {
	http          *resty.Client
	webhookSecret []byte
	tracer        trace.Tracer
	logger        *zap.Logger
	now           func() time.Time
}

// NewClient cria uma nova instância de Client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.SecretKey, "").
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	return &Client{
		http:          httpClient,
		webhookSecret: []byte(cfg.WebhookSecret),
		tracer:        otel.Tracer("pagarme-client"),
		logger:        logger,
		now:           time.Now,
	}
}

// CreateOrder cria o pedido remoto com o bloco de pagamento do rail escolhido
func (c *Client) CreateOrder(ctx context.Context, in CreateOrderInput) (*RemoteOrder, error) {
	if in.Method == nil {
		return nil, errors.New("payment method is required")
	}

	now := c.now()
	payload := createOrderRequest{
		Code: fmt.Sprintf("DAVORI-%d", now.UnixMilli()),
		Customer: customerRequest{
			Name:         in.Customer.Name,
			Email:        in.Customer.Email,
			Type:         "individual",
			Document:     in.Customer.Document,
			DocumentType: "CPF",
		},
		Items:    in.Items,
		Payments: []paymentRequest{in.Method.request(in.AmountMinor, now)},
	}

	var out RemoteOrder
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder busca o pedido remoto pelo ID do gateway
func (c *Client) GetOrder(ctx context.Context, remoteID string) (*RemoteOrder, error) {
	var out RemoteOrder
	if err := c.do(ctx, "get_order", http.MethodGet, "/orders/"+remoteID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundCharge cancela (estorna) uma cobrança. amount nil estorna o valor total.
func (c *Client) RefundCharge(ctx context.Context, chargeID string, amount *int64) error {
	var body any
	if amount != nil {
		body = refundRequest{Amount: *amount}
	}
	return c.do(ctx, "refund_charge", http.MethodPost, "/charges/"+chargeID+"/cancel", body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, result any) error {
	ctx, span := c.tracer.Start(ctx, "pagarme."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("pagarme.path", path),
	)

	var apiErr apiError
	req := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		gwErr := transportError(err)
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.Error("Falha de comunicação com o Pagar.me", zap.String("op", op), zap.Error(err))
		return gwErr
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if resp.IsError() {
		message := apiErr.Message
		if message == "" {
			message = "Erro no gateway de pagamento."
		}
		gwErr := &GatewayError{StatusCode: resp.StatusCode(), Message: message}
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, message)
		c.logger.Error("Pagar.me retornou erro",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return gwErr
	}

	return nil
}

func transportError(err error) *GatewayError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GatewayError{StatusCode: http.StatusGatewayTimeout, Message: "Tempo esgotado ao contatar o gateway de pagamento.", Err: err}
	}
	return &GatewayError{StatusCode: http.StatusBadGateway, Message: "Gateway de pagamento indisponível.", Err: err}
}
