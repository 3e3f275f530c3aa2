package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/payments"
	"github.com/davori/marketplace/internal/telemetry"
)

// Tipos de evento do Pagar.me tratados aqui
const (
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderCanceled      = "order.canceled"
)

const warningMessage = "Erro interno registrado."

// Event é o envelope enviado pelo Pagar.me
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// PaymentConfirmer confirma pagamentos de pedidos
type PaymentConfirmer interface {
	HandlePaymentSuccess(ctx context.Context, orderID, remoteOrderID string) error
}

// SignatureVerifier confere a assinatura do corpo cru
type SignatureVerifier interface {
	VerifyWebhookSignature(rawPayload []byte, signature string) bool
}

// WebhookHandler recebe as notificações do gateway
type WebhookHandler struct {
	orders     PaymentConfirmer
	verifier   SignatureVerifier
	reporter   telemetry.Reporter
	logger     *zap.Logger
	tracer     trace.Tracer
	production bool

	eventsCounter metric.Int64Counter
}

// NewWebhookHandler cria uma nova instância de WebhookHandler.
// Fora de produção a assinatura não é conferida.
func NewWebhookHandler(orders PaymentConfirmer, verifier SignatureVerifier, reporter telemetry.Reporter,
	logger *zap.Logger, tracer trace.Tracer, production bool,
) *WebhookHandler {
	events, _ := otel.Meter("webhooks").Int64Counter("webhook_events_total",
		metric.WithDescription("Eventos recebidos por tipo"))

	return &WebhookHandler{
		orders:        orders,
		verifier:      verifier,
		reporter:      reporter,
		logger:        logger,
		tracer:        tracer,
		production:    production,
		eventsCounter: events,
	}
}

// RegisterRoutes monta a rota do webhook. Ela não passa pelo rate limiter.
func (h *WebhookHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/webhooks/payment", h.HandlePayment)
}

// HandlePayment responde 200 para tudo que passa pela assinatura, para o gateway não reenviar
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handle_payment_webhook")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			h.fail(c, ctx, "webhooks.panic", err)
		}
	}()

	raw, err := c.GetRawData()
	if err != nil {
		h.fail(c, ctx, "webhooks.read_body", err)
		return
	}

	if h.production && !h.verifier.VerifyWebhookSignature(raw, c.GetHeader(payments.SignatureHeader)) {
		h.logger.Warn("Assinatura de webhook inválida", zap.String("client_ip", c.ClientIP()))
		_ = c.Error(apperror.Unauthorized("Assinatura inválida."))
		return
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		h.fail(c, ctx, "webhooks.decode", err)
		return
	}

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("event_type", event.Type),
		attribute.String("gateway_order_id", event.Data.ID),
	)
	h.eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("type", event.Type)))

	if err := h.dispatch(ctx, event); err != nil {
		h.fail(c, ctx, "webhooks."+event.Type, err, zap.String("event_id", event.ID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) dispatch(ctx context.Context, event Event) error {
	switch event.Type {
	case EventOrderPaid:
		if event.Data.ID == "" {
			return errors.New("order.paid without data.id")
		}
		return h.orders.HandlePaymentSuccess(ctx, "", event.Data.ID)
	case EventOrderPaymentFailed:
		h.logger.Info("Pagamento recusado", zap.String("gateway_order_id", event.Data.ID))
	case EventOrderCanceled:
		h.logger.Info("Pedido cancelado no gateway", zap.String("gateway_order_id", event.Data.ID))
	default:
		h.logger.Debug("Evento de webhook ignorado", zap.String("type", event.Type))
	}
	return nil
}

func (h *WebhookHandler) fail(c *gin.Context, ctx context.Context, component string, err error, fields ...zap.Field) {
	h.reporter.Report(ctx, component, err, fields...)
	c.JSON(http.StatusOK, gin.H{"received": true, "warning": warningMessage})
}
