package orders

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/auth"
	"github.com/davori/marketplace/internal/payments"
)

// CustomerRequest identifica o comprador
type CustomerRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Document string `json:"document" binding:"required,len=11,numeric"`
}

// CardRequest carrega o token gerado no frontend pelo tokenizador do Pagar.me
type CardRequest struct {
	Token        string `json:"token" binding:"required"`
	Installments int    `json:"installments" binding:"omitempty,min=1,max=12"`
}

// CreateOrderRequest representa a requisição de checkout
type CreateOrderRequest struct {
	ProductID     string          `json:"product_id" binding:"required,uuid"`
	PaymentMethod payments.Method `json:"payment_method" binding:"required,oneof=CARD PIX BOLETO"`
	Customer      CustomerRequest `json:"customer"`
	Card          *CardRequest    `json:"card" binding:"required_if=PaymentMethod CARD"`
	AffiliateCode string          `json:"affiliate_code" binding:"omitempty,max=64"`
}

// ToInput converte a requisição validada no input de domínio com o rail tipado
func (r CreateOrderRequest) ToInput() (CreateOrderInput, error) {
	var method payments.PaymentMethod
	switch r.PaymentMethod {
	case payments.MethodCard:
		if r.Card == nil {
			return CreateOrderInput{}, cardRequired()
		}
		card, err := payments.NewCardPayment(r.Card.Token, r.Card.Installments)
		if err != nil {
			return CreateOrderInput{}, cardRequired()
		}
		method = card
	case payments.MethodPix:
		method = payments.Pix()
	case payments.MethodBoleto:
		method = payments.Boleto()
	default:
		return CreateOrderInput{}, apperror.Validation([]apperror.FieldError{{Field: "payment_method", Message: "deve ser um de: CARD PIX BOLETO"}})
	}

	return CreateOrderInput{
		ProductID: r.ProductID,
		Method:    method,
		Customer: payments.Customer{
			Name:     r.Customer.Name,
			Email:    r.Customer.Email,
			Document: r.Customer.Document,
		},
		AffiliateCode: r.AffiliateCode,
	}, nil
}

func cardRequired() error {
	return apperror.Validation([]apperror.FieldError{{Field: "card", Message: "Token do cartão é obrigatório para pagamento com cartão."}})
}

// OrderUseCaseInterface define a interface para o use case
type OrderUseCaseInterface interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatusView, error)
	RefundOrder(ctx context.Context, orderID, requesterID string) error
}

// OrderHandler contém os handlers HTTP
type OrderHandler struct {
	useCase OrderUseCaseInterface
	tracer  trace.Tracer
}

// NewOrderHandler cria uma nova instância de OrderHandler
func NewOrderHandler(useCase OrderUseCaseInterface, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// RegisterRoutes monta as rotas públicas e autenticadas. checkout são middlewares extras do POST /orders.
func (h *OrderHandler) RegisterRoutes(public, protected gin.IRoutes, checkout ...gin.HandlerFunc) {
	public.POST("/orders", append(checkout, h.CreateOrder)...)
	public.GET("/orders/:id/status", h.GetOrderStatus)
	protected.POST("/orders/:id/refund", h.RefundOrder)
}

// CreateOrder inicia o checkout
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_order")
	defer span.End()

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	in, err := req.ToInput()
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	span.SetAttributes(
		attribute.String("product_id", req.ProductID),
		attribute.String("payment_method", string(req.PaymentMethod)),
	)

	result, err := h.useCase.CreateOrder(ctx, in)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	span.SetAttributes(
		attribute.String("order_id", result.Order.ID),
		attribute.String("order_status", string(result.Order.Status)),
	)
	c.JSON(http.StatusCreated, result)
}

// GetOrderStatus é o endpoint de polling do cliente
func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_order_status")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order_id", orderID))
	if _, err := uuid.Parse(orderID); err != nil {
		_ = c.Error(apperror.NotFound("Pedido não encontrado."))
		return
	}

	view, err := h.useCase.GetOrderStatus(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": view})
}

// RefundOrder estorna um pedido pago
func (h *OrderHandler) RefundOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "refund_order")
	defer span.End()

	orderID := c.Param("id")
	span.SetAttributes(attribute.String("order_id", orderID))
	if _, err := uuid.Parse(orderID); err != nil {
		_ = c.Error(apperror.NotFound("Pedido não encontrado."))
		return
	}

	principal, ok := auth.CurrentPrincipal(c)
	if !ok {
		_ = c.Error(apperror.Unauthorized("Não autenticado."))
		return
	}

	if err := h.useCase.RefundOrder(ctx, orderID, principal.UserID); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
