package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davori/marketplace/internal/payments"
)

// Status representa os possíveis status de um pedido
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusRefunded  Status = "REFUNDED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Order representa um pedido no sistema
type Order struct {
	ID              string          `json:"id" db:"id"`
	StudentID       string          `json:"student_id" db:"student_id"`
	ProductID       string          `json:"product_id" db:"product_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod   payments.Method `json:"payment_method" db:"payment_method"`
	Status          Status          `json:"status" db:"status"`
	GatewayOrderID  *string         `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	AffiliateLinkID *string         `json:"affiliate_link_id,omitempty" db:"affiliate_link_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// NewOrder cria uma nova instância de Order pendente. amount é o preço do produto no momento da compra.
func NewOrder(id, studentID, productID string, amount decimal.Decimal, method payments.Method, now time.Time) *Order {
	return &Order{
		ID:            id,
		StudentID:     studentID,
		ProductID:     productID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ErrInvalidTransition indica uma mudança de status fora do conjunto permitido
var ErrInvalidTransition = errors.New("invalid order status transition")

// allowedTransitions é o conjunto fechado de transições feitas por este serviço
var allowedTransitions = map[Status]Status{
	StatusPending: StatusPaid,
	StatusPaid:    StatusRefunded,
}

// CanTransition indica se from → to é uma transição permitida
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next == to
}

// CreateOrderInput são os dados de domínio para abrir um pedido
type CreateOrderInput struct {
	ProductID     string
	Method        payments.PaymentMethod
	Customer      payments.Customer
	AffiliateCode string
}

// OrderSummary é o pedido devolvido ao cliente no checkout
type OrderSummary struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	PaymentMethod payments.Method `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
}

// PaymentData carrega os artefatos do rail; campos de outros rails ficam nulos
type PaymentData struct {
	PixQrCode     *string `json:"pix_qr_code"`
	PixQrCodeURL  *string `json:"pix_qr_code_url"`
	BoletoPDF     *string `json:"boleto_pdf"`
	BoletoBarcode *string `json:"boleto_barcode"`
}

// CreateOrderResult é a resposta do checkout
type CreateOrderResult struct {
	Order       OrderSummary `json:"order"`
	PaymentData PaymentData  `json:"payment_data"`
}

// OrderStatusView é a projeção barata usada no polling do cliente
type OrderStatusView struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	PaymentMethod payments.Method `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	ProductID     string          `json:"product_id"`
}

func paymentDataFrom(remote *payments.RemoteOrder) PaymentData {
	charge := remote.FirstCharge()
	if charge == nil || charge.LastTransaction == nil {
		return PaymentData{}
	}
	tx := charge.LastTransaction
	return PaymentData{
		PixQrCode:     optional(tx.QRCode),
		PixQrCodeURL:  optional(tx.QRCodeURL),
		BoletoPDF:     optional(tx.PDF),
		BoletoBarcode: optional(tx.Barcode),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
