package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Method representa o meio de pagamento (rail) escolhido pelo aluno
type Method string

const (
	MethodCard   Method = "CARD"
	MethodPix    Method = "PIX"
	MethodBoleto Method = "BOLETO"
)

const (
	// PixExpiresIn é o prazo para pagar o QR code PIX
	PixExpiresIn = time.Hour
	// BoletoDueIn é o prazo de vencimento do boleto
	BoletoDueIn = 72 * time.Hour
	// MaxInstallments é o número máximo de parcelas no cartão
	MaxInstallments = 12
)

var ErrCardTokenRequired = errors.New("card token is required for card payments")

// PaymentMethod é a união fechada dos rails aceitos pelo gateway.
// Cada variante carrega exatamente os campos que o rail exige.
type PaymentMethod interface {
	Method() Method
	request(amount int64, now time.Time) paymentRequest
}

type cardPayment struct {
	token        string
	installments int
}

type pixPayment struct{}

type boletoPayment struct{}

// NewCardPayment cria o bloco de pagamento com cartão a partir do token gerado no frontend
func NewCardPayment(token string, installments int) (PaymentMethod, error) {
	if token == "" {
		return nil, ErrCardTokenRequired
	}
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > MaxInstallments {
		return nil, fmt.Errorf("installments must be between 1 and %d, got %d", MaxInstallments, installments)
	}
	return cardPayment{token: token, installments: installments}, nil
}

// Pix cria o bloco de pagamento PIX
func Pix() PaymentMethod { return pixPayment{} }

// Boleto cria o bloco de pagamento por boleto
func Boleto() PaymentMethod { return boletoPayment{} }

func (cardPayment) Method() Method   { return MethodCard }
func (pixPayment) Method() Method    { return MethodPix }
func (boletoPayment) Method() Method { return MethodBoleto }

func (p cardPayment) request(amount int64, _ time.Time) paymentRequest {
	return paymentRequest{
		PaymentMethod: "credit_card",
		Amount:        amount,
		CreditCard: &creditCardRequest{
			Recurrence:   false,
			Installments: p.installments,
			CardToken:    p.token,
		},
	}
}

func (pixPayment) request(amount int64, _ time.Time) paymentRequest {
	return paymentRequest{
		PaymentMethod: "pix",
		Amount:        amount,
		Pix:           &pixRequest{ExpiresIn: int64(PixExpiresIn / time.Second)},
	}
}

func (boletoPayment) request(amount int64, now time.Time) paymentRequest {
	return paymentRequest{
		PaymentMethod: "boleto",
		Amount:        amount,
		Boleto:        &boletoRequest{DueAt: now.Add(BoletoDueIn).UTC().Format(time.RFC3339)},
	}
}

// Customer identifica o comprador perante o gateway
type Customer struct {
	Name     string
	Email    string
	Document string // CPF, somente dígitos
}

// Item é uma linha do pedido remoto
type Item struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Code        string `json:"code"`
}

// CreateOrderInput agrega os dados para criar o pedido remoto
type CreateOrderInput struct {
	AmountMinor int64
	Method      PaymentMethod
	Customer    Customer
	Items       []Item
}

// RemoteStatus é o status do pedido no gateway
type RemoteStatus string

const (
	RemoteStatusPending  RemoteStatus = "pending"
	RemoteStatusPaid     RemoteStatus = "paid"
	RemoteStatusCanceled RemoteStatus = "canceled"
	RemoteStatusFailed   RemoteStatus = "failed"
)

// RemoteOrder é a representação do pedido no Pagar.me
type RemoteOrder struct {
	ID      string       `json:"id"`
	Code    string       `json:"code"`
	Status  RemoteStatus `json:"status"`
	Charges []Charge     `json:"charges"`
}

// Charge é uma cobrança do pedido remoto
type Charge struct {
	ID              string       `json:"id"`
	Status          string       `json:"status"`
	PaymentMethod   string       `json:"payment_method"`
	LastTransaction *Transaction `json:"last_transaction,omitempty"`
}

// Transaction expõe os artefatos específicos de cada rail
type Transaction struct {
	QRCode    string `json:"qr_code,omitempty"`
	QRCodeURL string `json:"qr_code_url,omitempty"`
	PDF       string `json:"pdf,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
}

// FirstCharge retorna a primeira cobrança, ou nil se o pedido não tiver nenhuma
func (o *RemoteOrder) FirstCharge() *Charge {
	if o == nil || len(o.Charges) == 0 {
		return nil
	}
	return &o.Charges[0]
}

// ToMinorUnits converte um preço decimal em centavos, arredondando para o inteiro mais próximo
func ToMinorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

// formatos do payload

type createOrderRequest struct {
	Code     string           `json:"code"`
	Customer customerRequest  `json:"customer"`
	Items    []Item           `json:"items"`
	Payments []paymentRequest `json:"payments"`
}

type customerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Type         string `json:"type"`
	Document     string `json:"document"`
	DocumentType string `json:"document_type"`
}

type paymentRequest struct {
	PaymentMethod string             `json:"payment_method"`
	Amount        int64              `json:"amount"`
	CreditCard    *creditCardRequest `json:"credit_card,omitempty"`
	Pix           *pixRequest        `json:"pix,omitempty"`
	Boleto        *boletoRequest     `json:"boleto,omitempty"`
}

type creditCardRequest struct {
	Recurrence   bool   `json:"recurrence"`
	Installments int    `json:"installments"`
	CardToken    string `json:"card_token"`
}

type pixRequest struct {
	ExpiresIn int64 `json:"expires_in"`
}

type boletoRequest struct {
	DueAt string `json:"due_at"`
}

type refundRequest struct {
	Amount int64 `json:"amount"`
}

type apiError struct {
	Message string `json:"message"`
}
