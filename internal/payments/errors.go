package payments

import (
	"fmt"
	"net/http"
)

// GatewayError carrega o status e a mensagem devolvidos pelo provedor
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// HTTPStatus repassa o status do provedor; falhas de transporte viram 502
func (e *GatewayError) HTTPStatus() int {
	if e.StatusCode < http.StatusBadRequest {
		return http.StatusBadGateway
	}
	return e.StatusCode
}

func (e *GatewayError) ErrorCode() string { return "PAYMENT_GATEWAY_ERROR" }

func (e *GatewayError) PublicMessage() string {
	if e.Message == "" {
		return "Erro no gateway de pagamento."
	}
	return e.Message
}
