package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader é o header em que o Pagar.me envia a assinatura do webhook
const SignatureHeader = "X-Pagarme-Signature"

// VerifyWebhookSignature confere o HMAC-SHA256 do corpo cru contra a assinatura recebida.
// Sem segredo configurado retorna false.
func (c *Client) VerifyWebhookSignature(rawPayload []byte, signature string) bool {
	return VerifySignature(c.webhookSecret, rawPayload, signature)
}

// VerifySignature compara em tempo constante e rejeita assinaturas malformadas
func VerifySignature(secret, rawPayload []byte, signature string) bool {
	if len(secret) == 0 {
		return false
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	provided, err := hex.DecodeString(signature)
	if err != nil || len(provided) != sha256.Size {
		return false
	}

	return hmac.Equal(computeMAC(secret, rawPayload), provided)
}

// Sign retorna a assinatura hex esperada para o payload
func Sign(secret, rawPayload []byte) string {
	return hex.EncodeToString(computeMAC(secret, rawPayload))
}

func computeMAC(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
