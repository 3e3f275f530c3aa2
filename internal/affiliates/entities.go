package affiliates

import (
	"time"

	"github.com/shopspring/decimal"
)

// Link representa um link de afiliado com código de indicação
type Link struct {
	ID            string          `json:"id" db:"id"`
	RefCode       string          `json:"ref_code" db:"ref_code"`
	AffiliateID   string          `json:"affiliate_id" db:"affiliate_id"`
	CommissionPct decimal.Decimal `json:"commission_pct" db:"commission_pct"`
	Active        bool            `json:"active" db:"is_active"`
}

// CommissionStatus representa a situação de uma comissão
type CommissionStatus string

// CommissionStatusPending é o único status atribuído hoje: não existe fluxo de repasse.
const CommissionStatusPending CommissionStatus = "PENDING"

// Commission é o registro da comissão devida ao afiliado por um pedido pago
type Commission struct {
	ID              string           `json:"id" db:"id"`
	OrderID         string           `json:"order_id" db:"order_id"`
	AffiliateLinkID string           `json:"affiliate_link_id" db:"affiliate_link_id"`
	AffiliateID     string           `json:"affiliate_id" db:"affiliate_id"`
	Amount          decimal.Decimal  `json:"amount" db:"amount"`
	Status          CommissionStatus `json:"status" db:"status"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

var hundred = decimal.NewFromInt(100)

// ComputeCommission calcula amount × pct / 100 com duas casas decimais
func ComputeCommission(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}
