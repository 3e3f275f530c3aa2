package affiliates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AffiliateUseCase resolve atribuição de afiliados e registra comissões
type AffiliateUseCase struct {
	repository Repository
	logger     *zap.Logger
	now        func() time.Time
}

// NewAffiliateUseCase cria uma nova instância de AffiliateUseCase
func NewAffiliateUseCase(repository Repository, logger *zap.Logger) *AffiliateUseCase {
	return &AffiliateUseCase{
		repository: repository,
		logger:     logger,
		now:        time.Now,
	}
}

// ResolveActiveLink devolve o link ativo do código informado.
// Código vazio, inexistente ou inativo resulta em nil sem erro: a atribuição é best-effort.
func (uc *AffiliateUseCase) ResolveActiveLink(ctx context.Context, refCode string) (*Link, error) {
	refCode = strings.TrimSpace(refCode)
	if refCode == "" {
		return nil, nil
	}

	link, err := uc.repository.FindByRefCode(ctx, refCode)
	if errors.Is(err, ErrNotFound) {
		uc.logger.Info("Código de afiliado ignorado", zap.String("ref_code", refCode))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving affiliate code: %w", err)
	}
	if !link.Active {
		uc.logger.Info("Link de afiliado inativo ignorado", zap.String("link_id", link.ID))
		return nil, nil
	}
	return link, nil
}

// RecordCommission persiste a comissão do pedido pago com status PENDING.
// Chamadas repetidas para o mesmo pedido não duplicam o registro.
func (uc *AffiliateUseCase) RecordCommission(ctx context.Context, orderID, linkID string, orderAmount decimal.Decimal) error {
	link, err := uc.repository.FindByID(ctx, linkID)
	if errors.Is(err, ErrNotFound) {
		uc.logger.Warn("Link de afiliado do pedido não existe mais",
			zap.String("order_id", orderID),
			zap.String("link_id", linkID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading affiliate link: %w", err)
	}

	commission := &Commission{
		ID:              uuid.New().String(),
		OrderID:         orderID,
		AffiliateLinkID: link.ID,
		AffiliateID:     link.AffiliateID,
		Amount:          ComputeCommission(orderAmount, link.CommissionPct),
		Status:          CommissionStatusPending,
		CreatedAt:       uc.now(),
	}

	created, err := uc.repository.InsertCommission(ctx, commission)
	if err != nil {
		return fmt.Errorf("recording commission: %w", err)
	}
	if !created {
		return nil
	}

	uc.logger.Info("Comissão de afiliado registrada",
		zap.String("order_id", orderID),
		zap.String("affiliate_id", link.AffiliateID),
		zap.String("amount", commission.Amount.StringFixed(2)),
	)
	return nil
}
