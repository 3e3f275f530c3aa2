package affiliates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("affiliate link not found")

// Repository define a interface para operações de banco de dados de afiliados
type Repository interface {
	// FindByRefCode busca um link pelo código de indicação
	FindByRefCode(ctx context.Context, refCode string) (*Link, error)

	// FindByID busca um link pelo ID
	FindByID(ctx context.Context, id string) (*Link, error)

	// InsertCommission grava a comissão; retorna false se o pedido já tinha comissão registrada
	InsertCommission(ctx context.Context, commission *Commission) (bool, error)
}

// AffiliateRepository implementa Repository usando PostgreSQL
type AffiliateRepository struct {
	db *pgxpool.Pool
}

// NewAffiliateRepository cria uma nova instância de AffiliateRepository
func NewAffiliateRepository(db *pgxpool.Pool) Repository {
	return &AffiliateRepository{
		db: db,
	}
}

const selectLink = `
	SELECT id, ref_code, affiliate_id, commission_pct, is_active
	FROM affiliate_links`

// FindByRefCode busca um link pelo código de indicação
func (r *AffiliateRepository) FindByRefCode(ctx context.Context, refCode string) (*Link, error) {
	return scanLink(r.db.QueryRow(ctx, selectLink+" WHERE ref_code = $1", refCode))
}

// FindByID busca um link pelo ID
func (r *AffiliateRepository) FindByID(ctx context.Context, id string) (*Link, error) {
	return scanLink(r.db.QueryRow(ctx, selectLink+" WHERE id = $1", id))
}

// InsertCommission grava a comissão; retorna false se o pedido já tinha comissão registrada
func (r *AffiliateRepository) InsertCommission(ctx context.Context, c *Commission) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO affiliate_commissions (id, order_id, affiliate_link_id, affiliate_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO NOTHING
	`, c.ID, c.OrderID, c.AffiliateLinkID, c.AffiliateID, c.Amount, c.Status, c.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	err := row.Scan(&l.ID, &l.RefCode, &l.AffiliateID, &l.CommissionPct, &l.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
