package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("order not found")

// Repository define a interface para operações de banco de dados de pedidos
type Repository interface {
	// Create cria um novo pedido no banco de dados
	Create(ctx context.Context, order *Order) error

	// FindByID busca um pedido pelo ID local
	FindByID(ctx context.Context, orderID string) (*Order, error)

	// FindByGatewayOrderID busca um pedido pelo ID do pedido remoto
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)

	// TransitionStatus muda o status somente se o atual for from.
	// Retorna false quando outra chamada já fez a transição.
	TransitionStatus(ctx context.Context, orderID string, from, to Status) (bool, error)
}

// OrderRepository implementa Repository usando PostgreSQL
type OrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository cria uma nova instância de OrderRepository
func NewOrderRepository(db *pgxpool.Pool) Repository {
	return &OrderRepository{
		db: db,
	}
}

const selectOrder = `
	SELECT id, student_id, product_id, amount, payment_method, status, gateway_order_id, affiliate_link_id, created_at, updated_at
	FROM orders`

// Create cria um novo pedido no banco de dados
func (r *OrderRepository) Create(ctx context.Context, o *Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, student_id, product_id, amount, payment_method, status, gateway_order_id, affiliate_link_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.StudentID, o.ProductID, o.Amount, o.PaymentMethod, o.Status, o.GatewayOrderID, o.AffiliateLinkID, o.CreatedAt, o.UpdatedAt)
	return err
}

// FindByID busca um pedido pelo ID local
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, selectOrder+" WHERE id = $1", orderID))
}

// FindByGatewayOrderID busca um pedido pelo ID do pedido remoto
func (r *OrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	return scanOrder(r.db.QueryRow(ctx, selectOrder+" WHERE gateway_order_id = $1", gatewayOrderID))
}

// TransitionStatus muda o status somente se o atual for from
func (r *OrderRepository) TransitionStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.StudentID, &o.ProductID, &o.Amount, &o.PaymentMethod, &o.Status,
		&o.GatewayOrderID, &o.AffiliateLinkID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
