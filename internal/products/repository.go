package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("product not found")
	ErrSlugTaken = errors.New("product slug already taken")
)

// Repository define a interface para operações de banco de dados de produtos
type Repository interface {
	// SlugExists verifica se um slug já está em uso
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Create insere um novo produto
	Create(ctx context.Context, product *Product) error

	// FindByID busca um produto pelo ID
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindBySlug busca a página pública de um produto pelo slug, sem filtrar status
	FindBySlug(ctx context.Context, slug string) (*PublicProduct, error)

	// ListByProducer lista os produtos do produtor, mais recentes primeiro
	ListByProducer(ctx context.Context, producerID string) ([]ProducerProduct, error)

	// Update grava os campos editáveis do produto
	Update(ctx context.Context, product *Product) error
}

// ProductRepository implementa Repository usando PostgreSQL
type ProductRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository cria uma nova instância de ProductRepository
func NewProductRepository(db *pgxpool.Pool) Repository {
	return &ProductRepository{
		db: db,
	}
}

const productColumns = `p.id, p.producer_id, p.title, p.slug, p.description, p.price, p.cover_url, p.type, p.status, p.created_at, p.updated_at`

func productDest(p *Product) []any {
	return []any{&p.ID, &p.ProducerID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.CoverURL, &p.Type, &p.Status, &p.CreatedAt, &p.UpdatedAt}
}

// SlugExists verifica se um slug já está em uso
func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// Create insere um novo produto
func (r *ProductRepository) Create(ctx context.Context, p *Product) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO products (id, producer_id, title, slug, description, price, cover_url, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.ProducerID, p.Title, p.Slug, p.Description, p.Price, p.CoverURL, p.Type, p.Status, p.CreatedAt, p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

// FindByID busca um produto pelo ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, "SELECT "+productColumns+" FROM products p WHERE p.id = $1", id).Scan(productDest(&p)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindBySlug busca a página pública de um produto pelo slug, sem filtrar status
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*PublicProduct, error) {
	var out PublicProduct
	dest := append(productDest(&out.Product), &out.Producer.ID, &out.Producer.Name, &out.Producer.AvatarURL, &out.EnrollmentCount)

	err := r.db.QueryRow(ctx, `
		SELECT `+productColumns+`, u.id, u.name, u.avatar_url,
			(SELECT COUNT(*) FROM enrollments e WHERE e.product_id = p.id)
		FROM products p
		JOIN users u ON u.id = p.producer_id
		WHERE p.slug = $1
	`, slug).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, title, order_index, is_free
		FROM lessons
		WHERE product_id = $1 AND is_free
		ORDER BY order_index ASC
		LIMIT $2
	`, out.ID, MaxFreeLessons)
	if err != nil {
		return nil, fmt.Errorf("listing free lessons: %w", err)
	}

	out.FreeLessons, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Lesson, error) {
		var l Lesson
		err := row.Scan(&l.ID, &l.ProductID, &l.Title, &l.OrderIndex, &l.IsFree)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning free lessons: %w", err)
	}
	return &out, nil
}

// ListByProducer lista os produtos do produtor, mais recentes primeiro
func (r *ProductRepository) ListByProducer(ctx context.Context, producerID string) ([]ProducerProduct, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`,
			(SELECT COUNT(*) FROM enrollments e WHERE e.product_id = p.id),
			(SELECT COUNT(*) FROM orders o WHERE o.product_id = p.id)
		FROM products p
		WHERE p.producer_id = $1
		ORDER BY p.created_at DESC
	`, producerID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProducerProduct, error) {
		var pp ProducerProduct
		err := row.Scan(append(productDest(&pp.Product), &pp.EnrollmentCount, &pp.OrderCount)...)
		return pp, err
	})
}

// Update grava os campos editáveis do produto
func (r *ProductRepository) Update(ctx context.Context, p *Product) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET title = $1, description = $2, price = $3, cover_url = $4, status = $5, updated_at = $6
		WHERE id = $7
	`, p.Title, p.Description, p.Price, p.CoverURL, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
