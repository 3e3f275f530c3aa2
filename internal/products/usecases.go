package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
)

// CreateProductInput são os dados para cadastrar um produto
type CreateProductInput struct {
	Title       string          `json:"title" binding:"required,min=3,max=200"`
	Description *string         `json:"description" binding:"omitempty,max=2000"`
	Price       decimal.Decimal `json:"price"`
	Type        Type            `json:"type" binding:"required,oneof=COURSE EBOOK MENTORING WORKSHOP"`
}

// UpdateProductInput carrega apenas os campos enviados
type UpdateProductInput struct {
	Title       *string          `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	CoverURL    *string          `json:"cover_url" binding:"omitempty,url"`
	Status      *Status          `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// ProductUseCase contém a lógica de negócio do catálogo
type ProductUseCase struct {
	repository Repository
	logger     *zap.Logger
	now        func() time.Time
	suffix     func() string
}

// NewProductUseCase cria uma nova instância de ProductUseCase
func NewProductUseCase(repository Repository, logger *zap.Logger) *ProductUseCase {
	return &ProductUseCase{
		repository: repository,
		logger:     logger,
		now:        time.Now,
		suffix:     randomSuffix,
	}
}

// Create cadastra um produto em rascunho com slug único
func (uc *ProductUseCase) Create(ctx context.Context, producerID string, in CreateProductInput) (*Product, error) {
	if !in.Price.IsPositive() {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "price", Message: "Preço deve ser positivo"}})
	}

	title := strings.TrimSpace(in.Title)
	slug, err := uniqueSlug(ctx, uc.repository, title, uc.suffix)
	if err != nil {
		return nil, err
	}

	product := NewProduct(uuid.New().String(), producerID, title, slug, in.Price, in.Type)
	product.Description = in.Description

	// outro cadastro pode ter gravado o mesmo slug entre a checagem e o INSERT
	for attempt := 1; ; attempt++ {
		err = uc.repository.Create(ctx, product)
		if !errors.Is(err, ErrSlugTaken) {
			break
		}
		if attempt == slugAttempts {
			return nil, apperror.Conflict("Já existe um produto com este endereço. Tente novamente.")
		}
		product.Slug = baseSlug(title) + "-" + uc.suffix()
	}
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}

	uc.logger.Info("Produto criado",
		zap.String("product_id", product.ID),
		zap.String("slug", product.Slug),
		zap.String("producer_id", producerID),
	)
	return product, nil
}

// ListByProducer lista os produtos do produtor com contadores de matrículas e pedidos
func (uc *ProductUseCase) ListByProducer(ctx context.Context, producerID string) ([]ProducerProduct, error) {
	products, err := uc.repository.ListByProducer(ctx, producerID)
	if err != nil {
		return nil, fmt.Errorf("listing producer products: %w", err)
	}
	if products == nil {
		products = []ProducerProduct{}
	}
	return products, nil
}

// GetBySlug devolve a página pública; produtos não publicados não existem para o público
func (uc *ProductUseCase) GetBySlug(ctx context.Context, slug string) (*PublicProduct, error) {
	product, err := uc.repository.FindBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("Produto não encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("finding product by slug: %w", err)
	}
	if !product.IsPurchasable() {
		return nil, apperror.NotFound("Produto não encontrado.")
	}
	if product.FreeLessons == nil {
		product.FreeLessons = []Lesson{}
	}
	return product, nil
}

// GetByID busca um produto pelo ID, qualquer que seja o status
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*Product, error) {
	product, err := uc.repository.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("Produto não encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("finding product: %w", err)
	}
	return product, nil
}

// Update altera um produto do próprio produtor
func (uc *ProductUseCase) Update(ctx context.Context, id, producerID string, in UpdateProductInput) (*Product, error) {
	product, err := uc.ownedProduct(ctx, id, producerID)
	if err != nil {
		return nil, err
	}

	if in.Price != nil && !in.Price.IsPositive() {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "price", Message: "Preço deve ser positivo"}})
	}

	if in.Title != nil {
		product.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		product.Description = in.Description
	}
	if in.Price != nil {
		product.Price = *in.Price
	}
	if in.CoverURL != nil {
		product.CoverURL = in.CoverURL
	}
	if in.Status != nil {
		product.Status = *in.Status
	}
	product.UpdatedAt = uc.now()

	if err := uc.repository.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}
	return product, nil
}

// Archive faz a exclusão lógica do produto; pedidos e matrículas continuam apontando para ele
func (uc *ProductUseCase) Archive(ctx context.Context, id, producerID string) error {
	product, err := uc.ownedProduct(ctx, id, producerID)
	if err != nil {
		return err
	}

	product.Status = StatusArchived
	product.UpdatedAt = uc.now()
	if err := uc.repository.Update(ctx, product); err != nil {
		return fmt.Errorf("archiving product: %w", err)
	}

	uc.logger.Info("Produto arquivado", zap.String("product_id", id))
	return nil
}

func (uc *ProductUseCase) ownedProduct(ctx context.Context, id, producerID string) (*Product, error) {
	product, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.ProducerID != producerID {
		return nil, apperror.Forbidden("Você não é o dono deste produto.")
	}
	return product, nil
}
