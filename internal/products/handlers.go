package products

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/auth"
)

// ProductUseCaseInterface define a interface para o use case
type ProductUseCaseInterface interface {
	Create(ctx context.Context, producerID string, in CreateProductInput) (*Product, error)
	ListByProducer(ctx context.Context, producerID string) ([]ProducerProduct, error)
	GetBySlug(ctx context.Context, slug string) (*PublicProduct, error)
	Update(ctx context.Context, id, producerID string, in UpdateProductInput) (*Product, error)
	Archive(ctx context.Context, id, producerID string) error
}

// ProductHandler contém os handlers HTTP do catálogo
type ProductHandler struct {
	useCase ProductUseCaseInterface
	tracer  trace.Tracer
}

// NewProductHandler cria uma nova instância de ProductHandler
func NewProductHandler(useCase ProductUseCaseInterface, tracer trace.Tracer) *ProductHandler {
	return &ProductHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// RegisterRoutes monta as rotas públicas e as rotas do produtor. protected já deve exigir papel de produtor.
func (h *ProductHandler) RegisterRoutes(public, protected gin.IRoutes) {
	public.GET("/products/slug/:slug", h.GetBySlug)

	protected.GET("/products", h.List)
	protected.POST("/products", h.Create)
	protected.PATCH("/products/:id", h.Update)
	protected.DELETE("/products/:id", h.Archive)
}

// Create cadastra um produto do produtor autenticado
func (h *ProductHandler) Create(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "create_product")
	defer span.End()

	var req CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	principal, _ := auth.CurrentPrincipal(c)
	product, err := h.useCase.Create(ctx, principal.UserID, req)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	span.SetAttributes(attribute.String("product_id", product.ID))
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// List lista os produtos do produtor autenticado
func (h *ProductHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_products")
	defer span.End()

	principal, _ := auth.CurrentPrincipal(c)
	products, err := h.useCase.ListByProducer(ctx, principal.UserID)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetBySlug devolve a página pública de vendas
func (h *ProductHandler) GetBySlug(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_product_by_slug")
	defer span.End()

	slug := c.Param("slug")
	span.SetAttributes(attribute.String("slug", slug))

	product, err := h.useCase.GetBySlug(ctx, slug)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Update altera campos de um produto do produtor
func (h *ProductHandler) Update(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_product")
	defer span.End()

	var req UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	id := c.Param("id")
	span.SetAttributes(attribute.String("product_id", id))
	if _, err := uuid.Parse(id); err != nil {
		_ = c.Error(apperror.NotFound("Produto não encontrado."))
		return
	}

	principal, _ := auth.CurrentPrincipal(c)
	product, err := h.useCase.Update(ctx, id, principal.UserID, req)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// Archive arquiva um produto do produtor
func (h *ProductHandler) Archive(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "archive_product")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product_id", id))
	if _, err := uuid.Parse(id); err != nil {
		_ = c.Error(apperror.NotFound("Produto não encontrado."))
		return
	}

	principal, _ := auth.CurrentPrincipal(c)
	if err := h.useCase.Archive(ctx, id, principal.UserID); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
