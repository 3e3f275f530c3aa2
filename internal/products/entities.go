package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type representa o formato do produto vendido
type Type string

const (
	TypeCourse    Type = "COURSE"
	TypeEbook     Type = "EBOOK"
	TypeMentoring Type = "MENTORING"
	TypeWorkshop  Type = "WORKSHOP"
)

// Status representa a situação de publicação do produto
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// Product representa um produto do catálogo
type Product struct {
	ID          string          `json:"id" db:"id"`
	ProducerID  string          `json:"producer_id" db:"producer_id"`
	Title       string          `json:"title" db:"title"`
	Slug        string          `json:"slug" db:"slug"`
	Description *string         `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CoverURL    *string         `json:"cover_url" db:"cover_url"`
	Type        Type            `json:"type" db:"type"`
	Status      Status          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// NewProduct cria uma nova instância de Product em rascunho
func NewProduct(id, producerID, title, slug string, price decimal.Decimal, productType Type) *Product {
	now := time.Now()
	return &Product{
		ID:         id,
		ProducerID: producerID,
		Title:      title,
		Slug:       slug,
		Price:      price,
		Type:       productType,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsPurchasable indica se o produto pode ser comprado e exibido publicamente
func (p *Product) IsPurchasable() bool {
	return p.Status == StatusPublished
}

// Lesson é uma aula de um produto
type Lesson struct {
	ID         string `json:"id" db:"id"`
	ProductID  string `json:"product_id" db:"product_id"`
	Title      string `json:"title" db:"title"`
	OrderIndex int    `json:"order_index" db:"order_index"`
	IsFree     bool   `json:"is_free" db:"is_free"`
}

// Producer é o resumo público do dono do produto
type Producer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// PublicProduct é a página de vendas de um produto publicado
type PublicProduct struct {
	Product
	Producer        Producer `json:"producer"`
	FreeLessons     []Lesson `json:"free_lessons"`
	EnrollmentCount int      `json:"enrollment_count"`
}

// ProducerProduct é o produto visto pelo próprio produtor, com contadores
type ProducerProduct struct {
	Product
	EnrollmentCount int `json:"enrollment_count"`
	OrderCount      int `json:"order_count"`
}

// MaxFreeLessons é o número de aulas gratuitas exibidas na página pública
const MaxFreeLessons = 3
