package enrollments

import (
	"math"
	"time"
)

// MaxProgress é o teto do progresso de uma matrícula
const MaxProgress = 100.0

// Enrollment representa o acesso de um aluno a um produto
type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	Progress   float64   `json:"progress" db:"progress"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// NewEnrollment cria uma nova instância de Enrollment com progresso zerado
func NewEnrollment(id, studentID, productID string) *Enrollment {
	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		ProductID:  productID,
		Progress:   0,
		EnrolledAt: time.Now(),
	}
}

// ProductSummary é o resumo do produto exibido na área do aluno
type ProductSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	CoverURL    *string `json:"cover_url"`
	Type        string  `json:"type"`
	LessonCount int     `json:"lesson_count"`
}

// EnrollmentWithProduct é a matrícula enriquecida para listagem
type EnrollmentWithProduct struct {
	Enrollment
	Product ProductSummary `json:"product"`
}

// WelcomeDetails reúne os dados do aluno e do produto usados na notificação
type WelcomeDetails struct {
	StudentName  string
	StudentEmail string
	ProductTitle string
}

// ProgressStep é o avanço por aula concluída: 100 dividido pelo total de aulas.
// Produtos sem aulas não avançam.
func ProgressStep(totalLessons int) float64 {
	if totalLessons <= 0 {
		return 0
	}
	return MaxProgress / float64(totalLessons)
}

// NextProgress soma o passo ao progresso atual sem passar de 100
func NextProgress(current, step float64) float64 {
	return math.Min(current+step, MaxProgress)
}
