package enrollments

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/davori/marketplace/internal/auth"
)

// ProgressRequest representa a marcação de uma aula concluída
type ProgressRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	LessonID  string `json:"lesson_id" binding:"required,uuid"`
}

// EnrollmentUseCaseInterface define a interface para o use case
type EnrollmentUseCaseInterface interface {
	ListByStudent(ctx context.Context, studentID string) ([]EnrollmentWithProduct, error)
	UpdateProgress(ctx context.Context, studentID, productID, lessonID string) (*Enrollment, error)
}

// EnrollmentHandler contém os handlers HTTP da área do aluno
type EnrollmentHandler struct {
	useCase EnrollmentUseCaseInterface
	tracer  trace.Tracer
}

// NewEnrollmentHandler cria uma nova instância de EnrollmentHandler
func NewEnrollmentHandler(useCase EnrollmentUseCaseInterface, tracer trace.Tracer) *EnrollmentHandler {
	return &EnrollmentHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

// RegisterRoutes monta as rotas; o grupo já deve exigir autenticação
func (h *EnrollmentHandler) RegisterRoutes(protected gin.IRoutes) {
	protected.GET("/enrollments/me", h.ListMine)
	protected.POST("/enrollments/progress", h.MarkProgress)
}

// ListMine lista as matrículas do aluno autenticado
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "list_enrollments")
	defer span.End()

	principal, _ := auth.CurrentPrincipal(c)
	span.SetAttributes(attribute.String("student_id", principal.UserID))

	list, err := h.useCase.ListByStudent(ctx, principal.UserID)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollments": list})
}

// MarkProgress registra a conclusão de uma aula
func (h *EnrollmentHandler) MarkProgress(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "update_progress")
	defer span.End()

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	principal, _ := auth.CurrentPrincipal(c)
	span.SetAttributes(
		attribute.String("student_id", principal.UserID),
		attribute.String("product_id", req.ProductID),
		attribute.String("lesson_id", req.LessonID),
	)

	enrollment, err := h.useCase.UpdateProgress(ctx, principal.UserID, req.ProductID, req.LessonID)
	if err != nil {
		span.RecordError(err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollment": enrollment})
}
