package enrollments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/notify"
)

// Notifier envia a notificação de boas-vindas de uma matrícula nova
type Notifier interface {
	NotifyEnrollment(ctx context.Context, w notify.Welcome) error
}

// EnrollmentUseCase contém a lógica de negócio das matrículas
type EnrollmentUseCase struct {
	repository        Repository
	notifier          Notifier
	logger            *zap.Logger
	now               func() time.Time
	enrollmentCounter metric.Int64Counter
}

// NewEnrollmentUseCase cria uma nova instância de EnrollmentUseCase
func NewEnrollmentUseCase(repository Repository, notifier Notifier, logger *zap.Logger) *EnrollmentUseCase {
	counter, _ := otel.Meter("enrollments").Int64Counter(
		"enrollments_created_total",
		metric.WithDescription("Matrículas criadas"),
	)

	return &EnrollmentUseCase{
		repository:        repository,
		notifier:          notifier,
		logger:            logger,
		now:               time.Now,
		enrollmentCounter: counter,
	}
}

// Enroll libera o acesso do aluno ao produto. Chamadas repetidas devolvem a matrícula existente
// sem tocar no progresso, e só a primeira dispara a notificação de boas-vindas.
func (uc *EnrollmentUseCase) Enroll(ctx context.Context, studentID, productID string) (*Enrollment, error) {
	enrollment, _, err := uc.Grant(ctx, studentID, productID)
	return enrollment, err
}

// Grant funciona como Enroll e também informa se a matrícula foi criada nesta chamada
func (uc *EnrollmentUseCase) Grant(ctx context.Context, studentID, productID string) (*Enrollment, bool, error) {
	candidate := NewEnrollment(uuid.New().String(), studentID, productID)
	candidate.EnrolledAt = uc.now()

	created, err := uc.repository.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, fmt.Errorf("inserting enrollment: %w", err)
	}

	enrollment, err := uc.repository.Find(ctx, studentID, productID)
	if err != nil {
		return nil, false, fmt.Errorf("reading enrollment: %w", err)
	}

	if !created {
		uc.logger.Info("Matrícula já existente",
			zap.String("student_id", studentID),
			zap.String("product_id", productID),
		)
		return enrollment, false, nil
	}

	if uc.enrollmentCounter != nil {
		uc.enrollmentCounter.Add(ctx, 1)
	}
	uc.logger.Info("Matrícula criada",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("product_id", productID),
	)

	uc.sendWelcome(ctx, enrollment)
	return enrollment, true, nil
}

// sendWelcome é best-effort: falhas são registradas e nunca desfazem a matrícula
func (uc *EnrollmentUseCase) sendWelcome(ctx context.Context, e *Enrollment) {
	details, err := uc.repository.WelcomeDetails(ctx, e.StudentID, e.ProductID)
	if err != nil {
		uc.logger.Error("Falha ao carregar dados de boas-vindas", zap.String("enrollment_id", e.ID), zap.Error(err))
		return
	}

	err = uc.notifier.NotifyEnrollment(ctx, notify.Welcome{
		EnrollmentID: e.ID,
		StudentID:    e.StudentID,
		StudentName:  details.StudentName,
		StudentEmail: details.StudentEmail,
		ProductID:    e.ProductID,
		ProductTitle: details.ProductTitle,
		OccurredAt:   e.EnrolledAt,
	})
	if err != nil {
		uc.logger.Error("Falha ao enviar boas-vindas", zap.String("enrollment_id", e.ID), zap.Error(err))
	}
}

// HasAccess verifica se já existe matrícula para o par
func (uc *EnrollmentUseCase) HasAccess(ctx context.Context, studentID, productID string) (bool, error) {
	exists, err := uc.repository.Exists(ctx, studentID, productID)
	if err != nil {
		return false, fmt.Errorf("checking enrollment: %w", err)
	}
	return exists, nil
}

// Revoke remove o acesso do aluno ao produto
func (uc *EnrollmentUseCase) Revoke(ctx context.Context, studentID, productID string) error {
	if err := uc.repository.Delete(ctx, studentID, productID); err != nil {
		return fmt.Errorf("deleting enrollment: %w", err)
	}
	uc.logger.Info("Acesso revogado",
		zap.String("student_id", studentID),
		zap.String("product_id", productID),
	)
	return nil
}

// ListByStudent lista as matrículas do aluno, mais recentes primeiro
func (uc *EnrollmentUseCase) ListByStudent(ctx context.Context, studentID string) ([]EnrollmentWithProduct, error) {
	list, err := uc.repository.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	if list == nil {
		list = []EnrollmentWithProduct{}
	}
	return list, nil
}

// UpdateProgress avança o progresso em uma fração do total de aulas.
// Cada chamada avança, mesmo para a mesma aula: não há registro de aulas concluídas.
func (uc *EnrollmentUseCase) UpdateProgress(ctx context.Context, studentID, productID, lessonID string) (*Enrollment, error) {
	if _, err := uc.repository.Find(ctx, studentID, productID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.Forbidden("Você não tem acesso a este produto.")
		}
		return nil, fmt.Errorf("finding enrollment: %w", err)
	}

	total, err := uc.repository.CountLessons(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("counting lessons: %w", err)
	}

	enrollment, err := uc.repository.IncrementProgress(ctx, studentID, productID, ProgressStep(total))
	if errors.Is(err, ErrNotFound) {
		// matrícula revogada entre a checagem e o update
		return nil, apperror.Forbidden("Você não tem acesso a este produto.")
	}
	if err != nil {
		return nil, fmt.Errorf("updating progress: %w", err)
	}

	uc.logger.Debug("Progresso atualizado",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("lesson_id", lessonID),
		zap.Float64("progress", enrollment.Progress),
	)
	return enrollment, nil
}
