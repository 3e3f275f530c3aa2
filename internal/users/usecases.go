package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserUseCase contém as regras de contas usadas pelo checkout
type UserUseCase struct {
	repository Repository
	logger     *zap.Logger
}

// NewUserUseCase cria uma nova instância de UserUseCase
func NewUserUseCase(repository Repository, logger *zap.Logger) *UserUseCase {
	return &UserUseCase{
		repository: repository,
		logger:     logger,
	}
}

// FindOrCreateStudent devolve o usuário dono do e-mail, criando uma conta provisória se necessário.
// Duas compras simultâneas com o mesmo e-mail convergem para a mesma conta.
func (uc *UserUseCase) FindOrCreateStudent(ctx context.Context, name, email string) (*User, error) {
	email = NormalizeEmail(email)

	user, err := uc.repository.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("finding user by email: %w", err)
	}

	placeholder := NewPlaceholderStudent(uuid.New().String(), name, email)
	if err := uc.repository.InsertIfAbsent(ctx, placeholder); err != nil {
		return nil, fmt.Errorf("creating placeholder student: %w", err)
	}

	user, err = uc.repository.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reading placeholder student: %w", err)
	}

	if user.ID == placeholder.ID {
		uc.logger.Info("Conta provisória de aluno criada", zap.String("user_id", user.ID))
	}
	return user, nil
}
