package users

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository para testes que não precisam de banco real
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if fn, ok := args.Get(0).(func(context.Context, string) *User); ok {
		return fn(ctx, email), args.Error(1)
	}
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*User)
	return user, args.Error(1)
}

func (m *MockRepository) InsertIfAbsent(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func TestNewUserRepository(t *testing.T) {
	var db *pgxpool.Pool

	repo := NewUserRepository(db)

	assert.NotNil(t, repo)
	assert.IsType(t, &UserRepository{}, repo)
}

func TestFindOrCreateStudent_ExistingUser(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	ctx := context.Background()
	existing := &User{ID: "user-1", Email: "ana@test.com", PasswordHash: "hash", Role: RoleStudent}
	repo.On("FindByEmail", ctx, "ana@test.com").Return(existing, nil)

	// Act
	user, err := NewUserUseCase(repo, zap.NewNop()).FindOrCreateStudent(ctx, "Ana", "  Ana@Test.com ")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	repo.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestFindOrCreateStudent_CreatesPlaceholder(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	ctx := context.Background()
	var inserted *User

	repo.On("FindByEmail", ctx, "novo@test.com").Return(nil, ErrNotFound).Once()
	repo.On("InsertIfAbsent", ctx, mock.MatchedBy(func(u *User) bool {
		inserted = u
		return u.Role == RoleStudent && u.PasswordHash == "" && u.Email == "novo@test.com"
	})).Return(nil)
	repo.On("FindByEmail", ctx, "novo@test.com").Return(func(context.Context, string) *User {
		return inserted
	}, nil).Once()

	// Act
	user, err := NewUserUseCase(repo, zap.NewNop()).FindOrCreateStudent(ctx, "Novo Aluno", "novo@test.com")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.IsPlaceholder())
	assert.Equal(t, "Novo Aluno", user.Name)
	repo.AssertExpectations(t)
}

func TestFindOrCreateStudent_ConcurrentInsertConverges(t *testing.T) {
	// Outra requisição criou a conta entre a busca e o insert
	repo := new(MockRepository)
	ctx := context.Background()
	winner := &User{ID: "winner", Email: "race@test.com", Role: RoleStudent}

	repo.On("FindByEmail", ctx, "race@test.com").Return(nil, ErrNotFound).Once()
	repo.On("InsertIfAbsent", ctx, mock.Anything).Return(nil)
	repo.On("FindByEmail", ctx, "race@test.com").Return(winner, nil).Once()

	user, err := NewUserUseCase(repo, zap.NewNop()).FindOrCreateStudent(ctx, "Race", "race@test.com")

	require.NoError(t, err)
	assert.Equal(t, "winner", user.ID)
}

func TestFindOrCreateStudent_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("FindByEmail", ctx, "x@test.com").Return(nil, errors.New("connection refused"))

	_, err := NewUserUseCase(repo, zap.NewNop()).FindOrCreateStudent(ctx, "X", "x@test.com")

	assert.ErrorContains(t, err, "connection refused")
}
