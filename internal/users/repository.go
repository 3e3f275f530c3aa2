package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

// Repository define a interface para operações de banco de dados de usuários
type Repository interface {
	// FindByEmail busca um usuário pelo e-mail normalizado
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID busca um usuário pelo ID
	FindByID(ctx context.Context, id string) (*User, error)

	// InsertIfAbsent insere o usuário; se o e-mail já existir, não faz nada
	InsertIfAbsent(ctx context.Context, user *User) error
}

// UserRepository implementa Repository usando PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository cria uma nova instância de UserRepository
func NewUserRepository(db *pgxpool.Pool) Repository {
	return &UserRepository{
		db: db,
	}
}

const selectUser = `
	SELECT id, name, email, password_hash, role, is_active, created_at
	FROM users`

// FindByEmail busca um usuário pelo e-mail normalizado
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+" WHERE email = $1", email))
}

// FindByID busca um usuário pelo ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+" WHERE id = $1", id))
}

// InsertIfAbsent insere o usuário; se o e-mail já existir, não faz nada
func (r *UserRepository) InsertIfAbsent(ctx context.Context, user *User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
