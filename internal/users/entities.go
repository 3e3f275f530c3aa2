package users

import (
	"strings"
	"time"
)

// Role representa o papel do usuário na plataforma
type Role string

const (
	RoleProducer Role = "PRODUCER"
	RoleStudent  Role = "STUDENT"
	RoleAdmin    Role = "ADMIN"
)

// User representa um usuário do marketplace
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Active       bool      `json:"active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewPlaceholderStudent cria uma conta de aluno provisória, sem credencial utilizável.
// A conta é reivindicada depois pelo fluxo de primeiro acesso.
func NewPlaceholderStudent(id, name, email string) *User {
	return &User{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Role:      RoleStudent,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

// IsPlaceholder indica se a conta ainda não tem senha definida
func (u *User) IsPlaceholder() bool {
	return u.PasswordHash == ""
}

// NormalizeEmail deixa o e-mail no formato usado pela chave única
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
