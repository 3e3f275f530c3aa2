package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/davori/marketplace/internal/users"
)

var ErrInvalidToken = errors.New("invalid or expired access token")

// tokenType distingue access de refresh; apenas access é aceito nas rotas
const tokenTypeAccess = "access"

// Principal é o usuário autenticado extraído do access token
type Principal struct {
	UserID string
	Email  string
	Role   users.Role
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// Verifier valida access tokens HS256. A emissão fica fora deste serviço.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier cria uma nova instância de Verifier
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// ParseAccessToken valida assinatura, expiração e tipo do token
func (v *Verifier) ParseAccessToken(raw string) (*Principal, error) {
	if len(v.secret) == 0 || strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != tokenTypeAccess || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   users.Role(claims.Role),
	}, nil
}
