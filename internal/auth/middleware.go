package auth

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/users"
)

const principalKey = "auth.principal"

// Authenticate exige um Bearer token válido e injeta o Principal no contexto do gin
func Authenticate(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			_ = c.Error(apperror.Unauthorized("Token de autenticação não fornecido."))
			c.Abort()
			return
		}

		principal, err := verifier.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			_ = c.Error(apperror.Unauthorized("Token inválido ou expirado."))
			c.Abort()
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

// RequireRole bloqueia usuários cujo papel não está na lista
func RequireRole(roles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			_ = c.Error(apperror.Unauthorized("Não autenticado."))
			c.Abort()
			return
		}
		if !slices.Contains(roles, principal.Role) {
			_ = c.Error(apperror.Forbidden("Você não tem permissão para esta ação."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetPrincipal grava o usuário autenticado no contexto
func SetPrincipal(c *gin.Context, principal *Principal) {
	c.Set(principalKey, principal)
}

// CurrentPrincipal devolve o usuário autenticado, se houver
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*Principal)
	return principal, ok && principal != nil
}
