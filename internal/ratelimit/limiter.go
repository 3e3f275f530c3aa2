package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
)

// Limites por IP aplicados na API
const (
	GeneralLimit   = 100
	CheckoutLimit  = 20
	DefaultWindow  = 15 * time.Minute
	limitedMessage = "Muitas requisições. Tente novamente em alguns minutos."
)

// WindowStore é o contador de janela fixa
type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter aplica um limite de requisições por chave dentro de uma janela
type Limiter struct {
	store  WindowStore
	name   string
	limit  int64
	window time.Duration
}

// NewLimiter cria uma nova instância de Limiter. name separa os contadores de limiters diferentes.
func NewLimiter(store WindowStore, name string, limit int, window time.Duration) *Limiter {
	if limit < 0 {
		limit = 0
	}
	return &Limiter{
		store:  store,
		name:   name,
		limit:  int64(limit),
		window: window,
	}
}

// Allow conta uma requisição para key. Quando bloqueada devolve os segundos até a janela reabrir.
func (l *Limiter) Allow(ctx context.Context, key string) (int64, bool, error) {
	if l.limit == 0 {
		return 0, true, nil
	}

	count, ttl, err := l.store.IncrementWindow(ctx, "rate:"+l.name+":"+key, l.window)
	if err != nil {
		return 0, false, err
	}
	if count > l.limit {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

// Middleware limita por IP do cliente. Falhas do Redis deixam a requisição passar.
func Middleware(limiter *Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		retryAfter, allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("Rate limiter indisponível", zap.String("limiter", limiter.name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limiter.limit, 10))
		if !allowed {
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			_ = c.Error(apperror.TooManyRequests(limitedMessage))
			c.Abort()
			return
		}
		c.Next()
	}
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
