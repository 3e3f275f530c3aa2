package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/auth"
	"github.com/davori/marketplace/internal/enrollments"
	"github.com/davori/marketplace/internal/orders"
	"github.com/davori/marketplace/internal/products"
	"github.com/davori/marketplace/internal/users"
	"github.com/davori/marketplace/internal/webhooks"
)

// routerDeps são os handlers e middlewares montados na API
type routerDeps struct {
	serviceName string
	environment string
	production  bool
	logger      *zap.Logger
	verifier    *auth.Verifier
	now         func() time.Time

	products    *products.ProductHandler
	orders      *orders.OrderHandler
	enrollments *enrollments.EnrollmentHandler
	webhooks    *webhooks.WebhookHandler

	// nil quando o Redis não está configurado
	generalLimit  gin.HandlerFunc
	checkoutLimit gin.HandlerFunc
}

func newRouter(d routerDeps) *gin.Engine {
	if d.production {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.now == nil {
		d.now = time.Now
	}
	apperror.UseJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.serviceName))
	r.Use(apperror.Handler(d.logger, !d.production))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"timestamp":   d.now().UTC().Format(time.RFC3339),
			"version":     Version,
			"environment": d.environment,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperror.NotFound("Rota não encontrada."))
	})

	api := r.Group("/api")

	// webhook fica fora do rate limiter
	d.webhooks.RegisterRoutes(api)

	limited := api.Group("")
	if d.generalLimit != nil {
		limited.Use(d.generalLimit)
	}
	var checkout []gin.HandlerFunc
	if d.checkoutLimit != nil {
		checkout = append(checkout, d.checkoutLimit)
	}

	authenticated := limited.Group("", auth.Authenticate(d.verifier))
	producers := limited.Group("", auth.Authenticate(d.verifier), auth.RequireRole(users.RoleProducer, users.RoleAdmin))

	d.products.RegisterRoutes(limited, producers)
	d.orders.RegisterRoutes(limited, authenticated, checkout...)
	d.enrollments.RegisterRoutes(authenticated)

	return r
}
