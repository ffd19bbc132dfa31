package handler

import (
	"church-payments/internal/adapter/http/middleware"
	redisStore "church-payments/internal/adapter/storage/redis"
	"church-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc    ports.CheckoutService
	RefundSvc      ports.RefundService
	QuerySvc       ports.LedgerQueryService
	IntakeSvc      ports.WebhookIntakeService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies MongoDB + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Processor-facing routes (signature-verified, no token) ---
	webhookHandler := NewWebhookHandler(deps.IntakeSvc)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/paypal", rl("webhooks"), webhookHandler.Receive)
	}

	// --- JWT-authenticated routes (member facing) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)
	refundHandler := NewRefundHandler(deps.RefundSvc)
	ledgerHandler := NewLedgerHandler(deps.QuerySvc)

	checkout := v1.Group("/checkout", jwtAuth)
	{
		checkout.POST("/orders", rl("checkout"), checkoutHandler.CreateOrder)
		checkout.POST("/orders/:kind/:id/capture", rl("checkout"), checkoutHandler.CaptureOrder)
	}

	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", rl("reads"), ledgerHandler.ListTransactions)
		transactions.GET("/:kind/:id", rl("reads"), ledgerHandler.GetTransaction)
	}

	refunds := v1.Group("/refund-requests", jwtAuth)
	{
		refunds.POST("", rl("refund_requests"), refundHandler.Create)
		refunds.GET("", rl("reads"), refundHandler.ListMine)
		refunds.GET("/:id", rl("reads"), refundHandler.Get)
	}

	// --- Admin routes (JWT + admin role) ---
	admin := v1.Group("/admin", jwtAuth, middleware.RequireAdmin())
	{
		admin.GET("/refund-requests", rl("admin"), refundHandler.AdminSearch)
		admin.POST("/refund-requests/:id/decide", rl("admin"), refundHandler.Decide)
		admin.GET("/webhooks/failures", rl("admin"), webhookHandler.ListFailures)
		admin.POST("/webhooks/failures/:id/replay", rl("admin"), webhookHandler.Replay)
	}

	return r
}

// currentClaims returns the token claims stored by the auth middleware.
func currentClaims(c *gin.Context) (*ports.TokenClaims, bool) {
	v, ok := c.Get(middleware.CtxClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*ports.TokenClaims)
	return claims, ok
}
