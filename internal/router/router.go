// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/config"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/handler"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterCustomer registers the customer-client endpoints under /v1.
// Every route requires a valid access token with the CUSTOMER role.  The
// availability read additionally sits behind the Redis response cache;
// all routes share the token-bucket rate limiter.  rdb may be nil, in
// which case both Redis middlewares degrade to pass-throughs.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewAvailabilityCache(config.LoadCacheConfig(), rdb)

	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("CUSTOMER"))
	g.Use(limiter)

	g.POST("/reservations", h.CreateReservation)
	g.GET("/reservations", h.ListReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.POST("/reservations/:id/cancel", h.CancelReservation)
	g.GET("/items/:id/availability", h.GetAvailability, cache)
}

// RegisterMerchant registers the merchant-terminal endpoints under
// /v1/merchant.  Validation and pickup completion require the MERCHANT
// role; both are mutating and are never cached.
func RegisterMerchant(e *echo.Echo, h *handler.MerchantHandler, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1/merchant")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MERCHANT"))
	g.Use(limiter)

	g.POST("/reservations/:id/validate", h.ValidateReservation)
	g.POST("/reservations/:id/pickup", h.CompletePickup)
}
