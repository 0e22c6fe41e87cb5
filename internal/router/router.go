// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/onsale/ticketing/internal/config"
	"github.com/onsale/ticketing/internal/handler"
	"github.com/onsale/ticketing/internal/middleware"
)

// Handlers bundles everything the router wires up.
type Handlers struct {
	Admission   *handler.AdmissionHandler
	Reservation *handler.ReservationHandler
	Order       *handler.OrderHandler
	Seats       *handler.SeatHandler
	AdminSeats  *handler.AdminSeatHandler
}

// Register mounts all routes. The public sale surface lives under /v1
// behind JWT auth plus the Redis token-bucket rate limiter; the seat
// map additionally goes through the response cache. Admin endpoints
// require the ADMIN role. rdb may be nil, which disables rate limiting
// and caching (dev without Redis is degraded, not broken).
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	// Health check for load balancers and monitoring; no auth.
	e.GET("/healthz", handler.Health)

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	v1.Use(rl)

	// Admission queue: join, poll, leave.
	v1.POST("/events/:id/queue", h.Admission.Enqueue)
	v1.GET("/events/:id/queue", h.Admission.Status)
	v1.DELETE("/events/:id/queue", h.Admission.Leave)

	// Seat map; cached because the authoritative check is the hold CAS.
	v1.GET("/events/:id/seats", h.Seats.List, cache)

	// Seat holds and orders.
	v1.POST("/events/:id/seats/:seatId/hold", h.Reservation.Hold)
	v1.DELETE("/events/:id/seats/:seatId/hold", h.Reservation.Release)
	v1.POST("/orders", h.Order.Create)

	// Operator surface.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/events/:id/seats", h.AdminSeats.BulkCreate)
}
