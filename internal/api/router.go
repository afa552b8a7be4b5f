package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/localmart/booking-engine/internal/booking"
)

type RouterConfig struct {
	Engine  *booking.Engine
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  *zap.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Booking endpoints
	r.Post("/bookings", createBookingHandler(cfg.Engine))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Engine))
	r.Post("/bookings/{id}/transition", transitionBookingHandler(cfg.Engine))
	r.Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Engine))

	return r
}
