package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/menuboard/api/internal/config"
	"github.com/menuboard/api/internal/database"
	"github.com/menuboard/api/internal/handler"
	mw "github.com/menuboard/api/internal/middleware"
	"github.com/menuboard/api/internal/service"
	"github.com/menuboard/api/internal/ws"
	"github.com/sirupsen/logrus"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, tenant scoping, and role-based middleware as needed.
// notifier may be nil, in which case committed changes are not announced.
func New(cfg *config.Config, pool service.Pool, hub *ws.Hub, notifier service.Notifier, log logrus.FieldLogger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(log.WithField("component", "http")))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	queries := database.New(pool)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if _, err := pool.Exec(ctx, "SELECT 1"); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Terminal login (public, rate limited per IP)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.DefaultStation, log)
	limiter := mw.NewIPRateLimiter(cfg.LoginRatePerMinute)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		authHandler.RegisterRoutes(r)
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/tenants/{tid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	itemRouter := service.NewItemRouter(queries, cfg.DefaultStation, log.WithField("component", "item_router"))
	orderService := service.NewOrderService(
		pool,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		itemRouter,
		notifier,
		log,
	)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Tenant-scoped routes
		r.Route("/tenants/{tid}", func(r chi.Router) {
			r.Use(mw.RequireTenant)

			menuHandler := handler.NewMenuHandler(queries, itemRouter.DefaultStation(), log)
			menuHandler.RegisterRoutes(r)

			orderHandler := handler.NewOrderHandler(orderService, orderService, log)
			orderHandler.RegisterRoutes(r)

			// Payments (nested under orders)
			paymentHandler := handler.NewPaymentHandler(orderService, log)
			r.Route("/orders/{id}/payments", paymentHandler.RegisterRoutes)

			reportsHandler := handler.NewReportsHandler(queries, handler.LoadLocation(cfg.ReportTimezone), log)
			r.Route("/reports", reportsHandler.RegisterRoutes)
		})
	})

	log.Info("router initialized")
	return r
}
