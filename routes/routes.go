package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/todo-app/app"
	"github.com/upb/todo-app/handlers"
	"github.com/upb/todo-app/middleware"
	"github.com/upb/todo-app/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.PropagateRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	metricsEnabled := deps.Config == nil || deps.Config.Observability.MetricsEnabled
	if metricsEnabled {
		r.Use(middleware.Metrics)
	}

	// Responses are readable from any origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Health check endpoints
	var health *handlers.HealthHandler
	if deps.DB != nil {
		health = handlers.NewHealthHandler(deps.DB.DB, deps.Logger)
	} else {
		health = handlers.NewHealthHandler(nil, deps.Logger)
	}
	if deps.KeyCachePool != nil {
		health.AddCheck("key_cache", deps.PingKeyCache)
	}
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Gateway token authorizer
	if deps.Authorizer != nil {
		r.Post("/authorize", handlers.NewAuthorizerHandler(deps.Authorizer, deps.Logger).HandleAuthorize)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/todos", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)

			todo := handlers.NewTodoHandler(deps.TodoService, deps.Logger)
			r.Get("/", todo.HandleList)
			r.Post("/", todo.HandleCreate)
			r.Patch("/{"+handlers.TodoIDParam+"}", todo.HandleUpdate)
			r.Delete("/{"+handlers.TodoIDParam+"}", todo.HandleDelete)
			r.Post("/{"+handlers.TodoIDParam+"}/attachment", todo.HandleAttachment)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
