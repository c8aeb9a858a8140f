package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/openstay/reservstack/api/handlers"
	"github.com/openstay/reservstack/api/middleware"
	"github.com/openstay/reservstack/interfaces"
	"github.com/openstay/reservstack/internal/repository"
	"github.com/openstay/reservstack/internal/tracing"
	"github.com/openstay/reservstack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, repos *repository.Repositories, scheduler interfaces.Scheduler, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Health check and status endpoints (no auth needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(scheduler))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-RESERVSTACK-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware())
	{
		// Cross-tenant operations
		api.POST("/email-check", middleware.CustomContextMiddleware("reservstack"), handlers.TriggerAllCheck(scheduler))
		api.POST("/reservations/parse", middleware.CustomContextMiddleware("reservstack"), handlers.ParseReservation(s.ReservationParser))

		// Tenant-scoped operations
		tenants := api.Group("/tenants/:tenant")
		tenants.Use(middleware.TenantParamMiddleware())
		tenants.Use(middleware.CustomContextMiddleware("reservstack"))
		{
			tenants.POST("/email-check", handlers.TriggerTenantCheck(scheduler))
			tenants.GET("/email-status", handlers.EmailStatus(scheduler, repos.TenantMailSettingsRepository))
		}
	}
}
