package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/handlers"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/middleware"
	"github.com/onetop21/mcp-server-hub-sub003/internal/usecases"
)

type routeDeps struct {
	gateway       *usecases.AuthGateway
	authHandler   *handlers.AuthHandler
	apiKeyHandler *handlers.ApiKeyHandler
	healthHandler *handlers.HealthHandler
}

func newRouter(d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoutes(r, d.healthHandler)
	registerAPIV1Routes(r, d)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	authMiddleware := middleware.AuthMiddleware(d.gateway)

	v1 := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", d.authHandler.Register)
			auth.POST("/login", d.authHandler.Login)
			auth.POST("/refresh", d.authHandler.Refresh)
			auth.POST("/logout", d.authHandler.Logout)
			auth.GET("/me", authMiddleware, d.authHandler.Me)
			auth.PUT("/me", authMiddleware, middleware.RequirePermission("profile", "manage"), d.authHandler.UpdateMe)
		}

		// Key management (protected; api keys need the keys:manage grant)
		keys := v1.Group("/keys")
		keys.Use(authMiddleware, middleware.RequirePermission("keys", "manage"))
		{
			keys.POST("", d.apiKeyHandler.CreateApiKey)
			keys.GET("", d.apiKeyHandler.ListApiKeys)
			keys.DELETE("/:id", d.apiKeyHandler.RevokeApiKey)
		}
	}
}

func registerHealthRoutes(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Health)
	r.GET("/health/migrations", h.Migrations)
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}
