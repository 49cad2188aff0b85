package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/onetop21/mcp-server-hub-sub003/internal/infrastructure/migrations"
	"github.com/onetop21/mcp-server-hub-sub003/internal/interfaces/http/response"
)

// HealthHandler reports process and schema state
type HealthHandler struct {
	db     *gorm.DB
	runner *migrations.Runner
}

func NewHealthHandler(db *gorm.DB, runner *migrations.Runner) *HealthHandler {
	return &HealthHandler{db: db, runner: runner}
}

// Health reports liveness plus a database ping
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Migrations reports the ledger state per known migration
// GET /health/migrations
func (h *HealthHandler) Migrations(c *gin.Context) {
	statuses, err := h.runner.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	pending := 0
	for _, s := range statuses {
		if !s.Applied {
			pending++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"migrations": statuses,
		"pending":    pending,
	})
}
