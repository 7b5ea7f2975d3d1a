package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fcsquad/optimizer/internal/platform/database"
)

// HealthStatus is the response shape for GetHealth/GetReady.
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthHandler handles health, readiness, and metrics endpoints.
type HealthHandler struct {
	db        *database.DB
	redis     *redis.Client
	logger    *logrus.Logger
	startedAt time.Time
}

func NewHealthHandler(db *database.DB, redisClient *redis.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redisClient,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetHealth returns the basic health status. A failed database check marks
// the service "degraded" (206) and a nil database is reported as
// "not_configured"; a failed Redis ping marks it "unhealthy" (503).
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   "squad-optimizer",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			response.Status = "degraded"
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = "not_configured"
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		response.Status = "unhealthy"
		response.Checks["redis"] = "failed: " + err.Error()
	} else {
		response.Checks["redis"] = "ok"
	}

	statusCode := http.StatusOK
	switch response.Status {
	case "unhealthy":
		statusCode = http.StatusServiceUnavailable
	case "degraded":
		statusCode = http.StatusPartialContent
	}

	c.JSON(statusCode, response)
}

// GetReady returns the readiness status.
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   "squad-optimizer",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		response.Status = "not_ready"
		response.Checks["redis"] = "failed: " + err.Error()
	} else {
		response.Checks["redis"] = "ok"
	}

	if h.db != nil {
		if err := h.db.HealthCheck(); err != nil {
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetMetrics returns service metrics for operational dashboards.
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := map[string]interface{}{
		"service":   "squad-optimizer",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startedAt).Seconds(),
	}

	if dbSize, err := h.redis.DBSize(c.Request.Context()).Result(); err == nil {
		metrics["cache"] = map[string]interface{}{
			"total_keys": dbSize,
		}
		if squadKeys, err := h.redis.Keys(c.Request.Context(), "squad:*").Result(); err == nil {
			metrics["squad_cache"] = map[string]interface{}{
				"cached_results": len(squadKeys),
			}
		}
	}

	if h.db != nil {
		if sqlDB, err := h.db.DB.DB(); err == nil {
			stats := sqlDB.Stats()
			metrics["database"] = map[string]interface{}{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			}
		}
	}

	c.JSON(http.StatusOK, metrics)
}
