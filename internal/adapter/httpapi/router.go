// Package httpapi exposes the maintenance engine over HTTP. Every request
// under /api/v1 is pinned to one building by the X-Building-Schema header;
// the acting user arrives in X-Actor-ID.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"buildingops/internal/maintenance"
)

// MaintenanceService is the engine surface the handlers drive.
type MaintenanceService interface {
	CreateSchedule(ctx context.Context, tenant string, in maintenance.CreateInput) (*maintenance.Schedule, error)
	UpdateSchedule(ctx context.Context, tenant string, id uuid.UUID, in maintenance.UpdateInput) (*maintenance.Schedule, error)
	GetSchedule(ctx context.Context, tenant string, id uuid.UUID) (*maintenance.Schedule, error)
	SearchSchedules(ctx context.Context, tenant string, f maintenance.ScheduleFilter) ([]*maintenance.Schedule, error)
	DeleteSchedule(ctx context.Context, tenant string, id uuid.UUID) error
	HistoriesBySchedule(ctx context.Context, tenant string, scheduleID uuid.UUID) ([]*maintenance.History, error)
	HistoriesByAsset(ctx context.Context, tenant string, assetID uuid.UUID) ([]*maintenance.History, error)
}

// Config configures the router.
type Config struct {
	Service MaintenanceService
	// Health reports backend readiness, typically a database ping.
	Health func(ctx context.Context) error
	Logger *slog.Logger
	Env    string
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &scheduleHandler{svc: cfg.Service, log: log}
	api := r.Group("/api/v1", tenantMiddleware())
	{
		api.POST("/schedules", h.create)
		api.GET("/schedules", h.search)
		api.GET("/schedules/:id", h.get)
		api.PATCH("/schedules/:id", h.update)
		api.DELETE("/schedules/:id", h.delete)
		api.GET("/schedules/:id/history", h.historyBySchedule)
		api.GET("/assets/:id/history", h.historyByAsset)
	}

	return r
}

const (
	headerBuilding = "X-Building-Schema"
	headerActor    = "X-Actor-ID"

	ctxTenant = "tenant"
	ctxActor  = "actor"
)

// schemaPattern bounds what a tenant header may contain; schemas are plain
// lowercase identifiers.
var schemaPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// tenantMiddleware resolves the building scope of the request. No valid
// header, no data access.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		schema := c.GetHeader(headerBuilding)
		if !schemaPattern.MatchString(schema) {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				gin.H{"error": "missing or invalid " + headerBuilding + " header"})
			return
		}
		c.Set(ctxTenant, schema)

		if raw := c.GetHeader(headerActor); raw != "" {
			actor, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					gin.H{"error": "invalid " + headerActor + " header"})
				return
			}
			c.Set(ctxActor, actor)
		}
	}
}

func tenantOf(c *gin.Context) string {
	return c.GetString(ctxTenant)
}

func actorOf(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return uuid.UUID{}, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"tenant", c.GetString(ctxTenant),
		)
	}
}
