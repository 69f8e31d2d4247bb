package main

import (
	"context"
	"net/http"
	"time"

	"address-validator/internal/activitylog"
	"address-validator/internal/address"
	"address-validator/internal/auth"
	"address-validator/internal/config"
	"address-validator/internal/httpapi"
	"address-validator/internal/locality"
	"address-validator/internal/metrics"
	"address-validator/internal/rbac"
	"address-validator/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// routeDeps carries what the route table needs beyond the handlers.
type routeDeps struct {
	cfg     config.Config
	metrics *metrics.Metrics
	auth    *auth.Manager // nil leaves GET /logs open
	limiter httpapi.Limiter
	ready   func(ctx context.Context) error
}

func newLimiter(rdb *redis.Client, perMinute int) httpapi.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return httpapi.NewRedisLimiter(rdb, perMinute)
}

func handlersFor(cfg config.Config, lookup locality.Lookuper, addr *address.Service, activity *activitylog.Service, states state.Store) httpapi.Handlers {
	return httpapi.Handlers{
		Lookup:      lookup,
		Address:     addr,
		Activity:    activity,
		States:      states,
		CORSOrigin:  cfg.App.CORSOrigin,
		Development: !cfg.IsProduction(),
	}
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if d.ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := d.ready(ctx); err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if d.metrics != nil {
		r.GET("/metrics", gin.WrapH(d.metrics.Handler()))
	}

	var rec httpapi.RateLimitRecorder
	if d.metrics != nil {
		rec = d.metrics
	}
	limited := httpapi.RateLimit(d.limiter, rec, time.Minute)

	r.GET("/locations", limited, h.SearchLocations)
	r.GET("/suburbs", limited, h.SearchSuburbs)
	r.POST("/validate", limited, h.ValidateAddress)
	r.POST("/selections", h.RecordSelection)

	r.POST("/log", h.RecordLog)
	logsMW := []gin.HandlerFunc{}
	if d.auth != nil {
		logsMW = append(logsMW, auth.RequireOperatorToken(d.auth), rbac.RequireAnyRole(rbac.RoleLogViewer))
	}
	r.GET("/logs", append(logsMW, h.RecentLogs)...)

	r.POST("/graphql", limited, h.GraphQL)
	r.OPTIONS("/graphql", h.GraphQLPreflight)
	r.GET("/graphql", h.GraphQLInfo)

	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id/state", h.GetSessionState)
	r.PUT("/sessions/:id/state", h.PutSessionState)
}
