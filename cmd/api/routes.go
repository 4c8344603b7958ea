package main

import (
	"database/sql"
	"net/http"
	"time"

	"access-platform/internal/httpapi"
	"access-platform/internal/metrics"
	"access-platform/internal/rbac"
	"access-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW, capacityMW gin.HandlerFunc, db *sql.DB, rdb *redis.Client) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	v1.POST("/auth/login", h.Login)

	protected := v1.Group("")
	protected.Use(authMW)
	{
		// ACCESS routes. Check-in and check-out are gate duty; edits need
		// supervisor sign-off; auditors read but never mutate.
		accesses := protected.Group("/accesses")
		{
			accesses.POST("",
				rbac.RequireAnyRole(rbac.RoleGuard, rbac.RoleSupervisor, rbac.RoleAdmin),
				capacityMW,
				h.CheckIn)
			accesses.POST("/:id/checkout",
				rbac.RequireAnyRole(rbac.RoleGuard, rbac.RoleSupervisor, rbac.RoleAdmin),
				h.CheckOut)
			accesses.PATCH("/:id",
				rbac.RequireAnyRole(rbac.RoleSupervisor, rbac.RoleAdmin),
				h.Edit)
			accesses.GET("/:id",
				rbac.RequireAnyRole(rbac.RoleGuard, rbac.RoleSupervisor, rbac.RoleAdmin, rbac.RoleAuditor),
				h.GetAccess)
			accesses.GET("",
				rbac.RequireAnyRole(rbac.RoleGuard, rbac.RoleSupervisor, rbac.RoleAdmin, rbac.RoleAuditor),
				h.ListAccesses)
		}

		// BADGE pool views
		badges := protected.Group("/badges")
		{
			badges.GET("/available",
				rbac.RequireAnyRole(rbac.RoleGuard, rbac.RoleSupervisor, rbac.RoleAdmin),
				h.ListAvailableBadges)
		}

		// ADMIN routes: badge pool provisioning.
		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.POST("/badges", h.CreateBadge)
			admin.POST("/badges/range", h.CreateBadgeRange)
			admin.GET("/badges/:id", h.GetBadge)
		}
	}
}
