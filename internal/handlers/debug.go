package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupgames-service/internal/rules"
	"groupgames-service/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, registry *rules.Registry, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "audit emitter not configured"})
			return
		}
		emitAudit(c, emitter, telemetry.AuditRecord{Level: "INFO", Action: "debug.audit_test", Text: "audit test"})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/capacity", func(c *gin.Context) {
		out := make(map[string]rules.Limits, len(registry.Types()))
		for _, t := range registry.Types() {
			out[t] = rules.Capacity(t)
		}
		c.JSON(http.StatusOK, out)
	})
}
