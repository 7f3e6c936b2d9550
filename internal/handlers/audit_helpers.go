package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"groupgames-service/internal/middleware"
	"groupgames-service/internal/telemetry"
)

type auditor interface {
	Emit(ctx context.Context, rec telemetry.AuditRecord)
}

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if id := c.GetString("userID"); id != "" {
		return &id
	}
	return nil
}

// emitAudit fills in the request and caller before handing rec to audit.
func emitAudit(c *gin.Context, audit auditor, rec telemetry.AuditRecord) {
	if audit == nil {
		return
	}
	rec.RequestID = requestIDFromContext(c)
	rec.UserID = userIDFromContext(c)
	audit.Emit(c.Request.Context(), rec)
}
