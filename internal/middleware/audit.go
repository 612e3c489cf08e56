package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
)

// AuditStore persists audit records.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records an audit log after every successful request on the route. The resource id
// is taken from the first non-empty path parameter listed in idParams.
func Audit(store AuditStore, logger *zap.Logger, action, resource string, idParams ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		values := map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		}
		if claims := CurrentUser(c); claims != nil {
			id := claims.UserID
			userID = &id
			values["branch"] = claims.Branch
		}

		var resourceID *string
		for _, param := range idParams {
			if v := c.Param(param); v != "" {
				resourceID = &v
				break
			}
		}

		body, _ := json.Marshal(values)
		if err := store.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
		}
	}
}
