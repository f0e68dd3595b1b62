package middleware

import (
	"net/http"
	"slices"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
}

// RequireRole admits only actors holding one of roles
func RequireRole(cfg PermissionConfig, roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			denied(c, cfg, "No authenticated actor")
			return
		}
		if !slices.Contains(roles, actor.Role) {
			denied(c, cfg, "Role "+string(actor.Role)+" may not perform this operation")
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole for the administrator role
func RequireAdmin(cfg PermissionConfig) gin.HandlerFunc {
	return RequireRole(cfg, shared.RoleAdmin)
}

// RequirePermission admits actors granted permission, and administrators
func RequirePermission(cfg PermissionConfig, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			denied(c, cfg, "No authenticated actor")
			return
		}
		if actor.Role != shared.RoleAdmin && !actor.HasPermission(permission) {
			denied(c, cfg, "Missing permission "+permission)
			return
		}
		c.Next()
	}
}

func denied(c *gin.Context, cfg PermissionConfig, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Permission denied",
			zap.String("path", c.Request.URL.Path),
			zap.String("reason", message),
		)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(dto.ErrCodeForbidden, message, GetRequestID(c)))
}
