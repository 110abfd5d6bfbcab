package middleware

import (
	"net/http"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor headers
const (
	TenantIDHeader = "X-Tenant-ID"
	UserIDHeader   = "X-User-ID"

	actorKey = "actor"
)

// RequireActor reads the tenant and user headers into a shared.Actor.
// Missing or malformed headers end the request with a 400.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(TenantIDHeader))
		if err != nil {
			abortInvalidActor(c, "INVALID_TENANT_ID", "X-Tenant-ID header must be a UUID")
			return
		}
		userID, err := uuid.Parse(c.GetHeader(UserIDHeader))
		if err != nil {
			abortInvalidActor(c, "INVALID_USER_ID", "X-User-ID header must be a UUID")
			return
		}
		actor, err := shared.NewActor(userID, tenantID)
		if err != nil {
			status, resp := dto.FromError(err, GetRequestID(c))
			c.AbortWithStatusJSON(status, resp)
			return
		}

		c.Set(actorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), tenantID.String(), userID.String()))
		c.Next()
	}
}

func abortInvalidActor(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(code, message, GetRequestID(c)))
}

// GetActor returns the actor set by RequireActor
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
