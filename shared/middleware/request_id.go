package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eaglebank/scanpoint/shared/models"
)

// RequestIDHeader carries the client's idempotency/correlation key.
const RequestIDHeader = models.RequestIDHeader

const requestIDKey = "requestId"

// RequestIDMiddleware stores the caller's X-Request-ID in the context and
// echoes it back. A request without one gets a generated id that is used for
// log correlation only.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		supplied := id != ""
		if !supplied {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Set(requestIDKey+".supplied", supplied)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request id and whether the client supplied it.
func GetRequestID(c *gin.Context) (string, bool) {
	id, exists := c.Get(requestIDKey)
	if !exists {
		return "", false
	}
	return id.(string), c.GetBool(requestIDKey + ".supplied")
}
