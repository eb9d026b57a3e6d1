package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paymob-relay/internal/domain"
)

const requestIDKey = "request_id"

// RequestID keeps a caller-supplied X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(domain.RequestIDHeader)
		if id == "" || len(id) > domain.MaxIDLength {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(domain.RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
