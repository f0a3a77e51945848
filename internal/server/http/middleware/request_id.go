package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the correlation id in requests and responses.
	RequestIDHeader = "X-Request-Id"
	// RequestIDContextKey is a gin context key for the correlation id.
	RequestIDContextKey = "requestID"

	maxRequestIDLength = 64
)

// RequestID assigns a correlation id to every request, reusing a sane incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(RequestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// CurrentRequestID returns the correlation id assigned by RequestID.
func CurrentRequestID(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}
