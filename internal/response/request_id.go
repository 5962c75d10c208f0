package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyRequestID is the Gin context key for the request ID.
	ContextKeyRequestID = "request_id"
	// ContextKeySessionID is the Gin context key for the lesson session a request targets.
	ContextKeySessionID = "session_id"

	maxRequestIDLen = 64
)

// RequestIDMiddleware assigns a request ID to every request. A caller-supplied
// X-Request-ID is kept when it is short and made of safe characters.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// SetSessionID tags the request with the lesson session it belongs to.
func SetSessionID(c *gin.Context, sessionID string) {
	c.Set(ContextKeySessionID, sessionID)
}

// RequestID returns the request ID, or "" outside RequestIDMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// SessionID returns the session set by SetSessionID, or "".
func SessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}

// Logger derives a child of log tagged with the request and session IDs.
func Logger(c *gin.Context, log zerolog.Logger) zerolog.Logger {
	ctx := log.With().Str("request_id", RequestID(c))
	if sid := SessionID(c); sid != "" {
		ctx = ctx.Str("session_id", sid)
	}
	return ctx.Logger()
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
