package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
)

// RequestID reuses the caller's X-Request-ID or mints one, echoes it on the
// response, and stores a logrus entry carrying it on the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Set(loggerKey, logrus.WithField("request_id", requestID))
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or the standard logger when
// RequestID did not run.
func GetLogger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
