// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/utils"
)

// maxAuditBody caps how much of a request body is copied into the audit row.
const maxAuditBody = 64 << 10

// sensitiveFields are blanked before a request body is stored.
var sensitiveFields = []string{"password", "phone_number"}

// fingerprintFields are replaced by their SHA-256 so rows can still be
// correlated with gateway records.
var fingerprintFields = []string{"payment_intent_id"}

// AuditLogMiddleware records every mutating request. Rows are written in the
// background so a slow audit insert never delays the response.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		start := time.Now()
		c.Next()

		var payload map[string]interface{}
		if len(requestBody) > 0 {
			if err := json.Unmarshal(requestBody, &payload); err == nil {
				redactBody(payload)
			}
		}

		entry := &models.AuditLog{
			ActorID:    parseUUID(c.GetString(utils.ContextUserID)),
			RequestID:  GetRequestID(c),
			Method:     c.Request.Method,
			Route:      c.FullPath(),
			Resource:   extractResourceType(c.Request.URL.Path),
			ResourceID: parseUUID(extractResourceID(c.Request.URL.Path)),
			Payload:    models.JSONB(payload),
			StatusCode: c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
			UserAgent:  truncateUTF8(c.Request.UserAgent(), 512),
		}

		logger := GetLogger(c)
		go func() {
			if err := db.WithContext(context.Background()).Create(entry).Error; err != nil {
				logger.WithError(err).Error("Failed to create audit log")
			}
		}()
	}
}

func parseUUID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func redactBody(data map[string]interface{}) {
	for _, field := range sensitiveFields {
		if _, ok := data[field]; ok {
			data[field] = "[redacted]"
		}
	}
	for _, field := range fingerprintFields {
		if v, ok := data[field].(string); ok {
			data[field] = utils.HashString(v)
		}
	}
}

// RequestLogger logs one line per request through logrus.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
			"ip":       c.ClientIP(),
		}
		// AuthRequired adds user_id to the request logger.
		entry := GetLogger(c).WithFields(fields)
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request processed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractResourceID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, part := range parts {
		if _, err := uuid.Parse(part); err == nil {
			return part
		}
	}
	return ""
}
