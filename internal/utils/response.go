// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
)

// Keys under which middleware stores request-scoped values in the gin context.
const (
	ContextLang     = "lang"
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextUserType = "user_type"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type failure struct {
	code string
	key  string
	args []interface{}
}

// failures gives the envelope code and fallback message for each status
// Fail knows about.
var failures = map[int]failure{
	http.StatusBadRequest:          {code: "BAD_REQUEST", key: i18n.KeyValidationInvalid, args: []interface{}{"request"}},
	http.StatusUnauthorized:        {code: "UNAUTHORIZED", key: i18n.KeyAuthRequired},
	http.StatusForbidden:           {code: "FORBIDDEN", key: i18n.KeyAccessDenied},
	http.StatusNotFound:            {code: "NOT_FOUND", key: i18n.KeyResourceNotFound},
	http.StatusConflict:            {code: "CONFLICT", key: i18n.KeyConflict},
	http.StatusTooManyRequests:     {code: "RATE_LIMITED", key: i18n.KeyRateLimited},
	http.StatusInternalServerError: {code: "INTERNAL_ERROR", key: i18n.KeyInternalError},
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    result.Data,
		Meta: gin.H{"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		}},
	})
}

// ErrorResponse writes an error envelope and aborts the handler chain.
func ErrorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, APIResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	})
}

// Fail writes the error envelope registered for status. An empty message
// falls back to the localized default and a non-empty reason is reported as
// details.reason.
func Fail(c *gin.Context, status int, message, reason string) {
	f, ok := failures[status]
	if !ok {
		f = failures[http.StatusInternalServerError]
	}
	if message == "" {
		message = i18n.T(GetLangFromContext(c), f.key, f.args...)
	}
	ErrorResponse(c, status, f.code, message, Reason(reason))
}

// Reason wraps a machine-readable cause as response details. It returns nil
// for an empty reason so the details field is omitted.
func Reason(reason string) interface{} {
	if reason == "" {
		return nil
	}
	return gin.H{"reason": reason}
}

func ValidationErrorResponse(c *gin.Context, fields []ValidationError) {
	message := i18n.T(GetLangFromContext(c), i18n.KeyValidationInvalid, "input")
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", message, fields)
}

func GetLangFromContext(c *gin.Context) string {
	if lang := c.GetString(ContextLang); lang != "" {
		return lang
	}
	return i18n.LocaleEnglish
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	return userID, userID != ""
}

func GetUserTypeFromContext(c *gin.Context) (string, bool) {
	userType := c.GetString(ContextUserType)
	return userType, userType != ""
}
