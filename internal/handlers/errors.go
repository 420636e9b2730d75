// internal/handlers/errors.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/middleware"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/services"
	"github.com/swapmart/backend/internal/utils"
)

// localizedCodes are the error codes with a translated client message. Other
// codes fall back to the service message.
var localizedCodes = map[string]string{
	services.CodeExchangeNotFound:         i18n.KeyExchangeNotFound,
	services.CodeExchangeAlreadyProcessed: i18n.KeyExchangeAlreadyProcessed,
	services.CodeOrderNotFound:            i18n.KeyOrderNotFound,
	services.CodeInvalidTransition:        i18n.KeyOrderInvalidTransition,
	services.CodeProductNotFound:          i18n.KeyProductNotFound,
	services.CodeProductUnavailable:       i18n.KeyProductUnavailable,
	services.CodeInvalidCredentials:       i18n.KeyAuthInvalidCredentials,
	services.CodeUserExists:               i18n.KeyAuthUserExists,
	services.CodePaymentNotSucceeded:      i18n.KeyPaymentFailed,
}

// kindStatus is the HTTP status of each service error kind.
var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:     http.StatusNotFound,
	services.KindValidation:   http.StatusBadRequest,
	services.KindUnauthorized: http.StatusForbidden,
	services.KindConflict:     http.StatusConflict,
}

// respondError maps a service error onto the response envelope. Anything
// that is not a *services.ServiceError is logged and reported as a 500.
func respondError(c *gin.Context, err error) {
	serviceErr, ok := services.AsServiceError(err)
	status, known := 0, false
	if ok {
		status, known = kindStatus[serviceErr.Kind]
	}
	if !known {
		middleware.GetLogger(c).WithError(err).WithFields(logFields(c)).Error("Request failed")
		utils.Fail(c, http.StatusInternalServerError, "", "")
		return
	}

	message := serviceErr.Message
	if key, ok := localizedCodes[serviceErr.Code]; ok {
		message = i18n.T(utils.GetLangFromContext(c), key)
	}

	switch {
	case serviceErr.Kind == services.KindValidation:
		if fields := utils.GetValidationErrors(serviceErr.Err); len(fields) > 0 {
			utils.ValidationErrorResponse(c, fields)
			return
		}
		utils.ErrorResponse(c, status, "VALIDATION_ERROR", message, utils.Reason(serviceErr.Code))
	case serviceErr.Code == services.CodeInvalidCredentials || serviceErr.Code == services.CodeAccountInactive:
		// Failed logins are 401; other unauthorized kinds are permission failures.
		utils.Fail(c, http.StatusUnauthorized, message, serviceErr.Code)
	default:
		utils.Fail(c, status, message, serviceErr.Code)
	}
}

// logFields adds the resource ids in the path to an error log line.
func logFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{"path": c.FullPath()}
	if id := c.Param("id"); id != "" {
		fields["resource_id"] = id
	}
	return fields
}

// bindJSON decodes the body, answering 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		message := i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input")
		utils.ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, err.Error())
		return false
	}
	return true
}

// paramUUID parses a path parameter, answering 400 itself on failure.
func paramUUID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationID, resource), "")
		return uuid.Nil, false
	}
	return id, true
}

// currentActor reads the caller set by middleware.AuthRequired.
func currentActor(c *gin.Context) (services.Actor, bool) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.Fail(c, http.StatusUnauthorized, "", "")
		return services.Actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.Fail(c, http.StatusUnauthorized, "", "")
		return services.Actor{}, false
	}
	userType, _ := utils.GetUserTypeFromContext(c)
	return services.Actor{UserID: userID, UserType: models.UserType(userType)}, true
}
