package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/services"
	"github.com/swapmart/backend/internal/utils"
)

type ExchangeHandler struct {
	exchangeService *services.ExchangeService
}

func NewExchangeHandler(exchangeService *services.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{
		exchangeService: exchangeService,
	}
}

// POST /exchanges
func (h *ExchangeHandler) CreateExchangeRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateExchangeRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.exchangeService.CreateExchangeRequest(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, request)
}

// GET /exchanges?role=sent|received&status=pending
func (h *ExchangeHandler) ListExchangeRequests(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	params := services.ExchangeListParams{
		PaginationParams: utils.GetPaginationParams(c),
		Role:             c.Query("role"),
		Status:           models.ExchangeStatus(c.Query("status")),
	}

	requests, total, err := h.exchangeService.ListExchangeRequests(c.Request.Context(), actor.UserID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, params.PaginationParams))
}

// GET /exchanges/:id
func (h *ExchangeHandler) GetExchangeRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id", "exchange request")
	if !ok {
		return
	}

	request, err := h.exchangeService.GetExchangeRequest(c.Request.Context(), actor, requestID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, request)
}

// PUT /exchanges/:id/approve
func (h *ExchangeHandler) ApproveExchange(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id", "exchange request")
	if !ok {
		return
	}

	request, err := h.exchangeService.Approve(c.Request.Context(), requestID, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":                        i18n.T(utils.GetLangFromContext(c), i18n.KeyExchangeApproved),
		"exchange_request":               request,
		"status":                         request.Status,
		"order_for_offered_product_id":   request.OrderForOfferedProductID,
		"order_for_requested_product_id": request.OrderForRequestedProductID,
	})
}

// PUT /exchanges/:id/reject
func (h *ExchangeHandler) RejectExchange(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id", "exchange request")
	if !ok {
		return
	}

	// The body is optional; an empty one means no reason.
	var req services.RejectExchangeRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	request, err := h.exchangeService.Reject(c.Request.Context(), requestID, actor.UserID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":          i18n.T(utils.GetLangFromContext(c), i18n.KeyExchangeRejected),
		"exchange_request": request,
	})
}
