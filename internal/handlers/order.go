package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/services"
	"github.com/swapmart/backend/internal/utils"
)

type OrderHandler struct {
	orderService  *services.OrderService
	statusService *services.StatusService
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

type UpdateShippingStatusRequest struct {
	Status models.ShippingStatus `json:"status" validate:"required"`
}

func NewOrderHandler(orderService *services.OrderService, statusService *services.StatusService) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		statusService: statusService,
	}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, order)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// GET /orders/:id/transitions
func (h *OrderHandler) GetAvailableTransitions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	options, err := h.statusService.GetAvailableTransitions(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, options)
}

// PUT /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.statusService.UpdateOrderStatus(c.Request.Context(), actor, orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderStatusUpdated),
		"updated": true,
		"order":   order,
	})
}

// PUT /orders/:id/shipping/status
func (h *OrderHandler) UpdateShippingStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	var req UpdateShippingStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.statusService.UpdateShippingStatus(c.Request.Context(), actor, orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderStatusUpdated),
		"updated": true,
		"order":   order,
	})
}

// PUT /orders/:id/shipping
func (h *OrderHandler) UpsertShippingInfo(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	var req services.ShippingInput
	if !bindJSON(c, &req) {
		return
	}

	info, err := h.orderService.UpsertShippingInfo(c.Request.Context(), orderID, actor.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(utils.GetLangFromContext(c), i18n.KeyShippingUpdated),
		"shipping_info": info,
	})
}

// POST /orders/:id/synchronize
func (h *OrderHandler) SynchronizeOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orderID, ok := paramUUID(c, "id", "order")
	if !ok {
		return
	}

	changed, err := h.statusService.SynchronizeOrderStatus(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	key := i18n.KeyOrderAlreadyInSync
	if changed {
		key = i18n.KeyOrderSynchronized
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), key),
		"changed": changed,
	})
}
