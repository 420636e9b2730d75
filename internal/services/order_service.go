// internal/services/order_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/database"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
	"github.com/swapmart/backend/internal/utils"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   uuid.UUID
	UserType models.UserType
}

func (a Actor) IsStaff() bool {
	return a.UserType == models.UserTypeAdmin || a.UserType == models.UserTypeDelivery
}

// OrderService creates orders and keeps creation idempotent per
// (product, buyer).
type OrderService struct {
	db  *gorm.DB
	cfg config.MarketplaceConfig
}

type CreateOrderRequest struct {
	ProductID    uuid.UUID      `json:"product_id" validate:"required"`
	ShippingInfo *ShippingInput `json:"shipping_info,omitempty"`
}

// Pricing is the money split of one order.
type Pricing struct {
	TotalAmount  decimal.Decimal
	PlatformFee  decimal.Decimal
	SellerAmount decimal.Decimal
	ShippingFee  decimal.Decimal
}

func NewOrderService(db *gorm.DB, cfg config.MarketplaceConfig) *OrderService {
	return &OrderService{
		db:  db,
		cfg: cfg,
	}
}

// ComputePricing prices an order. Swap orders only carry the swap shipping
// fee; regular orders pay price plus shipping, and the platform keeps
// PlatformFeeRate of the total.
func ComputePricing(cfg config.MarketplaceConfig, price decimal.Decimal, isSwap bool) Pricing {
	if isSwap {
		fee := decimal.NewFromFloat(cfg.SwapShippingFee).Round(2)
		return Pricing{
			TotalAmount:  fee,
			PlatformFee:  decimal.Zero,
			SellerAmount: fee,
			ShippingFee:  fee,
		}
	}

	shipping := decimal.NewFromFloat(cfg.ShippingFee).Round(2)
	total := price.Add(shipping).Round(2)
	platformFee := total.Mul(decimal.NewFromFloat(cfg.PlatformFeeRate)).Round(2)
	return Pricing{
		TotalAmount:  total,
		PlatformFee:  platformFee,
		SellerAmount: total.Sub(platformFee),
		ShippingFee:  shipping,
	}
}

// CreateOrder places a regular purchase, or the buyer's side of an accepted
// swap. Repeating the call for the same product and buyer returns the
// existing pending order.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid order request", err)
	}

	var order *models.Order
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var err error
		order, err = s.createOrder(repository.New(tx), req.ProductID, buyerID, req.ShippingInfo, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// createOrder runs inside the caller's transaction. swapHint marks an order
// minted by an exchange approval.
func (s *OrderService) createOrder(r *repository.Repositories, productID, buyerID uuid.UUID, shipping *ShippingInput, swapHint bool) (*models.Order, error) {
	logger := logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"buyer_id":   buyerID,
	})

	product, err := r.Products.FindByIDForUpdate(productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeProductNotFound, "product %s not found", productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	existing, err := r.Orders.FindByProductAndBuyer(productID, buyerID)
	switch {
	case err == nil:
		if existing.Status == models.OrderStatusPending || existing.IsSwapOrder {
			if shipping != nil && existing.Status == models.OrderStatusPending {
				fee := ComputePricing(s.cfg, product.Price, existing.IsSwapOrder).ShippingFee
				if err := upsertShipping(r, existing, *shipping, fee); err != nil {
					return nil, err
				}
			}
			logger.WithField("order_id", existing.ID).Debug("Returning existing order")
			return existing, nil
		}
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("failed to look up existing order: %w", err)
	}

	if product.OwnerID == buyerID {
		return nil, invalid(CodeSelfPurchase, "cannot order your own product")
	}

	isSwap := swapHint || product.Status == models.ProductStatusTrading
	if err := s.checkAvailability(r, product, buyerID, swapHint); err != nil {
		return nil, err
	}

	if _, err := r.Users.FindByID(buyerID); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeUserNotFound, "buyer %s not found", buyerID)
		}
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}
	if _, err := r.Users.FindByID(product.OwnerID); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeUserNotFound, "seller %s not found", product.OwnerID)
		}
		return nil, fmt.Errorf("failed to load seller: %w", err)
	}

	if !isSwap {
		locked, err := r.Products.TransitionStatus(productID,
			[]models.ProductStatus{models.ProductStatusAvailable}, models.ProductStatusInProcess)
		if err != nil {
			return nil, err
		}
		if !locked {
			// Lost the race to another purchase of the same product.
			if winner, err := r.Orders.FindByProductAndBuyer(productID, buyerID); err == nil {
				return winner, nil
			}
			return nil, conflict(CodeProductUnavailable, "product %s is no longer available", productID)
		}
	}

	pricing := ComputePricing(s.cfg, product.Price, isSwap)
	order := &models.Order{
		ProductID:    productID,
		BuyerID:      buyerID,
		SellerID:     product.OwnerID,
		TotalAmount:  pricing.TotalAmount,
		PlatformFee:  pricing.PlatformFee,
		SellerAmount: pricing.SellerAmount,
		IsSwapOrder:  isSwap,
		Status:       models.OrderStatusPending,
	}

	if err := r.Orders.Insert(order); err != nil {
		if !repository.IsDuplicateKey(err) {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		winner, findErr := r.Orders.FindSwapOrder(productID, buyerID)
		if findErr != nil {
			return nil, fmt.Errorf("failed to read order after duplicate insert: %w", findErr)
		}
		logger.WithField("order_id", winner.ID).Info("Concurrent order creation detected, returning existing order")
		return winner, nil
	}

	info := newShippingInfo(order.ID, models.ShippingStatusPending, pricing.ShippingFee, shipping)
	if err := r.Shipping.Create(info); err != nil {
		return nil, fmt.Errorf("failed to create shipping info: %w", err)
	}
	order.ShippingInfo = info

	if err := purgeFromWishlists(r, productID); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"is_swap":      order.IsSwapOrder,
		"total_amount": order.TotalAmount.String(),
	}).Info("Order created")
	return order, nil
}

func (s *OrderService) checkAvailability(r *repository.Repositories, product *models.Product, buyerID uuid.UUID, swapHint bool) error {
	switch product.Status {
	case models.ProductStatusAvailable:
		if swapHint {
			return conflict(CodeProductUnavailable, "product %s is not locked for an exchange", product.ID)
		}
		return nil
	case models.ProductStatusTrading:
		if swapHint {
			return nil
		}
		ok, err := r.Exchanges.HasAcceptedFor(product.ID, buyerID)
		if err != nil {
			return fmt.Errorf("failed to check exchange for product: %w", err)
		}
		if !ok {
			return conflict(CodeProductUnavailable, "product %s is reserved for an exchange", product.ID)
		}
		return nil
	default:
		return conflict(CodeProductUnavailable, "product %s is %s", product.ID, product.Status)
	}
}

// GetOrder returns the order with its product and shipping details. Only the
// buyer, the seller and staff can read it.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := repository.New(s.db.WithContext(ctx)).Orders.FindDetailed(orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeOrderNotFound, "order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !order.IsParticipant(actor.UserID) && !actor.IsStaff() {
		return nil, unauthorized(CodeNotParticipant, "not a participant of order %s", orderID)
	}
	return order, nil
}

// UpsertShippingInfo lets the buyer set the delivery address while the order
// has not shipped.
func (s *OrderService) UpsertShippingInfo(ctx context.Context, orderID, buyerID uuid.UUID, input *ShippingInput) (*models.ShippingInfo, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, invalidInput("invalid shipping info", err)
	}

	var info *models.ShippingInfo
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)
		order, err := r.Orders.FindByIDForUpdate(orderID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound(CodeOrderNotFound, "order %s not found", orderID)
			}
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.BuyerID != buyerID {
			return unauthorized(CodeNotParticipant, "only the buyer can edit shipping info")
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusPaid {
			return invalid(CodeShippingNotEditable, "shipping info cannot change once the order is %s", order.Status)
		}
		fee := ComputePricing(s.cfg, decimal.Zero, order.IsSwapOrder).ShippingFee
		if err := upsertShipping(r, order, *input, fee); err != nil {
			return err
		}
		info = order.ShippingInfo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// upsertShipping writes the address onto the order's shipping row, creating
// the row if the order has none yet.
func upsertShipping(r *repository.Repositories, order *models.Order, input ShippingInput, fee decimal.Decimal) error {
	if order.ShippingInfo == nil {
		info, err := r.Shipping.FindByOrderID(order.ID)
		switch {
		case repository.IsNotFound(err):
			order.ShippingInfo = newShippingInfo(order.ID, ShippingStatusFor(order.Status), fee, &input)
			if err := r.Shipping.Create(order.ShippingInfo); err != nil {
				return fmt.Errorf("failed to create shipping info: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to load shipping info: %w", err)
		}
		order.ShippingInfo = info
	}
	input.applyTo(order.ShippingInfo)
	if err := r.Shipping.UpdateAddress(order.ShippingInfo); err != nil {
		return fmt.Errorf("failed to update shipping info: %w", err)
	}
	return nil
}
