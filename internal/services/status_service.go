// internal/services/status_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/database"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
)

// maxReconcilePasses bounds Reconcile. One pass settles every pair the
// precedence rules know about; the second only confirms it.
const maxReconcilePasses = 2

// StatusService applies order and shipping status changes and keeps the two
// in step. Completing a swap order completes its sibling as well.
type StatusService struct {
	db         *gorm.DB
	cfg        config.MarketplaceConfig
	propagator *SwapPropagator
}

type TransitionOptions struct {
	OrderTransitions    []models.OrderStatus    `json:"order_transitions"`
	ShippingTransitions []models.ShippingStatus `json:"shipping_transitions"`
	Recommendations     []string                `json:"recommendations"`
}

func NewStatusService(db *gorm.DB, cfg config.MarketplaceConfig) *StatusService {
	s := &StatusService{
		db:  db,
		cfg: cfg,
	}
	s.propagator = NewSwapPropagator(db, cfg, s)
	return s
}

// UpdateOrderStatus is TransitionOrderStatus on behalf of an API caller, who
// must be a participant of the order or staff. Only staff may mark an order
// paid here; participants go through payment confirmation.
func (s *StatusService) UpdateOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if status == models.OrderStatusPaid && !actor.IsStaff() {
		return nil, unauthorized(CodePaymentRequired, "order %s is marked paid by payment confirmation", orderID)
	}
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.TransitionOrderStatus(ctx, orderID, status)
}

func (s *StatusService) UpdateShippingStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status models.ShippingStatus) (*models.Order, error) {
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.TransitionShippingStatus(ctx, orderID, status)
}

func (s *StatusService) SynchronizeOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID) (bool, error) {
	if err := s.authorize(ctx, actor, orderID); err != nil {
		return false, err
	}
	return s.Reconcile(ctx, orderID)
}

// TransitionOrderStatus moves the order along the order table and derives
// the shipping status from the result.
func (s *StatusService) TransitionOrderStatus(ctx context.Context, orderID uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, invalid(CodeInvalidStatus, "unknown order status %q", to)
	}

	var order *models.Order
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)
		var err error
		order, err = s.lockOrder(r, orderID)
		if err != nil {
			return err
		}

		if !CanTransitionOrder(order.Status, to) {
			return invalid(CodeInvalidTransition, "order cannot move from %s to %s", order.Status, to)
		}

		if err := s.setOrderStatus(r, order, to); err != nil {
			return err
		}
		if err := s.setShippingStatus(r, order, ShippingStatusFor(to)); err != nil {
			return err
		}
		return s.enforceConsistency(r, order)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   order.Status,
	}).Info("Order status updated")

	s.afterCommit(ctx, order, to == models.OrderStatusCompleted)
	return order, nil
}

// TransitionShippingStatus moves the shipment along the shipping table and
// derives the order status from the result.
func (s *StatusService) TransitionShippingStatus(ctx context.Context, orderID uuid.UUID, to models.ShippingStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, invalid(CodeInvalidStatus, "unknown shipping status %q", to)
	}

	var (
		order     *models.Order
		completed bool
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)
		var err error
		order, err = s.lockOrder(r, orderID)
		if err != nil {
			return err
		}

		if order.Status.IsTerminal() {
			return invalid(CodeInvalidTransition, "shipping cannot change once the order is %s", order.Status)
		}
		if order.ShippingInfo == nil {
			if err := s.setShippingStatus(r, order, models.ShippingStatusPending); err != nil {
				return err
			}
		}

		from := order.ShippingInfo.Status
		if !CanTransitionShipping(from, to) {
			return invalid(CodeInvalidTransition, "shipping cannot move from %s to %s", from, to)
		}

		if err := s.setShippingStatus(r, order, to); err != nil {
			return err
		}
		if next, ok := OrderStatusFor(to, order.Status); ok {
			if err := s.setOrderStatus(r, order, next); err != nil {
				return err
			}
		}
		if err := s.enforceConsistency(r, order); err != nil {
			return err
		}
		completed = order.Status == models.OrderStatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":        orderID,
		"status":          order.Status,
		"shipping_status": order.ShippingInfo.Status,
	}).Info("Shipping status updated")

	s.afterCommit(ctx, order, completed)
	return order, nil
}

// Reconcile repairs a drifted order/shipping pair and reports whether it
// changed anything. Precedence: a Completed order or Delivered shipment makes
// both Completed/Delivered, a Cancelled order makes the shipment Failed, and
// otherwise the order status decides the shipping status.
func (s *StatusService) Reconcile(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var (
		order     *models.Order
		changed   bool
		completed bool
	)
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)
		var err error
		order, err = s.lockOrder(r, orderID)
		if err != nil {
			return err
		}
		wasCompleted := order.Status == models.OrderStatusCompleted

		for pass := 0; pass < maxReconcilePasses; pass++ {
			repaired, err := s.reconcileOnce(r, order)
			if err != nil {
				return err
			}
			if !repaired {
				break
			}
			changed = true
		}
		completed = !wasCompleted && order.Status == models.OrderStatusCompleted
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		logrus.WithFields(logrus.Fields{
			"order_id":        orderID,
			"status":          order.Status,
			"shipping_status": order.ShippingInfo.Status,
		}).Info("Order status reconciled")
	}

	s.afterCommit(ctx, order, completed)
	return changed, nil
}

func (s *StatusService) reconcileOnce(r *repository.Repositories, order *models.Order) (bool, error) {
	if order.ShippingInfo == nil {
		return true, s.setShippingStatus(r, order, ShippingStatusFor(order.Status))
	}

	shipping := order.ShippingInfo.Status
	switch {
	case order.Status == models.OrderStatusCompleted:
		if shipping != models.ShippingStatusDelivered {
			return true, s.setShippingStatus(r, order, models.ShippingStatusDelivered)
		}
	case order.Status == models.OrderStatusCancelled:
		if shipping != models.ShippingStatusFailed {
			return true, s.setShippingStatus(r, order, models.ShippingStatusFailed)
		}
	case shipping == models.ShippingStatusDelivered:
		return true, s.setOrderStatus(r, order, models.OrderStatusCompleted)
	default:
		if implied := ShippingStatusFor(order.Status); implied != shipping {
			return true, s.setShippingStatus(r, order, implied)
		}
	}
	return false, nil
}

// GetAvailableTransitions lists what the order and its shipment may move to
// next, with hints for the operator.
func (s *StatusService) GetAvailableTransitions(ctx context.Context, actor Actor, orderID uuid.UUID) (*TransitionOptions, error) {
	order, err := s.loadOrder(repository.New(s.db.WithContext(ctx)), orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(actor.UserID) && !actor.IsStaff() {
		return nil, unauthorized(CodeNotParticipant, "not a participant of order %s", orderID)
	}
	return transitionOptions(order), nil
}

func transitionOptions(order *models.Order) *TransitionOptions {
	shipping := models.ShippingStatusPending
	if order.ShippingInfo != nil {
		shipping = order.ShippingInfo.Status
	}

	opts := &TransitionOptions{
		OrderTransitions:    AllowedOrderTransitions(order.Status),
		ShippingTransitions: []models.ShippingStatus{},
		Recommendations:     []string{},
	}
	if !order.Status.IsTerminal() {
		opts.ShippingTransitions = AllowedShippingTransitions(shipping)
	}

	switch {
	case shipping == models.ShippingStatusDelivered && order.Status != models.OrderStatusCompleted:
		opts.Recommendations = append(opts.Recommendations, "shipping delivered but order not completed, expect correction")
	case order.Status == models.OrderStatusCompleted && shipping != models.ShippingStatusDelivered:
		opts.Recommendations = append(opts.Recommendations, "order completed but shipping not delivered, expect correction")
	case order.ShippingInfo == nil:
		opts.Recommendations = append(opts.Recommendations, "order has no shipping record, run synchronization")
	case ShippingStatusFor(order.Status) != shipping && !order.Status.IsTerminal():
		opts.Recommendations = append(opts.Recommendations, "order and shipping status disagree, run synchronization")
	}

	switch order.Status {
	case models.OrderStatusPending:
		opts.Recommendations = append(opts.Recommendations, "awaiting payment confirmation")
	case models.OrderStatusPaid:
		opts.Recommendations = append(opts.Recommendations, "ready to ship")
	case models.OrderStatusShipped:
		opts.Recommendations = append(opts.Recommendations, "awaiting delivery confirmation")
	}
	if order.IsSwapOrder && !order.Status.IsTerminal() {
		opts.Recommendations = append(opts.Recommendations, "completion will propagate to the paired swap order")
	}
	return opts
}

// completeSwapSibling drives a sibling swap order to Completed/Delivered. It
// never propagates further. Returns false if the sibling was already final.
func (s *StatusService) completeSwapSibling(ctx context.Context, siblingID uuid.UUID) (bool, error) {
	var changed bool
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)
		sibling, err := s.lockOrder(r, siblingID)
		if err != nil {
			return err
		}
		if sibling.Status.IsTerminal() {
			return nil
		}

		if err := s.setShippingStatus(r, sibling, models.ShippingStatusDelivered); err != nil {
			return err
		}
		if err := s.setOrderStatus(r, sibling, models.OrderStatusCompleted); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func (s *StatusService) authorize(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	if actor.IsStaff() {
		return nil
	}
	order, err := s.loadOrder(repository.New(s.db.WithContext(ctx)), orderID)
	if err != nil {
		return err
	}
	if !order.IsParticipant(actor.UserID) {
		return unauthorized(CodeNotParticipant, "not a participant of order %s", orderID)
	}
	return nil
}

func (s *StatusService) afterCommit(ctx context.Context, order *models.Order, completed bool) {
	if completed && order.IsSwapOrder {
		s.propagator.PropagateCompletion(ctx, order)
	}
}

func (s *StatusService) loadOrder(r *repository.Repositories, orderID uuid.UUID) (*models.Order, error) {
	order, err := r.Orders.FindByID(orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeOrderNotFound, "order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

func (s *StatusService) lockOrder(r *repository.Repositories, orderID uuid.UUID) (*models.Order, error) {
	order, err := r.Orders.FindByIDForUpdate(orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeOrderNotFound, "order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

// setOrderStatus writes the order row and its product side effects. It does
// not consult the transition table; callers decide whether the move is legal.
func (s *StatusService) setOrderStatus(r *repository.Repositories, order *models.Order, to models.OrderStatus) error {
	if order.Status == to {
		return nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.OrderStatusPaid:
		updates["paid_at"] = now
	case models.OrderStatusCompleted:
		updates["completed_at"] = now
	}

	ok, err := r.Orders.UpdateStatus(order, order.Status, updates)
	if err != nil {
		return err
	}
	if !ok {
		return conflict(CodeConcurrentModification, "order %s was modified concurrently", order.ID)
	}

	order.Status = to
	switch to {
	case models.OrderStatusPaid:
		order.PaidAt = &now
	case models.OrderStatusCompleted:
		order.CompletedAt = &now
	}

	if order.IsSwapOrder {
		return nil
	}
	switch to {
	case models.OrderStatusCompleted:
		_, err = r.Products.TransitionStatus(order.ProductID,
			[]models.ProductStatus{models.ProductStatusInProcess, models.ProductStatusAvailable}, models.ProductStatusSold)
	case models.OrderStatusCancelled:
		_, err = r.Products.TransitionStatus(order.ProductID,
			[]models.ProductStatus{models.ProductStatusInProcess}, models.ProductStatusAvailable)
	}
	return err
}

// setShippingStatus writes the shipping row, creating it when the order has
// none yet.
func (s *StatusService) setShippingStatus(r *repository.Repositories, order *models.Order, to models.ShippingStatus) error {
	if order.ShippingInfo == nil {
		order.ShippingInfo = newShippingInfo(order.ID, to, s.shippingFee(order), nil)
		if err := r.Shipping.Create(order.ShippingInfo); err != nil {
			return fmt.Errorf("failed to create shipping info: %w", err)
		}
		return nil
	}
	if order.ShippingInfo.Status == to {
		return nil
	}
	return r.Shipping.UpdateStatus(order.ShippingInfo, to)
}

// enforceConsistency repairs a Completed/Delivered mismatch left behind by a
// transition.
func (s *StatusService) enforceConsistency(r *repository.Repositories, order *models.Order) error {
	shipping := order.ShippingInfo.Status
	if isConsistent(order.Status, shipping) {
		return nil
	}
	if order.Status == models.OrderStatusCompleted {
		return s.setShippingStatus(r, order, models.ShippingStatusDelivered)
	}
	if !order.Status.IsTerminal() {
		return s.setOrderStatus(r, order, models.OrderStatusCompleted)
	}
	return nil
}

func (s *StatusService) shippingFee(order *models.Order) decimal.Decimal {
	return ComputePricing(s.cfg, decimal.Zero, order.IsSwapOrder).ShippingFee
}
