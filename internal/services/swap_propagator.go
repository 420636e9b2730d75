// internal/services/swap_propagator.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
)

type siblingCompleter interface {
	completeSwapSibling(ctx context.Context, siblingID uuid.UUID) (bool, error)
}

// SwapPropagator completes the other order of a swap pair once one of them
// completes.
type SwapPropagator struct {
	db        *gorm.DB
	cfg       config.MarketplaceConfig
	completer siblingCompleter
}

func NewSwapPropagator(db *gorm.DB, cfg config.MarketplaceConfig, completer siblingCompleter) *SwapPropagator {
	return &SwapPropagator{
		db:        db,
		cfg:       cfg,
		completer: completer,
	}
}

// PropagateCompletion drives the sibling of a completed swap order to
// Completed/Delivered. Failures are logged and never returned: the caller's
// own transition has already committed.
func (p *SwapPropagator) PropagateCompletion(ctx context.Context, order *models.Order) {
	if !order.IsSwapOrder || order.Status != models.OrderStatusCompleted {
		return
	}

	logger := logrus.WithField("order_id", order.ID)
	siblingID, err := p.findSibling(ctx, order)
	if err != nil {
		logger.WithError(err).Warn("Swap sibling lookup failed, completion not propagated")
		return
	}

	changed, err := p.completer.completeSwapSibling(ctx, siblingID)
	if err != nil {
		logger.WithError(err).WithField("sibling_order_id", siblingID).Error("Failed to complete swap sibling")
		return
	}
	if changed {
		logger.WithField("sibling_order_id", siblingID).Info("Swap completion propagated")
	}
}

// findSibling resolves the sibling through the exchange request that created
// the pair. Only when no request links the order, and fallback matching is
// enabled, does it guess from swap orders created around the same time with
// buyer and seller reversed.
func (p *SwapPropagator) findSibling(ctx context.Context, order *models.Order) (uuid.UUID, error) {
	r := repository.New(p.db.WithContext(ctx))

	request, err := r.Exchanges.FindByOrderID(order.ID)
	switch {
	case err == nil:
		if siblingID, ok := request.SiblingOrderID(order.ID); ok {
			return siblingID, nil
		}
		return uuid.Nil, notFound(CodeSwapSiblingNotFound, "exchange request %s links only one order", request.ID)
	case !repository.IsNotFound(err):
		return uuid.Nil, fmt.Errorf("failed to load exchange request: %w", err)
	}

	if !p.cfg.SwapFallbackMatching {
		return uuid.Nil, notFound(CodeSwapSiblingNotFound, "no exchange request links order %s", order.ID)
	}

	window := time.Duration(p.cfg.SwapSiblingWindowMinutes) * time.Minute
	candidates, err := r.Orders.FindSwapSiblingCandidates(order, window)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to search swap sibling: %w", err)
	}
	if len(candidates) == 0 {
		return uuid.Nil, notFound(CodeSwapSiblingNotFound, "no swap sibling found for order %s", order.ID)
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if absDuration(candidate.CreatedAt.Sub(order.CreatedAt)) < absDuration(best.CreatedAt.Sub(order.CreatedAt)) {
			best = candidate
		}
	}

	logrus.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"sibling_order_id": best.ID,
	}).Warn("Swap sibling matched by time window")
	return best.ID, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
