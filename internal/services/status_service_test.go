package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/swapmart/backend/internal/models"
)

// regularOrder places a pending purchase between two fresh users.
func (s *ServiceTestSuite) regularOrder() (*models.Order, *models.User, *models.User) {
	suffix := uuid.NewString()[:8]
	seller := s.createUser("seller-" + suffix)
	buyer := s.createUser("buyer-" + suffix)
	product := s.createProduct(seller, "40.00")

	order, err := s.orders.CreateOrder(s.ctx, buyer.ID, &CreateOrderRequest{ProductID: product.ID})
	s.Require().NoError(err)
	return order, seller, buyer
}

// drift writes statuses straight to the tables, bypassing every rule.
func (s *ServiceTestSuite) drift(orderID uuid.UUID, order models.OrderStatus, shipping models.ShippingStatus) {
	s.Require().NoError(s.db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", order).Error)
	s.Require().NoError(s.db.Model(&models.ShippingInfo{}).Where("order_id = ?", orderID).Update("status", shipping).Error)
}

func (s *ServiceTestSuite) TestOrderLifecycleDrivesShipping() {
	order, _, _ := s.regularOrder()

	paid, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusPaid)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPaid, paid.Status)
	s.NotNil(paid.PaidAt)
	s.Equal(models.ShippingStatusPending, paid.ShippingInfo.Status)

	shipped, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusShipped)
	s.Require().NoError(err)
	s.Equal(models.ShippingStatusInTransit, shipped.ShippingInfo.Status)

	completed, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusCompleted)
	s.Require().NoError(err)
	s.NotNil(completed.CompletedAt)

	stored := s.reloadOrder(order.ID)
	s.Equal(models.OrderStatusCompleted, stored.Status)
	s.Equal(models.ShippingStatusDelivered, stored.ShippingInfo.Status)
	s.Equal(models.ProductStatusSold, s.reloadProduct(order.ProductID).Status)
}

func (s *ServiceTestSuite) TestInvalidOrderTransitionsLeaveStateUntouched() {
	order, _, _ := s.regularOrder()

	_, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusCompleted)
	s.requireKind(err, ErrValidation, CodeInvalidTransition)

	_, err = s.statuses.TransitionOrderStatus(s.ctx, order.ID, "lost")
	s.requireKind(err, ErrValidation, CodeInvalidStatus)

	_, err = s.statuses.TransitionOrderStatus(s.ctx, uuid.New(), models.OrderStatusPaid)
	s.requireKind(err, ErrNotFound, CodeOrderNotFound)

	stored := s.reloadOrder(order.ID)
	s.Equal(models.OrderStatusPending, stored.Status)
	s.Equal(models.ShippingStatusPending, stored.ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestCancelReleasesProduct() {
	order, _, _ := s.regularOrder()

	cancelled, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusCancelled)
	s.Require().NoError(err)
	s.Equal(models.ShippingStatusFailed, cancelled.ShippingInfo.Status)
	s.Equal(models.ProductStatusAvailable, s.reloadProduct(order.ProductID).Status)

	_, err = s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusPaid)
	s.requireKind(err, ErrValidation, CodeInvalidTransition)
}

func (s *ServiceTestSuite) TestShippingDeliveredCompletesOrder() {
	order, _, _ := s.regularOrder()
	_, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusPaid)
	s.Require().NoError(err)

	inTransit, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusInTransit)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusShipped, inTransit.Status)

	delivered, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusCompleted, delivered.Status)
	s.Equal(models.ShippingStatusDelivered, delivered.ShippingInfo.Status)
	s.Equal(models.ProductStatusSold, s.reloadProduct(order.ProductID).Status)
}

func (s *ServiceTestSuite) TestShippingFailedCancelsOrder() {
	order, _, _ := s.regularOrder()

	failed, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusFailed)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusCancelled, failed.Status)
	s.Equal(models.ProductStatusAvailable, s.reloadProduct(order.ProductID).Status)
}

func (s *ServiceTestSuite) TestShippingInTransitOnUnpaidOrderKeepsOrderPending() {
	order, _, _ := s.regularOrder()

	updated, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusInTransit)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, updated.Status)
	s.Equal(models.ShippingStatusInTransit, updated.ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestShippingChangesRejectedOnTerminalOrder() {
	order, _, _ := s.regularOrder()
	_, err := s.statuses.TransitionOrderStatus(s.ctx, order.ID, models.OrderStatusCancelled)
	s.Require().NoError(err)

	_, err = s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusPending)
	s.requireKind(err, ErrValidation, CodeInvalidTransition)

	_, err = s.statuses.TransitionShippingStatus(s.ctx, order.ID, "teleported")
	s.requireKind(err, ErrValidation, CodeInvalidStatus)
}

func (s *ServiceTestSuite) TestShippingTransitionCreatesMissingRecord() {
	order, _, _ := s.regularOrder()
	s.Require().NoError(s.db.Unscoped().Where("order_id = ?", order.ID).Delete(&models.ShippingInfo{}).Error)

	updated, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusInTransit)
	s.Require().NoError(err)
	s.Require().NotNil(updated.ShippingInfo)
	s.Equal(models.ShippingStatusInTransit, s.reloadOrder(order.ID).ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestUpdateOrderStatusAuthorization() {
	order, seller, _ := s.regularOrder()
	stranger := s.createUser("stranger")
	courier := s.createUserOfType("courier", models.UserTypeDelivery)

	_, err := s.statuses.UpdateOrderStatus(s.ctx, Actor{UserID: stranger.ID, UserType: models.UserTypeMember}, order.ID, models.OrderStatusPaid)
	s.requireKind(err, ErrUnauthorized, CodeNotParticipant)

	_, err = s.statuses.UpdateOrderStatus(s.ctx, Actor{UserID: courier.ID, UserType: models.UserTypeDelivery}, order.ID, models.OrderStatusPaid)
	s.Require().NoError(err)

	_, err = s.statuses.UpdateOrderStatus(s.ctx, Actor{UserID: seller.ID, UserType: models.UserTypeMember}, order.ID, models.OrderStatusShipped)
	s.Require().NoError(err)

	updated, err := s.statuses.UpdateShippingStatus(s.ctx, Actor{UserID: courier.ID, UserType: models.UserTypeDelivery}, order.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusCompleted, updated.Status)

	_, err = s.statuses.UpdateShippingStatus(s.ctx, Actor{UserID: stranger.ID, UserType: models.UserTypeMember}, order.ID, models.ShippingStatusPending)
	s.requireKind(err, ErrUnauthorized, CodeNotParticipant)
}

func (s *ServiceTestSuite) TestParticipantsCannotMarkOrderPaid() {
	order, seller, buyer := s.regularOrder()

	for _, user := range []*models.User{buyer, seller} {
		_, err := s.statuses.UpdateOrderStatus(s.ctx, Actor{UserID: user.ID, UserType: models.UserTypeMember}, order.ID, models.OrderStatusPaid)
		s.requireKind(err, ErrUnauthorized, CodePaymentRequired)
	}

	stored := s.reloadOrder(order.ID)
	s.Equal(models.OrderStatusPending, stored.Status)
	s.Nil(stored.PaidAt)

	_, err := s.statuses.UpdateOrderStatus(s.ctx, Actor{UserID: buyer.ID, UserType: models.UserTypeMember}, order.ID, models.OrderStatusCancelled)
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) TestSwapCompletionPropagatesToSibling() {
	pair := s.approvedSwap()

	for _, status := range []models.OrderStatus{models.OrderStatusPaid, models.OrderStatusShipped, models.OrderStatusCompleted} {
		_, err := s.statuses.TransitionOrderStatus(s.ctx, pair.aliceOrder.ID, status)
		s.Require().NoError(err)
	}

	sibling := s.reloadOrder(pair.bobOrder.ID)
	s.Equal(models.OrderStatusCompleted, sibling.Status)
	s.Equal(models.ShippingStatusDelivered, sibling.ShippingInfo.Status)
	s.NotNil(sibling.CompletedAt)

	// Swap products stay Trading; the exchange, not a sale, owns them.
	s.Equal(models.ProductStatusTrading, s.reloadProduct(pair.aliceItem.ID).Status)
}

func (s *ServiceTestSuite) TestSwapDeliveryPropagatesToSibling() {
	pair := s.approvedSwap()

	_, err := s.statuses.TransitionOrderStatus(s.ctx, pair.bobOrder.ID, models.OrderStatusPaid)
	s.Require().NoError(err)

	completed, err := s.statuses.TransitionShippingStatus(s.ctx, pair.bobOrder.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusCompleted, completed.Status)

	sibling := s.reloadOrder(pair.aliceOrder.ID)
	s.Equal(models.OrderStatusCompleted, sibling.Status)
	s.Equal(models.ShippingStatusDelivered, sibling.ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestSwapPropagationLeavesCancelledSiblingAlone() {
	pair := s.approvedSwap()

	_, err := s.statuses.TransitionOrderStatus(s.ctx, pair.bobOrder.ID, models.OrderStatusCancelled)
	s.Require().NoError(err)

	_, err = s.statuses.TransitionShippingStatus(s.ctx, pair.aliceOrder.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusCompleted, s.reloadOrder(pair.aliceOrder.ID).Status)
	sibling := s.reloadOrder(pair.bobOrder.ID)
	s.Equal(models.OrderStatusCancelled, sibling.Status)
	s.Equal(models.ShippingStatusFailed, sibling.ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestRegularOrderCompletionDoesNotPropagate() {
	pair := s.approvedSwap()
	order, _, _ := s.regularOrder()

	_, err := s.statuses.TransitionShippingStatus(s.ctx, order.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusPending, s.reloadOrder(pair.aliceOrder.ID).Status)
	s.Equal(models.OrderStatusPending, s.reloadOrder(pair.bobOrder.ID).Status)
}

// unlinkedSwapPair creates two swap orders with no exchange request linking
// them, buyer and seller reversed.
func (s *ServiceTestSuite) unlinkedSwapPair(gap time.Duration) (*models.Order, *models.Order) {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	now := time.Now().UTC()
	first := &models.Order{ProductID: lamp.ID, BuyerID: alice.ID, SellerID: bob.ID, IsSwapOrder: true, Status: models.OrderStatusPending}
	first.CreatedAt = now
	second := &models.Order{ProductID: book.ID, BuyerID: bob.ID, SellerID: alice.ID, IsSwapOrder: true, Status: models.OrderStatusPending}
	second.CreatedAt = now.Add(gap)

	for _, order := range []*models.Order{first, second} {
		s.Require().NoError(s.db.Create(order).Error)
		s.Require().NoError(s.db.Create(&models.ShippingInfo{OrderID: order.ID, Status: models.ShippingStatusPending}).Error)
	}
	return first, second
}

func (s *ServiceTestSuite) TestSwapFallbackMatchingWithinWindow() {
	first, second := s.unlinkedSwapPair(2 * time.Minute)

	_, err := s.statuses.TransitionShippingStatus(s.ctx, first.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusCompleted, s.reloadOrder(second.ID).Status)
}

func (s *ServiceTestSuite) TestSwapFallbackMatchingOutsideWindow() {
	first, second := s.unlinkedSwapPair(time.Hour)

	_, err := s.statuses.TransitionShippingStatus(s.ctx, first.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusPending, s.reloadOrder(second.ID).Status)
}

func (s *ServiceTestSuite) TestSwapFallbackMatchingDisabled() {
	s.cfg.Marketplace.SwapFallbackMatching = false
	s.rebuild()
	first, second := s.unlinkedSwapPair(time.Minute)

	_, err := s.statuses.TransitionShippingStatus(s.ctx, first.ID, models.ShippingStatusDelivered)
	s.Require().NoError(err)

	s.Equal(models.OrderStatusPending, s.reloadOrder(second.ID).Status)
}

func (s *ServiceTestSuite) TestReconcile() {
	tests := []struct {
		name         string
		order        models.OrderStatus
		shipping     models.ShippingStatus
		wantOrder    models.OrderStatus
		wantShipping models.ShippingStatus
		changed      bool
	}{
		{"completed order forces delivery", models.OrderStatusCompleted, models.ShippingStatusInTransit, models.OrderStatusCompleted, models.ShippingStatusDelivered, true},
		{"cancelled order fails shipping", models.OrderStatusCancelled, models.ShippingStatusPending, models.OrderStatusCancelled, models.ShippingStatusFailed, true},
		{"delivery completes order", models.OrderStatusShipped, models.ShippingStatusDelivered, models.OrderStatusCompleted, models.ShippingStatusDelivered, true},
		{"shipped order puts shipping in transit", models.OrderStatusShipped, models.ShippingStatusPending, models.OrderStatusShipped, models.ShippingStatusInTransit, true},
		{"paid order resets shipping", models.OrderStatusPaid, models.ShippingStatusFailed, models.OrderStatusPaid, models.ShippingStatusPending, true},
		{"consistent pair is left alone", models.OrderStatusPaid, models.ShippingStatusPending, models.OrderStatusPaid, models.ShippingStatusPending, false},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			order, _, _ := s.regularOrder()
			s.drift(order.ID, tt.order, tt.shipping)

			changed, err := s.statuses.Reconcile(s.ctx, order.ID)
			s.Require().NoError(err)
			s.Equal(tt.changed, changed)

			stored := s.reloadOrder(order.ID)
			s.Equal(tt.wantOrder, stored.Status)
			s.Equal(tt.wantShipping, stored.ShippingInfo.Status)

			again, err := s.statuses.Reconcile(s.ctx, order.ID)
			s.Require().NoError(err)
			s.False(again)
		})
	}
}

func (s *ServiceTestSuite) TestReconcileCreatesMissingShipping() {
	order, _, _ := s.regularOrder()
	s.Require().NoError(s.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderStatusShipped).Error)
	s.Require().NoError(s.db.Unscoped().Where("order_id = ?", order.ID).Delete(&models.ShippingInfo{}).Error)

	changed, err := s.statuses.Reconcile(s.ctx, order.ID)
	s.Require().NoError(err)
	s.True(changed)

	stored := s.reloadOrder(order.ID)
	s.Require().NotNil(stored.ShippingInfo)
	s.Equal(models.ShippingStatusInTransit, stored.ShippingInfo.Status)
}

func (s *ServiceTestSuite) TestReconcileCompletionPropagates() {
	pair := s.approvedSwap()
	s.drift(pair.aliceOrder.ID, models.OrderStatusShipped, models.ShippingStatusDelivered)

	changed, err := s.statuses.Reconcile(s.ctx, pair.aliceOrder.ID)
	s.Require().NoError(err)
	s.True(changed)

	s.Equal(models.OrderStatusCompleted, s.reloadOrder(pair.bobOrder.ID).Status)
}

func (s *ServiceTestSuite) TestSynchronizeOrderStatusAuthorization() {
	order, _, buyer := s.regularOrder()
	stranger := s.createUser("stranger")
	s.drift(order.ID, models.OrderStatusShipped, models.ShippingStatusPending)

	_, err := s.statuses.SynchronizeOrderStatus(s.ctx, Actor{UserID: stranger.ID, UserType: models.UserTypeMember}, order.ID)
	s.requireKind(err, ErrUnauthorized, CodeNotParticipant)

	changed, err := s.statuses.SynchronizeOrderStatus(s.ctx, Actor{UserID: buyer.ID, UserType: models.UserTypeMember}, order.ID)
	s.Require().NoError(err)
	s.True(changed)
}

func (s *ServiceTestSuite) TestGetAvailableTransitions() {
	pair := s.approvedSwap()
	actor := Actor{UserID: pair.alice.ID, UserType: models.UserTypeMember}

	opts, err := s.statuses.GetAvailableTransitions(s.ctx, actor, pair.aliceOrder.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]models.OrderStatus{models.OrderStatusPaid, models.OrderStatusCancelled}, opts.OrderTransitions)
	s.Contains(opts.ShippingTransitions, models.ShippingStatusInTransit)
	s.Contains(opts.Recommendations, "awaiting payment confirmation")
	s.Contains(opts.Recommendations, "completion will propagate to the paired swap order")

	s.drift(pair.aliceOrder.ID, models.OrderStatusShipped, models.ShippingStatusDelivered)
	opts, err = s.statuses.GetAvailableTransitions(s.ctx, actor, pair.aliceOrder.ID)
	s.Require().NoError(err)
	s.Contains(opts.Recommendations, "shipping delivered but order not completed, expect correction")

	_, err = s.statuses.TransitionOrderStatus(s.ctx, pair.aliceOrder.ID, models.OrderStatusCompleted)
	s.Require().NoError(err)
	opts, err = s.statuses.GetAvailableTransitions(s.ctx, actor, pair.aliceOrder.ID)
	s.Require().NoError(err)
	s.Empty(opts.OrderTransitions)
	s.Empty(opts.ShippingTransitions)

	stranger := s.createUser("stranger")
	_, err = s.statuses.GetAvailableTransitions(s.ctx, Actor{UserID: stranger.ID}, pair.aliceOrder.ID)
	s.requireKind(err, ErrUnauthorized, CodeNotParticipant)
}
