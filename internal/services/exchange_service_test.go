package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/swapmart/backend/internal/models"
)

func (s *ServiceTestSuite) TestCreateExchangeRequest() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
		Message:            "interested?",
	})
	s.Require().NoError(err)
	s.Equal(models.ExchangeStatusPending, request.Status)
	s.Equal(alice.ID, request.RequesterID)

	loaded, err := s.exchange.GetExchangeRequest(s.ctx, Actor{UserID: bob.ID}, request.ID)
	s.Require().NoError(err)
	s.Require().Len(loaded.History, 1)
	s.Equal(models.ExchangeStatusPending, loaded.History[0].Status)
	s.Equal("interested?", loaded.History[0].Message)
}

func (s *ServiceTestSuite) TestCreateExchangeRequestRejectsInvalidInput() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	_, err := s.exchange.CreateExchangeRequest(s.ctx, bob.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.requireKind(err, ErrUnauthorized, CodeNotProductOwner)

	_, err = s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: book.ID,
	})
	s.requireKind(err, ErrValidation, CodeValidationFailed)

	_, err = s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: uuid.New(),
	})
	s.requireKind(err, ErrNotFound, CodeProductNotFound)
}

func (s *ServiceTestSuite) TestCreateExchangeRequestRejectsDuplicatePending() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	_, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	_, err = s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.requireKind(err, ErrConflict, CodeExchangeDuplicate)

	// The reverse direction is the same deal.
	_, err = s.exchange.CreateExchangeRequest(s.ctx, bob.ID, &CreateExchangeRequest{
		OfferedProductID:   lamp.ID,
		RequestedProductID: book.ID,
	})
	s.requireKind(err, ErrConflict, CodeExchangeDuplicate)
}

func (s *ServiceTestSuite) TestApproveCreatesLinkedSwapOrders() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	carol := s.createUser("carol")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	// Carol's wishlist entries disappear once the products are locked.
	s.Require().NoError(s.products.AddToWishlist(s.ctx, carol.ID, book.ID))
	s.Require().NoError(s.products.AddToWishlist(s.ctx, carol.ID, lamp.ID))

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	approved, err := s.exchange.Approve(s.ctx, request.ID, bob.ID)
	s.Require().NoError(err)

	s.Equal(models.ExchangeStatusAccepted, approved.Status)
	s.Require().NotNil(approved.ProcessedAt)
	s.Require().NotNil(approved.ProcessedBy)
	s.Equal(bob.ID, *approved.ProcessedBy)
	s.Require().Len(approved.History, 2)
	s.Equal(models.ExchangeStatusAccepted, approved.History[1].Status)

	offeredOrder := s.reloadOrder(*approved.OrderForOfferedProductID)
	requestedOrder := s.reloadOrder(*approved.OrderForRequestedProductID)

	s.Equal(book.ID, offeredOrder.ProductID)
	s.Equal(bob.ID, offeredOrder.BuyerID)
	s.Equal(alice.ID, offeredOrder.SellerID)
	s.Equal(lamp.ID, requestedOrder.ProductID)
	s.Equal(alice.ID, requestedOrder.BuyerID)
	s.Equal(bob.ID, requestedOrder.SellerID)

	for _, order := range []*models.Order{offeredOrder, requestedOrder} {
		s.True(order.IsSwapOrder)
		s.Equal(models.OrderStatusPending, order.Status)
		s.True(order.PlatformFee.IsZero())
		s.Equal("50", order.TotalAmount.String())
		s.Require().NotNil(order.ShippingInfo)
		s.Equal(models.ShippingStatusPending, order.ShippingInfo.Status)
	}

	s.Equal(models.ProductStatusTrading, s.reloadProduct(book.ID).Status)
	s.Equal(models.ProductStatusTrading, s.reloadProduct(lamp.ID).Status)

	var wishlisted int64
	s.Require().NoError(s.db.Model(&models.WishlistItem{}).Count(&wishlisted).Error)
	s.Zero(wishlisted)
}

func (s *ServiceTestSuite) TestApproveTwiceIsConflict() {
	pair := s.approvedSwap()

	_, err := s.exchange.Approve(s.ctx, pair.request.ID, pair.bob.ID)
	s.requireKind(err, ErrConflict, CodeExchangeAlreadyProcessed)

	var orders int64
	s.Require().NoError(s.db.Model(&models.Order{}).Count(&orders).Error)
	s.EqualValues(2, orders)
}

func (s *ServiceTestSuite) TestApproveRequiresRequestedProductOwner() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	mallory := s.createUser("mallory")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	for _, approver := range []uuid.UUID{alice.ID, mallory.ID} {
		_, err = s.exchange.Approve(s.ctx, request.ID, approver)
		s.requireKind(err, ErrUnauthorized, CodeNotProductOwner)
	}

	_, err = s.exchange.Approve(s.ctx, uuid.New(), bob.ID)
	s.requireKind(err, ErrNotFound, CodeExchangeNotFound)
}

func (s *ServiceTestSuite) TestApproveRollsBackWhenProductIsGone() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	// The lamp sold in the meantime.
	s.Require().NoError(s.db.Model(&models.Product{}).Where("id = ?", lamp.ID).
		Update("status", models.ProductStatusSold).Error)

	_, err = s.exchange.Approve(s.ctx, request.ID, bob.ID)
	s.requireKind(err, ErrConflict, CodeProductUnavailable)

	// Nothing from the failed approval is visible.
	s.Equal(models.ProductStatusAvailable, s.reloadProduct(book.ID).Status)
	var orders int64
	s.Require().NoError(s.db.Model(&models.Order{}).Count(&orders).Error)
	s.Zero(orders)

	var stored models.ExchangeRequest
	s.Require().NoError(s.db.First(&stored, "id = ?", request.ID).Error)
	s.Equal(models.ExchangeStatusPending, stored.Status)
	s.Nil(stored.OrderForOfferedProductID)
}

func (s *ServiceTestSuite) TestConcurrentApprovalsCreateOnePair() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	const callers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.exchange.Approve(context.Background(), request.ID, bob.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case hasCode(err, CodeExchangeAlreadyProcessed):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(callers-1, conflicts)

	var orders int64
	s.Require().NoError(s.db.Model(&models.Order{}).Count(&orders).Error)
	s.EqualValues(2, orders)
}

func (s *ServiceTestSuite) TestApproveSurvivesCancelledContext() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	approved, err := s.exchange.Approve(ctx, request.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(models.ExchangeStatusAccepted, approved.Status)
}

func (s *ServiceTestSuite) TestRejectRestoresTradingProducts() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	lamp := s.createProduct(bob, "35.00")

	request, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID:   book.ID,
		RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)

	// A stale Trading flag with no accepted request behind it.
	s.Require().NoError(s.db.Model(&models.Product{}).Where("id = ?", lamp.ID).
		Update("status", models.ProductStatusTrading).Error)

	rejected, err := s.exchange.Reject(s.ctx, request.ID, bob.ID, "not today")
	s.Require().NoError(err)
	s.Equal(models.ExchangeStatusRejected, rejected.Status)
	s.Nil(rejected.OrderForOfferedProductID)
	s.Require().Len(rejected.History, 2)
	s.Equal("not today", rejected.History[1].Message)

	s.Equal(models.ProductStatusAvailable, s.reloadProduct(lamp.ID).Status)
	s.Equal(models.ProductStatusAvailable, s.reloadProduct(book.ID).Status)

	_, err = s.exchange.Reject(s.ctx, request.ID, bob.ID, "")
	s.requireKind(err, ErrConflict, CodeExchangeAlreadyProcessed)

	_, err = s.exchange.Approve(s.ctx, request.ID, bob.ID)
	s.requireKind(err, ErrConflict, CodeExchangeAlreadyProcessed)
}

func (s *ServiceTestSuite) TestGetExchangeRequestVisibility() {
	pair := s.approvedSwap()
	stranger := s.createUser("stranger")
	admin := s.createUserOfType("root", models.UserTypeAdmin)

	_, err := s.exchange.GetExchangeRequest(s.ctx, Actor{UserID: stranger.ID, UserType: models.UserTypeMember}, pair.request.ID)
	s.requireKind(err, ErrUnauthorized, CodeInsufficientPermission)

	for _, actor := range []Actor{
		{UserID: pair.alice.ID, UserType: models.UserTypeMember},
		{UserID: pair.bob.ID, UserType: models.UserTypeMember},
		{UserID: admin.ID, UserType: models.UserTypeAdmin},
	} {
		request, err := s.exchange.GetExchangeRequest(s.ctx, actor, pair.request.ID)
		s.Require().NoError(err)
		s.Equal(pair.request.ID, request.ID)
	}
}

func (s *ServiceTestSuite) TestListExchangeRequests() {
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	book := s.createProduct(alice, "20.00")
	pen := s.createProduct(alice, "3.00")
	lamp := s.createProduct(bob, "35.00")

	first, err := s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID: book.ID, RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)
	_, err = s.exchange.CreateExchangeRequest(s.ctx, alice.ID, &CreateExchangeRequest{
		OfferedProductID: pen.ID, RequestedProductID: lamp.ID,
	})
	s.Require().NoError(err)
	_, err = s.exchange.Reject(s.ctx, first.ID, bob.ID, "")
	s.Require().NoError(err)

	params := ExchangeListParams{Role: "sent"}
	params.Page, params.Limit = 1, 10

	sent, total, err := s.exchange.ListExchangeRequests(s.ctx, alice.ID, params)
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Len(sent, 2)

	params.Role = "received"
	received, total, err := s.exchange.ListExchangeRequests(s.ctx, alice.ID, params)
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(received)

	params.Status = models.ExchangeStatusPending
	pending, total, err := s.exchange.ListExchangeRequests(s.ctx, bob.ID, params)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Require().Len(pending, 1)
	s.Equal(pen.ID, pending[0].OfferedProductID)
	s.Require().NotNil(pending[0].RequestedProduct)

	params.Status = "bogus"
	_, _, err = s.exchange.ListExchangeRequests(s.ctx, bob.ID, params)
	s.requireKind(err, ErrValidation, CodeInvalidStatus)
}
