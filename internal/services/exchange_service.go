// internal/services/exchange_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/database"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
	"github.com/swapmart/backend/internal/utils"
)

// ExchangeService owns the Pending -> Accepted/Rejected lifecycle of exchange
// requests and mints the two swap orders on approval.
type ExchangeService struct {
	db     *gorm.DB
	orders *OrderService
}

type CreateExchangeRequest struct {
	OfferedProductID   uuid.UUID `json:"offered_product_id" validate:"required"`
	RequestedProductID uuid.UUID `json:"requested_product_id" validate:"required"`
	Message            string    `json:"message" validate:"max=1000"`
}

type RejectExchangeRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type ExchangeListParams struct {
	utils.PaginationParams
	Role   string                `json:"role"`
	Status models.ExchangeStatus `json:"status"`
}

func NewExchangeService(db *gorm.DB, orders *OrderService) *ExchangeService {
	return &ExchangeService{
		db:     db,
		orders: orders,
	}
}

// CreateExchangeRequest offers one of the requester's products for someone
// else's product.
func (s *ExchangeService) CreateExchangeRequest(ctx context.Context, requesterID uuid.UUID, req *CreateExchangeRequest) (*models.ExchangeRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid exchange request", err)
	}
	if req.OfferedProductID == req.RequestedProductID {
		return nil, invalid(CodeValidationFailed, "cannot exchange a product for itself")
	}

	var request *models.ExchangeRequest
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)

		offered, err := findProduct(r, req.OfferedProductID)
		if err != nil {
			return err
		}
		requested, err := findProduct(r, req.RequestedProductID)
		if err != nil {
			return err
		}

		if offered.OwnerID != requesterID {
			return unauthorized(CodeNotProductOwner, "you do not own product %s", offered.ID)
		}
		if requested.OwnerID == requesterID {
			return invalid(CodeValidationFailed, "cannot request your own product")
		}
		for _, p := range []*models.Product{offered, requested} {
			if p.Status != models.ProductStatusAvailable {
				return conflict(CodeProductUnavailable, "product %s is %s", p.ID, p.Status)
			}
		}

		for _, pair := range [][2]uuid.UUID{{offered.ID, requested.ID}, {requested.ID, offered.ID}} {
			_, err := r.Exchanges.FindPending(pair[0], pair[1])
			if err == nil {
				return conflict(CodeExchangeDuplicate, "a pending exchange request already exists for these products")
			}
			if !repository.IsNotFound(err) {
				return fmt.Errorf("failed to check pending requests: %w", err)
			}
		}

		now := time.Now().UTC()
		request = &models.ExchangeRequest{
			RequesterID:        requesterID,
			OfferedProductID:   offered.ID,
			RequestedProductID: requested.ID,
			Status:             models.ExchangeStatusPending,
			Message:            req.Message,
			RequestedAt:        now,
		}
		if err := r.Exchanges.Insert(request); err != nil {
			if repository.IsDuplicateKey(err) {
				return conflict(CodeExchangeDuplicate, "a pending exchange request already exists for these products")
			}
			return fmt.Errorf("failed to create exchange request: %w", err)
		}

		return r.Exchanges.AppendHistory(&models.ExchangeStatusHistory{
			RequestID:       request.ID,
			Status:          models.ExchangeStatusPending,
			ChangedByUserID: requesterID,
			ChangedAt:       now,
			Message:         req.Message,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"exchange_request_id":  request.ID,
		"offered_product_id":   request.OfferedProductID,
		"requested_product_id": request.RequestedProductID,
	}).Info("Exchange request created")
	return request, nil
}

// Approve accepts a pending request in one transaction: both products move to
// Trading, leave every wishlist, and get one swap order each. The transaction
// ignores cancellation of ctx once started.
func (s *ExchangeService) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.ExchangeRequest, error) {
	logger := logrus.WithFields(logrus.Fields{
		"exchange_request_id": requestID,
		"approver_id":         approverID,
	})

	db := s.db.WithContext(context.WithoutCancel(ctx))
	err := database.WithTransaction(db, func(tx *gorm.DB) error {
		r := repository.New(tx)

		request, requested, err := s.lockPending(r, requestID, approverID)
		if err != nil {
			return err
		}

		for _, productID := range []uuid.UUID{request.OfferedProductID, requested.ID} {
			ok, err := r.Products.TransitionStatus(productID,
				[]models.ProductStatus{models.ProductStatusAvailable}, models.ProductStatusTrading)
			if err != nil {
				return err
			}
			if !ok {
				return conflict(CodeProductUnavailable, "product %s is no longer available", productID)
			}
			if err := purgeFromWishlists(r, productID); err != nil {
				return err
			}
		}

		// The approver receives the offered product, the requester receives
		// the requested one.
		offeredOrder, err := s.orders.createOrder(r, request.OfferedProductID, approverID, nil, true)
		if err != nil {
			return fmt.Errorf("failed to create order for offered product: %w", err)
		}
		requestedOrder, err := s.orders.createOrder(r, request.RequestedProductID, request.RequesterID, nil, true)
		if err != nil {
			return fmt.Errorf("failed to create order for requested product: %w", err)
		}

		now := time.Now().UTC()
		request.Status = models.ExchangeStatusAccepted
		request.ProcessedAt = &now
		request.ProcessedBy = &approverID
		request.OrderForOfferedProductID = &offeredOrder.ID
		request.OrderForRequestedProductID = &requestedOrder.ID

		ok, err := r.Exchanges.MarkProcessed(request)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeExchangeAlreadyProcessed, "exchange request %s was already processed", requestID)
		}

		return r.Exchanges.AppendHistory(&models.ExchangeStatusHistory{
			RequestID:       request.ID,
			Status:          models.ExchangeStatusAccepted,
			ChangedByUserID: approverID,
			ChangedAt:       now,
		})
	})
	if err != nil {
		if _, ok := AsServiceError(err); !ok {
			logger.WithError(err).Error("Exchange approval rolled back")
		}
		return nil, err
	}

	logger.Info("Exchange request approved")
	return s.load(context.WithoutCancel(ctx), requestID)
}

// Reject declines a pending request. Products locked in Trading go back to
// Available unless another accepted request still holds them.
func (s *ExchangeService) Reject(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*models.ExchangeRequest, error) {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		r := repository.New(tx)

		request, requested, err := s.lockPending(r, requestID, approverID)
		if err != nil {
			return err
		}

		for _, productID := range []uuid.UUID{request.OfferedProductID, requested.ID} {
			held, err := r.Exchanges.CountAcceptedReferencing(productID, request.ID)
			if err != nil {
				return fmt.Errorf("failed to check exchanges for product: %w", err)
			}
			if held > 0 {
				continue
			}
			if _, err := r.Products.TransitionStatus(productID,
				[]models.ProductStatus{models.ProductStatusTrading}, models.ProductStatusAvailable); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		request.Status = models.ExchangeStatusRejected
		request.ProcessedAt = &now
		request.ProcessedBy = &approverID

		ok, err := r.Exchanges.MarkProcessed(request)
		if err != nil {
			return err
		}
		if !ok {
			return conflict(CodeExchangeAlreadyProcessed, "exchange request %s was already processed", requestID)
		}

		return r.Exchanges.AppendHistory(&models.ExchangeStatusHistory{
			RequestID:       request.ID,
			Status:          models.ExchangeStatusRejected,
			ChangedByUserID: approverID,
			ChangedAt:       now,
			Message:         reason,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("exchange_request_id", requestID).Info("Exchange request rejected")
	return s.load(ctx, requestID)
}

// GetExchangeRequest returns the request with its history to either party,
// or to staff.
func (s *ExchangeService) GetExchangeRequest(ctx context.Context, actor Actor, requestID uuid.UUID) (*models.ExchangeRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() || request.RequesterID == actor.UserID {
		return request, nil
	}
	if request.RequestedProduct != nil && request.RequestedProduct.OwnerID == actor.UserID {
		return request, nil
	}
	return nil, unauthorized(CodeInsufficientPermission, "not a party to exchange request %s", requestID)
}

func (s *ExchangeService) ListExchangeRequests(ctx context.Context, userID uuid.UUID, params ExchangeListParams) ([]models.ExchangeRequest, int64, error) {
	if params.Status != "" &&
		params.Status != models.ExchangeStatusPending &&
		params.Status != models.ExchangeStatusAccepted &&
		params.Status != models.ExchangeStatusRejected {
		return nil, 0, invalid(CodeInvalidStatus, "unknown exchange status %q", params.Status)
	}

	if params.Limit < 1 {
		params.Limit = 20
	}

	requests, total, err := repository.New(s.db.WithContext(ctx)).Exchanges.ListForUser(userID, repository.ExchangeFilter{
		Role:   params.Role,
		Status: params.Status,
		Offset: params.Offset(),
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exchange requests: %w", err)
	}
	return requests, total, nil
}

// lockPending loads and locks the request and checks that it is still
// pending and that approverID owns the requested product.
func (s *ExchangeService) lockPending(r *repository.Repositories, requestID, approverID uuid.UUID) (*models.ExchangeRequest, *models.Product, error) {
	request, err := r.Exchanges.FindByIDForUpdate(requestID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, notFound(CodeExchangeNotFound, "exchange request %s not found", requestID)
		}
		return nil, nil, fmt.Errorf("failed to lock exchange request: %w", err)
	}
	if request.Status != models.ExchangeStatusPending {
		return nil, nil, conflict(CodeExchangeAlreadyProcessed, "exchange request %s is already %s", requestID, request.Status)
	}

	requested, err := findProduct(r, request.RequestedProductID)
	if err != nil {
		return nil, nil, err
	}
	if requested.OwnerID != approverID {
		return nil, nil, unauthorized(CodeNotProductOwner, "only the owner of the requested product can respond")
	}
	return request, requested, nil
}

func (s *ExchangeService) load(ctx context.Context, requestID uuid.UUID) (*models.ExchangeRequest, error) {
	request, err := repository.New(s.db.WithContext(ctx)).Exchanges.FindByID(requestID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeExchangeNotFound, "exchange request %s not found", requestID)
		}
		return nil, fmt.Errorf("failed to load exchange request: %w", err)
	}
	return request, nil
}

func findProduct(r *repository.Repositories, productID uuid.UUID) (*models.Product, error) {
	product, err := r.Products.FindByIDForUpdate(productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeProductNotFound, "product %s not found", productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}
