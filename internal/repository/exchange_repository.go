package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swapmart/backend/internal/models"
)

// ExchangeFilter narrows ListForUser.
type ExchangeFilter struct {
	Role   string // "sent", "received" or empty for both
	Status models.ExchangeStatus
	Offset int
	Limit  int
}

type ExchangeRepository struct {
	db *gorm.DB
}

func (r *ExchangeRepository) FindByID(id uuid.UUID) (*models.ExchangeRequest, error) {
	var request models.ExchangeRequest
	err := r.db.
		Preload("OfferedProduct").
		Preload("RequestedProduct").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC")
		}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *ExchangeRepository) FindByIDForUpdate(id uuid.UUID) (*models.ExchangeRequest, error) {
	var request models.ExchangeRequest
	if err := forUpdate(r.db).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByOrderID returns the request that produced orderID on either side.
func (r *ExchangeRepository) FindByOrderID(orderID uuid.UUID) (*models.ExchangeRequest, error) {
	var request models.ExchangeRequest
	err := r.db.
		Where("order_for_offered_product_id = ? OR order_for_requested_product_id = ?", orderID, orderID).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *ExchangeRepository) FindPending(offeredProductID, requestedProductID uuid.UUID) (*models.ExchangeRequest, error) {
	var request models.ExchangeRequest
	err := r.db.
		Where("offered_product_id = ? AND requested_product_id = ? AND status = ?",
			offeredProductID, requestedProductID, models.ExchangeStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// HasAcceptedFor reports whether buyerID receives productID under an accepted
// request: the requester receives the requested product and the owner of the
// requested product receives the offered one.
func (r *ExchangeRepository) HasAcceptedFor(productID, buyerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.ExchangeRequest{}).
		Joins("JOIN products requested ON requested.id = exchange_requests.requested_product_id").
		Where("exchange_requests.status = ?", models.ExchangeStatusAccepted).
		Where("(exchange_requests.requested_product_id = ? AND exchange_requests.requester_id = ?) OR (exchange_requests.offered_product_id = ? AND requested.owner_id = ?)",
			productID, buyerID, productID, buyerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountAcceptedReferencing counts accepted requests other than excludeID that
// hold productID on either side.
func (r *ExchangeRepository) CountAcceptedReferencing(productID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.ExchangeRequest{}).
		Where("status = ? AND id <> ?", models.ExchangeStatusAccepted, excludeID).
		Where("offered_product_id = ? OR requested_product_id = ?", productID, productID).
		Count(&count).Error
	return count, err
}

// Insert creates the request inside a savepoint, like OrderRepository.Insert.
func (r *ExchangeRepository) Insert(request *models.ExchangeRequest) error {
	return insertWithSavepoint(r.db, "exchange_insert", func() error {
		return r.db.Omit(clause.Associations).Create(request).Error
	})
}

func (r *ExchangeRepository) AppendHistory(entry *models.ExchangeStatusHistory) error {
	return r.db.Create(entry).Error
}

// MarkProcessed moves a pending request to its final status. It reports false
// when another caller already processed the request.
func (r *ExchangeRepository) MarkProcessed(request *models.ExchangeRequest) (bool, error) {
	result := r.db.Model(&models.ExchangeRequest{}).
		Where("id = ? AND status = ?", request.ID, models.ExchangeStatusPending).
		Updates(map[string]interface{}{
			"status":                         request.Status,
			"processed_at":                   request.ProcessedAt,
			"processed_by":                   request.ProcessedBy,
			"order_for_offered_product_id":   request.OrderForOfferedProductID,
			"order_for_requested_product_id": request.OrderForRequestedProductID,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update exchange request %s: %w", request.ID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListForUser returns requests the user sent, received, or both, newest first.
func (r *ExchangeRepository) ListForUser(userID uuid.UUID, filter ExchangeFilter) ([]models.ExchangeRequest, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Joins("JOIN products requested ON requested.id = exchange_requests.requested_product_id")
		switch filter.Role {
		case "sent":
			db = db.Where("exchange_requests.requester_id = ?", userID)
		case "received":
			db = db.Where("requested.owner_id = ?", userID)
		default:
			db = db.Where("exchange_requests.requester_id = ? OR requested.owner_id = ?", userID, userID)
		}
		if filter.Status != "" {
			db = db.Where("exchange_requests.status = ?", filter.Status)
		}
		return db
	}

	var total int64
	if err := r.db.Model(&models.ExchangeRequest{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []models.ExchangeRequest
	err := r.db.Scopes(scope).
		Preload("OfferedProduct").
		Preload("RequestedProduct").
		Order("exchange_requests.requested_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&requests).Error
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}
