package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swapmart/backend/internal/models"
)

const orderInsertSavepoint = "order_insert"

type OrderRepository struct {
	db *gorm.DB
}

func (r *OrderRepository) FindByID(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("ShippingInfo").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate row-locks the order. ShippingInfo is loaded separately
// because Preload would issue its query without the lock.
func (r *OrderRepository) FindByIDForUpdate(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(r.db).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}

	var info models.ShippingInfo
	err := forUpdate(r.db).Where("order_id = ?", id).First(&info).Error
	switch {
	case err == nil:
		order.ShippingInfo = &info
	case !IsNotFound(err):
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) FindDetailed(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Preload("ShippingInfo").
		Preload("Product").
		Preload("Buyer").
		Preload("Seller").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByProductAndBuyer returns the most recent live order for the pair.
// Cancelled orders are skipped so a product back on the market can be
// bought again.
func (r *OrderRepository) FindByProductAndBuyer(productID, buyerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("ShippingInfo").
		Where("product_id = ? AND buyer_id = ? AND status <> ?", productID, buyerID, models.OrderStatusCancelled).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindSwapOrder returns the swap order for the pair regardless of status.
func (r *OrderRepository) FindSwapOrder(productID, buyerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("ShippingInfo").
		Where("product_id = ? AND buyer_id = ? AND is_swap_order = ?", productID, buyerID, true).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Insert creates the order inside a savepoint. On a unique violation the
// savepoint is rolled back so the surrounding transaction stays usable and
// the duplicate-key error is returned to the caller.
func (r *OrderRepository) Insert(order *models.Order) error {
	return insertWithSavepoint(r.db, orderInsertSavepoint, func() error {
		return r.db.Omit(clause.Associations).Create(order).Error
	})
}

// UpdateStatus applies the status change only if the row still has the
// expected status, and reports whether it did.
func (r *OrderRepository) UpdateStatus(order *models.Order, expected models.OrderStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, expected).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update order %s: %w", order.ID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindSwapSiblingCandidates lists swap orders that look like the other half
// of order's pair: a different product, the buyer and seller reversed, and
// created within window of order.
func (r *OrderRepository) FindSwapSiblingCandidates(order *models.Order, window time.Duration) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("is_swap_order = ? AND id <> ? AND product_id <> ?", true, order.ID, order.ProductID).
		Where("buyer_id = ? AND seller_id = ?", order.SellerID, order.BuyerID).
		Where("created_at BETWEEN ? AND ?", order.CreatedAt.Add(-window), order.CreatedAt.Add(window)).
		Find(&orders).Error
	return orders, err
}

type ShippingRepository struct {
	db *gorm.DB
}

func (r *ShippingRepository) FindByOrderID(orderID uuid.UUID) (*models.ShippingInfo, error) {
	var info models.ShippingInfo
	if err := r.db.Where("order_id = ?", orderID).First(&info).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *ShippingRepository) Create(info *models.ShippingInfo) error {
	return r.db.Create(info).Error
}

func (r *ShippingRepository) UpdateStatus(info *models.ShippingInfo, status models.ShippingStatus) error {
	if err := r.db.Model(info).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update shipping for order %s: %w", info.OrderID, err)
	}
	info.Status = status
	return nil
}

func (r *ShippingRepository) UpdateAddress(info *models.ShippingInfo) error {
	return r.db.Model(info).Select("RecipientName", "Address", "City", "PostalCode", "PhoneNumber").Updates(info).Error
}
