package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swapmart/backend/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func (r *UserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmailOrUsername(email, username string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) Save(user *models.User) error {
	return r.db.Save(user).Error
}

type ProductRepository struct {
	db *gorm.DB
}

func (r *ProductRepository) FindByID(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate row-locks the product for the rest of the transaction.
func (r *ProductRepository) FindByIDForUpdate(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := forUpdate(r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Create(product *models.Product) error {
	return r.db.Omit(clause.Associations).Create(product).Error
}

// TransitionStatus moves the product to `to` only if its current status is
// one of `from`. It reports whether the row was changed.
func (r *ProductRepository) TransitionStatus(id uuid.UUID, from []models.ProductStatus, to models.ProductStatus) (bool, error) {
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update product %s status: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

type WishlistRepository struct {
	db *gorm.DB
}

func (r *WishlistRepository) Add(userID, productID uuid.UUID) error {
	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(item).Error
}

func (r *WishlistRepository) Remove(userID, productID uuid.UUID) error {
	return r.db.Unscoped().
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).Error
}

// PurgeProduct removes the product from every user's wishlist.
func (r *WishlistRepository) PurgeProduct(productID uuid.UUID) (int64, error) {
	result := r.db.Unscoped().Where("product_id = ?", productID).Delete(&models.WishlistItem{})
	return result.RowsAffected, result.Error
}

func (r *WishlistRepository) CountByProduct(productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.WishlistItem{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}
