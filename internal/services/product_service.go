// internal/services/product_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
	"github.com/swapmart/backend/internal/utils"
)

type ProductService struct {
	db *gorm.DB
}

type CreateProductRequest struct {
	Title       string          `json:"title" validate:"required,min=3,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Price       decimal.Decimal `json:"price"`
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) CreateProduct(ctx context.Context, ownerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid product", err)
	}
	if !req.Price.IsPositive() {
		return nil, invalid(CodeValidationFailed, "price must be greater than zero")
	}

	r := repository.New(s.db.WithContext(ctx))
	owner, err := r.Users.FindByID(ownerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeUserNotFound, "user %s not found", ownerID)
		}
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	if owner.Status != models.UserStatusActive {
		return nil, unauthorized(CodeAccountInactive, "account is not active")
	}

	product := &models.Product{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price.Round(2),
		Status:      models.ProductStatusAvailable,
	}
	if err := r.Products.Create(product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"owner_id":   ownerID,
	}).Info("Product created")
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := repository.New(s.db.WithContext(ctx)).Products.FindByID(productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeProductNotFound, "product %s not found", productID)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

// AddToWishlist is idempotent. Only products still on the market can be
// watched.
func (s *ProductService) AddToWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if product.OwnerID == userID {
		return invalid(CodeValidationFailed, "cannot wishlist your own product")
	}
	if product.Status != models.ProductStatusAvailable {
		return conflict(CodeProductUnavailable, "product %s is %s", productID, product.Status)
	}

	if err := repository.New(s.db.WithContext(ctx)).Wishlists.Add(userID, productID); err != nil {
		return fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return nil
}

func (s *ProductService) RemoveFromWishlist(ctx context.Context, userID, productID uuid.UUID) error {
	if err := repository.New(s.db.WithContext(ctx)).Wishlists.Remove(userID, productID); err != nil {
		return fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	return nil
}

// PurgeFromWishlists drops the product from every wishlist.
func (s *ProductService) PurgeFromWishlists(ctx context.Context, productID uuid.UUID) error {
	return purgeFromWishlists(repository.New(s.db.WithContext(ctx)), productID)
}

func purgeFromWishlists(r *repository.Repositories, productID uuid.UUID) error {
	removed, err := r.Wishlists.PurgeProduct(productID)
	if err != nil {
		return fmt.Errorf("failed to purge product %s from wishlists: %w", productID, err)
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"product_id": productID,
			"removed":    removed,
		}).Debug("Product purged from wishlists")
	}
	return nil
}
