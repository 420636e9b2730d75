// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shipping field limits.
const (
	MaxRecipientNameLength = 100
	MaxAddressLength       = 200
	MaxCityLength          = 100
	MaxPostalCodeLength    = 7
	MaxPhoneNumberLength   = 11
)

// Order is one purchase of one product. Swap orders come in pairs created by
// an accepted exchange request and only charge shipping.
type Order struct {
	BaseModel
	ProductID    uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	BuyerID      uuid.UUID       `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID     uuid.UUID       `json:"seller_id" gorm:"type:uuid;not null;index"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	PlatformFee  decimal.Decimal `json:"platform_fee" gorm:"type:decimal(10,2);not null"`
	SellerAmount decimal.Decimal `json:"seller_amount" gorm:"type:decimal(10,2);not null"`
	IsSwapOrder  bool            `json:"is_swap_order" gorm:"not null;default:false;index"`
	Status       OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaidAt       *time.Time      `json:"paid_at"`
	CompletedAt  *time.Time      `json:"completed_at"`

	// Relationships
	Product      *Product      `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Buyer        *User         `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller       *User         `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	ShippingInfo *ShippingInfo `json:"shipping_info,omitempty" gorm:"foreignKey:OrderID"`
}

// IsParticipant reports whether userID is the buyer or the seller.
func (o *Order) IsParticipant(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

type ShippingInfo struct {
	BaseModel
	OrderID       uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;uniqueIndex"`
	Status        ShippingStatus  `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	RecipientName string          `json:"recipient_name" gorm:"size:100"`
	Address       string          `json:"address" gorm:"size:200"`
	City          string          `json:"city" gorm:"size:100"`
	PostalCode    string          `json:"postal_code" gorm:"size:7"`
	PhoneNumber   string          `json:"phone_number" gorm:"size:11"`
	ShippingFee   decimal.Decimal `json:"shipping_fee" gorm:"type:decimal(10,2);not null"`
}

func (ShippingInfo) TableName() string {
	return "shipping_infos"
}
