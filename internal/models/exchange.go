// internal/models/exchange.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeRequest proposes trading OfferedProduct (owned by the requester)
// for RequestedProduct. Status only ever leaves Pending once.
type ExchangeRequest struct {
	BaseModel
	RequesterID                uuid.UUID      `json:"requester_id" gorm:"type:uuid;not null;index"`
	OfferedProductID           uuid.UUID      `json:"offered_product_id" gorm:"type:uuid;not null;index"`
	RequestedProductID         uuid.UUID      `json:"requested_product_id" gorm:"type:uuid;not null;index"`
	Status                     ExchangeStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Message                    string         `json:"message" gorm:"type:text"`
	RequestedAt                time.Time      `json:"requested_at" gorm:"not null"`
	ProcessedAt                *time.Time     `json:"processed_at"`
	ProcessedBy                *uuid.UUID     `json:"processed_by" gorm:"type:uuid"`
	OrderForOfferedProductID   *uuid.UUID     `json:"order_for_offered_product_id" gorm:"type:uuid;index"`
	OrderForRequestedProductID *uuid.UUID     `json:"order_for_requested_product_id" gorm:"type:uuid;index"`

	// Relationships
	Requester                *User                   `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	OfferedProduct           *Product                `json:"offered_product,omitempty" gorm:"foreignKey:OfferedProductID"`
	RequestedProduct         *Product                `json:"requested_product,omitempty" gorm:"foreignKey:RequestedProductID"`
	OrderForOfferedProduct   *Order                  `json:"order_for_offered_product,omitempty" gorm:"foreignKey:OrderForOfferedProductID"`
	OrderForRequestedProduct *Order                  `json:"order_for_requested_product,omitempty" gorm:"foreignKey:OrderForRequestedProductID"`
	History                  []ExchangeStatusHistory `json:"history,omitempty" gorm:"foreignKey:RequestID"`
}

// SiblingOrderID returns the other order of the swap pair, if orderID is one
// of the two orders linked to this request.
func (r *ExchangeRequest) SiblingOrderID(orderID uuid.UUID) (uuid.UUID, bool) {
	if r.OrderForOfferedProductID == nil || r.OrderForRequestedProductID == nil {
		return uuid.Nil, false
	}
	switch orderID {
	case *r.OrderForOfferedProductID:
		return *r.OrderForRequestedProductID, true
	case *r.OrderForRequestedProductID:
		return *r.OrderForOfferedProductID, true
	}
	return uuid.Nil, false
}

// ExchangeStatusHistory is the append-only audit trail of a request.
type ExchangeStatusHistory struct {
	BaseModel
	RequestID       uuid.UUID      `json:"request_id" gorm:"type:uuid;not null;index"`
	Status          ExchangeStatus `json:"status" gorm:"type:varchar(20);not null"`
	ChangedByUserID uuid.UUID      `json:"changed_by_user_id" gorm:"type:uuid;not null"`
	ChangedAt       time.Time      `json:"changed_at" gorm:"not null"`
	Message         string         `json:"message" gorm:"type:text"`
}

func (ExchangeStatusHistory) TableName() string {
	return "exchange_status_histories"
}
