// internal/services/shipping.go
package services

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swapmart/backend/internal/models"
)

// ShippingInput is the delivery address a buyer supplies.
type ShippingInput struct {
	RecipientName string `json:"recipient_name" validate:"required,notblank"`
	Address       string `json:"address" validate:"required,notblank"`
	City          string `json:"city" validate:"required,notblank"`
	PostalCode    string `json:"postal_code" validate:"required,postal_code"`
	PhoneNumber   string `json:"phone_number" validate:"required,phone"`
}

// Sanitized returns a copy trimmed and cut to the column limits, with the
// phone number reduced to its digits.
func (in ShippingInput) Sanitized() ShippingInput {
	return ShippingInput{
		RecipientName: truncate(in.RecipientName, models.MaxRecipientNameLength),
		Address:       truncate(in.Address, models.MaxAddressLength),
		City:          truncate(in.City, models.MaxCityLength),
		PostalCode:    truncate(in.PostalCode, models.MaxPostalCodeLength),
		PhoneNumber:   truncate(digitsOnly(in.PhoneNumber), models.MaxPhoneNumberLength),
	}
}

func (in ShippingInput) applyTo(info *models.ShippingInfo) {
	clean := in.Sanitized()
	info.RecipientName = clean.RecipientName
	info.Address = clean.Address
	info.City = clean.City
	info.PostalCode = clean.PostalCode
	info.PhoneNumber = clean.PhoneNumber
}

func newShippingInfo(orderID uuid.UUID, status models.ShippingStatus, fee decimal.Decimal, input *ShippingInput) *models.ShippingInfo {
	info := &models.ShippingInfo{
		OrderID:     orderID,
		Status:      status,
		ShippingFee: fee,
	}
	if input != nil {
		input.applyTo(info)
	}
	return info
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max]))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
