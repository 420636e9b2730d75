// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/repository"
	"github.com/swapmart/backend/internal/utils"
)

// PaymentIntent is the subset of a gateway payment intent the marketplace
// reads.
type PaymentIntent struct {
	ID           string
	Status       string
	Amount       int64
	Currency     string
	ClientSecret string
	Metadata     map[string]string
}

const paymentIntentSucceeded = "succeeded"

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

// StripeGateway talks to Stripe with the package-level API key.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
		Metadata:     pi.Metadata,
	}
}

// PaymentService turns a confirmed gateway payment into the order's
// Pending -> Paid transition.
type PaymentService struct {
	db       *gorm.DB
	config   *config.Config
	gateway  PaymentGateway
	statuses *StatusService
}

type CreatePaymentIntentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret string          `json:"client_secret"`
	PaymentID    string          `json:"payment_id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type ConfirmPaymentRequest struct {
	OrderID         uuid.UUID `json:"order_id" validate:"required"`
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
}

func NewPaymentService(db *gorm.DB, config *config.Config, gateway PaymentGateway, statuses *StatusService) *PaymentService {
	return &PaymentService{
		db:       db,
		config:   config,
		gateway:  gateway,
		statuses: statuses,
	}
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid payment request", err)
	}

	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, unauthorized(CodeNotParticipant, "only the buyer can pay for order %s", order.ID)
	}
	if order.Status != models.OrderStatusPending {
		return nil, invalid(CodeInvalidTransition, "order %s is already %s", order.ID, order.Status)
	}

	currency := s.config.Payment.Currency
	intent, err := s.gateway.CreateIntent(ctx, toMinorUnits(order.TotalAmount), currency, map[string]string{
		"order_id": order.ID.String(),
		"buyer_id": buyerID.String(),
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"payment_id": intent.ID,
	}).Info("Payment intent created")

	return &PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.ID,
		Status:       intent.Status,
		Amount:       order.TotalAmount,
		Currency:     currency,
	}, nil
}

// ConfirmPayment verifies the intent with the gateway and marks the order
// Paid. Confirming an order that already left Pending is a no-op.
func (s *PaymentService) ConfirmPayment(ctx context.Context, actor Actor, req *ConfirmPaymentRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidInput("invalid payment confirmation", err)
	}

	order, err := s.loadOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actor.UserID && !actor.IsStaff() {
		return nil, unauthorized(CodeNotParticipant, "only the buyer can confirm payment for order %s", order.ID)
	}
	if order.Status != models.OrderStatusPending {
		return order, nil
	}

	intent, err := s.gateway.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if err := verifyIntent(intent, order); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_id":   order.ID,
			"payment_id": intent.ID,
		}).WithError(err).Warn("Payment confirmation rejected")
		return nil, err
	}

	paid, err := s.statuses.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPaid)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			// A concurrent confirmation got there first.
			if current, loadErr := s.loadOrder(ctx, order.ID); loadErr == nil && current.Status != models.OrderStatusPending {
				return current, nil
			}
		}
		return nil, err
	}
	return paid, nil
}

func verifyIntent(intent *PaymentIntent, order *models.Order) error {
	if intent.Status != paymentIntentSucceeded {
		return invalid(CodePaymentNotSucceeded, "payment %s has status %s", intent.ID, intent.Status)
	}
	if intent.Amount != toMinorUnits(order.TotalAmount) {
		return invalid(CodePaymentAmountMismatch, "payment amount %d does not match order total %s", intent.Amount, order.TotalAmount)
	}
	if id, ok := intent.Metadata["order_id"]; ok && !strings.EqualFold(id, order.ID.String()) {
		return invalid(CodePaymentOrderMismatch, "payment %s belongs to another order", intent.ID)
	}
	return nil
}

func (s *PaymentService) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := repository.New(s.db.WithContext(ctx)).Orders.FindByID(orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound(CodeOrderNotFound, "order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// toMinorUnits converts an amount to cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
