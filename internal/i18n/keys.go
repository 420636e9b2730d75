// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Access
	KeyAccessDenied     = "access.denied"
	KeyRateLimited      = "access.rate_limited"
	KeyInternalError    = "error.internal"
	KeyConflict         = "error.conflict"
	KeyResourceNotFound = "error.not_found"

	// Products
	KeyProductNotFound    = "product.not_found"
	KeyProductUnavailable = "product.unavailable"
	KeyWishlistAdded      = "wishlist.added"
	KeyWishlistRemoved    = "wishlist.removed"

	// Exchanges
	KeyExchangeApproved         = "exchange.approved"
	KeyExchangeRejected         = "exchange.rejected"
	KeyExchangeNotFound         = "exchange.not_found"
	KeyExchangeAlreadyProcessed = "exchange.already_processed"

	// Orders
	KeyOrderNotFound          = "order.not_found"
	KeyOrderStatusUpdated     = "order.status_updated"
	KeyOrderInvalidTransition = "order.invalid_transition"
	KeyOrderSynchronized      = "order.synchronized"
	KeyOrderAlreadyInSync     = "order.already_in_sync"
	KeyShippingUpdated        = "shipping.updated"

	// Payments
	KeyPaymentSuccess = "payment.success"
	KeyPaymentFailed  = "payment.failed"

	// Validation
	KeyValidationInvalid = "validation.invalid"
	KeyValidationID      = "validation.invalid_id"
)
