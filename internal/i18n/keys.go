// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound = "user.not_found"

	// Products
	KeyProductCreated      = "product.created"
	KeyProductNotFound     = "product.not_found"
	KeyProductInvalidID    = "product.invalid_id"
	KeyProductNameTooLarge = "product.name_too_large"
	KeyProductIDsExhausted = "product.ids_exhausted"
	KeyProductExported     = "product.exported"
	KeyProductCreateFailed = "product.create_failed"

	// Payments
	KeyPaymentIntentCreated = "payment.intent_created"
	KeyPaymentDisabled      = "payment.disabled"
	KeyPaymentInvalidAmount = "payment.invalid_amount"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimited = "rate.limited"

	// Routing and server errors
	KeyRouteNotFound         = "route.not_found"
	KeyRouteMethodNotAllowed = "route.method_not_allowed"
	KeyInternalError         = "server.internal_error"
)
