package domain

const (
	CheckoutKindOrder      = "ORDER"
	CheckoutKindPaymentKey = "PAYMENT_KEY"
)

const (
	CheckoutStatusSucceeded = "SUCCEEDED"
	CheckoutStatusFailed    = "FAILED"
)

const RequestIDHeader = "X-Request-ID"

// MaxIDLength bounds request and user ids stored in the checkout ledger.
const MaxIDLength = 64
