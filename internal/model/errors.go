package model

import "errors"

var (
	// Not-found kinds. An ownership mismatch on lookup surfaces as the same
	// not-found error so callers cannot probe for foreign records.
	ErrOrderNotFound        = errors.New("order not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrPackageNotFound      = errors.New("package not found")

	// Invalid-state kinds: the operation was invoked outside its legal
	// lifecycle state. Caller error, never retried.
	ErrOrderNoPaymentIntent     = errors.New("order has no payment intent")
	ErrOrderPaymentAlreadyBound = errors.New("order payment already bound")
	ErrSubscriptionNotPending   = errors.New("subscription is not pending")

	// ErrGateway wraps any failure from the external payment provider.
	// Propagated untouched; retry policy belongs to the caller.
	ErrGateway = errors.New("payment gateway failure")
)
