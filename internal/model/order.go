package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderCreated OrderStatus = "CREATED"
	OrderPaid    OrderStatus = "PAID"
)

// OrderPayment holds the provider-side coordinates of an order's payment.
// TransactionID stays empty until the provider confirms the capture.
type OrderPayment struct {
	ID            string
	TransactionID string
	Provider      string
}

// Order records one purchase (or one subscription billing cycle) and its
// redemption status. Orders are never deleted; they are the donation history.
type Order struct {
	ID            uuid.UUID
	Created       time.Time
	Reference     Reference
	CustomMessage string
	RedeemedAt    *time.Time
	Status        OrderStatus
	Payment       *OrderPayment
}

// NewOrder creates an order with the payment intent already bound
// (immediate-capture flow).
func NewOrder(created time.Time, payment OrderPayment, ref Reference, customMessage string) *Order {
	return &Order{
		ID:            uuid.New(),
		Created:       created,
		Reference:     ref,
		CustomMessage: customMessage,
		Status:        OrderCreated,
		Payment:       &payment,
	}
}

// NewDeferredOrder creates an order before a payment intent exists
// (redirect flow where the provider-side payment id is not known yet).
func NewDeferredOrder(created time.Time, ref Reference, customMessage string) *Order {
	return &Order{
		ID:            uuid.New(),
		Created:       created,
		Reference:     ref,
		CustomMessage: customMessage,
		Status:        OrderCreated,
	}
}

// PaymentIntent binds the provider payment exactly once.
func (o *Order) PaymentIntent(payment OrderPayment) error {
	if o.Payment != nil {
		return ErrOrderPaymentAlreadyBound
	}
	o.Payment = &payment
	return nil
}

// Pay stamps the capture transaction id and flips the order to PAID.
// Intentionally not idempotent; exactly-once redemption is the caller's
// responsibility, not the entity's.
func (o *Order) Pay(transactionID string) error {
	if o.Payment == nil {
		return ErrOrderNoPaymentIntent
	}
	o.Payment.TransactionID = transactionID
	o.Status = OrderPaid
	return nil
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderPaid
}

// MarkRedeemed is called by the redeem engine only. The first call wins;
// repeated redemption keeps the original timestamp.
func (o *Order) MarkRedeemed(at time.Time) {
	if o.RedeemedAt != nil {
		return
	}
	t := at
	o.RedeemedAt = &t
}
