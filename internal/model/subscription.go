package model

import "github.com/google/uuid"

// PlanPayment maps a package to the provider's recurring-billing coordinates.
type PlanPayment struct {
	ProductID string
	PlanID    string
}

// SubscriptionPlan keeps a stable logical identity across provider-side
// updates: repricing a package refreshes Payment but never changes ID, so
// existing subscribers keep billing against the same agreement.
type SubscriptionPlan struct {
	ID        uuid.UUID
	PackageID int
	Payment   PlanPayment
}

func NewSubscriptionPlan(pkg *Package, payment PlanPayment) *SubscriptionPlan {
	return &SubscriptionPlan{
		ID:        uuid.New(),
		PackageID: pkg.ID,
		Payment:   payment,
	}
}

// WithPayment returns a plan with the same logical id but refreshed
// provider coordinates.
func (p *SubscriptionPlan) WithPayment(payment PlanPayment) *SubscriptionPlan {
	return &SubscriptionPlan{
		ID:        p.ID,
		PackageID: p.PackageID,
		Payment:   payment,
	}
}

type SubscriptionState string

const (
	SubscriptionPending   SubscriptionState = "PENDING"
	SubscriptionActive    SubscriptionState = "ACTIVE"
	SubscriptionCancelled SubscriptionState = "CANCELLED"
)

// SubscriptionPayment holds the provider-side billing agreement id. A
// subscription exclusively owns its agreement id once created.
type SubscriptionPayment struct {
	ID string
}

// Subscription ties a user to a plan through an external billing agreement.
// PENDING until the provider confirms the first billing; CANCELLED is
// terminal.
type Subscription struct {
	ID      uuid.UUID
	PlanID  uuid.UUID
	Payment SubscriptionPayment
	User    User
	State   SubscriptionState
}

// AgreeBilling creates a PENDING subscription owning the given provider
// agreement id.
func AgreeBilling(plan *SubscriptionPlan, user User, agreementID string) *Subscription {
	return &Subscription{
		ID:      uuid.New(),
		PlanID:  plan.ID,
		Payment: SubscriptionPayment{ID: agreementID},
		User:    user,
		State:   SubscriptionPending,
	}
}

// Activate records a confirmed billing. Safe to repeat on webhook
// redelivery; it is a pure field assignment.
func (s *Subscription) Activate() {
	s.State = SubscriptionActive
}

// Cancel is terminal.
func (s *Subscription) Cancel() {
	s.State = SubscriptionCancelled
}

// IsActive reports whether the agreement is live from the user's point of
// view. PENDING counts: the provider may already be collecting.
func (s *Subscription) IsActive() bool {
	return s.State == SubscriptionPending || s.State == SubscriptionActive
}

// AbortLink returns the path a user follows to abandon a not-yet-confirmed
// agreement. Only legal while PENDING; an active or cancelled agreement must
// go through Cancel instead.
func (s *Subscription) AbortLink() (string, error) {
	if s.State != SubscriptionPending {
		return "", ErrSubscriptionNotPending
	}
	return "/subscriptions/" + s.ID.String() + "/abort", nil
}
