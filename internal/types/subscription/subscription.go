package subscription

import (
	"fmt"
	"time"
)

// Status is the subscription lifecycle state as reported by Stripe.
// Values coming off the wire are parsed, never stored verbatim.
type Status string

const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusUnpaid            Status = "unpaid"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusPaused            Status = "paused"

	// StatusFree is a local marker, not a Stripe state. It is written when a
	// payment failure downgrades the user.
	StatusFree Status = "free"
)

// ParseStatus validates a processor-reported status string.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled,
		StatusUnpaid, StatusIncomplete, StatusIncompleteExpired, StatusPaused, StatusFree:
		return s, nil
	}
	return "", fmt.Errorf("unrecognized subscription status %q", raw)
}

// ActiveLike reports whether the status grants paid access.
func (s Status) ActiveLike() bool {
	return s == StatusActive || s == StatusTrialing
}

// BillingUpdate is the full billing field set written to a profile when the
// processor reports a subscription lifecycle event.
type BillingUpdate struct {
	UserID               string
	StripeCustomerID     string
	StripeSubscriptionID string
	StripePriceID        string
	Status               Status
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAt             *time.Time
	CanceledAt           *time.Time
}

// Tier derives the stored subscription_tier from the reported status.
func (u *BillingUpdate) Tier() string {
	if u.Status.ActiveLike() {
		return "pro"
	}
	return "free"
}

type CheckoutRequest struct {
	PriceID   string `json:"priceId"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type PortalRequest struct {
	UserID string `json:"userId"`
}

type PortalResponse struct {
	URL string `json:"url"`
}
