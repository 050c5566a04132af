package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// BillingStore is the slice of ProfileService the webhook needs. Narrow on
// purpose: tests drive the full event flow against an in-memory fake.
type BillingStore interface {
	GetProfileByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error)
	ApplySubscription(ctx context.Context, upd *subscription.BillingUpdate) error
	ClearSubscription(ctx context.Context, userID string, finalPeriodEnd *time.Time) error
	DowngradeToFree(ctx context.Context, userID string) error
}

// SubscriptionAPI is the slice of BillingService the webhook needs.
type SubscriptionAPI interface {
	FetchSubscription(subscriptionID string) (*stripe.Subscription, error)
	BackfillSubscriptionMetadata(subscriptionID, userID string) error
}

// TrialNotifier sends the trial-ending reminder. Nil disables reminders
// without affecting billing reconciliation.
type TrialNotifier interface {
	NotifyTrialEnding(ctx context.Context, userID string, trialEnd *time.Time) error
}

type StripeWebhookHandler struct {
	store          BillingStore
	api            SubscriptionAPI
	notifier       TrialNotifier
	endpointSecret string
}

func NewStripeWebhookHandler(store BillingStore, api SubscriptionAPI, notifier TrialNotifier) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		store:          store,
		api:            api,
		notifier:       notifier,
		endpointSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}
}

// HandleWebhook processes events sent by Stripe. The signature is verified
// before anything else; an unverifiable payload never mutates state. Events
// that cannot be tied to a user are logged and acknowledged with 200 so
// Stripe stops retrying what we will never be able to process.
func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading request body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	if h.endpointSecret == "" {
		log.Println("STRIPE_WEBHOOK_SECRET is not set")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.endpointSecret)
	if err != nil {
		log.Printf("Error verifying webhook signature: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleCheckoutCompleted(ctx, &session); err != nil {
			log.Printf("Error handling checkout.session.completed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleSubscriptionChanged(ctx, &sub); err != nil {
			log.Printf("Error handling %s: %v", event.Type, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleSubscriptionDeleted(ctx, &sub); err != nil {
			log.Printf("Error handling customer.subscription.deleted: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "customer.subscription.trial_will_end":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.handleTrialWillEnd(ctx, &sub)

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handlePaymentSucceeded(ctx, &invoice); err != nil {
			log.Printf("Error handling invoice.payment_succeeded: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			log.Printf("Error parsing webhook JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handlePaymentFailed(ctx, &invoice); err != nil {
			log.Printf("Error handling invoice.payment_failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled stripe event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

// resolveUser maps a subscription event to an internal user id. Metadata is
// the preferred source; when it is absent the customer id lookup takes over
// and the metadata is written back onto the subscription so the next event
// resolves directly.
func (h *StripeWebhookHandler) resolveUser(ctx context.Context, metadata map[string]string, customerID, subscriptionID string) (string, bool) {
	if userID := metadata["userId"]; userID != "" {
		return userID, true
	}
	if customerID == "" {
		return "", false
	}

	p, err := h.store.GetProfileByCustomerID(ctx, customerID)
	if err != nil {
		log.Printf("No profile for stripe customer %s: %v", customerID, err)
		return "", false
	}

	if subscriptionID != "" {
		if err := h.api.BackfillSubscriptionMetadata(subscriptionID, p.ID); err != nil {
			log.Printf("Metadata backfill failed for %s: %v", subscriptionID, err)
		}
	}
	return p.ID, true
}

func (h *StripeWebhookHandler) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.Subscription == nil {
		log.Printf("Checkout session %s has no subscription, skipping", session.ID)
		return nil
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	userID, ok := h.resolveUser(ctx, session.Metadata, customerID, session.Subscription.ID)
	if !ok {
		log.Printf("Dropping checkout session %s: no resolvable user", session.ID)
		return nil
	}

	// The session payload carries no period dates, fetch the subscription for
	// the authoritative state.
	sub, err := h.api.FetchSubscription(session.Subscription.ID)
	if err != nil {
		return err
	}

	if sub.Metadata["userId"] == "" {
		if err := h.api.BackfillSubscriptionMetadata(sub.ID, userID); err != nil {
			log.Printf("Metadata backfill failed for %s: %v", sub.ID, err)
		}
	}

	upd, err := billingUpdateFromSubscription(userID, sub)
	if err != nil {
		log.Printf("Dropping checkout session %s: %v", session.ID, err)
		return nil
	}
	return h.store.ApplySubscription(ctx, upd)
}

func (h *StripeWebhookHandler) handleSubscriptionChanged(ctx context.Context, sub *stripe.Subscription) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID, ok := h.resolveUser(ctx, sub.Metadata, customerID, sub.ID)
	if !ok {
		log.Printf("Dropping subscription event for %s: no resolvable user", sub.ID)
		return nil
	}

	upd, err := billingUpdateFromSubscription(userID, sub)
	if err != nil {
		log.Printf("Dropping subscription event for %s: %v", sub.ID, err)
		return nil
	}
	return h.store.ApplySubscription(ctx, upd)
}

func (h *StripeWebhookHandler) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID, ok := h.resolveUser(ctx, sub.Metadata, customerID, "")
	if !ok {
		log.Printf("Dropping subscription deletion for %s: no resolvable user", sub.ID)
		return nil
	}

	return h.store.ClearSubscription(ctx, userID, unixPtr(sub.CurrentPeriodEnd))
}

// handleTrialWillEnd fires the trial reminder. Delivery failures are logged
// and swallowed, the event is billing-neutral.
func (h *StripeWebhookHandler) handleTrialWillEnd(ctx context.Context, sub *stripe.Subscription) {
	if h.notifier == nil {
		return
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID, ok := h.resolveUser(ctx, sub.Metadata, customerID, sub.ID)
	if !ok {
		log.Printf("Dropping trial reminder for %s: no resolvable user", sub.ID)
		return
	}

	if err := h.notifier.NotifyTrialEnding(ctx, userID, unixPtr(sub.TrialEnd)); err != nil {
		log.Printf("Trial reminder for %s failed: %v", userID, err)
	}
}

// handlePaymentSucceeded refreshes the subscription state after a renewal.
// The invoice payload carries stale period dates, so the subscription is
// re-fetched and run through the normal update path.
func (h *StripeWebhookHandler) handlePaymentSucceeded(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Subscription == nil {
		log.Printf("Invoice %s has no subscription, skipping", invoice.ID)
		return nil
	}

	sub, err := h.api.FetchSubscription(invoice.Subscription.ID)
	if err != nil {
		return err
	}
	return h.handleSubscriptionChanged(ctx, sub)
}

// handlePaymentFailed downgrades the user named in the subscription metadata.
// This path does not fall back to the customer id lookup: a failed invoice
// without metadata is logged and dropped.
func (h *StripeWebhookHandler) handlePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	userID := ""
	if invoice.SubscriptionDetails != nil {
		userID = invoice.SubscriptionDetails.Metadata["userId"]
	}
	if userID == "" {
		log.Printf("Dropping failed invoice %s: no userId metadata", invoice.ID)
		return nil
	}

	return h.store.DowngradeToFree(ctx, userID)
}

func billingUpdateFromSubscription(userID string, sub *stripe.Subscription) (*subscription.BillingUpdate, error) {
	status, err := subscription.ParseStatus(string(sub.Status))
	if err != nil {
		return nil, err
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	return &subscription.BillingUpdate{
		UserID:               userID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: sub.ID,
		StripePriceID:        priceID,
		Status:               status,
		CurrentPeriodStart:   unixPtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixPtr(sub.CurrentPeriodEnd),
		CancelAt:             unixPtr(sub.CancelAt),
		CanceledAt:           unixPtr(sub.CanceledAt),
	}, nil
}

func unixPtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
