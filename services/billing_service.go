package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"jobRadarAPI/internal/plan"
	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	stripesub "github.com/stripe/stripe-go/v76/subscription"
)

// BillingService wraps the Stripe API calls the billing endpoints and the
// webhook need. It owns no billing state: everything durable lives on the
// profile row and is written through ProfileService.
type BillingService struct {
	profiles  *ProfileService
	secretKey string
}

func NewBillingService(profiles *ProfileService) *BillingService {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		log.Println("STRIPE_SECRET_KEY is not set, billing endpoints will return 503")
	}
	stripe.Key = key
	return &BillingService{profiles: profiles, secretKey: key}
}

// IsConfigured reports whether the Stripe API key is available. Handlers turn
// a false into a 503 rather than letting calls fail downstream.
func (s *BillingService) IsConfigured() bool {
	return s.secretKey != ""
}

func frontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}

// ensureCustomer returns the profile's Stripe customer id, creating the
// customer on first use and persisting the id so later checkouts and portal
// sessions reuse it.
func (s *BillingService) ensureCustomer(ctx context.Context, p *profile.Profile, email string) (string, error) {
	if p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
		return *p.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{}
	if email != "" {
		params.Email = stripe.String(email)
	} else {
		params.Email = stripe.String(p.Email)
	}
	params.AddMetadata("userId", p.ID)

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}

	if err := s.profiles.SetStripeCustomerID(ctx, p.ID, c.ID); err != nil {
		return "", err
	}
	return c.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for the given price.
// The user id is attached as metadata on both the session and the resulting
// subscription so webhook events can be resolved without a customer lookup.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, p *profile.Profile, req *subscription.CheckoutRequest) (*subscription.CheckoutResponse, error) {
	priceID := req.PriceID
	if priceID == "" {
		priceID = plan.Pro().PriceID
	}
	if priceID == "" {
		return nil, fmt.Errorf("no price id configured")
	}
	if _, ok := plan.ByPriceID(priceID); !ok {
		return nil, fmt.Errorf("unknown price id %s", priceID)
	}

	customerID, err := s.ensureCustomer(ctx, p, req.UserEmail)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(frontendURL() + "/dashboard?checkout=success"),
		CancelURL:           stripe.String(frontendURL() + "/pricing?checkout=canceled"),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": p.ID, "priceId": priceID},
		},
	}
	params.AddMetadata("userId", p.ID)
	params.AddMetadata("priceId", priceID)

	if trialDays := plan.Pro().TrialDays; trialDays > 0 && priceID == plan.Pro().PriceID {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(trialDays))
		// Card-free trial signup; Stripe collects payment details before the
		// trial converts.
		params.PaymentMethodCollection = stripe.String(string(stripe.CheckoutSessionPaymentMethodCollectionIfRequired))
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &subscription.CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession opens the Stripe customer portal for self-service
// subscription management.
func (s *BillingService) CreatePortalSession(ctx context.Context, p *profile.Profile) (*subscription.PortalResponse, error) {
	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		return nil, fmt.Errorf("no billing account for user %s", p.ID)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*p.StripeCustomerID),
		ReturnURL: stripe.String(frontendURL() + "/dashboard/settings"),
	}

	sess, err := portalsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal session: %w", err)
	}
	return &subscription.PortalResponse{URL: sess.URL}, nil
}

// FetchSubscription pulls the current subscription state from Stripe.
func (s *BillingService) FetchSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sb, err := stripesub.Get(subscriptionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return sb, nil
}

// BackfillSubscriptionMetadata writes the userId onto a subscription that was
// resolved through the customer-id fallback, so the next event for it carries
// metadata again.
func (s *BillingService) BackfillSubscriptionMetadata(subscriptionID, userID string) error {
	params := &stripe.SubscriptionParams{}
	params.AddMetadata("userId", userID)
	if _, err := stripesub.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("failed to backfill metadata on %s: %w", subscriptionID, err)
	}
	return nil
}
