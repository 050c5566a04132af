package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type clearedSub struct {
	userID         string
	finalPeriodEnd *time.Time
}

type fakeBillingStore struct {
	profilesByCustomer map[string]*profile.Profile
	applied            []*subscription.BillingUpdate
	cleared            []clearedSub
	downgraded         []string
}

func (f *fakeBillingStore) GetProfileByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error) {
	p, ok := f.profilesByCustomer[customerID]
	if !ok {
		return nil, fmt.Errorf("no profile for customer %s", customerID)
	}
	return p, nil
}

func (f *fakeBillingStore) ApplySubscription(ctx context.Context, upd *subscription.BillingUpdate) error {
	f.applied = append(f.applied, upd)
	return nil
}

func (f *fakeBillingStore) ClearSubscription(ctx context.Context, userID string, finalPeriodEnd *time.Time) error {
	f.cleared = append(f.cleared, clearedSub{userID, finalPeriodEnd})
	return nil
}

func (f *fakeBillingStore) DowngradeToFree(ctx context.Context, userID string) error {
	f.downgraded = append(f.downgraded, userID)
	return nil
}

type fakeSubscriptionAPI struct {
	subs      map[string]*stripe.Subscription
	backfills map[string]string
}

func (f *fakeSubscriptionAPI) FetchSubscription(subscriptionID string) (*stripe.Subscription, error) {
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", subscriptionID)
	}
	return sub, nil
}

func (f *fakeSubscriptionAPI) BackfillSubscriptionMetadata(subscriptionID, userID string) error {
	if f.backfills == nil {
		f.backfills = map[string]string{}
	}
	f.backfills[subscriptionID] = userID
	return nil
}

type trialReminder struct {
	userID   string
	trialEnd *time.Time
}

type fakeTrialNotifier struct {
	reminders []trialReminder
}

func (f *fakeTrialNotifier) NotifyTrialEnding(ctx context.Context, userID string, trialEnd *time.Time) error {
	f.reminders = append(f.reminders, trialReminder{userID, trialEnd})
	return nil
}

func newTestWebhookHandler(t *testing.T) (*StripeWebhookHandler, *fakeBillingStore, *fakeSubscriptionAPI) {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	store := &fakeBillingStore{profilesByCustomer: map[string]*profile.Profile{}}
	api := &fakeSubscriptionAPI{subs: map[string]*stripe.Subscription{}}
	return NewStripeWebhookHandler(store, api, nil), store, api
}

func signedRequest(body []byte, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, body, secret)
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig)))
	return req
}

func eventBody(eventType, object string) []byte {
	// ConstructEvent rejects events whose api_version differs from the SDK's.
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, object))
}

func subscriptionObject(metadata string) string {
	return `{
		"id": "sub_1",
		"object": "subscription",
		"customer": "cus_1",
		"status": "active",
		"metadata": ` + metadata + `,
		"items": {"data": [{"price": {"id": "price_pro_monthly"}}]},
		"current_period_start": 1750000000,
		"current_period_end": 1752592000
	}`
}

func TestStripeWebhookRejectsTamperedPayload(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{"userId":"user-1"}`))
	req := signedRequest(body, testWebhookSecret)

	// Re-issue the request with a modified body under the original signature.
	tampered := bytes.Replace(body, []byte("user-1"), []byte("user-2"), 1)
	req.Body = httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(tampered)).Body

	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.applied)
	assert.Empty(t, store.cleared)
	assert.Empty(t, store.downgraded)
}

func TestStripeWebhookRejectsMissingSignature(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{"userId":"user-1"}`))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))

	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.applied)
}

func TestStripeWebhookWithoutSecretIsUnavailable(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	store := &fakeBillingStore{}
	h := NewStripeWebhookHandler(store, &fakeSubscriptionAPI{}, nil)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{"userId":"user-1"}`))
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, "whsec_other"))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Empty(t, store.applied)
}

func TestStripeWebhookSubscriptionUpdated(t *testing.T) {
	h, store, api := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{"userId":"user-1"}`))
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.applied, 1)

	upd := store.applied[0]
	assert.Equal(t, "user-1", upd.UserID)
	assert.Equal(t, "cus_1", upd.StripeCustomerID)
	assert.Equal(t, "sub_1", upd.StripeSubscriptionID)
	assert.Equal(t, "price_pro_monthly", upd.StripePriceID)
	assert.Equal(t, subscription.StatusActive, upd.Status)
	require.NotNil(t, upd.CurrentPeriodStart)
	assert.Equal(t, int64(1750000000), upd.CurrentPeriodStart.Unix())
	require.NotNil(t, upd.CurrentPeriodEnd)
	assert.Equal(t, int64(1752592000), upd.CurrentPeriodEnd.Unix())

	// Metadata resolution needs no backfill.
	assert.Empty(t, api.backfills)
}

func TestStripeWebhookCustomerFallbackBackfillsMetadata(t *testing.T) {
	h, store, api := newTestWebhookHandler(t)
	store.profilesByCustomer["cus_1"] = &profile.Profile{ID: "user-9"}

	body := eventBody("customer.subscription.updated", subscriptionObject(`{}`))
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.applied, 1)
	assert.Equal(t, "user-9", store.applied[0].UserID)
	assert.Equal(t, "user-9", api.backfills["sub_1"])
}

func TestStripeWebhookUnresolvableEventIsDropped(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{}`))
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	// Acknowledged so Stripe stops retrying, but nothing written.
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, store.applied)
}

func TestStripeWebhookUnknownStatusIsDropped(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	object := `{
		"id": "sub_1",
		"object": "subscription",
		"customer": "cus_1",
		"status": "mystery_state",
		"metadata": {"userId": "user-1"},
		"items": {"data": [{"price": {"id": "price_pro_monthly"}}]}
	}`
	body := eventBody("customer.subscription.updated", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, store.applied)
}

func TestStripeWebhookSubscriptionDeleted(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.deleted", subscriptionObject(`{"userId":"user-1"}`))
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.cleared, 1)
	assert.Equal(t, "user-1", store.cleared[0].userID)
	require.NotNil(t, store.cleared[0].finalPeriodEnd)
	assert.Equal(t, int64(1752592000), store.cleared[0].finalPeriodEnd.Unix())
	assert.Empty(t, store.applied)
}

func TestStripeWebhookPaymentFailed(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	object := `{
		"id": "in_1",
		"object": "invoice",
		"customer": "cus_1",
		"subscription_details": {"metadata": {"userId": "user-1"}}
	}`
	body := eventBody("invoice.payment_failed", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"user-1"}, store.downgraded)
}

func TestStripeWebhookPaymentFailedWithoutMetadataIsDropped(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)
	// Even with a resolvable customer, the failed-payment path only trusts
	// subscription metadata.
	store.profilesByCustomer["cus_1"] = &profile.Profile{ID: "user-9"}

	object := `{"id": "in_1", "object": "invoice", "customer": "cus_1"}`
	body := eventBody("invoice.payment_failed", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, store.downgraded)
}

func TestStripeWebhookCheckoutCompleted(t *testing.T) {
	h, store, api := newTestWebhookHandler(t)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	api.subs["sub_1"] = &stripe.Subscription{
		ID:       "sub_1",
		Customer: &stripe.Customer{ID: "cus_1"},
		Status:   stripe.SubscriptionStatusTrialing,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_pro_monthly"}},
			},
		},
		CurrentPeriodEnd: periodEnd,
	}

	object := `{
		"id": "cs_1",
		"object": "checkout.session",
		"customer": "cus_1",
		"subscription": "sub_1",
		"metadata": {"userId": "user-1"}
	}`
	body := eventBody("checkout.session.completed", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.applied, 1)

	upd := store.applied[0]
	assert.Equal(t, "user-1", upd.UserID)
	assert.Equal(t, "sub_1", upd.StripeSubscriptionID)
	assert.Equal(t, subscription.StatusTrialing, upd.Status)
	require.NotNil(t, upd.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, upd.CurrentPeriodEnd.Unix())

	// The fetched subscription carried no metadata, so the session's userId
	// was pushed onto it.
	assert.Equal(t, "user-1", api.backfills["sub_1"])
}

func TestStripeWebhookPaymentSucceededRefreshesSubscription(t *testing.T) {
	h, store, api := newTestWebhookHandler(t)

	api.subs["sub_1"] = &stripe.Subscription{
		ID:       "sub_1",
		Customer: &stripe.Customer{ID: "cus_1"},
		Status:   stripe.SubscriptionStatusActive,
		Metadata: map[string]string{"userId": "user-1"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_pro_monthly"}},
			},
		},
		CurrentPeriodEnd: 1752592000,
	}

	object := `{
		"id": "in_1",
		"object": "invoice",
		"customer": "cus_1",
		"subscription": "sub_1"
	}`
	body := eventBody("invoice.payment_succeeded", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.applied, 1)
	assert.Equal(t, "user-1", store.applied[0].UserID)
	assert.Equal(t, subscription.StatusActive, store.applied[0].Status)
}

func TestStripeWebhookTrialWillEndSendsReminder(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)
	store := &fakeBillingStore{}
	notifier := &fakeTrialNotifier{}
	h := NewStripeWebhookHandler(store, &fakeSubscriptionAPI{}, notifier)

	trialEnd := time.Now().Add(3 * 24 * time.Hour).Unix()
	object := fmt.Sprintf(`{
		"id": "sub_1",
		"object": "subscription",
		"customer": "cus_1",
		"status": "trialing",
		"metadata": {"userId": "user-1"},
		"trial_end": %d
	}`, trialEnd)
	body := eventBody("customer.subscription.trial_will_end", object)
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, notifier.reminders, 1)
	assert.Equal(t, "user-1", notifier.reminders[0].userID)
	require.NotNil(t, notifier.reminders[0].trialEnd)
	assert.Equal(t, trialEnd, notifier.reminders[0].trialEnd.Unix())

	// Billing state is untouched by the reminder.
	assert.Empty(t, store.applied)
}

func TestStripeWebhookReplayIsIdempotent(t *testing.T) {
	h, store, _ := newTestWebhookHandler(t)

	body := eventBody("customer.subscription.updated", subscriptionObject(`{"userId":"user-1"}`))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.HandleWebhook(rr, signedRequest(body, testWebhookSecret))
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	// Replays converge: the same update is applied twice, byte for byte.
	require.Len(t, store.applied, 2)
	assert.Equal(t, store.applied[0], store.applied[1])
}
