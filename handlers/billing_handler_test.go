package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobRadarAPI/services"

	"github.com/stretchr/testify/assert"
)

func newTestBillingHandler(t *testing.T) *BillingHandler {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	return NewBillingHandler(services.NewBillingService(nil), nil)
}

func TestCreateCheckoutSessionRejectsUnknownPrice(t *testing.T) {
	h := newTestBillingHandler(t)

	body := bytes.NewBufferString(`{"priceId": "price_does_not_exist"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", body)
	rr := httptest.NewRecorder()

	// Price validation runs before any profile or Stripe work, so an unknown
	// price is rejected without touching either.
	h.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Unknown price id")
}

func TestCreateCheckoutSessionAcceptsKnownPrice(t *testing.T) {
	h := newTestBillingHandler(t)

	body := bytes.NewBufferString(`{"priceId": "price_pro_monthly"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", body)
	rr := httptest.NewRecorder()

	// A known price clears validation; the request then fails on the missing
	// auth context instead.
	h.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateCheckoutSessionUnconfiguredBilling(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	h := NewBillingHandler(services.NewBillingService(nil), nil)

	body := bytes.NewBufferString(`{"priceId": "price_pro_monthly"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", body)
	rr := httptest.NewRecorder()

	h.CreateCheckoutSession(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
