package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jobRadarAPI/internal/entitlement"
	"jobRadarAPI/internal/plan"
	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"
	"jobRadarAPI/middleware"
	"jobRadarAPI/services"
)

type BillingHandler struct {
	billingService *services.BillingService
	profileService *services.ProfileService
}

func NewBillingHandler(billingService *services.BillingService, profileService *services.ProfileService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		profileService: profileService,
	}
}

func (h *BillingHandler) profile(ctx context.Context, w http.ResponseWriter) (*profile.Profile, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return nil, false
	}
	p, err := h.profileService.GetProfileByClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Profile not found")
		return nil, false
	}
	return p, true
}

// GetSubscription returns the entitlement view derived from the caller's
// profile. Unreadable billing state degrades to the free view instead of an
// error so the dashboard always renders.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.profileService.GetProfileByClerkID(ctx, clerkID)
	if err != nil {
		respondWithJSON(w, http.StatusOK, entitlement.FreeView())
		return
	}

	respondWithJSON(w, http.StatusOK, entitlement.Resolve(p))
}

// GetPlans lists the purchasable plans for the pricing page.
func (h *BillingHandler) GetPlans(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, plan.All())
}

func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !h.billingService.IsConfigured() {
		respondWithError(w, http.StatusServiceUnavailable, "Billing is not configured")
		return
	}

	var req subscription.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PriceID != "" {
		if _, ok := plan.ByPriceID(req.PriceID); !ok {
			respondWithError(w, http.StatusBadRequest, "Unknown price id")
			return
		}
	}

	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}

	resp, err := h.billingService.CreateCheckoutSession(ctx, p, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *BillingHandler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !h.billingService.IsConfigured() {
		respondWithError(w, http.StatusServiceUnavailable, "Billing is not configured")
		return
	}

	p, ok := h.profile(ctx, w)
	if !ok {
		return
	}

	if p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
		respondWithError(w, http.StatusNotFound, "No billing account for this user")
		return
	}

	resp, err := h.billingService.CreatePortalSession(ctx, p)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}
