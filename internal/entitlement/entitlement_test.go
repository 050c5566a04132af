package entitlement

import (
	"testing"
	"time"

	"jobRadarAPI/internal/plan"
	"jobRadarAPI/internal/types/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func activeProfile() *profile.Profile {
	start := time.Now().Add(-10 * 24 * time.Hour)
	end := time.Now().Add(20 * 24 * time.Hour)
	return &profile.Profile{
		ID:                   "user-1",
		AccountType:          profile.AccountUser,
		SubscriptionTier:     "pro",
		StripeSubscriptionID: strPtr("sub_123"),
		StripePriceID:        strPtr(plan.Pro().PriceID),
		Status:               strPtr("active"),
		CurrentPeriodStart:   timePtr(start),
		CurrentPeriodEnd:     timePtr(end),
	}
}

func TestResolveNilProfileIsFree(t *testing.T) {
	v := Resolve(nil)

	assert.False(t, v.IsActive)
	assert.False(t, v.IsTrial)
	assert.Equal(t, plan.FreeID, v.PlanID)
	assert.False(t, v.CanCreateQueries)
	assert.False(t, v.CanResumeQueries)
	assert.False(t, v.CanFetchNewJobs)
	assert.Equal(t, 0, v.MaxQueries)
}

func TestResolveActiveSubscription(t *testing.T) {
	v := Resolve(activeProfile())

	assert.True(t, v.IsActive)
	assert.False(t, v.IsTrial)
	assert.Equal(t, plan.ProID, v.PlanID)
	assert.True(t, v.CanCreateQueries)
	assert.True(t, v.CanResumeQueries)
	assert.True(t, v.CanFetchNewJobs)
	assert.Equal(t, Unlimited, v.MaxQueries)
	assert.Equal(t, Unlimited, v.MaxJobsPerMonth)
}

func TestResolveTrialingStatus(t *testing.T) {
	p := activeProfile()
	p.Status = strPtr("trialing")

	v := Resolve(p)

	assert.True(t, v.IsActive)
	assert.True(t, v.IsTrial)
	assert.True(t, v.CanCreateQueries)
}

func TestResolveShortPeriodActiveCountsAsTrial(t *testing.T) {
	p := activeProfile()
	p.CurrentPeriodStart = timePtr(time.Now())
	p.CurrentPeriodEnd = timePtr(time.Now().Add(3 * 24 * time.Hour))

	v := Resolve(p)

	assert.True(t, v.IsTrial)
	assert.True(t, v.IsActive)
}

func TestResolvePrivilegedBypassesBilling(t *testing.T) {
	for _, at := range []profile.AccountType{profile.AccountPrivileged, profile.AccountAdmin} {
		p := &profile.Profile{
			ID:          "user-1",
			AccountType: at,
			// Stale billing fields must not matter.
			Status:           strPtr("canceled"),
			SubscriptionTier: "free",
		}

		v := Resolve(p)

		assert.True(t, v.IsActive, "account type %s", at)
		assert.True(t, v.IsPrivileged, "account type %s", at)
		assert.True(t, v.CanCreateQueries, "account type %s", at)
		assert.Equal(t, Unlimited, v.MaxQueries, "account type %s", at)
		assert.Equal(t, Unlimited, v.MaxJobsPerMonth, "account type %s", at)
	}
}

func TestResolveCanceledSubscriptionIsFree(t *testing.T) {
	p := activeProfile()
	p.Status = strPtr("canceled")
	p.SubscriptionTier = "free"

	v := Resolve(p)

	assert.False(t, v.IsActive)
	assert.False(t, v.CanCreateQueries)
	assert.Equal(t, plan.FreeID, v.PlanID)
	assert.Equal(t, 0, v.MaxQueries)
}

func TestResolveNoSubscriptionIDBlocksActive(t *testing.T) {
	// Status says active but there is no subscription id on record.
	p := activeProfile()
	p.StripeSubscriptionID = nil
	p.SubscriptionTier = "free"
	p.CurrentPeriodStart = nil
	p.CurrentPeriodEnd = nil

	v := Resolve(p)

	assert.False(t, v.IsActive)
	assert.False(t, v.CanCreateQueries)
}

func TestResolveUnknownPriceDefaultsToPro(t *testing.T) {
	p := activeProfile()
	p.StripePriceID = strPtr("price_unknown")

	v := Resolve(p)

	require.True(t, v.IsActive)
	assert.Equal(t, plan.ProID, v.PlanID)
}

func TestResolveLegacyTierWithoutSubscription(t *testing.T) {
	p := &profile.Profile{
		ID:               "user-1",
		AccountType:      profile.AccountUser,
		SubscriptionTier: "pro",
	}

	v := Resolve(p)

	// Legacy tier picks the pro plan config but grants no capabilities.
	assert.Equal(t, plan.ProID, v.PlanID)
	assert.False(t, v.IsActive)
	assert.False(t, v.CanCreateQueries)
}

func TestResolveStatusFallsBackToPlanID(t *testing.T) {
	p := &profile.Profile{
		ID:          "user-1",
		AccountType: profile.AccountUser,
	}

	v := Resolve(p)

	assert.Equal(t, plan.FreeID, v.Status)
}

func TestResolveCapabilityFlagsAgree(t *testing.T) {
	profiles := []*profile.Profile{
		nil,
		activeProfile(),
		{ID: "u", AccountType: profile.AccountUser},
		{ID: "u", AccountType: profile.AccountAdmin},
	}

	for i, p := range profiles {
		v := Resolve(p)
		assert.Equal(t, v.CanCreateQueries, v.CanResumeQueries, "case %d", i)
		assert.Equal(t, v.CanCreateQueries, v.CanFetchNewJobs, "case %d", i)
	}
}
