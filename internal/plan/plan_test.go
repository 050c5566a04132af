package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProPriceIDFromEnv(t *testing.T) {
	t.Setenv("STRIPE_PRO_PRICE_ID", "price_from_env")

	assert.Equal(t, "price_from_env", Pro().PriceID)
}

func TestProPriceIDDefault(t *testing.T) {
	t.Setenv("STRIPE_PRO_PRICE_ID", "")

	assert.Equal(t, defaultProPriceID, Pro().PriceID)
}

func TestByID(t *testing.T) {
	p, ok := ByID(ProID)
	require.True(t, ok)
	assert.Equal(t, "Pro", p.Name)

	_, ok = ByID("enterprise")
	assert.False(t, ok)
}

func TestByPriceID(t *testing.T) {
	t.Setenv("STRIPE_PRO_PRICE_ID", "price_pro_test")

	p, ok := ByPriceID("price_pro_test")
	require.True(t, ok)
	assert.Equal(t, ProID, p.ID)

	_, ok = ByPriceID("price_other")
	assert.False(t, ok)
}

func TestByPriceIDEmptyNeverMatches(t *testing.T) {
	// The free plan has no price id; an empty lookup must not match it.
	_, ok := ByPriceID("")
	assert.False(t, ok)
}

func TestFreePlanHasNoTrial(t *testing.T) {
	assert.Zero(t, Free().TrialDays)
	assert.NotEmpty(t, Free().Limitations)
}
