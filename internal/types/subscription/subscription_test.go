package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{
		"trialing", "active", "past_due", "canceled", "unpaid",
		"incomplete", "incomplete_expired", "paused", "free",
	} {
		s, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, Status(raw), s)
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "ACTIVE", "cancelled", "expired"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, raw)
	}
}

func TestActiveLike(t *testing.T) {
	assert.True(t, StatusActive.ActiveLike())
	assert.True(t, StatusTrialing.ActiveLike())
	assert.False(t, StatusPastDue.ActiveLike())
	assert.False(t, StatusCanceled.ActiveLike())
	assert.False(t, StatusFree.ActiveLike())
}

func TestBillingUpdateTier(t *testing.T) {
	upd := &BillingUpdate{Status: StatusActive}
	assert.Equal(t, "pro", upd.Tier())

	upd.Status = StatusTrialing
	assert.Equal(t, "pro", upd.Tier())

	upd.Status = StatusPastDue
	assert.Equal(t, "free", upd.Tier())
}
