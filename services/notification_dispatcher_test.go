package services

import (
	"testing"
	"time"

	"jobRadarAPI/internal/types/notification"

	"github.com/stretchr/testify/assert"
)

func quietPrefs(start, end, tz string) *notification.Preferences {
	return &notification.Preferences{
		QuietHoursEnabled:  true,
		QuietHoursStart:    start,
		QuietHoursEnd:      end,
		QuietHoursTimezone: tz,
	}
}

func atClock(t *testing.T, tz string, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load location %s: %v", tz, err)
	}
	return time.Date(2025, 6, 15, hour, min, 0, 0, loc)
}

func TestInQuietHoursDisabled(t *testing.T) {
	prefs := quietPrefs("22:00", "08:00", "UTC")
	prefs.QuietHoursEnabled = false

	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 23, 0)))
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	prefs := quietPrefs("13:00", "15:00", "UTC")

	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 12, 59)))
	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 13, 0)))
	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 14, 30)))
	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 15, 0)))
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	prefs := quietPrefs("22:00", "08:00", "UTC")

	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 23, 0)))
	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 3, 0)))
	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 7, 59)))
	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 8, 0)))
	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 12, 0)))
}

func TestInQuietHoursRespectsTimezone(t *testing.T) {
	prefs := quietPrefs("22:00", "08:00", "America/New_York")

	// 03:00 UTC is 22:00 or 23:00 in New York depending on DST, inside the
	// window either way.
	assert.True(t, InQuietHours(prefs, atClock(t, "UTC", 3, 0)))
	// 16:00 UTC is late morning or noon in New York.
	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 16, 0)))
}

func TestInQuietHoursMalformedSettings(t *testing.T) {
	assert.False(t, InQuietHours(quietPrefs("25:99", "08:00", "UTC"), atClock(t, "UTC", 23, 0)))
	assert.False(t, InQuietHours(quietPrefs("22:00", "nope", "UTC"), atClock(t, "UTC", 23, 0)))
	assert.False(t, InQuietHours(quietPrefs("22:00", "08:00", "Mars/Olympus"), atClock(t, "UTC", 23, 0)))
}

func TestInQuietHoursZeroLengthWindow(t *testing.T) {
	prefs := quietPrefs("08:00", "08:00", "UTC")

	assert.False(t, InQuietHours(prefs, atClock(t, "UTC", 8, 0)))
}
