package server

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestNotificationThrottle(t *testing.T) {
	base := time.Date(2024, 6, 12, 9, 30, 0, 0, time.UTC)
	current := base
	nt := NewNotificationThrottle(5 * time.Minute)
	nt.now = func() time.Time { return current }

	assert.Assert(t, nt.ShouldNotify(testIMEI))
	nt.MarkSent(testIMEI)

	current = base.Add(time.Minute)
	assert.Assert(t, !nt.ShouldNotify(testIMEI))

	// other devices are throttled independently
	assert.Assert(t, nt.ShouldNotify("860000000000001"))

	current = base.Add(5 * time.Minute)
	assert.Assert(t, nt.ShouldNotify(testIMEI))
	nt.MarkSent(testIMEI)

	current = current.Add(time.Minute)
	assert.Assert(t, !nt.ShouldNotify(testIMEI))
}
