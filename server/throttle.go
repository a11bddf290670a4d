package server

import (
	"sync"
	"time"
)

// NotificationThrottle gates outbound alerts to one per IMEI per
// cooldown window. It is the only state shared across connections, so
// every access takes the lock. Entries are one timestamp per device
// and live for the process lifetime.
type NotificationThrottle struct {
	mu       sync.Mutex
	window   time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
}

func NewNotificationThrottle(window time.Duration) *NotificationThrottle {
	return &NotificationThrottle{
		window:   window,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// ShouldNotify reports whether the cooldown window for an IMEI has
// elapsed. It does not mark anything: call MarkSent only once the
// notification has actually been dispatched.
func (nt *NotificationThrottle) ShouldNotify(imei string) bool {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	last, ok := nt.lastSent[imei]
	if !ok {
		return true
	}
	return nt.now().Sub(last) >= nt.window
}

func (nt *NotificationThrottle) MarkSent(imei string) {
	nt.mu.Lock()
	defer nt.mu.Unlock()
	nt.lastSent[imei] = nt.now()
}
