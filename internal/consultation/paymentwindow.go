package consultation

import (
	"context"
	"sync"
	"time"
)

// DefaultPaymentWindow is how long a booking may sit in waiting-for-payment.
const DefaultPaymentWindow = 10 * time.Minute

// PaymentWindow is the countdown gate for one consultation in
// waiting-for-payment. Expiry is decided by comparing the wall-clock deadline
// against the clock, never by counting ticks, so a client that was suspended
// past the deadline detects "already expired" immediately on resume.
type PaymentWindow struct {
	deadline time.Time
	clock    Clock

	mu      sync.Mutex
	expired bool
}

func NewPaymentWindow(createdAt time.Time, window time.Duration, clock Clock) *PaymentWindow {
	if window <= 0 {
		window = DefaultPaymentWindow
	}
	if clock == nil {
		clock = SystemClock
	}
	return &PaymentWindow{deadline: createdAt.Add(window), clock: clock}
}

// Remaining returns the time left before expiry, floored at zero.
func (w *PaymentWindow) Remaining() time.Duration {
	d := w.deadline.Sub(w.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// RemainingSeconds is Remaining in whole seconds for display.
func (w *PaymentWindow) RemainingSeconds() int64 {
	return int64(w.Remaining() / time.Second)
}

// Expire reports whether the deadline has passed, returning true exactly
// once. Later calls past the deadline return false; the window is inert.
func (w *PaymentWindow) Expire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired {
		return false
	}
	if w.clock.Now().Before(w.deadline) {
		return false
	}
	w.expired = true
	return true
}

// Expired reports whether the expiry signal already fired.
func (w *PaymentWindow) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Run drives the countdown: onTick once per second with the remaining
// seconds, onExpire exactly once when the deadline passes. Returns when the
// window expires or ctx is cancelled. An already-lapsed deadline fires
// onExpire before the first tick.
func (w *PaymentWindow) Run(ctx context.Context, onTick func(remaining int64), onExpire func()) {
	if w.Expire() {
		if onExpire != nil {
			onExpire()
		}
		return
	}
	if w.Expired() {
		// sinyal sudah pernah terpicu, window inert
		return
	}
	if onTick != nil {
		onTick(w.RemainingSeconds())
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Expire() {
				if onTick != nil {
					onTick(0)
				}
				if onExpire != nil {
					onExpire()
				}
				return
			}
			if w.Expired() {
				return
			}
			if onTick != nil {
				onTick(w.RemainingSeconds())
			}
		}
	}
}
