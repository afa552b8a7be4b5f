package booking

import "time"

// Cancellation fee tiers by notice before the service start.
const (
	freeCancellationNotice = 24 * time.Hour
	lateCancellationNotice = 2 * time.Hour

	lateCancellationFeeBps       = 2500
	lastMinuteCancellationFeeBps = 5000
)

// CancellationFee computes the fee owed for cancelling the booking at now.
// Pure function.
//
// A negative notice (cancelling after the slot has passed) falls in the
// last-minute tier; there is deliberately no separate no-show tier.
func CancellationFee(b *Booking, now time.Time) Money {
	notice := b.ServiceStart().Sub(now)
	switch {
	case notice >= freeCancellationNotice:
		return 0
	case notice >= lateCancellationNotice:
		return MulRate(b.Pricing.Total, lateCancellationFeeBps)
	default:
		return MulRate(b.Pricing.Total, lastMinuteCancellationFeeBps)
	}
}
