package booking

import "time"

// Clock supplies the current time; injectable so time-sensitive rules
// (early-bird discounts, cancellation fees) are testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func SystemClock() Clock { return systemClock{} }
