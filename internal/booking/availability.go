package booking

import "time"

// IsAvailable reports whether the vendor can accept a booking at the given
// date and slot. It is a pure pre-check over its inputs; it does not enforce
// atomicity. The engine re-validates inside the slot lock and the repository's
// atomic reserve is what ultimately prevents the race.
func IsAvailable(av *VendorAvailability, date time.Time, slot TimeSlot, existing []*Booking) bool {
	if !SlotWithinHours(av, date, slot) {
		return false
	}
	for _, b := range existing {
		if !b.IsActive() {
			continue
		}
		if b.Slot.Overlaps(slot) {
			return false
		}
	}
	return true
}

// SlotWithinHours reports whether the slot falls inside the vendor's
// operating hours [open, close) for the date's weekday.
func SlotWithinHours(av *VendorAvailability, date time.Time, slot TimeSlot) bool {
	hours := av.HoursOn(date.Weekday())
	if !hours.IsOpen {
		return false
	}
	return slot.Start >= hours.Open && slot.End <= hours.Close
}
