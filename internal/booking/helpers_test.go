package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustTOD(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func slotOf(t *testing.T, start, end string) TimeSlot {
	t.Helper()
	return TimeSlot{Start: mustTOD(t, start), End: mustTOD(t, end)}
}

// openAllWeek builds an availability open every day with the given hours.
func openAllWeek(t *testing.T, open, close string, services ...VendorService) *VendorAvailability {
	t.Helper()
	av := &VendorAvailability{VendorID: uuid.New(), Services: services}
	for d := range av.Hours {
		av.Hours[d] = DayHours{Open: mustTOD(t, open), Close: mustTOD(t, close), IsOpen: true}
	}
	return av
}

func dateUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func activeBooking(t *testing.T, start, end string, status Status) *Booking {
	t.Helper()
	return &Booking{
		ID:     uuid.New(),
		Slot:   slotOf(t, start, end),
		Status: status,
	}
}
