package models

import "testing"

func TestDeriveBookingIDStable(t *testing.T) {
	a := DeriveBookingID("KOA", "04/03/2025", "04/10/2025", "Compact Car")
	b := DeriveBookingID("KOA", "04/03/2025", "04/10/2025", "Compact Car")
	if a != b {
		t.Fatalf("same inputs produced different ids: %q vs %q", a, b)
	}
}

func TestDeriveBookingIDStripsSlashes(t *testing.T) {
	id := DeriveBookingID("KOA", "04/03/2025", "04/10/2025", "Compact Car")
	want := "KOA_04032025_04102025_CompactCar"
	if id != want {
		t.Fatalf("got %q, want %q", id, want)
	}
}

func TestDeriveBookingIDCategoryAware(t *testing.T) {
	compact := DeriveBookingID("KOA", "04/03/2025", "04/10/2025", "Compact Car")
	suv := DeriveBookingID("KOA", "04/03/2025", "04/10/2025", "Standard SUV")
	if compact == suv {
		t.Fatalf("bookings differing only in category collided: %q", compact)
	}
}

func TestDeriveBookingIDSlugKeepsCaseAndDigits(t *testing.T) {
	id := DeriveBookingID("HNL", "05/01/2025", "05/08/2025", "Full-Size Car (4dr)")
	want := "HNL_05012025_05082025_FullSizeCar4dr"
	if id != want {
		t.Fatalf("got %q, want %q", id, want)
	}
}
