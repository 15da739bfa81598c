package models

import (
	"testing"
	"time"
)

func TestBookingExpiredBoundary(t *testing.T) {
	now := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dropoff string
		want    bool
	}{
		{"yesterday", "04/09/2025", true},
		{"today", "04/10/2025", false},
		{"tomorrow", "04/11/2025", false},
		{"malformed", "not-a-date", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Booking{DropoffDate: tt.dropoff}
			if got := b.Expired(now); got != tt.want {
				t.Fatalf("Expired(%s) = %v, want %v", tt.dropoff, got, tt.want)
			}
		})
	}
}

func TestObservationLowest(t *testing.T) {
	obs := PriceObservation{Prices: map[string]float64{
		"Economy Car": 210.50,
		"Compact Car": 230.00,
		"Premium":     410.00,
	}}
	lowest := obs.Lowest()
	if lowest == nil {
		t.Fatal("expected a lowest price")
	}
	if lowest.Category != "Economy Car" || lowest.Price != 210.50 {
		t.Fatalf("got %s at %.2f, want Economy Car at 210.50", lowest.Category, lowest.Price)
	}
}

func TestObservationLowestEmpty(t *testing.T) {
	obs := PriceObservation{Prices: map[string]float64{}}
	if obs.Lowest() != nil {
		t.Fatal("empty snapshot should have no lowest price")
	}
}

func TestObservationFocusPriceMissing(t *testing.T) {
	obs := PriceObservation{Prices: map[string]float64{"Economy Car": 200}}
	if p := obs.FocusPrice("Standard SUV"); p != nil {
		t.Fatalf("missing category should yield nil, got %v", *p)
	}
	if p := obs.FocusPrice("Economy Car"); p == nil || *p != 200 {
		t.Fatalf("present category should yield its price")
	}
}

func TestAlertworthy(t *testing.T) {
	if !(&BookingReport{Status: StatusRebook}).Alertworthy() {
		t.Fatal("rebook must be alertworthy")
	}
	if !(&BookingReport{Status: StatusWaiting, SignificantDrop: true}).Alertworthy() {
		t.Fatal("significant drop must be alertworthy regardless of status")
	}
	if (&BookingReport{Status: StatusWaiting}).Alertworthy() {
		t.Fatal("waiting without a drop must not alert")
	}
	if (&BookingReport{Status: StatusTracking}).Alertworthy() {
		t.Fatal("tracking without a drop must not alert")
	}
}
