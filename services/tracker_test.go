package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/storage"
	"rental-price-tracker/utils"
)

func newTestTracker(t *testing.T) *BookingTracker {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "price_history.json"), utils.NewLogger())
	tracker, err := NewBookingTracker(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	return tracker
}

func mustAdd(t *testing.T, tracker *BookingTracker, location, pickup, dropoff, category string) string {
	t.Helper()
	id, err := tracker.AddBooking(location, pickup, dropoff, category, "12:00 PM", "12:00 PM", nil)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestAddBookingRegistersActive(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	booking, err := tracker.Booking(id)
	if err != nil {
		t.Fatal(err)
	}
	if booking.LocationFullName != "Kailua-Kona International Airport" {
		t.Errorf("location name = %q", booking.LocationFullName)
	}
	if !tracker.Registry().IsActive(id) {
		t.Error("new booking should be in the active set")
	}
	if len(tracker.ActiveBookings()) != 1 {
		t.Errorf("active bookings = %d, want 1", len(tracker.ActiveBookings()))
	}
}

func TestAddBookingDuplicateIsNoOp(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	if _, err := tracker.AppendObservation(id, map[string]float64{"Compact Car": 210}); err != nil {
		t.Fatal(err)
	}

	again := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")
	if again != id {
		t.Fatalf("duplicate add returned %q, want existing id %q", again, id)
	}

	booking, _ := tracker.Booking(id)
	if len(booking.PriceHistory) != 1 {
		t.Fatal("duplicate add must not reset history")
	}
	if len(tracker.Registry().Metadata.ActiveBookings) != 1 {
		t.Fatal("duplicate add must not duplicate the active entry")
	}
}

func TestAppendObservationMonotonic(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	for i := 0; i < 5; i++ {
		if _, err := tracker.AppendObservation(id, map[string]float64{"Compact Car": 200 + float64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	booking, _ := tracker.Booking(id)
	if len(booking.PriceHistory) != 5 {
		t.Fatalf("history length = %d, want 5", len(booking.PriceHistory))
	}
	for i := 1; i < len(booking.PriceHistory); i++ {
		if booking.PriceHistory[i].Timestamp.Before(booking.PriceHistory[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at index %d", i)
		}
	}
}

func TestAppendObservationComputesLowest(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	obs, err := tracker.AppendObservation(id, map[string]float64{
		"Compact Car": 230,
		"Economy Car": 210,
	})
	if err != nil {
		t.Fatal(err)
	}
	if obs.LowestPrice == nil || obs.LowestPrice.Category != "Economy Car" || obs.LowestPrice.Price != 210 {
		t.Fatalf("lowest = %+v, want Economy Car at 210", obs.LowestPrice)
	}
}

func TestAppendObservationValidation(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	if _, err := tracker.AppendObservation("nope", map[string]float64{"A": 1}); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatalf("unknown booking: err = %v, want ErrBookingNotFound", err)
	}
	if _, err := tracker.AppendObservation(id, map[string]float64{}); !errors.Is(err, models.ErrEmptySnapshot) {
		t.Fatalf("empty snapshot: err = %v, want ErrEmptySnapshot", err)
	}
}

func TestDeleteBookingPurgesHistory(t *testing.T) {
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "h.json"), utils.NewLogger())
	tracker, err := NewBookingTracker(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}

	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")
	if _, err := tracker.AppendObservation(id, map[string]float64{"Compact Car": 210}); err != nil {
		t.Fatal(err)
	}

	if err := tracker.DeleteBooking(id); err != nil {
		t.Fatal(err)
	}
	if err := tracker.DeleteBooking(id); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatalf("second delete: err = %v, want ErrBookingNotFound", err)
	}

	// Reload from disk: the deletion must have persisted
	reloaded, err := NewBookingTracker(store, utils.NewLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reloaded.Booking(id); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatal("deleted booking survived a reload")
	}
}

func TestArchiveBookingRetainsHistory(t *testing.T) {
	tracker := newTestTracker(t)
	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")
	if _, err := tracker.AppendObservation(id, map[string]float64{"Compact Car": 210}); err != nil {
		t.Fatal(err)
	}

	if err := tracker.ArchiveBooking(id); err != nil {
		t.Fatal(err)
	}
	if tracker.Registry().IsActive(id) {
		t.Error("archived booking still active")
	}
	booking, err := tracker.Booking(id)
	if err != nil {
		t.Fatal("archived booking should still exist")
	}
	if len(booking.PriceHistory) != 1 {
		t.Error("archival must retain history")
	}
}

func TestCleanupExpiredBoundary(t *testing.T) {
	tracker := newTestTracker(t)
	tracker.now = func() time.Time { return time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC) }

	expired := mustAdd(t, tracker, "KOA", "04/01/2025", "04/09/2025", "Compact Car")
	today := mustAdd(t, tracker, "HNL", "04/05/2025", "04/10/2025", "Compact Car")
	future := mustAdd(t, tracker, "OGG", "04/20/2025", "04/27/2025", "Compact Car")

	removed, err := tracker.CleanupExpired()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != expired {
		t.Fatalf("removed = %v, want [%s]", removed, expired)
	}
	if _, err := tracker.Booking(today); err != nil {
		t.Error("booking with dropoff today must be retained")
	}
	if _, err := tracker.Booking(future); err != nil {
		t.Error("future booking must be retained")
	}
	if tracker.Registry().IsActive(expired) {
		t.Error("expired booking still in active set")
	}

	// No expired bookings left: sweep is a no-op
	removed, err = tracker.CleanupExpired()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 0 {
		t.Fatalf("second sweep removed %v, want none", removed)
	}
}

func TestSetHoldingPriceLedger(t *testing.T) {
	tracker := newTestTracker(t)
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time {
		clock = clock.Add(24 * time.Hour)
		return clock
	}

	id := mustAdd(t, tracker, "KOA", "04/03/2025", "04/10/2025", "Compact Car")

	if err := tracker.SetHoldingPrice("nope", 200); !errors.Is(err, models.ErrBookingNotFound) {
		t.Fatalf("unknown booking: err = %v, want ErrBookingNotFound", err)
	}

	if err := tracker.SetHoldingPrice(id, 250); err != nil {
		t.Fatal(err)
	}
	if err := tracker.SetHoldingPrice(id, 230); err != nil {
		t.Fatal(err)
	}

	booking, _ := tracker.Booking(id)
	if booking.HoldingPrice == nil || *booking.HoldingPrice != 230 {
		t.Fatalf("scalar holding price = %v, want 230", booking.HoldingPrice)
	}
	if len(booking.HoldingHistory) != 2 {
		t.Fatalf("holding history length = %d, want 2", len(booking.HoldingHistory))
	}

	open := 0
	for _, rec := range booking.HoldingHistory {
		if rec.EffectiveTo == nil {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("open holding records = %d, want exactly 1", open)
	}

	details, err := tracker.HoldingPriceDetails(id)
	if err != nil {
		t.Fatal(err)
	}
	if details.InitialPrice != 250 || details.CurrentPrice != 230 {
		t.Errorf("details = %+v, want initial 250, current 230", details)
	}
	if details.TotalChanges != 1 {
		t.Errorf("total changes = %d, want 1", details.TotalChanges)
	}
}
