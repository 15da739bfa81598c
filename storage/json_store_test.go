package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/utils"
)

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "price_history.json")
	return NewJSONStore(path, utils.NewLogger()), path
}

func TestLoadCreatesEmptyDefault(t *testing.T) {
	store, path := newTestStore(t)

	reg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Bookings == nil || len(reg.Bookings) != 0 {
		t.Error("expected empty bookings map")
	}
	if reg.Metadata.ActiveBookings == nil || len(reg.Metadata.ActiveBookings) != 0 {
		t.Error("expected empty active set")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("empty default should have been persisted")
	}
}

func TestLoadCorruptFileFallsBack(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(reg.Bookings) != 0 {
		t.Error("corrupt file should yield an empty registry")
	}

	// The rebuilt file must be readable again
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var check map[string]interface{}
	if err := json.Unmarshal(data, &check); err != nil {
		t.Fatalf("rebuilt file is not valid JSON: %v", err)
	}
}

func TestLoadFillsMissingSubstructures(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte(`{"bookings": {}}`), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.Metadata.ActiveBookings == nil {
		t.Error("missing metadata should be defaulted, not nil")
	}
	if reg.Bookings == nil {
		t.Error("bookings map should be non-nil")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	holding := 250.0
	closed := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	reg := models.NewRegistry()
	reg.Metadata.ActiveBookings = []string{"KOA_04032025_04102025_CompactCar"}
	reg.Bookings["KOA_04032025_04102025_CompactCar"] = &models.Booking{
		Location:         "KOA",
		LocationFullName: "Kailua-Kona International Airport",
		PickupDate:       "04/03/2025",
		DropoffDate:      "04/10/2025",
		PickupTime:       "12:00 PM",
		DropoffTime:      "12:00 PM",
		FocusCategory:    "Compact Car",
		HoldingPrice:     &holding,
		HoldingHistory: []models.HoldingPriceRecord{
			{Price: 270, EffectiveFrom: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), EffectiveTo: &closed},
			{Price: 250, EffectiveFrom: closed},
		},
		PriceHistory: []models.PriceObservation{
			{
				Timestamp:   time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
				Prices:      map[string]float64{"Compact Car": 230, "Economy Car": 210},
				LowestPrice: &models.CategoryPrice{Category: "Economy Car", Price: 210},
			},
		},
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := store.Save(reg); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}

	if len(loaded.Bookings) != 1 {
		t.Fatalf("bookings = %d, want 1", len(loaded.Bookings))
	}
	got := loaded.Bookings["KOA_04032025_04102025_CompactCar"]
	if got == nil {
		t.Fatal("booking lost in round trip")
	}
	if got.FocusCategory != "Compact Car" || got.HoldingPrice == nil || *got.HoldingPrice != 250 {
		t.Errorf("booking fields changed: %+v", got)
	}
	if len(got.PriceHistory) != 1 {
		t.Fatalf("observations = %d, want 1", len(got.PriceHistory))
	}
	obs := got.PriceHistory[0]
	if obs.Prices["Economy Car"] != 210 || obs.LowestPrice == nil || obs.LowestPrice.Category != "Economy Car" {
		t.Errorf("observation changed: %+v", obs)
	}
	if !obs.Timestamp.Equal(time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp changed: %v", obs.Timestamp)
	}
	if len(got.HoldingHistory) != 2 {
		t.Errorf("holding history = %d records, want 2", len(got.HoldingHistory))
	}
	if len(loaded.Metadata.ActiveBookings) != 1 {
		t.Errorf("active set changed: %v", loaded.Metadata.ActiveBookings)
	}
}

func TestLoadMigratesLegacyShapes(t *testing.T) {
	store, path := newTestStore(t)

	legacy := `{
		"metadata": {
			"last_updated": "2025-03-03T10:00:00",
			"active_bookings": ["KOA_04032025_04102025_CompactCar"]
		},
		"bookings": {
			"KOA_04032025_04102025_CompactCar": {
				"location": "KOA",
				"pickup_date": "04/03/2025",
				"dropoff_date": "04/10/2025",
				"focus_category": "Compact Car",
				"created_at": "2025-03-01T09:00:00",
				"price_history": [
					{"timestamp": "03/01 10:00", "price": 250.0},
					{"timestamp": "2025-03-02T10:00:00", "focus_category_price": 240.0},
					{"timestamp": "2025-03-03T10:00:00.123456", "prices": {"Compact Car": 230.0, "Economy Car": 210.0}}
				]
			}
		}
	}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	booking := reg.Bookings["KOA_04032025_04102025_CompactCar"]
	if booking == nil {
		t.Fatal("legacy booking not loaded")
	}
	if len(booking.PriceHistory) != 3 {
		t.Fatalf("observations = %d, want 3", len(booking.PriceHistory))
	}

	// Short timestamp resolved against the creation year
	first := booking.PriceHistory[0]
	if first.Timestamp.Year() != 2025 || first.Timestamp.Month() != time.March {
		t.Errorf("short timestamp parsed as %v", first.Timestamp)
	}
	if first.Prices["Compact Car"] != 250 {
		t.Errorf("legacy 'price' record not upgraded: %+v", first.Prices)
	}
	if first.LowestPrice == nil || first.LowestPrice.Price != 250 {
		t.Errorf("lowest not derived for legacy record: %+v", first.LowestPrice)
	}

	second := booking.PriceHistory[1]
	if second.Prices["Compact Car"] != 240 {
		t.Errorf("legacy 'focus_category_price' record not upgraded: %+v", second.Prices)
	}

	third := booking.PriceHistory[2]
	if third.Prices["Economy Car"] != 210 {
		t.Errorf("canonical record changed: %+v", third.Prices)
	}
	if third.LowestPrice == nil || third.LowestPrice.Category != "Economy Car" {
		t.Errorf("lowest not derived for canonical record: %+v", third.LowestPrice)
	}
}
