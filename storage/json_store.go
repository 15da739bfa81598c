package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/utils"
)

// JSONStore persists the whole booking registry as a single JSON document.
// Every save replaces the file atomically (temp file + rename), so a
// concurrent reader never observes a partial write.
type JSONStore struct {
	filePath string
	logger   *utils.Logger
}

// NewJSONStore creates a new JSONStore
func NewJSONStore(filePath string, logger *utils.Logger) *JSONStore {
	return &JSONStore{filePath: filePath, logger: logger}
}

// Load reads the persisted registry. A missing file yields a fresh empty
// registry (persisted immediately); an unparseable file is replaced by the
// same empty default with a loud warning, never silently.
func (s *JSONStore) Load() (*models.Registry, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.logger.Info("No history file at %s, creating empty registry", s.filePath)
		reg := models.NewRegistry()
		if err := s.Save(reg); err != nil {
			return nil, err
		}
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.filePath, err)
	}

	var raw rawRegistry
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("History file %s is corrupt (%v) — starting over with an empty registry, previous data is lost", s.filePath, err)
		reg := models.NewRegistry()
		if err := s.Save(reg); err != nil {
			return nil, err
		}
		return reg, nil
	}

	reg := raw.normalize(s.logger)
	return reg, nil
}

// Save writes the registry atomically, refreshing metadata.last_updated
func (s *JSONStore) Save(reg *models.Registry) error {
	reg.Metadata.LastUpdated = time.Now()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".price_history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.filePath, err)
	}
	return nil
}

// ---- legacy-shape migration ----
//
// The history file has been written by several generations of the tracker:
// observations appeared as {timestamp, price}, {timestamp,
// focus_category_price} and finally {timestamp, prices, lowest_price},
// with timestamps in ISO-8601 or short "MM/DD HH:MM" form. The raw types
// below are a superset of every shape; normalize upgrades whatever was
// stored into the one canonical models form in memory.

type rawRegistry struct {
	Metadata *rawMetadata           `json:"metadata"`
	Bookings map[string]*rawBooking `json:"bookings"`
}

type rawMetadata struct {
	LastUpdated    string   `json:"last_updated"`
	ActiveBookings []string `json:"active_bookings"`
}

type rawBooking struct {
	Location         string                      `json:"location"`
	LocationFullName string                      `json:"location_full_name"`
	PickupDate       string                      `json:"pickup_date"`
	DropoffDate      string                      `json:"dropoff_date"`
	PickupTime       string                      `json:"pickup_time"`
	DropoffTime      string                      `json:"dropoff_time"`
	FocusCategory    string                      `json:"focus_category"`
	HoldingPrice     *float64                    `json:"holding_price"`
	HoldingHistory   []models.HoldingPriceRecord `json:"holding_price_history"`
	PriceHistory     []rawObservation            `json:"price_history"`
	CreatedAt        string                      `json:"created_at"`
}

type rawObservation struct {
	Timestamp          string                `json:"timestamp"`
	Prices             map[string]float64    `json:"prices"`
	LowestPrice        *models.CategoryPrice `json:"lowest_price"`
	Price              *float64              `json:"price"`
	FocusCategoryPrice *float64              `json:"focus_category_price"`
}

// timestampLayouts covers every format a historical writer used, tried in
// order. The short form carries no year and is resolved against the
// booking's creation year.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

const shortTimestampLayout = "01/02 15:04"

func parseTimestamp(raw string, fallbackYear int) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	if ts, err := time.Parse(shortTimestampLayout, raw); err == nil {
		return ts.AddDate(fallbackYear, 0, 0), true
	}
	return time.Time{}, false
}

func (r *rawRegistry) normalize(logger *utils.Logger) *models.Registry {
	reg := models.NewRegistry()

	if r.Metadata != nil {
		if ts, ok := parseTimestamp(r.Metadata.LastUpdated, 0); ok {
			reg.Metadata.LastUpdated = ts
		}
		if r.Metadata.ActiveBookings != nil {
			reg.Metadata.ActiveBookings = r.Metadata.ActiveBookings
		}
	}

	for id, rb := range r.Bookings {
		reg.Bookings[id] = rb.normalize(id, logger)
	}
	return reg
}

func (rb *rawBooking) normalize(id string, logger *utils.Logger) *models.Booking {
	b := &models.Booking{
		Location:         rb.Location,
		LocationFullName: rb.LocationFullName,
		PickupDate:       rb.PickupDate,
		DropoffDate:      rb.DropoffDate,
		PickupTime:       rb.PickupTime,
		DropoffTime:      rb.DropoffTime,
		FocusCategory:    rb.FocusCategory,
		HoldingPrice:     rb.HoldingPrice,
		HoldingHistory:   rb.HoldingHistory,
		PriceHistory:     []models.PriceObservation{},
	}

	createdYear := time.Now().Year()
	if ts, ok := parseTimestamp(rb.CreatedAt, 0); ok {
		b.CreatedAt = ts
		createdYear = ts.Year()
	}

	for _, ro := range rb.PriceHistory {
		obs, ok := ro.normalize(rb.FocusCategory, createdYear)
		if !ok {
			logger.Warn("Booking %s: dropping unreadable observation (timestamp %q)", id, ro.Timestamp)
			continue
		}
		b.PriceHistory = append(b.PriceHistory, obs)
	}
	return b
}

func (ro *rawObservation) normalize(focusCategory string, fallbackYear int) (models.PriceObservation, bool) {
	ts, ok := parseTimestamp(ro.Timestamp, fallbackYear)
	if !ok {
		return models.PriceObservation{}, false
	}

	obs := models.PriceObservation{
		Timestamp:   ts,
		Prices:      ro.Prices,
		LowestPrice: ro.LowestPrice,
	}

	// Focus-only legacy records carried a single price under "price" or
	// "focus_category_price"; upgrade them to a one-entry price map
	if len(obs.Prices) == 0 {
		focusPrice := ro.FocusCategoryPrice
		if focusPrice == nil {
			focusPrice = ro.Price
		}
		if focusPrice == nil {
			return models.PriceObservation{}, false
		}
		obs.Prices = map[string]float64{focusCategory: *focusPrice}
	}

	if obs.LowestPrice == nil {
		obs.LowestPrice = obs.Lowest()
	}
	return obs, true
}
