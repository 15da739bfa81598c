package services

import (
	"fmt"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/storage"
	"rental-price-tracker/utils"
)

// BookingTracker owns the in-memory registry and is the only path that
// mutates it. Every mutation is flushed to the store immediately, so an
// interrupted run loses at most the in-flight change.
type BookingTracker struct {
	store  storage.RegistryStore
	reg    *models.Registry
	logger *utils.Logger
	now    func() time.Time
}

// NewBookingTracker loads the registry and wraps it in a tracker
func NewBookingTracker(store storage.RegistryStore, logger *utils.Logger) (*BookingTracker, error) {
	reg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return &BookingTracker{
		store:  store,
		reg:    reg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Registry exposes the loaded registry for read-only use (reporting, sync)
func (t *BookingTracker) Registry() *models.Registry {
	return t.reg
}

// Booking returns the booking for the given id
func (t *BookingTracker) Booking(id string) (*models.Booking, error) {
	booking, ok := t.reg.Bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}
	return booking, nil
}

// ActiveBookings returns the bookings in the active set, in tracking order
func (t *BookingTracker) ActiveBookings() []*models.Booking {
	var active []*models.Booking
	for _, id := range t.reg.Metadata.ActiveBookings {
		if booking, ok := t.reg.Bookings[id]; ok {
			active = append(active, booking)
		}
	}
	return active
}

// AddBooking registers a new tracked booking and returns its derived id.
// Adding a booking that already exists is an informational no-op.
func (t *BookingTracker) AddBooking(location, pickupDate, dropoffDate, focusCategory, pickupTime, dropoffTime string, holdingPrice *float64) (string, error) {
	id := models.DeriveBookingID(location, pickupDate, dropoffDate, focusCategory)

	if _, exists := t.reg.Bookings[id]; exists {
		t.logger.Info("Booking already exists for %s from %s to %s (%s)", location, pickupDate, dropoffDate, focusCategory)
		return id, nil
	}

	now := t.now()
	booking := &models.Booking{
		Location:         location,
		LocationFullName: utils.LocationName(location),
		PickupDate:       pickupDate,
		DropoffDate:      dropoffDate,
		PickupTime:       pickupTime,
		DropoffTime:      dropoffTime,
		FocusCategory:    focusCategory,
		HoldingPrice:     holdingPrice,
		PriceHistory:     []models.PriceObservation{},
		CreatedAt:        now,
	}
	if holdingPrice != nil {
		booking.HoldingHistory = []models.HoldingPriceRecord{
			{Price: *holdingPrice, EffectiveFrom: now},
		}
	}

	t.reg.Bookings[id] = booking
	if !t.reg.IsActive(id) {
		t.reg.Metadata.ActiveBookings = append(t.reg.Metadata.ActiveBookings, id)
	}

	if err := t.store.Save(t.reg); err != nil {
		return "", err
	}
	t.logger.Info("Added booking %s", id)
	return id, nil
}

// DeleteBooking removes a booking and all of its history. Irreversible.
func (t *BookingTracker) DeleteBooking(id string) error {
	if _, ok := t.reg.Bookings[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}

	t.removeFromActive(id)
	delete(t.reg.Bookings, id)
	return t.store.Save(t.reg)
}

// ArchiveBooking drops a booking from the active set but keeps its
// history for later inspection
func (t *BookingTracker) ArchiveBooking(id string) error {
	if _, ok := t.reg.Bookings[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}
	t.removeFromActive(id)
	return t.store.Save(t.reg)
}

func (t *BookingTracker) removeFromActive(id string) {
	active := t.reg.Metadata.ActiveBookings[:0]
	for _, a := range t.reg.Metadata.ActiveBookings {
		if a != id {
			active = append(active, a)
		}
	}
	t.reg.Metadata.ActiveBookings = active
}

// CleanupExpired deletes every booking whose dropoff date is strictly
// before today and returns the removed ids
func (t *BookingTracker) CleanupExpired() ([]string, error) {
	now := t.now()
	var removed []string
	for id, booking := range t.reg.Bookings {
		if booking.Expired(now) {
			removed = append(removed, id)
		}
	}

	for _, id := range removed {
		if err := t.DeleteBooking(id); err != nil {
			return removed, err
		}
		t.logger.Info("Removed expired booking %s", id)
	}
	return removed, nil
}

// AppendObservation records a new price snapshot for a booking. This is
// the single mutating entry point for price data.
func (t *BookingTracker) AppendObservation(id string, prices map[string]float64) (*models.PriceObservation, error) {
	booking, ok := t.reg.Bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: booking %s", models.ErrEmptySnapshot, id)
	}

	// Copy so later mutation of the caller's map can't rewrite history
	snapshot := make(map[string]float64, len(prices))
	for cat, price := range prices {
		snapshot[cat] = price
	}

	obs := models.PriceObservation{
		Timestamp: t.now(),
		Prices:    snapshot,
	}
	obs.LowestPrice = obs.Lowest()

	booking.PriceHistory = append(booking.PriceHistory, obs)
	if err := t.store.Save(t.reg); err != nil {
		return nil, err
	}
	return &booking.PriceHistory[len(booking.PriceHistory)-1], nil
}

// SetHoldingPrice updates a booking's reserved price. The scalar field is
// overwritten and the effective-dated history is advanced: the open record
// is closed at now and a new one opened.
func (t *BookingTracker) SetHoldingPrice(id string, price float64) error {
	booking, ok := t.reg.Bookings[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}

	now := t.now()
	for i := range booking.HoldingHistory {
		if booking.HoldingHistory[i].EffectiveTo == nil {
			closedAt := now
			booking.HoldingHistory[i].EffectiveTo = &closedAt
		}
	}
	booking.HoldingHistory = append(booking.HoldingHistory, models.HoldingPriceRecord{
		Price:         price,
		EffectiveFrom: now,
	})
	booking.HoldingPrice = &price

	if err := t.store.Save(t.reg); err != nil {
		return err
	}
	t.logger.Info("Holding price for %s set to $%.2f", id, price)
	return nil
}

// HoldingPriceDetails summarizes a booking's holding price history
func (t *BookingTracker) HoldingPriceDetails(id string) (*models.HoldingPriceDetails, error) {
	booking, ok := t.reg.Bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrBookingNotFound, id)
	}
	if len(booking.HoldingHistory) == 0 {
		return nil, nil
	}

	history := booking.HoldingHistory
	latest := history[0]
	for _, rec := range history[1:] {
		if rec.EffectiveFrom.After(latest.EffectiveFrom) {
			latest = rec
		}
	}

	return &models.HoldingPriceDetails{
		InitialPrice:    history[0].Price,
		CurrentPrice:    latest.Price,
		DaysSinceUpdate: int(t.now().Sub(latest.EffectiveFrom).Hours() / 24),
		TotalChanges:    len(history) - 1,
	}, nil
}
