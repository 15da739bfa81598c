package models

import (
	"errors"
	"time"
)

// DateLayout is the calendar-date format used throughout: it matches the
// Costco Travel form fields, so bookings store dates exactly as typed.
const DateLayout = "01/02/2006"

// Sentinel errors for registry operations
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingExpired  = errors.New("booking expired")
	ErrEmptySnapshot   = errors.New("snapshot contains no prices")
)

// Registry is the full persisted collection: tracking metadata plus every
// known booking keyed by derived id
type Registry struct {
	Metadata Metadata            `json:"metadata"`
	Bookings map[string]*Booking `json:"bookings"`
}

// Metadata tracks the active-booking set and the last persist time
type Metadata struct {
	LastUpdated    time.Time `json:"last_updated"`
	ActiveBookings []string  `json:"active_bookings"`
}

// NewRegistry creates an empty registry with all substructures initialized
func NewRegistry() *Registry {
	return &Registry{
		Metadata: Metadata{
			LastUpdated:    time.Now(),
			ActiveBookings: []string{},
		},
		Bookings: map[string]*Booking{},
	}
}

// IsActive reports whether the given id is in the active set
func (r *Registry) IsActive(id string) bool {
	for _, active := range r.Metadata.ActiveBookings {
		if active == id {
			return true
		}
	}
	return false
}

// Booking is one tracked search configuration: location, date range and the
// vehicle category the user cares about
type Booking struct {
	Location         string               `json:"location"`
	LocationFullName string               `json:"location_full_name"`
	PickupDate       string               `json:"pickup_date"`
	DropoffDate      string               `json:"dropoff_date"`
	PickupTime       string               `json:"pickup_time"`
	DropoffTime      string               `json:"dropoff_time"`
	FocusCategory    string               `json:"focus_category"`
	HoldingPrice     *float64             `json:"holding_price"`
	HoldingHistory   []HoldingPriceRecord `json:"holding_price_history,omitempty"`
	PriceHistory     []PriceObservation   `json:"price_history"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ID returns the booking's derived identity key
func (b *Booking) ID() string {
	return DeriveBookingID(b.Location, b.PickupDate, b.DropoffDate, b.FocusCategory)
}

// Expired reports whether the booking's dropoff date is strictly before
// the given day. A malformed date counts as expired so sweeps can drop it
func (b *Booking) Expired(now time.Time) bool {
	dropoff, err := time.Parse(DateLayout, b.DropoffDate)
	if err != nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dropoff.Before(today)
}

// PriceObservation is one timestamped snapshot of all category prices.
// Observations are immutable once stored: corrections append, never rewrite
type PriceObservation struct {
	Timestamp   time.Time          `json:"timestamp"`
	Prices      map[string]float64 `json:"prices"`
	LowestPrice *CategoryPrice     `json:"lowest_price,omitempty"`
}

// CategoryPrice pairs a vehicle category with its price
type CategoryPrice struct {
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// FocusPrice returns the observation's price for the given category, or
// nil when that category was missing from the snapshot
func (o *PriceObservation) FocusPrice(category string) *float64 {
	if p, ok := o.Prices[category]; ok {
		return &p
	}
	return nil
}

// Lowest scans the snapshot for its cheapest category. Ties resolve to
// whichever entry compares lowest by category name so the result is stable
func (o *PriceObservation) Lowest() *CategoryPrice {
	var best *CategoryPrice
	for cat, price := range o.Prices {
		if best == nil || price < best.Price || (price == best.Price && cat < best.Category) {
			best = &CategoryPrice{Category: cat, Price: price}
		}
	}
	return best
}

// HoldingPriceRecord is one effective-dated entry in a booking's holding
// price history. EffectiveTo nil means currently in effect; at most one
// record per booking is open at a time
type HoldingPriceRecord struct {
	Price         float64    `json:"price"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

// TrendSummary holds the derived statistics for a booking's focus
// category, computed on demand and never persisted
type TrendSummary struct {
	Current       *float64 `json:"current"`
	PreviousPrice *float64 `json:"previous_price"`
	HoldingPrice  *float64 `json:"holding_price"`
	Lowest        float64  `json:"lowest"`
	Highest       float64  `json:"highest"`
	Average       float64  `json:"average"`
	TotalChecks   int      `json:"total_checks"`
}

// AlertStatus classifies a booking's position relative to its holding price
type AlertStatus string

const (
	// StatusTracking means no holding price is set; the booking is watched
	// but no rebook comparison is possible
	StatusTracking AlertStatus = "tracking"
	// StatusRebook means the current price is at or below the holding
	// price and rebooking saves money (or costs nothing)
	StatusRebook AlertStatus = "rebook"
	// StatusWaiting means the current price is still above the holding price
	StatusWaiting AlertStatus = "waiting"
)

// BetterDeal is a non-focus category currently cheaper than the focus price
type BetterDeal struct {
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Savings    float64 `json:"savings"`
	SavingsPct float64 `json:"savings_pct"`
}

// BookingReport is the engine's per-booking output for one run: everything
// a notifier needs to render without re-deriving any statistic
type BookingReport struct {
	BookingID       string             `json:"booking_id"`
	Booking         *Booking           `json:"booking"`
	Prices          map[string]float64 `json:"prices"`
	Trends          *TrendSummary      `json:"trends"`
	CurrentPrice    *float64           `json:"current_price"`
	PreviousPrice   *float64           `json:"previous_price"`
	HoldingPrice    *float64           `json:"holding_price"`
	Status          AlertStatus        `json:"status"`
	Delta           float64            `json:"delta"`
	SignificantDrop bool               `json:"significant_drop"`
	DropAmount      float64            `json:"drop_amount"`
	BetterDeals     []BetterDeal       `json:"better_deals"`
}

// Alertworthy reports whether this observation should notify the user:
// either a rebook opportunity or a significant drop since the last check
func (r *BookingReport) Alertworthy() bool {
	return r.Status == StatusRebook || r.SignificantDrop
}

// HoldingPriceDetails summarizes a booking's holding price history for display
type HoldingPriceDetails struct {
	InitialPrice    float64 `json:"initial_price"`
	CurrentPrice    float64 `json:"current_price"`
	DaysSinceUpdate int     `json:"days_since_update"`
	TotalChanges    int     `json:"total_changes"`
}
