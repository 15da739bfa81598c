package services

import (
	"fmt"
	"sort"
	"time"

	"rental-price-tracker/models"
	"rental-price-tracker/utils"
)

// AlertService turns one booking's newest snapshot into an alert decision:
// rebook/waiting/tracking relative to the holding price, an independent
// significant-drop flag, and the list of cheaper categories.
type AlertService struct {
	priceThreshold float64
	logger         *utils.Logger
	now            func() time.Time
}

// NewAlertService creates an AlertService with the given minimum dollar
// drop between consecutive checks that counts as significant
func NewAlertService(priceThreshold float64, logger *utils.Logger) *AlertService {
	return &AlertService{
		priceThreshold: priceThreshold,
		logger:         logger,
		now:            time.Now,
	}
}

// Evaluate builds the per-run report for one booking. The caller must
// filter expired bookings upstream; evaluating one anyway returns
// ErrBookingExpired so stale data can never alert.
func (s *AlertService) Evaluate(id string, booking *models.Booking, prices map[string]float64, trends *models.TrendSummary) (*models.BookingReport, error) {
	if booking.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %s (dropoff %s)", models.ErrBookingExpired, id, booking.DropoffDate)
	}

	report := &models.BookingReport{
		BookingID:    id,
		Booking:      booking,
		Prices:       prices,
		Trends:       trends,
		HoldingPrice: booking.HoldingPrice,
		Status:       models.StatusTracking,
	}
	if p, ok := prices[booking.FocusCategory]; ok {
		report.CurrentPrice = &p
	} else {
		s.logger.Warn("Booking %s: focus category %q missing from snapshot", id, booking.FocusCategory)
	}
	if trends != nil {
		report.PreviousPrice = trends.PreviousPrice
	}

	// Holding-price state: equality counts as rebook, the user is never
	// worse off rebooking at the same price
	if report.HoldingPrice != nil && report.CurrentPrice != nil {
		if *report.CurrentPrice <= *report.HoldingPrice {
			report.Status = models.StatusRebook
			report.Delta = *report.HoldingPrice - *report.CurrentPrice
		} else {
			report.Status = models.StatusWaiting
			report.Delta = *report.CurrentPrice - *report.HoldingPrice
		}
	}

	// Significant drop between consecutive checks is its own dimension:
	// a steep drop matters even while still waiting on the holding price
	if report.PreviousPrice != nil && report.CurrentPrice != nil {
		drop := *report.PreviousPrice - *report.CurrentPrice
		if drop >= s.priceThreshold {
			report.SignificantDrop = true
			report.DropAmount = drop
			s.logger.Info("Significant drop for %s: $%.2f", booking.Location, drop)
		}
	}

	report.BetterDeals = betterDeals(booking.FocusCategory, report.CurrentPrice, prices)
	return report, nil
}

// betterDeals collects every other category strictly cheaper than the
// focus price, sorted by savings descending. Without a focus price there
// is no anchor to compare against, so the list stays empty.
func betterDeals(focusCategory string, focusPrice *float64, prices map[string]float64) []models.BetterDeal {
	if focusPrice == nil || *focusPrice <= 0 {
		return nil
	}

	var deals []models.BetterDeal
	for cat, price := range prices {
		if cat == focusCategory || price >= *focusPrice {
			continue
		}
		savings := *focusPrice - price
		deals = append(deals, models.BetterDeal{
			Category:   cat,
			Price:      price,
			Savings:    savings,
			SavingsPct: savings / *focusPrice * 100,
		})
	}
	sort.Slice(deals, func(i, j int) bool {
		if deals[i].Savings != deals[j].Savings {
			return deals[i].Savings > deals[j].Savings
		}
		return deals[i].Category < deals[j].Category
	})
	return deals
}
