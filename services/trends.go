package services

import "rental-price-tracker/models"

// ComputeTrends derives the focus-category statistics for a booking from
// its observation list. Returns nil when the booking has no observations.
// Observations missing the focus category are excluded from the
// aggregates (the scraper's category list drifts over time) but never
// invalidate the computation; ties in lowest/highest resolve to the first
// occurrence in chronological order.
func ComputeTrends(booking *models.Booking) *models.TrendSummary {
	history := booking.PriceHistory
	if len(history) == 0 {
		return nil
	}

	trends := &models.TrendSummary{
		Current:      history[len(history)-1].FocusPrice(booking.FocusCategory),
		HoldingPrice: booking.HoldingPrice,
	}
	if len(history) > 1 {
		trends.PreviousPrice = history[len(history)-2].FocusPrice(booking.FocusCategory)
	}

	var total float64
	for i := range history {
		price := history[i].FocusPrice(booking.FocusCategory)
		if price == nil {
			continue
		}
		if trends.TotalChecks == 0 {
			trends.Lowest = *price
			trends.Highest = *price
		} else {
			if *price < trends.Lowest {
				trends.Lowest = *price
			}
			if *price > trends.Highest {
				trends.Highest = *price
			}
		}
		total += *price
		trends.TotalChecks++
	}
	if trends.TotalChecks > 0 {
		trends.Average = total / float64(trends.TotalChecks)
	}

	return trends
}
