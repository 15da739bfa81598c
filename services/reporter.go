package services

import (
	"fmt"
	"strings"

	"rental-price-tracker/models"
)

// PrintRunReport formats and prints the per-booking run results to terminal
func PrintRunReport(reports []*models.BookingReport, removed []string) {
	border := strings.Repeat("═", 55)
	thin := strings.Repeat("─", 55)

	fmt.Printf("\n╔%s╗\n", border)
	fmt.Printf("║%s║\n", center("RENTAL CAR PRICE TRACKER", 55))
	fmt.Printf("╚%s╝\n", border)

	if len(removed) > 0 {
		fmt.Printf("\n EXPIRED BOOKINGS REMOVED\n%s\n", thin)
		for _, id := range removed {
			fmt.Printf("  - %s\n", id)
		}
	}

	if len(reports) == 0 {
		fmt.Printf("\n  No bookings checked this run.\n\n%s\n\n", border)
		return
	}

	for _, r := range reports {
		b := r.Booking
		fmt.Printf("\n %s (%s)\n%s\n", b.Location, b.LocationFullName, thin)
		fmt.Printf("  Dates           : %s - %s\n", b.PickupDate, b.DropoffDate)
		fmt.Printf("  Focus Category  : %s\n", b.FocusCategory)
		fmt.Printf("  Current Price   : %s\n", formatOptional(r.CurrentPrice))
		fmt.Printf("  Previous Price  : %s\n", formatOptional(r.PreviousPrice))
		fmt.Printf("  Holding Price   : %s\n", formatOptional(r.HoldingPrice))

		switch r.Status {
		case models.StatusRebook:
			fmt.Printf("  Status          : REBOOK NOW — save $%.2f\n", r.Delta)
		case models.StatusWaiting:
			fmt.Printf("  Status          : waiting ($%.2f above holding)\n", r.Delta)
		default:
			fmt.Printf("  Status          : tracking (no holding price set)\n")
		}

		if r.SignificantDrop {
			fmt.Printf("  Price Drop      : $%.2f since last check\n", r.DropAmount)
		}

		if r.Trends != nil && r.Trends.TotalChecks > 0 {
			fmt.Printf("  Trend           : low $%.2f / high $%.2f / avg $%.2f over %d checks\n",
				r.Trends.Lowest, r.Trends.Highest, r.Trends.Average, r.Trends.TotalChecks)
		}

		if len(r.BetterDeals) > 0 {
			fmt.Printf("\n  CHEAPER CATEGORIES\n")
			for _, d := range r.BetterDeals {
				fmt.Printf("    %-30s $%8.2f  save $%.2f (%.1f%%)\n",
					truncate(d.Category, 30), d.Price, d.Savings, d.SavingsPct)
			}
		}
	}

	fmt.Printf("\n%s\n\n", border)
}

func formatOptional(price *float64) string {
	if price == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *price)
}

func center(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	pad := (width - len(runes)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(runes)-pad)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
