package notify

import (
	"strings"
	"testing"

	"rental-price-tracker/models"
)

func sampleReport() *models.BookingReport {
	current := 195.00
	previous := 215.00
	holding := 200.00
	return &models.BookingReport{
		BookingID: "KOA_04032025_04102025_CompactCar",
		Booking: &models.Booking{
			Location:         "KOA",
			LocationFullName: "Kailua-Kona International Airport",
			PickupDate:       "04/03/2025",
			DropoffDate:      "04/10/2025",
			FocusCategory:    "Compact Car",
		},
		Prices:          map[string]float64{"Compact Car": 195.00, "Economy Car": 180.00},
		CurrentPrice:    &current,
		PreviousPrice:   &previous,
		HoldingPrice:    &holding,
		Status:          models.StatusRebook,
		Delta:           5.00,
		SignificantDrop: true,
		DropAmount:      20.00,
		Trends: &models.TrendSummary{
			Current: &current, Lowest: 195.00, Highest: 230.00, Average: 212.50, TotalChecks: 4,
		},
		BetterDeals: []models.BetterDeal{
			{Category: "Economy Car", Price: 180.00, Savings: 15.00, SavingsPct: 7.7},
		},
	}
}

func TestFormatTextBody(t *testing.T) {
	body := formatTextBody([]*models.BookingReport{sampleReport()})

	for _, want := range []string{
		"KOA (Kailua-Kona International Airport)",
		"Current price: $195.00",
		"REBOOK NOW: $5.00 below your holding price of $200.00",
		"PRICE DROP: $20.00 since last check",
		"low $195.00, high $230.00, avg $212.50 (4 checks)",
		"Economy Car: $180.00 (save $15.00, 7.7%)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("text body missing %q\n%s", want, body)
		}
	}
}

func TestFormatTextBodyMissingCurrent(t *testing.T) {
	r := sampleReport()
	r.CurrentPrice = nil
	r.HoldingPrice = nil
	r.Status = models.StatusTracking

	body := formatTextBody([]*models.BookingReport{r})
	if !strings.Contains(body, "not available this check") {
		t.Errorf("text body should flag the missing price\n%s", body)
	}
	if !strings.Contains(body, "Tracking only") {
		t.Errorf("text body should show tracking status\n%s", body)
	}
}

func TestFormatHTMLBody(t *testing.T) {
	html, err := formatHTMLBody([]*models.BookingReport{sampleReport()})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"REBOOK NOW",
		"$195.00",
		"Economy Car",
		"Kailua-Kona International Airport",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html body missing %q", want)
		}
	}
}
