package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"rental-price-tracker/models"
)

// formatTextBody renders the plain-text alternative of the alert email
func formatTextBody(reports []*models.BookingReport) string {
	var b strings.Builder
	b.WriteString("COSTCO RENTAL CAR PRICE UPDATE\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")

	for _, r := range reports {
		booking := r.Booking
		fmt.Fprintf(&b, "\n%s (%s)\n", booking.Location, booking.LocationFullName)
		fmt.Fprintf(&b, "%s - %s\n", booking.PickupDate, booking.DropoffDate)
		fmt.Fprintf(&b, "Focus category: %s\n", booking.FocusCategory)

		if r.CurrentPrice != nil {
			fmt.Fprintf(&b, "Current price: $%.2f\n", *r.CurrentPrice)
		} else {
			b.WriteString("Current price: not available this check\n")
		}

		switch r.Status {
		case models.StatusRebook:
			fmt.Fprintf(&b, "*** REBOOK NOW: $%.2f below your holding price of $%.2f ***\n",
				r.Delta, *r.HoldingPrice)
		case models.StatusWaiting:
			fmt.Fprintf(&b, "Waiting: $%.2f above your holding price of $%.2f\n",
				r.Delta, *r.HoldingPrice)
		default:
			b.WriteString("Tracking only (no holding price set)\n")
		}

		if r.SignificantDrop {
			fmt.Fprintf(&b, "*** PRICE DROP: $%.2f since last check ***\n", r.DropAmount)
		}

		if t := r.Trends; t != nil && t.TotalChecks > 0 {
			fmt.Fprintf(&b, "Trend: low $%.2f, high $%.2f, avg $%.2f (%d checks)\n",
				t.Lowest, t.Highest, t.Average, t.TotalChecks)
		}

		if len(r.BetterDeals) > 0 {
			b.WriteString("Cheaper categories:\n")
			for _, d := range r.BetterDeals {
				fmt.Fprintf(&b, "  %s: $%.2f (save $%.2f, %.1f%%)\n",
					d.Category, d.Price, d.Savings, d.SavingsPct)
			}
		}
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}
	return b.String()
}

var htmlTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"money": func(v interface{}) string {
		switch p := v.(type) {
		case float64:
			return fmt.Sprintf("$%.2f", p)
		case *float64:
			if p == nil {
				return "n/a"
			}
			return fmt.Sprintf("$%.2f", *p)
		}
		return "n/a"
	},
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 640px; margin: 0 auto;">
  <h2 style="background: #e31837; color: #fff; padding: 12px; border-radius: 4px;">Costco Rental Car Price Update</h2>
  {{range .}}
  <div style="border: 1px solid #ddd; border-radius: 4px; padding: 16px; margin-bottom: 16px;">
    <h3 style="margin-top: 0;">{{.Booking.Location}} &mdash; {{.Booking.LocationFullName}}</h3>
    <p>{{.Booking.PickupDate}} to {{.Booking.DropoffDate}}<br>
       Focus category: <strong>{{.Booking.FocusCategory}}</strong></p>

    {{if eq .Status "rebook"}}
    <p style="background: #d4edda; color: #155724; padding: 10px; border-radius: 4px;">
      <strong>REBOOK NOW</strong> &mdash; current price {{if .CurrentPrice}}{{money .CurrentPrice}}{{end}}
      is {{money .Delta}} below your holding price{{if .HoldingPrice}} of {{money .HoldingPrice}}{{end}}
    </p>
    {{else if eq .Status "waiting"}}
    <p style="background: #fff3cd; color: #856404; padding: 10px; border-radius: 4px;">
      Waiting &mdash; current price {{if .CurrentPrice}}{{money .CurrentPrice}}{{end}}
      is {{money .Delta}} above your holding price{{if .HoldingPrice}} of {{money .HoldingPrice}}{{end}}
    </p>
    {{else}}
    <p style="background: #e2e3e5; color: #383d41; padding: 10px; border-radius: 4px;">
      Tracking only &mdash; current price {{if .CurrentPrice}}{{money .CurrentPrice}}{{else}}not available{{end}}, no holding price set
    </p>
    {{end}}

    {{if .SignificantDrop}}
    <p style="background: #cce5ff; color: #004085; padding: 10px; border-radius: 4px;">
      <strong>Price drop:</strong> {{money .DropAmount}} since the last check
    </p>
    {{end}}

    {{with .Trends}}{{if gt .TotalChecks 0}}
    <table style="border-collapse: collapse; width: 100%; margin: 8px 0;">
      <tr style="background: #f8f9fa;">
        <th style="text-align: left; padding: 6px; border: 1px solid #ddd;">Lowest</th>
        <th style="text-align: left; padding: 6px; border: 1px solid #ddd;">Highest</th>
        <th style="text-align: left; padding: 6px; border: 1px solid #ddd;">Average</th>
        <th style="text-align: left; padding: 6px; border: 1px solid #ddd;">Checks</th>
      </tr>
      <tr>
        <td style="padding: 6px; border: 1px solid #ddd;">{{money .Lowest}}</td>
        <td style="padding: 6px; border: 1px solid #ddd;">{{money .Highest}}</td>
        <td style="padding: 6px; border: 1px solid #ddd;">{{money .Average}}</td>
        <td style="padding: 6px; border: 1px solid #ddd;">{{.TotalChecks}}</td>
      </tr>
    </table>
    {{end}}{{end}}

    {{if .BetterDeals}}
    <h4 style="margin-bottom: 4px;">Cheaper categories</h4>
    <table style="border-collapse: collapse; width: 100%;">
      <tr style="background: #f8f9fa;">
        <th style="text-align: left; padding: 6px; border: 1px solid #ddd;">Category</th>
        <th style="text-align: right; padding: 6px; border: 1px solid #ddd;">Price</th>
        <th style="text-align: right; padding: 6px; border: 1px solid #ddd;">Savings</th>
      </tr>
      {{range .BetterDeals}}
      <tr>
        <td style="padding: 6px; border: 1px solid #ddd;">{{.Category}}</td>
        <td style="text-align: right; padding: 6px; border: 1px solid #ddd;">{{money .Price}}</td>
        <td style="text-align: right; padding: 6px; border: 1px solid #ddd;">{{money .Savings}} ({{pct .SavingsPct}})</td>
      </tr>
      {{end}}
    </table>
    {{end}}
  </div>
  {{end}}
  <p style="color: #888; font-size: 12px;">Sent by rental-price-tracker</p>
</body>
</html>
`))

// formatHTMLBody renders the HTML alternative of the alert email
func formatHTMLBody(reports []*models.BookingReport) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, reports); err != nil {
		return "", err
	}
	return buf.String(), nil
}
