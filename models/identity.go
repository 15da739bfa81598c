package models

import "strings"

// DeriveBookingID builds the stable identity key for a tracked booking:
// location, dates and a slug of the focus category joined by underscores,
// with every "/" stripped so the id stays path-safe. The category slug
// keeps two bookings on the same location/dates but different categories
// from colliding. Same inputs always yield the same id across runs.
func DeriveBookingID(location, pickupDate, dropoffDate, focusCategory string) string {
	id := location + "_" + pickupDate + "_" + dropoffDate + "_" + slugify(focusCategory)
	return strings.ReplaceAll(id, "/", "")
}

// slugify keeps only alphanumeric characters, preserving case
func slugify(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
