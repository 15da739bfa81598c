package utils

// airportNames maps the 3-letter location codes to their full names
var airportNames = map[string]string{
	"KOA": "Kailua-Kona International Airport",
	"HNL": "Daniel K. Inouye International Airport",
	"OGG": "Kahului Airport",
	"LIH": "Lihue Airport",
}

// LocationName returns the full name for an airport code, falling back to
// "<CODE> Airport" for codes not in the map
func LocationName(code string) string {
	if name, ok := airportNames[code]; ok {
		return name
	}
	return code + " Airport"
}
