package domain

// Enrich attaches the three derived classifications to a normalized
// observation. Each label is a pure function of one or two fields; a label
// whose inputs are missing is left empty. Enrich runs on valid and invalid
// records alike; the loader, not the enricher, decides what persists.
func Enrich(obs WeatherObservation) WeatherObservation {
	if obs.TempC != nil {
		obs.HeatCategory = heatCategory(*obs.TempC)
	}
	if obs.TempC != nil && obs.Humidity != nil {
		obs.ComfortLevel = comfortLevel(*obs.TempC, *obs.Humidity)
	}
	if obs.WindKmph != nil {
		obs.WindCategory = windCategory(*obs.WindKmph)
	}
	return obs
}

func heatCategory(tempC float64) string {
	switch {
	case tempC >= 35:
		return "Extreme Heat"
	case tempC >= 30:
		return "Hot"
	case tempC >= 20:
		return "Warm"
	case tempC >= 10:
		return "Mild"
	case tempC >= 0:
		return "Cool"
	default:
		return "Cold"
	}
}

// comfortLevel evaluates its rules in order; the first match wins. The
// ordering means humidity in the 61-70 band with ideal temperature yields
// Moderate rather than Uncomfortable. Stored labels depend on this; do
// not reorder.
func comfortLevel(tempC, humidity float64) string {
	switch {
	case tempC >= 20 && tempC <= 26 && humidity >= 30 && humidity <= 60:
		return "Comfortable"
	case tempC > 30 || humidity > 70:
		return "Uncomfortable"
	case tempC < 10:
		return "Cold"
	default:
		return "Moderate"
	}
}

func windCategory(windKmph float64) string {
	switch {
	case windKmph < 12:
		return "Calm"
	case windKmph < 30:
		return "Breezy"
	case windKmph < 50:
		return "Windy"
	default:
		return "Very Windy"
	}
}
