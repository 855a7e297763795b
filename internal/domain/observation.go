package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LocationQuery is the caller-supplied location request. It is read-only
// input: pipeline stages never mutate it.
type LocationQuery struct {
	City    string
	Country string
	Lat     *float64
	Lon     *float64
}

// RequestKey builds the upstream request path segment with strict
// precedence: lat/lon pair > city,country > city alone.
func (q LocationQuery) RequestKey() string {
	switch {
	case q.Lat != nil && q.Lon != nil:
		return formatCoord(*q.Lat) + "," + formatCoord(*q.Lon)
	case q.Country != "":
		return q.City + "," + q.Country
	default:
		return q.City
	}
}

func (q LocationQuery) String() string {
	if q.Country != "" {
		return q.City + ", " + q.Country
	}
	return q.City
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ResolvedLocation is the place the upstream actually reported data for
// (its nearest matching area). It, not the requested location, becomes the
// identity stored with the record.
type ResolvedLocation struct {
	City    string
	Country string
	Lat     *float64
	Lon     *float64
}

// Reconcile compares the requested location against the upstream's resolved
// area. It returns a location-mismatch warning when the caller named a
// country and the upstream answered with a different one (case-insensitive),
// or "" when they agree. A mismatch never fails the run: geocoding may
// legitimately resolve to a nearby named place.
func Reconcile(q LocationQuery, r ResolvedLocation) string {
	if q.Country == "" || strings.EqualFold(q.Country, r.Country) {
		return ""
	}
	return fmt.Sprintf("requested country %q but upstream resolved %q", q.Country, r.Country)
}

// WeatherObservation is one point-in-time weather reading for a resolved
// location. Optional fields are pointers so presence is a type-level fact.
// Humidity and UVIndex are float-typed in flight; Normalize coerces them to
// whole numbers before persistence.
type WeatherObservation struct {
	City         string
	Country      string
	Latitude     *float64
	Longitude    *float64
	ObservedDate time.Time // calendar date, midnight UTC
	TempC        *float64
	FeelsLikeC   *float64
	Condition    string
	Humidity     *float64
	WindKmph     *float64
	PressureMB   *float64
	VisibilityKm *float64
	UVIndex      *float64
	CapturedAt   time.Time // second precision

	// Derived classifications attached by Enrich. Recomputed on every
	// pass; excluded from the uniqueness key and never read back as
	// authoritative inputs.
	HeatCategory string
	ComfortLevel string
	WindCategory string
}
