// Package domain models point-in-time weather observations collected from
// the wttr.in JSON API.
//
// # Data Source
//
// Observations come from wttr.in's "j1" JSON format, requested as
// GET https://wttr.in/<location>?format=j1. The location path segment is
// built from caller input with strict precedence: a lat,lon coordinate pair
// beats city,country, which beats a bare city name. Bare city names are
// ambiguous ("Athens" resolves to Athens, GA by default), which is why the
// resolver records the upstream's own nearest_area answer and treats it as
// the authoritative identity for storage.
//
// All numeric fields in the wttr.in payload are JSON strings ("temp_C":
// "25"), including the nearest_area coordinates. Parsing failures on the
// current-condition fields reject the whole payload; unparseable nearest
// area coordinates simply leave the stored coordinates null.
//
// # Validation Bounds
//
// Physically-plausible ranges, informed by recorded extremes (-89.2°C
// Vostok Station, +56.7°C Death Valley, ~408 km/h cyclone gusts):
//
//	temperature:  -90..60 °C (inclusive)
//	humidity:     0..100 %
//	wind speed:   0..500 km/h
//
// A feels-like temperature more than 30°C away from the actual reading is
// recorded as a validation issue; like every other issue it marks the
// record invalid, since validity is simply an empty issue list.
//
// # Derived Classifications
//
// Enrich attaches three labels recomputed on every pass and never treated
// as authoritative inputs:
//
//	heat category:  ≥35 Extreme Heat | ≥30 Hot | ≥20 Warm | ≥10 Mild | ≥0 Cool | Cold
//	comfort level:  evaluated in order: 20..26°C with 30..60% humidity is
//	                Comfortable; otherwise >30°C or >70% humidity is
//	                Uncomfortable; otherwise <10°C is Cold; else Moderate.
//	                Humidity between 61 and 70 in the ideal temperature band
//	                therefore lands on Moderate, not Uncomfortable.
//	wind category:  <12 Calm | <30 Breezy | <50 Windy | Very Windy
//
// # Identity and Deduplication
//
// The uniqueness key is (city, country, observed_date, captured_at). The
// deduplicator additionally suppresses candidates whose captured_at lies
// within one hour of an existing row for the same city, country, and date,
// catching near-simultaneous re-collection that the exact key would let
// through.
package domain
