package domain

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize returns a cleaned copy of the observation: city and condition
// trimmed and title-cased, country trimmed with case preserved, temperature
// fields and wind speed rounded to one decimal, humidity and UV index
// coerced to whole numbers. Normalize is idempotent and runs before
// validation so range checks see final values.
func Normalize(obs WeatherObservation) WeatherObservation {
	obs.City = titleCase(obs.City)
	obs.Country = strings.TrimSpace(obs.Country)
	obs.Condition = titleCase(obs.Condition)

	obs.TempC = roundTenth(obs.TempC)
	obs.FeelsLikeC = roundTenth(obs.FeelsLikeC)
	obs.WindKmph = roundTenth(obs.WindKmph)

	obs.Humidity = truncWhole(obs.Humidity)
	obs.UVIndex = truncWhole(obs.UVIndex)

	return obs
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

func roundTenth(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*10) / 10
	return &r
}

func truncWhole(v *float64) *float64 {
	if v == nil {
		return nil
	}
	t := math.Trunc(*v)
	return &t
}
