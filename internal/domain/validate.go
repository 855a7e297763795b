package domain

import (
	"fmt"
	"math"
)

// ValidateTemperature reports whether a temperature is physically plausible.
// The issue string is empty when valid.
func ValidateTemperature(tempC float64) (bool, string) {
	if tempC < -90 || tempC > 60 {
		return false, fmt.Sprintf("temperature %g°C is outside reasonable range", tempC)
	}
	return true, ""
}

// ValidateHumidity reports whether a relative humidity percentage is valid.
func ValidateHumidity(humidity float64) (bool, string) {
	if humidity < 0 || humidity > 100 {
		return false, fmt.Sprintf("humidity %g%% is invalid", humidity)
	}
	return true, ""
}

// ValidateWindSpeed reports whether a wind speed in km/h is plausible.
func ValidateWindSpeed(windKmph float64) (bool, string) {
	if windKmph < 0 || windKmph > 500 {
		return false, fmt.Sprintf("wind speed %g km/h seems invalid", windKmph)
	}
	return true, ""
}

// Validate checks an already-normalized observation. Missing required
// fields short-circuit: a partial record cannot be meaningfully
// range-checked, so only the missing-field issues are returned. Otherwise
// the temperature, humidity, and wind-speed ranges are checked, plus the
// feels-like gap; a gap over 30°C is an issue like any other and on its
// own makes the record invalid. The record is valid iff issues is empty.
// Pure: no I/O, no mutation.
func Validate(obs WeatherObservation) (bool, []string) {
	var issues []string

	for _, f := range []struct {
		name    string
		present bool
	}{
		{"city", obs.City != ""},
		{"country", obs.Country != ""},
		{"temp_c", obs.TempC != nil},
		{"humidity", obs.Humidity != nil},
		{"condition", obs.Condition != ""},
	} {
		if !f.present {
			issues = append(issues, "missing required field: "+f.name)
		}
	}
	if len(issues) > 0 {
		return false, issues
	}

	if ok, issue := ValidateTemperature(*obs.TempC); !ok {
		issues = append(issues, issue)
	}
	if ok, issue := ValidateHumidity(*obs.Humidity); !ok {
		issues = append(issues, issue)
	}
	if obs.WindKmph == nil {
		issues = append(issues, "wind speed is missing")
	} else if ok, issue := ValidateWindSpeed(*obs.WindKmph); !ok {
		issues = append(issues, issue)
	}

	if obs.FeelsLikeC != nil {
		if diff := math.Abs(*obs.FeelsLikeC - *obs.TempC); diff > 30 {
			issues = append(issues, fmt.Sprintf("feels like temperature differs by %g°C from actual", diff))
		}
	}

	return len(issues) == 0, issues
}
