package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransformFlow walks one raw record through the normalize → validate →
// enrich chain in pipeline order.
func TestTransformFlow(t *testing.T) {
	obs := WeatherObservation{
		City:       "athens",
		Country:    "GREECE",
		Condition:  "  partly cloudy  ",
		TempC:      fptr(25.567),
		FeelsLikeC: fptr(27.0),
		Humidity:   fptr(65.7),
		WindKmph:   fptr(15.0),
	}

	obs = Normalize(obs)
	valid, issues := Validate(obs)
	obs = Enrich(obs)

	assert.Equal(t, "Athens", obs.City)
	assert.Equal(t, "GREECE", obs.Country)
	assert.Equal(t, "Partly Cloudy", obs.Condition)
	require.NotNil(t, obs.TempC)
	assert.Equal(t, 25.6, *obs.TempC)
	require.NotNil(t, obs.Humidity)
	assert.Equal(t, 65.0, *obs.Humidity)

	assert.True(t, valid)
	assert.Empty(t, issues)

	assert.Equal(t, "Warm", obs.HeatCategory)
	// 25.6°C is in the ideal band but humidity 65 exceeds the 60 bound of
	// the first rule and is not above 70, so the chain falls through to
	// Moderate.
	assert.Equal(t, "Moderate", obs.ComfortLevel)
	assert.Equal(t, "Breezy", obs.WindCategory)
}
