//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avelworth/weather-etl/internal/adapter/postgres"
	"github.com/avelworth/weather-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startStore launches a throwaway PostgreSQL container and returns a store
// with the schema applied.
func startStore(ctx context.Context, t *testing.T) *postgres.Store {
	t.Helper()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("weather"),
		tcpostgres.WithUsername("weather"),
		tcpostgres.WithPassword("weather"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store := postgres.NewStore(connStr, discardLogger())
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func fptr(v float64) *float64 { return &v }

// athensAt builds a complete Athens observation captured at the given time.
func athensAt(capturedAt time.Time) domain.WeatherObservation {
	return domain.WeatherObservation{
		City:         "Athens",
		Country:      "Greece",
		Latitude:     fptr(37.983),
		Longitude:    fptr(23.733),
		ObservedDate: time.Date(capturedAt.Year(), capturedAt.Month(), capturedAt.Day(), 0, 0, 0, 0, time.UTC),
		TempC:        fptr(25.6),
		FeelsLikeC:   fptr(26.1),
		Condition:    "Partly Cloudy",
		Humidity:     fptr(65),
		WindKmph:     fptr(14.2),
		PressureMB:   fptr(1012),
		VisibilityKm: fptr(10),
		UVIndex:      fptr(6),
		CapturedAt:   capturedAt,
	}
}

func TestStoreInsertGetDelete(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t)

	require.NoError(t, store.Ping(ctx))

	obs := athensAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	id, err := store.Insert(ctx, obs)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Athens", got.City)
	assert.Equal(t, "Greece", got.Country)
	require.NotNil(t, got.TempC)
	assert.Equal(t, 25.6, *got.TempC)
	require.NotNil(t, got.Humidity)
	assert.Equal(t, 65.0, *got.Humidity)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 37.983, *got.Latitude, 1e-9)
	assert.Equal(t, "Partly Cloudy", got.Condition)
	assert.True(t, got.CapturedAt.Equal(obs.CapturedAt), "captured_at round-trip")
	assert.True(t, got.ObservedDate.Equal(obs.ObservedDate), "observed_date round-trip")

	_, err = store.Get(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	deleted, err := store.DeleteByLocation(ctx, "Athens", "Greece")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = store.DeleteByLocation(ctx, "Athens", "Greece")
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}

func TestStoreInsertNullOptionals(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t)

	obs := athensAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	obs.Latitude = nil
	obs.Longitude = nil
	obs.UVIndex = nil
	obs.Condition = ""

	id, err := store.Insert(ctx, obs)
	require.NoError(t, err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Latitude)
	assert.Nil(t, got.Longitude)
	assert.Nil(t, got.UVIndex)
	assert.Empty(t, got.Condition)
}

func TestStoreInsertConflict(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t)

	obs := athensAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	_, err := store.Insert(ctx, obs)
	require.NoError(t, err)

	// Identical (city, country, observed_date, captured_at) key.
	_, err = store.Insert(ctx, obs)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	// Same key fields except captured_at is allowed by the constraint.
	later := athensAt(time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC))
	_, err = store.Insert(ctx, later)
	assert.NoError(t, err)
}

func TestStoreFindNearDuplicate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t)

	existingID, err := store.Insert(ctx, athensAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	t.Run("45 minutes later is a duplicate", func(t *testing.T) {
		id, dup, err := store.FindNearDuplicate(ctx, athensAt(time.Date(2025, 6, 1, 10, 45, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, existingID, id)
	})

	t.Run("exactly one hour is not a duplicate", func(t *testing.T) {
		// The window is strictly less than 3600 seconds.
		_, dup, err := store.FindNearDuplicate(ctx, athensAt(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("two hours later is not a duplicate", func(t *testing.T) {
		_, dup, err := store.FindNearDuplicate(ctx, athensAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("45 minutes earlier is a duplicate", func(t *testing.T) {
		id, dup, err := store.FindNearDuplicate(ctx, athensAt(time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, existingID, id)
	})

	t.Run("different city is not a duplicate", func(t *testing.T) {
		other := athensAt(time.Date(2025, 6, 1, 10, 45, 0, 0, time.UTC))
		other.City = "Paris"
		other.Country = "France"
		_, dup, err := store.FindNearDuplicate(ctx, other)
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("different observed date is not a duplicate", func(t *testing.T) {
		other := athensAt(time.Date(2025, 6, 1, 10, 45, 0, 0, time.UTC))
		other.ObservedDate = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		_, dup, err := store.FindNearDuplicate(ctx, other)
		require.NoError(t, err)
		assert.False(t, dup)
	})
}

func TestStoreQualityStatsAndSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t)

	// Two Athens rows on the same date (a duplicate pair for the report),
	// one with missing coordinates, plus one Paris row a day earlier.
	first := athensAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	second := athensAt(time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC))
	second.TempC = fptr(28.0)
	second.Latitude = nil
	second.Longitude = nil

	paris := athensAt(time.Date(2025, 5, 31, 9, 0, 0, 0, time.UTC))
	paris.City = "Paris"
	paris.Country = "France"
	paris.TempC = fptr(18.2)
	paris.Humidity = fptr(70)
	paris.WindKmph = fptr(20.0)

	for _, obs := range []domain.WeatherObservation{first, second, paris} {
		_, err := store.Insert(ctx, obs)
		require.NoError(t, err)
	}

	stats, err := store.QualityStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalRecords)
	assert.EqualValues(t, 2, stats.Cities)
	assert.EqualValues(t, 2, stats.Countries)
	assert.Equal(t, "2025-05-31", stats.FirstDate.Format("2006-01-02"))
	assert.Equal(t, "2025-06-01", stats.LastDate.Format("2006-01-02"))
	assert.InDelta(t, (25.6+28.0+18.2)/3, stats.TempMean, 1e-9)
	assert.InDelta(t, 18.2, stats.TempMin, 1e-9)
	assert.InDelta(t, 28.0, stats.TempMax, 1e-9)
	assert.EqualValues(t, 2, stats.DuplicateRows, "the Athens pair shares city/country/date")
	assert.True(t, stats.LatestCapture.Equal(second.CapturedAt))

	missing := map[string]int64{}
	for _, m := range stats.Missing {
		missing[m.Column] = m.Count
	}
	assert.EqualValues(t, 1, missing["latitude"])
	assert.EqualValues(t, 1, missing["longitude"])
	assert.NotContains(t, missing, "temp_c")

	summaries, err := store.CitySummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	athens := summaries[0]
	assert.Equal(t, "Athens", athens.City)
	assert.Equal(t, "Greece", athens.Country)
	assert.InDelta(t, 26.8, athens.AvgTempC, 1e-9)
	assert.InDelta(t, 25.6, athens.MinTempC, 1e-9)
	assert.InDelta(t, 28.0, athens.MaxTempC, 1e-9)
	assert.EqualValues(t, 2, athens.Records)

	parisSummary := summaries[1]
	assert.Equal(t, "Paris", parisSummary.City)
	assert.InDelta(t, 18.2, parisSummary.AvgTempC, 1e-9)
	assert.InDelta(t, 70.0, parisSummary.AvgHumidity, 1e-9)
	assert.EqualValues(t, 1, parisSummary.Records)
}
