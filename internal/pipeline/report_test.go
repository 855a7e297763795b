package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelworth/weather-etl/internal/domain"
	"github.com/avelworth/weather-etl/internal/observability"
	"github.com/avelworth/weather-etl/internal/pipeline"
)

type reportStore struct {
	mockStore
	stats     domain.QualityStats
	statsErr  error
	summaries []domain.CitySummary
}

func (r *reportStore) QualityStats(_ context.Context) (domain.QualityStats, error) {
	return r.stats, r.statsErr
}

func (r *reportStore) CitySummaries(_ context.Context) ([]domain.CitySummary, error) {
	return r.summaries, nil
}

func TestQualityReport(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	store := &reportStore{
		stats: domain.QualityStats{
			TotalRecords: 12,
			FirstDate:    time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC),
			LastDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			Cities:       4,
			Countries:    3,
			Missing: []domain.ColumnMissing{
				{Column: "latitude", Count: 2},
			},
			TempMean:      21.4,
			TempMin:       12.0,
			TempMax:       31.5,
			TempStdDev:    4.2,
			TempOutliers:  1,
			DuplicateRows: 2,
			LatestCapture: now.Add(-2 * time.Hour),
		},
	}

	p := pipeline.New(&mockExtractor{}, store, slog.Default(), observability.NewMetricsForTesting(), clock)

	report, err := p.QualityReport(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report, "DATA QUALITY REPORT")
	assert.Contains(t, report, "Total records: 12")
	assert.Contains(t, report, "Date range: 2025-05-28 to 2025-06-02")
	assert.Contains(t, report, "Cities tracked: 4")
	assert.Contains(t, report, "latitude: 2 (16.7%)")
	assert.Contains(t, report, "Mean: 21.4°C")
	assert.Contains(t, report, "temperature outliers detected: 1")
	assert.Contains(t, report, "potential duplicates: 2 records")
	assert.Contains(t, report, "Age: 2h0m0s")
	assert.Contains(t, report, "OK: data is fresh")
}

func TestQualityReport_Empty(t *testing.T) {
	store := &reportStore{}
	p := pipeline.New(&mockExtractor{}, store, slog.Default(), observability.NewMetricsForTesting(), clockwork.NewRealClock())

	report, err := p.QualityReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No data available for quality report", report)
}

func TestQualityReport_StaleData(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	store := &reportStore{
		stats: domain.QualityStats{
			TotalRecords:  1,
			FirstDate:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			LastDate:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			Cities:        1,
			Countries:     1,
			LatestCapture: now.Add(-48 * time.Hour),
		},
	}

	p := pipeline.New(&mockExtractor{}, store, slog.Default(), observability.NewMetricsForTesting(), clock)

	report, err := p.QualityReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report, "WARNING: data is more than 24 hours old")
	assert.Contains(t, report, "OK: no missing values")
	assert.Contains(t, report, "OK: no temperature outliers")
	assert.Contains(t, report, "OK: no duplicates detected")
}

func TestQualityReport_StoreError(t *testing.T) {
	store := &reportStore{statsErr: errors.New("connection refused")}
	p := pipeline.New(&mockExtractor{}, store, slog.Default(), observability.NewMetricsForTesting(), clockwork.NewRealClock())

	_, err := p.QualityReport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality report")
}

func TestSummaryStatistics(t *testing.T) {
	store := &reportStore{
		summaries: []domain.CitySummary{
			{City: "Athens", Country: "Greece", AvgTempC: 25.5, MinTempC: 21.0, MaxTempC: 31.0, StdDevTempC: 2.1, AvgHumidity: 55.0, AvgWindKmph: 14.2, Records: 5},
			{City: "Paris", Country: "France", AvgTempC: 18.2, MinTempC: 12.0, MaxTempC: 24.0, StdDevTempC: 3.3, AvgHumidity: 67.0, AvgWindKmph: 18.6, Records: 4},
		},
	}
	p := pipeline.New(&mockExtractor{}, store, slog.Default(), observability.NewMetricsForTesting(), clockwork.NewRealClock())

	summaries, err := p.SummaryStatistics(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Athens", summaries[0].City)

	table := pipeline.RenderSummaryTable(summaries)
	assert.Contains(t, table, "City")
	assert.Contains(t, table, "Avg Temp")
	assert.Contains(t, table, "Athens")
	assert.Contains(t, table, "25.50")
	assert.Contains(t, table, "Paris")
}

func TestRenderSummaryTable_Empty(t *testing.T) {
	assert.Equal(t, "No data available for statistics", pipeline.RenderSummaryTable(nil))
}
