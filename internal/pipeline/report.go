package pipeline

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/avelworth/weather-etl/internal/domain"
)

const reportDivider = "======================================================================"

// QualityReport renders a human-readable data quality summary of the
// stored observations: volume, coverage, missing values, temperature
// distribution, outliers, duplicates, and freshness.
func (p *Pipeline) QualityReport(ctx context.Context) (string, error) {
	stats, err := p.store.QualityStats(ctx)
	if err != nil {
		return "", fmt.Errorf("quality report: %w", err)
	}

	if stats.TotalRecords == 0 {
		return "No data available for quality report", nil
	}

	var b strings.Builder
	fmt.Fprintln(&b, reportDivider)
	fmt.Fprintln(&b, "DATA QUALITY REPORT")
	fmt.Fprintln(&b, reportDivider)

	fmt.Fprintf(&b, "\nTotal records: %d\n", stats.TotalRecords)
	fmt.Fprintf(&b, "Date range: %s to %s\n",
		stats.FirstDate.Format("2006-01-02"), stats.LastDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Cities tracked: %d\n", stats.Cities)
	fmt.Fprintf(&b, "Countries: %d\n", stats.Countries)

	fmt.Fprintln(&b, "\nMissing values:")
	if len(stats.Missing) == 0 {
		fmt.Fprintln(&b, "  OK: no missing values")
	} else {
		for _, m := range stats.Missing {
			pct := float64(m.Count) / float64(stats.TotalRecords) * 100
			fmt.Fprintf(&b, "  - %s: %d (%.1f%%)\n", m.Column, m.Count, pct)
		}
	}

	fmt.Fprintln(&b, "\nTemperature statistics:")
	fmt.Fprintf(&b, "  Mean: %.1f°C\n", stats.TempMean)
	fmt.Fprintf(&b, "  Min: %.1f°C\n", stats.TempMin)
	fmt.Fprintf(&b, "  Max: %.1f°C\n", stats.TempMax)
	fmt.Fprintf(&b, "  Std dev: %.1f°C\n", stats.TempStdDev)

	if stats.TempOutliers > 0 {
		fmt.Fprintf(&b, "\nWARNING: temperature outliers detected: %d\n", stats.TempOutliers)
	} else {
		fmt.Fprintln(&b, "\nOK: no temperature outliers")
	}

	if stats.DuplicateRows > 0 {
		fmt.Fprintf(&b, "\nWARNING: potential duplicates: %d records\n", stats.DuplicateRows)
	} else {
		fmt.Fprintln(&b, "\nOK: no duplicates detected")
	}

	age := p.clock.Now().Sub(stats.LatestCapture)
	fmt.Fprintln(&b, "\nData freshness:")
	fmt.Fprintf(&b, "  Latest update: %s\n", stats.LatestCapture.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Age: %s\n", age.Round(time.Second))
	if age > 24*time.Hour {
		fmt.Fprintln(&b, "  WARNING: data is more than 24 hours old")
	} else {
		fmt.Fprintln(&b, "  OK: data is fresh")
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, reportDivider)
	return b.String(), nil
}

// SummaryStatistics returns per-(city, country) aggregates of the stored
// observations.
func (p *Pipeline) SummaryStatistics(ctx context.Context) ([]domain.CitySummary, error) {
	summaries, err := p.store.CitySummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary statistics: %w", err)
	}
	return summaries, nil
}

// RenderSummaryTable formats city summaries as an aligned text table.
func RenderSummaryTable(summaries []domain.CitySummary) string {
	if len(summaries) == 0 {
		return "No data available for statistics"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "City\tCountry\tAvg Temp\tMin Temp\tMax Temp\tTemp StdDev\tAvg Humidity\tAvg Wind\tRecords")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			s.City, s.Country, s.AvgTempC, s.MinTempC, s.MaxTempC,
			s.StdDevTempC, s.AvgHumidity, s.AvgWindKmph, s.Records)
	}
	w.Flush()
	return b.String()
}
