package domain

import "time"

// ColumnMissing counts rows missing a value in one column.
type ColumnMissing struct {
	Column string
	Count  int64
}

// QualityStats is the aggregate read model behind the data quality report.
type QualityStats struct {
	TotalRecords int64
	FirstDate    time.Time
	LastDate     time.Time
	Cities       int64
	Countries    int64

	Missing []ColumnMissing

	TempMean   float64
	TempMin    float64
	TempMax    float64
	TempStdDev float64

	// TempOutliers counts readings more than three standard deviations
	// from the mean.
	TempOutliers int64

	// DuplicateRows counts rows sharing (city, country, observed_date)
	// with at least one other row.
	DuplicateRows int64

	LatestCapture time.Time
}

// CitySummary aggregates stored observations for one (city, country) pair.
type CitySummary struct {
	City        string
	Country     string
	AvgTempC    float64
	MinTempC    float64
	MaxTempC    float64
	StdDevTempC float64
	AvgHumidity float64
	AvgWindKmph float64
	Records     int64
}
