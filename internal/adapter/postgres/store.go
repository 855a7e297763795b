// Package postgres persists weather observations in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avelworth/weather-etl/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS weather_observations (
	id              BIGSERIAL PRIMARY KEY,
	city            TEXT NOT NULL,
	country         TEXT NOT NULL,
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	observed_date   DATE NOT NULL,
	temp_c          DOUBLE PRECISION,
	feels_like_c    DOUBLE PRECISION,
	condition       TEXT,
	humidity        INTEGER,
	wind_speed_kmph DOUBLE PRECISION,
	pressure_mb     DOUBLE PRECISION,
	visibility_km   DOUBLE PRECISION,
	uv_index        INTEGER,
	captured_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (city, country, observed_date, captured_at)
)`

// Store is the persistence adapter. It holds only a connection string and
// dials one short-lived connection per operation; no connection is shared
// across pipeline stages. The table's uniqueness constraint is the sole
// guard against concurrent pipeline instances inserting the same
// observation.
type Store struct {
	connString string
	logger     *slog.Logger
}

// NewStore creates a Store for the given PostgreSQL connection string.
func NewStore(connString string, logger *slog.Logger) *Store {
	return &Store{connString: connString, logger: logger}
}

func (s *Store) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, s.connString)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return conn, nil
}

func (s *Store) close(ctx context.Context, conn *pgx.Conn) {
	if err := conn.Close(ctx); err != nil {
		s.logger.Warn("close connection failed", "error", err)
	}
}

// EnsureSchema creates the observation table and its uniqueness constraint
// if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(ctx, conn)

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(ctx, conn)
	return conn.Ping(ctx)
}

// Insert persists one observation and returns its id. A collision on the
// (city, country, observed_date, captured_at) key returns
// domain.ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, obs domain.WeatherObservation) (int64, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer s.close(ctx, conn)

	var id int64
	err = conn.QueryRow(ctx, `
INSERT INTO weather_observations
	(city, country, latitude, longitude, observed_date, temp_c, feels_like_c,
	 condition, humidity, wind_speed_kmph, pressure_mb, visibility_km,
	 uv_index, captured_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`,
		obs.City, obs.Country, obs.Latitude, obs.Longitude, obs.ObservedDate,
		obs.TempC, obs.FeelsLikeC, nullableText(obs.Condition),
		wholeInt(obs.Humidity), obs.WindKmph, obs.PressureMB,
		obs.VisibilityKm, wholeInt(obs.UVIndex), obs.CapturedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateKey
		}
		return 0, fmt.Errorf("insert observation: %w", err)
	}
	return id, nil
}

// Get looks up one observation by id. Returns domain.ErrNotFound when no
// row matches.
func (s *Store) Get(ctx context.Context, id int64) (domain.WeatherObservation, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return domain.WeatherObservation{}, err
	}
	defer s.close(ctx, conn)

	var (
		obs       domain.WeatherObservation
		condition *string
		humidity  *int64
		uvIndex   *int64
	)
	err = conn.QueryRow(ctx, `
SELECT city, country, latitude, longitude, observed_date, temp_c,
       feels_like_c, condition, humidity, wind_speed_kmph, pressure_mb,
       visibility_km, uv_index, captured_at
FROM weather_observations
WHERE id = $1`, id).Scan(
		&obs.City, &obs.Country, &obs.Latitude, &obs.Longitude,
		&obs.ObservedDate, &obs.TempC, &obs.FeelsLikeC, &condition,
		&humidity, &obs.WindKmph, &obs.PressureMB, &obs.VisibilityKm,
		&uvIndex, &obs.CapturedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WeatherObservation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("get observation: %w", err)
	}

	if condition != nil {
		obs.Condition = *condition
	}
	obs.Humidity = intToFloat(humidity)
	obs.UVIndex = intToFloat(uvIndex)
	return obs, nil
}

// FindNearDuplicate looks for a stored observation with the same city,
// country, and observed date whose captured_at lies within one hour of the
// candidate's. The window is wider than the exact uniqueness key: it
// catches near-simultaneous re-collection.
func (s *Store) FindNearDuplicate(ctx context.Context, obs domain.WeatherObservation) (int64, bool, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return 0, false, err
	}
	defer s.close(ctx, conn)

	var id int64
	err = conn.QueryRow(ctx, `
SELECT id
FROM weather_observations
WHERE city = $1
  AND country = $2
  AND observed_date = $3
  AND ABS(EXTRACT(EPOCH FROM (captured_at - $4::timestamptz))) < 3600
LIMIT 1`,
		obs.City, obs.Country, obs.ObservedDate, obs.CapturedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find near duplicate: %w", err)
	}
	return id, true, nil
}

// DeleteByLocation removes every observation stored for a city/country
// pair and returns the number of deleted rows.
func (s *Store) DeleteByLocation(ctx context.Context, city, country string) (int64, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer s.close(ctx, conn)

	tag, err := conn.Exec(ctx, `
DELETE FROM weather_observations WHERE city = $1 AND country = $2`, city, country)
	if err != nil {
		return 0, fmt.Errorf("delete by location: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QualityStats computes the aggregates behind the data quality report.
func (s *Store) QualityStats(ctx context.Context) (domain.QualityStats, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return domain.QualityStats{}, err
	}
	defer s.close(ctx, conn)

	var (
		total, cities, countries int64
		firstDate, lastDate      *time.Time
		latestCapture            *time.Time
		missingLat, missLon      int64
		missTemp, missFeels      int64
		missCond, missHum        int64
		missWind, missPress      int64
		missVis, missUV          int64
		mean, minT, maxT, sd     float64
	)
	err = conn.QueryRow(ctx, `
SELECT COUNT(*),
       MIN(observed_date), MAX(observed_date),
       COUNT(DISTINCT city), COUNT(DISTINCT country),
       COUNT(*) FILTER (WHERE latitude IS NULL),
       COUNT(*) FILTER (WHERE longitude IS NULL),
       COUNT(*) FILTER (WHERE temp_c IS NULL),
       COUNT(*) FILTER (WHERE feels_like_c IS NULL),
       COUNT(*) FILTER (WHERE condition IS NULL),
       COUNT(*) FILTER (WHERE humidity IS NULL),
       COUNT(*) FILTER (WHERE wind_speed_kmph IS NULL),
       COUNT(*) FILTER (WHERE pressure_mb IS NULL),
       COUNT(*) FILTER (WHERE visibility_km IS NULL),
       COUNT(*) FILTER (WHERE uv_index IS NULL),
       COALESCE(AVG(temp_c), 0),
       COALESCE(MIN(temp_c), 0),
       COALESCE(MAX(temp_c), 0),
       COALESCE(STDDEV_SAMP(temp_c), 0),
       MAX(captured_at)
FROM weather_observations`).Scan(
		&total, &firstDate, &lastDate, &cities, &countries,
		&missingLat, &missLon, &missTemp, &missFeels, &missCond, &missHum,
		&missWind, &missPress, &missVis, &missUV,
		&mean, &minT, &maxT, &sd, &latestCapture,
	)
	if err != nil {
		return domain.QualityStats{}, fmt.Errorf("quality stats: %w", err)
	}

	out := domain.QualityStats{
		TotalRecords: total,
		Cities:       cities,
		Countries:    countries,
		TempMean:     mean,
		TempMin:      minT,
		TempMax:      maxT,
		TempStdDev:   sd,
	}
	if firstDate != nil {
		out.FirstDate = *firstDate
	}
	if lastDate != nil {
		out.LastDate = *lastDate
	}
	if latestCapture != nil {
		out.LatestCapture = *latestCapture
	}
	for _, m := range []struct {
		column string
		count  int64
	}{
		{"latitude", missingLat},
		{"longitude", missLon},
		{"temp_c", missTemp},
		{"feels_like_c", missFeels},
		{"condition", missCond},
		{"humidity", missHum},
		{"wind_speed_kmph", missWind},
		{"pressure_mb", missPress},
		{"visibility_km", missVis},
		{"uv_index", missUV},
	} {
		if m.count > 0 {
			out.Missing = append(out.Missing, domain.ColumnMissing{Column: m.column, Count: m.count})
		}
	}

	if out.TotalRecords > 0 && out.TempStdDev > 0 {
		low := out.TempMean - 3*out.TempStdDev
		high := out.TempMean + 3*out.TempStdDev
		err = conn.QueryRow(ctx, `
SELECT COUNT(*) FROM weather_observations WHERE temp_c < $1 OR temp_c > $2`,
			low, high).Scan(&out.TempOutliers)
		if err != nil {
			return domain.QualityStats{}, fmt.Errorf("outlier count: %w", err)
		}
	}

	err = conn.QueryRow(ctx, `
SELECT COALESCE(SUM(c), 0)
FROM (
	SELECT COUNT(*) AS c
	FROM weather_observations
	GROUP BY city, country, observed_date
	HAVING COUNT(*) > 1
) grouped`).Scan(&out.DuplicateRows)
	if err != nil {
		return domain.QualityStats{}, fmt.Errorf("duplicate count: %w", err)
	}

	return out, nil
}

// CitySummaries aggregates stored observations per (city, country) pair,
// ordered by city then country.
func (s *Store) CitySummaries(ctx context.Context) ([]domain.CitySummary, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer s.close(ctx, conn)

	rows, err := conn.Query(ctx, `
SELECT city, country,
       COALESCE(AVG(temp_c), 0),
       COALESCE(MIN(temp_c), 0),
       COALESCE(MAX(temp_c), 0),
       COALESCE(STDDEV_SAMP(temp_c), 0),
       COALESCE(AVG(humidity), 0),
       COALESCE(AVG(wind_speed_kmph), 0),
       COUNT(*)
FROM weather_observations
GROUP BY city, country
ORDER BY city, country`)
	if err != nil {
		return nil, fmt.Errorf("city summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.CitySummary
	for rows.Next() {
		var cs domain.CitySummary
		if err := rows.Scan(&cs.City, &cs.Country, &cs.AvgTempC, &cs.MinTempC,
			&cs.MaxTempC, &cs.StdDevTempC, &cs.AvgHumidity, &cs.AvgWindKmph,
			&cs.Records); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}

// wholeInt converts a whole-valued float pointer into an int64 pointer for
// INTEGER columns, keeping NULL for absent values.
func wholeInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}

func intToFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
