// Package wttr implements the extraction stage against the wttr.in JSON API.
package wttr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avelworth/weather-etl/internal/domain"
)

// Client fetches current conditions from a wttr.in-compatible endpoint.
// It performs exactly one GET per Extract call; there is no retry policy
// anywhere in the pipeline.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a wttr.in client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Extract performs one GET for the query's request key and returns the
// parsed observation stamped with the current date and capture time, along
// with the location the upstream actually answered for. Failures are
// classified as TimeoutError, NetworkError, UpstreamError, or ParseError.
func (c *Client) Extract(ctx context.Context, query domain.LocationQuery) (domain.WeatherObservation, domain.ResolvedLocation, error) {
	fullURL := fmt.Sprintf("%s/%s?format=j1", c.baseURL, url.PathEscape(query.RequestKey()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, &domain.UpstreamError{Status: resp.StatusCode}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, &domain.ParseError{Err: fmt.Errorf("decode body: %w", err)}
	}

	obs, resolved, err := buildObservation(payload, query)
	if err != nil {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, err
	}

	c.logger.Debug("extracted observation",
		"request_key", query.RequestKey(),
		"resolved_city", resolved.City,
		"resolved_country", resolved.Country,
	)
	return obs, resolved, nil
}

func classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &domain.TimeoutError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Err: err}
	}
	return &domain.NetworkError{Err: err}
}

// buildObservation maps the wire payload onto the domain model. Every
// numeric current-condition field arrives as a JSON string; any that fail
// to parse reject the payload. Nearest-area coordinates are best-effort:
// unparseable values leave the stored coordinates null.
func buildObservation(payload response, query domain.LocationQuery) (domain.WeatherObservation, domain.ResolvedLocation, error) {
	if len(payload.CurrentCondition) == 0 {
		return domain.WeatherObservation{}, domain.ResolvedLocation{}, &domain.ParseError{Err: errors.New("missing current_condition")}
	}
	current := payload.CurrentCondition[0]

	resolved := resolveArea(payload, query)

	now := domain.Now()
	obs := domain.WeatherObservation{
		City:         resolved.City,
		Country:      resolved.Country,
		Latitude:     resolved.Lat,
		Longitude:    resolved.Lon,
		ObservedDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Condition:    firstValue(current.WeatherDesc),
		CapturedAt:   now.Truncate(time.Second),
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"temp_C", current.TempC, &obs.TempC},
		{"FeelsLikeC", current.FeelsLikeC, &obs.FeelsLikeC},
		{"humidity", current.Humidity, &obs.Humidity},
		{"windspeedKmph", current.WindspeedKmph, &obs.WindKmph},
		{"pressure", current.Pressure, &obs.PressureMB},
		{"visibility", current.Visibility, &obs.VisibilityKm},
		{"uvIndex", current.UVIndex, &obs.UVIndex},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return domain.WeatherObservation{}, domain.ResolvedLocation{}, &domain.ParseError{Err: fmt.Errorf("field %s: %w", f.name, err)}
		}
		val := v
		*f.dst = &val
	}

	return obs, resolved, nil
}

// resolveArea extracts the upstream's nearest matching area. When the
// payload carries none, the requested location is echoed back so the
// record still has an identity.
func resolveArea(payload response, query domain.LocationQuery) domain.ResolvedLocation {
	if len(payload.NearestArea) == 0 {
		country := query.Country
		if country == "" {
			country = "Unknown"
		}
		return domain.ResolvedLocation{City: query.City, Country: country}
	}

	area := payload.NearestArea[0]
	return domain.ResolvedLocation{
		City:    firstValue(area.AreaName),
		Country: firstValue(area.Country),
		Lat:     parseCoord(area.Latitude),
		Lon:     parseCoord(area.Longitude),
	}
}

func parseCoord(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

func firstValue(vs []value) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0].Value
}

// wttr.in j1 response types. All numeric fields are strings on the wire.

type response struct {
	CurrentCondition []currentCondition `json:"current_condition"`
	NearestArea      []nearestArea      `json:"nearest_area"`
}

type currentCondition struct {
	TempC         string  `json:"temp_C"`
	FeelsLikeC    string  `json:"FeelsLikeC"`
	WeatherDesc   []value `json:"weatherDesc"`
	Humidity      string  `json:"humidity"`
	WindspeedKmph string  `json:"windspeedKmph"`
	Pressure      string  `json:"pressure"`
	Visibility    string  `json:"visibility"`
	UVIndex       string  `json:"uvIndex"`
}

type nearestArea struct {
	AreaName  []value `json:"areaName"`
	Country   []value `json:"country"`
	Latitude  string  `json:"latitude"`
	Longitude string  `json:"longitude"`
}

type value struct {
	Value string `json:"value"`
}
