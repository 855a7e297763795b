// Package pipeline orchestrates the extract-transform-load flow for
// weather observations: resolve → extract → normalize → validate → enrich
// → deduplicate → load, per location, strictly sequentially across a batch.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/avelworth/weather-etl/internal/domain"
	"github.com/avelworth/weather-etl/internal/observability"
)

// Extractor fetches one observation for a location query. A single call,
// no retries: extraction failures are terminal for that location.
type Extractor interface {
	Extract(ctx context.Context, query domain.LocationQuery) (domain.WeatherObservation, domain.ResolvedLocation, error)
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	Insert(ctx context.Context, obs domain.WeatherObservation) (int64, error)
	FindNearDuplicate(ctx context.Context, obs domain.WeatherObservation) (int64, bool, error)
	QualityStats(ctx context.Context) (domain.QualityStats, error)
	CitySummaries(ctx context.Context) ([]domain.CitySummary, error)
}

// stage names the orchestrator's position within a single-location run,
// used for logging and failure attribution.
type stage string

const (
	stageIdle         stage = "idle"
	stageExtracting   stage = "extracting"
	stageTransforming stage = "transforming"
	stageLoading      stage = "loading"
)

// RunStats accumulates per-run counters. Validation errors and duplicates
// are sub-classifications of "not loaded": they are tracked alongside the
// succeeded/failed counters, so attempted is not their sum. Owned by one
// run; not safe for concurrent use.
type RunStats struct {
	Attempted        int
	Succeeded        int
	Failed           int
	ValidationErrors int
	Duplicates       int
}

// Pipeline sequences the ETL stages per location and across batches.
type Pipeline struct {
	extractor Extractor
	store     Store
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	ready     atomic.Bool
}

// New creates a Pipeline. The clock drives the inter-request batch pause;
// pass clockwork.NewRealClock() in production.
func New(e Extractor, s Store, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	return &Pipeline{
		extractor: e,
		store:     s,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// location end-to-end.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any locations yet")
	}
	return nil
}

// RunSingle processes one location end-to-end and reports whether an
// observation was persisted. Stage errors never escape: failures are
// captured into the location's outcome.
func (p *Pipeline) RunSingle(ctx context.Context, query domain.LocationQuery) bool {
	stats := RunStats{}
	return p.runOne(ctx, query, &stats)
}

// RunBatch processes locations strictly sequentially, pausing delay
// between calls as a hard-coded courtesy to the upstream. There is no
// backoff and no retry: a location either completes or its failure is
// recorded and the batch moves on.
func (p *Pipeline) RunBatch(ctx context.Context, locations []domain.LocationQuery, delay time.Duration) RunStats {
	stats := RunStats{}

	p.logger.Info("batch started", "locations", len(locations), "delay", delay)
	p.metrics.BatchRunning.Set(1)
	defer p.metrics.BatchRunning.Set(0)

	for i, query := range locations {
		if ctx.Err() != nil {
			p.logger.Info("batch stopping", "reason", ctx.Err())
			break
		}

		p.logger.Info("processing location",
			"index", i+1,
			"total", len(locations),
			"location", query.String(),
		)
		p.runOne(ctx, query, &stats)

		if i < len(locations)-1 && delay > 0 {
			if !p.pause(ctx, delay) {
				break
			}
		}
	}

	p.logger.Info("batch finished",
		"attempted", stats.Attempted,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"validation_errors", stats.ValidationErrors,
		"duplicates", stats.Duplicates,
	)
	return stats
}

// runOne drives one location through the stage machine:
// idle → extracting → transforming → loading → done. Exactly which
// counters move mirrors the outcome taxonomy: extraction and parse
// failures are failed, invalid records count as validation errors, near
// duplicates as duplicates, and only a persisted record succeeds.
func (p *Pipeline) runOne(ctx context.Context, query domain.LocationQuery, stats *RunStats) bool {
	stats.Attempted++
	p.metrics.LocationsAttempted.Inc()

	log := p.logger.With("location", query.String())

	// Extract.
	current := stageExtracting
	start := p.clock.Now()
	obs, resolved, err := p.extractor.Extract(ctx, query)
	p.metrics.ExtractDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		kind := classifyExtractError(err)
		log.Error("extract failed", "stage", current, "kind", kind, "error", err)
		p.metrics.ExtractFailures.WithLabelValues(kind).Inc()
		stats.Failed++
		return false
	}

	if warning := domain.Reconcile(query, resolved); warning != "" {
		log.Warn("location mismatch", "warning", warning,
			"resolved_city", resolved.City, "resolved_country", resolved.Country)
	}

	// Transform: normalize, then validate against final values, then
	// enrich with derived classifications.
	current = stageTransforming
	obs = domain.Normalize(obs)
	valid, issues := domain.Validate(obs)
	obs = domain.Enrich(obs)

	if !valid {
		log.Warn("validation failed", "stage", current, "issues", issues)
		p.metrics.ValidationFailures.Inc()
		stats.ValidationErrors++
	}

	// Deduplicate. Runs regardless of validity so a record can count as
	// both a validation error and a duplicate.
	existingID, isDup, err := p.store.FindNearDuplicate(ctx, obs)
	if err != nil {
		log.Error("duplicate check failed", "stage", current, "error", err)
		p.metrics.StoreErrors.Inc()
		stats.Failed++
		return false
	}
	if isDup {
		log.Warn("near duplicate detected", "stage", current, "existing_id", existingID)
		p.metrics.DuplicatesSkipped.Inc()
		stats.Duplicates++
	}

	// Load. Skipping invalid or duplicate records is not a pipeline
	// failure.
	current = stageLoading
	if !valid || isDup {
		log.Info("skipping load", "stage", current, "valid", valid, "duplicate", isDup)
		return false
	}

	id, err := p.store.Insert(ctx, obs)
	if errors.Is(err, domain.ErrDuplicateKey) {
		// Lost a race against a concurrent insert on the same key.
		log.Warn("observation already exists", "stage", current)
		return false
	}
	if err != nil {
		log.Error("load failed", "stage", current, "error", err)
		p.metrics.StoreErrors.Inc()
		return false
	}

	log.Info("observation loaded",
		"id", id,
		"city", obs.City,
		"country", obs.Country,
		"heat_category", obs.HeatCategory,
		"comfort_level", obs.ComfortLevel,
		"wind_category", obs.WindCategory,
	)
	p.metrics.ObservationsLoaded.Inc()
	stats.Succeeded++
	p.ready.Store(true)
	return true
}

// pause sleeps for the inter-request delay. Returns false if the context
// was cancelled while waiting.
func (p *Pipeline) pause(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(delay):
		return true
	}
}

func classifyExtractError(err error) string {
	var (
		netErr      *domain.NetworkError
		timeoutErr  *domain.TimeoutError
		upstreamErr *domain.UpstreamError
		parseErr    *domain.ParseError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &upstreamErr):
		return "upstream"
	case errors.As(err, &parseErr):
		return "parse"
	default:
		return "other"
	}
}
