// Command weather-etl collects point-in-time weather observations for
// named locations from wttr.in, runs them through the
// validate/normalize/enrich/deduplicate pipeline, and persists them in
// PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/avelworth/weather-etl/internal/adapter/httpadapter"
	"github.com/avelworth/weather-etl/internal/adapter/postgres"
	"github.com/avelworth/weather-etl/internal/adapter/wttr"
	"github.com/avelworth/weather-etl/internal/config"
	"github.com/avelworth/weather-etl/internal/domain"
	"github.com/avelworth/weather-etl/internal/observability"
	"github.com/avelworth/weather-etl/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *postgres.Store
	pipeline *pipeline.Pipeline
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store := postgres.NewStore(cfg.DatabaseURL, logger)
	extractor := wttr.NewClient(cfg.WttrBaseURL, cfg.RequestTimeout, logger)
	p := pipeline.New(extractor, store, logger, metrics, clockwork.NewRealClock())

	return &app{cfg: cfg, logger: logger, store: store, pipeline: p}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "weather-etl",
		Short:         "Weather observation ETL pipeline",
		Long:          "Collects current weather observations from wttr.in, validates and normalizes them, and persists them in PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCollectCmd(),
		newBatchCmd(),
		newReportCmd(),
		newStatsCmd(),
		newPurgeCmd(),
	)
	return root
}

func newCollectCmd() *cobra.Command {
	var (
		country string
		lat     float64
		lon     float64
	)

	cmd := &cobra.Command{
		Use:   "collect <city>",
		Short: "Collect one observation for a single location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			query := domain.LocationQuery{City: args[0], Country: country}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				query.Lat = &lat
				query.Lon = &lon
			}

			if !a.pipeline.RunSingle(ctx, query) {
				return fmt.Errorf("collection failed for %s", query)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&country, "country", "c", "", "country name to disambiguate the city")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (requires --lon)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude (requires --lat)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		file  string
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "batch [City[,Country]...]",
		Short: "Collect observations for multiple locations sequentially",
		Long: `Processes locations one at a time with a fixed courtesy pause between
upstream calls. Locations come from arguments ("Athens,Greece") or a JSON
file of {"city","country","lat","lon"} objects. Serves /healthz, /readyz,
and /metrics for the duration of the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			locations, err := gatherLocations(args, file)
			if err != nil {
				return err
			}
			if len(locations) == 0 {
				return errors.New("no locations given: pass City,Country arguments or --file")
			}

			if !cmd.Flags().Changed("delay") {
				delay = a.cfg.BatchDelay
			}

			ctx, stop := signalContext()
			defer stop()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			logger := a.logger
			ready := httpadapter.CheckAll{
				httpadapter.ReadinessFunc(a.store.Ping),
				a.pipeline,
			}
			srv := httpadapter.NewServer(a.cfg.HTTPAddr, ready, logger)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("ops server error", "error", err)
				}
			}()

			stats := a.pipeline.RunBatch(ctx, locations, delay)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown error", "error", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"attempted=%d succeeded=%d failed=%d validation_errors=%d duplicates=%d\n",
				stats.Attempted, stats.Succeeded, stats.Failed,
				stats.ValidationErrors, stats.Duplicates)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with locations")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between upstream calls")
	return cmd
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print a data quality report for stored observations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			report, err := a.pipeline.QualityReport(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print summary statistics by city",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			summaries, err := a.pipeline.SummaryStatistics(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pipeline.RenderSummaryTable(summaries))
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <city> <country>",
		Short: "Delete all stored observations for a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if err := a.store.EnsureSchema(ctx); err != nil {
				return err
			}

			deleted, err := a.store.DeleteByLocation(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d observations for %s, %s\n", deleted, args[0], args[1])
			return nil
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// gatherLocations merges command-line "City[,Country]" arguments with the
// optional JSON locations file.
func gatherLocations(args []string, file string) ([]domain.LocationQuery, error) {
	var locations []domain.LocationQuery

	for _, arg := range args {
		city, country, _ := strings.Cut(arg, ",")
		city = strings.TrimSpace(city)
		if city == "" {
			return nil, fmt.Errorf("invalid location %q", arg)
		}
		locations = append(locations, domain.LocationQuery{
			City:    city,
			Country: strings.TrimSpace(country),
		})
	}

	if file != "" {
		fromFile, err := readLocationsFile(file)
		if err != nil {
			return nil, err
		}
		locations = append(locations, fromFile...)
	}

	return locations, nil
}

func readLocationsFile(path string) ([]domain.LocationQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}

	var entries []struct {
		City    string   `json:"city"`
		Country string   `json:"country"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}

	locations := make([]domain.LocationQuery, 0, len(entries))
	for _, e := range entries {
		if e.City == "" {
			return nil, fmt.Errorf("locations file: entry missing city")
		}
		locations = append(locations, domain.LocationQuery{
			City:    e.City,
			Country: e.Country,
			Lat:     e.Lat,
			Lon:     e.Lon,
		})
	}
	return locations, nil
}
