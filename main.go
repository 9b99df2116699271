package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"apartment-finder/clients"
	"apartment-finder/config"
	"apartment-finder/metrics"
	"apartment-finder/scraper/zillow"
	"apartment-finder/server"
	"apartment-finder/services"
	"apartment-finder/storage"
	"apartment-finder/utils"
)

func main() {
	serve := flag.Bool("serve", false, "start the dashboard API instead of running a single search")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	logger.Info("=== Apartment Finder starting ===")
	logger.Info("Config: office %.4f,%.4f | radius %.2f mi | rent $%d-$%d | places %v",
		cfg.OfficeLat, cfg.OfficeLon, cfg.RadiusMi, cfg.MinRent, cfg.MaxRent, cfg.PlaceTypes)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	finder := newFinder(cfg, logger, m)
	reports := services.NewReportService(logger)

	if *serve {
		if err := runServer(cfg, finder, reports, reg, logger); err != nil {
			logger.Error("Dashboard failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := runOnce(cfg, finder, reports, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func newFinder(cfg *config.Config, logger *utils.Logger, m *metrics.Pipeline) *services.Finder {
	source := zillow.New(zillow.Options{
		Endpoints:  cfg.ListingEndpoints(),
		APIKey:     cfg.RapidAPIKey,
		MaxResults: cfg.ListingMaxResults,
		PageDelay:  cfg.ListingPageDelay,
		Timeout:    cfg.ListingTimeout,
	}, logger, m)

	enricher := services.NewEnricher(
		clients.NewDirections(cfg.GoogleMapsBaseURL, cfg.PlacesAPIKey, cfg.RoutingTimeout),
		clients.NewPlaces(cfg.GoogleMapsBaseURL, cfg.PlacesAPIKey, cfg.PlacesTimeout),
		cfg.PlacesRadiusM, logger, m)

	openai := clients.NewOpenAI(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.RankingTimeout)
	ranker := services.NewRanker(services.NewRemoteStrategy(openai), services.RankerOptions{
		MaxListings: cfg.RankingMaxListings,
		MaxAttempts: cfg.RankingMaxAttempts,
		BaseDelay:   cfg.RankingBaseDelay,
	}, logger, m)

	return services.NewFinder(source, enricher, ranker, logger, m)
}

// runOnce runs the default search, prints the summary and exports the CSV.
func runOnce(cfg *config.Config, finder *services.Finder, reports *services.ReportService, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := finder.Search(ctx, cfg.DefaultSearch())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	reports.Print(os.Stdout, reports.Generate(res))

	csvWriter, err := storage.NewCSVFile(cfg.CSVOutputPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()

	if err := csvWriter.Write(res.Listings); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	logger.Info("Ranked listings saved to %s", cfg.CSVOutputPath)
	return nil
}

func runServer(cfg *config.Config, finder *services.Finder, reports *services.ReportService, reg *prometheus.Registry, logger *utils.Logger) error {
	handler, err := server.New(cfg, finder, reports, reg, logger)
	if err != nil {
		return err
	}

	// searches can take minutes, so no write timeout
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dashboard listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
