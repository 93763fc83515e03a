package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/pipeline"
	"github.com/Foahh/openrice-crawler/ratelimit"
	"github.com/Foahh/openrice-crawler/scraper"
)

var (
	flagVerbose     bool
	flagMetricsAddr string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "openrice",
	Short:         "openrice is the OpenRice Hong Kong crawl-and-transform pipeline.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(flagVerbose)
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")

	rootCmd.AddCommand(searchCmd, pagesCmd, statesCmd, paymentsCmd, transformCmd, allCmd)
}

// Execute runs the CLI and exits non-zero on any fatal stage error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() error {
	cfg = config.DefaultConfig()

	if value, ok := config.EnvString("OPENRICE_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := config.EnvString("OPENRICE_OUTPUT_DIR"); ok {
		cfg.OutputDir = value
	}
	if value, ok := config.EnvString("OPENRICE_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	cfg.Verbose = flagVerbose

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// serveMetrics exposes the registry while a stage runs. Returns a shutdown
// func; a no-op when no address is configured.
func serveMetrics(metrics *scraper.Metrics) func() {
	if cfg.MetricsAddr == "" {
		return func() {}
	}

	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	slog.Info("metrics server enabled", "addr", cfg.MetricsAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Crawl the paginated listing API into raw JSON batch files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context())
	},
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Fetch each restaurant's detail page as raw HTML, resuming across runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPages(cmd.Context())
	},
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "Extract the embedded client-state JSON from each HTML page.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStates(cmd.Context())
	},
}

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Aggregate the deduplicated payment-method reference table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayments(cmd.Context())
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Join, normalize, and deduplicate everything into the final dataset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransform(cmd.Context())
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every stage in order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stages := []func(context.Context) error{
			runSearch,
			runPages,
			runStates,
			runPayments,
			runTransform,
		}
		for _, stage := range stages {
			if err := stage(ctx); err != nil {
				return err
			}
		}
		return nil
	},
}

func runSearch(ctx context.Context) error {
	metrics := scraper.NewMetrics()
	defer serveMetrics(metrics)()

	client, err := scraper.NewAPIClient(cfg)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.MinDelay, cfg.Jitter)

	report, err := scraper.NewSearchCrawler(cfg, client, limiter, metrics).Run(ctx)
	if report != nil {
		printSummary("Search crawl", [][2]string{
			{"Total listed", fmt.Sprintf("%d", report.TotalCount)},
			{"Batches saved", fmt.Sprintf("%d", report.BatchesFetched)},
			{"Errors", fmt.Sprintf("%d", report.Errors)},
			{"Output dir", cfg.SearchesDir()},
		})
	}
	return err
}

func runPages(ctx context.Context) error {
	metrics := scraper.NewMetrics()
	defer serveMetrics(metrics)()

	client, err := scraper.NewPageClient(cfg)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(cfg.MinDelay, cfg.Jitter)

	report, err := scraper.NewPageCrawler(cfg, client, limiter, metrics).Run(ctx)
	if report != nil {
		printSummary("Page crawl", [][2]string{
			{"Total", fmt.Sprintf("%d", report.Total)},
			{"Fetched", fmt.Sprintf("%d", report.Fetched)},
			{"Skipped", fmt.Sprintf("%d", report.Skipped)},
			{"Errors", fmt.Sprintf("%d", report.Errors)},
			{"Output dir", cfg.PagesDir()},
		})
	}
	return err
}

func runStates(ctx context.Context) error {
	report, err := pipeline.NewStateExtractor(cfg).Run(ctx)
	if report != nil {
		printSummary("State extraction", [][2]string{
			{"Total", fmt.Sprintf("%d", report.Total)},
			{"Extracted", fmt.Sprintf("%d", report.Extracted)},
			{"Errors", fmt.Sprintf("%d", report.Errors)},
			{"Output dir", cfg.StatesDir()},
		})
	}
	return err
}

func runPayments(ctx context.Context) error {
	report, err := pipeline.NewPaymentExtractor(cfg).Run(ctx)
	if report != nil {
		printSummary("Payment extraction", [][2]string{
			{"Files processed", fmt.Sprintf("%d", report.FilesProcessed)},
			{"Errors", fmt.Sprintf("%d", report.Errors)},
			{"Unique payments", fmt.Sprintf("%d", report.UniquePayments)},
			{"Output file", cfg.PaymentsFile()},
		})
	}
	return err
}

func runTransform(ctx context.Context) error {
	report, err := pipeline.NewTransformer(cfg).Run(ctx)
	if report != nil {
		printSummary("Transform", [][2]string{
			{"Files processed", fmt.Sprintf("%d", report.FilesProcessed)},
			{"Errors", fmt.Sprintf("%d", report.Errors)},
			{"Unique POIs", fmt.Sprintf("%d", report.UniquePois)},
			{"Duplicates skipped", fmt.Sprintf("%d", report.Duplicates)},
			{"Output file", cfg.DatasetFile()},
		})
	}
	return err
}

func printSummary(title string, rows [][2]string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println(title + " complete")
	for _, row := range rows {
		fmt.Printf("  %-20s %s\n", row[0]+":", row[1])
	}
	fmt.Println(separator)
}
