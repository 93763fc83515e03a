package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/models"
	"github.com/Foahh/openrice-crawler/ratelimit"
)

const (
	searchStage = "search"

	warmupPath    = "/en/hongkong/restaurants?tc=sr1quick&region=0&s=1&district_id=1019"
	countPath     = "/api/v2/search/count/nofacet?sortBy=ORScoreDesc&apiEntryPoint=11&regionId=0&uiLang=en&uiCity=hongkong"
	refererPath   = "/en/hongkong/restaurants?"
	countFilename = "response_000_count.json"
)

func listingPath(startAt, rows int) string {
	return fmt.Sprintf(
		"/api/v2/search?regionId=0&startAt=%d&rows=%d&pageToken=CONST_DUMMY_TOKEN&uiLang=en&uiCity=hongkong",
		startAt, rows,
	)
}

// SearchCrawler discovers the total listing count and pages through results,
// persisting one raw JSON file per batch.
type SearchCrawler struct {
	cfg     *config.Config
	client  *resty.Client
	limiter *ratelimit.Limiter
	metrics *Metrics
	logger  *slog.Logger
}

// SearchReport summarizes one search crawl run.
type SearchReport struct {
	TotalCount     int
	BatchesFetched int
	Errors         int
}

// NewSearchCrawler wires a search crawler from explicit collaborators; the
// limiter and client are constructed by the caller so their lifetimes stay
// visible.
func NewSearchCrawler(cfg *config.Config, client *resty.Client, limiter *ratelimit.Limiter, metrics *Metrics) *SearchCrawler {
	return &SearchCrawler{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		metrics: metrics,
		logger:  slog.Default().With("component", "search_crawler"),
	}
}

// Run performs the whole search stage: count discovery, then pagination.
func (sc *SearchCrawler) Run(ctx context.Context) (*SearchReport, error) {
	if err := os.MkdirAll(sc.cfg.SearchesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create searches directory: %w", err)
	}

	totalCount, err := sc.GetInitialCount(ctx)
	if err != nil {
		return nil, err
	}

	report := &SearchReport{TotalCount: totalCount}
	if totalCount == 0 {
		sc.logger.Info("no restaurants found, nothing to fetch")
		return report, nil
	}

	if err := sc.FetchPaginatedListings(ctx, totalCount, report); err != nil {
		return report, err
	}
	return report, nil
}

// GetInitialCount bootstraps session cookies with a warm-up page visit, then
// asks the count endpoint for the total listing count. A structurally invalid
// count response is fatal for the whole crawl.
func (sc *SearchCrawler) GetInitialCount(ctx context.Context) (int, error) {
	sc.logger.Info("fetching session cookies and initial count")

	// One rate-limiter slot covers both the warm-up visit and the count call;
	// they form a single logical bootstrap.
	if err := sc.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	if _, err := sc.get(ctx, warmupPath, ""); err != nil {
		return 0, fmt.Errorf("warm-up request: %w", err)
	}

	body, err := sc.get(ctx, countPath, sc.cfg.BaseURL+refererPath)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	if err := sc.saveResponse(countFilename, body); err != nil {
		return 0, err
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse count response: %w", err)
	}
	if resp.PaginationResult == nil {
		return 0, ErrInvalidResponse{Field: "paginationResult"}
	}
	if resp.PaginationResult.TotalReturnCount == nil {
		return 0, ErrInvalidResponse{Field: "totalReturnCount"}
	}

	totalCount := *resp.PaginationResult.TotalReturnCount
	sc.logger.Info("total restaurants found", "count", totalCount)
	return totalCount, nil
}

// FetchPaginatedListings pages through all batches. Isolated batch failures
// are logged and counted; MaxConsecutiveErrors failures in a row trip the
// circuit breaker and abort the crawl. An empty batch signals server-side
// exhaustion and stops cleanly.
func (sc *SearchCrawler) FetchPaginatedListings(ctx context.Context, totalCount int, report *SearchReport) error {
	totalBatches := (totalCount + sc.cfg.BatchSize - 1) / sc.cfg.BatchSize
	sc.logger.Info("fetching paginated listings",
		"batches", totalBatches,
		"batch_size", sc.cfg.BatchSize,
	)

	consecutive := 0
	for batch := 0; batch < totalBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		startAt := batch * sc.cfg.BatchSize
		filename := fmt.Sprintf("response_%03d.json", batch+1)

		resultCount, err := sc.fetchBatch(ctx, startAt, filename, batch+1, totalBatches)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sc.logger.Error("batch fetch failed",
				"batch", batch+1,
				"total", totalBatches,
				"error", err,
			)
			report.Errors++
			sc.metrics.IncError(searchStage, errorCategory(err))

			consecutive++
			if consecutive >= sc.cfg.MaxConsecutiveErrors {
				return ErrTooManyFailures{Consecutive: consecutive}
			}
			continue
		}
		consecutive = 0

		if resultCount == 0 {
			sc.logger.Info("no more results, stopping", "batch", batch+1)
			break
		}
		report.BatchesFetched++
		sc.metrics.IncItem(searchStage, "saved")
	}

	return nil
}

func (sc *SearchCrawler) fetchBatch(ctx context.Context, startAt int, filename string, batch, totalBatches int) (int, error) {
	if err := sc.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	sc.logger.Info("fetching batch",
		"batch", batch,
		"total", totalBatches,
		"start_at", startAt,
	)

	body, err := sc.get(ctx, listingPath(startAt, sc.cfg.BatchSize), sc.cfg.BaseURL+refererPath)
	if err != nil {
		return 0, err
	}

	// The raw batch is persisted before shape validation so a malformed
	// response is still on disk for diagnosis.
	if err := sc.saveResponse(filename, body); err != nil {
		return 0, err
	}

	var resp models.SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse batch response: %w", err)
	}
	if resp.PaginationResult == nil {
		return 0, ErrInvalidResponse{Field: "paginationResult"}
	}
	if resp.PaginationResult.Results == nil {
		return 0, ErrInvalidResponse{Field: "results"}
	}

	return len(resp.PaginationResult.Results), nil
}

func (sc *SearchCrawler) get(ctx context.Context, path, referer string) ([]byte, error) {
	req := sc.client.R().SetContext(ctx)
	if referer != "" {
		req.SetHeader("referer", referer)
	}

	start := time.Now()
	res, err := req.Get(path)
	sc.metrics.IncRequest(searchStage)
	sc.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, ErrHTTPStatus{StatusCode: res.StatusCode()}
	}
	return res.Body(), nil
}

func (sc *SearchCrawler) saveResponse(filename string, body []byte) error {
	path := filepath.Join(sc.cfg.SearchesDir(), filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", filename, err)
	}
	sc.logger.Info("saved", "file", filename)
	return nil
}
