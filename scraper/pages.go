package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/models"
	"github.com/Foahh/openrice-crawler/ratelimit"
)

const pagesStage = "pages"

// PageCrawler fetches each restaurant's detail page as raw HTML, skipping
// files that already exist so interrupted runs resume for free.
type PageCrawler struct {
	cfg     *config.Config
	client  *resty.Client
	limiter *ratelimit.Limiter
	metrics *Metrics
	logger  *slog.Logger
}

// PageReport summarizes one page crawl run.
type PageReport struct {
	Total   int
	Fetched int
	Skipped int
	Errors  int
}

// PageTarget identifies one restaurant detail page to fetch.
type PageTarget struct {
	PoiID    int
	CallName string
}

func NewPageCrawler(cfg *config.Config, client *resty.Client, limiter *ratelimit.Limiter, metrics *Metrics) *PageCrawler {
	return &PageCrawler{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		metrics: metrics,
		logger:  slog.Default().With("component", "page_crawler"),
	}
}

// Run fetches every restaurant recovered from the search output. A single
// page failure never stops the loop; detail pages do not fail in the
// correlated bursts the search API does, so there is no breaker here.
func (pc *PageCrawler) Run(ctx context.Context) (*PageReport, error) {
	if err := os.MkdirAll(pc.cfg.PagesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create pages directory: %w", err)
	}

	targets, err := loadSearchTargets(pc.cfg.SearchesDir())
	if err != nil {
		return nil, err
	}

	report := &PageReport{Total: len(targets)}
	pc.logger.Info("loaded restaurant targets", "count", len(targets))

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		segment := fmt.Sprintf("r-%s-r%d", target.CallName, target.PoiID)
		filename := segment + ".html"
		path := filepath.Join(pc.cfg.PagesDir(), filename)
		url := pc.cfg.BaseURL + "/en/hongkong/" + segment

		pc.logger.Info("page", "index", i+1, "total", len(targets), "url", url)

		if _, err := os.Stat(path); err == nil {
			pc.logger.Info("skipped, already exists", "file", filename)
			report.Skipped++
			pc.metrics.IncItem(pagesStage, "skipped")
			continue
		}

		if err := pc.limiter.Wait(ctx); err != nil {
			return report, err
		}

		body, err := pc.get(ctx, "/en/hongkong/"+segment)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			pc.logger.Error("fetch page failed", "url", url, "error", err)
			report.Errors++
			pc.metrics.IncError(pagesStage, errorCategory(err))
			continue
		}

		// Body is written verbatim; the state extractor works on the raw
		// document.
		if err := os.WriteFile(path, body, 0o644); err != nil {
			pc.logger.Error("save page failed", "file", filename, "error", err)
			report.Errors++
			pc.metrics.IncError(pagesStage, "write")
			continue
		}

		pc.logger.Info("saved", "file", filename)
		report.Fetched++
		pc.metrics.IncItem(pagesStage, "fetched")
	}

	return report, nil
}

func (pc *PageCrawler) get(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	res, err := pc.client.R().SetContext(ctx).Get(path)
	pc.metrics.IncRequest(pagesStage)
	pc.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, ErrHTTPStatus{StatusCode: res.StatusCode()}
	}
	return res.Body(), nil
}

// loadSearchTargets scans every non-count search-response file and collects
// the unique (poiId, callName) pairs found in listing rows. Rows missing
// either field are skipped.
func loadSearchTargets(searchesDir string) ([]PageTarget, error) {
	entries, err := os.ReadDir(searchesDir)
	if err != nil {
		return nil, fmt.Errorf("read searches directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "response_") && strings.HasSuffix(name, ".json") && !strings.Contains(name, "count") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var targets []PageTarget
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(searchesDir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		var resp models.SearchResponse
		if err := json.Unmarshal(content, &resp); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if resp.PaginationResult == nil {
			continue
		}
		for _, result := range resp.PaginationResult.Results {
			if result.PoiID == 0 || result.LatestCallName == "" {
				continue
			}
			targets = append(targets, PageTarget{
				PoiID:    result.PoiID,
				CallName: result.LatestCallName,
			})
		}
	}

	return targets, nil
}
