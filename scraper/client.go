// Package scraper implements the two network-facing stages: the paginated
// search crawl and the per-restaurant detail-page crawl.
package scraper

import (
	"fmt"
	"net/http/cookiejar"

	"github.com/go-resty/resty/v2"

	"github.com/Foahh/openrice-crawler/config"
)

// NewAPIClient builds the client for the search/count JSON API. The cookie
// jar matters: the API rejects requests without the session cookies acquired
// by the warm-up page visit.
func NewAPIClient(cfg *config.Config) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(cfg.APITimeout)
	client.SetHeaders(map[string]string{
		"accept":             "application/json, text/plain, */*",
		"accept-language":    "en,zh-CN;q=0.9,zh;q=0.8,en-US;q=0.7",
		"sec-ch-ua":          `"Chromium";v="142", "Microsoft Edge";v="142", "Not_A Brand";v="99"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-origin",
		"user-agent":         cfg.UserAgent,
	})
	return client, nil
}

// NewPageClient builds the client for server-rendered detail pages, with the
// header set a browser sends for a top-level document navigation.
func NewPageClient(cfg *config.Config) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetCookieJar(jar)
	client.SetTimeout(cfg.PageTimeout)
	client.SetHeaders(map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"accept-language":           "en,zh-CN;q=0.9,zh;q=0.8,en-US;q=0.7",
		"cache-control":             "max-age=0",
		"priority":                  "u=0, i",
		"sec-ch-ua":                 `"Chromium";v="142", "Microsoft Edge";v="142", "Not_A Brand";v="99"`,
		"sec-ch-ua-mobile":          "?0",
		"sec-ch-ua-platform":        `"Windows"`,
		"sec-fetch-dest":            "document",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "same-origin",
		"sec-fetch-user":            "?1",
		"upgrade-insecure-requests": "1",
		"user-agent":                cfg.UserAgent,
	})
	return client, nil
}
