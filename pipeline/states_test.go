package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Foahh/openrice-crawler/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func writePage(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.MkdirAll(cfg.PagesDir(), 0o755); err != nil {
		t.Fatalf("mkdir pages: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.PagesDir(), name), []byte(content), 0o644); err != nil {
		t.Fatalf("write page %s: %v", name, err)
	}
}

func TestStateExtractorRun(t *testing.T) {
	cfg := testConfig(t)
	writePage(t, cfg, "r-alpha-cafe-r1.html",
		`<html><script>window.__INITIAL_STATE__ = {"a":"}","b":{"c":1}};</script></html>`)
	writePage(t, cfg, "r-broken-r2.html",
		`<html><body>no embedded state here</body></html>`)

	report, err := NewStateExtractor(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.Total != 2 || report.Extracted != 1 || report.Errors != 1 {
		t.Fatalf("report = %+v, want 2 total, 1 extracted, 1 error", report)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %+v, want exactly one", report.Failures)
	}
	if report.Failures[0].Filename != "r-broken-r2.html" {
		t.Fatalf("failure filename = %q, want r-broken-r2.html", report.Failures[0].Filename)
	}
	if !strings.Contains(report.Failures[0].Reason, "window.__INITIAL_STATE__") {
		t.Fatalf("failure reason = %q, want marker name in it", report.Failures[0].Reason)
	}

	content, err := os.ReadFile(filepath.Join(cfg.StatesDir(), "r-alpha-cafe-r1.json"))
	if err != nil {
		t.Fatalf("read extracted state: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("parse extracted state: %v", err)
	}
	want := map[string]any{"a": "}", "b": map[string]any{"c": float64(1)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("extracted state = %v, want %v", got, want)
	}
	if !strings.HasPrefix(string(content), "{\n  ") {
		t.Fatalf("extracted state not re-indented: %q", content[:10])
	}
}

func TestStateExtractorEmptyPagesDir(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.PagesDir(), 0o755); err != nil {
		t.Fatalf("mkdir pages: %v", err)
	}

	report, err := NewStateExtractor(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Total != 0 || report.Extracted != 0 || report.Errors != 0 {
		t.Fatalf("report = %+v, want all zeroes", report)
	}
}
