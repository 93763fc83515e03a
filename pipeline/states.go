package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/parser"
)

// StateExtractor pulls the embedded client-state JSON out of every raw HTML
// page and persists it as one JSON file per page.
type StateExtractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// StateFailure records why a single file could not be extracted, so operators
// can tell "page genuinely lacks state" apart from a scanner bug.
type StateFailure struct {
	Filename string
	Reason   string
}

// StateReport summarizes one extraction run.
type StateReport struct {
	Total     int
	Extracted int
	Errors    int
	Failures  []StateFailure
}

func NewStateExtractor(cfg *config.Config) *StateExtractor {
	return &StateExtractor{
		cfg:    cfg,
		logger: slog.Default().With("component", "state_extractor"),
	}
}

// Run processes every HTML file in the pages directory. Each failure is fatal
// only for its own file.
func (se *StateExtractor) Run(ctx context.Context) (*StateReport, error) {
	if err := os.MkdirAll(se.cfg.StatesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create states directory: %w", err)
	}

	files, err := listFiles(se.cfg.PagesDir(), ".html")
	if err != nil {
		return nil, err
	}

	report := &StateReport{Total: len(files)}
	se.logger.Info("found HTML files to process", "count", len(files))

	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		se.logger.Info("processing", "file", filename)
		if err := se.extractFile(filename); err != nil {
			se.logger.Error("extraction failed", "file", filename, "error", err)
			report.Errors++
			report.Failures = append(report.Failures, StateFailure{
				Filename: filename,
				Reason:   err.Error(),
			})
			continue
		}
		report.Extracted++
	}

	return report, nil
}

func (se *StateExtractor) extractFile(filename string) error {
	html, err := os.ReadFile(filepath.Join(se.cfg.PagesDir(), filename))
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	raw, err := parser.ExtractInitialState(string(html))
	if err != nil {
		return err
	}

	// Re-emit through an intermediate value so the output is consistently
	// indented regardless of how the page serialized it.
	var state any
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("parse extracted state: %w", err)
	}

	outName := strings.TrimSuffix(filename, ".html") + ".json"
	return writeJSONFile(filepath.Join(se.cfg.StatesDir(), outName), state)
}
