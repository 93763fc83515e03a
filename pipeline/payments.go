package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/models"
)

// PaymentExtractor builds the global payment-method reference table by
// scanning every extracted state file. Payment definitions are duplicated on
// every page, so the first occurrence of each paymentId wins and later
// definitions are discarded even when they differ.
type PaymentExtractor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// PaymentReport summarizes one aggregation run.
type PaymentReport struct {
	FilesProcessed int
	Errors         int
	UniquePayments int
}

func NewPaymentExtractor(cfg *config.Config) *PaymentExtractor {
	return &PaymentExtractor{
		cfg:    cfg,
		logger: slog.Default().With("component", "payment_extractor"),
	}
}

// Run scans all state files and writes the deduplicated table sorted by
// paymentId. Per-file parse errors are counted and skipped.
func (pe *PaymentExtractor) Run(ctx context.Context) (*PaymentReport, error) {
	files, err := listFiles(pe.cfg.StatesDir(), ".json")
	if err != nil {
		return nil, err
	}

	report := &PaymentReport{}
	pe.logger.Info("found state files to process", "count", len(files))

	paymentsMap := make(map[int]models.Payment)

	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := pe.collectFile(filename, paymentsMap); err != nil {
			pe.logger.Error("processing failed", "file", filename, "error", err)
			report.Errors++
			continue
		}

		report.FilesProcessed++
		if report.FilesProcessed%100 == 0 {
			pe.logger.Info("progress", "processed", report.FilesProcessed, "total", len(files))
		}
	}

	unique := make([]models.Payment, 0, len(paymentsMap))
	for _, payment := range paymentsMap {
		unique = append(unique, payment)
	}
	sort.Slice(unique, func(i, j int) bool {
		return *unique[i].PaymentID < *unique[j].PaymentID
	})

	if err := writeJSONFile(pe.cfg.PaymentsFile(), unique); err != nil {
		return report, err
	}

	report.UniquePayments = len(unique)
	return report, nil
}

func (pe *PaymentExtractor) collectFile(filename string, paymentsMap map[int]models.Payment) error {
	content, err := os.ReadFile(filepath.Join(pe.cfg.StatesDir(), filename))
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}

	var state models.StateFile
	if err := json.Unmarshal(content, &state); err != nil {
		return fmt.Errorf("parse state: %w", err)
	}

	data := state.DetailData()
	if data == nil {
		return nil
	}

	for _, payment := range data.Payments {
		if payment.PaymentID == nil {
			continue
		}
		if _, seen := paymentsMap[*payment.PaymentID]; seen {
			continue
		}
		paymentsMap[*payment.PaymentID] = payment
	}
	return nil
}
