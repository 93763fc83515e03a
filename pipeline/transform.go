package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/models"
	"github.com/Foahh/openrice-crawler/parser"
)

// Reservation/booking/rewards conditions are platform metadata, not
// guest-facing amenities.
var excludedConditions = map[string]struct{}{
	"Online Reservation":       {},
	"Exclusive Online Booking": {},
	"Reward Dining Points":     {},
}

// The platform's own payment brand is not a real-world acceptance method.
const excludedPaymentMethod = "OpenRice Pay"

// Transformer joins search-result rows, per-page service data, and the
// payment table into the final normalized, deduplicated restaurant dataset.
type Transformer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// TransformReport summarizes one transform run.
type TransformReport struct {
	FilesProcessed int
	Errors         int
	UniquePois     int
	Duplicates     int
}

func NewTransformer(cfg *config.Config) *Transformer {
	return &Transformer{
		cfg:    cfg,
		logger: slog.Default().With("component", "transformer"),
	}
}

// Run produces the final dataset. A missing or unreadable payment table is
// fatal; a missing states directory only costs the services data.
func (t *Transformer) Run(ctx context.Context) (*TransformReport, error) {
	paymentMap, err := t.loadPaymentNames()
	if err != nil {
		return nil, err
	}
	t.logger.Info("loaded payment methods", "count", len(paymentMap))

	servicesMap := t.loadServices()

	files, err := listSearchFiles(t.cfg.SearchesDir())
	if err != nil {
		return nil, err
	}

	report := &TransformReport{}
	t.logger.Info("found response files to process", "count", len(files))

	allPois := make([]models.Restaurant, 0)
	seenIDs := make(map[string]struct{})

	for _, filename := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		content, err := os.ReadFile(filepath.Join(t.cfg.SearchesDir(), filename))
		if err != nil {
			t.logger.Error("processing failed", "file", filename, "error", err)
			report.Errors++
			continue
		}

		var resp models.SearchResponse
		if err := json.Unmarshal(content, &resp); err != nil {
			t.logger.Error("processing failed", "file", filename, "error", err)
			report.Errors++
			continue
		}
		if resp.PaginationResult == nil || resp.PaginationResult.Results == nil {
			t.logger.Warn("no results found", "file", filename)
			continue
		}

		for _, poi := range resp.PaginationResult.Results {
			// Rows missing any required field are dropped outright; partial
			// records are not worth recovering.
			if poi.PoiID == 0 || poi.LatestCallName == "" || poi.Name == "" ||
				poi.MapLatitude == nil || poi.MapLongitude == nil {
				continue
			}

			id := fmt.Sprintf("%s-%d", poi.LatestCallName, poi.PoiID)
			if _, seen := seenIDs[id]; seen {
				report.Duplicates++
				continue
			}
			seenIDs[id] = struct{}{}

			allPois = append(allPois, transformPoi(id, poi, paymentMap, servicesMap))
		}

		report.FilesProcessed++
		t.logger.Info("processed",
			"file", filename,
			"rows", len(resp.PaginationResult.Results),
			"total_unique", len(allPois),
		)
	}

	if err := writeJSONFile(t.cfg.DatasetFile(), allPois); err != nil {
		return report, err
	}

	report.UniquePois = len(allPois)
	return report, nil
}

// transformPoi normalizes a single listing row into the output record shape.
func transformPoi(id string, poi models.PoiResult, paymentMap map[int]string, servicesMap map[int][]string) models.Restaurant {
	images := make([]string, 0, len(poi.RmsPhotos)+len(poi.Photos))
	for _, photo := range poi.RmsPhotos {
		if photo.URL != "" {
			images = append(images, photo.URL)
		}
	}
	for _, photo := range poi.Photos {
		if photo.URL != "" {
			images = append(images, photo.URL)
		}
	}

	var doorImage *string
	if poi.DoorPhoto != nil && poi.DoorPhoto.URL != "" {
		doorImage = &poi.DoorPhoto.URL
	}

	categories := make([]string, 0, len(poi.Categories))
	for _, category := range poi.Categories {
		if category.Name != "" {
			categories = append(categories, category.Name)
		}
	}

	paymentMethods := make([]string, 0, len(poi.PaymentIDs))
	for _, paymentID := range poi.PaymentIDs {
		name := paymentMap[paymentID]
		if name == "" || name == excludedPaymentMethod {
			continue
		}
		paymentMethods = append(paymentMethods, name)
	}

	services := servicesMap[poi.PoiID]
	if services == nil {
		services = make([]string, 0)
	}

	var contactPhone *string
	if len(poi.Phones) > 0 && poi.Phones[0] != "" {
		contactPhone = &poi.Phones[0]
	}

	return models.Restaurant{
		ID:             id,
		Name:           poi.Name,
		Description:    poi.Info,
		Latitude:       *poi.MapLatitude,
		Longitude:      *poi.MapLongitude,
		Images:         images,
		DoorImage:      doorImage,
		Categories:     categories,
		Services:       services,
		PaymentMethods: paymentMethods,
		ContactPhone:   contactPhone,
		AddressString:  poi.Address,
		PriceLevel:     poi.PriceRangeID,
		BusinessHours:  parser.NormalizeBusinessHours(poi.PoiHours),
	}
}

func (t *Transformer) loadPaymentNames() (map[int]string, error) {
	content, err := os.ReadFile(t.cfg.PaymentsFile())
	if err != nil {
		return nil, fmt.Errorf("read payment table: %w", err)
	}

	var payments []models.Payment
	if err := json.Unmarshal(content, &payments); err != nil {
		return nil, fmt.Errorf("parse payment table: %w", err)
	}

	paymentMap := make(map[int]string, len(payments))
	for _, payment := range payments {
		if payment.PaymentID == nil {
			continue
		}
		paymentMap[*payment.PaymentID] = payment.Name
	}
	return paymentMap, nil
}

// loadServices builds the POI id to enabled-service-names lookup from the
// state files. The id embedded in the state payload wins; the filename is a
// fallback for malformed payloads.
func (t *Transformer) loadServices() map[int][]string {
	servicesMap := make(map[int][]string)

	files, err := listFiles(t.cfg.StatesDir(), ".json")
	if err != nil {
		t.logger.Warn("could not load state files, continuing without services data", "error", err)
		return servicesMap
	}

	loaded := 0
	errorCount := 0
	for _, filename := range files {
		content, err := os.ReadFile(filepath.Join(t.cfg.StatesDir(), filename))
		if err != nil {
			errorCount++
			continue
		}

		var state models.StateFile
		if err := json.Unmarshal(content, &state); err != nil {
			errorCount++
			continue
		}

		data := state.DetailData()
		if data == nil {
			continue
		}

		poiID := 0
		if data.PoiID != nil {
			poiID = *data.PoiID
		} else if id, ok := parser.PoiIDFromFilename(filename); ok {
			poiID = id
		}
		if poiID == 0 {
			continue
		}

		services := make([]string, 0, len(data.Conditions))
		for _, condition := range data.Conditions {
			if !condition.IsThisPoiEnabled || condition.Name == "" {
				continue
			}
			if _, excluded := excludedConditions[condition.Name]; excluded {
				continue
			}
			services = append(services, condition.Name)
		}
		if len(services) > 0 {
			servicesMap[poiID] = services
			loaded++
		}
	}

	t.logger.Info("loaded services from state files", "pois", loaded, "files", len(files))
	if errorCount > 0 {
		t.logger.Warn("some state files had errors", "count", errorCount)
	}
	return servicesMap
}

// listSearchFiles returns the non-count search-response filenames in sorted
// order; filename order defines first-occurrence precedence for dedup.
func listSearchFiles(searchesDir string) ([]string, error) {
	entries, err := os.ReadDir(searchesDir)
	if err != nil {
		return nil, fmt.Errorf("read searches directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "response_") && strings.HasSuffix(name, ".json") && !strings.Contains(name, "count") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
