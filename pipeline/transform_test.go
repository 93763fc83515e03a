package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Foahh/openrice-crawler/config"
	"github.com/Foahh/openrice-crawler/models"
)

func writeSearch(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.MkdirAll(cfg.SearchesDir(), 0o755); err != nil {
		t.Fatalf("mkdir searches: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.SearchesDir(), name), []byte(content), 0o644); err != nil {
		t.Fatalf("write search %s: %v", name, err)
	}
}

func writePaymentTable(t *testing.T, cfg *config.Config, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(cfg.PaymentsFile()), 0o755); err != nil {
		t.Fatalf("mkdir metadata: %v", err)
	}
	if err := os.WriteFile(cfg.PaymentsFile(), []byte(content), 0o644); err != nil {
		t.Fatalf("write payment table: %v", err)
	}
}

const alphaPoi = `{
	"poiId": 1,
	"latestCallName": "alpha-cafe",
	"name": "Alpha Cafe",
	"info": "Cozy neighbourhood cafe.",
	"address": "1 Main Street, Central",
	"mapLatitude": 22.281,
	"mapLongitude": 114.158,
	"categories": [{"categoryId": 10, "categoryTypeId": 1, "name": "Cafe"}, {"categoryId": 11, "categoryTypeId": 1, "name": ""}],
	"doorPhoto": {"url": "http://img.test/door.jpg"},
	"rmsPhotos": [{"url": "http://img.test/rms1.jpg"}],
	"photos": [{"url": "http://img.test/p1.jpg"}, {"url": ""}],
	"paymentIds": [1, 2, 9],
	"phones": ["+852 1234 5678", "+852 8765 4321"],
	"priceRangeId": 2,
	"poiHours": [
		{"period1Start": "09:00", "period1End": "15:00", "period2Start": "18:00", "period2End": "22:00", "dayOfWeek": 2, "is24hr": false, "isClose": false}
	]
}`

func TestTransformerRun(t *testing.T) {
	cfg := testConfig(t)

	writePaymentTable(t, cfg, `[
		{"paymentId": 1, "isCreditCard": 1, "name": "Visa Card", "remark": ""},
		{"paymentId": 2, "isCreditCard": 0, "name": "OpenRice Pay", "remark": ""},
		{"paymentId": 3, "isCreditCard": 0, "name": "Cash", "remark": ""}
	]`)

	// Row two is missing mapLatitude and must be dropped.
	writeSearch(t, cfg, "response_001.json", `{"paginationResult":{"results":[`+alphaPoi+`,
		{"poiId": 7, "latestCallName": "half-row", "name": "Half Row", "mapLongitude": 114.1}
	]}}`)
	// The alpha row appears again and must count as a duplicate.
	writeSearch(t, cfg, "response_002.json", `{"paginationResult":{"results":[`+alphaPoi+`,
		{"poiId": 2, "latestCallName": "beta-diner", "name": "Beta Diner", "mapLatitude": 22.3, "mapLongitude": 114.2}
	]}}`)

	writeState(t, cfg, "r-alpha-cafe-r1.json", stateJSON(
		`{"poiId":1,"conditions":[`+
			`{"conditionId":1,"name":"Wi-Fi","isThisPoiEnabled":true},`+
			`{"conditionId":2,"name":"Online Reservation","isThisPoiEnabled":true},`+
			`{"conditionId":3,"name":"Delivery","isThisPoiEnabled":false}]}`))
	// No embedded poiId; the id must be recovered from the filename.
	writeState(t, cfg, "r-beta-diner-r2.json", stateJSON(
		`{"conditions":[{"conditionId":4,"name":"Takeaway","isThisPoiEnabled":true}]}`))

	report, err := NewTransformer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.FilesProcessed != 2 || report.Errors != 0 {
		t.Fatalf("report = %+v, want 2 files and no errors", report)
	}
	if report.UniquePois != 2 {
		t.Fatalf("unique pois = %d, want 2", report.UniquePois)
	}
	if report.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", report.Duplicates)
	}

	content, err := os.ReadFile(cfg.DatasetFile())
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	var restaurants []models.Restaurant
	if err := json.Unmarshal(content, &restaurants); err != nil {
		t.Fatalf("parse dataset: %v", err)
	}
	if len(restaurants) != 2 {
		t.Fatalf("dataset has %d records, want 2", len(restaurants))
	}

	alpha := restaurants[0]
	if alpha.ID != "alpha-cafe-1" {
		t.Fatalf("id = %q, want alpha-cafe-1", alpha.ID)
	}
	if alpha.Name != "Alpha Cafe" || alpha.Description != "Cozy neighbourhood cafe." {
		t.Fatalf("name/description = %q/%q", alpha.Name, alpha.Description)
	}
	if alpha.Latitude != 22.281 || alpha.Longitude != 114.158 {
		t.Fatalf("coordinates = %v/%v", alpha.Latitude, alpha.Longitude)
	}
	wantImages := []string{"http://img.test/rms1.jpg", "http://img.test/p1.jpg"}
	if !reflect.DeepEqual(alpha.Images, wantImages) {
		t.Fatalf("images = %v, want %v", alpha.Images, wantImages)
	}
	if alpha.DoorImage == nil || *alpha.DoorImage != "http://img.test/door.jpg" {
		t.Fatalf("door image = %v, want door.jpg", alpha.DoorImage)
	}
	if !reflect.DeepEqual(alpha.Categories, []string{"Cafe"}) {
		t.Fatalf("categories = %v, want [Cafe]", alpha.Categories)
	}
	// Enabled conditions only, with reservation metadata filtered out.
	if !reflect.DeepEqual(alpha.Services, []string{"Wi-Fi"}) {
		t.Fatalf("services = %v, want [Wi-Fi]", alpha.Services)
	}
	// Id 2 is the platform brand, id 9 is unknown; both disappear.
	if !reflect.DeepEqual(alpha.PaymentMethods, []string{"Visa Card"}) {
		t.Fatalf("payment methods = %v, want [Visa Card]", alpha.PaymentMethods)
	}
	if alpha.ContactPhone == nil || *alpha.ContactPhone != "+852 1234 5678" {
		t.Fatalf("contact phone = %v, want first phone", alpha.ContactPhone)
	}
	if alpha.AddressString != "1 Main Street, Central" {
		t.Fatalf("address = %q", alpha.AddressString)
	}
	if alpha.PriceLevel == nil || *alpha.PriceLevel != 2 {
		t.Fatalf("price level = %v, want 2", alpha.PriceLevel)
	}
	wantHours := []models.BusinessHours{
		{
			DayOfWeek: 2,
			Periods: []models.Period{
				{Start: "09:00", End: "15:00"},
				{Start: "18:00", End: "22:00"},
			},
		},
	}
	if !reflect.DeepEqual(alpha.BusinessHours, wantHours) {
		t.Fatalf("business hours = %+v, want %+v", alpha.BusinessHours, wantHours)
	}

	beta := restaurants[1]
	if beta.ID != "beta-diner-2" {
		t.Fatalf("second id = %q, want beta-diner-2", beta.ID)
	}
	if !reflect.DeepEqual(beta.Services, []string{"Takeaway"}) {
		t.Fatalf("beta services = %v, want filename-recovered [Takeaway]", beta.Services)
	}
	// Minimal rows still marshal empty arrays, never null.
	if beta.Images == nil || beta.Categories == nil || beta.PaymentMethods == nil || beta.BusinessHours == nil {
		t.Fatalf("beta has nil slices: %+v", beta)
	}
	if beta.DoorImage != nil || beta.ContactPhone != nil || beta.PriceLevel != nil {
		t.Fatalf("beta optional fields should be absent: %+v", beta)
	}
}

func TestTransformerMissingPaymentTableIsFatal(t *testing.T) {
	cfg := testConfig(t)
	writeSearch(t, cfg, "response_001.json", `{"paginationResult":{"results":[]}}`)

	if _, err := NewTransformer(cfg).Run(context.Background()); err == nil {
		t.Fatal("expected error for missing payment table")
	}
}

func TestTransformerMissingStatesDirIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	writePaymentTable(t, cfg, `[]`)
	writeSearch(t, cfg, "response_001.json", `{"paginationResult":{"results":[`+alphaPoi+`]}}`)

	report, err := NewTransformer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.UniquePois != 1 {
		t.Fatalf("unique pois = %d, want 1", report.UniquePois)
	}

	content, err := os.ReadFile(cfg.DatasetFile())
	if err != nil {
		t.Fatalf("read dataset: %v", err)
	}
	var restaurants []models.Restaurant
	if err := json.Unmarshal(content, &restaurants); err != nil {
		t.Fatalf("parse dataset: %v", err)
	}
	if !reflect.DeepEqual(restaurants[0].Services, []string{}) {
		t.Fatalf("services = %v, want empty without state data", restaurants[0].Services)
	}
}

func TestTransformerCorruptSearchFileIsCounted(t *testing.T) {
	cfg := testConfig(t)
	writePaymentTable(t, cfg, `[]`)
	writeSearch(t, cfg, "response_001.json", "not json")
	writeSearch(t, cfg, "response_002.json", `{"paginationResult":{"results":[`+alphaPoi+`]}}`)

	report, err := NewTransformer(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Errors != 1 || report.FilesProcessed != 1 || report.UniquePois != 1 {
		t.Fatalf("report = %+v, want 1 error, 1 processed, 1 unique", report)
	}
}
