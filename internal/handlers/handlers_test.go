package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkobay/ddp-pricer/internal/database"
	"github.com/mkobay/ddp-pricer/internal/pricing"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO tariff_rates (code, base_duty_rate, description) VALUES
			('950300', '0.05', 'Toys'),
			('999999', '0.95', 'Punitive rate fixture')
	`); err != nil {
		t.Fatalf("insert tariffs: %v", err)
	}

	cfg := pricing.DefaultSolverConfig()
	engine := pricing.NewEngine(db, db, cfg)
	return NewHandler(db, engine, cfg)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return body
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestPriceQuote(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"cost": 50, "weightKg": 1, "targetMargin": 0.15,
		"classification": "950300", "originCountry": "GB",
		"exchangeRate": 1, "storeTier": "premium"
	}`
	rec := httptest.NewRecorder()
	h.PriceQuote(rec, httptest.NewRequest(http.MethodPost, "/api/price", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["feasible"] != true {
		t.Errorf("feasible = %v, reason %v", body["feasible"], body["reason"])
	}
	for _, key := range []string{"productPrice", "shippingCharge", "totalRevenue", "tierName", "realizedMargin"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
}

func TestPriceQuoteMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.PriceQuote(rec, httptest.NewRequest(http.MethodGet, "/api/price", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestPriceQuoteBadJSON(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.PriceQuote(rec, httptest.NewRequest(http.MethodPost, "/api/price", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPriceQuoteUnknownClassification(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"cost": 50, "weightKg": 1, "targetMargin": 0.15,
		"classification": "0000.00.0000", "originCountry": "GB", "exchangeRate": 1
	}`
	rec := httptest.NewRecorder()
	h.PriceQuote(rec, httptest.NewRequest(http.MethodPost, "/api/price", strings.NewReader(payload)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestPriceQuoteMarginUnachievable(t *testing.T) {
	h := newTestHandler(t)

	payload := `{
		"cost": 50, "weightKg": 1, "targetMargin": 0.15,
		"classification": "999999", "originCountry": "GB", "exchangeRate": 1
	}`
	rec := httptest.NewRecorder()
	h.PriceQuote(rec, httptest.NewRequest(http.MethodPost, "/api/price", strings.NewReader(payload)))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	for _, key := range []string{"error", "maxAchievableMargin", "effectiveDutyRate", "variableRateSum"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
}

func TestPriceBatch(t *testing.T) {
	h := newTestHandler(t)

	payload := `{"items": [
		{"id": "good", "cost": 50, "weightKg": 1, "targetMargin": 0.15,
		 "classification": "950300", "originCountry": "GB", "exchangeRate": 1},
		{"id": "bad", "cost": 50, "weightKg": 1, "targetMargin": 0.15,
		 "classification": "0000.00.0000", "originCountry": "GB", "exchangeRate": 1}
	]}`
	rec := httptest.NewRecorder()
	h.PriceBatch(rec, httptest.NewRequest(http.MethodPost, "/api/price/batch", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total"] != float64(2) || body["succeeded"] != float64(1) || body["failed"] != float64(1) {
		t.Errorf("counts = total %v succeeded %v failed %v", body["total"], body["succeeded"], body["failed"])
	}
}

func TestPriceBatchEmpty(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.PriceBatch(rec, httptest.NewRequest(http.MethodPost, "/api/price/batch", strings.NewReader(`{"items":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTariff(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetTariff(rec, httptest.NewRequest(http.MethodGet, "/api/tariff?code=9503.00.0073&origin=CN", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["approximate"] != true {
		t.Errorf("approximate = %v, want true for a prefix match", body["approximate"])
	}
	if body["matchedCode"] != "950300" {
		t.Errorf("matchedCode = %v", body["matchedCode"])
	}
}

func TestGetTariffMissingParams(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetTariff(rec, httptest.NewRequest(http.MethodGet, "/api/tariff?code=950300", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetTariffNotFound(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetTariff(rec, httptest.NewRequest(http.MethodGet, "/api/tariff?code=0101.21.0010&origin=GB", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetTiers(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetTiers(rec, httptest.NewRequest(http.MethodGet, "/api/tiers?weight=1.2", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total"] != float64(4) {
		t.Errorf("total = %v, want the four 1.0-1.5kg bands", body["total"])
	}
}

func TestGetTiersMissingWeight(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.GetTiers(rec, httptest.NewRequest(http.MethodGet, "/api/tiers", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
