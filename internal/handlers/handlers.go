package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mkobay/ddp-pricer/internal/database"
	"github.com/mkobay/ddp-pricer/internal/pricing"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db     *database.DB
	engine *pricing.Engine
	cfg    pricing.SolverConfig
}

// NewHandler creates a new handler
func NewHandler(db *database.DB, engine *pricing.Engine, cfg pricing.SolverConfig) *Handler {
	return &Handler{db: db, engine: engine, cfg: cfg}
}

// JSON response helper
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

// Error response helper
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// HealthCheck returns API health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// priceRequest is the POST /api/price body: a pricing request plus the
// seller's store tier, which selects the fee discount.
type priceRequest struct {
	pricing.Request
	StoreTier string `json:"storeTier,omitempty"`
}

// PriceQuote computes a landed-cost price for one item
func (h *Handler) PriceQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	fees, err := h.feeModel(r, req.StoreTier)
	if err != nil {
		log.Printf("PriceQuote fee model error: %v", err)
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := h.engine.Price(r.Context(), req.Request, fees)
	if err != nil {
		h.priceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

// batchRequest is the POST /api/price/batch body.
type batchRequest struct {
	Items []struct {
		ID string `json:"id"`
		priceRequest
	} `json:"items"`
}

// PriceBatch computes prices for many items, isolating per-item errors
func (h *Handler) PriceBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		errorResponse(w, http.StatusBadRequest, "no items")
		return
	}

	items := make([]pricing.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		fees, err := h.feeModel(r, item.StoreTier)
		if err != nil {
			log.Printf("PriceBatch fee model error: %v", err)
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		items = append(items, pricing.BatchItem{
			ID:      item.ID,
			Request: item.Request,
			Fees:    fees,
		})
	}

	results := h.engine.PriceBatch(r.Context(), items)

	succeeded := 0
	for _, res := range results {
		if res.Err == "" {
			succeeded++
		}
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// GetTariff resolves the effective duty rate for a classification code
// and origin country
func (h *Handler) GetTariff(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	origin := r.URL.Query().Get("origin")
	if code == "" || origin == "" {
		errorResponse(w, http.StatusBadRequest, "code and origin query parameters required")
		return
	}

	duty, err := pricing.ResolveDutyRate(r.Context(), h.db, code, origin)
	if err != nil {
		if errors.Is(err, pricing.ErrClassificationNotFound) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("GetTariff error: %v", err)
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"code":           duty.Code,
		"matchedCode":    duty.MatchedCode,
		"approximate":    duty.Approximate,
		"baseRate":       duty.Base,
		"additionalRate": duty.Additional,
		"effectiveRate":  duty.Effective(h.cfg.SalesTaxAllowance),
	})
}

// GetTiers lists shipping tiers for a weight
func (h *Handler) GetTiers(w http.ResponseWriter, r *http.Request) {
	weightStr := r.URL.Query().Get("weight")
	weight, err := strconv.ParseFloat(weightStr, 64)
	if err != nil || weight <= 0 {
		errorResponse(w, http.StatusBadRequest, "weight query parameter required (kg)")
		return
	}

	tiers, err := h.db.TiersAbove(r.Context(), decimal.NewFromFloat(weight), decimal.Zero, 50)
	if err != nil {
		log.Printf("GetTiers error: %v", err)
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"tiers": tiers,
		"total": len(tiers),
	})
}

// feeModel builds the request's fee schedule: defaults for the store
// tier, with the discount overridden from the database when present.
func (h *Handler) feeModel(r *http.Request, storeTier string) (pricing.FeeModel, error) {
	tier := pricing.StoreTier(storeTier)
	if storeTier == "" {
		tier = pricing.StoreNone
	}
	fees := pricing.DefaultFeeModel(tier)

	discount, err := h.db.StoreFeeDiscount(r.Context(), string(tier))
	if err != nil {
		return pricing.FeeModel{}, err
	}
	if !discount.IsZero() {
		fees.StoreDiscount = discount
	}
	return fees, nil
}

// priceError maps pricing errors onto HTTP statuses
func (h *Handler) priceError(w http.ResponseWriter, err error) {
	var marginErr *pricing.MarginUnachievableError
	switch {
	case errors.As(err, &marginErr):
		jsonResponse(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":               marginErr.Error(),
			"maxAchievableMargin": marginErr.MaxAchievableMargin,
			"effectiveDutyRate":   marginErr.EffectiveDutyRate,
			"variableRateSum":     marginErr.VariableRateSum,
		})
	case errors.Is(err, pricing.ErrClassificationNotFound),
		errors.Is(err, pricing.ErrNoTierFound):
		errorResponse(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("Price error: %v", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
	}
}
