package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/jwaldner/optionsengine/internal/audit"
	"github.com/jwaldner/optionsengine/internal/logger"
	"github.com/jwaldner/optionsengine/internal/metrics"
	"github.com/jwaldner/optionsengine/internal/models"
	"github.com/jwaldner/optionsengine/internal/services"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// Error codes returned in ErrorResponse.Error
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeNumericalInstability = "NUMERICAL_INSTABILITY"
	CodeInternal             = "INTERNAL"
)

// RequestIDHeader is echoed back when a client supplies it
const RequestIDHeader = "X-Request-ID"

// PricingEngine is what the handler needs from the (timed) engine.
type PricingEngine interface {
	metrics.Pricer
	Stats() metrics.Stats
}

// PricingHandler handles pricing requests - DUMB HTTP layer only
type PricingHandler struct {
	engine      PricingEngine
	requests    *services.RequestService
	auditLogger audit.PricingAuditor
	summary     models.EngineSummary
	corsOrigin  string
}

// NewPricingHandler creates a new pricing handler. A nil auditor disables
// the audit trail.
func NewPricingHandler(engine PricingEngine, requests *services.RequestService, auditor audit.PricingAuditor, summary models.EngineSummary, corsOrigin string) *PricingHandler {
	if auditor == nil {
		auditor = audit.NopAuditor{}
	}
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &PricingHandler{
		engine:      engine,
		requests:    requests,
		auditLogger: auditor,
		summary:     summary,
		corsOrigin:  corsOrigin,
	}
}

// RegisterRoutes wires every endpoint onto r
func (h *PricingHandler) RegisterRoutes(r *mux.Router) {
	// Routes sit on r itself: a mux subrouter answers a method mismatch
	// with 404 instead of 405.
	r.HandleFunc("/api/price", h.PriceHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/price/lattice", h.LatticeHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/price/batch", h.BatchHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/compare", h.CompareHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/health", h.HealthHandler).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/stats", h.StatsHandler).Methods("GET", "OPTIONS")
}

// PriceHandler prices one contract; the model follows the exercise style
// unless the body names one.
func (h *PricingHandler) PriceHandler(w http.ResponseWriter, r *http.Request) {
	h.price(w, r, "Price", false)
}

// LatticeHandler prices one contract on the binomial lattice regardless of
// exercise style.
func (h *PricingHandler) LatticeHandler(w http.ResponseWriter, r *http.Request) {
	h.price(w, r, "PriceLattice", true)
}

func (h *PricingHandler) price(w http.ResponseWriter, r *http.Request, operation string, forceLattice bool) {
	if h.preflight(w, r, "POST, OPTIONS") {
		return
	}
	requestID := h.requestID(w, r)
	start := time.Now()

	req, err := h.requests.ParsePriceRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	in, model, err := h.requests.ToInputs(req)
	if err != nil {
		h.audit(requestID, operation, req.Symbol, nil, 0, nil, err)
		h.writeError(w, requestID, err)
		return
	}
	if forceLattice {
		model = pricer.Lattice
	}

	result, err := h.engine.PriceWith(in, model)
	h.audit(requestID, operation, req.Symbol, &in, model, result, err)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	logger.Info.Printf("🧮 %s [%s] %s %s S=%.2f K=%.2f -> %.4f (%s)", operation, requestID, in.Style(), in.Type(), in.Spot(), in.Strike(), result.Price, result.Model)
	h.writeJSON(w, http.StatusOK, models.PriceResponse{
		RequestID: requestID,
		Symbol:    req.Symbol,
		Result:    result,
		Duration:  sinceMillis(start),
	})
}

// CompareHandler prices the same contract with American and European
// exercise on the lattice and reports the early-exercise premium.
func (h *PricingHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if h.preflight(w, r, "POST, OPTIONS") {
		return
	}
	requestID := h.requestID(w, r)
	start := time.Now()

	req, err := h.requests.ParsePriceRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	in, _, err := h.requests.ToInputs(req)
	if err != nil {
		h.audit(requestID, "Compare", req.Symbol, nil, 0, nil, err)
		h.writeError(w, requestID, err)
		return
	}

	comparison, err := h.engine.Compare(in)
	h.audit(requestID, "Compare", req.Symbol, &in, pricer.Lattice, comparison, err)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	logger.Info.Printf("⚖️  Compare [%s] %s S=%.2f K=%.2f premium=%.4f", requestID, in.Type(), in.Spot(), in.Strike(), comparison.EarlyExercisePremium)
	h.writeJSON(w, http.StatusOK, models.CompareResponse{
		RequestID:  requestID,
		Symbol:     req.Symbol,
		Comparison: comparison,
		Duration:   sinceMillis(start),
	})
}

// BatchHandler prices every entry independently; one bad entry never fails
// the whole batch.
func (h *PricingHandler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	if h.preflight(w, r, "POST, OPTIONS") {
		return
	}
	requestID := h.requestID(w, r)
	start := time.Now()

	batch, err := h.requests.ParseBatchRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	results := make([]models.BatchResult, len(batch.Requests))
	inputs := make([]pricer.Inputs, len(batch.Requests))
	var (
		engineReqs []pricer.BatchRequest
		positions  []int
	)
	for i := range batch.Requests {
		results[i] = models.BatchResult{Index: i, Symbol: batch.Requests[i].Symbol}
		in, model, err := h.requests.ToInputs(&batch.Requests[i])
		if err != nil {
			results[i].Error = errorDetail(err)
			continue
		}
		inputs[i] = in
		engineReqs = append(engineReqs, pricer.BatchRequest{Inputs: in, Model: model})
		positions = append(positions, i)
	}

	if len(engineReqs) > 0 {
		for j, item := range h.engine.PriceBatch(r.Context(), engineReqs) {
			i := positions[j]
			h.audit(requestID, "PriceBatch", results[i].Symbol, &inputs[i], engineReqs[j].Model, item.Result, item.Err)
			if item.Err != nil {
				results[i].Error = errorDetail(item.Err)
				continue
			}
			res := item.Result
			results[i].Result = &res
		}
	}

	resp := models.BatchResponse{RequestID: requestID, Results: results, Duration: sinceMillis(start)}
	for _, res := range results {
		if res.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	logger.Info.Printf("📦 Batch [%s] %d entries: %d ok, %d failed", requestID, len(results), resp.Succeeded, resp.Failed)
	h.writeJSON(w, http.StatusOK, resp)
}

// HealthHandler reports liveness plus the active engine configuration
func (h *PricingHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.preflight(w, r, "GET, OPTIONS") {
		return
	}
	h.writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Engine:    h.summary,
	})
}

// StatsHandler returns the timing wrapper's counters
func (h *PricingHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if h.preflight(w, r, "GET, OPTIONS") {
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

// preflight sets CORS headers and reports whether the request was an
// OPTIONS preflight that has already been answered.
func (h *PricingHandler) preflight(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func (h *PricingHandler) requestID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	return id
}

func (h *PricingHandler) audit(requestID, operation, symbol string, in *pricer.Inputs, model pricer.Model, result interface{}, err error) {
	data := map[string]interface{}{}
	if symbol != "" {
		data["symbol"] = symbol
	}
	if in != nil {
		data["inputs"] = in.Params()
	}
	if model != 0 {
		data["model"] = model.String()
	}
	if err != nil {
		data["error"] = err.Error()
	} else {
		data["result"] = result
	}

	if auditErr := h.auditLogger.LogPricingOperation(requestID, operation, data); auditErr != nil {
		logger.Warn.Printf("⚠️ AUDIT: dropped %s entry for %s: %v", operation, requestID, auditErr)
	}
}

func (h *PricingHandler) writeError(w http.ResponseWriter, requestID string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error.Printf("❌ [%s] %v", requestID, err)
	} else {
		logger.Debug.Printf("🚫 [%s] %s: %v", requestID, code, err)
	}
	h.writeJSON(w, status, models.ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		RequestID: requestID,
	})
}

func (h *PricingHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("❌ Failed to write JSON response: %v", err)
	}
}

// classify maps an engine error onto an HTTP status and error code
func classify(err error) (int, string) {
	switch {
	case pricer.IsInvalidInput(err):
		return http.StatusBadRequest, CodeInvalidInput
	case pricer.IsNumericalInstability(err):
		return http.StatusUnprocessableEntity, CodeNumericalInstability
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func errorDetail(err error) *models.ErrorDetail {
	_, code := classify(err)
	return &models.ErrorDetail{Code: code, Message: err.Error()}
}

func sinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
