package models

import (
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// PriceRequest is the JSON body accepted by the pricing endpoints.
// Numeric fields are pointers so a missing field can be told apart from 0.
type PriceRequest struct {
	SpotPrice      *float64 `json:"spot_price"`
	StrikePrice    *float64 `json:"strike_price"`
	TimeToExpiry   *float64 `json:"time_to_expiry,omitempty"`  // years
	ExpirationDate string   `json:"expiration_date,omitempty"` // YYYY-MM-DD, alternative to time_to_expiry
	RiskFreeRate   *float64 `json:"risk_free_rate"`
	Volatility     *float64 `json:"volatility"`
	OptionType     string   `json:"option_type"`              // "call" or "put"
	ExerciseStyle  string   `json:"exercise_style,omitempty"` // defaults to "european"
	Steps          int      `json:"steps,omitempty"`          // lattice only
	Model          string   `json:"model,omitempty"`          // "analytic" or "lattice", empty = auto
	Symbol         string   `json:"symbol,omitempty"`         // optional label, echoed into the audit trail
}

// PriceResponse wraps a single pricing result
type PriceResponse struct {
	RequestID string        `json:"request_id"`
	Symbol    string        `json:"symbol,omitempty"`
	Result    pricer.Result `json:"result"`
	Duration  float64       `json:"duration_ms"`
}

// CompareResponse wraps an American vs European comparison
type CompareResponse struct {
	RequestID  string            `json:"request_id"`
	Symbol     string            `json:"symbol,omitempty"`
	Comparison pricer.Comparison `json:"comparison"`
	Duration   float64           `json:"duration_ms"`
}

// BatchRequest is the body of /api/price/batch
type BatchRequest struct {
	Requests []PriceRequest `json:"requests"`
}

// BatchResult is one entry of a batch response: either a result or an error
type BatchResult struct {
	Index  int            `json:"index"`
	Symbol string         `json:"symbol,omitempty"`
	Result *pricer.Result `json:"result,omitempty"`
	Error  *ErrorDetail   `json:"error,omitempty"`
}

// BatchResponse wraps a batch pricing run
type BatchResponse struct {
	RequestID string        `json:"request_id"`
	Results   []BatchResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  float64       `json:"duration_ms"`
}

// ErrorDetail is the machine-readable code plus a human message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error     string `json:"error"`   // INVALID_INPUT, NUMERICAL_INSTABILITY, INTERNAL
	Message   string `json:"message"` // human readable detail
	RequestID string `json:"request_id"`
}

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Engine    EngineSummary `json:"engine"`
}

// EngineSummary exposes the active engine configuration
type EngineSummary struct {
	DefaultSteps   int     `json:"default_steps"`
	MaxSteps       int     `json:"max_steps"`
	VolBump        float64 `json:"vol_bump"`
	RateBump       float64 `json:"rate_bump"`
	ParallelGreeks bool    `json:"parallel_greeks"`
	Rounding       bool    `json:"rounding"`
	PricePlaces    int32   `json:"price_places"`
	GreekPlaces    int32   `json:"greek_places"`
}
