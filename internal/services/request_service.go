package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwaldner/optionsengine/internal/models"
	"github.com/jwaldner/optionsengine/internal/utils"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// maxBodyBytes caps request bodies; a full batch of 500 entries is ~150KB.
const maxBodyBytes = 1 << 20

// RequestService handles HTTP request parsing. Every error it returns wraps
// pricer.ErrInvalidInput so handlers can map it to a 400.
type RequestService struct {
	maxSteps     int
	maxBatchSize int
	now          func() time.Time
}

// NewRequestService creates a new request service. Zero limits disable the
// corresponding check.
func NewRequestService(maxSteps, maxBatchSize int) *RequestService {
	return &RequestService{
		maxSteps:     maxSteps,
		maxBatchSize: maxBatchSize,
		now:          time.Now,
	}
}

// ParsePriceRequest decodes an HTTP request into a PriceRequest
func (s *RequestService) ParsePriceRequest(r *http.Request) (*models.PriceRequest, error) {
	var req models.PriceRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseBatchRequest decodes an HTTP request into a BatchRequest and enforces
// the batch size limit.
func (s *RequestService) ParseBatchRequest(r *http.Request) (*models.BatchRequest, error) {
	var req models.BatchRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}

	if len(req.Requests) == 0 {
		return nil, fmt.Errorf("%w: requests are required", pricer.ErrInvalidInput)
	}
	if s.maxBatchSize > 0 && len(req.Requests) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds the limit of %d", pricer.ErrInvalidInput, len(req.Requests), s.maxBatchSize)
	}
	return &req, nil
}

// ToInputs validates a PriceRequest and converts it into engine inputs plus
// the requested model (0 when the engine should choose).
func (s *RequestService) ToInputs(req *models.PriceRequest) (pricer.Inputs, pricer.Model, error) {
	// Validate required fields
	required := []struct {
		name  string
		value *float64
	}{
		{"spot_price", req.SpotPrice},
		{"strike_price", req.StrikePrice},
		{"risk_free_rate", req.RiskFreeRate},
		{"volatility", req.Volatility},
	}
	for _, f := range required {
		if f.value == nil {
			return pricer.Inputs{}, 0, fmt.Errorf("%w: %s is required", pricer.ErrInvalidInput, f.name)
		}
	}

	expiry, err := s.timeToExpiry(req)
	if err != nil {
		return pricer.Inputs{}, 0, err
	}

	if strings.TrimSpace(req.OptionType) == "" {
		return pricer.Inputs{}, 0, fmt.Errorf("%w: option_type is required", pricer.ErrInvalidInput)
	}
	optType, err := pricer.ParseOptionType(req.OptionType)
	if err != nil {
		return pricer.Inputs{}, 0, err
	}

	// Set defaults
	style := pricer.European
	if strings.TrimSpace(req.ExerciseStyle) != "" {
		if style, err = pricer.ParseExerciseStyle(req.ExerciseStyle); err != nil {
			return pricer.Inputs{}, 0, err
		}
	}

	var model pricer.Model
	if strings.TrimSpace(req.Model) != "" {
		if model, err = pricer.ParseModel(req.Model); err != nil {
			return pricer.Inputs{}, 0, err
		}
	}

	if s.maxSteps > 0 && req.Steps > s.maxSteps {
		return pricer.Inputs{}, 0, fmt.Errorf("%w: steps %d exceeds the limit of %d", pricer.ErrInvalidInput, req.Steps, s.maxSteps)
	}

	in, err := pricer.NewInputs(pricer.Params{
		Spot:         *req.SpotPrice,
		Strike:       *req.StrikePrice,
		TimeToExpiry: expiry,
		RiskFreeRate: *req.RiskFreeRate,
		Volatility:   *req.Volatility,
		Type:         optType,
		Style:        style,
		Steps:        req.Steps,
	})
	if err != nil {
		return pricer.Inputs{}, 0, err
	}
	return in, model, nil
}

func (s *RequestService) timeToExpiry(req *models.PriceRequest) (float64, error) {
	date := strings.TrimSpace(req.ExpirationDate)
	switch {
	case req.TimeToExpiry != nil && date != "":
		return 0, fmt.Errorf("%w: send either time_to_expiry or expiration_date, not both", pricer.ErrInvalidInput)
	case req.TimeToExpiry != nil:
		return *req.TimeToExpiry, nil
	case date != "":
		years, err := utils.ParseExpiration(date, s.now())
		if err != nil {
			return 0, fmt.Errorf("%w: %v", pricer.ErrInvalidInput, err)
		}
		return years, nil
	default:
		return 0, fmt.Errorf("%w: time_to_expiry or expiration_date is required", pricer.ErrInvalidInput)
	}
}

func (s *RequestService) decode(r *http.Request, dst interface{}) error {
	if r.Method != http.MethodPost {
		return fmt.Errorf("%w: method not allowed: %s", pricer.ErrInvalidInput, r.Method)
	}

	// Parse JSON request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: failed to decode request: %v", pricer.ErrInvalidInput, err)
	}
	return nil
}
