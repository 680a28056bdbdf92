package pricer

import (
	"fmt"
	"math"
)

// DefaultSteps is the lattice resolution used when a request leaves Steps unset.
const DefaultSteps = 100

// Params is the raw, unvalidated shape of a pricing request.
type Params struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	RiskFreeRate float64 // continuously compounded, may be negative
	Volatility   float64 // annualized
	Type         OptionType
	Style        ExerciseStyle
	Steps        int // lattice only; 0 means the engine default
}

// Inputs is a validated, immutable set of pricing parameters. The only way to
// obtain a usable value is NewInputs; the zero value is rejected by every
// pricing operation.
type Inputs struct {
	spot   float64
	strike float64
	expiry float64
	rate   float64
	vol    float64
	typ    OptionType
	style  ExerciseStyle
	steps  int
	valid  bool
}

// NewInputs validates p and returns the immutable Inputs it describes.
// Every violation is reported as ErrInvalidInput; nothing is clamped.
func NewInputs(p Params) (Inputs, error) {
	checks := []struct {
		name  string
		value float64
	}{
		{"spot_price", p.Spot},
		{"strike_price", p.Strike},
		{"time_to_expiry", p.TimeToExpiry},
		{"risk_free_rate", p.RiskFreeRate},
		{"volatility", p.Volatility},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return Inputs{}, fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidInput, c.name, c.value)
		}
	}

	switch {
	case p.Spot <= 0:
		return Inputs{}, fmt.Errorf("%w: spot_price must be > 0, got %v", ErrInvalidInput, p.Spot)
	case p.Strike <= 0:
		return Inputs{}, fmt.Errorf("%w: strike_price must be > 0, got %v", ErrInvalidInput, p.Strike)
	case p.TimeToExpiry < 0:
		return Inputs{}, fmt.Errorf("%w: time_to_expiry must be >= 0, got %v", ErrInvalidInput, p.TimeToExpiry)
	case p.Volatility < 0:
		return Inputs{}, fmt.Errorf("%w: volatility must be >= 0, got %v", ErrInvalidInput, p.Volatility)
	case p.Steps < 0:
		return Inputs{}, fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidInput, p.Steps)
	}

	if p.Type != Call && p.Type != Put {
		return Inputs{}, fmt.Errorf("%w: option_type must be call or put", ErrInvalidInput)
	}
	if p.Style != European && p.Style != American {
		return Inputs{}, fmt.Errorf("%w: exercise_style must be european or american", ErrInvalidInput)
	}

	return Inputs{
		spot:   p.Spot,
		strike: p.Strike,
		expiry: p.TimeToExpiry,
		rate:   p.RiskFreeRate,
		vol:    p.Volatility,
		typ:    p.Type,
		style:  p.Style,
		steps:  p.Steps,
		valid:  true,
	}, nil
}

// MustInputs is NewInputs for literals known to be valid; it panics otherwise.
func MustInputs(p Params) Inputs {
	in, err := NewInputs(p)
	if err != nil {
		panic(err)
	}
	return in
}

func (in Inputs) Spot() float64         { return in.spot }
func (in Inputs) Strike() float64       { return in.strike }
func (in Inputs) TimeToExpiry() float64 { return in.expiry }
func (in Inputs) RiskFreeRate() float64 { return in.rate }
func (in Inputs) Volatility() float64   { return in.vol }
func (in Inputs) Type() OptionType      { return in.typ }
func (in Inputs) Style() ExerciseStyle  { return in.style }
func (in Inputs) Valid() bool           { return in.valid }

// Steps returns the requested lattice resolution, 0 when left to the engine.
func (in Inputs) Steps() int { return in.steps }

// Params returns the raw parameters the Inputs were built from.
func (in Inputs) Params() Params {
	return Params{
		Spot:         in.spot,
		Strike:       in.strike,
		TimeToExpiry: in.expiry,
		RiskFreeRate: in.rate,
		Volatility:   in.vol,
		Type:         in.typ,
		Style:        in.style,
		Steps:        in.steps,
	}
}

// WithStyle returns a copy with a different exercise style.
func (in Inputs) WithStyle(style ExerciseStyle) (Inputs, error) {
	p := in.Params()
	p.Style = style
	return NewInputs(p)
}

// WithSteps returns a copy with a different lattice resolution.
func (in Inputs) WithSteps(steps int) (Inputs, error) {
	if steps < 1 {
		return Inputs{}, fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidInput, steps)
	}
	p := in.Params()
	p.Steps = steps
	return NewInputs(p)
}

// WithVolatility returns a copy with a different volatility.
func (in Inputs) WithVolatility(vol float64) (Inputs, error) {
	p := in.Params()
	p.Volatility = vol
	return NewInputs(p)
}

// WithRate returns a copy with a different risk-free rate.
func (in Inputs) WithRate(rate float64) (Inputs, error) {
	p := in.Params()
	p.RiskFreeRate = rate
	return NewInputs(p)
}

// intrinsic is the immediate exercise value at underlying price s.
func (in Inputs) intrinsic(s float64) float64 {
	if in.typ == Call {
		return math.Max(0, s-in.strike)
	}
	return math.Max(0, in.strike-s)
}

func (in Inputs) check() error {
	if !in.valid {
		return fmt.Errorf("%w: inputs were not built with NewInputs", ErrInvalidInput)
	}
	return nil
}
