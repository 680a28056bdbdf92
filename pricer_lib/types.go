package pricer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OptionType is the payoff side of a contract.
type OptionType int

const (
	Call OptionType = iota + 1
	Put
)

func (t OptionType) String() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("OptionType(%d)", int(t))
	}
}

// ParseOptionType accepts "call"/"put" and the single-letter "C"/"P" form
// used by option symbols.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return 0, fmt.Errorf("%w: unknown option type %q", ErrInvalidInput, s)
}

func (t OptionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *OptionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOptionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ExerciseStyle controls when the holder may exercise.
type ExerciseStyle int

const (
	European ExerciseStyle = iota + 1
	American
)

func (e ExerciseStyle) String() string {
	switch e {
	case European:
		return "european"
	case American:
		return "american"
	default:
		return fmt.Sprintf("ExerciseStyle(%d)", int(e))
	}
}

// ParseExerciseStyle accepts "european"/"american" (case-insensitive).
func ParseExerciseStyle(s string) (ExerciseStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "european", "eu", "e":
		return European, nil
	case "american", "am", "a":
		return American, nil
	}
	return 0, fmt.Errorf("%w: unknown exercise style %q", ErrInvalidInput, s)
}

func (e ExerciseStyle) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *ExerciseStyle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseExerciseStyle(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Model identifies the numerical method that produced a result.
type Model int

const (
	Analytic Model = iota + 1
	Lattice
)

func (m Model) String() string {
	switch m {
	case Analytic:
		return "analytic"
	case Lattice:
		return "lattice"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel accepts "analytic"/"black-scholes" and "lattice"/"binomial".
func ParseModel(s string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "analytic", "black-scholes", "blackscholes", "bs":
		return Analytic, nil
	case "lattice", "binomial", "crr":
		return Lattice, nil
	}
	return 0, fmt.Errorf("%w: unknown model %q", ErrInvalidInput, s)
}

func (m Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Model) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseModel(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Greeks are the price sensitivities. Theta is per calendar day, vega and
// rho are per one percentage point of volatility and rate.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Result is the output of a single pricing call.
type Result struct {
	Price  float64       `json:"price"`
	Greeks Greeks        `json:"greeks"`
	Model  Model         `json:"model_used"`
	Style  ExerciseStyle `json:"exercise_style"`
	Steps  int           `json:"steps,omitempty"` // 0 for the analytic model

	// Degenerate is set when the result came from the zero-expiry or
	// zero-volatility path: intrinsic value only, all Greeks zero.
	Degenerate bool `json:"degenerate"`
}

// Comparison reports the value of the early-exercise right.
type Comparison struct {
	American             Result  `json:"american"`
	European             Result  `json:"european"`
	EarlyExercisePremium float64 `json:"early_exercise_premium"`
}
