package pricer

import (
	"fmt"
	"math"

	"github.com/jwaldner/optionsengine/internal/stats"
)

const daysPerYear = 365.0

// analyticPrice prices a European contract with the Black-Scholes-Merton
// closed form. Values are unrounded.
func analyticPrice(in Inputs) (Result, error) {
	if err := in.check(); err != nil {
		return Result{}, err
	}
	if in.style != European {
		return Result{}, fmt.Errorf("%w: analytic model cannot price %s exercise", ErrModelUnsupported, in.style)
	}

	S, K, T, r, sigma := in.spot, in.strike, in.expiry, in.rate, in.vol
	result := Result{Model: Analytic, Style: European}

	if T <= 0 {
		result.Price = in.intrinsic(S)
		result.Degenerate = true
		return result, nil
	}

	// Zero volatility: the underlying grows deterministically at r, so the
	// contract is worth its discounted forward intrinsic value.
	if sigma == 0 {
		discountedStrike := K * math.Exp(-r*T)
		if in.typ == Call {
			result.Price = math.Max(0, S-discountedStrike)
		} else {
			result.Price = math.Max(0, discountedStrike-S)
		}
		result.Degenerate = true
		if err := checkFinite(result); err != nil {
			return Result{}, err
		}
		return result, nil
	}

	sqrtT := math.Sqrt(T)
	volSqrtT := sigma * sqrtT
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / volSqrtT
	d2 := d1 - volSqrtT
	if !finite(d1) || !finite(d2) {
		return Result{}, fmt.Errorf("%w: d1=%v d2=%v for sigma=%v T=%v", ErrNumericalInstability, d1, d2, sigma, T)
	}

	discount := math.Exp(-r * T)
	nd1 := stats.PDF(d1)
	decay := -(S * nd1 * sigma) / (2 * sqrtT)

	var g Greeks
	if in.typ == Call {
		result.Price = S*stats.CDF(d1) - K*discount*stats.CDF(d2)
		g.Delta = stats.CDF(d1)
		g.Theta = (decay - r*K*discount*stats.CDF(d2)) / daysPerYear
		g.Rho = K * T * discount * stats.CDF(d2) / 100
	} else {
		result.Price = K*discount*stats.CDF(-d2) - S*stats.CDF(-d1)
		g.Delta = -stats.CDF(-d1)
		g.Theta = (decay + r*K*discount*stats.CDF(-d2)) / daysPerYear
		g.Rho = -K * T * discount * stats.CDF(-d2) / 100
	}
	g.Gamma = nd1 / (S * volSqrtT)
	g.Vega = S * nd1 * sqrtT / 100
	result.Greeks = g

	if err := checkFinite(result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func checkFinite(r Result) error {
	values := []struct {
		name string
		v    float64
	}{
		{"price", r.Price},
		{"delta", r.Greeks.Delta},
		{"gamma", r.Greeks.Gamma},
		{"theta", r.Greeks.Theta},
		{"vega", r.Greeks.Vega},
		{"rho", r.Greeks.Rho},
	}
	for _, f := range values {
		if !finite(f.v) {
			return fmt.Errorf("%w: %s model produced non-finite %s", ErrNumericalInstability, r.Model, f.name)
		}
	}
	return nil
}
