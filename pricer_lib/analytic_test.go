package pricer

import (
	"errors"
	"math"
	"testing"
)

func rawEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Rounding.Enabled = false
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestAnalyticATMCall(t *testing.T) {
	res, err := Price(MustInputs(atmParams(Call, European)))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	if res.Model != Analytic || res.Style != European || res.Steps != 0 {
		t.Errorf("European request should use the analytic model, got %+v", res)
	}

	// Rounded presentation values: 2 places for price, 3 for Greeks.
	want := Result{
		Price: 10.45,
		Greeks: Greeks{
			Delta: 0.637,
			Gamma: 0.019,
			Theta: -0.018,
			Vega:  0.375,
			Rho:   0.532,
		},
		Model: Analytic,
		Style: European,
	}
	if res != want {
		t.Errorf("ATM call:\n got %+v\nwant %+v", res, want)
	}
	t.Logf("✅ ATM call: price=%.2f delta=%.3f", res.Price, res.Greeks.Delta)
}

func TestAnalyticATMPut(t *testing.T) {
	res, err := Price(MustInputs(atmParams(Put, European)))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	want := Greeks{Delta: -0.363, Gamma: 0.019, Theta: -0.005, Vega: 0.375, Rho: -0.419}
	if res.Price != 5.57 || res.Greeks != want {
		t.Errorf("ATM put: got price=%v greeks=%+v", res.Price, res.Greeks)
	}
}

func TestPutCallParity(t *testing.T) {
	e := rawEngine(t)

	cases := []Params{
		{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2},
		{Spot: 188.36, Strike: 166, TimeToExpiry: 0.0575, RiskFreeRate: 0.03983, Volatility: 0.3996},
		{Spot: 50, Strike: 80, TimeToExpiry: 2.5, RiskFreeRate: -0.01, Volatility: 0.6},
		{Spot: 120, Strike: 95, TimeToExpiry: 0.01, RiskFreeRate: 0.1, Volatility: 0.05},
	}

	for _, p := range cases {
		p.Style = European

		p.Type = Call
		call, err := e.Price(MustInputs(p))
		if err != nil {
			t.Fatalf("call %+v: %v", p, err)
		}
		p.Type = Put
		put, err := e.Price(MustInputs(p))
		if err != nil {
			t.Fatalf("put %+v: %v", p, err)
		}

		lhs := call.Price - put.Price
		rhs := p.Spot - p.Strike*math.Exp(-p.RiskFreeRate*p.TimeToExpiry)
		if math.Abs(lhs-rhs) > 1e-6 {
			t.Errorf("parity violated for %+v: C-P=%.10f S-Ke^-rT=%.10f", p, lhs, rhs)
		}
	}
}

func TestAnalyticExpiredContract(t *testing.T) {
	p := atmParams(Call, European)
	p.Spot = 110
	p.TimeToExpiry = 0

	res, err := Price(MustInputs(p))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if res.Price != 10.0 {
		t.Errorf("expired ITM call price = %v, want exactly 10", res.Price)
	}
	if res.Greeks != (Greeks{}) {
		t.Errorf("expired contract must have zero Greeks, got %+v", res.Greeks)
	}
	if !res.Degenerate {
		t.Error("expired contract should be flagged degenerate")
	}

	p.Type = Put
	res, _ = Price(MustInputs(p))
	if res.Price != 0 {
		t.Errorf("expired OTM put price = %v, want 0", res.Price)
	}
}

func TestAnalyticZeroVolatility(t *testing.T) {
	// Deterministic underlying: worth the discounted forward intrinsic value.
	p := Params{Spot: 188.36, Strike: 425, TimeToExpiry: 0.058362, RiskFreeRate: 0.03983, Type: Put, Style: European}

	res, err := rawEngine(t).Price(MustInputs(p))
	if err != nil {
		t.Fatalf("zero volatility should be a valid degenerate case, got %v", err)
	}
	want := 425*math.Exp(-0.03983*0.058362) - 188.36
	if math.Abs(res.Price-want) > 1e-12 {
		t.Errorf("zero-vol put = %v, want %v", res.Price, want)
	}
	if !res.Degenerate || res.Greeks != (Greeks{}) {
		t.Errorf("zero-vol result should be degenerate with zero Greeks: %+v", res)
	}

	p.Type = Call
	res, _ = rawEngine(t).Price(MustInputs(p))
	if res.Price != 0 {
		t.Errorf("deep OTM zero-vol call = %v, want 0", res.Price)
	}
}

func TestAnalyticNumericalInstability(t *testing.T) {
	// A denormal volatility passes validation but sends d1 to infinity.
	p := atmParams(Call, European)
	p.Volatility = 1e-320

	_, err := Price(MustInputs(p))
	if !IsNumericalInstability(err) {
		t.Fatalf("expected ErrNumericalInstability, got %v", err)
	}
	if IsInvalidInput(err) {
		t.Error("instability must be distinguishable from invalid input")
	}
}

func TestAnalyticRejectsAmerican(t *testing.T) {
	_, err := Default().PriceWith(MustInputs(atmParams(Put, American)), Analytic)
	if !errors.Is(err, ErrModelUnsupported) || !IsInvalidInput(err) {
		t.Fatalf("analytic American: expected ErrModelUnsupported, got %v", err)
	}
}

func TestPriceIsPure(t *testing.T) {
	in := MustInputs(atmParams(Put, American))

	first, err := Price(in)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Price(in)
		if err != nil || again != first {
			t.Fatalf("call %d differs: %+v vs %+v (%v)", i, again, first, err)
		}
	}
}
