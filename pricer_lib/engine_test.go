package pricer

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestNewEngineValidatesConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero default steps", func(c *Config) { c.DefaultSteps = 0 }},
		{"zero vol bump", func(c *Config) { c.VolBump = 0 }},
		{"negative rate bump", func(c *Config) { c.RateBump = -0.01 }},
		{"negative workers", func(c *Config) { c.BatchWorkers = -1 }},
		{"negative places", func(c *Config) { c.Rounding.GreekPlaces = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewEngine(cfg); !IsInvalidInput(err) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, err := NewEngine(DefaultConfig()); err != nil {
		t.Errorf("default config rejected: %v", err)
	}
}

func TestRoundingPolicy(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		want   float64
	}{
		{10.450583572185565, 2, 10.45},
		{0.6368306511756191, 3, 0.637},
		{-0.004542138147766099, 3, -0.005},
		{2.675, 2, 2.68}, // half away from zero, not binary-float truncation
		{-2.675, 2, -2.68},
		{-0.0001, 3, 0},
	}
	for _, tc := range cases {
		if got := roundTo(tc.in, tc.places); got != tc.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", tc.in, tc.places, got, tc.want)
		}
	}
}

func TestPriceWithModelSelection(t *testing.T) {
	in := MustInputs(atmParams(Call, European))

	auto, err := Default().PriceWith(in, 0)
	if err != nil || auto.Model != Analytic {
		t.Errorf("zero model should auto-select analytic for European: %+v %v", auto, err)
	}
	forced, err := Default().PriceWith(in, Lattice)
	if err != nil || forced.Model != Lattice || forced.Steps != DefaultSteps {
		t.Errorf("lattice override ignored: %+v %v", forced, err)
	}
	if _, err := Default().PriceWith(in, Model(9)); !IsInvalidInput(err) {
		t.Errorf("unknown model: expected ErrInvalidInput, got %v", err)
	}
}

func TestZeroInputsRejected(t *testing.T) {
	var zero Inputs
	if _, err := Default().Price(zero); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Price(Inputs{}): expected ErrInvalidInput, got %v", err)
	}
	if _, err := Default().PriceWith(zero, Analytic); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("PriceWith(Inputs{}, Analytic): expected ErrInvalidInput, got %v", err)
	}
}

func TestPriceBatchKeepsOrderAndIsolatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchWorkers = 2
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	unstable := MustInputs(Params{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.5, Volatility: 0.001, Type: Call, Style: American, Steps: 1})
	reqs := []BatchRequest{
		{Inputs: MustInputs(atmParams(Call, European))},
		{Inputs: MustInputs(atmParams(Put, American))},
		{Inputs: unstable},
		{Inputs: Inputs{}},
		{Inputs: MustInputs(atmParams(Call, European)), Model: Lattice},
	}

	items := e.PriceBatch(context.Background(), reqs)
	if len(items) != len(reqs) {
		t.Fatalf("got %d items for %d requests", len(items), len(reqs))
	}

	if items[0].Err != nil || items[0].Result.Price != 10.45 {
		t.Errorf("item 0: %+v", items[0])
	}
	if items[1].Err != nil || items[1].Result.Model != Lattice {
		t.Errorf("item 1: %+v", items[1])
	}
	if !IsNumericalInstability(items[2].Err) {
		t.Errorf("item 2: expected instability, got %v", items[2].Err)
	}
	if !IsInvalidInput(items[3].Err) {
		t.Errorf("item 3: expected invalid input, got %v", items[3].Err)
	}
	if items[4].Err != nil || items[4].Result.Model != Lattice {
		t.Errorf("item 4: %+v", items[4])
	}
}

func TestPriceBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []BatchRequest{
		{Inputs: MustInputs(atmParams(Call, European))},
		{Inputs: MustInputs(atmParams(Put, American))},
	}
	for i, item := range Default().PriceBatch(ctx, reqs) {
		if !errors.Is(item.Err, context.Canceled) {
			t.Errorf("item %d: expected context.Canceled, got %v", i, item.Err)
		}
	}
}

func TestZeroVolLargeRateThroughEngine(t *testing.T) {
	in := MustInputs(Params{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 800, Volatility: 0, Type: Call, Style: American, Steps: 10})

	res, err := Default().PriceLattice(in)
	if err != nil || res.Price != 100 {
		t.Fatalf("PriceLattice: %+v, %v", res, err)
	}

	overflow := MustInputs(Params{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: -800, Volatility: 0, Type: Put, Style: American, Steps: 10})
	reqs := []BatchRequest{
		{Inputs: in, Model: Lattice},
		{Inputs: overflow, Model: Lattice},
		{Inputs: MustInputs(atmParams(Call, European))},
	}
	items := Default().PriceBatch(context.Background(), reqs)
	if items[0].Err != nil || items[0].Result.Price != 100 {
		t.Errorf("item 0: %+v", items[0])
	}
	if !IsNumericalInstability(items[1].Err) {
		t.Errorf("item 1: expected instability, got %v", items[1].Err)
	}
	if items[2].Err != nil || items[2].Result.Price != 10.45 {
		t.Errorf("item 2: %+v", items[2])
	}
}

func TestRoundToNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		got := roundTo(v, 2)
		if !(math.IsNaN(v) && math.IsNaN(got)) && got != v {
			t.Errorf("roundTo(%v) = %v", v, got)
		}
	}
	if got := roundTo(1.23456, 2); got != 1.23 {
		t.Errorf("roundTo(1.23456, 2) = %v", got)
	}
}
