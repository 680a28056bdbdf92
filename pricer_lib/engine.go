// Package pricer values single-leg equity options with a closed-form
// Black-Scholes-Merton model and a Cox-Ross-Rubinstein binomial lattice.
//
// Every operation is a pure function of its Inputs: nothing is cached, no
// state is shared between calls and the package performs no I/O. An Engine
// is read-only after construction and safe for concurrent use.
package pricer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Rounding is the presentation policy applied to every returned number.
// It exists so repeated calls and test suites see stable, exact values; it
// makes no claim about numerical accuracy. Values are rounded half away
// from zero.
type Rounding struct {
	Enabled     bool
	PricePlaces int32
	GreekPlaces int32
}

// Config tunes an Engine.
type Config struct {
	// DefaultSteps is the lattice resolution for inputs that leave Steps unset.
	DefaultSteps int

	// VolBump and RateBump are the forward-difference increments used by the
	// lattice vega and rho rebuilds. They are tunables, checked against the
	// analytic Greeks in tests rather than derived.
	VolBump  float64
	RateBump float64

	// ParallelGreeks runs the independent tree rebuilds concurrently.
	ParallelGreeks bool

	// BatchWorkers bounds PriceBatch concurrency; 0 uses GOMAXPROCS.
	BatchWorkers int

	Rounding Rounding
}

// DefaultConfig returns 100 steps, 0.01 bumps, parallel Greeks and
// 2/3-place rounding for prices/Greeks.
func DefaultConfig() Config {
	return Config{
		DefaultSteps:   DefaultSteps,
		VolBump:        0.01,
		RateBump:       0.01,
		ParallelGreeks: true,
		Rounding: Rounding{
			Enabled:     true,
			PricePlaces: 2,
			GreekPlaces: 3,
		},
	}
}

// Engine dispatches pricing requests to the analytic or lattice model.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	switch {
	case cfg.DefaultSteps < 1:
		return nil, fmt.Errorf("%w: default steps must be >= 1, got %d", ErrInvalidInput, cfg.DefaultSteps)
	case !(cfg.VolBump > 0) || !finite(cfg.VolBump):
		return nil, fmt.Errorf("%w: vol bump must be > 0, got %v", ErrInvalidInput, cfg.VolBump)
	case !(cfg.RateBump > 0) || !finite(cfg.RateBump):
		return nil, fmt.Errorf("%w: rate bump must be > 0, got %v", ErrInvalidInput, cfg.RateBump)
	case cfg.BatchWorkers < 0:
		return nil, fmt.Errorf("%w: batch workers must be >= 0, got %d", ErrInvalidInput, cfg.BatchWorkers)
	case cfg.Rounding.Enabled && (cfg.Rounding.PricePlaces < 0 || cfg.Rounding.GreekPlaces < 0):
		return nil, fmt.Errorf("%w: rounding places must be >= 0", ErrInvalidInput)
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Price selects the model from the exercise style: European contracts use
// the closed form, American contracts always use the lattice.
func (e *Engine) Price(in Inputs) (Result, error) {
	if err := in.check(); err != nil {
		return Result{}, err
	}
	switch in.style {
	case European:
		return e.PriceWith(in, Analytic)
	case American:
		return e.PriceWith(in, Lattice)
	default:
		return Result{}, fmt.Errorf("%w: exercise style %v", ErrInvalidInput, in.style)
	}
}

// PriceWith prices in with an explicit model. A zero model falls back to
// Price. Asking the analytic model for American exercise returns
// ErrModelUnsupported.
func (e *Engine) PriceWith(in Inputs, model Model) (Result, error) {
	var (
		res Result
		err error
	)
	switch model {
	case 0:
		return e.Price(in)
	case Analytic:
		res, err = analyticPrice(in)
	case Lattice:
		res, err = latticePrice(in, e.steps(in), e.cfg)
	default:
		return Result{}, fmt.Errorf("%w: model %v", ErrInvalidInput, model)
	}
	if err != nil {
		return Result{}, err
	}
	if err := checkFinite(res); err != nil {
		return Result{}, err
	}
	return e.round(res), nil
}

// PriceLattice forces the lattice model, even for European exercise. It is
// the hook for checking lattice convergence against the closed form.
func (e *Engine) PriceLattice(in Inputs) (Result, error) {
	return e.PriceWith(in, Lattice)
}

// BatchRequest is one entry of a PriceBatch call. A zero Model selects the
// model from the exercise style.
type BatchRequest struct {
	Inputs Inputs
	Model  Model
}

// BatchItem is the outcome of one BatchRequest, in request order.
type BatchItem struct {
	Result Result
	Err    error
}

// PriceBatch prices every request independently on a bounded worker pool.
// A failing entry, even one that panics, does not affect the others.
// Entries not started before ctx is done carry ctx.Err().
func (e *Engine) PriceBatch(ctx context.Context, reqs []BatchRequest) []BatchItem {
	items := make([]BatchItem, len(reqs))

	workers := e.cfg.BatchWorkers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					items[i] = BatchItem{Err: fmt.Errorf("batch entry %d: pricing panicked: %v", i, r)}
				}
			}()
			items[i].Result, items[i].Err = e.PriceWith(reqs[i].Inputs, reqs[i].Model)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func (e *Engine) steps(in Inputs) int {
	if in.steps > 0 {
		return in.steps
	}
	return e.cfg.DefaultSteps
}

func (e *Engine) round(r Result) Result {
	if !e.cfg.Rounding.Enabled {
		return r
	}
	p, g := e.cfg.Rounding.PricePlaces, e.cfg.Rounding.GreekPlaces
	r.Price = roundTo(r.Price, p)
	r.Greeks = Greeks{
		Delta: roundTo(r.Greeks.Delta, g),
		Gamma: roundTo(r.Greeks.Gamma, g),
		Theta: roundTo(r.Greeks.Theta, g),
		Vega:  roundTo(r.Greeks.Vega, g),
		Rho:   roundTo(r.Greeks.Rho, g),
	}
	return r
}

// roundTo leaves NaN and ±Inf untouched; decimal cannot represent them.
func roundTo(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

var defaultEngine = func() *Engine {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return e
}()

// Default returns the engine behind the package-level functions.
func Default() *Engine { return defaultEngine }

// Price prices in with the default engine.
func Price(in Inputs) (Result, error) { return defaultEngine.Price(in) }

// PriceLattice prices in on the lattice with the default engine.
func PriceLattice(in Inputs) (Result, error) { return defaultEngine.PriceLattice(in) }

// Compare runs the comparison facade with the default engine.
func Compare(in Inputs) (Comparison, error) { return defaultEngine.Compare(in) }
