package pricer

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// tree is what one backward induction leaves behind: the root value plus the
// option values of layers 1 and 2, which is all the Greeks need.
type tree struct {
	price  float64
	layer1 [2]float64
	layer2 [3]float64
	u      float64
	dt     float64
}

// buildTree runs a Cox-Ross-Rubinstein recombining binomial tree over steps
// periods. Only one layer of node values is kept; each backward step
// overwrites it in place.
func buildTree(in Inputs, steps int) (tree, error) {
	dt := in.expiry / float64(steps)
	u := math.Exp(in.vol * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp(in.rate * dt)
	p := (growth - d) / (u - d)

	// An up-probability outside (0,1) means the tree cannot reproduce the
	// forward; volatility is too low for this rate and step size.
	if !finite(p) || p <= 0 || p >= 1 {
		return tree{}, fmt.Errorf("%w: risk-neutral probability %v outside (0,1) (sigma=%v r=%v dt=%v)",
			ErrNumericalInstability, p, in.vol, in.rate, dt)
	}
	disc := 1 / growth
	american := in.style == American

	t := tree{u: u, dt: dt}
	capture := func(layer int, values []float64) {
		switch layer {
		case 1:
			copy(t.layer1[:], values[:2])
		case 2:
			copy(t.layer2[:], values[:3])
		}
	}

	// Node j of layer i sits at S·u^j·d^(i−j) = S·u^(2j−i).
	values := make([]float64, steps+1)
	for j := range values {
		values[j] = in.intrinsic(in.spot * math.Pow(u, float64(2*j-steps)))
	}
	capture(steps, values)

	for i := steps - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			v := disc * (p*values[j+1] + (1-p)*values[j])
			if american {
				if exercise := in.intrinsic(in.spot * math.Pow(u, float64(2*j-i))); exercise > v {
					v = exercise
				}
			}
			values[j] = v
		}
		capture(i, values)
	}

	t.price = values[0]
	return t, nil
}

// deterministicPrice handles zero volatility: the tree collapses to a single
// path along which the underlying grows by e^(r·dt) per step. A European
// holder receives the discounted terminal payoff; an American holder picks
// the best discounted payoff over the path's exercise dates.
func deterministicPrice(in Inputs, steps int) float64 {
	if in.style == European {
		return discountedPayoff(in, in.expiry)
	}

	dt := in.expiry / float64(steps)
	best := 0.0
	for k := 0; k <= steps; k++ {
		if v := discountedPayoff(in, float64(k)*dt); v > best {
			best = v
		}
	}
	return best
}

// discountedPayoff is e^(−r·t)·intrinsic(S·e^(r·t)) written against the
// discounted strike, so a large |r·t| cannot form 0·Inf.
func discountedPayoff(in Inputs, t float64) float64 {
	pvStrike := in.strike * math.Exp(-in.rate*t)
	if in.typ == Call {
		return math.Max(0, in.spot-pvStrike)
	}
	return math.Max(0, pvStrike-in.spot)
}

// latticeGreeks derives delta, gamma and theta from the first two layers of
// base and bumps volatility and rate with two further full tree builds.
func latticeGreeks(in Inputs, steps int, base tree, cfg Config) (Greeks, error) {
	S := in.spot
	var g Greeks

	su, sd := S*base.u, S/base.u
	g.Delta = (base.layer1[1] - base.layer1[0]) / (su - sd)

	if steps >= 2 {
		suu, sdd := S*base.u*base.u, S/(base.u*base.u)
		deltaUp := (base.layer2[2] - base.layer2[1]) / (suu - S)
		deltaDown := (base.layer2[1] - base.layer2[0]) / (S - sdd)
		g.Gamma = (deltaUp - deltaDown) / (0.5 * (suu - sdd))

		// The middle node of layer 2 has the same spot as the root, two
		// periods later.
		g.Theta = (base.layer2[1] - base.price) / (2 * base.dt) / daysPerYear
	} else {
		g.Theta = (in.intrinsic(S) - base.price) / base.dt / daysPerYear
	}

	err := runAll(cfg.ParallelGreeks,
		func() (err error) {
			g.Vega, err = bumpedSlope(base, steps, cfg.VolBump, func(h float64) (Inputs, error) {
				return in.WithVolatility(in.vol + h)
			})
			if err != nil {
				return fmt.Errorf("vega rebuild: %w", err)
			}
			return nil
		},
		func() (err error) {
			g.Rho, err = bumpedSlope(base, steps, cfg.RateBump, func(h float64) (Inputs, error) {
				return in.WithRate(in.rate + h)
			})
			if err != nil {
				return fmt.Errorf("rho rebuild: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return Greeks{}, err
	}

	g.Vega /= 100
	g.Rho /= 100
	return g, nil
}

// bumpedSlope rebuilds the tree with one parameter shifted by +bump and
// returns the forward difference. When the shifted tree is not well-posed it
// falls back to the backward difference at −bump; it fails only when neither
// direction yields a valid tree.
func bumpedSlope(base tree, steps int, bump float64, shift func(h float64) (Inputs, error)) (float64, error) {
	up, err := shift(bump)
	if err == nil {
		var t tree
		if t, err = buildTree(up, steps); err == nil {
			return (t.price - base.price) / bump, nil
		}
	}
	if !IsNumericalInstability(err) {
		return 0, err
	}

	down, derr := shift(-bump)
	if derr != nil {
		return 0, err
	}
	t, derr := buildTree(down, steps)
	if derr != nil {
		return 0, err
	}
	return (base.price - t.price) / bump, nil
}

// latticePrice prices in on a binomial tree with the given resolution.
// Values are unrounded.
func latticePrice(in Inputs, steps int, cfg Config) (Result, error) {
	if err := in.check(); err != nil {
		return Result{}, err
	}
	if steps < 1 {
		return Result{}, fmt.Errorf("%w: steps must be >= 1, got %d", ErrInvalidInput, steps)
	}

	result := Result{Model: Lattice, Style: in.style, Steps: steps}

	if in.expiry <= 0 {
		result.Price = in.intrinsic(in.spot)
		result.Degenerate = true
		return result, nil
	}
	if in.vol == 0 {
		result.Price = deterministicPrice(in, steps)
		result.Degenerate = true
		if err := checkFinite(result); err != nil {
			return Result{}, err
		}
		return result, nil
	}

	base, err := buildTree(in, steps)
	if err != nil {
		return Result{}, err
	}
	greeks, err := latticeGreeks(in, steps, base, cfg)
	if err != nil {
		return Result{}, err
	}

	result.Price = base.price
	result.Greeks = greeks
	if err := checkFinite(result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// runAll runs independent pure computations, concurrently when parallel is
// set, and returns the first error.
func runAll(parallel bool, fns ...func() error) error {
	if !parallel {
		for _, fn := range fns {
			if err := fn(); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	return g.Wait()
}
