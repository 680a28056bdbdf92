package pricer

import "fmt"

// Compare prices in on the lattice twice, once with American and once with
// European exercise, using identical parameters and resolution. The style
// carried by in is ignored. The early-exercise premium is the difference of
// the two reported prices and is never negative: the American backward
// induction only ever raises node values above the European ones.
func (e *Engine) Compare(in Inputs) (Comparison, error) {
	if err := in.check(); err != nil {
		return Comparison{}, err
	}

	american, err := in.WithStyle(American)
	if err != nil {
		return Comparison{}, err
	}
	european, err := in.WithStyle(European)
	if err != nil {
		return Comparison{}, err
	}

	var out Comparison
	err = runAll(e.cfg.ParallelGreeks,
		func() (err error) {
			out.American, err = e.PriceLattice(american)
			if err != nil {
				return fmt.Errorf("american leg: %w", err)
			}
			return nil
		},
		func() (err error) {
			out.European, err = e.PriceLattice(european)
			if err != nil {
				return fmt.Errorf("european leg: %w", err)
			}
			return nil
		},
	)
	if err != nil {
		return Comparison{}, err
	}

	out.EarlyExercisePremium = out.American.Price - out.European.Price
	if e.cfg.Rounding.Enabled {
		out.EarlyExercisePremium = roundTo(out.EarlyExercisePremium, e.cfg.Rounding.PricePlaces)
	}
	return out, nil
}
