package metrics_test

import (
	"fmt"
	"time"

	"github.com/jwaldner/optionsengine/internal/metrics"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// How to use the performance monitoring wrapper
func ExamplePerformanceWrapper() {
	// Wrap the engine with performance monitoring
	perf := metrics.NewPerformanceWrapper(pricer.Default(), 250*time.Millisecond)

	// Use it exactly like the engine
	in := pricer.MustInputs(pricer.Params{
		Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2,
		Type: pricer.Call, Style: pricer.European,
	})
	res, err := perf.PriceWith(in, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("ATM call: %.2f (delta %.3f)\n", res.Price, res.Greeks.Delta)
	}

	// Get performance stats anytime
	fmt.Printf("requests: %d, errors: %d\n", perf.Stats().TotalRequests, perf.Stats().Errors)

	// At shutdown, the report goes to the log
	perf.Close()

	// Output:
	// ATM call: 10.45 (delta 0.637)
	// requests: 1, errors: 0
}
