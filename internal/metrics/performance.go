package metrics

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jwaldner/optionsengine/internal/logger"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// Pricer is the subset of *pricer.Engine the wrapper times.
type Pricer interface {
	PriceWith(in pricer.Inputs, model pricer.Model) (pricer.Result, error)
	Compare(in pricer.Inputs) (pricer.Comparison, error)
	PriceBatch(ctx context.Context, reqs []pricer.BatchRequest) []pricer.BatchItem
}

// PerformanceWrapper wraps the pricing engine with call counting and timing.
// Counters are atomic so one wrapper serves every HTTP goroutine.
type PerformanceWrapper struct {
	engine        Pricer
	slowThreshold time.Duration

	totalRequests    atomic.Int64
	totalNanos       atomic.Int64
	slowRequestCount atomic.Int64
	errorCount       atomic.Int64
	instabilityCount atomic.Int64

	priceCalls   atomic.Int64
	compareCalls atomic.Int64
	batchCalls   atomic.Int64
	batchItems   atomic.Int64
}

// Stats is a point-in-time copy of the counters
type Stats struct {
	TotalRequests    int64   `json:"total_requests"`
	PriceCalls       int64   `json:"price_calls"`
	CompareCalls     int64   `json:"compare_calls"`
	BatchCalls       int64   `json:"batch_calls"`
	BatchItems       int64   `json:"batch_items"`
	Errors           int64   `json:"errors"`
	Instabilities    int64   `json:"numerical_instabilities"`
	SlowRequests     int64   `json:"slow_requests"`
	SlowThresholdMs  float64 `json:"slow_threshold_ms"`
	AverageMs        float64 `json:"average_ms"`
	TotalMs          float64 `json:"total_ms"`
	SlowRequestRatio float64 `json:"slow_request_ratio"`
}

// NewPerformanceWrapper creates a wrapper around a pricing engine. Calls
// slower than slowThreshold are counted and logged as slow.
func NewPerformanceWrapper(engine Pricer, slowThreshold time.Duration) *PerformanceWrapper {
	return &PerformanceWrapper{
		engine:        engine,
		slowThreshold: slowThreshold,
	}
}

// PriceWith wraps the engine call with performance monitoring
func (pw *PerformanceWrapper) PriceWith(in pricer.Inputs, model pricer.Model) (pricer.Result, error) {
	start := time.Now()
	result, err := pw.engine.PriceWith(in, model)
	duration := time.Since(start)

	pw.priceCalls.Add(1)
	pw.recordRequest(duration, err)

	logger.Debug.Printf("🧮 PRICE: %s %s model=%v took %v", in.Style(), in.Type(), model, duration)
	return result, err
}

// Compare wraps the engine call with performance monitoring
func (pw *PerformanceWrapper) Compare(in pricer.Inputs) (pricer.Comparison, error) {
	start := time.Now()
	result, err := pw.engine.Compare(in)
	duration := time.Since(start)

	pw.compareCalls.Add(1)
	pw.recordRequest(duration, err)

	logger.Debug.Printf("⚖️  COMPARE: %s steps=%d took %v", in.Type(), in.Steps(), duration)
	return result, err
}

// PriceBatch wraps the engine call with performance monitoring. Item errors
// are counted individually; the batch itself counts as one request.
func (pw *PerformanceWrapper) PriceBatch(ctx context.Context, reqs []pricer.BatchRequest) []pricer.BatchItem {
	start := time.Now()
	items := pw.engine.PriceBatch(ctx, reqs)
	duration := time.Since(start)

	pw.batchCalls.Add(1)
	pw.batchItems.Add(int64(len(reqs)))
	pw.recordRequest(duration, nil)
	for _, item := range items {
		pw.recordError(item.Err)
	}

	logger.Debug.Printf("📦 BATCH: %d entries took %v", len(reqs), duration)
	return items
}

// recordRequest updates performance statistics
func (pw *PerformanceWrapper) recordRequest(duration time.Duration, err error) {
	pw.totalRequests.Add(1)
	pw.totalNanos.Add(int64(duration))
	pw.recordError(err)

	if pw.slowThreshold > 0 && duration > pw.slowThreshold {
		pw.slowRequestCount.Add(1)
		logger.Warn.Printf("⚠️  SLOW PRICING CALL: took %v (threshold %v)", duration, pw.slowThreshold)
	}
}

func (pw *PerformanceWrapper) recordError(err error) {
	if err == nil {
		return
	}
	pw.errorCount.Add(1)
	if pricer.IsNumericalInstability(err) {
		pw.instabilityCount.Add(1)
	}
}

// Stats returns a snapshot of the counters
func (pw *PerformanceWrapper) Stats() Stats {
	total := pw.totalRequests.Load()
	nanos := pw.totalNanos.Load()
	slow := pw.slowRequestCount.Load()

	s := Stats{
		TotalRequests:   total,
		PriceCalls:      pw.priceCalls.Load(),
		CompareCalls:    pw.compareCalls.Load(),
		BatchCalls:      pw.batchCalls.Load(),
		BatchItems:      pw.batchItems.Load(),
		Errors:          pw.errorCount.Load(),
		Instabilities:   pw.instabilityCount.Load(),
		SlowRequests:    slow,
		SlowThresholdMs: millis(pw.slowThreshold),
		TotalMs:         millis(time.Duration(nanos)),
	}
	if total > 0 {
		s.AverageMs = millis(time.Duration(nanos / total))
		s.SlowRequestRatio = float64(slow) / float64(total)
	}
	return s
}

// GetPerformanceStats returns current performance statistics
func (pw *PerformanceWrapper) GetPerformanceStats() string {
	s := pw.Stats()
	return fmt.Sprintf(`
📊 Pricing Engine Performance Stats
===================================
Total Requests:    %d (price %d, compare %d, batch %d / %d entries)
Average Duration:  %.3fms
Total Time:        %.3fms
Errors:            %d (%d numerical instability)
Slow Requests:     %d (>%v)
Slow Request %%:    %.1f%%
`,
		s.TotalRequests, s.PriceCalls, s.CompareCalls, s.BatchCalls, s.BatchItems,
		s.AverageMs,
		s.TotalMs,
		s.Errors, s.Instabilities,
		s.SlowRequests, pw.slowThreshold,
		s.SlowRequestRatio*100,
	)
}

// Close prints the final performance report
func (pw *PerformanceWrapper) Close() {
	if pw.totalRequests.Load() > 0 {
		logger.Info.Printf("📊 Pricing Performance Report:%s", pw.GetPerformanceStats())
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
