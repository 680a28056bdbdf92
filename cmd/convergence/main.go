package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jwaldner/optionsengine/internal/config"
	"github.com/jwaldner/optionsengine/internal/logger"
	"github.com/jwaldner/optionsengine/internal/utils"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// Prints how far the binomial lattice sits from the closed form as the tree
// gets finer, plus the early-exercise premium at the finest resolution.
func main() {
	spot := flag.Float64("spot", 100, "underlying spot price")
	strike := flag.Float64("strike", 100, "strike price")
	years := flag.Float64("years", 0, "time to expiry in years (overrides -expiry)")
	expiry := flag.String("expiry", "", "expiration date YYYY-MM-DD (default: next monthly expiration)")
	rate := flag.Float64("rate", 0.05, "risk-free rate, continuously compounded")
	vol := flag.Float64("vol", 0.2, "annualized volatility")
	optType := flag.String("type", "call", "call or put")
	flag.Parse()

	logger.InitWithWriter(config.Load().Logging.LogLevel, os.Stderr)

	T, label, err := resolveExpiry(*years, *expiry, time.Now())
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	typ, err := pricer.ParseOptionType(*optType)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	// Raw numbers: rounding would hide the gap at high step counts.
	cfg := pricer.DefaultConfig()
	cfg.Rounding.Enabled = false
	engine, err := pricer.NewEngine(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	in, err := pricer.NewInputs(pricer.Params{
		Spot: *spot, Strike: *strike, TimeToExpiry: T, RiskFreeRate: *rate, Volatility: *vol,
		Type: typ, Style: pricer.European,
	})
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🎯 Lattice Convergence Against Black-Scholes")
	fmt.Println("============================================")
	fmt.Printf("📊 Input Parameters:\n")
	fmt.Printf("   Spot (S):       %.2f\n", *spot)
	fmt.Printf("   Strike (K):     %.2f\n", *strike)
	fmt.Printf("   Expiry (T):     %.6f years (%s)\n", T, label)
	fmt.Printf("   Rate (r):       %.5f\n", *rate)
	fmt.Printf("   Volatility (σ): %.4f\n", *vol)
	fmt.Printf("   Type:           %s\n", typ)
	fmt.Println()

	analytic, err := engine.Price(in)
	if err != nil {
		fmt.Printf("❌ Analytic pricing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Analytic price: %.6f\n\n", analytic.Price)

	fmt.Printf("%8s %14s %12s %10s\n", "steps", "lattice", "gap", "delta")
	fmt.Println("-----------------------------------------------")
	var finest pricer.Inputs
	for _, steps := range []int{10, 25, 50, 100, 200, 500} {
		lin, err := in.WithSteps(steps)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		res, err := engine.PriceLattice(lin)
		if err != nil {
			fmt.Printf("%8d %14s\n", steps, "❌ "+err.Error())
			continue
		}
		gap := math.Abs(res.Price - analytic.Price)
		fmt.Printf("%8d %14.6f %12.6f %10.4f\n", steps, res.Price, gap, res.Greeks.Delta)
		finest = lin
	}
	fmt.Println()

	if !finest.Valid() {
		fmt.Println("❌ No lattice resolution priced successfully")
		os.Exit(1)
	}

	cmp, err := engine.Compare(finest)
	if err != nil {
		fmt.Printf("❌ Comparison failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("⚖️  %d steps: American %.6f, European %.6f, early-exercise premium %.6f\n",
		finest.Steps(), cmp.American.Price, cmp.European.Price, cmp.EarlyExercisePremium)

	// The same comparison as the server reports it, with presentation rounding.
	if shown, err := pricer.Default().Compare(finest); err == nil {
		fmt.Printf("📋 Rounded: American %.2f, European %.2f, premium %.2f\n",
			shown.American.Price, shown.European.Price, shown.EarlyExercisePremium)
	}
}

func resolveExpiry(years float64, date string, now time.Time) (float64, string, error) {
	if years > 0 {
		return years, "from -years", nil
	}
	if date == "" {
		date = utils.NextOptionsExpiration(now).Format(utils.DateLayout)
	}
	T, err := utils.ParseExpiration(date, now)
	if err != nil {
		return 0, "", err
	}
	return T, date, nil
}
