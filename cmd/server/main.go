package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwaldner/optionsengine/internal/audit"
	"github.com/jwaldner/optionsengine/internal/config"
	"github.com/jwaldner/optionsengine/internal/handlers"
	"github.com/jwaldner/optionsengine/internal/logger"
	"github.com/jwaldner/optionsengine/internal/metrics"
	"github.com/jwaldner/optionsengine/internal/models"
	"github.com/jwaldner/optionsengine/internal/services"
	pricer "github.com/jwaldner/optionsengine/pricer_lib"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize proper logging with config level and file path
	if err := logger.InitWithConfig(cfg.Logging.LogLevel, cfg.Logging.LogFile); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger.Always.Printf("🚀 Options pricing engine starting - Port: %s", cfg.Port)
	logger.Always.Printf("📜 Log level: %s", logger.Level())

	if cfg.Logging.LogLevel == "verbose" {
		fmt.Printf("⚠️  VERBOSE LOGGING ENABLED - every audit operation will be logged to %s\n", cfg.Logging.LogFile)
	}

	pricerCfg := cfg.PricerConfig()
	engine, err := pricer.NewEngine(pricerCfg)
	if err != nil {
		log.Fatalf("❌ Invalid engine configuration: %v", err)
	}
	logger.Always.Printf("🔧 ENGINE: default steps=%d, bumps vol=%.4f rate=%.4f, parallel greeks=%t, rounding=%t (%d/%d places)",
		pricerCfg.DefaultSteps, pricerCfg.VolBump, pricerCfg.RateBump, pricerCfg.ParallelGreeks,
		pricerCfg.Rounding.Enabled, pricerCfg.Rounding.PricePlaces, pricerCfg.Rounding.GreekPlaces)

	wrapper := metrics.NewPerformanceWrapper(engine, time.Duration(cfg.SlowCallMillis)*time.Millisecond)
	defer wrapper.Close()

	var auditor audit.PricingAuditor = audit.NopAuditor{}
	if cfg.Audit.Enabled {
		jsonl, err := audit.NewJSONLAuditLogger(cfg.Audit.File, cfg.Audit.BufferSize)
		if err != nil {
			log.Fatalf("❌ Failed to start audit trail: %v", err)
		}
		auditor = jsonl
		logger.Always.Printf("📝 AUDIT: writing pricing audit trail to %s", cfg.Audit.File)
	}
	defer auditor.Close()

	summary := models.EngineSummary{
		DefaultSteps:   pricerCfg.DefaultSteps,
		MaxSteps:       cfg.Engine.MaxSteps,
		VolBump:        pricerCfg.VolBump,
		RateBump:       pricerCfg.RateBump,
		ParallelGreeks: pricerCfg.ParallelGreeks,
		Rounding:       pricerCfg.Rounding.Enabled,
		PricePlaces:    pricerCfg.Rounding.PricePlaces,
		GreekPlaces:    pricerCfg.Rounding.GreekPlaces,
	}
	requests := services.NewRequestService(cfg.Engine.MaxSteps, cfg.Engine.MaxBatchSize)
	pricingHandler := handlers.NewPricingHandler(wrapper, requests, auditor, summary, cfg.CORSAllowedOrigins)

	// Setup router
	r := mux.NewRouter()
	pricingHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Always.Printf("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("❌ Shutdown: %v", err)
		}
	}()

	// Start server
	fmt.Printf("🌐 Server starting on http://localhost:%s\n", cfg.Port)
	logger.Always.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error.Printf("❌ Server failed: %v", err)
		return
	}
}
