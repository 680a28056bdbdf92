package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// EngineConfig represents pricing engine configuration
type EngineConfig struct {
	DefaultSteps   int     `yaml:"default_steps"`   // Lattice steps when a request omits them
	MaxSteps       int     `yaml:"max_steps"`       // Upper bound accepted from HTTP requests
	VolBump        float64 `yaml:"vol_bump"`        // Lattice vega bump (absolute vol)
	RateBump       float64 `yaml:"rate_bump"`       // Lattice rho bump (absolute rate)
	ParallelGreeks *bool   `yaml:"parallel_greeks"` // Rebuild bumped trees concurrently
	BatchWorkers   int     `yaml:"batch_workers"`   // 0 = GOMAXPROCS
	MaxBatchSize   int     `yaml:"max_batch_size"`  // Max entries per /api/price/batch call
	Rounding       *bool   `yaml:"rounding"`        // Presentation rounding on/off
	PricePlaces    *int    `yaml:"price_places"`    // nil keeps the default; 0 rounds to whole units
	GreekPlaces    *int    `yaml:"greek_places"`
}

// AuditConfig represents the pricing audit trail configuration
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	File       string `yaml:"file"`
	BufferSize int    `yaml:"buffer_size"`
}

type Config struct {
	// Server settings
	Port               string
	SlowCallMillis     int
	ConfigFile         string
	CORSAllowedOrigins string

	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Audit   AuditConfig   `yaml:"audit"`
}

type YAMLConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		SlowCallMillis int    `yaml:"slow_call_ms"`
		CORSOrigins    string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Logging LoggingConfig `yaml:"logging"`
	Engine  EngineConfig  `yaml:"engine"`
	Audit   AuditConfig   `yaml:"audit"`
}

// Load reads .env (never overriding the real environment), then environment
// variables, then config.yaml (or $CONFIG_FILE) on top.
func Load() *Config {
	_ = godotenv.Load()
	return LoadFrom(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadFrom builds the configuration using the given YAML path. A missing or
// unparsable file leaves the environment/default values in place.
func LoadFrom(path string) *Config {
	parallel := getEnvBool("ENGINE_PARALLEL_GREEKS", true)
	rounding := getEnvBool("ENGINE_ROUNDING", true)
	pricePlaces := getEnvInt("ENGINE_PRICE_PLACES", 2)
	greekPlaces := getEnvInt("ENGINE_GREEK_PLACES", 3)

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		SlowCallMillis:     getEnvInt("SLOW_CALL_MS", 250),
		ConfigFile:         path,
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		Logging: LoggingConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
			LogFile:  getEnv("LOG_FILE", "pricing.log"),
		},

		// Default engine configuration
		Engine: EngineConfig{
			DefaultSteps:   getEnvInt("ENGINE_DEFAULT_STEPS", pricer.DefaultSteps),
			MaxSteps:       getEnvInt("ENGINE_MAX_STEPS", 5000),
			VolBump:        getEnvFloat("ENGINE_VOL_BUMP", 0.01),
			RateBump:       getEnvFloat("ENGINE_RATE_BUMP", 0.01),
			ParallelGreeks: &parallel,
			BatchWorkers:   getEnvInt("ENGINE_BATCH_WORKERS", 0),
			MaxBatchSize:   getEnvInt("ENGINE_MAX_BATCH_SIZE", 500),
			Rounding:       &rounding,
			PricePlaces:    &pricePlaces,
			GreekPlaces:    &greekPlaces,
		},

		Audit: AuditConfig{
			Enabled:    getEnvBool("AUDIT_ENABLED", false),
			File:       getEnv("AUDIT_FILE", "audits/pricing.jsonl"),
			BufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 100),
		},
	}

	yamlCfg := loadYAMLConfig(path)
	if yamlCfg == nil {
		return cfg
	}

	if yamlCfg.Server.Port != "" {
		cfg.Port = yamlCfg.Server.Port
	}
	if yamlCfg.Server.SlowCallMillis > 0 {
		cfg.SlowCallMillis = yamlCfg.Server.SlowCallMillis
	}
	if yamlCfg.Server.CORSOrigins != "" {
		cfg.CORSAllowedOrigins = yamlCfg.Server.CORSOrigins
	}

	// Logging configuration from YAML
	if yamlCfg.Logging.LogLevel != "" {
		cfg.Logging.LogLevel = yamlCfg.Logging.LogLevel
	}
	if yamlCfg.Logging.LogFile != "" {
		cfg.Logging.LogFile = yamlCfg.Logging.LogFile
	}

	// Engine configuration from YAML, field by field so partial sections work
	e := yamlCfg.Engine
	if e.DefaultSteps > 0 {
		cfg.Engine.DefaultSteps = e.DefaultSteps
	}
	if e.MaxSteps > 0 {
		cfg.Engine.MaxSteps = e.MaxSteps
	}
	if e.VolBump > 0 {
		cfg.Engine.VolBump = e.VolBump
	}
	if e.RateBump > 0 {
		cfg.Engine.RateBump = e.RateBump
	}
	if e.ParallelGreeks != nil {
		cfg.Engine.ParallelGreeks = e.ParallelGreeks
	}
	if e.BatchWorkers > 0 {
		cfg.Engine.BatchWorkers = e.BatchWorkers
	}
	if e.MaxBatchSize > 0 {
		cfg.Engine.MaxBatchSize = e.MaxBatchSize
	}
	if e.Rounding != nil {
		cfg.Engine.Rounding = e.Rounding
	}
	if e.PricePlaces != nil {
		cfg.Engine.PricePlaces = e.PricePlaces
	}
	if e.GreekPlaces != nil {
		cfg.Engine.GreekPlaces = e.GreekPlaces
	}

	// Audit configuration from YAML
	if yamlCfg.Audit.Enabled {
		cfg.Audit.Enabled = true
	}
	if yamlCfg.Audit.File != "" {
		cfg.Audit.File = yamlCfg.Audit.File
	}
	if yamlCfg.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = yamlCfg.Audit.BufferSize
	}

	return cfg
}

// PricerConfig converts the engine section into the pricer's own config.
func (c *Config) PricerConfig() pricer.Config {
	pc := pricer.DefaultConfig()
	pc.DefaultSteps = c.Engine.DefaultSteps
	pc.VolBump = c.Engine.VolBump
	pc.RateBump = c.Engine.RateBump
	pc.BatchWorkers = c.Engine.BatchWorkers
	if c.Engine.ParallelGreeks != nil {
		pc.ParallelGreeks = *c.Engine.ParallelGreeks
	}
	if c.Engine.Rounding != nil {
		pc.Rounding.Enabled = *c.Engine.Rounding
	}
	if c.Engine.PricePlaces != nil {
		pc.Rounding.PricePlaces = int32(*c.Engine.PricePlaces)
	}
	if c.Engine.GreekPlaces != nil {
		pc.Rounding.GreekPlaces = int32(*c.Engine.GreekPlaces)
	}
	return pc
}

func loadYAMLConfig(path string) *YAMLConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		// Could not read config file - silently return nil
		return nil
	}

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		// Could not parse config file - silently return nil
		return nil
	}

	return &yamlCfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
