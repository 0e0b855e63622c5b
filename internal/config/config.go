// Package config loads run settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/contactkeval/fintech-modeler/internal/logger"
	"github.com/contactkeval/fintech-modeler/internal/pricing"
	"github.com/contactkeval/fintech-modeler/internal/volatility"
)

// PricingConfig describes the option chain priced at the end of a run.
type PricingConfig struct {
	Method         string    `yaml:"method"`  // bs, binomial
	Periods        int       `yaml:"periods"` // binomial lattice steps
	RiskFreeRate   float64   `yaml:"risk_free_rate"`
	ExpirationDays []int     `yaml:"expiration_days"`
	Strikes        []float64 `yaml:"strikes"`         // explicit strikes; empty means a ladder around spot
	StrikeInterval float64   `yaml:"strike_interval"` // ladder step
	StrikeCount    int       `yaml:"strike_count"`    // ladder strikes on each side of spot
}

type RedisConfig struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

type Config struct {
	// Data settings
	Provider string `yaml:"provider"` // massive, polygon, csv, synthetic
	Fallback string `yaml:"fallback"` // secondary provider, empty for none
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	DataDir  string `yaml:"data_dir"`
	Seed     int64  `yaml:"seed"`

	// Volatility settings
	Ticker         string   `yaml:"ticker"`
	StartMonth     int      `yaml:"start_month"`
	EndMonth       int      `yaml:"end_month"`
	Window         int      `yaml:"window"`
	PeriodsPerYear float64  `yaml:"periods_per_year"`
	Methods        []string `yaml:"methods"`
	MinVolatility  float64  `yaml:"min_volatility"`
	MaxVolatility  float64  `yaml:"max_volatility"`

	Pricing PricingConfig `yaml:"pricing"`

	ReportDir string      `yaml:"report_dir"`
	Verbosity string      `yaml:"verbosity"`
	Redis     RedisConfig `yaml:"redis"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Provider:       "massive",
		Fallback:       "synthetic",
		Seed:           1,
		Ticker:         "AAPL",
		StartMonth:     6,
		EndMonth:       0,
		Window:         volatility.DefaultWindow,
		PeriodsPerYear: volatility.DefaultPeriodsPerYear,
		Methods:        []string{string(volatility.MethodGonum), string(volatility.MethodWindowed)},
		MinVolatility:  0.01,
		MaxVolatility:  3,
		Pricing: PricingConfig{
			Method:         string(pricing.MethodBS),
			Periods:        100,
			RiskFreeRate:   0.05,
			ExpirationDays: []int{30},
			StrikeInterval: 5,
			StrikeCount:    3,
		},
		ReportDir: "reports",
		Verbosity: "info",
		Redis: RedisConfig{
			Stream: "fintech-modeler:runs",
		},
	}
}

// Load builds the configuration. Variables from .env in the working
// directory are added to the environment without overriding it, then the
// YAML file at path (if any) is applied over the defaults and the
// environment over both.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("could not load .env: %v", err)
	}

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Provider = getEnv("DATA_PROVIDER", cfg.Provider)
	cfg.Fallback = getEnv("DATA_FALLBACK", cfg.Fallback)
	cfg.APIKey = getEnv("MASSIVE_API_KEY", getEnv("POLYGON_API_KEY", cfg.APIKey))
	cfg.BaseURL = getEnv("DATA_BASE_URL", cfg.BaseURL)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.Seed = int64(getEnvInt("DATA_SEED", int(cfg.Seed)))

	cfg.Ticker = getEnv("TICKER", cfg.Ticker)
	cfg.StartMonth = getEnvInt("START_MONTH", cfg.StartMonth)
	cfg.EndMonth = getEnvInt("END_MONTH", cfg.EndMonth)
	cfg.Window = getEnvInt("VOL_WINDOW", cfg.Window)
	cfg.PeriodsPerYear = getEnvFloat("PERIODS_PER_YEAR", cfg.PeriodsPerYear)
	cfg.Methods = getEnvStringSlice("VOL_METHODS", cfg.Methods)

	cfg.Pricing.Method = getEnv("PRICING_METHOD", cfg.Pricing.Method)
	cfg.Pricing.RiskFreeRate = getEnvFloat("RISK_FREE_RATE", cfg.Pricing.RiskFreeRate)

	cfg.ReportDir = getEnv("REPORT_DIR", cfg.ReportDir)
	cfg.Verbosity = getEnv("LOG_LEVEL", cfg.Verbosity)
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Stream = getEnv("REDIS_STREAM", cfg.Redis.Stream)
}

// Validate reports the first invalid setting.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Ticker) == "" {
		return errors.New("ticker is required")
	}
	if cfg.StartMonth < 0 || cfg.EndMonth < 0 || cfg.EndMonth > cfg.StartMonth {
		return fmt.Errorf("invalid month range: start %d, end %d", cfg.StartMonth, cfg.EndMonth)
	}
	if cfg.Window < 2 {
		return fmt.Errorf("window must be at least 2, got %d", cfg.Window)
	}
	if cfg.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods_per_year must be positive, got %v", cfg.PeriodsPerYear)
	}
	if len(cfg.Methods) == 0 {
		return errors.New("at least one volatility method is required")
	}
	for _, m := range cfg.Methods {
		if _, err := volatility.ParseMethod(m); err != nil {
			return err
		}
	}
	if cfg.MaxVolatility > 0 && cfg.MinVolatility > cfg.MaxVolatility {
		return fmt.Errorf("min_volatility %v above max_volatility %v", cfg.MinVolatility, cfg.MaxVolatility)
	}

	method, err := pricing.ParseMethod(cfg.Pricing.Method)
	if err != nil {
		return err
	}
	if method == pricing.MethodBinomial && cfg.Pricing.Periods < 1 {
		return fmt.Errorf("binomial pricing needs at least 1 period, got %d", cfg.Pricing.Periods)
	}
	if len(cfg.Pricing.ExpirationDays) == 0 {
		return errors.New("at least one expiration is required")
	}
	for _, d := range cfg.Pricing.ExpirationDays {
		if d <= 0 {
			return fmt.Errorf("expiration days must be positive, got %d", d)
		}
	}
	if len(cfg.Pricing.Strikes) == 0 && (cfg.Pricing.StrikeInterval <= 0 || cfg.Pricing.StrikeCount < 0) {
		return errors.New("either strikes or a positive strike_interval is required")
	}
	for _, k := range cfg.Pricing.Strikes {
		if k <= 0 {
			return fmt.Errorf("strikes must be positive, got %v", k)
		}
	}

	if _, err := logger.ParseLevel(cfg.Verbosity); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		logger.Warnf("ignoring %s=%q: not an integer", key, value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		logger.Warnf("ignoring %s=%q: not a number", key, value)
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return defaultValue
}
