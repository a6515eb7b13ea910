// Package config loads and validates the trader's YAML configuration, with
// venue credentials sourced from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment environment a config targets.
type Environment string

const (
	EnvProd    Environment = "prod"
	EnvStaging Environment = "staging"
	EnvDev     Environment = "dev"
)

// Credentials holds venue auth material, always sourced from environment
// variables — never written to the YAML file.
type Credentials struct {
	APIKey        string `yaml:"-"`
	APISecret     string `yaml:"-"`
	Passphrase    string `yaml:"-"`
	PrivateKeyHex string `yaml:"-"`
}

// VenueConfig describes one of the two venues (Primary/Hedge).
type VenueConfig struct {
	Name            string   `yaml:"name"`
	BaseURL         string   `yaml:"base_url"`
	WebsocketURL    string   `yaml:"websocket_url,omitempty"`
	NATSURL         string   `yaml:"nats_url,omitempty"`
	Symbols         []string `yaml:"symbols"`
	AccountID       string   `yaml:"account_id,omitempty"`
	AccountAddress  string   `yaml:"account_address,omitempty"`
	CredentialsEnv  string   `yaml:"credentials_env"` // prefix, e.g. "PRIMARY"
	Credentials     Credentials `yaml:"-"`
}

// RiskConfig carries the portfolio-wide risk limits.
type RiskConfig struct {
	MaxTotalNotional  float64 `yaml:"max_total_notional"`
	MaxSymbolNotional float64 `yaml:"max_symbol_notional"`
	MaxLeverage       float64 `yaml:"max_leverage"`
	MarginBufferRatio float64 `yaml:"margin_buffer_ratio"`
	DriftThresholdBps float64 `yaml:"drift_threshold_bps"`
}

// StrategyConfig carries the entry/exit thresholds and symbol universe.
type StrategyConfig struct {
	MinEdgeBps              float64  `yaml:"min_edge_bps"`
	ExitEdgeBps              float64  `yaml:"exit_edge_bps"`
	FundingHorizonHours      float64  `yaml:"funding_horizon_hours"`
	RebalanceIntervalSeconds float64  `yaml:"rebalance_interval_seconds"`
	StaleDataSeconds         float64  `yaml:"stale_data_seconds"`
	TrackedSymbols           []string `yaml:"tracked_symbols"`
}

// ExecutionConfig carries the per-order execution parameters.
type ExecutionConfig struct {
	OrderNotional float64 `yaml:"order_notional"`
	SlippageBps   float64 `yaml:"slippage_bps"`
	MaxSpreadBps  float64 `yaml:"max_spread_bps"`
	TimeInForce   string  `yaml:"time_in_force"`
}

// TraderConfig is the root configuration document.
type TraderConfig struct {
	Environment         Environment `yaml:"environment"`
	BaseCurrency        string      `yaml:"base_currency"`
	PollIntervalSeconds float64     `yaml:"poll_interval_seconds"`
	MaxPositions        int         `yaml:"max_positions"`
	MetricsEnabled      bool        `yaml:"metrics_enabled"`
	MetricsAddr         string      `yaml:"metrics_addr"`
	PositionsFile       string      `yaml:"positions_file"`
	PnLFile             string      `yaml:"pnl_file"`

	Primary VenueConfig `yaml:"primary"`
	Hedge   VenueConfig `yaml:"hedge"`

	Risk      RiskConfig      `yaml:"risk"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Execution ExecutionConfig `yaml:"execution"`
}

// Load reads path, overlays an optional .env file for credentials, and
// validates the result.
func Load(path string) (*TraderConfig, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.Primary.Credentials = loadCredentials(cfg.Primary.CredentialsEnv)
	cfg.Hedge.Credentials = loadCredentials(cfg.Hedge.CredentialsEnv)
	if cfg.Execution.SlippageBps == 0 {
		cfg.Execution.SlippageBps = 5
	}
	if cfg.Execution.MaxSpreadBps == 0 {
		cfg.Execution.MaxSpreadBps = 10
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *TraderConfig {
	return &TraderConfig{
		Environment:    EnvDev,
		BaseCurrency:   "USDC",
		MaxPositions:   5,
		MetricsAddr:    ":9100",
		PositionsFile:  ".positions.json",
		PnLFile:        ".pnl_state.json",
	}
}

func loadCredentials(prefix string) Credentials {
	if prefix == "" {
		return Credentials{}
	}
	return Credentials{
		APIKey:        os.Getenv(prefix + "_API_KEY"),
		APISecret:     os.Getenv(prefix + "_API_SECRET"),
		Passphrase:    os.Getenv(prefix + "_PASSPHRASE"),
		PrivateKeyHex: os.Getenv(prefix + "_PRIVATE_KEY"),
	}
}

// Validate enforces the range constraints on every configured field.
func (c *TraderConfig) Validate() error {
	var errs []string

	switch c.Environment {
	case EnvProd, EnvStaging, EnvDev:
	default:
		errs = append(errs, fmt.Sprintf("environment must be one of prod/staging/dev, got %q", c.Environment))
	}
	if c.PollIntervalSeconds <= 0 {
		errs = append(errs, "poll_interval_seconds must be > 0")
	}

	if len(c.Primary.Symbols) == 0 {
		errs = append(errs, "primary.symbols must be non-empty")
	}
	if len(c.Hedge.Symbols) == 0 {
		errs = append(errs, "hedge.symbols must be non-empty")
	}

	if c.Risk.MaxTotalNotional <= 0 {
		errs = append(errs, "risk.max_total_notional must be > 0")
	}
	if c.Risk.MaxSymbolNotional <= 0 {
		errs = append(errs, "risk.max_symbol_notional must be > 0")
	}
	if c.Risk.MaxLeverage <= 0 {
		errs = append(errs, "risk.max_leverage must be > 0")
	}
	if c.Risk.MarginBufferRatio <= 0 || c.Risk.MarginBufferRatio >= 1 {
		errs = append(errs, "risk.margin_buffer_ratio must be in (0,1)")
	}
	if c.Risk.DriftThresholdBps <= 0 {
		errs = append(errs, "risk.drift_threshold_bps must be > 0")
	}

	if c.Strategy.MinEdgeBps <= 0 {
		errs = append(errs, "strategy.min_edge_bps must be > 0")
	}
	if c.Strategy.ExitEdgeBps <= 0 {
		errs = append(errs, "strategy.exit_edge_bps must be > 0")
	}
	if c.Strategy.ExitEdgeBps >= c.Strategy.MinEdgeBps {
		errs = append(errs, "strategy.exit_edge_bps must be < strategy.min_edge_bps")
	}
	if c.Strategy.FundingHorizonHours <= 0 {
		errs = append(errs, "strategy.funding_horizon_hours must be > 0")
	}
	if c.Strategy.RebalanceIntervalSeconds <= 0 {
		errs = append(errs, "strategy.rebalance_interval_seconds must be > 0")
	}
	if c.Strategy.StaleDataSeconds <= 0 {
		errs = append(errs, "strategy.stale_data_seconds must be > 0")
	}
	if len(c.Strategy.TrackedSymbols) == 0 {
		errs = append(errs, "strategy.tracked_symbols must have at least one entry")
	}

	if c.Execution.OrderNotional <= 0 {
		errs = append(errs, "execution.order_notional must be > 0")
	}
	if c.Execution.SlippageBps <= 0 {
		errs = append(errs, "execution.slippage_bps must be > 0")
	}
	if c.Execution.MaxSpreadBps <= 0 {
		errs = append(errs, "execution.max_spread_bps must be > 0")
	}
	switch c.Execution.TimeInForce {
	case "ioc", "gtt", "post_only":
	default:
		errs = append(errs, fmt.Sprintf("execution.time_in_force must be one of ioc/gtt/post_only, got %q", c.Execution.TimeInForce))
	}

	if len(errs) == 0 {
		return nil
	}
	msg := errs[0]
	for _, e := range errs[1:] {
		msg += "; " + e
	}
	return fmt.Errorf("%s", msg)
}
