package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
environment: dev
base_currency: USDC
poll_interval_seconds: 30
primary:
  name: hyperliquid
  base_url: https://api.hyperliquid.xyz
  symbols: [ETH, BTC]
  credentials_env: PRIMARY
hedge:
  name: lighter
  base_url: https://api.lighter.xyz
  symbols: [ETH, BTC]
  credentials_env: HEDGE
risk:
  max_total_notional: 10000
  max_symbol_notional: 3000
  max_leverage: 5
  margin_buffer_ratio: 0.2
  drift_threshold_bps: 50
strategy:
  min_edge_bps: 20
  exit_edge_bps: 5
  funding_horizon_hours: 8
  rebalance_interval_seconds: 60
  stale_data_seconds: 120
  tracked_symbols: [ETH, BTC]
execution:
  order_notional: 1000
  time_in_force: ioc
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Strategy.MinEdgeBps != 20 || cfg.Strategy.ExitEdgeBps != 5 {
		t.Errorf("unexpected strategy config: %+v", cfg.Strategy)
	}
	if cfg.Execution.SlippageBps != 5 {
		t.Errorf("expected default slippage_bps of 5, got %v", cfg.Execution.SlippageBps)
	}
	if cfg.Execution.MaxSpreadBps != 10 {
		t.Errorf("expected default max_spread_bps of 10, got %v", cfg.Execution.MaxSpreadBps)
	}
}

func TestLoadRejectsBadHysteresis(t *testing.T) {
	path := writeTempConfig(t, strings.Replace(validYAML, "exit_edge_bps: 5", "exit_edge_bps: 25", 1))
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for exit_edge_bps >= min_edge_bps")
	}
}

func TestLoadRejectsMissingTrackedSymbols(t *testing.T) {
	path := writeTempConfig(t, strings.Replace(validYAML, "tracked_symbols: [ETH, BTC]", "tracked_symbols: []", 1))
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty tracked_symbols")
	}
}
