// Package config loads process configuration from the environment (and an
// optional .env file), mirroring the env table recognized by the core
// pipeline components: detection tuning, Redis connection, and the
// NODE_ENV production guards.
//
// Grounded on the reference implementation's cmd/server/main.go loadEnvFile/flag wiring,
// generalized from flag-plus-env to env-only since this service has no
// CLI surface of its own beyond the control HTTP server's listen address.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sonicx222/arbitrage-coordinator/internal/detection"
)

// ConfigurationError reports a fatal startup misconfiguration: an invalid
// REDIS_URL protocol, or a missing production guard.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// allowedRedisProtocols are the URL schemes REDIS_URL may use.
var allowedRedisProtocols = []string{"redis:", "rediss:", "redis+sentinel:"}

// Config is the fully resolved process configuration.
type Config struct {
	NodeEnv string

	RedisURL string

	Detection detection.Config

	ControlAddr string

	ServiceName string
	InstanceID  string

	// Candidate-stream consumption. The core itself never reads a stream
	//; these
	// name the consumer-group read loop that sits in cmd/coordinator and
	// feeds Router.ProcessOpportunity.
	CandidateStreamName string
	ConsumerGroup       string

	// IsLeader is a static snapshot of the external leader-election result.
	// Real leader election is an out-of-scope external collaborator; this
	// process takes the boolean as given, defaulting to true for
	// single-instance deployments.
	IsLeader bool

	// Optional observability sinks. Empty means the sink is not wired.
	PostgresDSN   string
	ClickHouseDSN string

	// External-collaborator settings, recognized for completeness but not
	// consumed by any component in this process.
	APIRateLimitWindowMs int64
	APIRateLimitMax      int64
	HeliusAPIKey         string
	TritonAPIKey         string
	SolanaRPCURL         string
	SolanaDevnetRPCURL   string
	PartitionChains      string
}

// Load reads process configuration from the environment, first merging in
// a ".env" file (existing env vars win) the way the reference implementation's
// cmd/server/main.go does. It validates production guards and REDIS_URL's
// protocol, returning a *ConfigurationError when NODE_ENV=production and a
// required setting is missing, or when REDIS_URL's scheme is unrecognized.
// Validation is bypassed entirely when NODE_ENV=test.
func Load() (Config, error) {
	loadEnvFile(".env")

	nodeEnv := os.Getenv("NODE_ENV")

	cfg := Config{
		NodeEnv:     nodeEnv,
		RedisURL:    os.Getenv("REDIS_URL"),
		Detection:   detectionConfigFromEnv(),
		ControlAddr: envOrDefault("CONTROL_ADDR", ":9090"),
		ServiceName: envOrDefault("SERVICE_NAME", "opportunity-router"),
		InstanceID:  envOrDefault("INSTANCE_ID", "router-1"),

		CandidateStreamName: envOrDefault("CANDIDATE_STREAM_NAME", "stream:candidate-opportunities"),
		ConsumerGroup:       envOrDefault("CONSUMER_GROUP", "router-consumers"),
		IsLeader:            envBoolOrDefault("IS_LEADER", true),

		PostgresDSN:   os.Getenv("AUDIT_POSTGRES_DSN"),
		ClickHouseDSN: os.Getenv("ANALYTICS_CLICKHOUSE_DSN"),

		APIRateLimitWindowMs: envInt64("API_RATE_LIMIT_WINDOW_MS", 60000),
		APIRateLimitMax:      envInt64("API_RATE_LIMIT_MAX", 100),
		HeliusAPIKey:         os.Getenv("HELIUS_API_KEY"),
		TritonAPIKey:         os.Getenv("TRITON_API_KEY"),
		SolanaRPCURL:         os.Getenv("SOLANA_RPC_URL"),
		SolanaDevnetRPCURL:   os.Getenv("SOLANA_DEVNET_RPC_URL"),
		PartitionChains:      os.Getenv("PARTITION_CHAINS"),
	}

	if nodeEnv == "test" {
		return cfg, nil
	}

	if nodeEnv == "production" {
		if cfg.RedisURL == "" {
			return cfg, &ConfigurationError{Reason: "REDIS_URL is required in production"}
		}
		if cfg.HeliusAPIKey == "" && cfg.TritonAPIKey == "" {
			return cfg, &ConfigurationError{Reason: "one of HELIUS_API_KEY or TRITON_API_KEY is required in production"}
		}
	}

	if cfg.RedisURL != "" && !hasAllowedProtocol(cfg.RedisURL) {
		return cfg, &ConfigurationError{Reason: fmt.Sprintf("REDIS_URL has unsupported protocol: %s", cfg.RedisURL)}
	}

	return cfg, nil
}

func hasAllowedProtocol(url string) bool {
	for _, p := range allowedRedisProtocols {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

func detectionConfigFromEnv() detection.Config {
	cfg := detection.DefaultConfig()

	if v, ok := envFloat("MIN_PROFIT_THRESHOLD"); ok {
		cfg.MinProfitThreshold = v
	}
	if v, ok := envInt("MAX_TRIANGULAR_DEPTH"); ok {
		cfg.MaxTriangularDepth = v
	}
	if v, ok := envInt64Opt("OPPORTUNITY_EXPIRY_MS"); ok {
		cfg.OpportunityExpiryMs = v
	}
	if v, ok := envFloat("SOLANA_DEFAULT_TRADE_VALUE_USD"); ok {
		cfg.DefaultTradeValueUsd = v
	}
	if v, ok := envBool("CROSS_CHAIN_ENABLED"); ok {
		cfg.CrossChainEnabled = v
	}
	if v, ok := envBool("TRIANGULAR_ENABLED"); ok {
		cfg.TriangularEnabled = v
	}

	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, ok := envInt64Opt(key); ok {
		return v
	}
	return def
}

func envInt64Opt(key string) (int64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	v, ok := envInt64Opt(key)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBoolOrDefault(key string, def bool) bool {
	if v, ok := envBool(key); ok {
		return v
	}
	return def
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// loadEnvFile merges KEY=VALUE pairs from path into the process environment,
// skipping blanks and #-comments. Existing env vars are never overridden.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
