// Package config defines the top-level configuration for janusd and provides
// validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by JANUSD_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Wallet   WalletConfig   `toml:"wallet"`
	Feed     FeedConfig     `toml:"feed"`
	Oracle   OracleConfig   `toml:"oracle"`
	Seed     SeedConfig     `toml:"seed"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds the deployed-ledger parameters.
type ChainConfig struct {
	TokenName   string `toml:"token_name"`
	TokenSymbol string `toml:"token_symbol"`
	// StakeAmount is the fixed per-stake token amount, as a decimal string
	// in base units (wei-style, 18 decimals).
	StakeAmount string `toml:"stake_amount"`
}

// WalletConfig holds the oracle signing key. The wallet address is both the
// administrative owner of the ledgers and the oracle authority in the
// single-key demo deployment.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// FeedConfig holds the results-feed endpoint parameters.
type FeedConfig struct {
	BaseURL     string   `toml:"base_url"`
	SessionType string   `toml:"session_type"`
	Year        int      `toml:"year"`
	Timeout     duration `toml:"timeout"`
	RetryCount  int      `toml:"retry_count"`
}

// OracleConfig holds the settlement-loop parameters.
type OracleConfig struct {
	PollInterval duration `toml:"poll_interval"`
	// CallThrottle is the pause between consecutive mutating calls within
	// one iteration, avoiding nonce collisions on the signing key.
	CallThrottle duration `toml:"call_throttle"`
	// RetryBackoff is the wait before the single retry of a transient
	// submission failure.
	RetryBackoff  duration `toml:"retry_backoff"`
	RetryAttempts int      `toml:"retry_attempts"`
	// LockTTL bounds how long the loop's distributed lock may outlive a
	// crashed holder.
	LockTTL duration `toml:"lock_ttl"`
	// FailureAlertThreshold is the number of consecutive failed iterations
	// after which a notification is sent.
	FailureAlertThreshold int `toml:"failure_alert_threshold"`
}

// SeedConfig holds amounts for the one-shot seed mode, all decimal strings in
// base units.
type SeedConfig struct {
	TokenSupply    string       `toml:"token_supply"`
	LiquidityBase  string       `toml:"liquidity_base"`
	LiquidityQuote string       `toml:"liquidity_quote"`
	Markets        []SeedMarket `toml:"markets"`
}

// SeedMarket describes one demo market created by seed mode.
type SeedMarket struct {
	Description string `toml:"description"`
	Entrant     int    `toml:"entrant"`
	Predicate   string `toml:"predicate"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds object-storage parameters for the session archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables bearer/X-API-Key auth when non-empty.
	APIKey string `toml:"api_key"`
	// RateLimit is requests per client per RateWindow. Zero disables it.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			TokenName:   "McLaren Token",
			TokenSymbol: "MCLAREN",
			StakeAmount: "10000000000000000000", // 10 tokens
		},
		Feed: FeedConfig{
			BaseURL:     "https://api.openf1.org/v1",
			SessionType: "Race",
			Year:        2024,
			Timeout:     duration{10 * time.Second},
			RetryCount:  2,
		},
		Oracle: OracleConfig{
			PollInterval:          duration{30 * time.Second},
			CallThrottle:          duration{500 * time.Millisecond},
			RetryBackoff:          duration{time.Second},
			RetryAttempts:         2,
			LockTTL:               duration{2 * time.Minute},
			FailureAlertThreshold: 3,
		},
		Seed: SeedConfig{
			TokenSupply:    "1000000000000000000000000", // 1M tokens
			LiquidityBase:  "10000000000000000000",      // 10 native
			LiquidityQuote: "10000000000000000000000",   // 10k tokens
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "janusd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "janusd-sessions",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"market_resolved", "oracle_error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"oracle": true,
	"server": true,
	"seed":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validPredicates enumerates the accepted seed-market predicate kinds.
var validPredicates = map[string]bool{
	"wins":   true,
	"podium": true,
	"top10":  true,
}

// StakeAmount parses the configured stake amount.
func (c *ChainConfig) StakeAmount256() (*big.Int, error) {
	return parseAmount(c.StakeAmount, "chain.stake_amount")
}

func parseAmount(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("config: %s: %q is not a positive decimal", field, s)
	}
	return v, nil
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var problems []string

	if !validModes[strings.ToLower(c.Mode)] {
		problems = append(problems, fmt.Sprintf("mode: unsupported value %q", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		problems = append(problems, fmt.Sprintf("log_level: unsupported value %q", c.LogLevel))
	}

	if _, err := c.Chain.StakeAmount256(); err != nil {
		problems = append(problems, err.Error())
	}

	if strings.TrimSpace(c.Feed.BaseURL) == "" {
		problems = append(problems, "feed.base_url: must not be empty")
	}
	if c.Feed.Timeout.Duration <= 0 {
		problems = append(problems, "feed.timeout: must be positive")
	}

	if c.Oracle.PollInterval.Duration <= 0 {
		problems = append(problems, "oracle.poll_interval: must be positive")
	}
	if c.Oracle.RetryAttempts < 1 {
		problems = append(problems, "oracle.retry_attempts: must be at least 1")
	}

	mode := strings.ToLower(c.Mode)
	if mode == "oracle" || mode == "seed" || mode == "full" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			problems = append(problems,
				"wallet: a private_key or encrypted_key_path is required in oracle/seed/full mode")
		}
	}

	for i, m := range c.Seed.Markets {
		if !validPredicates[m.Predicate] {
			problems = append(problems,
				fmt.Sprintf("seed.markets[%d].predicate: unsupported value %q", i, m.Predicate))
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port: invalid port %d", c.Server.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
