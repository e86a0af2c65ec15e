package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies JANUSD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known JANUSD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.TokenName, "JANUSD_CHAIN_TOKEN_NAME")
	setStr(&cfg.Chain.TokenSymbol, "JANUSD_CHAIN_TOKEN_SYMBOL")
	setStr(&cfg.Chain.StakeAmount, "JANUSD_CHAIN_STAKE_AMOUNT")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "JANUSD_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.PrivateKey, "ORACLE_PRIVATE_KEY") // compatibility alias
	setStr(&cfg.Wallet.EncryptedKeyPath, "JANUSD_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "JANUSD_WALLET_KEY_PASSWORD")

	// ── Feed ──
	setStr(&cfg.Feed.BaseURL, "JANUSD_FEED_BASE_URL")
	setStr(&cfg.Feed.SessionType, "JANUSD_FEED_SESSION_TYPE")
	setInt(&cfg.Feed.Year, "JANUSD_FEED_YEAR")
	setDuration(&cfg.Feed.Timeout, "JANUSD_FEED_TIMEOUT")
	setInt(&cfg.Feed.RetryCount, "JANUSD_FEED_RETRY_COUNT")

	// ── Oracle ──
	setDuration(&cfg.Oracle.PollInterval, "JANUSD_ORACLE_POLL_INTERVAL")
	setDuration(&cfg.Oracle.CallThrottle, "JANUSD_ORACLE_CALL_THROTTLE")
	setDuration(&cfg.Oracle.RetryBackoff, "JANUSD_ORACLE_RETRY_BACKOFF")
	setInt(&cfg.Oracle.RetryAttempts, "JANUSD_ORACLE_RETRY_ATTEMPTS")
	setDuration(&cfg.Oracle.LockTTL, "JANUSD_ORACLE_LOCK_TTL")
	setInt(&cfg.Oracle.FailureAlertThreshold, "JANUSD_ORACLE_FAILURE_ALERT_THRESHOLD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "JANUSD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "JANUSD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "JANUSD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "JANUSD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "JANUSD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "JANUSD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "JANUSD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "JANUSD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "JANUSD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "JANUSD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "JANUSD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "JANUSD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "JANUSD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "JANUSD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "JANUSD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "JANUSD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "JANUSD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "JANUSD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "JANUSD_S3_REGION")
	setStr(&cfg.S3.Bucket, "JANUSD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "JANUSD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "JANUSD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "JANUSD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "JANUSD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "JANUSD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "JANUSD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "JANUSD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "JANUSD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "JANUSD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "JANUSD_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "JANUSD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "JANUSD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "JANUSD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "JANUSD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "JANUSD_MODE")
	setStr(&cfg.LogLevel, "JANUSD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
