package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	// Modes needing a wallet reject the empty default key material.
	cfg.Mode = "server"
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Chain.StakeAmount = "-5"
	cfg.Feed.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "mode")
	require.Contains(t, err.Error(), "stake_amount")
	require.Contains(t, err.Error(), "feed.base_url")
}

func TestValidateRequiresWalletForOracleMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "oracle"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	require.NoError(t, cfg.Validate())
}

func TestValidateSeedMarketPredicates(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	cfg.Seed.Markets = []SeedMarket{
		{Description: "Verstappen wins", Entrant: 1, Predicate: "wins"},
		{Description: "Norris fastest lap", Entrant: 4, Predicate: "fastest_lap"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "seed.markets[1].predicate")
}

func TestStakeAmount256(t *testing.T) {
	c := ChainConfig{StakeAmount: "10000000000000000000"}
	v, err := c.StakeAmount256()
	require.NoError(t, err)
	require.Equal(t, "10000000000000000000", v.String())

	c.StakeAmount = "zero"
	_, err = c.StakeAmount256()
	require.Error(t, err)
}

func TestLoadTOMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "server"
log_level = "debug"

[feed]
base_url = "https://feed.example.com/v1"
year = 2023
timeout = "5s"

[oracle]
poll_interval = "45s"

[[seed.markets]]
description = "Verstappen wins"
entrant = 1
predicate = "wins"
`), 0o600))

	t.Setenv("JANUSD_SERVER_PORT", "9100")
	t.Setenv("JANUSD_FEED_YEAR", "2025")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "server", cfg.Mode)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "https://feed.example.com/v1", cfg.Feed.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Feed.Timeout.Duration)
	require.Equal(t, 45*time.Second, cfg.Oracle.PollInterval.Duration)
	require.Len(t, cfg.Seed.Markets, 1)

	// Environment overrides beat the file.
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, 2025, cfg.Feed.Year)

	// Untouched fields keep their defaults.
	require.Equal(t, "MCLAREN", cfg.Chain.TokenSymbol)
	require.Equal(t, 120, cfg.Server.RateLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
