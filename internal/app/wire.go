package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/januslabs/janusd/internal/blob/s3"
	"github.com/januslabs/janusd/internal/cache/redis"
	"github.com/januslabs/janusd/internal/chain"
	"github.com/januslabs/janusd/internal/config"
	"github.com/januslabs/janusd/internal/crypto"
	"github.com/januslabs/janusd/internal/domain"
	"github.com/januslabs/janusd/internal/feed"
	"github.com/januslabs/janusd/internal/notify"
	"github.com/januslabs/janusd/internal/server/handler"
	"github.com/januslabs/janusd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	SettlementStore domain.SettlementStore
	AuditStore      domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.SessionArchiver

	// Chain
	Wallet *crypto.Wallet
	Node   *chain.Node
	Chain  domain.ChainClient

	// Feed
	Feed *feed.Client

	// Notifications
	Notifier *notify.Notifier

	// Pingers drive the health endpoint's dependency checks.
	Pingers map[string]handler.Pinger
}

// needsPostgres returns true for modes that require settlement persistence.
func needsPostgres(mode string) bool {
	switch mode {
	case "oracle", "full":
		return true
	default:
		return false
	}
}

// needsWallet returns true for modes that submit signed transactions.
func needsWallet(mode string) bool {
	switch mode {
	case "oracle", "seed", "full":
		return true
	default:
		return false
	}
}

// pingerFunc adapts a plain health-check function to the handler.Pinger
// interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- Wallet ---
	if needsWallet(mode) || cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			if needsWallet(mode) {
				cleanup()
				return nil, nil, fmt.Errorf("wire: wallet: %w", err)
			}
			logger.Warn("wire: no usable signing key, continuing without a wallet",
				slog.String("error", err.Error()),
			)
		} else {
			wallet, err := crypto.NewWallet(keyHex)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: wallet: %w", err)
			}
			deps.Wallet = wallet
		}
	}

	// --- PostgreSQL (only for modes that persist settlement state) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.SettlementStore = postgres.NewSettlementStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		if deps.Wallet != nil {
			// Every audit row carries the oracle's signature over its detail.
			deps.AuditStore = crypto.NewSignedAuditStore(postgres.NewAuditStore(pool), deps.Wallet)
		}
		deps.Pingers["postgres"] = pool
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Pingers["redis"] = redisClient

	// --- S3 blob storage (session archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewSessionArchiver(deps.BlobWriter)
		deps.Pingers["s3"] = pingerFunc(s3Client.Health)
	}

	// --- Chain node ---
	stake, err := cfg.Chain.StakeAmount256()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	// Without a wallet (read-only server mode) the burn address holds the
	// admin roles, so no mutation can be authorized.
	owner := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	if deps.Wallet != nil {
		owner = deps.Wallet.Address()
	}
	node, err := chain.NewNode(chain.Config{
		Owner:           owner,
		OracleAuthority: owner,
		TokenName:       cfg.Chain.TokenName,
		TokenSymbol:     cfg.Chain.TokenSymbol,
		StakeAmount:     stake,
	}, deps.SignalBus, deps.PriceCache, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain node: %w", err)
	}
	deps.Node = node
	deps.Chain = chain.NewClient(node, owner)

	// --- Results feed ---
	deps.Feed = feed.NewClient(feed.ClientConfig{
		BaseURL:     cfg.Feed.BaseURL,
		SessionType: cfg.Feed.SessionType,
		Year:        cfg.Feed.Year,
		Timeout:     cfg.Feed.Timeout.Duration,
		RetryCount:  cfg.Feed.RetryCount,
	})

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
