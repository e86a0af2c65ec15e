package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/januslabs/janusd/internal/chain"
	"github.com/januslabs/janusd/internal/domain"
	"github.com/januslabs/janusd/internal/oracle"
	"github.com/januslabs/janusd/internal/server"
	"github.com/januslabs/janusd/internal/server/handler"
	"github.com/januslabs/janusd/internal/server/ws"
)

// OracleMode runs the settlement loop: poll the results feed, mint assets for
// new sessions, refresh podium metadata, and resolve matching markets.
func (a *App) OracleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting oracle mode")

	g, ctx := errgroup.WithContext(ctx)

	settler := a.newSettler(deps)
	g.Go(func() error {
		return settler.RunLoop(ctx)
	})

	return g.Wait()
}

// ServerMode runs the read API and the WebSocket event stream without the
// settlement loop. Without a wallet the chain starts empty and read-only.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// SeedMode funds the chain with the configured token supply, liquidity, and
// demo markets, then exits. With an in-process chain this is a configuration
// dry run; full mode performs the same seeding before serving.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting seed mode")

	if err := a.seedChain(ctx, deps); err != nil {
		return fmt.Errorf("seed mode: %w", err)
	}

	base, quote := deps.Node.Reserves()
	a.logger.InfoContext(ctx, "seeding complete",
		slog.String("reserve_base", base.String()),
		slog.String("reserve_quote", quote.String()),
		slog.Int("markets", len(deps.Node.Markets())),
	)
	return nil
}

// FullMode seeds the chain, then runs the settlement loop and the HTTP/WS
// server together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if err := a.seedChain(ctx, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	settler := a.newSettler(deps)
	g.Go(func() error {
		return settler.RunLoop(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// newSettler builds the settlement loop from the oracle configuration.
func (a *App) newSettler(deps *Dependencies) *oracle.Settler {
	return oracle.NewSettler(
		deps.Feed,
		deps.Chain,
		deps.SettlementStore,
		deps.AuditStore,
		deps.Archiver,
		deps.LockManager,
		deps.Notifier,
		oracle.Config{
			PollInterval: a.cfg.Oracle.PollInterval.Duration,
			CallThrottle: a.cfg.Oracle.CallThrottle.Duration,
			Retry: oracle.RetryPolicy{
				MaxAttempts: a.cfg.Oracle.RetryAttempts,
				Backoff:     a.cfg.Oracle.RetryBackoff.Duration,
			},
			LockTTL:               a.cfg.Oracle.LockTTL.Duration,
			FailureAlertThreshold: a.cfg.Oracle.FailureAlertThreshold,
		},
		a.logger,
	)
}

// startHTTPServer adds the WebSocket hub and the HTTP server to the given
// errgroup. Both shut down when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Pingers, a.logger),
		Pool:    handler.NewPoolHandler(deps.Node, deps.PriceCache, a.logger),
		Assets:  handler.NewAssetHandler(deps.Node, a.logger),
		Markets: handler.NewMarketHandler(deps.Node, a.logger),
	}
	if deps.SettlementStore != nil || deps.BlobReader != nil {
		handlers.Oracle = handler.NewOracleHandler(
			deps.SettlementStore, deps.AuditStore, deps.BlobReader, a.logger,
		)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}

// seedChain mints the token supply, funds and fills the liquidity pool, and
// creates the configured demo markets. It requires a wallet.
func (a *App) seedChain(ctx context.Context, deps *Dependencies) error {
	if deps.Wallet == nil {
		return fmt.Errorf("seeding requires a wallet")
	}
	owner := deps.Wallet.Address()

	supply, err := parseSeedAmount(a.cfg.Seed.TokenSupply, "seed.token_supply")
	if err != nil {
		return err
	}
	liqBase, err := parseSeedAmount(a.cfg.Seed.LiquidityBase, "seed.liquidity_base")
	if err != nil {
		return err
	}
	liqQuote, err := parseSeedAmount(a.cfg.Seed.LiquidityQuote, "seed.liquidity_quote")
	if err != nil {
		return err
	}

	if err := deps.Node.MintTokens(owner, owner, supply); err != nil {
		return fmt.Errorf("mint supply: %w", err)
	}
	if err := deps.Node.FundBase(owner, liqBase); err != nil {
		return fmt.Errorf("fund base: %w", err)
	}
	if err := deps.Node.Approve(owner, chain.PoolAddress, liqQuote); err != nil {
		return fmt.Errorf("approve pool: %w", err)
	}
	if err := deps.Node.AddLiquidity(ctx, owner, liqBase, liqQuote); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}

	for _, m := range a.cfg.Seed.Markets {
		id, err := deps.Node.CreateMarket(ctx, owner, m.Description, m.Entrant, domain.PredicateKind(m.Predicate))
		if err != nil {
			return fmt.Errorf("create market %q: %w", m.Description, err)
		}
		a.logger.InfoContext(ctx, "seeded market",
			slog.Uint64("market_id", id),
			slog.Int("entrant", m.Entrant),
			slog.String("predicate", m.Predicate),
		)
	}

	return nil
}

func parseSeedAmount(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("%s: %q is not a positive decimal", field, s)
	}
	return v, nil
}
