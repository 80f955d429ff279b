package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/jmalhotra4/arbscan/internal/blob/s3"
	"github.com/jmalhotra4/arbscan/internal/cache/redis"
	"github.com/jmalhotra4/arbscan/internal/config"
	"github.com/jmalhotra4/arbscan/internal/domain"
	"github.com/jmalhotra4/arbscan/internal/guard"
	"github.com/jmalhotra4/arbscan/internal/notify"
	"github.com/jmalhotra4/arbscan/internal/pipeline"
	"github.com/jmalhotra4/arbscan/internal/scanner"
	"github.com/jmalhotra4/arbscan/internal/store/postgres"
	"github.com/jmalhotra4/arbscan/internal/venue/cex"
	"github.com/jmalhotra4/arbscan/internal/venue/dex"
)

// Dependencies bundles everything the operating modes need. Constructed by
// Wire, torn down by the returned cleanup function.
type Dependencies struct {
	Scanner  *scanner.Scanner
	Recorder *pipeline.Recorder
	// Streams are the WebSocket venues that need their own goroutine.
	Streams []*cex.BinanceStream
	TopN    int
}

// Wire constructs all concrete dependencies from the configuration.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	// --- Token identity map ---
	mappings := make([]domain.TokenMapping, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		mappings = append(mappings, domain.TokenMapping{
			Symbol:     t.Symbol,
			ChainID:    t.ChainID,
			Identifier: t.Address,
			Decimals:   t.Decimals,
		})
	}
	tokens, err := domain.NewTokenMap(mappings)
	if err != nil {
		return fail(err)
	}

	// --- Redis (shared by the guard and the alert cooldown) ---
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	// --- Rate guard ---
	var rateGuard domain.RateGuard
	switch cfg.Guard.Backend {
	case "redis":
		rateGuard = redis.NewRateGuard(redisClient, cfg.Guard.Limit,
			time.Duration(cfg.Guard.WindowSec)*time.Second)
	case "none":
		rateGuard = guard.Nop{}
	default:
		rateGuard = guard.NewLocal(guard.LocalConfig{
			RatePerSec: cfg.Guard.RatePerSec,
			Burst:      cfg.Guard.Burst,
		})
	}

	// --- Venues ---
	var dexes []domain.DexQuoter
	for _, d := range cfg.Dexes {
		client, err := dex.NewRouterClient(ctx, dex.RouterConfig{
			Name:   d.Name,
			RPCURL: d.RPCURL,
			Router: d.Router,
		})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client.Close)
		dexes = append(dexes, client)
	}

	var (
		cexes   []domain.CexClient
		streams []*cex.BinanceStream
	)
	for _, x := range cfg.Cexes {
		switch x.Kind {
		case "binance":
			cexes = append(cexes, cex.NewBinance(x.Name, x.APIKey, x.APISecret))
		case "kraken":
			cexes = append(cexes, cex.NewKraken(x.Name, x.BaseURL))
		case "binance_ws":
			symbols := make([]string, 0, len(cfg.Scanner.Pairs))
			for _, p := range cfg.Scanner.Pairs {
				symbols = append(symbols, strings.ReplaceAll(p, "/", ""))
			}
			stream := cex.NewBinanceStream(cex.StreamConfig{
				Name:    x.Name,
				WSURL:   x.WSURL,
				Symbols: symbols,
				MaxAge:  time.Duration(x.MaxAgeSec) * time.Second,
			}, logger)
			streams = append(streams, stream)
			cexes = append(cexes, stream)
		default:
			return fail(fmt.Errorf("app: unsupported cex kind %q", x.Kind))
		}
	}

	// --- Scanner core ---
	notional, err := cfg.Scanner.ParsedNotional()
	if err != nil {
		return fail(err)
	}
	detector := scanner.NewDetector(tokens, dexes, cexes, rateGuard, scanner.DetectorConfig{
		ChainID:      cfg.Network.ChainID,
		Notional:     notional,
		TotalFeePct:  cfg.Scanner.TotalFeePct,
		MinProfitPct: cfg.Scanner.MinProfitPct,
		QuoteTimeout: time.Duration(cfg.Scanner.QuoteTimeoutSec) * time.Second,
	}, logger)

	pairs := make([]scanner.Pair, 0, len(cfg.Scanner.Pairs))
	for _, p := range cfg.Scanner.Pairs {
		pair, err := scanner.ParsePair(p)
		if err != nil {
			return fail(err)
		}
		pairs = append(pairs, pair)
	}
	scn, err := scanner.NewScanner(detector, pairs,
		time.Duration(cfg.Scanner.IntervalSec)*time.Second, logger)
	if err != nil {
		return fail(err)
	}

	// --- Sinks (all optional) ---
	var recorderCfg pipeline.RecorderConfig
	recorderCfg.TopN = cfg.Scanner.TopN

	if cfg.Postgres.Enabled {
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
			return fail(err)
		}
		closers = append(closers, pgClient.Close)
		if cfg.Postgres.RunMigrations {
			if err := pgClient.Migrate(ctx); err != nil {
				return fail(err)
			}
		}
		recorderCfg.Store = postgres.NewOpportunityStore(pgClient)
	}

	if cfg.S3.Enabled {
		blobClient, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(err)
		}
		if err := blobClient.Health(ctx); err != nil {
			return fail(err)
		}
		recorderCfg.Archiver = s3blob.NewCycleArchiver(s3blob.NewWriter(blobClient), cfg.S3.Prefix)
	}

	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		sender := notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		recorderCfg.Alerter = notify.NewNotifier([]notify.Sender{sender}, logger)
		if redisClient != nil {
			recorderCfg.Gate = redis.NewAlertCache(redisClient,
				time.Duration(cfg.Notify.CooldownSec)*time.Second)
		}
	}

	return &Dependencies{
		Scanner:  scn,
		Recorder: pipeline.NewRecorder(recorderCfg, logger),
		Streams:  streams,
		TopN:     cfg.Scanner.TopN,
	}, cleanup, nil
}
