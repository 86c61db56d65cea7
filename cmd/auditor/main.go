package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/emperorhan/chainaudit/internal/admin"
	"github.com/emperorhan/chainaudit/internal/alert"
	"github.com/emperorhan/chainaudit/internal/chain/evm"
	"github.com/emperorhan/chainaudit/internal/chain/evm/rpc"
	"github.com/emperorhan/chainaudit/internal/circuitbreaker"
	"github.com/emperorhan/chainaudit/internal/config"
	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/emperorhan/chainaudit/internal/heuristic"
	"github.com/emperorhan/chainaudit/internal/metadata"
	"github.com/emperorhan/chainaudit/internal/metrics"
	"github.com/emperorhan/chainaudit/internal/pipeline"
	"github.com/emperorhan/chainaudit/internal/registry"
	"github.com/emperorhan/chainaudit/internal/source/dexscreener"
	"github.com/emperorhan/chainaudit/internal/source/sentiment"
	"github.com/emperorhan/chainaudit/internal/store"
	"github.com/emperorhan/chainaudit/internal/store/memory"
	"github.com/emperorhan/chainaudit/internal/store/postgres"
	redispkg "github.com/emperorhan/chainaudit/internal/store/redis"
	"github.com/emperorhan/chainaudit/internal/tracing"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type dbStatsProvider interface {
	Stats() sql.DBStats
}

func collectDBPoolStats(db dbStatsProvider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return fmt.Errorf("db stats provider is nil")
	}
	stats := db.Stats()
	metrics.DBPoolOpen.Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.Set(float64(stats.InUse))
	metrics.DBPoolIdle.Set(float64(stats.Idle))
	metrics.DBPoolWaitCount.Set(float64(stats.WaitCount))
	return nil
}

func runDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := collectDBPoolStats(db); err != nil {
		logger.Warn("failed to collect initial db pool stats", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := collectDBPoolStats(db); err != nil {
				logger.Warn("failed to collect db pool stats", "error", err)
			}
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildAlerter returns nil when no channel is configured.
func buildAlerter(cfg config.AlertConfig, logger *slog.Logger) *alert.MultiAlerter {
	var channels []alert.Alerter
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.WebhookURL))
	}
	if len(channels) == 0 {
		return nil
	}
	return alert.NewMultiAlerter(cfg.Cooldown, logger, channels...)
}

func buildEnrichers(cfg config.PipelineConfig, code *evm.Reader, sent pipeline.SentimentReader) []pipeline.Enricher {
	var out []pipeline.Enricher
	if cfg.PredictiveScoringEnabled {
		out = append(out, pipeline.PredictiveScorer{})
	}
	if cfg.SentimentEnabled && sent != nil {
		out = append(out, pipeline.SentimentEnricher{Reader: sent})
	}
	if cfg.VulnerabilityScanEnabled && code != nil {
		out = append(out, pipeline.VulnerabilityScanner{Code: code})
	}
	return out
}

func unhealthyNotifier(alerter alert.Alerter, chain string, logger *slog.Logger) func(pipeline.HealthSnapshot) {
	return func(snap pipeline.HealthSnapshot) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := alerter.Send(ctx, alert.Alert{
				Type:    alert.AlertTypePipelineUnhealthy,
				Chain:   chain,
				Title:   "Audit pipeline unhealthy",
				Message: "Consecutive audit runs failed metadata resolution",
				Fields: map[string]string{
					"consecutive_failures": strconv.Itoa(snap.ConsecutiveFailures),
					"p95_latency":          snap.P95Latency,
				},
			})
			if err != nil {
				logger.Warn("pipeline health alert failed", "error", err)
			}
		}()
	}
}

func openBackend(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Backend, *postgres.DB, error) {
	if cfg.Backend != config.StoreBackendPostgres {
		return memory.New(), nil, nil
	}
	db, err := postgres.New(postgres.Config{
		URL:                cfg.DB.URL,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetime:    cfg.DB.ConnMaxLifetime,
		StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.RunMigrations(ctx, postgres.Migrations(), logger); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return postgres.NewBackend(db), db, nil
}

func runHTTPServer(ctx context.Context, name string, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown error", "server", name, "error", err)
		}
	}()

	logger.Info("http server started", "server", name, "port", port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("chainaudit exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("chainaudit stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting chainaudit",
		"chain", cfg.RPC.Chain,
		"rpc_url", cfg.RPC.URL,
		"store_backend", cfg.Store.Backend,
		"redis_enabled", cfg.Redis.Enabled,
		"administrator", cfg.Registry.Administrator.Hex(),
		"pipeline_auditor", cfg.Registry.PipelineAuditor.Hex(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(ctx, "chainaudit", tracingEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	backend, db, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	sinks := []event.Sink{event.NewLogSink(logger)}
	var latest interface {
		pipeline.ResultCache
		admin.LatestResults
	} = memory.NewResultCache(cfg.Pipeline.ResultCacheSize, cfg.Redis.CacheTTL)

	if cfg.Redis.Enabled {
		rdb, err := redispkg.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		sinks = append(sinks, redispkg.NewEventStream(rdb, cfg.Redis.StreamKey, cfg.Redis.StreamMaxLen))
		latest = redispkg.NewAuditCache(rdb, cfg.Redis.CacheTTL)
		logger.Info("redis event stream and audit cache enabled", "stream", cfg.Redis.StreamKey)
	}

	alerter := buildAlerter(cfg.Alert, logger)
	if alerter != nil {
		sinks = append(sinks, alert.NewScamAlertSink(alerter, cfg.RPC.Chain.String(), logger))
	}
	events := event.NewFanOut(logger, sinks...)

	rpcClient := rpc.NewClient(cfg.RPC.URL, cfg.RPC.Timeout, logger)
	reader := evm.NewReader(rpcClient, evm.Options{
		Chain: cfg.RPC.Chain,
		RPS:   cfg.RPC.RPS,
		Burst: cfg.RPC.Burst,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.RPC.BreakerFailures,
			OpenTimeout:      cfg.RPC.BreakerOpenTimeout,
		},
		CodeCacheTTL: cfg.RPC.CodeCacheTTL,
	}, logger)
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.RPC.Timeout)
	if head, err := reader.Ping(pingCtx); err != nil {
		logger.Warn("rpc endpoint not reachable, audits will degrade", "error", err)
	} else {
		logger.Info("rpc endpoint reachable", "block", head)
	}
	cancelPing()

	reg, err := registry.New(cfg.Registry.Administrator, backend, backend, events, logger)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}
	if cfg.Registry.PipelineAuditor != cfg.Registry.Administrator {
		if err := reg.GrantAuditor(ctx, cfg.Registry.Administrator, cfg.Registry.PipelineAuditor); err != nil {
			return fmt.Errorf("authorize pipeline auditor: %w", err)
		}
	}

	meta := metadata.NewStore(backend, reader, reader, reg, events, metadata.Config{FieldTimeout: cfg.Pipeline.FieldTimeout}, logger)
	engine := heuristic.NewEngine(backend, reader, reg, events, heuristic.Config{
		Seed:        []byte(cfg.Pipeline.HeuristicSeed),
		CodeTimeout: cfg.Pipeline.StageTimeout,
	}, logger)

	dex := dexscreener.NewClient(dexscreener.Options{
		BaseURL: cfg.Sources.DexScreenerURL,
		Chain:   cfg.RPC.Chain,
		Timeout: cfg.Sources.Timeout,
		RPS:     cfg.Sources.DexScreenerRPS,
	}, logger)

	var sent pipeline.SentimentReader
	if cfg.Pipeline.SentimentEnabled {
		sent = sentiment.NewClient(sentiment.Options{
			BaseURL: cfg.Sources.SentimentURL,
			Timeout: cfg.Sources.Timeout,
		}, logger)
	}

	comp := pipeline.Components{
		Metadata:      meta,
		Heuristics:    engine,
		SecurityFlags: meta,
		Registry:      reg,
		Providers:     pipeline.DefaultProviders(reader),
		Liquidity:     dex,
		Owner:         pipeline.ChainOwnerSource{Tokens: reader, Holders: reader, Accounts: reader, Code: reader},
		TxStats: pipeline.FirstTxStats{
			pipeline.RegistryTxStats{Registry: reg},
			pipeline.NonceTxStats{Accounts: reader},
		},
		Enrichers: buildEnrichers(cfg.Pipeline, reader, sent),
		Cache:     latest,
	}
	if alerter != nil {
		comp.OnUnhealthy = unhealthyNotifier(alerter, cfg.RPC.Chain.String(), logger)
	}
	p := pipeline.New(pipeline.Config{
		Auditor:           cfg.Registry.PipelineAuditor,
		StageTimeout:      cfg.Pipeline.StageTimeout,
		WriteBackTimeout:  cfg.Pipeline.WriteBackTimeout,
		EnrichmentTimeout: cfg.Pipeline.EnrichmentTimeout,
	}, comp, logger)

	srv := admin.NewServer(p, reg, meta, engine, logger,
		admin.WithLatestResults(latest),
		admin.WithHealthProvider(p.Health()),
	)
	limiter := admin.NewRateLimitMiddleware(logger)
	defer limiter.Stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gCtx, "public", cfg.Server.Port, admin.AuditLog(logger, limiter.Wrap(srv.PublicHandler())), logger)
	})
	g.Go(func() error {
		return runHTTPServer(gCtx, "admin", cfg.Server.AdminPort, admin.AuditLog(logger, limiter.Wrap(srv.AdminHandler())), logger)
	})
	if db != nil {
		g.Go(func() error {
			runDBPoolStatsPump(gCtx, db, cfg.Store.DB.PoolStatsInterval, logger)
			return nil
		})
	}

	return g.Wait()
}
