// Command engine runs the transaction engine: HTTP and Kafka ingestion,
// submission and confirmation, swap parsing, metrics persistence and
// live price subscriptions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zerosvc "github.com/zeromicro/go-zero/core/service"
	"go.uber.org/zap"

	"solana-tx-engine/internal/config"
	"solana-tx-engine/internal/engine"
	"solana-tx-engine/internal/ingestion"
	"solana-tx-engine/internal/jupiter"
	"solana-tx-engine/internal/logger"
	"solana-tx-engine/internal/metrics"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/pricing"
	"solana-tx-engine/internal/solana"
	"solana-tx-engine/internal/storage"
	chstore "solana-tx-engine/internal/storage/clickhouse"
	"solana-tx-engine/internal/storage/memory"
	"solana-tx-engine/internal/storage/migrations"
	pgstore "solana-tx-engine/internal/storage/postgres"
	"solana-tx-engine/internal/swap"
	"solana-tx-engine/internal/tokens"
)

var configFile = flag.String("f", "etc/engine.yaml", "the config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.ToLogOption())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
		_ = log.Sync()
	}()

	if err := run(cfg, log); err != nil {
		log.Error("engine stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// stores holds the persistence layer and its closers.
type stores struct {
	metrics       storage.MetricsStore
	subscriptions storage.SubscriptionStore
	closers       []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*stores, error) {
	if cfg.UseMemory {
		log.Info("using in-memory storage")
		return &stores{
			metrics:       memory.NewMetricsStore(),
			subscriptions: memory.NewSubscriptionStore(),
		}, nil
	}

	s := &stores{}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		s.close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	var mirror storage.MetricsStore
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		mirror = chstore.NewMetricsStore(conn)
		log.Info("clickhouse analytics mirror enabled")
	}

	s.metrics = storage.NewMultiStore(pgstore.NewMetricsStore(pool), mirror)
	s.subscriptions = pgstore.NewSubscriptionStore(pool)
	return s, nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	st, err := openStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer st.close()

	resolver := solana.NewResolver(solana.WithResolverLogger(log))
	for httpURL, wsURL := range cfg.RPC.WSOverrides {
		resolver.WithWS(httpURL, wsURL)
	}
	primary := resolver.Resolve(cfg.RPC.Primary)
	var fast engine.Gateway
	if cfg.RPC.Fast != "" {
		fast = resolver.Resolve(cfg.RPC.Fast)
	}

	cache := pricing.NewCache()
	prices := pricing.NewSubscriptionManager(cache,
		pricing.NewWSFeed(cfg.Price.WSEndpoint, log),
		pricing.WithReconnectDelay(cfg.Price.ReconnectDelay),
		pricing.WithManagerLogger(log),
	)

	decimalOpts := []tokens.ResolverOption{tokens.WithLogger(log)}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		decimalOpts = append(decimalOpts, tokens.WithSharedCache(tokens.NewRedisCache(rdb)))
	}
	decimals := tokens.NewResolver(tokens.NewChainSource(cfg.RPC.Primary), decimalOpts...)

	quotes := jupiter.NewClient(
		jupiter.WithQuoteAPI(cfg.Jupiter.QuoteAPI),
		jupiter.WithPriceAPI(cfg.Jupiter.PriceAPI),
	)
	oracle := pricing.NewOracle(cache, quotes, decimals, pricing.OracleOptions{Logger: log})
	parser := swap.NewParser(primary, oracle, decimals, swap.ParserOptions{Logger: log})

	processor := ingestion.NewProcessor(ingestion.ProcessorOptions{
		Executor:      engine.New(engine.Options{Logger: log}),
		Primary:       primary,
		Fast:          fast,
		Prices:        prices,
		Subscriptions: st.subscriptions,
		Parser:        parser,
		Metrics:       st.metrics,
		Logger:        log,
	})

	restored, err := ingestion.RestoreSubscriptions(ctx, st.subscriptions, prices)
	if err != nil {
		log.Warn("restore price subscriptions", zap.Error(err))
	} else {
		log.Info("price subscriptions restored", zap.Int("count", restored))
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(prices)
	sg.Add(ingestion.NewHTTPServer(ingestion.HTTPServerOptions{
		Addr:              cfg.HTTP.Addr,
		Processor:         processor,
		Summaries:         metrics.NewAggregator(st.metrics),
		RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
		Burst:             cfg.HTTP.Burst,
		Logger:            log,
	}))
	sg.Add(newMetricsServer(cfg.MetricsAddr, log))

	if brokers := cfg.Kafka.KafkaBrokers(); len(brokers) > 0 {
		consumer, err := ingestion.NewKafkaConsumer(ingestion.KafkaConsumerOptions{
			Brokers: brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.Topic,
			Workers: cfg.Kafka.Workers,
			Handler: processor,
			Logger:  log,
		})
		if err != nil {
			return err
		}
		sg.Add(consumer)
	}

	log.Info("starting engine",
		zap.String("primary", cfg.RPC.Primary),
		zap.Bool("fast_path", fast != nil),
		zap.String("http", cfg.HTTP.Addr))
	go sg.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down services")
	sg.Stop()
	return nil
}

// metricsServer exposes Prometheus metrics as a service-group member.
type metricsServer struct {
	srv *http.Server
	log *zap.Logger
}

func newMetricsServer(addr string, log *zap.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	return &metricsServer{
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log: log.Named("metrics"),
	}
}

func (m *metricsServer) Start() {
	m.log.Info("metrics listening", zap.String("addr", m.srv.Addr))
	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.log.Error("metrics server stopped", zap.Error(err))
	}
}

func (m *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.srv.Shutdown(ctx)
}
