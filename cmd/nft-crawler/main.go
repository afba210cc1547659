package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/block"
	"github.com/feral-file/nft-datastore/internal/config"
	"github.com/feral-file/nft-datastore/internal/crawler"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/providers/ethereum"
	"github.com/feral-file/nft-datastore/internal/ratelimit"
	"github.com/feral-file/nft-datastore/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	once       = flag.Bool("once", false, "Process a single block range per event type and exit")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadCrawlerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "nft-crawler",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting NFT crawler")

	// Connect to database and create the schema
	if err := cfg.Database.EnsureDir(); err != nil {
		logger.FatalCtx(ctx, "Failed to prepare database directory", zap.Error(err))
	}
	gormLogLevel := gormlogger.Warn
	if cfg.Debug {
		gormLogLevel = gormlogger.Info
	}
	db, err := store.Connect(ctx, store.ConnectOptions{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Logger:          logger.NewGormLogger(gormLogLevel, 200*time.Millisecond),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to open datastore", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer func() {
		if err := store.Close(db); err != nil {
			logger.Error(err, zap.String("component", "database"))
		}
	}()
	dataStore := store.NewSQLStore(db)
	logger.InfoCtx(ctx, "Connected to database", zap.String("driver", cfg.Database.Driver))

	// Initialize adapters
	clockAdapter := adapter.NewClock()

	// Initialize ethereum client
	ethDialer := adapter.NewEthClientDialer()
	dialedEthClient, err := ethDialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err), zap.String("rpc_url", cfg.Ethereum.RPCURL))
	}
	adapterEthClient := ratelimit.NewEthClient(dialedEthClient, ratelimit.Config{
		RequestsPerSecond: cfg.Ethereum.RPCRateLimit,
		Burst:             cfg.Ethereum.RPCBurst,
	})

	blockProvider, err := block.NewBlockProvider(
		ethereum.NewEthereumBlockFetcher(adapterEthClient),
		block.Config{
			TTL:               5 * time.Second,
			StaleWindow:       time.Minute,
			BlockTimestampTTL: cfg.Ethereum.BlockTimestampTTL,
		},
		clockAdapter,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create block provider", zap.Error(err))
	}
	ethereumClient := ethereum.NewClient(cfg.Ethereum.ChainID, adapterEthClient, blockProvider)
	defer ethereumClient.Close()

	var resolver crawler.MetadataResolver
	if cfg.Crawler.EnrichMetadata {
		metadataResolver, err := ethereum.NewMetadataResolver(adapterEthClient, cfg.Worker.WorkerPoolSize, cfg.Worker.WorkerQueueSize)
		if err != nil {
			logger.FatalCtx(ctx, "Failed to create metadata resolver", zap.Error(err))
		}
		defer metadataResolver.Stop()
		resolver = metadataResolver
	}

	// Create one crawler per event type
	crawlers := make(map[string]crawler.Crawler)
	for _, eventType := range cfg.Crawler.ParsedEventTypes() {
		crawlers[string(eventType)] = crawler.NewCrawler(dataStore, ethereumClient, resolver, crawler.Config{
			EventType:      eventType,
			StartBlock:     cfg.Ethereum.StartBlock,
			BatchBlocks:    cfg.Crawler.BatchBlocks,
			Confirmations:  cfg.Ethereum.Confirmations,
			PollInterval:   cfg.Crawler.PollInterval,
			EnrichMetadata: cfg.Crawler.EnrichMetadata,
			MaxRetries:     cfg.Crawler.MaxRetries,
		}, clockAdapter)
	}

	if *once {
		for eventType, c := range crawlers {
			if _, err := c.RunOnce(ctx); err != nil {
				logger.FatalCtx(ctx, "Crawl failed", zap.Error(err), zap.String("event_type", eventType))
			}
		}
		logger.InfoCtx(ctx, "NFT crawler finished single pass")
		return
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the crawlers
	group, groupCtx := errgroup.WithContext(ctx)
	for eventType, c := range crawlers {
		group.Go(func() error {
			if err := c.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s crawler: %w", eventType, err)
			}
			return nil
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- group.Wait()
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "crawler"))
		}
		cancel()
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("NFT crawler stopped")
}
