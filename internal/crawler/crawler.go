package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/store"
)

const (
	defaultBatchBlocks   = 100
	defaultPollInterval  = 15 * time.Second
	defaultRetryInterval = time.Second
	maxRetryInterval     = 30 * time.Second
)

// Config holds the configuration for one event type crawler
type Config struct {
	EventType      domain.EventType
	StartBlock     uint64        // First block scanned when no checkpoint exists
	BatchBlocks    uint64        // Blocks fetched per iteration
	Confirmations  uint64        // Blocks behind the head considered final
	PollInterval   time.Duration // Sleep between iterations once caught up
	EnrichMetadata bool
	MaxRetries     uint64        // Fetch retries before an iteration fails
	RetryInterval  time.Duration // Initial backoff between fetch retries
}

// Fetcher reads events from the chain
//
//go:generate mockgen -source=crawler.go -destination=../mocks/crawler.go -package=mocks -mock_names=Fetcher=MockFetcher,MetadataResolver=MockMetadataResolver,Crawler=MockCrawler
type Fetcher interface {
	// LatestBlock returns the current chain head
	LatestBlock(ctx context.Context) (uint64, error)
	// FetchEvents returns the events of one type emitted in [fromBlock, toBlock]
	FetchEvents(ctx context.Context, eventType domain.EventType, fromBlock, toBlock uint64) ([]domain.NFTEvent, error)
}

// MetadataResolver looks up collection metadata for contracts
type MetadataResolver interface {
	ResolveMetadata(ctx context.Context, addresses []string) ([]domain.NFTMetadata, error)
}

// Crawler moves events from the chain into the store and advances the checkpoint
type Crawler interface {
	// RunOnce processes one block range. processed is false when the crawler is caught up.
	RunOnce(ctx context.Context) (processed bool, err error)
	// Run calls RunOnce until the context is cancelled
	Run(ctx context.Context) error
}

type crawler struct {
	store    store.Store
	fetcher  Fetcher
	resolver MetadataResolver
	config   Config
	clock    adapter.Clock
}

// NewCrawler creates a crawler. resolver may be nil when metadata enrichment is disabled.
func NewCrawler(
	st store.Store,
	fetcher Fetcher,
	resolver MetadataResolver,
	cfg Config,
	clock adapter.Clock,
) Crawler {
	if cfg.BatchBlocks == 0 {
		cfg.BatchBlocks = defaultBatchBlocks
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if resolver == nil {
		cfg.EnrichMetadata = false
	}

	return &crawler{
		store:    st,
		fetcher:  fetcher,
		resolver: resolver,
		config:   cfg,
		clock:    clock,
	}
}

// RunOnce fetches the next block range after the checkpoint, stores its events
// and records the range end as the new checkpoint
func (c *crawler) RunOnce(ctx context.Context) (bool, error) {
	eventType := c.config.EventType

	offset, found, err := c.store.GetOffset(ctx, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	fromBlock := c.config.StartBlock
	if found {
		fromBlock = offset + 1
	}

	latest, err := retry(ctx, c, "latest block", func() (uint64, error) {
		return c.fetcher.LatestBlock(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("failed to get latest block: %w", err)
	}

	if latest < c.config.Confirmations {
		return false, nil
	}
	head := latest - c.config.Confirmations
	if fromBlock > head {
		return false, nil
	}
	toBlock := min(fromBlock+c.config.BatchBlocks-1, head)

	events, err := retry(ctx, c, "fetch events", func() ([]domain.NFTEvent, error) {
		return c.fetcher.FetchEvents(ctx, eventType, fromBlock, toBlock)
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch events for blocks %d-%d: %w", fromBlock, toBlock, err)
	}

	valid := c.filterValid(ctx, events)

	if err := c.store.InsertEvents(ctx, valid); err != nil {
		return false, fmt.Errorf("failed to insert events for blocks %d-%d: %w", fromBlock, toBlock, err)
	}

	if c.config.EnrichMetadata && len(valid) > 0 {
		c.enrichMetadata(ctx, valid)
	}

	if err := c.store.RecordOffset(ctx, eventType, toBlock); err != nil {
		return false, fmt.Errorf("failed to record checkpoint %d: %w", toBlock, err)
	}

	logger.InfoCtx(ctx, "Processed block range",
		zap.String("event_type", string(eventType)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Uint64("head", head),
		zap.Int("events", len(valid)),
		zap.Int("dropped", len(events)-len(valid)))

	return true, nil
}

// Run processes ranges back to back while behind the head and polls once caught up
func (c *crawler) Run(ctx context.Context) error {
	logger.InfoCtx(ctx, "Starting crawler",
		zap.String("event_type", string(c.config.EventType)),
		zap.Uint64("start_block", c.config.StartBlock))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := c.RunOnce(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.ErrorCtx(ctx, err, zap.String("event_type", string(c.config.EventType)))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.config.PollInterval):
		}
	}
}

// filterValid drops events that fail validation or belong to another event type
func (c *crawler) filterValid(ctx context.Context, events []domain.NFTEvent) []domain.NFTEvent {
	valid := make([]domain.NFTEvent, 0, len(events))
	for i := range events {
		event := events[i]

		err := event.Validate()
		if err == nil && event.EventType != c.config.EventType {
			err = fmt.Errorf("%w: expected %s, got %s", domain.ErrInvalidEvent, c.config.EventType, event.EventType)
		}
		if err != nil {
			logger.WarnCtx(ctx, "Dropping invalid event",
				zap.String("event_id", event.EventID),
				zap.Uint64("block_number", event.BlockNumber),
				zap.Error(err))
			continue
		}

		event.NFTAddress = domain.NormalizeAddress(event.NFTAddress)
		valid = append(valid, event)
	}
	return valid
}

// enrichMetadata stores metadata for contracts seen for the first time.
// Failures are logged and never block the checkpoint.
func (c *crawler) enrichMetadata(ctx context.Context, events []domain.NFTEvent) {
	addresses := uniqueAddresses(events)

	known, err := c.store.GetKnownNFTAddresses(ctx, addresses)
	if err != nil {
		logger.WarnCtx(ctx, "Skipping metadata enrichment", zap.Error(err))
		return
	}

	unseen := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if !known[address] {
			unseen = append(unseen, address)
		}
	}
	if len(unseen) == 0 {
		return
	}

	metadata, err := c.resolver.ResolveMetadata(ctx, unseen)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to resolve metadata", zap.Error(err), zap.Int("addresses", len(unseen)))
		return
	}
	metadata = domain.DedupMetadataByAddress(metadata)

	if err := c.store.InsertEntities(ctx, metadata); err != nil {
		logger.WarnCtx(ctx, "Failed to store metadata", zap.Error(err))
		return
	}

	if err := c.store.InsertLabels(ctx, domain.LabelsFromMetadata(metadata)); err != nil {
		logger.WarnCtx(ctx, "Failed to store address labels", zap.Error(err))
	}

	logger.DebugCtx(ctx, "Stored metadata", zap.Int("contracts", len(metadata)))
}

// uniqueAddresses returns the distinct contract addresses in first-seen order
func uniqueAddresses(events []domain.NFTEvent) []string {
	seen := make(map[string]struct{}, len(events))
	addresses := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.NFTAddress]; ok {
			continue
		}
		seen[e.NFTAddress] = struct{}{}
		addresses = append(addresses, e.NFTAddress)
	}
	return addresses
}

// retry runs fn with exponential backoff, giving up after MaxRetries retries.
// Unknown event types are permanent failures.
func retry[T any](ctx context.Context, c *crawler, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Crawler operation failed, retrying",
			zap.String("operation", op),
			zap.Error(err),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration))
	}

	operation := func() (T, error) {
		result, err := fn()
		if err != nil && errors.Is(err, domain.ErrUnknownEventType) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.RetryNotifyWithData(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, c.config.MaxRetries), ctx),
		notifyOnError)
}
