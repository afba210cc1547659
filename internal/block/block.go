package block

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/logger"
)

// DefaultCacheSize is the number of blocks kept when Config.CacheSize is zero
const DefaultCacheSize = 4096

// HeadInfo represents the cached chain head
type HeadInfo struct {
	Number    uint64
	FetchedAt time.Time
}

// BlockInfo holds the parts of a block the crawler attaches to events
type BlockInfo struct {
	Number    uint64
	Timestamp time.Time
	// TransactionValues maps lowercase transaction hash to the value in wei (base-10)
	TransactionValues map[string]string
}

// TransactionValue returns the wei value of a transaction in the block, "0" if unknown
func (b *BlockInfo) TransactionValue(txHash string) string {
	if v, ok := b.TransactionValues[strings.ToLower(txHash)]; ok {
		return v
	}
	return "0"
}

type cachedBlock struct {
	info     *BlockInfo
	cachedAt time.Time
}

// BlockProvider provides cached access to the chain head and to block details.
// It reduces RPC calls by caching the head number for a short TTL
// and recently used blocks in a bounded LRU.
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockProvider=MockBlockProvider
type BlockProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBlock returns timestamp and transaction values for a block, potentially from cache
	GetBlock(ctx context.Context, blockNumber uint64) (*BlockInfo, error)
}

// BlockFetcher is the interface for fetching block information from the blockchain
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockFetcher=MockBlockFetcher
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block number from the blockchain
	FetchLatestBlock(ctx context.Context) (uint64, error)

	// FetchBlock fetches a block by number
	FetchBlock(ctx context.Context, blockNumber uint64) (*BlockInfo, error)
}

// Config holds configuration for the BlockProvider
type Config struct {
	// TTL is how long to cache the head block number
	TTL time.Duration

	// StaleWindow is how long to use stale data if fetching fails
	// If the cached data is older than this and fetch fails, return error
	StaleWindow time.Duration

	// BlockTimestampTTL is how long to cache fetched blocks.
	// 0 caches until evicted by the LRU.
	BlockTimestampTTL time.Duration

	// CacheSize bounds the number of cached blocks
	CacheSize int
}

// blockProvider implements BlockProvider with TTL-based caching
type blockProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu     sync.RWMutex
	head   *HeadInfo
	blocks *lru.Cache[uint64, cachedBlock]
}

// NewBlockProvider creates a new BlockProvider with caching
func NewBlockProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) (BlockProvider, error) {
	size := config.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}

	blocks, err := lru.New[uint64, cachedBlock](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cache: %w", err)
	}

	return &blockProvider{
		fetcher: fetcher,
		config:  config,
		clock:   clock,
		blocks:  blocks,
	}, nil
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *blockProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()

	if cached != nil && now.Sub(cached.FetchedAt) < p.config.TTL {
		logger.DebugCtx(ctx, "Using cached block number", zap.Uint64("block_number", cached.Number))
		return cached.Number, nil
	}

	logger.DebugCtx(ctx, "Fetching latest block number from blockchain provider")
	blockNumber, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.FetchedAt) < p.config.StaleWindow {
			logger.DebugCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.Number))
			return cached.Number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &HeadInfo{
		Number:    blockNumber,
		FetchedAt: now,
	}
	p.mu.Unlock()

	return blockNumber, nil
}

// GetBlock returns block details, using cache if valid
func (p *blockProvider) GetBlock(ctx context.Context, blockNumber uint64) (*BlockInfo, error) {
	cached, ok := p.blocks.Get(blockNumber)
	now := p.clock.Now()

	if ok && (p.config.BlockTimestampTTL == 0 || now.Sub(cached.cachedAt) < p.config.BlockTimestampTTL) {
		logger.DebugCtx(ctx, "Using cached block", zap.Uint64("block_number", blockNumber))
		return cached.info, nil
	}

	logger.DebugCtx(ctx, "Fetching block from blockchain provider", zap.Uint64("block_number", blockNumber))
	info, err := p.fetcher.FetchBlock(ctx, blockNumber)
	if err != nil {
		if ok && now.Sub(cached.cachedAt) < p.config.StaleWindow {
			logger.DebugCtx(ctx, "Using stale block", zap.Uint64("block_number", blockNumber))
			return cached.info, nil
		}
		return nil, fmt.Errorf("failed to fetch block %d and no valid cache available: %w", blockNumber, err)
	}

	p.blocks.Add(blockNumber, cachedBlock{info: info, cachedAt: now})

	return info, nil
}
