package ratelimit

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/feral-file/nft-datastore/internal/adapter"
)

// Config holds the JSON-RPC request budget
type Config struct {
	// RequestsPerSecond is the sustained request rate; zero or less disables limiting
	RequestsPerSecond float64
	// Burst is the number of requests allowed at once; defaults to 1
	Burst int
}

// rateLimitedEthClient blocks each RPC call until the limiter grants a token
type rateLimitedEthClient struct {
	client  adapter.EthClient
	limiter *rate.Limiter
}

// NewEthClient wraps client so every call draws from a shared token bucket.
// The client is returned unchanged when limiting is disabled.
func NewEthClient(client adapter.EthClient, cfg Config) adapter.EthClient {
	if cfg.RequestsPerSecond <= 0 {
		return client
	}

	return &rateLimitedEthClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1)),
	}
}

func (c *rateLimitedEthClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *rateLimitedEthClient) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.client.BlockNumber(ctx)
}

func (c *rateLimitedEthClient) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.BlockByNumber(ctx, number)
}

func (c *rateLimitedEthClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.FilterLogs(ctx, query)
}

func (c *rateLimitedEthClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.client.CallContract(ctx, msg, blockNumber)
}

func (c *rateLimitedEthClient) Close() {
	c.client.Close()
}
