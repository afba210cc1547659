package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/block"
)

// ethereumBlockFetcher implements block.BlockFetcher for Ethereum
type ethereumBlockFetcher struct {
	client adapter.EthClient
}

func NewEthereumBlockFetcher(client adapter.EthClient) block.BlockFetcher {
	return &ethereumBlockFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number from Ethereum
func (f *ethereumBlockFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	number, err := f.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return number, nil
}

// FetchBlock fetches a block with its transactions and keeps the timestamp and transaction values
func (f *ethereumBlockFetcher) FetchBlock(ctx context.Context, blockNumber uint64) (*block.BlockInfo, error) {
	blk, err := f.client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get block %d: %w", blockNumber, err)
	}

	txs := blk.Transactions()
	values := make(map[string]string, len(txs))
	for _, tx := range txs {
		values[strings.ToLower(tx.Hash().Hex())] = decimal.NewFromBigInt(tx.Value(), 0).String()
	}

	return &block.BlockInfo{
		Number:            blockNumber,
		Timestamp:         time.Unix(int64(blk.Time()), 0).UTC(), //nolint:gosec,G115
		TransactionValues: values,
	}, nil
}
