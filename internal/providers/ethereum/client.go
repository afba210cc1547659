package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/block"
	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
)

var (
	// Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
	transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	zeroAddressTopic = common.BytesToHash(common.HexToAddress(domain.ETHEREUM_ZERO_ADDRESS).Bytes())
)

const defaultFilterTimeout = time.Minute

// EthereumClient fetches NFT transfer and mint events from an Ethereum JSON-RPC node
type EthereumClient interface {
	// LatestBlock returns the current chain head
	LatestBlock(ctx context.Context) (uint64, error)

	// FetchEvents returns the events of one type emitted in [fromBlock, toBlock]
	FetchEvents(ctx context.Context, eventType domain.EventType, fromBlock, toBlock uint64) ([]domain.NFTEvent, error)

	// ParseTransferLog converts an ERC721 Transfer log into an event.
	// Returns nil for logs that are not ERC721 transfers.
	ParseTransferLog(ctx context.Context, vLog types.Log) (*domain.NFTEvent, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	chainID       domain.Chain
	client        adapter.EthClient
	blockProvider block.BlockProvider
}

func NewClient(chainID domain.Chain, client adapter.EthClient, blockProvider block.BlockProvider) EthereumClient {
	return &ethereumClient{chainID: chainID, client: client, blockProvider: blockProvider}
}

// LatestBlock returns the current chain head through the block cache
func (c *ethereumClient) LatestBlock(ctx context.Context) (uint64, error) {
	return c.blockProvider.GetLatestBlock(ctx)
}

// FetchEvents filters Transfer logs in the block range and keeps the ones matching eventType.
// Mints are filtered at the node by the zero-address sender topic.
func (c *ethereumClient) FetchEvents(ctx context.Context, eventType domain.EventType, fromBlock, toBlock uint64) ([]domain.NFTEvent, error) {
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEventType, eventType)
	}
	if fromBlock > toBlock {
		return nil, nil
	}

	topics := [][]common.Hash{{transferEventSignature}}
	if eventType == domain.EventTypeMint {
		topics = append(topics, []common.Hash{zeroAddressTopic})
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Topics:    topics,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultFilterTimeout)
	defer cancel()

	logs, err := c.getLogsWithRetry(timeoutCtx, query, toBlock-fromBlock+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", fromBlock, toBlock, err)
	}

	events := make([]domain.NFTEvent, 0, len(logs))
	for _, vLog := range logs {
		if vLog.Removed {
			continue
		}

		event, err := c.ParseTransferLog(ctx, vLog)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidEvent) {
				logger.WarnCtx(ctx, "Skipping malformed Transfer log",
					zap.Error(err),
					zap.String("contract", vLog.Address.Hex()),
					zap.String("txHash", vLog.TxHash.Hex()),
					zap.Uint("logIndex", vLog.Index),
					zap.Uint64("blockNumber", vLog.BlockNumber))
				continue
			}
			return nil, err
		}
		if event == nil || event.EventType != eventType {
			continue
		}
		events = append(events, *event)
	}

	logger.DebugCtx(ctx, "Fetched events",
		zap.String("event_type", string(eventType)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.Int("logs", len(logs)),
		zap.Int("events", len(events)))

	return events, nil
}

// getLogsWithRetry processes the range from query.FromBlock to query.ToBlock in chunks,
// halving the chunk whenever the node reports too many results
func (c *ethereumClient) getLogsWithRetry(ctx context.Context, query ethereum.FilterQuery, stepSize uint64) ([]types.Log, error) {
	currentStepSize := max(stepSize, 1)

	var allLogs []types.Log
	currentFrom := new(big.Int).Set(query.FromBlock)

	for currentFrom.Cmp(query.ToBlock) <= 0 {
		currentTo := new(big.Int).Add(currentFrom, new(big.Int).SetUint64(currentStepSize-1))
		if currentTo.Cmp(query.ToBlock) > 0 {
			currentTo.Set(query.ToBlock)
		}

		queryCopy := query
		queryCopy.FromBlock = new(big.Int).Set(currentFrom)
		queryCopy.ToBlock = new(big.Int).Set(currentTo)

		logs, err := c.client.FilterLogs(ctx, queryCopy)
		if err == nil {
			allLogs = append(allLogs, logs...)
			currentFrom.SetUint64(currentTo.Uint64() + 1)
			continue
		}

		if !isTooManyResultsError(err) || currentStepSize == 1 {
			return nil, err
		}

		currentStepSize = currentStepSize / 2

		logger.WarnCtx(ctx, "Too many results, reducing step size",
			zap.Uint64("oldStepSize", currentStepSize*2),
			zap.Uint64("newStepSize", currentStepSize),
			zap.Uint64("fromBlock", currentFrom.Uint64()),
			zap.Uint64("toBlock", currentTo.Uint64()))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// ParseTransferLog parses an ERC721 Transfer log and attaches block timestamp and transaction value
func (c *ethereumClient) ParseTransferLog(ctx context.Context, vLog types.Log) (*domain.NFTEvent, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != transferEventSignature {
		return nil, nil
	}

	// This signature is shared by ERC20 and ERC721
	// ERC20 has 3 topics (signature, from, to) with value in data
	// ERC721 has 4 topics (signature, from, to, tokenId) with no data
	if len(vLog.Topics) == 3 {
		logger.DebugCtx(ctx, "Skipping ERC20 transfer event",
			zap.String("contract", vLog.Address.Hex()),
			zap.String("txHash", vLog.TxHash.Hex()))
		return nil, nil
	}
	if len(vLog.Topics) != 4 {
		return nil, fmt.Errorf("%w: Transfer log with %d topics, expected 3 or 4", domain.ErrInvalidEvent, len(vLog.Topics))
	}

	blk, err := c.blockProvider.GetBlock(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}

	fromAddress := common.BytesToAddress(vLog.Topics[1].Bytes()).Hex()
	txHash := strings.ToLower(vLog.TxHash.Hex())

	return &domain.NFTEvent{
		EventID:          domain.NewEventID(txHash, vLog.Index),
		EventType:        domain.TransferEventType(fromAddress),
		TransactionHash:  txHash,
		BlockNumber:      vLog.BlockNumber,
		NFTAddress:       vLog.Address.Hex(),
		TokenID:          new(big.Int).SetBytes(vLog.Topics[3].Bytes()).String(),
		FromAddress:      fromAddress,
		ToAddress:        common.BytesToAddress(vLog.Topics[2].Bytes()).Hex(),
		TransactionValue: blk.TransactionValue(txHash),
		Timestamp:        blk.Timestamp,
	}, nil
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}
