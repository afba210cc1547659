package ethereum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
)

const erc721MetadataABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// revertErrorCode is the JSON-RPC code nodes use for a reverted eth_call carrying revert data
const revertErrorCode = 3

// errMethodUnavailable marks a contract that reverts on, or returns garbage for, a metadata view
var errMethodUnavailable = errors.New("metadata method unavailable")

// MetadataResolver reads collection metadata from NFT contracts
type MetadataResolver interface {
	// ResolveMetadata reads name() and symbol() for each address.
	// Contracts that implement neither are returned with nil fields.
	// Any other call failure fails the whole batch so nothing is stored for it.
	ResolveMetadata(ctx context.Context, addresses []string) ([]domain.NFTMetadata, error)

	// Stop stops the worker pool
	Stop()
}

type metadataResolver struct {
	client adapter.EthClient
	abi    abi.ABI
	pool   pond.ResultPool[domain.NFTMetadata]
}

// NewMetadataResolver creates a resolver running at most concurrency contract reads at once
func NewMetadataResolver(client adapter.EthClient, concurrency, queueSize int) (MetadataResolver, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	return &metadataResolver{
		client: client,
		abi:    parsed,
		pool: pond.NewResultPool[domain.NFTMetadata](
			max(concurrency, 1),
			pond.WithQueueSize(max(queueSize, 1)),
		),
	}, nil
}

// ResolveMetadata fans the reads out over the pool and returns results in input order
func (r *metadataResolver) ResolveMetadata(ctx context.Context, addresses []string) ([]domain.NFTMetadata, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	group := r.pool.NewGroup()
	for _, address := range addresses {
		group.SubmitErr(func() (domain.NFTMetadata, error) {
			return r.resolveOne(ctx, address)
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve metadata: %w", err)
	}

	return results, nil
}

// resolveOne maps reverting views to nil fields; transport and context errors abort the group
func (r *metadataResolver) resolveOne(ctx context.Context, address string) (domain.NFTMetadata, error) {
	if err := ctx.Err(); err != nil {
		return domain.NFTMetadata{}, err
	}

	meta := domain.NFTMetadata{Address: domain.NormalizeAddress(address)}

	name, err := r.callStringMethod(ctx, address, "name")
	switch {
	case errors.Is(err, errMethodUnavailable):
		logger.DebugCtx(ctx, "name() unavailable", zap.String("address", address), zap.Error(err))
	case err != nil:
		return domain.NFTMetadata{}, err
	case name != "":
		meta.Name = &name
	}

	symbol, err := r.callStringMethod(ctx, address, "symbol")
	switch {
	case errors.Is(err, errMethodUnavailable):
		logger.DebugCtx(ctx, "symbol() unavailable", zap.String("address", address), zap.Error(err))
	case err != nil:
		return domain.NFTMetadata{}, err
	case symbol != "":
		meta.Symbol = &symbol
	}

	return meta, nil
}

// callStringMethod calls a no-argument view returning string.
// Older contracts return bytes32 instead; those are decoded as a NUL-padded string.
func (r *metadataResolver) callStringMethod(ctx context.Context, address, method string) (string, error) {
	data, err := r.abi.Pack(method)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	contractAddr := common.HexToAddress(address)
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, nil)
	if err != nil {
		if isExecutionReverted(err) {
			return "", fmt.Errorf("%w: %s() reverted: %v", errMethodUnavailable, method, err)
		}
		return "", fmt.Errorf("failed to call %s() on %s: %w", method, address, err)
	}
	if len(result) == 0 {
		return "", nil
	}

	var value string
	if err := r.abi.UnpackIntoInterface(&value, method, result); err == nil {
		return sanitizeString(value), nil
	}

	if len(result) == 32 {
		return sanitizeString(string(bytes.TrimRight(result, "\x00"))), nil
	}

	return "", fmt.Errorf("%w: failed to unpack %s() result", errMethodUnavailable, method)
}

// isExecutionReverted reports whether the node executed the call and the contract reverted it
func isExecutionReverted(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "invalid opcode")
}

// sanitizeString drops NUL bytes, which PostgreSQL rejects in text columns
func sanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// Stop stops the worker pool
func (r *metadataResolver) Stop() {
	r.pool.StopAndWait()
}
