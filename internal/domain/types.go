package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainPolygonMainnet  Chain = "eip155:137"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia ||
		chain == ChainPolygonMainnet
}

// EventType represents the category of NFT event tracked by the datastore
type EventType string

const (
	EventTypeTransfer EventType = "transfer"
	EventTypeMint     EventType = "mint"
)

// AllEventTypes lists every event type that has its own storage table
var AllEventTypes = []EventType{EventTypeTransfer, EventTypeMint}

// Valid reports whether the event type is one the datastore stores
func (t EventType) Valid() bool {
	return t == EventTypeTransfer || t == EventTypeMint
}

// ParseEventType parses an event type name, case-insensitively
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

// NFTEvent is a single observed transfer or mint of an NFT.
// EventType tags the variant; both variants share the same shape.
type NFTEvent struct {
	EventID          string    `json:"event_id"` // <tx hash>-<log index>
	EventType        EventType `json:"event_type"`
	TransactionHash  string    `json:"transaction_hash"`
	BlockNumber      uint64    `json:"block_number"`
	NFTAddress       string    `json:"nft_address"`
	TokenID          string    `json:"token_id"`
	FromAddress      string    `json:"from_address"`
	ToAddress        string    `json:"to_address"`
	TransactionValue string    `json:"transaction_value"` // wei, decimal
	Timestamp        time.Time `json:"timestamp"`
}

// NewEventID derives the unique event identifier from the source log position
func NewEventID(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash), logIndex)
}

// Validate checks the event at the ingestion boundary
func (e *NFTEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("%w: empty event id", ErrInvalidEvent)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.EventType)
	}
	if !common.IsHexAddress(e.NFTAddress) {
		return fmt.Errorf("%w: invalid nft address %q", ErrInvalidEvent, e.NFTAddress)
	}
	if !validDecimal(e.TokenID) {
		return fmt.Errorf("%w: invalid token id %q", ErrInvalidEvent, e.TokenID)
	}
	if e.TransactionValue != "" && !validDecimal(e.TransactionValue) {
		return fmt.Errorf("%w: invalid transaction value %q", ErrInvalidEvent, e.TransactionValue)
	}

	switch e.EventType {
	case EventTypeMint:
		if !IsZeroAddress(e.FromAddress) {
			return fmt.Errorf("%w: mint from non-zero address %s", ErrInvalidEvent, e.FromAddress)
		}
		if IsZeroAddress(e.ToAddress) {
			return fmt.Errorf("%w: mint to zero address", ErrInvalidEvent)
		}
	case EventTypeTransfer:
		if IsZeroAddress(e.FromAddress) {
			return fmt.Errorf("%w: transfer from zero address", ErrInvalidEvent)
		}
	}

	return nil
}

// NFTMetadata is descriptive metadata for an NFT contract
type NFTMetadata struct {
	Address string  `json:"address"`
	Name    *string `json:"name,omitempty"`
	Symbol  *string `json:"symbol,omitempty"`
}

// TransferEventType classifies an ERC-721 Transfer log by its sender.
// Transfers from the zero address are mints; everything else, burns included,
// is stored as a transfer.
func TransferEventType(from string) EventType {
	if IsZeroAddress(from) {
		return EventTypeMint
	}
	return EventTypeTransfer
}

// IsZeroAddress reports whether the address is empty or the zero address
func IsZeroAddress(address string) bool {
	return address == "" || strings.EqualFold(address, ETHEREUM_ZERO_ADDRESS)
}

// NormalizeAddresses normalizes a list of addresses in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}

// NormalizeAddress returns the EIP-55 checksummed form of a hex address
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// DedupMetadataByAddress keeps the first metadata record seen for each address
func DedupMetadataByAddress(metadata []NFTMetadata) []NFTMetadata {
	seen := make(map[string]struct{}, len(metadata))
	result := make([]NFTMetadata, 0, len(metadata))
	for _, m := range metadata {
		key := strings.ToLower(m.Address)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, m)
	}
	return result
}

// MaxBlockNumber returns the highest block number in a batch of events
func MaxBlockNumber(events []NFTEvent) uint64 {
	var highest uint64
	for _, e := range events {
		if e.BlockNumber > highest {
			highest = e.BlockNumber
		}
	}
	return highest
}

func validDecimal(s string) bool {
	if s == "" {
		return false
	}
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0
}
