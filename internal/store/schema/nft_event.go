package schema

import "github.com/feral-file/nft-datastore/internal/domain"

// NFTEvent holds the columns shared by the transfers and mints tables.
// The event type is implied by the table the row lives in.
type NFTEvent struct {
	// EventID is derived from the source log (tx hash + log index); unique per table
	EventID string `gorm:"column:event_id;type:text;not null;uniqueIndex"`
	// TransactionHash is the hash of the transaction that emitted the log
	TransactionHash string `gorm:"column:transaction_hash;type:text"`
	// BlockNumber is the block the log was included in
	BlockNumber uint64 `gorm:"column:block_number;type:bigint;index"`
	// NFTAddress references nfts.address; the nfts row may not exist yet
	NFTAddress string `gorm:"column:nft_address;type:text;index"`
	// TokenID is the uint256 token id as a decimal string
	TokenID string `gorm:"column:token_id;type:text"`
	// FromAddress is the sender (zero address for mints)
	FromAddress string `gorm:"column:from_address;type:text"`
	// ToAddress is the recipient
	ToAddress string `gorm:"column:to_address;type:text"`
	// TransactionValue is the wei value of the transaction as a decimal string
	TransactionValue string `gorm:"column:transaction_value;type:text"`
	// Timestamp is the block timestamp in unix seconds
	Timestamp int64 `gorm:"column:timestamp;type:bigint"`
}

// Transfer represents the transfers table
type Transfer struct {
	NFTEvent `gorm:"embedded"`
}

// TableName specifies the table name for the Transfer model
func (Transfer) TableName() string {
	return "transfers"
}

// Mint represents the mints table
type Mint struct {
	NFTEvent `gorm:"embedded"`
}

// TableName specifies the table name for the Mint model
func (Mint) TableName() string {
	return "mints"
}

// EventTableName returns the table that stores events of the given type
func EventTableName(eventType domain.EventType) (string, bool) {
	switch eventType {
	case domain.EventTypeTransfer:
		return Transfer{}.TableName(), true
	case domain.EventTypeMint:
		return Mint{}.TableName(), true
	}
	return "", false
}
