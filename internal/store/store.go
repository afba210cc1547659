package store

import (
	"context"

	"github.com/feral-file/nft-datastore/internal/domain"
)

// EventQueryFilter narrows GetEvents results
type EventQueryFilter struct {
	// FromBlock is the inclusive lower block bound (nil for no bound)
	FromBlock *uint64
	// ToBlock is the inclusive upper block bound (nil for no bound)
	ToBlock *uint64
	// NFTAddress restricts results to one contract
	NFTAddress string
	// Limit caps the number of rows (0 for no limit)
	Limit int
}

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CheckpointStore

	// Initialize idempotently creates the schema
	Initialize(ctx context.Context) error

	// InsertEntities inserts NFT metadata rows in a single transaction.
	// Any constraint violation rolls back the whole batch.
	InsertEntities(ctx context.Context, metadata []domain.NFTMetadata) error
	// InsertEvents inserts transfers and mints in a single transaction,
	// silently skipping events whose event_id is already stored
	InsertEvents(ctx context.Context, events []domain.NFTEvent) error
	// InsertLabels inserts address labels, skipping (address, label) pairs already stored
	InsertLabels(ctx context.Context, labels []domain.AddressLabel) error

	// GetEvents retrieves stored events of one type ordered by block number and event id
	GetEvents(ctx context.Context, eventType domain.EventType, filter EventQueryFilter) ([]domain.NFTEvent, error)
	// CountEvents returns the number of stored events of one type
	CountEvents(ctx context.Context, eventType domain.EventType) (int64, error)
	// GetNFT retrieves the metadata row for an address, nil if absent
	GetNFT(ctx context.Context, address string) (*domain.NFTMetadata, error)
	// GetKnownNFTAddresses returns the subset of addresses that already have a metadata row
	GetKnownNFTAddresses(ctx context.Context, addresses []string) (map[string]bool, error)
	// GetLabels retrieves all labels attached to an address
	GetLabels(ctx context.Context, address string) ([]domain.AddressLabel, error)
}
