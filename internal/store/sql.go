package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/store/schema"
)

const (
	eventFieldsPerRecord = 9
	nftFieldsPerRecord   = 3
	labelFieldsPerRecord = 4
)

// schemaModels lists every table the datastore owns, in creation order
var schemaModels = []any{
	&schema.NFT{},
	&schema.Transfer{},
	&schema.Mint{},
	&schema.Checkpoint{},
	&schema.AddressLabel{},
}

type sqlStore struct {
	CheckpointStore
	db *gorm.DB
}

// NewSQLStore creates a new store backed by the given GORM connection
func NewSQLStore(db *gorm.DB) Store {
	return &sqlStore{
		CheckpointStore: NewCheckpointStore(db),
		db:              db,
	}
}

// Initialize idempotently creates the schema on the store's connection
func (s *sqlStore) Initialize(ctx context.Context) error {
	return Initialize(ctx, s.db)
}

// Initialize creates every missing table with its unique indexes in one transaction.
// Existing tables are left untouched, so it is safe to call on every startup.
func Initialize(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		migrator := tx.Migrator()
		for _, model := range schemaModels {
			if migrator.HasTable(model) {
				continue
			}
			if err := migrator.CreateTable(model); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrSchema, err)
		logger.ErrorCtx(ctx, err)
		return err
	}

	return nil
}

// InsertEntities inserts the metadata batch atomically
func (s *sqlStore) InsertEntities(ctx context.Context, metadata []domain.NFTMetadata) error {
	if len(metadata) == 0 {
		return nil
	}

	rows := make([]schema.NFT, 0, len(metadata))
	for _, m := range metadata {
		rows = append(rows, schema.NFT{
			Address: m.Address,
			Name:    m.Name,
			Symbol:  m.Symbol,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, calculateSafeBatchSize(len(rows), nftFieldsPerRecord)).Error; err != nil {
			return fmt.Errorf("failed to insert nfts: %w", err)
		}
		return nil
	})
	if err != nil {
		err = classifyError(err)
		addresses := make([]string, 0, len(metadata))
		for _, m := range metadata {
			addresses = append(addresses, m.Address)
		}
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to save nft metadata batch"),
			zap.Int("batch_size", len(metadata)),
			zap.Strings("addresses", addresses))
		return err
	}

	return nil
}

// InsertEvents partitions the batch by event type and inserts both partitions atomically.
// Rows whose event_id already exists are skipped.
func (s *sqlStore) InsertEvents(ctx context.Context, events []domain.NFTEvent) error {
	if len(events) == 0 {
		return nil
	}

	var transfers []schema.Transfer
	var mints []schema.Mint
	for _, event := range events {
		switch event.EventType {
		case domain.EventTypeTransfer:
			transfers = append(transfers, schema.Transfer{NFTEvent: toEventRow(event)})
		case domain.EventTypeMint:
			mints = append(mints, schema.Mint{NFTEvent: toEventRow(event)})
		default:
			err := fmt.Errorf("%w: %q (event %s)", domain.ErrUnknownEventType, event.EventType, event.EventID)
			logger.ErrorCtx(ctx, err,
				zap.String("message", "Rejected event batch"),
				zap.Int("batch_size", len(events)),
				zap.String("event_id", event.EventID),
				zap.String("event_type", string(event.EventType)))
			return err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertIgnoringDuplicateEvents(tx, transfers); err != nil {
			return fmt.Errorf("failed to insert transfers: %w", err)
		}
		if err := insertIgnoringDuplicateEvents(tx, mints); err != nil {
			return fmt.Errorf("failed to insert mints: %w", err)
		}
		return nil
	})
	if err != nil {
		err = classifyError(err)
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to save event batch"),
			zap.Int("transfers", len(transfers)),
			zap.Int("mints", len(mints)),
			zap.String("first_event_id", events[0].EventID),
			zap.String("last_event_id", events[len(events)-1].EventID),
			zap.Uint64("max_block", domain.MaxBlockNumber(events)))
		return err
	}

	return nil
}

// insertIgnoringDuplicateEvents bulk inserts event rows with ON CONFLICT (event_id) DO NOTHING
func insertIgnoringDuplicateEvents[T schema.Transfer | schema.Mint](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).CreateInBatches(rows, calculateSafeBatchSize(len(rows), eventFieldsPerRecord)).Error
}

// InsertLabels validates and inserts address labels atomically
func (s *sqlStore) InsertLabels(ctx context.Context, labels []domain.AddressLabel) error {
	if len(labels) == 0 {
		return nil
	}

	rows := make([]schema.AddressLabel, 0, len(labels))
	for i := range labels {
		label := labels[i]
		if err := label.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(label.Payload())
		if err != nil {
			return fmt.Errorf("failed to marshal label data: %w", err)
		}
		rows = append(rows, schema.AddressLabel{
			Address:   label.Address,
			Label:     string(label.Kind),
			LabelData: datatypes.JSON(data),
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}, {Name: "label"}},
			DoNothing: true,
		}).CreateInBatches(rows, calculateSafeBatchSize(len(rows), labelFieldsPerRecord)).Error
	})
	if err != nil {
		err = fmt.Errorf("failed to insert address labels: %w", classifyError(err))
		logger.ErrorCtx(ctx, err, zap.Int("batch_size", len(labels)))
		return err
	}

	return nil
}

// GetEvents retrieves events of one type matching the filter
func (s *sqlStore) GetEvents(ctx context.Context, eventType domain.EventType, filter EventQueryFilter) ([]domain.NFTEvent, error) {
	table, ok := schema.EventTableName(eventType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, eventType)
	}

	query := s.db.WithContext(ctx).Table(table)
	if filter.FromBlock != nil {
		query = query.Where("block_number >= ?", *filter.FromBlock)
	}
	if filter.ToBlock != nil {
		query = query.Where("block_number <= ?", *filter.ToBlock)
	}
	if filter.NFTAddress != "" {
		query = query.Where("nft_address = ?", filter.NFTAddress)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []schema.NFTEvent
	if err := query.Order("block_number ASC").Order("event_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s events: %w", eventType, classifyError(err))
	}

	events := make([]domain.NFTEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, fromEventRow(eventType, row))
	}

	return events, nil
}

// CountEvents returns the number of stored events of one type
func (s *sqlStore) CountEvents(ctx context.Context, eventType domain.EventType) (int64, error) {
	table, ok := schema.EventTableName(eventType)
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, eventType)
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s events: %w", eventType, classifyError(err))
	}

	return count, nil
}

// GetNFT retrieves the metadata row for an address
func (s *sqlStore) GetNFT(ctx context.Context, address string) (*domain.NFTMetadata, error) {
	var nft schema.NFT
	err := s.db.WithContext(ctx).Where("address = ?", address).Take(&nft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get nft: %w", classifyError(err))
	}

	return &domain.NFTMetadata{
		Address: nft.Address,
		Name:    nft.Name,
		Symbol:  nft.Symbol,
	}, nil
}

// GetKnownNFTAddresses returns which of the given addresses already have a metadata row
func (s *sqlStore) GetKnownNFTAddresses(ctx context.Context, addresses []string) (map[string]bool, error) {
	known := make(map[string]bool, len(addresses))
	if len(addresses) == 0 {
		return known, nil
	}

	var found []string
	err := s.db.WithContext(ctx).
		Model(&schema.NFT{}).
		Where("address IN ?", addresses).
		Pluck("address", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get known nft addresses: %w", classifyError(err))
	}

	for _, address := range found {
		known[address] = true
	}

	return known, nil
}

// GetLabels retrieves all labels attached to an address, oldest first
func (s *sqlStore) GetLabels(ctx context.Context, address string) ([]domain.AddressLabel, error) {
	var rows []schema.AddressLabel
	err := s.db.WithContext(ctx).
		Where("address = ?", address).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get address labels: %w", classifyError(err))
	}

	labels := make([]domain.AddressLabel, 0, len(rows))
	for _, row := range rows {
		label, err := fromLabelRow(row)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}

	return labels, nil
}

// toEventRow converts an event to its storage row, dropping the type tag
func toEventRow(event domain.NFTEvent) schema.NFTEvent {
	return schema.NFTEvent{
		EventID:          event.EventID,
		TransactionHash:  event.TransactionHash,
		BlockNumber:      event.BlockNumber,
		NFTAddress:       event.NFTAddress,
		TokenID:          event.TokenID,
		FromAddress:      event.FromAddress,
		ToAddress:        event.ToAddress,
		TransactionValue: event.TransactionValue,
		Timestamp:        event.Timestamp.Unix(),
	}
}

func fromEventRow(eventType domain.EventType, row schema.NFTEvent) domain.NFTEvent {
	return domain.NFTEvent{
		EventID:          row.EventID,
		EventType:        eventType,
		TransactionHash:  row.TransactionHash,
		BlockNumber:      row.BlockNumber,
		NFTAddress:       row.NFTAddress,
		TokenID:          row.TokenID,
		FromAddress:      row.FromAddress,
		ToAddress:        row.ToAddress,
		TransactionValue: row.TransactionValue,
		Timestamp:        time.Unix(row.Timestamp, 0).UTC(),
	}
}

func fromLabelRow(row schema.AddressLabel) (domain.AddressLabel, error) {
	label := domain.AddressLabel{
		Address: row.Address,
		Kind:    domain.LabelKind(row.Label),
	}

	var target any
	switch label.Kind {
	case domain.LabelKindCoinMarketCapToken:
		label.Token = &domain.TokenDetails{}
		target = label.Token
	case domain.LabelKindEtherscanSmartContract:
		label.Contract = &domain.ContractDetails{}
		target = label.Contract
	case domain.LabelKindERC721:
		label.NFT = &domain.NFTDetails{}
		target = label.NFT
	default:
		return domain.AddressLabel{}, fmt.Errorf("%w: stored label %q has unknown kind", domain.ErrInvalidMetadata, row.Label)
	}

	if err := json.Unmarshal(row.LabelData, target); err != nil {
		return domain.AddressLabel{}, fmt.Errorf("failed to unmarshal label data: %w", err)
	}

	return label, nil
}
