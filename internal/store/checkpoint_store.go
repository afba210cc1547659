package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/store/schema"
)

// CheckpointStore defines the interface for recording and reading crawl progress
//
//go:generate mockgen -source=checkpoint_store.go -destination=../mocks/checkpoint_store.go -package=mocks -mock_names=CheckpointStore=MockCheckpointStore
type CheckpointStore interface {
	// GetOffset returns the offset of the most recently recorded checkpoint for an event type.
	// found is false when no checkpoint has ever been recorded.
	GetOffset(ctx context.Context, eventType domain.EventType) (offset uint64, found bool, err error)
	// RecordOffset appends a checkpoint; prior checkpoints are never modified
	RecordOffset(ctx context.Context, eventType domain.EventType, offset uint64) error
	// GetCheckpointHistory returns up to limit checkpoints for an event type, newest first
	GetCheckpointHistory(ctx context.Context, eventType domain.EventType, limit int) ([]schema.Checkpoint, error)
}

type checkpointStore struct {
	db *gorm.DB
}

// NewCheckpointStore creates a new checkpoint store
func NewCheckpointStore(db *gorm.DB) CheckpointStore {
	return &checkpointStore{db: db}
}

// GetOffset returns the offset from the checkpoint row with the highest sequence number
func (s *checkpointStore) GetOffset(ctx context.Context, eventType domain.EventType) (uint64, bool, error) {
	var cp schema.Checkpoint
	err := s.db.WithContext(ctx).
		Where("event_type = ?", string(eventType)).
		Order("id DESC").
		Take(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get checkpoint for %s: %w", eventType, classifyError(err))
	}

	return cp.Offset, true, nil
}

// RecordOffset appends a checkpoint row for the event type
func (s *checkpointStore) RecordOffset(ctx context.Context, eventType domain.EventType, offset uint64) error {
	cp := schema.Checkpoint{
		EventType: string(eventType),
		Offset:    offset,
	}

	if err := s.db.WithContext(ctx).Create(&cp).Error; err != nil {
		err = fmt.Errorf("failed to record checkpoint for %s: %w", eventType, classifyError(err))
		logger.ErrorCtx(ctx, err, zap.String("event_type", string(eventType)), zap.Uint64("offset", offset))
		return err
	}

	return nil
}

// GetCheckpointHistory returns the most recent checkpoints for an event type
func (s *checkpointStore) GetCheckpointHistory(ctx context.Context, eventType domain.EventType, limit int) ([]schema.Checkpoint, error) {
	query := s.db.WithContext(ctx).
		Where("event_type = ?", string(eventType)).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var checkpoints []schema.Checkpoint
	if err := query.Find(&checkpoints).Error; err != nil {
		return nil, fmt.Errorf("failed to get checkpoint history for %s: %w", eventType, classifyError(err))
	}

	return checkpoints, nil
}
