package schema

import "time"

// Checkpoint represents the checkpoint table - an append-only log of crawl progress.
// The latest row (highest ID) for an event type is authoritative.
type Checkpoint struct {
	// ID is the monotonic sequence number of the row
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventType is the event type this progress marker belongs to
	EventType string `gorm:"column:event_type;type:text;not null;index:idx_checkpoint_event_type"`
	// Offset is the last block number fully processed for the event type
	Offset uint64 `gorm:"column:offset;type:bigint;not null"`
	// CreatedAt is when the marker was recorded
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the Checkpoint model
func (Checkpoint) TableName() string {
	return "checkpoint"
}
