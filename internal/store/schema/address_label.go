package schema

import (
	"time"

	"gorm.io/datatypes"
)

// AddressLabel represents the address_labels table - producer-specific details attached to an address
type AddressLabel struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Address is the labelled contract address
	Address string `gorm:"column:address;type:text;not null;uniqueIndex:idx_address_labels_address_label,priority:1"`
	// Label is the label kind (coinmarketcap_token, etherscan_smartcontract, erc721)
	Label string `gorm:"column:label;type:text;not null;uniqueIndex:idx_address_labels_address_label,priority:2"`
	// LabelData is the kind-specific payload
	LabelData datatypes.JSON `gorm:"column:label_data;not null"`
	// CreatedAt is when the label was stored
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the AddressLabel model
func (AddressLabel) TableName() string {
	return "address_labels"
}
