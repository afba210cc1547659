package schema

// NFT represents the nfts table - one row per NFT contract with its descriptive metadata
type NFT struct {
	// Address is the contract address; globally unique
	Address string `gorm:"column:address;type:text;not null;uniqueIndex:idx_nfts_address;uniqueIndex:idx_nfts_address_name_symbol,priority:1"`
	// Name is the contract's name() if known
	Name *string `gorm:"column:name;type:text;uniqueIndex:idx_nfts_address_name_symbol,priority:2"`
	// Symbol is the contract's symbol() if known
	Symbol *string `gorm:"column:symbol;type:text;uniqueIndex:idx_nfts_address_name_symbol,priority:3"`
}

// TableName specifies the table name for the NFT model
func (NFT) TableName() string {
	return "nfts"
}
