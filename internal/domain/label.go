package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// LabelKind identifies the producer of an address label
type LabelKind string

const (
	LabelKindCoinMarketCapToken     LabelKind = "coinmarketcap_token"
	LabelKindEtherscanSmartContract LabelKind = "etherscan_smartcontract"
	LabelKindERC721                 LabelKind = "erc721"
)

// TokenDetails is the payload of a coinmarketcap_token label
type TokenDetails struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	CoinMarketCapURL string `json:"coinmarketcap_url,omitempty"`
}

// ContractDetails is the payload of an etherscan_smartcontract label
type ContractDetails struct {
	Name      string `json:"name"`
	ObjectURI string `json:"object_uri,omitempty"`
}

// NFTDetails is the payload of an erc721 label
type NFTDetails struct {
	Name        *string `json:"name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"`
	TotalSupply *string `json:"total_supply,omitempty"`
}

// AddressLabel attaches producer-specific details to an address.
// Exactly one of Token, Contract or NFT is set, matching Kind.
type AddressLabel struct {
	Address  string           `json:"address"`
	Kind     LabelKind        `json:"kind"`
	Token    *TokenDetails    `json:"token,omitempty"`
	Contract *ContractDetails `json:"contract,omitempty"`
	NFT      *NFTDetails      `json:"nft,omitempty"`
}

// Validate checks the label at the ingestion boundary
func (l *AddressLabel) Validate() error {
	if !common.IsHexAddress(l.Address) {
		return fmt.Errorf("%w: invalid address %q", ErrInvalidMetadata, l.Address)
	}

	set := 0
	if l.Token != nil {
		set++
	}
	if l.Contract != nil {
		set++
	}
	if l.NFT != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("%w: label %s must carry exactly one payload, got %d", ErrInvalidMetadata, l.Kind, set)
	}

	switch l.Kind {
	case LabelKindCoinMarketCapToken:
		if l.Token == nil {
			return fmt.Errorf("%w: %s label without token details", ErrInvalidMetadata, l.Kind)
		}
	case LabelKindEtherscanSmartContract:
		if l.Contract == nil {
			return fmt.Errorf("%w: %s label without contract details", ErrInvalidMetadata, l.Kind)
		}
	case LabelKindERC721:
		if l.NFT == nil {
			return fmt.Errorf("%w: %s label without nft details", ErrInvalidMetadata, l.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown label kind %q", ErrInvalidMetadata, l.Kind)
	}

	return nil
}

// Payload returns whichever details struct the label carries
func (l *AddressLabel) Payload() any {
	switch l.Kind {
	case LabelKindCoinMarketCapToken:
		return l.Token
	case LabelKindEtherscanSmartContract:
		return l.Contract
	case LabelKindERC721:
		return l.NFT
	}
	return nil
}

// MetadataFromLabels derives NFT metadata for an address from its labels.
// Later producers win: coinmarketcap, then etherscan for the name, then erc721.
// Returns false when none of the labels carries a name or symbol.
func MetadataFromLabels(address string, labels []AddressLabel) (NFTMetadata, bool) {
	byKind := make(map[LabelKind]AddressLabel, len(labels))
	for _, l := range labels {
		byKind[l.Kind] = l
	}

	meta := NFTMetadata{Address: address}
	if l, ok := byKind[LabelKindCoinMarketCapToken]; ok && l.Token != nil {
		meta.Name = nonEmpty(l.Token.Name)
		meta.Symbol = nonEmpty(l.Token.Symbol)
	}
	if l, ok := byKind[LabelKindEtherscanSmartContract]; ok && l.Contract != nil {
		if name := nonEmpty(l.Contract.Name); name != nil {
			meta.Name = name
		}
	}
	if l, ok := byKind[LabelKindERC721]; ok && l.NFT != nil {
		if l.NFT.Name != nil {
			meta.Name = l.NFT.Name
		}
		if l.NFT.Symbol != nil {
			meta.Symbol = l.NFT.Symbol
		}
	}

	return meta, meta.Name != nil || meta.Symbol != nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// LabelsFromMetadata builds erc721 address labels from contract metadata,
// skipping records with neither name nor symbol
func LabelsFromMetadata(metadata []NFTMetadata) []AddressLabel {
	labels := make([]AddressLabel, 0, len(metadata))
	for _, m := range metadata {
		if m.Name == nil && m.Symbol == nil {
			continue
		}
		labels = append(labels, AddressLabel{
			Address: m.Address,
			Kind:    LabelKindERC721,
			NFT:     &NFTDetails{Name: m.Name, Symbol: m.Symbol},
		})
	}
	return labels
}
