package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/feral-file/nft-datastore/internal/domain"
)

func newNFTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nft",
		Short: "Read and add NFT contract metadata",
	}

	getCmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Show the stored metadata of an NFT contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := domain.NormalizeAddress(args[0])
			nft, err := a.store.GetNFT(cmd.Context(), address)
			if err != nil {
				return err
			}
			if nft == nil {
				return fmt.Errorf("nft %s not found", address)
			}
			return a.printJSON(cmd, nft)
		},
	}

	var name, symbol string
	addCmd := &cobra.Command{
		Use:   "add <address>",
		Short: "Store metadata for an NFT contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%w: invalid address %q", domain.ErrInvalidMetadata, args[0])
			}
			meta := domain.NFTMetadata{Address: domain.NormalizeAddress(args[0])}
			if cmd.Flags().Changed("name") {
				meta.Name = &name
			}
			if cmd.Flags().Changed("symbol") {
				meta.Symbol = &symbol
			}
			if err := a.store.InsertEntities(cmd.Context(), []domain.NFTMetadata{meta}); err != nil {
				return err
			}
			return a.printJSON(cmd, meta)
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "collection name")
	addCmd.Flags().StringVar(&symbol, "symbol", "", "collection symbol")

	cmd.AddCommand(getCmd, addCmd)
	return cmd
}
