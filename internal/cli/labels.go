package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feral-file/nft-datastore/internal/domain"
)

type labelsOutput struct {
	Address  string                `json:"address"`
	Labels   []domain.AddressLabel `json:"labels"`
	Metadata *domain.NFTMetadata   `json:"metadata,omitempty"`
}

type importOutput struct {
	Imported int `json:"imported"`
}

func newLabelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Read and import address labels",
	}

	getCmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Show the labels attached to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := domain.NormalizeAddress(args[0])
			labels, err := a.store.GetLabels(cmd.Context(), address)
			if err != nil {
				return err
			}

			out := labelsOutput{Address: address, Labels: labels}
			if meta, ok := domain.MetadataFromLabels(address, labels); ok {
				out.Metadata = &meta
			}
			return a.printJSON(cmd, out)
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a JSON array of address labels",
		Long: `Import address labels from a JSON array such as:

  [{"address": "0x...", "kind": "coinmarketcap_token",
    "token": {"name": "Token", "symbol": "TKN"}}]

Labels already stored for the same address and kind are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.deps.FileSystem.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read labels file: %w", err)
			}

			var labels []domain.AddressLabel
			if err := a.deps.JSON.Unmarshal(data, &labels); err != nil {
				return fmt.Errorf("failed to parse labels file: %w", err)
			}
			for i := range labels {
				labels[i].Address = domain.NormalizeAddress(labels[i].Address)
			}

			if err := a.store.InsertLabels(cmd.Context(), labels); err != nil {
				return err
			}
			return a.printJSON(cmd, importOutput{Imported: len(labels)})
		},
	}

	cmd.AddCommand(getCmd, importCmd)
	return cmd
}
