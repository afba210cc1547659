package cli

import (
	"github.com/spf13/cobra"

	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/store"
)

type countOutput struct {
	EventType domain.EventType `json:"event_type"`
	Count     int64            `json:"count"`
}

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query stored transfers and mints",
	}

	countCmd := &cobra.Command{
		Use:   "count <event-type>",
		Short: "Count stored events of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := domain.ParseEventType(args[0])
			if err != nil {
				return err
			}
			count, err := a.store.CountEvents(cmd.Context(), eventType)
			if err != nil {
				return err
			}
			return a.printJSON(cmd, countOutput{EventType: eventType, Count: count})
		},
	}

	var (
		fromBlock  uint64
		toBlock    uint64
		nftAddress string
		limit      int
	)
	listCmd := &cobra.Command{
		Use:   "list <event-type>",
		Short: "List stored events of a type ordered by block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := domain.ParseEventType(args[0])
			if err != nil {
				return err
			}

			filter := store.EventQueryFilter{
				NFTAddress: domain.NormalizeAddress(nftAddress),
				Limit:      limit,
			}
			if cmd.Flags().Changed("from-block") {
				filter.FromBlock = &fromBlock
			}
			if cmd.Flags().Changed("to-block") {
				filter.ToBlock = &toBlock
			}

			events, err := a.store.GetEvents(cmd.Context(), eventType, filter)
			if err != nil {
				return err
			}
			return a.printJSON(cmd, events)
		},
	}
	listCmd.Flags().Uint64Var(&fromBlock, "from-block", 0, "inclusive lower block bound")
	listCmd.Flags().Uint64Var(&toBlock, "to-block", 0, "inclusive upper block bound")
	listCmd.Flags().StringVar(&nftAddress, "address", "", "only events of this NFT contract")
	listCmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events (0 for all)")

	cmd.AddCommand(countCmd, listCmd)
	return cmd
}
