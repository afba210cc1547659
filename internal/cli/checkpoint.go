package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/feral-file/nft-datastore/internal/domain"
)

type checkpointOutput struct {
	EventType domain.EventType `json:"event_type"`
	Offset    uint64           `json:"offset"`
	Found     bool             `json:"found"`
}

type checkpointRow struct {
	ID        uint64    `json:"id"`
	EventType string    `json:"event_type"`
	Offset    uint64    `json:"offset"`
	CreatedAt time.Time `json:"created_at"`
}

func newCheckpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and record crawl checkpoints",
	}

	getCmd := &cobra.Command{
		Use:   "get <event-type>",
		Short: "Show the latest checkpoint offset for an event type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := domain.ParseEventType(args[0])
			if err != nil {
				return err
			}
			offset, found, err := a.store.GetOffset(cmd.Context(), eventType)
			if err != nil {
				return err
			}
			return a.printJSON(cmd, checkpointOutput{EventType: eventType, Offset: offset, Found: found})
		},
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history <event-type>",
		Short: "List recorded checkpoints for an event type, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := domain.ParseEventType(args[0])
			if err != nil {
				return err
			}
			history, err := a.store.GetCheckpointHistory(cmd.Context(), eventType, limit)
			if err != nil {
				return err
			}
			rows := make([]checkpointRow, 0, len(history))
			for _, cp := range history {
				rows = append(rows, checkpointRow{
					ID:        cp.ID,
					EventType: cp.EventType,
					Offset:    cp.Offset,
					CreatedAt: cp.CreatedAt,
				})
			}
			return a.printJSON(cmd, rows)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of checkpoints (0 for all)")

	recordCmd := &cobra.Command{
		Use:   "record <event-type> <offset>",
		Short: "Append a checkpoint, e.g. to rewind or skip ahead",
		Long: `Append a checkpoint for an event type. The crawler resumes at offset+1.
Rewinding is safe: events already stored are skipped on re-ingestion.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType, err := domain.ParseEventType(args[0])
			if err != nil {
				return err
			}
			offset, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", args[1], err)
			}
			if err := a.store.RecordOffset(cmd.Context(), eventType, offset); err != nil {
				return err
			}
			return a.printJSON(cmd, checkpointOutput{EventType: eventType, Offset: offset, Found: true})
		},
	}

	cmd.AddCommand(getCmd, historyCmd, recordCmd)
	return cmd
}
