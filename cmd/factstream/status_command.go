package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"State", string(status.Pipeline.State)},
				{"Corpus chunks", fmt.Sprintf("%d", status.CorpusChunks)},
			}
			if status.Pipeline.SessionID != "" {
				rows = append(rows,
					[]string{"Session", status.Pipeline.SessionID},
					[]string{"Source", status.Pipeline.SourceURL},
					[]string{"Chunks processed", fmt.Sprintf("%d", status.Pipeline.ChunksProcessed)},
				)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
