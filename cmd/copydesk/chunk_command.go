package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"copydesk/internal/chunker"
	"copydesk/internal/config"
)

func newChunkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chunk <workspace> <transcript>",
		Short: "Split a transcript into chunk files inside the workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}
			transcript, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}

			chunks, err := chunker.WriteChunks(store, transcript, chunker.FromConfig(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunk(s) to %s\n",
				len(chunks), store.Abs(store.Layout().TranscriptChunksDir()))
			return nil
		},
	}
}
