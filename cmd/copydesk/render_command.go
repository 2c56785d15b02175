package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"copydesk/internal/render"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <workspace> <asset>",
		Short: "Render an asset's selected markdown to HTML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}
			rel, err := render.Selected(store, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", store.Abs(rel))
			return nil
		},
	}
}
