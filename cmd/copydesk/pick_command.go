package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"copydesk/internal/pick"
	"copydesk/internal/workspace"
)

func newPickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pick <workspace> <asset> [candidate-id]",
		Short: "List an asset's candidates, or select one as final",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return listCandidates(cmd, store, args[1])
			}

			candidateID, err := uuid.Parse(strings.TrimSpace(args[2]))
			if err != nil {
				return fmt.Errorf("parse candidate id %q: %w", args[2], err)
			}
			chosen, err := pick.Select(store, args[1], candidateID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected candidate %s for asset %s\n", chosen.ID, args[1])
			return nil
		},
	}
}

func listCandidates(cmd *cobra.Command, store *workspace.Store, assetID string) error {
	candidates, err := pick.Candidates(store, assetID)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(candidates))
	for _, candidate := range candidates {
		rows = append(rows, []string{
			candidate.ID.String(),
			candidate.CreatedAt.Format("2006-01-02 15:04:05"),
			string(candidate.Format),
			previewText(candidate.Content, 60),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Candidate", "Created", "Format", "Preview"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	fmt.Fprintf(cmd.OutOrStdout(), "Select one with `copydesk pick <workspace> %s <candidate-id>`\n", assetID)
	return nil
}

func previewText(content string, limit int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= limit {
		return content
	}
	return content[:limit-3] + "..."
}
