package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"copydesk/internal/loop"
	"copydesk/internal/workspace"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <workspace>",
		Short: "Show per-asset drafting progress for one episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}
			return renderStatus(cmd.OutOrStdout(), store)
		},
	}
}

func renderStatus(out io.Writer, store *workspace.Store) error {
	ws, err := store.LoadOrInitState()
	if err != nil {
		return err
	}

	heading := fmt.Sprintf("Episode %s", store.EpisodeID())
	rule := strings.Repeat("-", len(heading))
	if shouldColorize(out) {
		heading = ansiBlue + heading + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	fmt.Fprintln(out, heading)
	fmt.Fprintln(out, rule)

	if len(ws.Assets) == 0 {
		fmt.Fprintln(out, "No assets drafted yet")
		return nil
	}

	rows := make([][]string, 0, len(ws.Assets))
	for _, asset := range ws.Assets {
		outcome := string(loop.OutcomeInProgress)
		state, err := store.LoadProtocolState(asset.AssetID)
		if err != nil {
			return err
		}
		if state != nil && state.Decision != nil {
			outcome = string(state.Decision.Outcome)
		}

		selected := "-"
		if asset.SelectedCandidateID != nil {
			selected = asset.SelectedCandidateID.String()
		}
		rows = append(rows, []string{
			asset.AssetID,
			outcome,
			fmt.Sprintf("%d", len(asset.Candidates)),
			fmt.Sprintf("%d", len(asset.Reviews)),
			selected,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Asset", "Outcome", "Candidates", "Reviews", "Selected"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
