package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"copydesk/internal/agents"
	"copydesk/internal/domain"
	"copydesk/internal/loop"
	"copydesk/internal/queue"
	"copydesk/internal/workflow"
)

func newDraftCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "draft <workspace> <asset>",
		Short: "Run the drafting loop for one asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}

			creator, reviewer, err := agents.New(cfg, store.Root())
			if err != nil {
				return err
			}

			runner := workflow.NewRunner(store, logger, cfg.Loop.MaxIterations)
			result, err := runner.Run(cmd.Context(), args[1], creator, reviewer)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Asset %s finished: %s after %d iteration(s)\n", result.AssetID, result.Outcome, result.Iterations)
			if result.SelectedCandidateID != nil {
				fmt.Fprintf(out, "Selected candidate: %s\n", result.SelectedCandidateID)
			}
			if result.Outcome == loop.OutcomeNeedsHuman {
				fmt.Fprintf(out, "Review the drafts and settle the asset with `copydesk pick %s %s`\n", args[0], args[1])
			}
			return nil
		},
	}
}

func newDraftAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "draft-all <workspace>",
		Short: "Queue every known asset kind and drain the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.workspaceStore(args[0])
			if err != nil {
				return err
			}
			queueStore, err := ctx.openQueue()
			if err != nil {
				return err
			}
			defer queueStore.Close()

			episodeID := store.EpisodeID()
			ids := make([]int64, 0, len(domain.AllKinds()))
			for _, kind := range domain.AllKinds() {
				job, err := queueStore.Enqueue(cmd.Context(), episodeID, store.Root(), string(kind))
				if err != nil {
					return err
				}
				if !job.Status.IsTerminal() {
					ids = append(ids, job.ID)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d asset(s) for episode %s\n", len(ids), episodeID)
			if len(ids) == 0 {
				return nil
			}

			manager := workflow.NewManager(cfg, queueStore, logger)
			if err := manager.Start(cmd.Context()); err != nil {
				return err
			}
			defer manager.Stop()

			if err := waitForJobs(cmd.Context(), queueStore, ids); err != nil {
				return err
			}
			return reportJobs(cmd, queueStore, ids)
		},
	}
}

// waitForJobs blocks until every listed job reaches a terminal status.
func waitForJobs(ctx context.Context, store *queue.Store, ids []int64) error {
	pending := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	for len(pending) > 0 {
		for id := range pending {
			job, err := store.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if job.Status.IsTerminal() {
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil
}

func reportJobs(cmd *cobra.Command, store *queue.Store, ids []int64) error {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		job, err := store.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		detail := job.Reason
		if job.ErrorMessage != "" {
			detail = job.ErrorMessage
		}
		rows = append(rows, []string{job.AssetID, string(job.Status), fmt.Sprintf("%d", job.Iterations), detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Asset", "Status", "Iterations", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}
