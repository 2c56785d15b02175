package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"copydesk/internal/workflow"
)

func newWorkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Run queue workers until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			queueStore, err := ctx.openQueue()
			if err != nil {
				return err
			}
			defer queueStore.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			manager := workflow.NewManager(cfg, queueStore, logger)
			if err := manager.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Running %d worker(s); press Ctrl-C to stop\n", cfg.Loop.Workers)

			<-runCtx.Done()
			manager.Stop()
			fmt.Fprintln(cmd.OutOrStdout(), "Workers stopped")
			return nil
		},
	}
}
