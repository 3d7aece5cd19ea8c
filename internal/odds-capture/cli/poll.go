package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/xpoes123/SharpLab/internal/odds-capture/workflows"
)

// PollOptions holds flags for the poll command.
type PollOptions struct {
	*RootOptions
	WorkflowID      string
	IntervalMinutes int
	CyclesPerRun    int
}

// NewPollCommand cria o comando que inicia o loop de polling singleton
func NewPollCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PollOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Start the odds polling loop",
		Long: `Start the odds polling loop under a fixed workflow id.

Running it again while the loop is active is a no-op.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startPolling(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.WorkflowID, "workflow-id", rootOpts.Config.PollWorkflowID, "polling workflow id")
	cmd.Flags().IntVar(&opts.IntervalMinutes, "interval-minutes", rootOpts.Config.PollIntervalMinutes, "minutes between poll cycles")
	cmd.Flags().IntVar(&opts.CyclesPerRun, "cycles-per-run", rootOpts.Config.PollCyclesPerRun, "cycles before continue-as-new")

	return cmd
}

func startPolling(cmd *cobra.Command, opts *PollOptions) error {
	if opts.WorkflowID == "" {
		return fmt.Errorf("--workflow-id must not be empty")
	}
	in := workflows.PollInput{IntervalMinutes: opts.IntervalMinutes, CyclesPerRun: opts.CyclesPerRun}

	return opts.withStarter(cmd.Context(), func(ctx context.Context, s Starter) error {
		so := client.StartWorkflowOptions{ID: opts.WorkflowID, TaskQueue: opts.TaskQueue}
		so.WorkflowExecutionErrorWhenAlreadyStarted = true

		run, err := s.ExecuteWorkflow(ctx, so, workflows.OddsPollingWorkflow, in)
		if err != nil {
			var started *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(err, &started) {
				fmt.Fprintf(cmd.OutOrStdout(), "polling already running: workflow_id=%s\n", opts.WorkflowID)
				return nil
			}
			return fmt.Errorf("start polling: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "polling started: workflow_id=%s run_id=%s\n", run.GetID(), run.GetRunID())
		return nil
	})
}
