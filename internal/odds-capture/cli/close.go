package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/xpoes123/SharpLab/internal/odds-capture/workflows"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// CloseCaptureOptions holds flags for the close-capture command.
type CloseCaptureOptions struct {
	*RootOptions
	StartTime string
	Wait      bool
}

// NewCloseCaptureCommand agenda manualmente a captura de fechamento de um jogo.
// Usa a mesma identidade do polling, então nunca duplica uma captura existente.
func NewCloseCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CloseCaptureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "close-capture <game_id>",
		Short: "Schedule the close capture of one game",
		Long: `Schedule the close capture of one game.

Example:
  capture-starter close-capture GAME123 --start 2024-01-01T19:30:00Z`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startCloseCapture(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.StartTime, "start", "", "game start time, ISO-8601 (no zone means UTC)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "block until the close snapshot is stored")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func startCloseCapture(cmd *cobra.Command, opts *CloseCaptureOptions, gameID string) error {
	start, err := snapshots.ParseStartTime(opts.StartTime)
	if err != nil {
		return err
	}
	id := snapshots.CloseCaptureWorkflowID(gameID)
	in := workflows.CloseCaptureInput{GameID: gameID, StartTimeUTC: snapshots.FormatStartTime(start)}

	return opts.withStarter(cmd.Context(), func(ctx context.Context, s Starter) error {
		so := client.StartWorkflowOptions{
			ID:                    id,
			TaskQueue:             opts.TaskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		}
		so.WorkflowExecutionErrorWhenAlreadyStarted = true

		run, err := s.ExecuteWorkflow(ctx, so, workflows.CloseCaptureWorkflow, in)
		if err != nil {
			if workflows.IsAlreadyStarted(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "close capture already scheduled: workflow_id=%s\n", id)
				return nil
			}
			return fmt.Errorf("start close capture %s: %w", id, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "close capture scheduled: workflow_id=%s run_id=%s start=%s\n", run.GetID(), run.GetRunID(), in.StartTimeUTC)
		if !opts.Wait {
			return nil
		}

		// espera até o início do jogo: sem o timeout do pedido de start
		if err := run.Get(cmd.Context(), nil); err != nil {
			return fmt.Errorf("close capture %s failed: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "close snapshot stored: snapshot_id=%s\n", snapshots.CloseSnapshotID(gameID))
		return nil
	})
}
