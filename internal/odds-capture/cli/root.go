package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/xpoes123/SharpLab/internal/shared/config"
)

// Starter é o subconjunto do client Temporal usado pelos comandos
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// DialFunc abre a conexão com o engine; close libera a conexão
type DialFunc func() (s Starter, close func(), err error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config    config.Config
	Dial      DialFunc
	TaskQueue string
	Timeout   time.Duration
}

// NewRootCommand cria o comando raiz do capture-starter
func NewRootCommand(cfg config.Config, dial DialFunc) *cobra.Command {
	opts := &RootOptions{Config: cfg, Dial: dial}

	cmd := &cobra.Command{
		Use:   "capture-starter",
		Short: "Start odds capture workflows",
		Long:  "Starts the durable odds polling loop and one-off close captures on the Temporal task queue.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.TaskQueue == "" {
				return fmt.Errorf("--task-queue must not be empty")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.TaskQueue, "task-queue", cfg.TaskQueue, "Temporal task queue")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "timeout for the start request")

	cmd.AddCommand(NewPollCommand(opts))
	cmd.AddCommand(NewCloseCaptureCommand(opts))

	return cmd
}

func (o *RootOptions) withStarter(ctx context.Context, fn func(ctx context.Context, s Starter) error) error {
	s, closeFn, err := o.Dial()
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	return fn(ctx, s)
}
