package workflows

import (
	"errors"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// timeout start-to-close de toda invocação de activity
	activityTimeout = 10 * time.Second

	// o upsert do poll é a escrita de registro do ciclo
	pollUpsertMaxAttempts = 3

	DefaultIntervalMinutes = 1
	DefaultCyclesPerRun    = 500
)

// withActivityTimeout aplica o timeout padrão e mantém a retry policy default do engine
func withActivityTimeout(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
	})
}

// withPollUpsertRetry limita o upsert do snapshot de polling a 3 tentativas
func withPollUpsertRetry(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: pollUpsertMaxAttempts,
		},
	})
}

// IsAlreadyStarted reconhece a tentativa de criar uma task com identidade já ativa.
// O servidor devolve ChildWorkflowExecutionAlreadyStartedError; o ambiente de
// teste e o client devolvem serviceerror.WorkflowExecutionAlreadyStarted.
func IsAlreadyStarted(err error) bool {
	var child *temporal.ChildWorkflowExecutionAlreadyStartedError
	if errors.As(err, &child) {
		return true
	}
	var svc *serviceerror.WorkflowExecutionAlreadyStarted
	return errors.As(err, &svc)
}
