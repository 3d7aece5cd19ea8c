package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/xpoes123/SharpLab/internal/odds-capture/workflows"
	"github.com/xpoes123/SharpLab/internal/shared/config"
)

type fakeRun struct {
	client.WorkflowRun
	id     string
	result error
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run-1" }

func (r fakeRun) Get(context.Context, interface{}) error { return r.result }

type call struct {
	opts client.StartWorkflowOptions
	args []interface{}
}

type fakeStarter struct {
	calls  []call
	err    error
	result error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, opts client.StartWorkflowOptions, _ interface{}, args ...interface{}) (client.WorkflowRun, error) {
	f.calls = append(f.calls, call{opts: opts, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return fakeRun{id: opts.ID, result: f.result}, nil
}

func testConfig() config.Config {
	return config.Config{
		TaskQueue:           "sports-quant-lab",
		PollWorkflowID:      "odds-polling-v1",
		PollIntervalMinutes: 1,
		PollCyclesPerRun:    500,
	}
}

func run(t *testing.T, s *fakeStarter, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(testConfig(), func() (Starter, func(), error) {
		return s, func() {}, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPoll_StartsSingleton(t *testing.T) {
	s := &fakeStarter{}
	out, err := run(t, s, "poll", "--interval-minutes", "2")
	require.NoError(t, err)

	require.Len(t, s.calls, 1)
	c := s.calls[0]
	assert.Equal(t, "odds-polling-v1", c.opts.ID)
	assert.Equal(t, "sports-quant-lab", c.opts.TaskQueue)
	assert.True(t, c.opts.WorkflowExecutionErrorWhenAlreadyStarted)
	assert.Equal(t, []interface{}{workflows.PollInput{IntervalMinutes: 2, CyclesPerRun: 500}}, c.args)
	assert.Contains(t, out, "polling started: workflow_id=odds-polling-v1 run_id=run-1")
}

func TestPoll_AlreadyRunningIsNoop(t *testing.T) {
	s := &fakeStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "")}
	out, err := run(t, s, "poll")
	require.NoError(t, err)
	assert.Contains(t, out, "polling already running")
}

func TestPoll_StartError(t *testing.T) {
	s := &fakeStarter{err: errors.New("namespace not found")}
	_, err := run(t, s, "poll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace not found")
}

func TestCloseCapture(t *testing.T) {
	s := &fakeStarter{}
	out, err := run(t, s, "close-capture", "GAME123", "--start", "2024-01-01T19:30:00", "--task-queue", "other-queue")
	require.NoError(t, err)

	require.Len(t, s.calls, 1)
	c := s.calls[0]
	assert.Equal(t, "close-capture-GAME123", c.opts.ID)
	assert.Equal(t, "other-queue", c.opts.TaskQueue)
	assert.Equal(t, enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE, c.opts.WorkflowIDReusePolicy)
	assert.Equal(t, []interface{}{workflows.CloseCaptureInput{GameID: "GAME123", StartTimeUTC: "2024-01-01T19:30:00Z"}}, c.args)
	assert.Contains(t, out, "close capture scheduled: workflow_id=close-capture-GAME123")
}

func TestCloseCapture_Wait(t *testing.T) {
	s := &fakeStarter{}
	out, err := run(t, s, "close-capture", "GAME123", "--start", "2024-01-01T19:30:00Z", "--wait")
	require.NoError(t, err)
	assert.Contains(t, out, "close snapshot stored: snapshot_id=close:GAME123")

	s = &fakeStarter{result: errors.New("activity error")}
	_, err = run(t, s, "close-capture", "GAME123", "--start", "2024-01-01T19:30:00Z", "--wait")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close-capture-GAME123 failed")
}

func TestCloseCapture_AlreadyScheduled(t *testing.T) {
	s := &fakeStarter{err: serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "")}
	out, err := run(t, s, "close-capture", "GAME123", "--start", "2024-01-01T19:30:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "already scheduled")
}

func TestCloseCapture_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing start", []string{"close-capture", "GAME123"}},
		{"bad start", []string{"close-capture", "GAME123", "--start", "tonight"}},
		{"missing game", []string{"close-capture", "--start", "2024-01-01T19:30:00Z"}},
		{"empty task queue", []string{"close-capture", "GAME123", "--start", "2024-01-01T19:30:00Z", "--task-queue", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeStarter{}
			_, err := run(t, s, tt.args...)
			require.Error(t, err)
			assert.Empty(t, s.calls)
		})
	}
}
