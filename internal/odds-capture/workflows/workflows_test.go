package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap/zaptest"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/internal/odds-capture/store"
	"github.com/xpoes123/SharpLab/internal/shared/logger"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

var t0 = time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)

type fakeSchedule struct {
	games []snapshots.Game
}

func (f *fakeSchedule) GamesForToday(context.Context) ([]snapshots.Game, error) {
	return append([]snapshots.Game(nil), f.games...), nil
}

type fakeOdds struct {
	mu            sync.Mutex
	games         map[string]json.RawMessage
	requestIDs    []string
	closeCalls    int
	closeFailures int // falhas transitórias antes do primeiro sucesso
}

func (f *fakeOdds) OddsBatch(_ context.Context, requestID string, gameIDs []string) (snapshots.OddsBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestIDs = append(f.requestIDs, requestID)

	games := make(map[string]json.RawMessage)
	for _, id := range gameIDs {
		if p, ok := f.games[id]; ok {
			games[id] = p
		}
	}
	return snapshots.OddsBatch{Source: "testbook", CapturedAtUTC: t0.Add(time.Second), Games: games}, nil
}

func (f *fakeOdds) GameOdds(_ context.Context, gameID string) (activities.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if f.closeCalls <= f.closeFailures {
		return activities.Quote{}, snapshots.ErrTransientProvider
	}
	return activities.Quote{Source: "testbook", CapturedAtUTC: t0, Payload: f.games[gameID]}, nil
}

func (f *fakeOdds) calls() (batches []string, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requestIDs...), f.closeCalls
}

// flakyStore falha as primeiras failFirst gravações (ou todas, com failAlways)
type flakyStore struct {
	*store.Memory
	mu         sync.Mutex
	upserts    int
	failFirst  int
	failAlways bool
}

func (s *flakyStore) Upsert(ctx context.Context, snap snapshots.OddsSnapshot) (bool, error) {
	s.mu.Lock()
	s.upserts++
	n := s.upserts
	s.mu.Unlock()
	if s.failAlways || n <= s.failFirst {
		return false, errors.New("database is locked")
	}
	return s.Memory.Upsert(ctx, snap)
}

func (s *flakyStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

type harness struct {
	env   *testsuite.TestWorkflowEnvironment
	acts  *activities.Activities
	odds  *fakeOdds
	store *flakyStore

	mu           sync.Mutex
	closeFetchAt []time.Time
}

func newHarness(t *testing.T, games []snapshots.Game, payloads map[string]json.RawMessage) *harness {
	var ts testsuite.WorkflowTestSuite
	ts.SetLogger(logger.NewTemporal(zaptest.NewLogger(t)))

	h := &harness{
		odds:  &fakeOdds{games: payloads},
		store: &flakyStore{Memory: store.NewMemory()},
	}
	h.acts = &activities.Activities{
		Schedule: &fakeSchedule{games: games},
		Odds:     h.odds,
		Store:    h.store,
	}

	h.env = ts.NewTestWorkflowEnvironment()
	h.env.SetStartTime(t0)
	h.env.RegisterWorkflow(OddsPollingWorkflow)
	h.env.RegisterWorkflow(CloseCaptureWorkflow)
	h.env.RegisterActivity(h.acts)
	h.env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, _ converter.EncodedValues) {
		if info.ActivityType.Name != "FetchCloseSnapshot" {
			return
		}
		h.mu.Lock()
		h.closeFetchAt = append(h.closeFetchAt, h.env.Now())
		h.mu.Unlock()
	})
	return h
}

func (h *harness) closeFetches() []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.closeFetchAt...)
}

func requireContinueAsNew(t *testing.T, env *testsuite.TestWorkflowEnvironment) {
	t.Helper()
	require.True(t, env.IsWorkflowCompleted())
	var can *workflow.ContinueAsNewError
	require.True(t, errors.As(env.GetWorkflowError(), &can), "expected continue-as-new, got %v", env.GetWorkflowError())
}

func TestPolling_SpawnsCloseCaptureOnceAndStoresClose(t *testing.T) {
	start := t0.Add(90 * time.Second)
	h := newHarness(t,
		[]snapshots.Game{{GameID: "G1", StartTimeUTC: start}},
		map[string]json.RawMessage{"G1": json.RawMessage(`{"spread":-4.5}`)},
	)

	// ciclos em T, T+1m e T+2m; o jogo começa em T+90s
	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 3})
	requireContinueAsNew(t, h.env)

	ctx := context.Background()
	closeSnap, err := h.store.Get(ctx, "close:G1")
	require.NoError(t, err)
	assert.Equal(t, snapshots.KindClose, closeSnap.Kind)
	assert.Equal(t, "G1", closeSnap.GameID)
	assert.JSONEq(t, `{"spread":-4.5}`, string(closeSnap.Payload))

	closes, err := h.store.ListByGame(ctx, "G1", snapshots.KindClose)
	require.NoError(t, err)
	assert.Len(t, closes, 1)

	// segundo ciclo tentou a mesma identidade; só uma captura de fechamento roda
	fetches := h.closeFetches()
	require.Len(t, fetches, 1)
	assert.False(t, fetches[0].Before(start), "close fetched at %s before start %s", fetches[0], start)

	polls, err := h.store.ListByGame(ctx, "G1", snapshots.KindPoll)
	require.NoError(t, err)
	ids := make([]string, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.SnapshotID)
	}
	assert.Equal(t, []string{
		"poll:2024-01-01T00:05:00Z:G1",
		"poll:2024-01-01T00:06:00Z:G1",
		"poll:2024-01-01T00:07:00Z:G1",
	}, ids)
}

func TestPolling_SkipsStartedGames(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
	}{
		{"already started", t0.Add(-10 * time.Second)},
		{"starts exactly now", t0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []snapshots.Game{{GameID: "G1", StartTimeUTC: tt.start}}, nil)

			h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 1})
			requireContinueAsNew(t, h.env)

			assert.Empty(t, h.closeFetches())
			_, err := h.store.Get(context.Background(), "close:G1")
			assert.ErrorIs(t, err, store.ErrNotFound)

			// o poll do jogo continua sendo gravado
			_, err = h.store.Get(context.Background(), "poll:2024-01-01T00:05:00Z:G1")
			assert.NoError(t, err)
		})
	}
}

func TestPolling_StoresOneSnapshotPerGame(t *testing.T) {
	past := t0.Add(-time.Hour)
	h := newHarness(t,
		[]snapshots.Game{{GameID: "G1", StartTimeUTC: past}, {GameID: "G2", StartTimeUTC: past}},
		map[string]json.RawMessage{
			"G1": json.RawMessage(`{"spread":-4.5}`),
			"G2": json.RawMessage(`{"spread":3.0}`),
		},
	)

	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 1})
	requireContinueAsNew(t, h.env)

	ctx := context.Background()
	g1, err := h.store.Get(ctx, "poll:2024-01-01T00:05:00Z:G1")
	require.NoError(t, err)
	g2, err := h.store.Get(ctx, "poll:2024-01-01T00:05:00Z:G2")
	require.NoError(t, err)

	assert.JSONEq(t, `{"spread":-4.5}`, string(g1.Payload))
	assert.JSONEq(t, `{"spread":3.0}`, string(g2.Payload))
	assert.Equal(t, snapshots.KindPoll, g1.Kind)
	assert.Equal(t, "testbook", g2.Source)
	assert.Equal(t, 2, h.store.Len())

	batches, _ := h.odds.calls()
	assert.Equal(t, []string{"poll:2024-01-01T00:05:00Z"}, batches)
}

func TestPolling_MissingGameGetsEmptyPayload(t *testing.T) {
	past := t0.Add(-time.Hour)
	h := newHarness(t,
		[]snapshots.Game{{GameID: "G1", StartTimeUTC: past}, {GameID: "G2", StartTimeUTC: past}},
		map[string]json.RawMessage{"G1": json.RawMessage(`{"spread":-4.5}`)},
	)

	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 1})
	requireContinueAsNew(t, h.env)

	g2, err := h.store.Get(context.Background(), "poll:2024-01-01T00:05:00Z:G2")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(g2.Payload))
}

func TestPolling_NoGamesStillFetchesBatch(t *testing.T) {
	h := newHarness(t, nil, nil)

	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 2})
	requireContinueAsNew(t, h.env)

	batches, closes := h.odds.calls()
	assert.Equal(t, []string{"poll:2024-01-01T00:05:00Z", "poll:2024-01-01T00:06:00Z"}, batches)
	assert.Zero(t, closes)
	assert.Zero(t, h.store.Len())
}

func TestPolling_UpsertRetryIsIdempotent(t *testing.T) {
	h := newHarness(t, []snapshots.Game{{GameID: "G1", StartTimeUTC: t0.Add(-time.Hour)}}, nil)
	h.store.failFirst = 2

	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 1})
	requireContinueAsNew(t, h.env)

	assert.Equal(t, 3, h.store.attempts())
	assert.Equal(t, 1, h.store.Len())
}

func TestPolling_UpsertExhaustionFailsLoop(t *testing.T) {
	h := newHarness(t, []snapshots.Game{{GameID: "G1", StartTimeUTC: t0.Add(-time.Hour)}}, nil)
	h.store.failAlways = true

	h.env.ExecuteWorkflow(OddsPollingWorkflow, PollInput{IntervalMinutes: 1, CyclesPerRun: 3})
	require.True(t, h.env.IsWorkflowCompleted())

	err := h.env.GetWorkflowError()
	require.Error(t, err)
	var can *workflow.ContinueAsNewError
	assert.False(t, errors.As(err, &can))
	assert.Equal(t, pollUpsertMaxAttempts, h.store.attempts())
	assert.Contains(t, err.Error(), "poll:2024-01-01T00:05:00Z:G1")
}

func TestPolling_Defaults(t *testing.T) {
	in := PollInput{}.withDefaults()
	assert.Equal(t, DefaultIntervalMinutes, in.IntervalMinutes)
	assert.Equal(t, DefaultCyclesPerRun, in.CyclesPerRun)

	in = PollInput{IntervalMinutes: 5, CyclesPerRun: 10}.withDefaults()
	assert.Equal(t, 5, in.IntervalMinutes)
	assert.Equal(t, 10, in.CyclesPerRun)
}

func TestGameIDs_KeepsOrderWithoutDuplicates(t *testing.T) {
	games := []snapshots.Game{{GameID: "B"}, {GameID: "A"}, {GameID: "B"}}
	assert.Equal(t, []string{"B", "A"}, gameIDs(games))
}

func TestCloseCapture(t *testing.T) {
	tests := []struct {
		name      string
		startTime string
		wantAt    time.Time
	}{
		{"sleeps until zoned start", "2024-01-01T00:07:00Z", time.Date(2024, 1, 1, 0, 7, 0, 0, time.UTC)},
		{"naive start is utc", "2024-01-01T00:07:00", time.Date(2024, 1, 1, 0, 7, 0, 0, time.UTC)},
		{"offset start", "2023-12-31T21:07:00-03:00", time.Date(2024, 1, 1, 0, 7, 0, 0, time.UTC)},
		{"past start captures immediately", "2024-01-01T00:04:00Z", t0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, map[string]json.RawMessage{"G1": json.RawMessage(`{"spread":-4.5}`)})

			h.env.ExecuteWorkflow(CloseCaptureWorkflow, CloseCaptureInput{GameID: "G1", StartTimeUTC: tt.startTime})
			require.True(t, h.env.IsWorkflowCompleted())
			require.NoError(t, h.env.GetWorkflowError())

			fetches := h.closeFetches()
			require.Len(t, fetches, 1)
			assert.True(t, tt.wantAt.Equal(fetches[0]), "fetched at %s, want %s", fetches[0], tt.wantAt)

			snap, err := h.store.Get(context.Background(), "close:G1")
			require.NoError(t, err)
			assert.Equal(t, snapshots.KindClose, snap.Kind)
			assert.Equal(t, 1, h.store.Len())
		})
	}
}

func TestCloseCapture_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   CloseCaptureInput
	}{
		{"bad start time", CloseCaptureInput{GameID: "G1", StartTimeUTC: "after lunch"}},
		{"empty game", CloseCaptureInput{StartTimeUTC: "2024-01-01T00:07:00Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, nil)

			h.env.ExecuteWorkflow(CloseCaptureWorkflow, tt.in)
			require.True(t, h.env.IsWorkflowCompleted())
			err := h.env.GetWorkflowError()
			require.Error(t, err)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, activities.ErrTypeInvalidInput, appErr.Type())
			assert.True(t, appErr.NonRetryable())

			_, closes := h.odds.calls()
			assert.Zero(t, closes)
			assert.Zero(t, h.store.Len())
		})
	}
}

func TestCloseCapture_RetriesTransientProviderErrors(t *testing.T) {
	h := newHarness(t, nil, map[string]json.RawMessage{"G1": json.RawMessage(`{"spread":-4.5}`)})
	h.odds.closeFailures = 2

	h.env.ExecuteWorkflow(CloseCaptureWorkflow, CloseCaptureInput{GameID: "G1", StartTimeUTC: "2024-01-01T00:04:00Z"})
	require.True(t, h.env.IsWorkflowCompleted())
	require.NoError(t, h.env.GetWorkflowError())

	_, closes := h.odds.calls()
	assert.Equal(t, 3, closes)
	_, err := h.store.Get(context.Background(), "close:G1")
	assert.NoError(t, err)
}

func TestCloseCapture_TerminalFetchFailure(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.env.OnActivity(h.acts.FetchCloseSnapshot, mock.Anything, mock.Anything).
		Return(snapshots.OddsSnapshot{}, temporal.NewNonRetryableApplicationError("game removed from board", "GameGone", nil))

	h.env.ExecuteWorkflow(CloseCaptureWorkflow, CloseCaptureInput{GameID: "G1", StartTimeUTC: "2024-01-01T00:04:00Z"})
	require.True(t, h.env.IsWorkflowCompleted())

	err := h.env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close:G1")
	assert.Zero(t, h.store.Len())
}

func TestIsAlreadyStarted(t *testing.T) {
	assert.False(t, IsAlreadyStarted(nil))
	assert.False(t, IsAlreadyStarted(errors.New("boom")))
	assert.True(t, IsAlreadyStarted(&temporal.ChildWorkflowExecutionAlreadyStartedError{}))
}
