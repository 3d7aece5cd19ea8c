package workflows

import (
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/workflow"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// PollInput parametriza o loop de polling.
// CyclesPerRun limita o histórico: após N ciclos o workflow continua como novo.
type PollInput struct {
	IntervalMinutes int `json:"interval_minutes"`
	CyclesPerRun    int `json:"cycles_per_run"`
}

func (in PollInput) withDefaults() PollInput {
	if in.IntervalMinutes <= 0 {
		in.IntervalMinutes = DefaultIntervalMinutes
	}
	if in.CyclesPerRun <= 0 {
		in.CyclesPerRun = DefaultCyclesPerRun
	}
	return in
}

// OddsPollingWorkflow é o loop durável de captura:
//   - lista os jogos do dia
//   - garante uma CloseCaptureWorkflow por jogo que ainda não começou
//   - captura as odds em lote e grava um snapshot por jogo
//   - dorme o intervalo e repete
//
// Não retorna em operação normal; a cada CyclesPerRun ciclos continua como novo
// com a mesma entrada, mantendo o mesmo workflow id.
func OddsPollingWorkflow(ctx workflow.Context, in PollInput) error {
	in = in.withDefaults()
	log := workflow.GetLogger(ctx)
	interval := time.Duration(in.IntervalMinutes) * time.Minute

	for cycle := 0; cycle < in.CyclesPerRun; cycle++ {
		if err := runPollCycle(ctx); err != nil {
			return err
		}
		if err := workflow.Sleep(ctx, interval); err != nil {
			return err
		}
	}

	log.Info("continuing odds polling as new", "cycles", in.CyclesPerRun)
	return workflow.NewContinueAsNewError(ctx, OddsPollingWorkflow, in)
}

// runPollCycle executa um ciclo completo; os passos são estritamente sequenciais
func runPollCycle(ctx workflow.Context) error {
	var a *activities.Activities
	log := workflow.GetLogger(ctx)
	cycleStart := workflow.Now(ctx)

	var games []snapshots.Game
	if err := workflow.ExecuteActivity(withActivityTimeout(ctx), a.DiscoverGames).Get(ctx, &games); err != nil {
		return fmt.Errorf("discover games: %w", err)
	}

	now := workflow.Now(ctx)
	for _, g := range games {
		// início exatamente em now conta como já iniciado
		if !g.StartTimeUTC.After(now) {
			continue
		}
		if err := ensureCloseCapture(ctx, g); err != nil {
			return err
		}
	}

	prefix := snapshots.PollSnapshotPrefix(cycleStart)
	ids := gameIDs(games)

	var batch snapshots.OddsBatch
	in := snapshots.FetchOddsBatchInput{RequestID: prefix, GameIDs: ids}
	if err := workflow.ExecuteActivity(withActivityTimeout(ctx), a.FetchOddsBatch, in).Get(ctx, &batch); err != nil {
		return fmt.Errorf("fetch odds batch %s: %w", prefix, err)
	}

	// fan-out dos upserts e fan-in antes de dormir
	uctx := withPollUpsertRetry(ctx)
	futures := make([]workflow.Future, 0, len(ids))
	for _, id := range ids {
		snap := snapshots.OddsSnapshot{
			SnapshotID:    snapshots.PollSnapshotID(prefix, id),
			Kind:          snapshots.KindPoll,
			GameID:        id,
			Source:        batch.Source,
			CapturedAtUTC: batch.CapturedAtUTC,
			Payload:       batch.PayloadFor(id),
		}
		futures = append(futures, workflow.ExecuteActivity(uctx, a.UpsertSnapshot, snap))
	}

	var firstErr error
	for i, f := range futures {
		if err := f.Get(ctx, nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("upsert %s: %w", snapshots.PollSnapshotID(prefix, ids[i]), err)
		}
	}
	if firstErr != nil {
		return firstErr
	}

	log.Info("poll cycle done", "bucket", prefix, "games", len(ids))
	return nil
}

// ensureCloseCapture cria a CloseCaptureWorkflow do jogo se ainda não existir.
// Identidade repetida é sucesso: vários ciclos tentam criar a mesma task.
func ensureCloseCapture(ctx workflow.Context, g snapshots.Game) error {
	log := workflow.GetLogger(ctx)
	id := snapshots.CloseCaptureWorkflowID(g.GameID)

	cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:            id,
		ParentClosePolicy:     enumspb.PARENT_CLOSE_POLICY_ABANDON,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	})
	in := CloseCaptureInput{
		GameID:       g.GameID,
		StartTimeUTC: snapshots.FormatStartTime(g.StartTimeUTC),
	}

	var exec workflow.Execution
	err := workflow.ExecuteChildWorkflow(cctx, CloseCaptureWorkflow, in).GetChildWorkflowExecution().Get(ctx, &exec)
	if err != nil {
		if IsAlreadyStarted(err) {
			log.Debug("close capture already scheduled", "game_id", g.GameID, "workflow_id", id)
			return nil
		}
		return fmt.Errorf("start close capture %s: %w", id, err)
	}

	log.Info("started close capture", "game_id", g.GameID, "workflow_id", id, "run_id", exec.RunID)
	return nil
}

// gameIDs devolve os ids na ordem da agenda, sem repetição
func gameIDs(games []snapshots.Game) []string {
	ids := make([]string, 0, len(games))
	seen := make(map[string]struct{}, len(games))
	for _, g := range games {
		if _, ok := seen[g.GameID]; ok {
			continue
		}
		seen[g.GameID] = struct{}{}
		ids = append(ids, g.GameID)
	}
	return ids
}
