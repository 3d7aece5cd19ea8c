package workflows

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// CloseCaptureInput identifica o jogo e o horário de início em ISO-8601
type CloseCaptureInput struct {
	GameID       string `json:"game_id"`
	StartTimeUTC string `json:"start_time_utc"`
}

// CloseCaptureWorkflow roda uma vez por jogo: dorme até o início,
// captura um único snapshot "close" e grava.
func CloseCaptureWorkflow(ctx workflow.Context, in CloseCaptureInput) error {
	var a *activities.Activities
	log := workflow.GetLogger(ctx)

	if in.GameID == "" {
		return invalidInput(fmt.Errorf("close capture: empty game id"))
	}
	// sem fuso assume UTC; só entradas e o relógio do workflow, nunca time.Now
	start, err := snapshots.ParseStartTime(in.StartTimeUTC)
	if err != nil {
		return invalidInput(fmt.Errorf("close capture %s: %w", in.GameID, err))
	}

	if delay := start.Sub(workflow.Now(ctx)); delay > 0 {
		log.Info("waiting for game start", "game_id", in.GameID, "delay", delay.String())
		if err := workflow.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	actx := withActivityTimeout(ctx)
	fetch := snapshots.FetchCloseSnapshotInput{
		SnapshotID: snapshots.CloseSnapshotID(in.GameID),
		GameID:     in.GameID,
	}

	var snap snapshots.OddsSnapshot
	if err := workflow.ExecuteActivity(actx, a.FetchCloseSnapshot, fetch).Get(ctx, &snap); err != nil {
		return fmt.Errorf("fetch close snapshot %s: %w", fetch.SnapshotID, err)
	}

	if err := workflow.ExecuteActivity(actx, a.UpsertSnapshot, snap).Get(ctx, nil); err != nil {
		return fmt.Errorf("upsert close snapshot %s: %w", fetch.SnapshotID, err)
	}

	log.Info("close snapshot stored", "game_id", in.GameID, "snapshot_id", fetch.SnapshotID)
	return nil
}

// invalidInput usa o mesmo tipo de erro das activities para entradas inválidas
func invalidInput(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), activities.ErrTypeInvalidInput, err)
}
