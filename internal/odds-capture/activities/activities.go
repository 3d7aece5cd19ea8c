package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// ErrTypeInvalidInput é o tipo de ApplicationError para entradas que nunca vão passar num retry
const ErrTypeInvalidInput = "InvalidInput"

// sinkTimeout limita cada publish para caber no timeout da activity
const sinkTimeout = 2 * time.Second

// ScheduleProvider lista os jogos do dia (API de agenda, arquivo, stub)
type ScheduleProvider interface {
	GamesForToday(ctx context.Context) ([]snapshots.Game, error)
}

// Quote é a cotação de um único jogo retornada pelo provedor de odds
type Quote struct {
	Source        string
	CapturedAtUTC time.Time
	Payload       json.RawMessage
}

// OddsProvider busca odds em lote ou de um jogo específico.
// Deve aceitar retry com o mesmo requestID e lista vazia de jogos.
type OddsProvider interface {
	OddsBatch(ctx context.Context, requestID string, gameIDs []string) (snapshots.OddsBatch, error)
	GameOdds(ctx context.Context, gameID string) (Quote, error)
}

// SnapshotStore grava snapshots por snapshot_id com last-write-wins.
// existed é só diagnóstico; nunca deve falhar por "já existe".
type SnapshotStore interface {
	Upsert(ctx context.Context, s snapshots.OddsSnapshot) (existed bool, err error)
}

// SnapshotSink recebe cada snapshot depois do upsert (kafka, redis pub/sub)
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, s snapshots.OddsSnapshot, existed bool) error
}

// Activities concentra as activities de captura e seus colaboradores.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Activities struct {
	Schedule ScheduleProvider
	Odds     OddsProvider
	Store    SnapshotStore
	Sinks    []SnapshotSink

	OnDiscovered func(n int)                     // métricas
	OnUpserted   func(kind string, existed bool) // métricas
	OnPublished  func(sink string)               // métricas
	OnError      func(stage string)              // métricas por fase

	// Now permite fixar o relógio nos testes; nil usa time.Now
	Now func() time.Time
}

// DiscoverGames retorna os jogos do dia. Lista vazia não é erro.
func (a *Activities) DiscoverGames(ctx context.Context) ([]snapshots.Game, error) {
	log := activity.GetLogger(ctx)

	games, err := a.Schedule.GamesForToday(ctx)
	if err != nil {
		a.onError("discover")
		return nil, fmt.Errorf("discover games: %w", err)
	}

	out := make([]snapshots.Game, 0, len(games))
	seen := make(map[string]struct{}, len(games))
	for _, g := range games {
		if g.GameID == "" {
			log.Warn("skipping game without id", "start_time_utc", g.StartTimeUTC)
			continue
		}
		if _, dup := seen[g.GameID]; dup {
			continue
		}
		seen[g.GameID] = struct{}{}
		g.StartTimeUTC = g.StartTimeUTC.UTC()
		out = append(out, g)
	}

	log.Info("discovered games", "games", len(out))
	if a.OnDiscovered != nil {
		a.OnDiscovered(len(out))
	}
	return out, nil
}

// FetchOddsBatch busca as odds de todos os jogos do ciclo em uma chamada.
// Retries podem devolver outro horário de captura; o workflow não assume bytes idênticos.
func (a *Activities) FetchOddsBatch(ctx context.Context, in snapshots.FetchOddsBatchInput) (snapshots.OddsBatch, error) {
	log := activity.GetLogger(ctx)

	batch, err := a.Odds.OddsBatch(ctx, in.RequestID, in.GameIDs)
	if err != nil {
		a.onError("fetch_batch")
		return snapshots.OddsBatch{}, fmt.Errorf("fetch odds batch %s: %w", in.RequestID, err)
	}
	if batch.Games == nil {
		batch.Games = map[string]json.RawMessage{}
	}
	if batch.CapturedAtUTC.IsZero() {
		batch.CapturedAtUTC = a.now()
	}
	batch.CapturedAtUTC = batch.CapturedAtUTC.UTC()

	log.Info("fetched odds batch",
		"request_id", in.RequestID,
		"requested", len(in.GameIDs),
		"returned", len(batch.Games),
		"source", batch.Source,
	)
	return batch, nil
}

// FetchCloseSnapshot captura a linha de fechamento de um jogo
func (a *Activities) FetchCloseSnapshot(ctx context.Context, in snapshots.FetchCloseSnapshotInput) (snapshots.OddsSnapshot, error) {
	log := activity.GetLogger(ctx)

	if in.GameID == "" || in.SnapshotID == "" {
		err := fmt.Errorf("fetch close snapshot: snapshot_id and game_id are required (got %q, %q)", in.SnapshotID, in.GameID)
		return snapshots.OddsSnapshot{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	}

	q, err := a.Odds.GameOdds(ctx, in.GameID)
	if err != nil {
		a.onError("fetch_close")
		return snapshots.OddsSnapshot{}, fmt.Errorf("fetch close odds %s: %w", in.GameID, err)
	}

	captured := q.CapturedAtUTC
	if captured.IsZero() {
		captured = a.now()
	}
	snap := snapshots.OddsSnapshot{
		SnapshotID:    in.SnapshotID,
		Kind:          snapshots.KindClose,
		GameID:        in.GameID,
		Source:        q.Source,
		CapturedAtUTC: captured,
		Payload:       q.Payload,
	}.Normalized()

	log.Info("fetched close snapshot", "snapshot_id", in.SnapshotID, "game_id", in.GameID)
	return snap, nil
}

// UpsertSnapshot grava o snapshot no store e repassa aos sinks.
// Falha de sink é registrada mas não falha a activity: o store é o registro.
func (a *Activities) UpsertSnapshot(ctx context.Context, s snapshots.OddsSnapshot) error {
	log := activity.GetLogger(ctx)

	if err := s.Validate(); err != nil {
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	}
	s = s.Normalized()

	existed, err := a.Store.Upsert(ctx, s)
	if err != nil {
		a.onError("upsert")
		return fmt.Errorf("upsert snapshot %s: %w", s.SnapshotID, err)
	}

	log.Info("upserted odds snapshot", "snapshot_id", s.SnapshotID, "game_id", s.GameID, "existed", existed)
	if a.OnUpserted != nil {
		a.OnUpserted(string(s.Kind), existed)
	}

	for _, sink := range a.Sinks {
		if err := a.publish(ctx, sink, s, existed); err != nil {
			log.Warn("snapshot publish failed", "sink", sink.Name(), "snapshot_id", s.SnapshotID, "error", err)
			a.onError("publish_" + sink.Name())
			continue
		}
		if a.OnPublished != nil {
			a.OnPublished(sink.Name())
		}
	}
	return nil
}

func (a *Activities) publish(ctx context.Context, sink SnapshotSink, s snapshots.OddsSnapshot, existed bool) error {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	return sink.Publish(ctx, s, existed)
}

func (a *Activities) onError(stage string) {
	if a.OnError != nil {
		a.OnError(stage)
	}
}

func (a *Activities) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}
