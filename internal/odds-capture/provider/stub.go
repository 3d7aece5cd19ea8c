package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// StubSource é o nome de fonte dos provedores fake
const StubSource = "stubbook"

var stubPayload = json.RawMessage(`{"spread":-4.5,"price":-110}`)

// Stub é um provedor fake de agenda e odds para rodar sem APIs externas.
// Sempre devolve um único jogo começando em StartIn a partir de agora.
type Stub struct {
	GameID  string
	StartIn time.Duration
	Now     func() time.Time
}

// NewStub cria o stub com o jogo padrão GAME123 começando em 2 minutos
func NewStub() *Stub {
	return &Stub{GameID: "GAME123", StartIn: 2 * time.Minute}
}

func (s *Stub) GamesForToday(context.Context) ([]snapshots.Game, error) {
	start := s.now().Add(s.StartIn).Truncate(time.Minute)
	return []snapshots.Game{{GameID: s.GameID, StartTimeUTC: start}}, nil
}

func (s *Stub) OddsBatch(_ context.Context, _ string, gameIDs []string) (snapshots.OddsBatch, error) {
	games := make(map[string]json.RawMessage, len(gameIDs))
	for _, id := range gameIDs {
		games[id] = stubPayload
	}
	return snapshots.OddsBatch{Source: StubSource, CapturedAtUTC: s.now(), Games: games}, nil
}

func (s *Stub) GameOdds(context.Context, string) (activities.Quote, error) {
	return activities.Quote{Source: StubSource, CapturedAtUTC: s.now(), Payload: stubPayload}, nil
}

func (s *Stub) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
