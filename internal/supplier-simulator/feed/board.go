package feed

import (
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/xpoes123/SharpLab/internal/supplier-simulator/dto"
	"github.com/xpoes123/SharpLab/pkg/contracts/events"
)

// Fixture é um jogo do catálogo; o início é relativo à criação do Board
type Fixture struct {
	GameID   string
	HomeTeam string
	AwayTeam string
	StartsIn time.Duration
}

// Catálogo fixo de partidas simuladas para geração de odds
var DefaultCatalog = []Fixture{
	{GameID: "NBA_BOS_NYK", HomeTeam: "Celtics", AwayTeam: "Knicks", StartsIn: 3 * time.Minute},
	{GameID: "NBA_LAL_GSW", HomeTeam: "Lakers", AwayTeam: "Warriors", StartsIn: 10 * time.Minute},
	{GameID: "NFL_KC_BUF", HomeTeam: "Chiefs", AwayTeam: "Bills", StartsIn: 2 * time.Hour},
	{GameID: "NHL_TOR_MTL", HomeTeam: "Maple Leafs", AwayTeam: "Canadiens", StartsIn: -30 * time.Minute},
}

type entry struct {
	game    dto.Game
	line    dto.Line
	version int
}

// Board guarda a agenda e a linha atual de cada jogo simulado
type Board struct {
	Source string

	mu    sync.RWMutex
	rnd   *rand.Rand
	order []string
	games map[string]*entry
	now   func() time.Time
}

// NewBoard monta o quadro a partir do catálogo; seed fixa deixa as linhas reprodutíveis
func NewBoard(source string, catalog []Fixture, seed int64, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	b := &Board{
		Source: source,
		rnd:    rand.New(rand.NewSource(seed)),
		games:  make(map[string]*entry, len(catalog)),
		now:    now,
	}
	base := now().UTC().Truncate(time.Minute)
	for _, f := range catalog {
		e := &entry{
			game: dto.Game{
				GameID:       f.GameID,
				HomeTeam:     f.HomeTeam,
				AwayTeam:     f.AwayTeam,
				StartTimeUTC: base.Add(f.StartsIn).Format(time.RFC3339),
			},
		}
		e.line = b.randomLine()
		b.order = append(b.order, f.GameID)
		b.games[f.GameID] = e
	}
	return b
}

// Schedule devolve os jogos na ordem do catálogo
func (b *Board) Schedule() []dto.Game {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]dto.Game, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.games[id].game)
	}
	return out
}

// Line devolve a linha atual do jogo
func (b *Board) Line(gameID string) (dto.Line, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.games[gameID]
	if !ok {
		return dto.Line{}, false
	}
	return e.line, true
}

// Payload serializa a linha atual do jogo
func (b *Board) Payload(gameID string) (json.RawMessage, bool) {
	line, ok := b.Line(gameID)
	if !ok {
		return nil, false
	}
	raw, _ := json.Marshal(line)
	return raw, true
}

// Tick move todas as linhas e devolve uma atualização por jogo
func (b *Board) Tick() []events.OddsUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	updates := make([]events.OddsUpdate, 0, len(b.order))
	for _, id := range b.order {
		e := b.games[id]
		e.line = b.moveLine(e.line)
		e.version++

		raw, _ := json.Marshal(e.line)
		updates = append(updates, events.OddsUpdate{
			GameID:    id,
			Source:    b.Source,
			Payload:   raw,
			UpdatedAt: now,
			Version:   e.version,
		})
	}
	return updates
}

func (b *Board) randomLine() dto.Line {
	return dto.Line{
		Spread: halfPoint(rnd(b.rnd, -9, 9)),
		Price:  -110,
		Total:  halfPoint(rnd(b.rnd, 38, 230)),
	}
}

// moveLine anda no máximo meio ponto e oscila o preço entre -125 e -100
func (b *Board) moveLine(l dto.Line) dto.Line {
	switch b.rnd.Intn(3) {
	case 0:
		l.Spread -= 0.5
	case 1:
		l.Spread += 0.5
	}
	l.Price = -100 - b.rnd.Intn(26)
	return l
}

// gera número aleatório entre min e max
func rnd(r *rand.Rand, min, max float64) float64 {
	return (r.Float64() * (max - min)) + min
}

func halfPoint(v float64) float64 {
	return math.Round(v*2) / 2
}
