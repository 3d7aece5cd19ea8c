package provider

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// GameWire é o formato de jogo usado na API de agenda e no arquivo YAML.
// start_time_utc aceita ISO-8601 com ou sem fuso (sem fuso = UTC).
type GameWire struct {
	GameID       string `json:"game_id" yaml:"game_id"`
	StartTimeUTC string `json:"start_time_utc" yaml:"start_time_utc"`
}

// ScheduleWire é o corpo de GET /v1/schedule/today
type ScheduleWire struct {
	Games []GameWire `json:"games" yaml:"games"`
}

func (w ScheduleWire) toGames() ([]snapshots.Game, error) {
	out := make([]snapshots.Game, 0, len(w.Games))
	for _, g := range w.Games {
		start, err := snapshots.ParseStartTime(g.StartTimeUTC)
		if err != nil {
			return nil, fmt.Errorf("game %q: %w", g.GameID, err)
		}
		out = append(out, snapshots.Game{GameID: g.GameID, StartTimeUTC: start})
	}
	return out, nil
}

// HTTPSchedule lê a agenda do dia de uma API HTTP
type HTTPSchedule struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSchedule(baseURL string) *HTTPSchedule {
	return &HTTPSchedule{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *HTTPSchedule) GamesForToday(ctx context.Context) ([]snapshots.Game, error) {
	var wire ScheduleWire
	if err := getJSON(ctx, s.Client, s.BaseURL+"/v1/schedule/today", "", &wire); err != nil {
		return nil, err
	}
	return wire.toGames()
}

// FileSchedule lê a agenda de um arquivo YAML a cada chamada e devolve
// só os jogos cujo início cai no dia UTC corrente.
type FileSchedule struct {
	Path string
	Now  func() time.Time
}

func NewFileSchedule(path string) *FileSchedule {
	return &FileSchedule{Path: path}
}

func (s *FileSchedule) GamesForToday(context.Context) ([]snapshots.Game, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file %s: %w", s.Path, err)
	}

	var wire ScheduleWire
	if err := yaml.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse schedule file %s: %w", s.Path, err)
	}
	games, err := wire.toGames()
	if err != nil {
		return nil, fmt.Errorf("schedule file %s: %w", s.Path, err)
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	day := now.Truncate(24 * time.Hour)

	today := games[:0]
	for _, g := range games {
		if g.StartTimeUTC.Truncate(24 * time.Hour).Equal(day) {
			today = append(today, g)
		}
	}
	return today, nil
}
