package dto

import (
	"encoding/json"
	"time"
)

// Game é um jogo da agenda simulada
type Game struct {
	GameID       string `json:"game_id"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
	StartTimeUTC string `json:"start_time_utc"`
}

type ScheduleResp struct {
	Games []Game `json:"games"`
}

// Line é a linha de spread publicada para um jogo
type Line struct {
	Spread float64 `json:"spread"`
	Price  int     `json:"price"` // odds americanas
	Total  float64 `json:"total"`
}

type BatchResp struct {
	Source        string                     `json:"source"`
	CapturedAtUTC time.Time                  `json:"captured_at_utc"`
	Games         map[string]json.RawMessage `json:"games"`
}

type QuoteResp struct {
	GameID        string          `json:"game_id"`
	Source        string          `json:"source"`
	CapturedAtUTC time.Time       `json:"captured_at_utc"`
	Payload       json.RawMessage `json:"payload"`
}
