package events

import (
	"encoding/json"
	"time"
)

// Mensagem publicada pelo feed WebSocket do fornecedor a cada atualização de odds
type OddsUpdate struct {
	GameID    string          `json:"game_id"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"` // incrementado a cada rodada do feed
}
