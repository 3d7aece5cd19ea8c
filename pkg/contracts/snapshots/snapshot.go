package snapshots

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifica o tipo de snapshot: coleta recorrente (poll) ou linha de fechamento (close)
type Kind string

const (
	KindPoll  Kind = "poll"
	KindClose Kind = "close"
)

// Valid informa se o kind é um dos valores conhecidos
func (k Kind) Valid() bool { return k == KindPoll || k == KindClose }

// EmptyPayload é o payload gravado quando o provedor não retorna odds para um jogo
var EmptyPayload = json.RawMessage(`{}`)

// ErrTransientProvider marca falhas de provedor que devem ser repetidas pelo engine
var ErrTransientProvider = errors.New("transient provider error")

// ErrInvalidSnapshot é retornado por Validate quando faltam campos obrigatórios
var ErrInvalidSnapshot = errors.New("invalid odds snapshot")

// Game representa um jogo do dia retornado pela agenda
type Game struct {
	GameID       string    `json:"game_id"`
	StartTimeUTC time.Time `json:"start_time_utc"`
}

// OddsBatch é a captura de odds de vários jogos em uma única chamada ao provedor.
// Vive apenas dentro de um ciclo de polling.
type OddsBatch struct {
	Source        string                     `json:"source"`
	CapturedAtUTC time.Time                  `json:"captured_at_utc"`
	Games         map[string]json.RawMessage `json:"games"`
}

// PayloadFor devolve o payload de um jogo; ausência vira EmptyPayload, nunca erro
func (b OddsBatch) PayloadFor(gameID string) json.RawMessage {
	p, ok := b.Games[gameID]
	if !ok || isBlank(p) {
		return EmptyPayload
	}
	out := make(json.RawMessage, len(p))
	copy(out, p)
	return out
}

// OddsSnapshot é a unidade durável gravada no store, identificada por SnapshotID
type OddsSnapshot struct {
	SnapshotID    string          `json:"snapshot_id"`
	Kind          Kind            `json:"kind"`
	GameID        string          `json:"game_id"`
	Source        string          `json:"source"`
	CapturedAtUTC time.Time       `json:"captured_at_utc"`
	Payload       json.RawMessage `json:"payload"`
}

// Validate verifica os campos mínimos para um upsert
func (s OddsSnapshot) Validate() error {
	switch {
	case s.SnapshotID == "":
		return fmt.Errorf("%w: empty snapshot_id", ErrInvalidSnapshot)
	case s.GameID == "":
		return fmt.Errorf("%w: empty game_id (snapshot %s)", ErrInvalidSnapshot, s.SnapshotID)
	case !s.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q (snapshot %s)", ErrInvalidSnapshot, s.Kind, s.SnapshotID)
	}
	if len(s.Payload) > 0 && !json.Valid(s.Payload) {
		return fmt.Errorf("%w: payload is not valid json (snapshot %s)", ErrInvalidSnapshot, s.SnapshotID)
	}
	return nil
}

// Normalized retorna uma cópia com payload não vazio e horário em UTC
func (s OddsSnapshot) Normalized() OddsSnapshot {
	out := s
	if isBlank(s.Payload) {
		out.Payload = EmptyPayload
	} else {
		out.Payload = append(json.RawMessage(nil), s.Payload...)
	}
	out.CapturedAtUTC = s.CapturedAtUTC.UTC()
	return out
}

// FetchOddsBatchInput é a entrada da activity de odds em lote
type FetchOddsBatchInput struct {
	RequestID string   `json:"request_id"`
	GameIDs   []string `json:"game_ids"`
}

// FetchCloseSnapshotInput é a entrada da activity de fechamento de um jogo
type FetchCloseSnapshotInput struct {
	SnapshotID string `json:"snapshot_id"`
	GameID     string `json:"game_id"`
}

func isBlank(p json.RawMessage) bool {
	t := bytes.TrimSpace(p)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
