package events

import (
	"github.com/google/uuid"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// snapshotNamespace é o namespace UUID v5 usado para derivar EventID
var snapshotNamespace = uuid.MustParse("5b0f3a5e-2a7c-4f5e-9d7b-6c1f0c9a8e21")

// Evento publicado no tópico "odds_snapshots" após cada upsert bem sucedido.
// O mesmo snapshot (id + horário de captura) sempre gera o mesmo EventID,
// então consumidores podem deduplicar reentregas.
type SnapshotStored struct {
	EventID  string                 `json:"event_id"`
	Existed  bool                   `json:"existed"`
	Snapshot snapshots.OddsSnapshot `json:"snapshot"`
}

// NewSnapshotStored monta o evento com EventID determinístico
func NewSnapshotStored(s snapshots.OddsSnapshot, existed bool) SnapshotStored {
	return SnapshotStored{
		EventID:  SnapshotEventID(s),
		Existed:  existed,
		Snapshot: s,
	}
}

// SnapshotEventID deriva um UUID v5 a partir do snapshot id e do horário de captura
func SnapshotEventID(s snapshots.OddsSnapshot) string {
	name := s.SnapshotID + "|" + snapshots.FormatStartTime(s.CapturedAtUTC)
	return uuid.NewSHA1(snapshotNamespace, []byte(name)).String()
}

// SnapshotBroadcast é a mensagem do canal Redis de broadcast, repassada como está
// aos clientes WebSocket inscritos no jogo
type SnapshotBroadcast struct {
	GameID   string                 `json:"game_id"`
	Existed  bool                   `json:"existed"`
	Snapshot snapshots.OddsSnapshot `json:"snapshot"`
}
