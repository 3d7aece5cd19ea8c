package snapshots

import (
	"fmt"
	"strings"
	"time"
)

const (
	pollPrefix         = "poll:"
	closePrefix        = "close:"
	closeCapturePrefix = "close-capture-"
)

// TimeBucket trunca o instante do ciclo para o minuto cheio, em UTC
func TimeBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// PollSnapshotPrefix monta o prefixo "poll:<bucket>" de um ciclo de polling.
// Também serve como request id da activity de odds em lote.
func PollSnapshotPrefix(cycleTime time.Time) string {
	return pollPrefix + TimeBucket(cycleTime).Format(time.RFC3339)
}

// PollSnapshotID deriva o id de um snapshot de polling: "<prefix>:<game_id>"
func PollSnapshotID(prefix, gameID string) string {
	return prefix + ":" + gameID
}

// CloseSnapshotID deriva o id do único snapshot de fechamento de um jogo
func CloseSnapshotID(gameID string) string {
	return closePrefix + gameID
}

// CloseCaptureWorkflowID é a identidade da task de fechamento usada para dedup no engine
func CloseCaptureWorkflowID(gameID string) string {
	return closeCapturePrefix + gameID
}

// KindOf infere o kind a partir do prefixo do snapshot id
func KindOf(snapshotID string) (Kind, bool) {
	switch {
	case strings.HasPrefix(snapshotID, pollPrefix):
		return KindPoll, true
	case strings.HasPrefix(snapshotID, closePrefix):
		return KindClose, true
	}
	return "", false
}

// layouts aceitos sem fuso; nesses casos o horário é interpretado como UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseStartTime interpreta um horário ISO-8601. Sem fuso, assume UTC
// (nunca o relógio local da máquina). O resultado é sempre UTC.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse start time: empty value")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse start time %q: unsupported format", s)
}

// FormatStartTime serializa o horário de início no formato aceito por ParseStartTime
func FormatStartTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
