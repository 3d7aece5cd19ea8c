package store

import (
	"context"
	"sort"
	"sync"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// Memory é o store em memória: um map snapshot_id -> último snapshot
type Memory struct {
	mu sync.RWMutex
	m  map[string]snapshots.OddsSnapshot
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]snapshots.OddsSnapshot)}
}

// Upsert sobrescreve no lugar; existed indica se o id já estava gravado
func (s *Memory) Upsert(_ context.Context, snap snapshots.OddsSnapshot) (bool, error) {
	snap = snap.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.m[snap.SnapshotID]
	s.m[snap.SnapshotID] = snap
	return existed, nil
}

func (s *Memory) Get(_ context.Context, snapshotID string) (snapshots.OddsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.m[snapshotID]
	if !ok {
		return snapshots.OddsSnapshot{}, ErrNotFound
	}
	return snap.Normalized(), nil
}

// ListByGame devolve os snapshots do jogo ordenados por id; kind vazio traz todos
func (s *Memory) ListByGame(_ context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []snapshots.OddsSnapshot
	for _, snap := range s.m {
		if snap.GameID != gameID || (kind != "" && snap.Kind != kind) {
			continue
		}
		out = append(out, snap.Normalized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotID < out[j].SnapshotID })
	return out, nil
}

func (s *Memory) Ping(context.Context) error { return nil }

// Len devolve o número de ids gravados
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// All devolve uma cópia de todas as entradas, ordenadas por id
func (s *Memory) All() []snapshots.OddsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]snapshots.OddsSnapshot, 0, len(s.m))
	for _, snap := range s.m {
		out = append(out, snap.Normalized())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotID < out[j].SnapshotID })
	return out
}
