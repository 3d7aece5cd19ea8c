package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// Cached decora um Store com cache Redis do snapshot por id e do último por jogo.
// Falha no cache nunca falha a escrita: o store de trás é o registro.
type Cached struct {
	Store  Store
	Client *redis.Client
	TTL    time.Duration
	Log    *zap.Logger
}

// NewCached cria o decorator com TTL configurável
func NewCached(s Store, c *redis.Client, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{Store: s, Client: c, TTL: ttl, Log: log}
}

// SnapshotKey gera a chave Redis de um snapshot por id
func SnapshotKey(snapshotID string) string { return "odds:snapshot:" + snapshotID }

// LatestKey gera a chave Redis do último snapshot de um jogo por kind
func LatestKey(kind snapshots.Kind, gameID string) string {
	return "odds:latest:" + string(kind) + ":" + gameID
}

func (c *Cached) Upsert(ctx context.Context, s snapshots.OddsSnapshot) (bool, error) {
	existed, err := c.Store.Upsert(ctx, s)
	if err != nil {
		return false, err
	}

	s = s.Normalized()
	b, err := json.Marshal(s)
	if err != nil {
		return existed, nil
	}
	if err := c.Client.Set(ctx, SnapshotKey(s.SnapshotID), b, c.TTL).Err(); err != nil {
		c.Log.Warn("redis snapshot cache set failed", zap.String("snapshot_id", s.SnapshotID), zap.Error(err))
		return existed, nil
	}
	if err := c.setLatest(ctx, s, b); err != nil {
		c.Log.Warn("redis latest cache set failed", zap.String("snapshot_id", s.SnapshotID), zap.Error(err))
	}
	return existed, nil
}

// setLatest troca o último do jogo só se s não for mais antigo que o atual,
// assim um retry atrasado não volta o cache para trás
func (c *Cached) setLatest(ctx context.Context, s snapshots.OddsSnapshot, b []byte) error {
	key := LatestKey(s.Kind, s.GameID)
	return c.Client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && !supersedes(cur, s) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, c.TTL)
			return nil
		})
		return err
	}, key)
}

// supersedes informa se next pode substituir o snapshot cacheado em cur
func supersedes(cur []byte, next snapshots.OddsSnapshot) bool {
	var prev snapshots.OddsSnapshot
	if err := json.Unmarshal(cur, &prev); err != nil {
		return true
	}
	return !next.CapturedAtUTC.Before(prev.CapturedAtUTC)
}

// Get consulta o cache primeiro e cai para o store em miss ou erro
func (c *Cached) Get(ctx context.Context, snapshotID string) (snapshots.OddsSnapshot, error) {
	b, err := c.Client.Get(ctx, SnapshotKey(snapshotID)).Bytes()
	if err == nil {
		var s snapshots.OddsSnapshot
		if jerr := json.Unmarshal(b, &s); jerr == nil {
			return s, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.Log.Warn("redis snapshot cache get failed", zap.String("snapshot_id", snapshotID), zap.Error(err))
	}

	s, err := c.Store.Get(ctx, snapshotID)
	if err != nil {
		return snapshots.OddsSnapshot{}, err
	}
	if b, jerr := json.Marshal(s); jerr == nil {
		_ = c.Client.Set(ctx, SnapshotKey(snapshotID), b, c.TTL).Err()
	}
	return s, nil
}

// Latest devolve o último snapshot do jogo para o kind, só a partir do cache
func (c *Cached) Latest(ctx context.Context, kind snapshots.Kind, gameID string) (snapshots.OddsSnapshot, bool, error) {
	b, err := c.Client.Get(ctx, LatestKey(kind, gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snapshots.OddsSnapshot{}, false, nil
	}
	if err != nil {
		return snapshots.OddsSnapshot{}, false, err
	}
	var s snapshots.OddsSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return snapshots.OddsSnapshot{}, false, err
	}
	return s, true, nil
}

func (c *Cached) ListByGame(ctx context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error) {
	return c.Store.ListByGame(ctx, gameID, kind)
}

func (c *Cached) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	return c.Client.Ping(ctx).Err()
}
