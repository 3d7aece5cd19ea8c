package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xpoes123/SharpLab/pkg/contracts/events"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// Publisher é o subconjunto do cliente Redis usado para broadcast
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroadcaster faz PUBLISH de cada snapshot gravado; a snapshot-api repassa aos clientes WS
type RedisBroadcaster struct {
	r       Publisher
	channel string
}

func NewRedisBroadcaster(r Publisher, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Name() string { return "redis" }

func (b *RedisBroadcaster) Publish(ctx context.Context, s snapshots.OddsSnapshot, existed bool) error {
	payload, err := json.Marshal(events.SnapshotBroadcast{GameID: s.GameID, Existed: existed, Snapshot: s})
	if err != nil {
		return err
	}
	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("broadcast snapshot %s: %w", s.SnapshotID, err)
	}
	return nil
}
