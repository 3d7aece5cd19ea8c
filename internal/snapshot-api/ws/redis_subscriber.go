package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de broadcast de snapshots e repassa
// cada mensagem ao Hub até o contexto ser cancelado
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	go Forward(ctx, sub.Channel(), hub, log, func() { _ = sub.Close() })
}

// Forward consome mensagens pub/sub e chama hub.Broadcast; onStop roda ao sair
func Forward(ctx context.Context, ch <-chan *redis.Message, hub *Hub, log *zap.Logger, onStop func()) {
	defer func() {
		if onStop != nil {
			onStop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg == nil {
				continue
			}
			var upd events.SnapshotBroadcast
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				log.Warn("ws subscriber unmarshal error", zap.Error(err))
				continue
			}
			hub.Broadcast(upd)
		}
	}
}
