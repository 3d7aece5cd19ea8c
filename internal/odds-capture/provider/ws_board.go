package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/pkg/contracts/events"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// WSBoard consome o feed WebSocket do fornecedor e mantém a última cotação de cada jogo.
// Serve como OddsProvider: as activities leem do quadro em memória em vez de chamar a API.
type WSBoard struct {
	URL       string        // URL do endpoint WebSocket do fornecedor
	Source    string        // fonte usada quando a mensagem não informa
	Log       *zap.Logger   // Logger estruturado
	Reconnect time.Duration // espera entre reconexões

	mu     sync.RWMutex
	latest map[string]events.OddsUpdate
}

func NewWSBoard(url, source string, log *zap.Logger) *WSBoard {
	return &WSBoard{
		URL:       url,
		Source:    source,
		Log:       log,
		Reconnect: 3 * time.Second,
		latest:    make(map[string]events.OddsUpdate),
	}
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, tenta reconectar até o contexto ser cancelado.
func (b *WSBoard) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.Log.Info("context canceled, stopping WS board")
			return
		default:
			if err := b.connectAndListen(ctx); err != nil {
				b.Log.Warn("connection closed", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(b.Reconnect):
				}
			}
		}
	}
}

// connectAndListen estabelece a conexão e aplica cada mensagem no quadro
func (b *WSBoard) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	b.Log.Info("connected to supplier WS", zap.String("url", b.URL))

	// fecha a conexão quando o contexto acaba para destravar ReadMessage
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var update events.OddsUpdate
		if err := json.Unmarshal(message, &update); err != nil {
			b.Log.Warn("invalid message", zap.Error(err))
			continue
		}
		b.Apply(update)
	}
}

// Apply grava a atualização se for mais nova que a atual do jogo
func (b *WSBoard) Apply(u events.OddsUpdate) bool {
	if u.GameID == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		b.latest = make(map[string]events.OddsUpdate)
	}
	if cur, ok := b.latest[u.GameID]; ok && u.Version < cur.Version {
		return false
	}
	b.latest[u.GameID] = u
	return true
}

func (b *WSBoard) OddsBatch(_ context.Context, _ string, gameIDs []string) (snapshots.OddsBatch, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	games := make(map[string]json.RawMessage, len(gameIDs))
	for _, id := range gameIDs {
		if u, ok := b.latest[id]; ok {
			games[id] = u.Payload
		}
	}
	return snapshots.OddsBatch{Source: b.Source, CapturedAtUTC: time.Now().UTC(), Games: games}, nil
}

// GameOdds devolve erro transitório enquanto o feed não trouxe o jogo
func (b *WSBoard) GameOdds(_ context.Context, gameID string) (activities.Quote, error) {
	b.mu.RLock()
	u, ok := b.latest[gameID]
	b.mu.RUnlock()
	if !ok {
		return activities.Quote{}, fmt.Errorf("%w: no live quote for %s", snapshots.ErrTransientProvider, gameID)
	}

	src := u.Source
	if src == "" {
		src = b.Source
	}
	return activities.Quote{Source: src, CapturedAtUTC: time.Now().UTC(), Payload: u.Payload}, nil
}

// Len informa quantos jogos já têm cotação
func (b *WSBoard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.latest)
}
