package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/pkg/contracts/events"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func update(gameID string) events.SnapshotBroadcast {
	return events.SnapshotBroadcast{
		GameID: gameID,
		Snapshot: snapshots.OddsSnapshot{
			SnapshotID: snapshots.CloseSnapshotID(gameID),
			Kind:       snapshots.KindClose,
			GameID:     gameID,
			Payload:    json.RawMessage(`{"spread":-4.5}`),
		},
	}
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "G1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("G1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(update("G2")) // ninguém inscrito
	hub.Broadcast(update("G1"))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.SnapshotBroadcast
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, "G1", got.GameID)
	assert.Equal(t, "close:G1", got.Snapshot.SnapshotID)
}

func TestHub_PingAndUnsubscribe(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "G1"}))
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "ping"}))

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pong map[string]string
	require.NoError(t, c.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
	assert.Equal(t, 1, hub.Subscribers("G1"))

	require.NoError(t, c.WriteJSON(ClientMsg{Type: "unsubscribe", GameID: "G1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("G1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_DisconnectDropsSubscriptions(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "G1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("G1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("G1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestForward(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	require.NoError(t, c.WriteJSON(ClientMsg{Type: "subscribe", GameID: "G1"}))
	require.Eventually(t, func() bool { return hub.Subscribers("G1") == 1 }, time.Second, 5*time.Millisecond)

	payload, err := json.Marshal(update("G1"))
	require.NoError(t, err)

	ch := make(chan *redis.Message, 3)
	ch <- &redis.Message{Payload: "{broken"}
	ch <- nil
	ch <- &redis.Message{Payload: string(payload)}
	close(ch)

	stopped := false
	Forward(context.Background(), ch, hub, zap.NewNop(), func() { stopped = true })
	assert.True(t, stopped)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.SnapshotBroadcast
	require.NoError(t, c.ReadJSON(&got))
	assert.Equal(t, "G1", got.GameID)
}
