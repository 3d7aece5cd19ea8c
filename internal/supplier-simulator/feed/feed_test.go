package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/supplier-simulator/dto"
	"github.com/xpoes123/SharpLab/pkg/contracts/events"
)

var fixedNow = time.Date(2024, 1, 1, 0, 5, 42, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	board := NewBoard("simbook", DefaultCatalog, 42, func() time.Time { return fixedNow })
	m := NewMetrics(prometheus.NewRegistry())
	s := NewServer(board, NewHub(zap.NewNop(), m), zap.NewNop(), m)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestBoard_Schedule(t *testing.T) {
	b := NewBoard("simbook", DefaultCatalog, 1, func() time.Time { return fixedNow })

	games := b.Schedule()
	require.Len(t, games, len(DefaultCatalog))
	assert.Equal(t, "NBA_BOS_NYK", games[0].GameID)
	assert.Equal(t, "2024-01-01T00:08:00Z", games[0].StartTimeUTC)
	assert.Equal(t, "2023-12-31T23:35:00Z", games[3].StartTimeUTC)
}

func TestBoard_SameSeedSameLines(t *testing.T) {
	a := NewBoard("simbook", DefaultCatalog, 7, func() time.Time { return fixedNow })
	b := NewBoard("simbook", DefaultCatalog, 7, func() time.Time { return fixedNow })

	for _, f := range DefaultCatalog {
		la, _ := a.Line(f.GameID)
		lb, _ := b.Line(f.GameID)
		assert.Equal(t, la, lb)
		assert.Equal(t, 0.0, la.Spread*2-float64(int(la.Spread*2)), "spread moves in half points")
	}
}

func TestBoard_Tick(t *testing.T) {
	b := NewBoard("simbook", DefaultCatalog[:2], 3, func() time.Time { return fixedNow })
	before, _ := b.Line("NBA_BOS_NYK")

	first := b.Tick()
	second := b.Tick()
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Version)
	assert.Equal(t, 2, second[0].Version)
	assert.Equal(t, "simbook", second[1].Source)
	assert.Equal(t, fixedNow, second[1].UpdatedAt)

	after, _ := b.Line("NBA_BOS_NYK")
	assert.InDelta(t, before.Spread, after.Spread, 1.0)
	assert.GreaterOrEqual(t, after.Price, -125)
	assert.LessOrEqual(t, after.Price, -100)

	var line dto.Line
	require.NoError(t, json.Unmarshal(second[0].Payload, &line))
	assert.Equal(t, after, line)
}

func TestServer_Schedule(t *testing.T) {
	_, srv := newTestServer(t)

	var resp dto.ScheduleResp
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/schedule/today", &resp))
	assert.Len(t, resp.Games, len(DefaultCatalog))
}

func TestServer_OddsBatch(t *testing.T) {
	_, srv := newTestServer(t)

	var resp dto.BatchResp
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/odds?ids=NBA_BOS_NYK,UNKNOWN,,NFL_KC_BUF", &resp))
	assert.Equal(t, "simbook", resp.Source)
	assert.Equal(t, fixedNow, resp.CapturedAtUTC)
	assert.Len(t, resp.Games, 2)
	assert.Contains(t, resp.Games, "NBA_BOS_NYK")
	assert.NotContains(t, resp.Games, "UNKNOWN")
}

func TestServer_GameOdds(t *testing.T) {
	s, srv := newTestServer(t)

	var resp dto.QuoteResp
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/odds/NFL_KC_BUF", &resp))
	line, _ := s.Board.Line("NFL_KC_BUF")
	want, _ := json.Marshal(line)
	assert.JSONEq(t, string(want), string(resp.Payload))

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/v1/odds/NOPE", nil))
}

func TestServer_InjectedFailures(t *testing.T) {
	s, srv := newTestServer(t)
	s.ErrorRate = 1

	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/v1/odds?ids=NBA_BOS_NYK", nil))
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/v1/odds/NBA_BOS_NYK", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/schedule/today", nil), "schedule is never failed")
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.HTTPErrors))
}

func TestServer_WSBroadcast(t *testing.T) {
	s, srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var up events.OddsUpdate
	require.NoError(t, conn.ReadJSON(&up))
	assert.Equal(t, "simbook", up.Source)
	assert.GreaterOrEqual(t, up.Version, 1)
	assert.GreaterOrEqual(t, testutil.ToFloat64(s.Metrics.MessagesSent), 1.0)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
