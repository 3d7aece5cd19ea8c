package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics monitora conexões e mensagens do feed WebSocket
type Metrics struct {
	Connections  prometheus.Gauge
	MessagesSent prometheus.Counter
	HTTPErrors   prometheus.Counter // falhas injetadas na API HTTP
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supplier_ws_connections",
			Help: "Clientes WebSocket conectados",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supplier_ws_messages_sent_total",
			Help: "Total de mensagens WS enviadas",
		}),
		HTTPErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "supplier_http_injected_errors_total",
			Help: "Respostas 503 injetadas na API de odds",
		}),
	}
	reg.MustRegister(m.Connections, m.MessagesSent, m.HTTPErrors)
	return m
}

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
}

// Hub gerencia os clientes conectados via WebSocket e faz broadcast para todos eles
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*clientConn
	seq      atomic.Int64
	log      *zap.Logger
	metrics  *Metrics
}

func NewHub(log *zap.Logger, m *Metrics) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*clientConn),
		log:     log,
		metrics: m,
	}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		if h.metrics != nil {
			h.metrics.Connections.Dec()
		}
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Clients informa quantos clientes estão conectados
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast envia uma mensagem para todos os clientes conectados.
// O lock exclusivo serializa as escritas em cada conexão.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			_ = c.conn.Close()
			continue
		}
		if h.metrics != nil {
			h.metrics.MessagesSent.Inc()
		}
	}
}

// ServeHTTP aceita a conexão e só lê do cliente para detectar a desconexão
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	id := fmt.Sprintf("%d-%d", time.Now().UnixNano(), h.seq.Add(1))
	h.add(&clientConn{id: id, conn: conn})

	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		for {
			// Lê e descarta mensagens do cliente para manter o socket limpo
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
