package feed

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/supplier-simulator/dto"
)

// Server expõe a agenda, as odds e o feed WebSocket do fornecedor simulado
type Server struct {
	Board   *Board
	Hub     *Hub
	Log     *zap.Logger
	Metrics *Metrics

	// ErrorRate em [0,1): fração de chamadas de odds respondidas com 503
	ErrorRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewServer(board *Board, hub *Hub, log *zap.Logger, m *Metrics) *Server {
	return &Server{Board: board, Hub: hub, Log: log, Metrics: m, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Router retorna as rotas públicas do simulador
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/schedule/today", s.schedule)
	r.Get("/v1/odds", s.oddsBatch)
	r.Get("/v1/odds/{id}", s.gameOdds)
	if s.Hub != nil {
		r.Handle("/ws", s.Hub)
	}
	return r
}

// Run gera e envia odds simuladas para todos os clientes a cada intervalo
func (s *Server) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, up := range s.Board.Tick() {
				s.Hub.Broadcast(up)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// injectFailure responde 503 numa fração das chamadas para exercitar retries
func (s *Server) injectFailure(w http.ResponseWriter, r *http.Request) bool {
	if s.ErrorRate <= 0 {
		return false
	}
	s.mu.Lock()
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	fail := s.rnd.Float64() < s.ErrorRate
	s.mu.Unlock()
	if !fail {
		return false
	}
	if s.Metrics != nil {
		s.Metrics.HTTPErrors.Inc()
	}
	s.Log.Debug("injecting supplier failure", zap.String("path", r.URL.Path), zap.String("request_id", r.Header.Get("X-Request-ID")))
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "supplier_unavailable_mock"})
	return true
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ScheduleResp{Games: s.Board.Schedule()})
}

// oddsBatch ignora ids desconhecidos; o cliente grava payload vazio para eles
func (s *Server) oddsBatch(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	resp := dto.BatchResp{
		Source:        s.Board.Source,
		CapturedAtUTC: s.Board.now().UTC(),
		Games:         map[string]json.RawMessage{},
	}
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if p, ok := s.Board.Payload(id); ok {
			resp.Games[id] = p
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) gameOdds(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	p, ok := s.Board.Payload(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown game"})
		return
	}
	writeJSON(w, http.StatusOK, dto.QuoteResp{
		GameID:        id,
		Source:        s.Board.Source,
		CapturedAtUTC: s.Board.now().UTC(),
		Payload:       p,
	})
}
