package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xpoes123/SharpLab/internal/odds-capture/store"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// Reader é o lado de leitura do store de snapshots
type Reader interface {
	Get(ctx context.Context, snapshotID string) (snapshots.OddsSnapshot, error)
	ListByGame(ctx context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error)
}

// LatestReader é implementado por readers com cache do último snapshot por jogo
type LatestReader interface {
	Latest(ctx context.Context, kind snapshots.Kind, gameID string) (snapshots.OddsSnapshot, bool, error)
}

// API expõe os endpoints REST de consulta de snapshots gravados
type API struct {
	Store Reader
	Log   *zap.Logger

	// WS é montado em /ws quando presente
	WS http.Handler
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/snapshots/{id}", a.getSnapshot)             // snapshot por id
	r.Get("/v1/games/{id}/snapshots", a.listGameSnapshots) // ?kind=poll|close
	r.Get("/v1/games/{id}/close", a.getClose)              // linha de fechamento
	r.Get("/v1/games/{id}/latest", a.getLatestPoll)        // último poll do jogo
	if a.WS != nil {
		r.Handle("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if a.Log != nil {
		a.Log.Error("snapshot read failed", zap.Error(err))
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (a *API) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) listGameSnapshots(w http.ResponseWriter, r *http.Request) {
	kind := snapshots.Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be poll or close"})
		return
	}

	list, err := a.Store.ListByGame(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if list == nil {
		list = []snapshots.OddsSnapshot{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getClose(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Store.Get(r.Context(), snapshots.CloseSnapshotID(chi.URLParam(r, "id")))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// getLatestPoll tenta o cache e cai para a listagem do store.
// Na listagem vale a ordem dos ids: o bucket RFC3339 ordena cronologicamente.
func (a *API) getLatestPoll(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")

	if lr, ok := a.Store.(LatestReader); ok {
		snap, found, err := lr.Latest(r.Context(), snapshots.KindPoll, gameID)
		switch {
		case err != nil:
			if a.Log != nil {
				a.Log.Warn("latest cache read failed", zap.String("game_id", gameID), zap.Error(err))
			}
		case found:
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}

	list, err := a.Store.ListByGame(r.Context(), gameID, snapshots.KindPoll)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if len(list) == 0 {
		a.writeError(w, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, list[len(list)-1])
}
