package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xpoes123/SharpLab/internal/odds-capture/activities"
	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// BatchWire é o corpo de GET /v1/odds?ids=a,b
type BatchWire struct {
	Source        string                     `json:"source"`
	CapturedAtUTC time.Time                  `json:"captured_at_utc"`
	Games         map[string]json.RawMessage `json:"games"`
}

// QuoteWire é o corpo de GET /v1/odds/{game_id}
type QuoteWire struct {
	GameID        string          `json:"game_id"`
	Source        string          `json:"source"`
	CapturedAtUTC time.Time       `json:"captured_at_utc"`
	Payload       json.RawMessage `json:"payload"`
}

// HTTPOdds busca odds numa API HTTP.
// O requestID vai no header X-Request-ID, então retries do mesmo ciclo chegam com a mesma chave.
type HTTPOdds struct {
	BaseURL string
	Source  string // usado quando a resposta não informa a fonte
	Client  *http.Client
	Now     func() time.Time
}

func NewHTTPOdds(baseURL, source string) *HTTPOdds {
	return &HTTPOdds{BaseURL: strings.TrimRight(baseURL, "/"), Source: source}
}

func (o *HTTPOdds) OddsBatch(ctx context.Context, requestID string, gameIDs []string) (snapshots.OddsBatch, error) {
	// nada a pedir; ainda assim é uma resposta válida
	if len(gameIDs) == 0 {
		return snapshots.OddsBatch{Source: o.Source, CapturedAtUTC: o.now(), Games: map[string]json.RawMessage{}}, nil
	}

	q := url.Values{}
	q.Set("ids", strings.Join(gameIDs, ","))

	var wire BatchWire
	if err := getJSON(ctx, o.Client, o.BaseURL+"/v1/odds?"+q.Encode(), requestID, &wire); err != nil {
		return snapshots.OddsBatch{}, err
	}

	batch := snapshots.OddsBatch{
		Source:        o.source(wire.Source),
		CapturedAtUTC: wire.CapturedAtUTC,
		Games:         wire.Games,
	}
	if batch.CapturedAtUTC.IsZero() {
		batch.CapturedAtUTC = o.now()
	}
	if batch.Games == nil {
		batch.Games = map[string]json.RawMessage{}
	}
	return batch, nil
}

func (o *HTTPOdds) GameOdds(ctx context.Context, gameID string) (activities.Quote, error) {
	var wire QuoteWire
	if err := getJSON(ctx, o.Client, o.BaseURL+"/v1/odds/"+url.PathEscape(gameID), "", &wire); err != nil {
		return activities.Quote{}, err
	}

	q := activities.Quote{
		Source:        o.source(wire.Source),
		CapturedAtUTC: wire.CapturedAtUTC,
		Payload:       wire.Payload,
	}
	if q.CapturedAtUTC.IsZero() {
		q.CapturedAtUTC = o.now()
	}
	return q, nil
}

func (o *HTTPOdds) source(s string) string {
	if s != "" {
		return s
	}
	return o.Source
}

func (o *HTTPOdds) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}
