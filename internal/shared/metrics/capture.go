package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Capture agrupa os contadores das activities de captura de odds.
// Nunca é usado dentro de código de workflow: replay contaria em dobro.
type Capture struct {
	GamesDiscovered  prometheus.Counter
	SnapshotsUpserts *prometheus.CounterVec // por kind
	Overwrites       *prometheus.CounterVec // upserts em id já existente, por kind
	Published        *prometheus.CounterVec // por sink
	Errors           *prometheus.CounterVec // por estágio
}

// NewCapture cria e registra os contadores no registerer informado
func NewCapture(reg prometheus.Registerer) *Capture {
	c := &Capture{
		GamesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "odds_capture_games_discovered_total",
			Help: "jogos retornados pela agenda",
		}),
		SnapshotsUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odds_capture_snapshots_upserted_total",
			Help: "snapshots gravados no store",
		}, []string{"kind"}),
		Overwrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odds_capture_snapshot_overwrites_total",
			Help: "upserts que sobrescreveram um snapshot existente",
		}, []string{"kind"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odds_capture_snapshots_published_total",
			Help: "snapshots enviados para sinks (kafka, redis)",
		}, []string{"sink"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odds_capture_errors_total",
			Help: "erros por estágio",
		}, []string{"stage"}),
	}
	reg.MustRegister(c.GamesDiscovered, c.SnapshotsUpserts, c.Overwrites, c.Published, c.Errors)
	return c
}

func (c *Capture) OnDiscovered(n int) { c.GamesDiscovered.Add(float64(n)) }

func (c *Capture) OnUpserted(kind string, existed bool) {
	c.SnapshotsUpserts.WithLabelValues(kind).Inc()
	if existed {
		c.Overwrites.WithLabelValues(kind).Inc()
	}
}

func (c *Capture) OnPublished(sink string) { c.Published.WithLabelValues(sink).Inc() }

func (c *Capture) OnError(stage string) { c.Errors.WithLabelValues(stage).Inc() }
