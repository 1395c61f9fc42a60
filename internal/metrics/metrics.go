// Package metrics exposes ledger activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tokenledger/internal/ledger"
)

// Collector implements ledger.Observer and owns the ledger metrics.
type Collector struct {
	events          *prometheus.CounterVec
	tokens          *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	clears          prometheus.Counter
	logLength       prometheus.Gauge
}

// New creates the collector and registers its metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenledger_events_recorded_total",
				Help: "Total number of usage events recorded",
			},
			[]string{"model"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenledger_tokens_total",
				Help: "Total tokens recorded",
			},
			[]string{"model", "type"}, // type: input|output
		),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenledger_persist_failures_total",
				Help: "Durable store operations that failed",
			},
			[]string{"op"}, // op: set|delete
		),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tokenledger_clears_total",
			Help: "Number of times the ledger was cleared",
		}),
		logLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tokenledger_log_events",
			Help: "Current number of events in the usage log",
		}),
	}
	reg.MustRegister(c.events, c.tokens, c.persistFailures, c.clears, c.logLength)
	return c
}

// SetLogLength seeds the log length gauge, e.g. after startup load.
func (c *Collector) SetLogLength(n int) {
	c.logLength.Set(float64(n))
}

func (c *Collector) EventRecorded(ev ledger.UsageEvent, logLen int) {
	c.events.WithLabelValues(ev.ModelID).Inc()
	c.tokens.WithLabelValues(ev.ModelID, "input").Add(float64(ev.InputTokens))
	c.tokens.WithLabelValues(ev.ModelID, "output").Add(float64(ev.OutputTokens))
	c.logLength.Set(float64(logLen))
}

func (c *Collector) LedgerCleared() {
	c.clears.Inc()
	c.logLength.Set(0)
}

func (c *Collector) PersistFailed(op string, _ error) {
	c.persistFailures.WithLabelValues(op).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
