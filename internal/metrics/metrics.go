package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the prometheus registry and every instrument the service
// exposes on /metrics.
type Collector struct {
	reg *prometheus.Registry

	FixesProcessed prometheus.Counter
	InvalidFixes   prometheus.Counter
	Broadcasts     *prometheus.CounterVec // channel label: global|journey|admin
	SeatOps        *prometheus.CounterVec // op label: initialize|occupy|free|bulk_replace
	ConnectedWS    prometheus.Gauge
	FixApply       prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FixesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_fixes_processed_total",
			Help: "GPS fixes applied to journeys.",
		}),
		InvalidFixes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bustrack_invalid_fixes_total",
			Help: "Fixes stored despite failing validity checks.",
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bustrack_broadcasts_total",
			Help: "Events fanned out, by channel.",
		}, []string{"channel"}),
		SeatOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bustrack_seat_operations_total",
			Help: "Seat ledger mutations, by operation.",
		}, []string{"op"}),
		ConnectedWS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bustrack_connected_ws_clients",
			Help: "Currently connected websocket clients.",
		}),
		FixApply: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bustrack_fix_apply_duration_seconds",
			Help:    "End-to-end duration of a fix submission.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.FixesProcessed,
		c.InvalidFixes,
		c.Broadcasts,
		c.SeatOps,
		c.ConnectedWS,
		c.FixApply,
	)
	return c
}

func (c *Collector) FixesProcessedInc() { c.FixesProcessed.Inc() }
func (c *Collector) InvalidFixesInc()   { c.InvalidFixes.Inc() }

func (c *Collector) BroadcastInc(channel string) {
	c.Broadcasts.WithLabelValues(channel).Inc()
}

func (c *Collector) SeatOpsInc(op string) {
	c.SeatOps.WithLabelValues(op).Inc()
}

func (c *Collector) FixApplyObserve(d time.Duration) {
	c.FixApply.Observe(d.Seconds())
}

// Handler serves the registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
