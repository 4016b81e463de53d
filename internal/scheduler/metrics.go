package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the scheduler's Prometheus instrumentation. A *metrics is
// always non-nil on a constructed Scheduler; when the caller doesn't supply
// a prometheus.Registerer, metrics are created against a private registry
// that nothing ever scrapes, so call sites never need a nil check.
type metrics struct {
	pendingTopics     prometheus.Gauge
	noDropQueueDepth  prometheus.Gauge
	sendCredit        prometheus.Gauge
	released          *prometheus.CounterVec
	bestEffortDropped *prometheus.CounterVec
	rateLimitedSkips  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	var m = &metrics{
		pendingTopics: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_pending_topics",
			Help: "Number of topics currently holding a pending best-effort message.",
		}),
		noDropQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_nodrop_queue_depth",
			Help: "Current length of the no-drop FIFO.",
		}),
		sendCredit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_send_credit",
			Help: "max_in_flight minus messages released but not yet acknowledged.",
		}),
		released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_messages_released_total",
			Help: "Messages released to the transport, partitioned by class.",
		}, []string{"class"}),
		bestEffortDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_messages_dropped_total",
			Help: "Best-effort messages discarded because a newer enqueue replaced them.",
		}, []string{"topic"}),
		rateLimitedSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_rate_limited_skips_total",
			Help: "schedule() passes where a topic was pending but skipped due to its rate limit.",
		}, []string{"topic"}),
	}
	reg.MustRegister(
		m.pendingTopics,
		m.noDropQueueDepth,
		m.sendCredit,
		m.released,
		m.bestEffortDropped,
		m.rateLimitedSkips,
	)
	return m
}
