// Package metrics wires prometheus counters and histograms into the
// flow inspection engine's observability points, following the
// promauto registration style used across this shop's other
// collectors.
package metrics

import (
	"time"

	"github.com/flowguard/flowguard/flow"
	"github.com/flowguard/flowguard/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements flow.MetricsRecorder against a prometheus
// registry. Its zero value is not usable; build one with New.
type Recorder struct {
	flowsProcessed   prometheus.Counter
	domainsResolved  prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	protocolTags     *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
}

// New registers this package's metrics against reg. Passing nil
// registers against prometheus.DefaultRegisterer, matching promauto's
// own default.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		flowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "flows_processed_total",
			Help:      "Total flow_arrive calls handled by the engine.",
		}),
		domainsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "domains_resolved_total",
			Help:      "Total domains newly added to any flow context.",
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "dns_cache_hits_total",
			Help:      "Total DNS response cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "dns_cache_misses_total",
			Help:      "Total DNS response cache misses.",
		}),
		protocolTags: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "protocol_detections_total",
			Help:      "Protocol detector results by tag.",
		}, []string{"tag"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowguard",
			Name:      "decisions_total",
			Help:      "Flow decisions by verdict.",
		}, []string{"decision"}),
		pipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flowguard",
			Name:      "resolve_reevaluate_duration_seconds",
			Help:      "Duration of one resolve->reevaluate pipeline pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) FlowProcessed()  { r.flowsProcessed.Inc() }
func (r *Recorder) DomainResolved() { r.domainsResolved.Inc() }
func (r *Recorder) CacheHit()       { r.cacheHits.Inc() }
func (r *Recorder) CacheMiss()      { r.cacheMisses.Inc() }

func (r *Recorder) ProtocolDetected(tag protocol.Tag) {
	r.protocolTags.WithLabelValues(tag.String()).Inc()
}

func (r *Recorder) Decision(d flow.Decision) {
	r.decisions.WithLabelValues(d.String()).Inc()
}

// phaseTimer times a single resolve->reevaluate pass, mirroring this
// shop's own per-call phase timing helpers. It satisfies
// flow.PhaseTimer.
type phaseTimer struct {
	start time.Time
	rec   *Recorder
}

// StartTiming begins timing one pipeline pass.
func (r *Recorder) StartTiming() flow.PhaseTimer {
	return &phaseTimer{start: time.Now(), rec: r}
}

// Stop records the elapsed duration into the pipeline histogram.
func (p *phaseTimer) Stop() {
	p.rec.pipelineDuration.Observe(time.Since(p.start).Seconds())
}
