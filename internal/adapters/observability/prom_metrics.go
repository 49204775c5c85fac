package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/kioskbridge/internal/ports"
)

type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	dropped  *prometheus.CounterVec
}

// NewPromObs registers the kiosk metrics on the default registerer and logs
// through log. A nil logger discards log output.
func NewPromObs(log *zap.Logger) *PromObs {
	if log == nil {
		log = zap.NewNop()
	}

	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricSignalsReceived,
		Help: "Signal keys accepted from the bridge.",
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricFramesDropped,
		Help: "Inbound frames dropped as malformed or off-topic.",
	}, []string{"protocol", "reason"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricReconnectAttempts,
		Help: "Scheduled reconnect attempts.",
	})
	sequences := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricSequencesStarted,
		Help: "Announce/play sequences started.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricDuplicateSignals,
		Help: "Signals dropped because the key was already in flight.",
	})
	resumes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricResumeSignals,
		Help: "Resume signals published after media completion.",
	})
	resumeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricResumeFailures,
		Help: "Resume signals that could not be sent.",
	})
	misses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricResolutionMisses,
		Help: "Keys with neither description nor asset.",
	})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.GaugeBridgeConnected,
		Help: "1 while a bridge connection is open.",
	})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.GaugeQueueLength,
		Help: "Items waiting in the dispatcher queue.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.HistSequenceDuration,
		Help:    "Time from sequence start to resume signal.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	prometheus.MustRegister(received, dropped, reconnects, sequences, duplicates, resumes, resumeFailures, misses, connected, queueLen, duration)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			ports.MetricSignalsReceived:   received,
			ports.MetricReconnectAttempts: reconnects,
			ports.MetricSequencesStarted:  sequences,
			ports.MetricDuplicateSignals:  duplicates,
			ports.MetricResumeSignals:     resumes,
			ports.MetricResumeFailures:    resumeFailures,
			ports.MetricResolutionMisses:  misses,
		},
		gauges: map[string]prometheus.Gauge{
			ports.GaugeBridgeConnected: connected,
			ports.GaugeQueueLength:     queueLen,
		},
		histos: map[string]prometheus.Observer{
			ports.HistSequenceDuration: duration,
		},
		dropped: dropped,
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.log.Debug(msg, zapFields(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Warn(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDroppedFrame(protocol, reason string, err error) {
	p.dropped.WithLabelValues(protocol, reason).Inc()
	p.log.Warn("frame_dropped",
		zap.String("protocol", protocol),
		zap.String("reason", reason),
		zap.Error(err))
}

func zapFields(fields []ports.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
