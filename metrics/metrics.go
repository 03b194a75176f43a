// Package metrics provides the Recorder interface the dispatcher reports to, a noop
// implementation and a Prometheus-backed one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Decode paths.
const (
	PathPrimary = "primary"
	PathCompat  = "compat"
	PathBool    = "bool"
	PathGzip    = "gzip"
	PathVector  = "vector"
)

// Error kinds.
const (
	KindUnsupported   = "unsupported"
	KindMalformed     = "malformed"
	KindInstantiation = "instantiation"
	KindLimit         = "limit"
)

// Recorder receives one event per dispatched value and per failed top-level decode.
type Recorder interface {
	RecordDecoded(path string)
	RecordError(kind string)
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordDecoded(string) {}
func (Noop) RecordError(string)   {}

// Prometheus counts decodes by path and failures by kind.
type Prometheus struct {
	decoded *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewPrometheus registers the counters with reg (the default registerer when nil).
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minitl",
			Name:      "decoded_total",
			Help:      "Values dispatched, by decode path.",
		}, []string{"path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minitl",
			Name:      "decode_errors_total",
			Help:      "Failed top-level decodes, by error kind.",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{p.decoded, p.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordDecoded(path string) {
	p.decoded.WithLabelValues(path).Inc()
}

func (p *Prometheus) RecordError(kind string) {
	p.errors.WithLabelValues(kind).Inc()
}

// Decoded returns the counter for path.
func (p *Prometheus) Decoded(path string) prometheus.Counter {
	return p.decoded.WithLabelValues(path)
}

// Errors returns the counter for kind.
func (p *Prometheus) Errors(kind string) prometheus.Counter {
	return p.errors.WithLabelValues(kind)
}
