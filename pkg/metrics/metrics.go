package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the kiai Prometheus metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "kiai").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for bootstrap duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "kiai",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the client's Prometheus metrics. A nil *Metrics is valid
// and records nothing, so components can take one unconditionally.
type Metrics struct {
	packetsReceived  *prometheus.CounterVec
	packetsSent      *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	sendFailures     prometheus.Counter
	connects         *prometheus.CounterVec
	disconnects      *prometheus.CounterVec
	connected        prometheus.Gauge
	framesReceived   prometheus.Counter
	framesSent       prometheus.Counter
	flushes          *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	scoreCorrections prometheus.Counter
	bootstrapSeconds prometheus.Histogram
	downloads        *prometheus.CounterVec
}

// New registers the kiai metrics.
//
// Metrics collected:
//   - kiai_packets_received_total: Counter of inbound packets by kind
//   - kiai_packets_sent_total: Counter of outbound packets by kind
//   - kiai_decode_errors_total: Counter of messages cut short by decode errors
//   - kiai_send_failures_total: Counter of failed websocket writes
//   - kiai_connects_total: Counter of connection attempts by result
//   - kiai_disconnects_total: Counter of disconnects by reason
//   - kiai_connected: Gauge, 1 while a connection is open
//   - kiai_spectator_frames_received_total: Counter of frames from hosts
//   - kiai_spectator_frames_sent_total: Counter of local frames flushed
//   - kiai_spectator_flushes_total: Counter of outgoing flushes by trigger
//   - kiai_spectator_transitions_total: Counter of playback state changes
//   - kiai_spectator_score_corrections_total: Counter of applied host scores
//   - kiai_spectator_bootstrap_seconds: Histogram of engine bootstrap time
//   - kiai_map_downloads_total: Counter of map downloads by result
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(metrics.WithRegistry(reg))
//	sess := session.New(session.Options{Metrics: m})
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		packetsReceived:  counterVec("packets_received_total", "Total inbound packets by kind", "kind"),
		packetsSent:      counterVec("packets_sent_total", "Total outbound packets by kind", "kind"),
		decodeErrors:     counter("decode_errors_total", "Total messages whose remaining packets were dropped"),
		sendFailures:     counter("send_failures_total", "Total failed websocket writes"),
		connects:         counterVec("connects_total", "Total connection attempts by result", "result"),
		disconnects:      counterVec("disconnects_total", "Total disconnects by reason", "reason"),
		framesReceived:   counter("spectator_frames_received_total", "Total spectator frames received from hosts"),
		framesSent:       counter("spectator_frames_sent_total", "Total local spectator frames sent"),
		flushes:          counterVec("spectator_flushes_total", "Total outgoing spectator flushes by trigger", "trigger"),
		transitions:      counterVec("spectator_transitions_total", "Total playback state transitions", "from", "to"),
		scoreCorrections: counter("spectator_score_corrections_total", "Total host score snapshots applied"),
		downloads:        counterVec("map_downloads_total", "Total map downloads by result", "result"),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "connected",
			Help:        "1 while a server connection is open",
			ConstLabels: config.ConstLabels,
		}),

		bootstrapSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "spectator_bootstrap_seconds",
			Help:        "Time to resolve a map and start a gameplay engine",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// =============================================================================
// Recording Functions
// =============================================================================

// PacketReceived records one inbound packet.
func (m *Metrics) PacketReceived(kind string) {
	if m != nil {
		m.packetsReceived.WithLabelValues(kind).Inc()
	}
}

// PacketSent records one outbound packet.
func (m *Metrics) PacketSent(kind string) {
	if m != nil {
		m.packetsSent.WithLabelValues(kind).Inc()
	}
}

// DecodeError records a message cut short by a decode error.
func (m *Metrics) DecodeError() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

// SendFailure records a failed write.
func (m *Metrics) SendFailure() {
	if m != nil {
		m.sendFailures.Inc()
	}
}

// Connect records a connection attempt ("ok", "dial_error", "rejected").
func (m *Metrics) Connect(result string) {
	if m != nil {
		m.connects.WithLabelValues(result).Inc()
		if result == "ok" {
			m.connected.Set(1)
		}
	}
}

// Disconnect records the end of a connection.
func (m *Metrics) Disconnect(reason string) {
	if m != nil {
		m.disconnects.WithLabelValues(reason).Inc()
		m.connected.Set(0)
	}
}

// FramesReceived records frames appended to a spectator queue.
func (m *Metrics) FramesReceived(n int) {
	if m != nil {
		m.framesReceived.Add(float64(n))
	}
}

// Flush records an outgoing spectator flush ("size", "time", "force").
func (m *Metrics) Flush(trigger string, frames int) {
	if m != nil {
		m.flushes.WithLabelValues(trigger).Inc()
		m.framesSent.Add(float64(frames))
	}
}

// Transition records a playback state change.
func (m *Metrics) Transition(from, to string) {
	if m != nil {
		m.transitions.WithLabelValues(from, to).Inc()
	}
}

// ScoreCorrection records an applied host score.
func (m *Metrics) ScoreCorrection() {
	if m != nil {
		m.scoreCorrections.Inc()
	}
}

// Bootstrap records how long a bootstrap took.
func (m *Metrics) Bootstrap(seconds float64) {
	if m != nil {
		m.bootstrapSeconds.Observe(seconds)
	}
}

// Download records a map download ("ok", "error").
func (m *Metrics) Download(result string) {
	if m != nil {
		m.downloads.WithLabelValues(result).Inc()
	}
}
