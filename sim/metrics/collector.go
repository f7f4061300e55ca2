// Package metrics exposes simulation events as Prometheus metrics and
// produces an end-of-run summary.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/stat"

	"github.com/qnetsim/qnetsim/sim"
)

// Collector bundles the Prometheus metrics fed by the event observer and
// keeps the raw samples needed for the run summary.
type Collector struct {
	gatherer prometheus.Gatherer

	Events         *prometheus.CounterVec
	QubitsLost     *prometheus.CounterVec
	QubitsReceived *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	PacketHops     prometheus.Histogram
	PacketLatency  prometheus.Histogram
	KeyQBER        prometheus.Histogram
	Swaps          prometheus.Counter

	mu        sync.Mutex
	hops      []float64
	latencies []float64
	qbers     []float64
	delivered int
	secured   int
	failed    int
	received  int
	lost      int
	swaps     int
}

// NewCollector registers the simulator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qnetsim_events_total",
		Help: "Total number of emitted simulation events, labeled by event type and level.",
	}, []string{"type", "level"}), "qnetsim_events_total")
	if err != nil {
		return nil, err
	}
	lost, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qnetsim_qubits_lost_total",
		Help: "Qubits lost in transit, labeled by channel.",
	}, []string{"channel"}), "qnetsim_qubits_lost_total")
	if err != nil {
		return nil, err
	}
	received, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qnetsim_qubits_received_total",
		Help: "Qubits delivered to a quantum node, labeled by channel.",
	}, []string{"channel"}), "qnetsim_qubits_received_total")
	if err != nil {
		return nil, err
	}
	errs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qnetsim_command_errors_total",
		Help: "Failed commands, labeled by command and error category.",
	}, []string{"command", "category"}), "qnetsim_command_errors_total")
	if err != nil {
		return nil, err
	}
	hops, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qnetsim_packet_hops",
		Help:    "Number of nodes a delivered packet visited before its destination.",
		Buckets: prometheus.LinearBuckets(1, 1, 16),
	}), "qnetsim_packet_hops")
	if err != nil {
		return nil, err
	}
	latency, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qnetsim_packet_latency_ticks",
		Help:    "Accumulated link latency of delivered packets.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}), "qnetsim_packet_latency_ticks")
	if err != nil {
		return nil, err
	}
	qber, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qnetsim_qkd_qber",
		Help:    "Quantum bit error rate observed per completed key exchange.",
		Buckets: []float64{0, 0.01, 0.02, 0.05, 0.11, 0.25, 0.5, 1},
	}), "qnetsim_qkd_qber")
	if err != nil {
		return nil, err
	}
	swaps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qnetsim_entanglement_swaps_total",
		Help: "Entanglement swaps performed by repeaters.",
	}), "qnetsim_entanglement_swaps_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Events:         events,
		QubitsLost:     lost,
		QubitsReceived: received,
		Errors:         errs,
		PacketHops:     hops,
		PacketLatency:  latency,
		KeyQBER:        qber,
		Swaps:          swaps,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Observe satisfies sim.Observer.
func (c *Collector) Observe(e sim.Event) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(string(e.Type), string(e.Level)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case sim.DataReceived:
		hops := float64(intField(e.Data, "hop_count"))
		latency := float64(intField(e.Data, "latency"))
		c.PacketHops.Observe(hops)
		c.PacketLatency.Observe(latency)
		c.hops = append(c.hops, hops)
		c.latencies = append(c.latencies, latency)
		c.delivered++
		if secured, _ := e.Data["secured"].(bool); secured {
			c.secured++
		}
	case sim.QubitLost:
		c.QubitsLost.WithLabelValues(stringField(e.Data, "channel")).Inc()
		c.lost++
	case sim.QubitReceived:
		c.QubitsReceived.WithLabelValues(stringField(e.Data, "channel")).Inc()
		c.received++
	case sim.EntanglementSwapped:
		c.Swaps.Inc()
		c.swaps++
	case sim.QKDCompleted:
		qber, _ := e.Data["qber"].(float64)
		c.KeyQBER.Observe(qber)
		c.qbers = append(c.qbers, qber)
	case sim.SimulationError:
		c.Errors.WithLabelValues(stringField(e.Data, "command"), stringField(e.Data, "category")).Inc()
		c.failed++
	}
}

// Summary is the end-of-run digest printed by the CLI.
type Summary struct {
	Delivered      int
	Secured        int
	Failed         int
	MeanHops       float64
	P50Hops        float64
	P95Hops        float64
	MeanLatency    float64
	P95Latency     float64
	QubitsReceived int
	QubitsLost     int
	LossRate       float64
	Swaps          int
	KeyExchanges   int
	MeanQBER       float64
}

// Summary computes the run digest from the samples observed so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Summary{
		Delivered:      c.delivered,
		Secured:        c.secured,
		Failed:         c.failed,
		QubitsReceived: c.received,
		QubitsLost:     c.lost,
		Swaps:          c.swaps,
		KeyExchanges:   len(c.qbers),
	}
	if len(c.hops) > 0 {
		hops := sorted(c.hops)
		s.MeanHops = stat.Mean(hops, nil)
		s.P50Hops = stat.Quantile(0.5, stat.Empirical, hops, nil)
		s.P95Hops = stat.Quantile(0.95, stat.Empirical, hops, nil)
	}
	if len(c.latencies) > 0 {
		lat := sorted(c.latencies)
		s.MeanLatency = stat.Mean(lat, nil)
		s.P95Latency = stat.Quantile(0.95, stat.Empirical, lat, nil)
	}
	if total := c.received + c.lost; total > 0 {
		s.LossRate = float64(c.lost) / float64(total)
	}
	if len(c.qbers) > 0 {
		s.MeanQBER = stat.Mean(c.qbers, nil)
	}
	return s
}

// Print writes the summary as a plain-text block.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Summary ===")
	fmt.Fprintf(w, "Packets delivered : %d (%d secured)\n", s.Delivered, s.Secured)
	fmt.Fprintf(w, "Commands failed   : %d\n", s.Failed)
	fmt.Fprintf(w, "Hops mean/p50/p95 : %.2f / %.0f / %.0f\n", s.MeanHops, s.P50Hops, s.P95Hops)
	fmt.Fprintf(w, "Latency mean/p95  : %.2f / %.0f ticks\n", s.MeanLatency, s.P95Latency)
	fmt.Fprintf(w, "Qubits recv/lost  : %d / %d (loss rate %.3f)\n", s.QubitsReceived, s.QubitsLost, s.LossRate)
	fmt.Fprintf(w, "Swaps             : %d\n", s.Swaps)
	fmt.Fprintf(w, "Key exchanges     : %d (mean QBER %.4f)\n", s.KeyExchanges, s.MeanQBER)
}

func sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func intField(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
