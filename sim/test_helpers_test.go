package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// eventRecorder is an Observer that keeps every event it sees.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *eventRecorder) types() []EventType {
	var out []EventType
	for _, e := range r.all() {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) ofType(t EventType) []Event {
	var out []Event
	for _, e := range r.all() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func mustNode(t *testing.T, w *World, network NetworkID, name string, typ NodeType) NodeID {
	t.Helper()
	id, err := w.AddNode(network, NodeSpec{Name: name, Type: typ})
	require.NoError(t, err)
	return id
}

func mustConnect(t *testing.T, w *World, network NetworkID, spec ConnectionSpec) ChannelID {
	t.Helper()
	id, err := w.Connect(network, spec)
	require.NoError(t, err)
	return id
}

func mustNetwork(t *testing.T, w *World, zone ZoneID, name string, typ NetworkType) NetworkID {
	t.Helper()
	id, err := w.AddNetwork(zone, name, "", typ, [2]float64{})
	require.NoError(t, err)
	return id
}

// linearWorld is A - R - B on one classical network.
type linearWorld struct {
	w       *World
	rec     *eventRecorder
	a, r, b NodeID
}

func newLinearWorld(t *testing.T, opts ...Option) linearWorld {
	t.Helper()
	rec := &eventRecorder{}
	w := NewWorld("linear", [2]float64{100, 100}, append([]Option{WithObserver(rec.observe), WithSeed(42)}, opts...)...)
	z := w.AddZone("z", ZoneResidential, [2]float64{10, 10}, [2]float64{})
	net := mustNetwork(t, w, z, "lan", ClassicalNetwork)
	a := mustNode(t, w, net, "A", NodeClassicalHost)
	r := mustNode(t, w, net, "R", NodeClassicalRouter)
	b := mustNode(t, w, net, "B", NodeClassicalHost)
	mustConnect(t, w, net, ConnectionSpec{From: "A", To: "R", Name: "a-r", Latency: 3})
	mustConnect(t, w, net, ConnectionSpec{From: "R", To: "B", Name: "r-b", Latency: 4})
	require.NoError(t, w.Finalize())
	return linearWorld{w: w, rec: rec, a: a, r: r, b: b}
}

// quantumPairWorld is two quantum hosts joined by one channel.
type quantumPairWorld struct {
	w      *World
	rec    *eventRecorder
	q1, q2 NodeID
	ch     ChannelID
}

func newQuantumPairWorld(t *testing.T, length, lossPerKm float64, noise NoiseModel, opts ...Option) quantumPairWorld {
	t.Helper()
	rec := &eventRecorder{}
	w := NewWorld("qpair", [2]float64{100, 100}, append([]Option{WithObserver(rec.observe), WithSeed(7)}, opts...)...)
	z := w.AddZone("z", ZoneSecure, [2]float64{10, 10}, [2]float64{})
	net := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	q1 := mustNode(t, w, net, "Q1", NodeQuantumHost)
	q2 := mustNode(t, w, net, "Q2", NodeQuantumHost)
	ch := mustConnect(t, w, net, ConnectionSpec{
		From: "Q1", To: "Q2", Name: "q1-q2", Length: length, LossPerKm: lossPerKm, NoiseModel: noise,
	})
	require.NoError(t, w.Finalize())
	return quantumPairWorld{w: w, rec: rec, q1: q1, q2: q2, ch: ch}
}

// bridgeWorld is H1 - X1 ~ X2 - H2, where X1/X2 are adapters or converters
// whose quantum hosts QH1/QH2 share a channel (unless withChannel is false).
type bridgeWorld struct {
	w        *World
	rec      *eventRecorder
	h1, h2   NodeID
	x1, x2   NodeID
	qh1, qh2 NodeID
}

func newBridgeWorld(t *testing.T, t1, t2 NodeType, withChannel bool, opts ...Option) bridgeWorld {
	t.Helper()
	rec := &eventRecorder{}
	w := NewWorld("bridge", [2]float64{100, 100}, append([]Option{WithObserver(rec.observe), WithSeed(11)}, opts...)...)
	z := w.AddZone("z", ZoneCommercial, [2]float64{10, 10}, [2]float64{})
	lan1 := mustNetwork(t, w, z, "lan1", ClassicalNetwork)
	lan2 := mustNetwork(t, w, z, "lan2", ClassicalNetwork)
	qnet := mustNetwork(t, w, z, "qnet", QuantumNetwork)
	h1 := mustNode(t, w, lan1, "H1", NodeClassicalHost)
	h2 := mustNode(t, w, lan2, "H2", NodeClassicalHost)
	qh1 := mustNode(t, w, qnet, "QH1", NodeQuantumHost)
	qh2 := mustNode(t, w, qnet, "QH2", NodeQuantumHost)
	if withChannel {
		mustConnect(t, w, qnet, ConnectionSpec{From: "QH1", To: "QH2", Name: "qh1-qh2", Length: 1000})
	}
	x1, err := w.AddBridge(z, BridgeSpec{
		Name: "X1", Type: t1,
		ClassicalHost: "H1", ClassicalNetwork: "lan1",
		QuantumHost: "QH1", QuantumNetwork: "qnet",
	})
	require.NoError(t, err)
	x2, err := w.AddBridge(z, BridgeSpec{
		Name: "X2", Type: t2,
		ClassicalHost: "H2", ClassicalNetwork: "lan2",
		QuantumHost: "QH2", QuantumNetwork: "qnet",
	})
	require.NoError(t, err)
	require.NoError(t, w.Finalize())
	return bridgeWorld{w: w, rec: rec, h1: h1, h2: h2, x1: x1, x2: x2, qh1: qh1, qh2: qh2}
}
