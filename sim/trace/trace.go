package trace

import "sync"

// TraceLevel controls the verbosity of journey tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelPackets captures classical packet journeys only.
	TraceLevelPackets TraceLevel = "packets"
	// TraceLevelAll also captures qubit transmissions, swaps and key exchanges.
	TraceLevelAll TraceLevel = "all"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelPackets: true,
	TraceLevelAll:     true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Enabled reports whether anything is recorded at all.
func (c TraceConfig) Enabled() bool {
	return c.Level == TraceLevelPackets || c.Level == TraceLevelAll
}

// Quantum reports whether quantum-layer records are kept.
func (c TraceConfig) Quantum() bool {
	return c.Level == TraceLevelAll
}

// SimulationTrace collects journey records during a run. Record methods are
// safe for concurrent use; read the slices only after the run has finished.
type SimulationTrace struct {
	Config  TraceConfig
	Packets []PacketRecord
	Hops    []HopRecord
	Qubits  []QubitRecord
	Swaps   []SwapRecord
	Keys    []KeyRecord

	mu sync.Mutex
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Packets: make([]PacketRecord, 0),
		Hops:    make([]HopRecord, 0),
		Qubits:  make([]QubitRecord, 0),
		Swaps:   make([]SwapRecord, 0),
		Keys:    make([]KeyRecord, 0),
	}
}

// RecordPacket appends the outcome of one packet.
func (st *SimulationTrace) RecordPacket(record PacketRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Packets = append(st.Packets, record)
}

// RecordHop appends one forwarding decision.
func (st *SimulationTrace) RecordHop(record HopRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Hops = append(st.Hops, record)
}

// RecordQubit appends one qubit transmission.
func (st *SimulationTrace) RecordQubit(record QubitRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Qubits = append(st.Qubits, record)
}

// RecordSwap appends one entanglement swap.
func (st *SimulationTrace) RecordSwap(record SwapRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Swaps = append(st.Swaps, record)
}

// RecordKey appends one completed key exchange.
func (st *SimulationTrace) RecordKey(record KeyRecord) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Keys = append(st.Keys, record)
}

// Journey returns the forwarding decisions taken for one packet, in order.
func (st *SimulationTrace) Journey(packetID int64) []HopRecord {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []HopRecord
	for _, h := range st.Hops {
		if h.PacketID == packetID {
			out = append(out, h)
		}
	}
	return out
}
