package sim

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// RepeaterState is the entanglement-swap state of a repeater.
type RepeaterState string

const (
	// RepeaterWaiting: fewer than two inbound memory slots are filled.
	RepeaterWaiting RepeaterState = "waiting"
	// RepeaterReady: at least two slots are filled; Forward will swap.
	RepeaterReady RepeaterState = "ready"
	// RepeaterSwapped is reported by the SwapOutcome of a completed swap;
	// the repeater itself is back in RepeaterWaiting afterwards.
	RepeaterSwapped RepeaterState = "swapped"
)

// ProtocolSimpleSwap is the only repeater protocol implemented.
const ProtocolSimpleSwap = "simple_swap"

// BellMeasurer performs the joint measurement of a swap and yields the
// classical outcome bit. Substitute a real implementation through
// WithBellMeasurer without touching the state machine.
type BellMeasurer interface {
	Measure(q1, q2 Qubit) int
}

// RandomBellMeasurer returns a uniformly random outcome.
type RandomBellMeasurer struct {
	rng *rand.Rand
}

// NewRandomBellMeasurer wraps rng. rng must not be shared with other
// goroutines.
func NewRandomBellMeasurer(rng *rand.Rand) *RandomBellMeasurer {
	return &RandomBellMeasurer{rng: rng}
}

func (m *RandomBellMeasurer) Measure(_, _ Qubit) int {
	return m.rng.Intn(2)
}

// QuantumRepeater holds one memory slot per inbound channel, indexed by the
// channel's position in ChannelsIn.
type QuantumRepeater struct {
	NodeBase
	quantumPort

	Protocol       string
	NumMemories    int
	MemoryFidelity float64

	ChannelsIn  []ChannelID
	ChannelsOut []ChannelID

	mu       sync.Mutex
	slots    []*Qubit
	measurer BellMeasurer
}

func (r *QuantumRepeater) addChannel(id ChannelID) {
	r.ChannelsIn = append(r.ChannelsIn, id)
	r.ChannelsOut = append(r.ChannelsOut, id)
	r.mu.Lock()
	r.slots = append(r.slots, nil)
	r.mu.Unlock()
}

// State reports the current state.
func (r *QuantumRepeater) State() RepeaterState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *QuantumRepeater) stateLocked() RepeaterState {
	if len(r.filledLocked()) >= 2 {
		return RepeaterReady
	}
	return RepeaterWaiting
}

func (r *QuantumRepeater) filledLocked() []int {
	var idx []int
	for i, q := range r.slots {
		if q != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Slot returns the qubit held for the i-th inbound channel.
func (r *QuantumRepeater) Slot(i int) (Qubit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.slots) || r.slots[i] == nil {
		return Qubit{}, false
	}
	return *r.slots[i], true
}

// store places q in the slot correlated with ch. It reports false when ch is
// not an inbound channel of the repeater.
func (r *QuantumRepeater) store(q Qubit, ch ChannelID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, in := range r.ChannelsIn {
		if in != ch {
			continue
		}
		if r.MemoryFidelity > 0 && r.MemoryFidelity < 1 {
			q = depolarize(q, 1-r.MemoryFidelity)
		}
		if r.slots[i] != nil {
			logrus.Debugf("repeater %s: slot %d overwritten by qubit %d", r.Name, i, q.ID)
		}
		r.slots[i] = &q
		return true
	}
	return false
}

// ClearMemory empties every slot and the base memory.
func (r *QuantumRepeater) ClearMemory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *QuantumRepeater) clearLocked() {
	for i := range r.slots {
		r.slots[i] = nil
	}
	r.memory.Clear()
}

// SwapOutcome describes one Forward call.
type SwapOutcome struct {
	Performed bool
	State     RepeaterState
	Result    int
	Peers     [2]NodeID
}

// Forward runs the repeater protocol once. When the repeater is not READY,
// or the protocol is unknown, nothing happens and Performed is false.
func (w *World) Forward(repeater NodeID) (SwapOutcome, error) {
	r, ok := w.Node(repeater).(*QuantumRepeater)
	if !ok {
		return SwapOutcome{}, &NodesNotFoundError{Names: []string{w.nodeName(repeater)}}
	}
	switch r.Protocol {
	case ProtocolSimpleSwap, "":
		return w.simpleEntanglementSwap(r)
	default:
		logrus.Warnf("repeater %s: unknown protocol %q, forward skipped", r.Name, r.Protocol)
		return SwapOutcome{State: r.State()}, nil
	}
}

func (w *World) simpleEntanglementSwap(r *QuantumRepeater) (SwapOutcome, error) {
	r.mu.Lock()
	filled := r.filledLocked()
	if len(filled) < 2 {
		r.mu.Unlock()
		return SwapOutcome{State: RepeaterWaiting}, nil
	}
	i, j := filled[0], filled[1]
	q1, q2 := *r.slots[i], *r.slots[j]
	result := r.measurer.Measure(q1, q2)
	peer1 := w.channels[r.ChannelsIn[i]].otherEnd(r.ID)
	peer2 := w.channels[r.ChannelsIn[j]].otherEnd(r.ID)
	r.clearLocked()
	r.mu.Unlock()

	w.EntanglementSwapOutcome(peer1, peer2, r.ID, result)
	w.EntanglementSwapOutcome(peer2, peer1, r.ID, result)

	w.Emit(EntanglementSwapped, r.ID, LevelInfo, map[string]any{
		"peers":  []string{w.nodeName(peer1), w.nodeName(peer2)},
		"result": result,
	})
	return SwapOutcome{
		Performed: true,
		State:     RepeaterSwapped,
		Result:    result,
		Peers:     [2]NodeID{peer1, peer2},
	}, nil
}

// EntanglementSwapOutcome informs node that it now shares entanglement with
// peer, mediated by repeater, with the given Bell outcome.
func (w *World) EntanglementSwapOutcome(node, peer, repeater NodeID, result int) {
	qn, ok := w.Node(node).(quantumNode)
	if !ok {
		logrus.Warnf("swap outcome for non-quantum node %s dropped", w.nodeName(node))
		return
	}
	qn.qport().recordEntanglement(Entanglement{
		Peer:     peer,
		Repeater: repeater,
		Result:   result,
		Tick:     w.Clock(),
	})
}
