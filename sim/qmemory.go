// Implements QuantumMemory, the per-node qubit store shared by quantum hosts
// and repeaters: a single "most recent" slot plus a FIFO buffer for qubits
// that arrive faster than they are consumed.

package sim

import (
	"fmt"
	"strings"
	"sync"
)

// OverflowPolicy decides what a bounded buffer does when it is full.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the head of the buffer to admit the new qubit.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowReject refuses the new qubit.
	OverflowReject OverflowPolicy = "reject"
)

// ParseOverflowPolicy parses a policy name; empty defaults to drop-oldest.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(normalizeEnum(s)); p {
	case "":
		return OverflowDropOldest, nil
	case OverflowDropOldest, OverflowReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q; valid: drop-oldest, reject", s)
	}
}

// QuantumMemory is safe for concurrent use. It is the minimal unit of
// mutual exclusion for qubit storage on a node.
type QuantumMemory struct {
	mu       sync.Mutex
	slot     Qubit
	hasSlot  bool
	buffer   []Qubit // FIFO
	capacity int     // 0 = unbounded
	policy   OverflowPolicy
	dropped  int64
}

// NewQuantumMemory creates a memory whose buffer holds at most capacity
// qubits (0 for unbounded).
func NewQuantumMemory(capacity int, policy OverflowPolicy) *QuantumMemory {
	if policy == "" {
		policy = OverflowDropOldest
	}
	return &QuantumMemory{capacity: capacity, policy: policy}
}

// Set stores q in the single slot, replacing whatever was held.
func (m *QuantumMemory) Set(q Qubit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot, m.hasSlot = q, true
}

// Get returns the slot contents.
func (m *QuantumMemory) Get() (Qubit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot, m.hasSlot
}

// Clear empties the slot. The buffer is left alone.
func (m *QuantumMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slot, m.hasSlot = Qubit{}, false
}

// Push appends q to the buffer and reports whether it was admitted.
func (m *QuantumMemory) Push(q Qubit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushLocked(q)
}

// Receive is the host arrival path: buffer the qubit and make it the most
// recent slot value. A rejected qubit leaves the slot untouched.
func (m *QuantumMemory) Receive(q Qubit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pushLocked(q) {
		return false
	}
	m.slot, m.hasSlot = q, true
	return true
}

func (m *QuantumMemory) pushLocked(q Qubit) bool {
	if m.capacity > 0 && len(m.buffer) >= m.capacity {
		m.dropped++
		if m.policy == OverflowReject {
			return false
		}
		m.buffer = m.buffer[1:]
	}
	m.buffer = append(m.buffer, q)
	return true
}

// Pop removes the qubit at the front of the buffer.
func (m *QuantumMemory) Pop() (Qubit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buffer) == 0 {
		return Qubit{}, false
	}
	q := m.buffer[0]
	m.buffer = m.buffer[1:]
	return q, true
}

// Peek returns the front of the buffer without removing it.
func (m *QuantumMemory) Peek() (Qubit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buffer) == 0 {
		return Qubit{}, false
	}
	return m.buffer[0], true
}

// Take removes the qubit with the given ID from the buffer, wherever it is,
// and clears the slot if it holds the same qubit.
func (m *QuantumMemory) Take(id int64) (Qubit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasSlot && m.slot.ID == id {
		m.slot, m.hasSlot = Qubit{}, false
	}
	for i, q := range m.buffer {
		if q.ID == id {
			m.buffer = append(m.buffer[:i], m.buffer[i+1:]...)
			return q, true
		}
	}
	return Qubit{}, false
}

// Len returns the number of buffered qubits.
func (m *QuantumMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// Dropped counts qubits evicted or rejected because the buffer was full.
func (m *QuantumMemory) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *QuantumMemory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	sb.WriteString("[")
	for i, q := range m.buffer {
		sb.WriteString(fmt.Sprint(q.ID))
		if i < len(m.buffer)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
