package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// QuantumChannel is an undirected, lossy, noisy link between two quantum
// nodes. No qubit is ever queued on the channel itself.
type QuantumChannel struct {
	ID         ChannelID
	Name       string
	Node1      NodeID
	Node2      NodeID
	Length     float64 // meters
	LossPerKm  float64 // probability of loss per kilometer
	NoiseModel NoiseModel

	label string

	// mu serializes the transmission path; rng is only used under mu.
	mu  sync.Mutex
	rng *rand.Rand

	transmitted atomic.Int64
	lost        atomic.Int64
}

func (c *QuantumChannel) String() string { return c.label }

// LossProbability is 1 - (1 - loss_per_km)^(length/1000).
func (c *QuantumChannel) LossProbability() float64 {
	if c.Length <= 0 || c.LossPerKm <= 0 {
		return 0
	}
	if c.LossPerKm >= 1 {
		return 1
	}
	return 1 - math.Pow(1-c.LossPerKm, c.Length/1000)
}

// Other returns the endpoint that is not from.
func (c *QuantumChannel) Other(from NodeID) (NodeID, bool) {
	switch from {
	case c.Node1:
		return c.Node2, true
	case c.Node2:
		return c.Node1, true
	default:
		return NoNode, false
	}
}

func (c *QuantumChannel) otherEnd(from NodeID) NodeID {
	n, _ := c.Other(from)
	return n
}

// Stats returns the number of transmissions attempted and lost.
func (c *QuantumChannel) Stats() (transmitted, lost int64) {
	return c.transmitted.Load(), c.lost.Load()
}

// TransmissionStatus is the tag of a Transmission result.
type TransmissionStatus int

const (
	Delivered TransmissionStatus = iota
	Lost
)

func (s TransmissionStatus) String() string {
	if s == Lost {
		return "lost"
	}
	return "delivered"
}

// Transmission is the result of sending one qubit over a channel. Loss is
// an ordinary outcome, reported here rather than as an error.
type Transmission struct {
	Status TransmissionStatus
	// Qubit is the state handed to the receiver (after noise). Zero when lost.
	Qubit Qubit
	To    NodeID
	// Loss is set when Status is Lost.
	Loss *QubitLossError
}

// TransmitQubit sends q from one endpoint of ch to the other. The only
// error is NotConnectedError when from is not an endpoint.
func (w *World) TransmitQubit(ch ChannelID, q Qubit, from NodeID) (Transmission, error) {
	c := w.Channel(ch)
	if c == nil {
		return Transmission{}, &NotConnectedError{From: w.nodeName(from), To: fmt.Sprintf("channel %d", ch)}
	}
	to, ok := c.Other(from)
	if !ok {
		return Transmission{}, &NotConnectedError{From: w.nodeName(from), To: c.label}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.transmitted.Add(1)
	if c.rng.Float64() < c.LossProbability() {
		c.lost.Add(1)
		loss := &QubitLossError{Channel: c.label, ChannelID: c.ID, QubitID: q.ID}
		w.Emit(QubitLost, from, LevelInfo, map[string]any{
			"channel": c.label,
			"to":      w.nodeName(to),
			"qubit":   q.ID,
		})
		return Transmission{Status: Lost, To: to, Loss: loss}, nil
	}

	noisy := ApplyNoise(c.NoiseModel, q)
	w.receiveQubit(to, noisy, c)
	return Transmission{Status: Delivered, Qubit: noisy, To: to}, nil
}

// receiveQubit places an arriving qubit according to the receiver's kind.
func (w *World) receiveQubit(to NodeID, q Qubit, c *QuantumChannel) {
	switch n := w.Node(to).(type) {
	case *QuantumHost:
		if !n.memory.Receive(q) {
			logrus.Debugf("qhost %s: buffer full, qubit %d rejected", n.Name, q.ID)
		}
	case *QuantumRepeater:
		if !n.store(q, c.ID) {
			w.Emit(UnexpectedChannel, to, LevelWarning, map[string]any{
				"channel": c.label,
				"qubit":   q.ID,
			})
			return
		}
	default:
		logrus.Warnf("qubit %d delivered to non-quantum node %s dropped", q.ID, w.nodeName(to))
		return
	}
	w.Emit(QubitReceived, to, LevelInfo, map[string]any{
		"channel": c.label,
		"from":    w.nodeName(c.otherEnd(to)),
		"qubit":   q.ID,
	})
}

// ReceiveQubit is the external arrival entry point for a qubit that
// reached node over ch, bypassing the loss model.
func (w *World) ReceiveQubit(node NodeID, q Qubit, ch ChannelID) error {
	c := w.Channel(ch)
	if c == nil {
		return &NotConnectedError{From: w.nodeName(node), To: fmt.Sprintf("channel %d", ch)}
	}
	w.receiveQubit(node, q, c)
	return nil
}
