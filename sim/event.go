package sim

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType is the closed set of simulation event kinds.
type EventType string

const (
	PacketTransmitted     EventType = "PACKET_TRANSMITTED"
	PacketReceived        EventType = "PACKET_RECEIVED"
	DataSent              EventType = "DATA_SENT"
	DataReceived          EventType = "DATA_RECEIVED"
	PacketRouted          EventType = "PACKET_ROUTED"
	QKDInitiated          EventType = "QKD_INITIATED"
	ClassicalDataReceived EventType = "CLASSICAL_DATA_RECEIVED"

	QubitLost           EventType = "QUBIT_LOST"
	QubitReceived       EventType = "QUBIT_RECEIVED"
	EntanglementSwapped EventType = "ENTANGLEMENT_SWAPPED"
	UnexpectedChannel   EventType = "UNEXPECTED_CHANNEL"
	QKDCompleted        EventType = "QKD_COMPLETED"

	// Emitted by the driver, with no originating node.
	SimulationStarted   EventType = "SIMULATION_STARTED"
	SimulationCompleted EventType = "SIMULATION_COMPLETED"
	SimulationError     EventType = "SIMULATION_ERROR"
)

// LogLevel is the severity attached to an Event.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarning  LogLevel = "warning"
	LevelError    LogLevel = "error"
	LevelCritical LogLevel = "critical"
)

// NodeRef identifies the node that produced an Event. The name is captured
// at emission time so the event never holds a live reference into the World.
type NodeRef struct {
	ID   NodeID
	Name string
}

// Event is an immutable record of one state transition.
type Event struct {
	Type      EventType
	Node      NodeRef
	RunID     string
	Tick      int64
	Timestamp time.Time
	Level     LogLevel
	Data      map[string]any
}

// Observer receives every emitted Event. Observers may be invoked from
// several goroutines when transmissions on disjoint channels run in
// parallel, so implementations must be safe for concurrent use.
type Observer func(Event)

// MultiObserver fans a single event out to several observers, in order.
// Nil observers are skipped.
func MultiObserver(observers ...Observer) Observer {
	return func(e Event) {
		for _, o := range observers {
			if o != nil {
				o(e)
			}
		}
	}
}

// ToMap returns the serialized form used by journals and external sinks.
func (e Event) ToMap() map[string]any {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = transformValue(v)
	}
	return map[string]any{
		"event_type": string(e.Type),
		"node":       e.Node.Name,
		"run_id":     e.RunID,
		"tick":       e.Tick,
		"timestamp":  float64(e.Timestamp.UnixNano()) / 1e9,
		"level":      string(e.Level),
		"data":       data,
	}
}

func (e Event) String() string {
	return fmt.Sprintf("Event: (Type: %s, Node: %s, Tick: %d)", e.Type, e.Node.Name, e.Tick)
}

// transformValue flattens values that do not serialize cleanly.
func transformValue(v any) any {
	switch t := v.(type) {
	case NodeRef:
		return t.Name
	case []NodeRef:
		names := make([]string, len(t))
		for i, r := range t {
			names[i] = r.Name
		}
		return names
	case []byte:
		return string(t)
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case []string:
			out[k] = append([]string(nil), t...)
		case []byte:
			out[k] = append([]byte(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Emit records an event originating at node (NoNode for driver-level
// events) and hands a private copy to the observer.
func (w *World) Emit(typ EventType, node NodeID, level LogLevel, data map[string]any) {
	ref := NodeRef{ID: node}
	if n := w.Node(node); n != nil {
		ref.Name = n.Base().Name
	}
	ev := Event{
		Type:      typ,
		Node:      ref,
		RunID:     w.RunID,
		Tick:      w.Clock(),
		Timestamp: time.Now(),
		Level:     level,
		Data:      cloneData(data),
	}
	logrus.Debugf("[tick %07d] %s at %q %v", ev.Tick, ev.Type, ref.Name, ev.Data)
	if w.observer != nil {
		w.observer(ev)
	}
}
