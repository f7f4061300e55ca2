package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_DataIsPrivateCopy(t *testing.T) {
	// GIVEN an observer that keeps the event
	rec := &eventRecorder{}
	w := NewWorld("w", [2]float64{}, WithObserver(rec.observe))
	data := map[string]any{"peers": []string{"a", "b"}, "n": 1}

	// WHEN the caller mutates its map after emitting
	w.Emit(SimulationStarted, NoNode, LevelInfo, data)
	data["n"] = 2
	data["peers"].([]string)[0] = "z"

	// THEN the observed event is unaffected
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Data["n"])
	assert.Equal(t, []string{"a", "b"}, events[0].Data["peers"])
	assert.Equal(t, "", events[0].Node.Name)
	assert.Equal(t, NoNode, events[0].Node.ID)
}

func TestEmit_StampsTickAndRunID(t *testing.T) {
	rec := &eventRecorder{}
	w := NewWorld("w", [2]float64{}, WithObserver(rec.observe), WithRunID("r-42"))
	w.SetClock(17)

	w.Emit(SimulationCompleted, NoNode, LevelInfo, nil)

	e := rec.all()[0]
	assert.Equal(t, int64(17), e.Tick)
	assert.Equal(t, "r-42", e.RunID)
	assert.False(t, e.Timestamp.IsZero())
}

func TestEvent_ToMap(t *testing.T) {
	e := Event{
		Type:      PacketRouted,
		Node:      NodeRef{ID: 1, Name: "R"},
		RunID:     "run",
		Tick:      3,
		Timestamp: time.Unix(10, 500_000_000),
		Level:     LevelInfo,
		Data: map[string]any{
			"peer":    NodeRef{ID: 2, Name: "B"},
			"payload": []byte("hi"),
			"err":     errors.New("bad"),
			"basis":   BasisX,
			"count":   4,
		},
	}

	m := e.ToMap()

	assert.Equal(t, "PACKET_ROUTED", m["event_type"])
	assert.Equal(t, "R", m["node"])
	assert.Equal(t, "run", m["run_id"])
	assert.Equal(t, int64(3), m["tick"])
	assert.InDelta(t, 10.5, m["timestamp"], 1e-9)
	assert.Equal(t, "info", m["level"])
	data := m["data"].(map[string]any)
	assert.Equal(t, "B", data["peer"])
	assert.Equal(t, "hi", data["payload"])
	assert.Equal(t, "bad", data["err"])
	assert.Equal(t, "X", data["basis"])
	assert.Equal(t, 4, data["count"])
}

func TestMultiObserver_FansOutInOrder(t *testing.T) {
	var order []string
	obs := MultiObserver(
		func(Event) { order = append(order, "first") },
		nil,
		func(Event) { order = append(order, "second") },
	)

	obs(Event{Type: DataSent})

	assert.Equal(t, []string{"first", "second"}, order)
}
