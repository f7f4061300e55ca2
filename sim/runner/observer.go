package runner

import (
	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/trace"
)

// TraceObserver returns an Observer that records packet journeys, qubit
// transmissions, swaps and key exchanges into st. A nil or disabled trace
// yields a no-op observer.
func TraceObserver(st *trace.SimulationTrace) sim.Observer {
	if st == nil || !st.Config.Enabled() {
		return func(sim.Event) {}
	}
	return func(e sim.Event) {
		switch e.Type {
		case sim.DataReceived:
			st.RecordPacket(trace.PacketRecord{
				PacketID:  int64Field(e.Data, "packet_id"),
				Clock:     e.Tick,
				From:      stringField(e.Data, "from"),
				To:        e.Node.Name,
				Hops:      stringsField(e.Data, "hops"),
				Latency:   int64Field(e.Data, "latency"),
				Secured:   boolField(e.Data, "secured"),
				Delivered: true,
			})
		case sim.PacketRouted:
			st.RecordHop(trace.HopRecord{
				PacketID:    int64Field(e.Data, "packet_id"),
				Clock:       e.Tick,
				Node:        e.Node.Name,
				NextHop:     stringField(e.Data, "next_hop"),
				Destination: stringField(e.Data, "destination"),
			})
		case sim.SimulationError:
			if stringField(e.Data, "command") != CommandSendMessage {
				return
			}
			st.RecordPacket(trace.PacketRecord{
				Clock: e.Tick,
				From:  stringField(e.Data, "from"),
				To:    stringField(e.Data, "to"),
				Error: stringField(e.Data, "error"),
			})
		case sim.QubitReceived, sim.QubitLost:
			if !st.Config.Quantum() {
				return
			}
			st.RecordQubit(trace.QubitRecord{
				QubitID: int64Field(e.Data, "qubit"),
				Clock:   e.Tick,
				Channel: stringField(e.Data, "channel"),
				Node:    e.Node.Name,
				Lost:    e.Type == sim.QubitLost,
			})
		case sim.EntanglementSwapped:
			var peers [2]string
			copy(peers[:], stringsField(e.Data, "peers"))
			st.RecordSwap(trace.SwapRecord{
				Clock:    e.Tick,
				Repeater: e.Node.Name,
				Peers:    peers,
				Result:   int(int64Field(e.Data, "result")),
			})
		case sim.QKDCompleted:
			st.RecordKey(trace.KeyRecord{
				Clock:     e.Tick,
				Adapter:   e.Node.Name,
				Peer:      stringField(e.Data, "peer"),
				KeyLength: int(int64Field(e.Data, "key_length")),
				QBER:      floatField(e.Data, "qber"),
			})
		}
	}
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func stringsField(data map[string]any, key string) []string {
	s, _ := data[key].([]string)
	return append([]string(nil), s...)
}

func boolField(data map[string]any, key string) bool {
	b, _ := data[key].(bool)
	return b
}

func int64Field(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
