package trace

import (
	"math"
	"testing"
)

func TestSummarize_NilTrace_ReturnsZeroSummary(t *testing.T) {
	// GIVEN a nil trace
	// WHEN summarized
	s := Summarize(nil)

	// THEN every field is zero and the map is usable
	if s.TotalPackets != 0 || s.QubitsSent != 0 || s.Swaps != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.DestinationCount == nil {
		t.Error("expected non-nil DestinationCount")
	}
}

func TestSummarize_Packets(t *testing.T) {
	// GIVEN two delivered packets and one failure
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelPackets})
	st.RecordPacket(PacketRecord{PacketID: 1, To: "B", Hops: []string{"A", "R"}, Delivered: true})
	st.RecordPacket(PacketRecord{PacketID: 2, To: "B", Hops: []string{"A", "R1", "R2", "R3"}, Delivered: true, Secured: true})
	st.RecordPacket(PacketRecord{PacketID: 3, To: "C", Error: "default gateway not found"})

	// WHEN summarized
	s := Summarize(st)

	// THEN delivery counts and hop statistics are computed over delivered packets
	if s.TotalPackets != 3 || s.DeliveredCount != 2 || s.FailedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", s.TotalPackets, s.DeliveredCount, s.FailedCount)
	}
	if s.SecuredCount != 1 {
		t.Errorf("SecuredCount = %d, want 1", s.SecuredCount)
	}
	if math.Abs(s.MeanHops-3.0) > 1e-9 {
		t.Errorf("MeanHops = %v, want 3", s.MeanHops)
	}
	if s.MaxHops != 4 {
		t.Errorf("MaxHops = %d, want 4", s.MaxHops)
	}
	if s.DestinationCount["B"] != 2 || s.DestinationCount["C"] != 0 {
		t.Errorf("DestinationCount = %v", s.DestinationCount)
	}
}

func TestSummarize_Quantum(t *testing.T) {
	// GIVEN four qubits, one lost, a swap and two key exchanges
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelAll})
	for i := 0; i < 4; i++ {
		st.RecordQubit(QubitRecord{QubitID: int64(i), Lost: i == 0})
	}
	st.RecordSwap(SwapRecord{Repeater: "R", Peers: [2]string{"A", "B"}})
	st.RecordKey(KeyRecord{Adapter: "AD1", Peer: "AD2", QBER: 0.1})
	st.RecordKey(KeyRecord{Adapter: "AD3", Peer: "AD4", QBER: 0.3})

	// WHEN summarized
	s := Summarize(st)

	// THEN quantum statistics are aggregated
	if s.QubitsSent != 4 || s.QubitsLost != 1 {
		t.Errorf("qubits = %d sent / %d lost, want 4/1", s.QubitsSent, s.QubitsLost)
	}
	if math.Abs(s.LossRate-0.25) > 1e-9 {
		t.Errorf("LossRate = %v, want 0.25", s.LossRate)
	}
	if s.Swaps != 1 || s.KeyExchanges != 2 {
		t.Errorf("swaps/keys = %d/%d, want 1/2", s.Swaps, s.KeyExchanges)
	}
	if math.Abs(s.MeanQBER-0.2) > 1e-9 {
		t.Errorf("MeanQBER = %v, want 0.2", s.MeanQBER)
	}
}
