package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalPackets     int
	DeliveredCount   int
	FailedCount      int
	SecuredCount     int
	MeanHops         float64
	MaxHops          int
	QubitsSent       int
	QubitsLost       int
	LossRate         float64
	Swaps            int
	KeyExchanges     int
	MeanQBER         float64
	DestinationCount map[string]int // destination node → packets delivered
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DestinationCount: make(map[string]int),
	}
	if st == nil {
		return summary
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	summary.TotalPackets = len(st.Packets)
	totalHops := 0
	for _, p := range st.Packets {
		if !p.Delivered {
			summary.FailedCount++
			continue
		}
		summary.DeliveredCount++
		summary.DestinationCount[p.To]++
		if p.Secured {
			summary.SecuredCount++
		}
		totalHops += len(p.Hops)
		if len(p.Hops) > summary.MaxHops {
			summary.MaxHops = len(p.Hops)
		}
	}
	if summary.DeliveredCount > 0 {
		summary.MeanHops = float64(totalHops) / float64(summary.DeliveredCount)
	}

	summary.QubitsSent = len(st.Qubits)
	for _, q := range st.Qubits {
		if q.Lost {
			summary.QubitsLost++
		}
	}
	if summary.QubitsSent > 0 {
		summary.LossRate = float64(summary.QubitsLost) / float64(summary.QubitsSent)
	}

	summary.Swaps = len(st.Swaps)
	summary.KeyExchanges = len(st.Keys)
	if len(st.Keys) > 0 {
		total := 0.0
		for _, k := range st.Keys {
			total += k.QBER
		}
		summary.MeanQBER = total / float64(len(st.Keys))
	}

	return summary
}
