// Package trace provides journey recording for packets and qubits.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// PacketRecord captures the outcome of a single classical packet.
type PacketRecord struct {
	PacketID  int64
	Clock     int64
	From      string
	To        string
	Hops      []string // nodes visited before the destination
	Latency   int64
	Secured   bool
	Delivered bool
	Error     string // set when Delivered is false
}

// HopRecord captures one forwarding decision taken by a router or exchange.
type HopRecord struct {
	PacketID    int64
	Clock       int64
	Node        string
	NextHop     string
	Destination string
}

// QubitRecord captures a single qubit transmission.
type QubitRecord struct {
	QubitID int64
	Clock   int64
	Channel string
	Node    string // receiver when delivered, sender when lost
	Lost    bool
}

// SwapRecord captures an entanglement swap at a repeater.
type SwapRecord struct {
	Clock    int64
	Repeater string
	Peers    [2]string
	Result   int
}

// KeyRecord captures a completed QKD exchange between paired adapters.
type KeyRecord struct {
	Clock     int64
	Adapter   string
	Peer      string
	KeyLength int
	QBER      float64
}
