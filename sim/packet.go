package sim

import "fmt"

// PacketType classifies a classical packet.
type PacketType string

const (
	PacketData PacketType = "data"
	PacketQKD  PacketType = "qkd"
	PacketAck  PacketType = "ack"
)

// DefaultProtocol is the transport label stamped on new packets.
const DefaultProtocol = "tcp"

// ClassicDataPacket is a classical message moving hop by hop. Hops only
// grows: Hops[0] is always From.
type ClassicDataPacket struct {
	ID       int64
	From     NodeID
	To       NodeID
	NextHop  NodeID
	Hops     []NodeID
	Data     []byte
	Type     PacketType
	Protocol string
	// Time is the tick at which the packet was created.
	Time int64
	// Latency accumulates the latency of every link traversed.
	Latency int64
	// Destination is the final target when To is an intermediate hop.
	Destination NodeID
	// Secured is set once the payload crossed a QKD-protected bridge.
	Secured bool
}

// PacketOption customizes NewPacket.
type PacketOption func(*ClassicDataPacket)

// WithProtocol overrides DefaultProtocol.
func WithProtocol(p string) PacketOption {
	return func(pk *ClassicDataPacket) { pk.Protocol = p }
}

// WithDestination sets the final destination of a packet whose To is an
// intermediate hop.
func WithDestination(id NodeID) PacketOption {
	return func(pk *ClassicDataPacket) { pk.Destination = id }
}

// WithTime stamps the creation tick.
func WithTime(tick int64) PacketOption {
	return func(pk *ClassicDataPacket) { pk.Time = tick }
}

// NewPacket creates a packet at from, addressed to to. The payload is
// copied.
func NewPacket(from, to NodeID, data []byte, typ PacketType, opts ...PacketOption) *ClassicDataPacket {
	if typ == "" {
		typ = PacketData
	}
	p := &ClassicDataPacket{
		From:        from,
		To:          to,
		NextHop:     to,
		Hops:        []NodeID{from},
		Data:        append([]byte(nil), data...),
		Type:        typ,
		Protocol:    DefaultProtocol,
		Destination: NoNode,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AppendHop records that the packet reached node.
func (p *ClassicDataPacket) AppendHop(node NodeID) {
	p.Hops = append(p.Hops, node)
}

// FinalDestination is Destination when set, To otherwise.
func (p *ClassicDataPacket) FinalDestination() NodeID {
	if p.Destination != NoNode {
		return p.Destination
	}
	return p.To
}

func (p *ClassicDataPacket) String() string {
	return fmt.Sprintf("Packet: (ID: %d, From: %d, To: %d, Hops: %v)", p.ID, p.From, p.To, p.Hops)
}

// ToMap serializes the packet with node names resolved against w.
func (p *ClassicDataPacket) ToMap(w *World) map[string]any {
	hops := make([]string, len(p.Hops))
	for i, h := range p.Hops {
		hops[i] = w.nodeName(h)
	}
	m := map[string]any{
		"id":       p.ID,
		"from":     w.nodeName(p.From),
		"to":       w.nodeName(p.To),
		"next_hop": w.nodeName(p.NextHop),
		"hops":     hops,
		"data":     string(p.Data),
		"type":     string(p.Type),
		"protocol": p.Protocol,
		"time":     p.Time,
		"latency":  p.Latency,
		"secured":  p.Secured,
	}
	if p.Destination != NoNode {
		m["destination"] = w.nodeName(p.Destination)
	}
	return m
}
