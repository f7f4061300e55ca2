package sim

import "github.com/sirupsen/logrus"

// SendData creates a data packet at from and walks it to to, synchronously.
// The returned packet carries the full hop list (the destination itself is
// not appended) even when an error interrupts the walk.
func (w *World) SendData(from, to NodeID, data []byte) (*ClassicDataPacket, error) {
	p := NewPacket(from, to, data, PacketData, WithTime(w.Clock()))
	return p, w.SendPacket(p)
}

// SendPacket walks an already built packet from its source to its final
// destination: Destination when set, To otherwise. Packets without an ID
// are numbered here.
func (w *World) SendPacket(p *ClassicDataPacket) error {
	from, to := p.From, p.FinalDestination()
	src, err := w.classicalEndpoint(from)
	if err != nil {
		return err
	}
	if _, err := w.classicalEndpoint(to); err != nil {
		return err
	}

	if p.ID == 0 {
		p.ID = w.nextPacketID()
	}
	w.Emit(DataSent, from, LevelInfo, map[string]any{
		"packet_id": p.ID,
		"to":        w.nodeName(to),
		"data":      string(p.Data),
	})

	cur := src
	for {
		id := cur.Base().ID
		if id != from {
			if len(p.Hops)-1 >= w.maxHops {
				return &DefaultGatewayNotFoundError{Node: cur.Base().Name, Destination: w.nodeName(to)}
			}
			p.AppendHop(id)
		}

		next, ok := cur.port().nextHop(to)
		if !ok {
			return &DefaultGatewayNotFoundError{Node: cur.Base().Name, Destination: w.nodeName(to)}
		}
		p.NextHop = next

		if b, isBridge := cur.(bridgeNode); isBridge && next == b.bridge().Pair() {
			if err := w.crossBridge(p, b, next); err != nil {
				return err
			}
		} else {
			link := cur.port().Link(next)
			if link == nil {
				return &BufferNotAssignedError{From: cur.Base().Name, To: w.nodeName(next)}
			}
			link.forwarded.Add(1)
			p.Latency += link.Latency
			if relaysTraffic(cur, from) {
				w.Emit(PacketRouted, id, LevelInfo, map[string]any{
					"packet_id":   p.ID,
					"next_hop":    w.nodeName(next),
					"destination": w.nodeName(to),
				})
			}
		}

		if next == to {
			w.arrive(p, to)
			return nil
		}
		nn, ok := w.Node(next).(classicalNode)
		if !ok {
			return &BufferNotAssignedError{From: cur.Base().Name, To: w.nodeName(next)}
		}
		cur = nn
	}
}

// relaysTraffic reports whether n emits PACKET_ROUTED when it hands a packet
// on: routers and exchanges always, hosts only when relaying someone else's
// packet.
func relaysTraffic(n classicalNode, from NodeID) bool {
	switch n.(type) {
	case *ClassicalRouter, *InternetExchange:
		return true
	case *ClassicalHost:
		return n.Base().ID != from
	default:
		return false
	}
}

func (w *World) arrive(p *ClassicDataPacket, to NodeID) {
	if h, ok := w.Node(to).(*ClassicalHost); ok {
		h.deliver(p)
	}
	hops := make([]string, len(p.Hops))
	for i, h := range p.Hops {
		hops[i] = w.nodeName(h)
	}
	w.Emit(DataReceived, to, LevelInfo, map[string]any{
		"packet_id": p.ID,
		"from":      w.nodeName(p.From),
		"data":      string(p.Data),
		"hops":      hops,
		"hop_count": len(p.Hops),
		"latency":   p.Latency,
		"secured":   p.Secured,
	})
	logrus.Debugf("packet %d delivered to %s via %v", p.ID, w.nodeName(to), hops)
}

// classicalEndpoint resolves id to a node that can originate or terminate
// classical traffic.
func (w *World) classicalEndpoint(id NodeID) (classicalNode, error) {
	n := w.Node(id)
	if n == nil {
		return nil, &NodesNotFoundError{Names: []string{w.nodeName(id)}}
	}
	cn, ok := n.(classicalNode)
	if !ok {
		b := n.Base()
		nw := w.Network(b.Network)
		return nil, &UnsupportedNetworkError{
			Network: nw.Name, NetworkType: nw.Type, Node: b.Name, NodeType: b.Type,
		}
	}
	return cn, nil
}
