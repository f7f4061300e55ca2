package sim

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Node is the closed sum type over node variants. The unexported marker
// method keeps the set closed to this package; every dispatch on node kind
// is a type switch over the eight variants below.
type Node interface {
	Base() *NodeBase
	isNode()
}

// NodeBase carries the identity shared by every variant. Network and Zone
// are back-references by ID into the owning World.
type NodeBase struct {
	ID       NodeID
	Name     string
	Type     NodeType
	Location [2]float64
	Address  string
	Network  NetworkID
	Zone     ZoneID
}

func (b *NodeBase) Base() *NodeBase { return b }
func (b *NodeBase) isNode()         {}

func (b *NodeBase) String() string {
	return fmt.Sprintf("%s - '%s'", b.Type, b.Name)
}

// Link is the per-peer forwarding buffer of a classical node. Links are
// created in both directions when a classical connection is declared.
type Link struct {
	From      NodeID
	To        NodeID
	Name      string
	Bandwidth int64
	Latency   int64
	Length    float64
	forwarded atomic.Int64
}

// Forwarded counts packets handed to the peer through this link.
func (l *Link) Forwarded() int64 { return l.forwarded.Load() }

// classicalPort is the forwarding state of a classical-capable node.
// It is written while the World is built and read-only afterwards.
type classicalPort struct {
	links   map[NodeID]*Link
	routes  map[NodeID]NodeID // destination -> next hop
	gateway NodeID
	// gatewayName is the explicit gateway requested by the topology; it is
	// resolved when the World is finalized.
	gatewayName string
}

func newClassicalPort() classicalPort {
	return classicalPort{
		links:   make(map[NodeID]*Link),
		routes:  make(map[NodeID]NodeID),
		gateway: NoNode,
	}
}

func (p *classicalPort) port() *classicalPort { return p }

// Link returns the buffer towards peer, or nil.
func (p *classicalPort) Link(peer NodeID) *Link { return p.links[peer] }

// DefaultGateway returns the configured gateway, or NoNode.
func (p *classicalPort) DefaultGateway() NodeID { return p.gateway }

// nextHop picks the neighbor a packet for dest is handed to: a direct link
// wins, then the forwarding table, then the default gateway.
func (p *classicalPort) nextHop(dest NodeID) (NodeID, bool) {
	if _, ok := p.links[dest]; ok {
		return dest, true
	}
	if hop, ok := p.routes[dest]; ok {
		return hop, true
	}
	if p.gateway != NoNode {
		return p.gateway, true
	}
	return NoNode, false
}

// classicalNode is implemented by every variant that takes part in
// classical forwarding, including the classical side of bridges.
type classicalNode interface {
	Node
	port() *classicalPort
}

// Entanglement records a swap outcome reported to a quantum node.
type Entanglement struct {
	Peer     NodeID
	Repeater NodeID
	Result   int
	Tick     int64
}

// quantumPort is the quantum state of a quantum node.
type quantumPort struct {
	memory   *QuantumMemory
	channels []ChannelID

	entMu         sync.Mutex
	entanglements []Entanglement
}

func (q *quantumPort) qport() *quantumPort { return q }

// Memory returns the node's qubit memory.
func (q *quantumPort) Memory() *QuantumMemory { return q.memory }

// Channels returns the IDs of every channel incident on the node.
func (q *quantumPort) Channels() []ChannelID {
	return append([]ChannelID(nil), q.channels...)
}

// Entanglements returns the swap outcomes reported to this node, in order.
func (q *quantumPort) Entanglements() []Entanglement {
	q.entMu.Lock()
	defer q.entMu.Unlock()
	return append([]Entanglement(nil), q.entanglements...)
}

func (q *quantumPort) recordEntanglement(e Entanglement) {
	q.entMu.Lock()
	defer q.entMu.Unlock()
	q.entanglements = append(q.entanglements, e)
}

type quantumNode interface {
	Node
	qport() *quantumPort
}

// bridgeState is shared by adapters and converters: one classical side and
// one quantum side, plus at most one pair.
type bridgeState struct {
	ClassicalHost    NodeID
	ClassicalNetwork NetworkID
	QuantumHost      NodeID
	QuantumNetwork   NetworkID

	mu       sync.Mutex
	pair     NodeID
	pairName string
}

func (b *bridgeState) bridge() *bridgeState { return b }

// Pair returns the bridge on the far side of the quantum segment, or NoNode.
func (b *bridgeState) Pair() NodeID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pair
}

func (b *bridgeState) setPair(id NodeID, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pair, b.pairName = id, name
}

type bridgeNode interface {
	classicalNode
	bridge() *bridgeState
}

// === Variants ===

// ClassicalHost is a classical end system. It keeps every packet delivered
// to it.
type ClassicalHost struct {
	NodeBase
	classicalPort

	mu    sync.Mutex
	inbox []*ClassicDataPacket
}

// Received returns the packets delivered to the host, in arrival order.
func (h *ClassicalHost) Received() []*ClassicDataPacket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*ClassicDataPacket(nil), h.inbox...)
}

func (h *ClassicalHost) deliver(p *ClassicDataPacket) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inbox = append(h.inbox, p)
}

// ClassicalRouter forwards packets using its forwarding table.
type ClassicalRouter struct {
	NodeBase
	classicalPort
}

// InternetExchange is a forwarding node joining several classical networks.
type InternetExchange struct {
	NodeBase
	classicalPort
}

// QuantumHost is a quantum end system.
type QuantumHost struct {
	NodeBase
	quantumPort
}

// QuantumAdapter bridges a classical and a quantum segment. Traffic
// crossing to its pair is protected by a QKD-derived key.
type QuantumAdapter struct {
	NodeBase
	classicalPort
	bridgeState

	keyMu sync.Mutex
	keys  map[NodeID][]byte
	rng   *rand.Rand
}

// C2QConverter is the sending end of a directional bridge.
type C2QConverter struct {
	NodeBase
	classicalPort
	bridgeState
}

// Q2CConverter is the receiving end of a directional bridge.
type Q2CConverter struct {
	NodeBase
	classicalPort
	bridgeState
}

// QuantumRepeater is declared in repeater.go.

// domain classifies variants for attachment and routing rules.
type domain int

const (
	domainClassical domain = iota
	domainQuantum
	domainBridge
)

func nodeDomain(n Node) domain {
	switch n.(type) {
	case *ClassicalHost, *ClassicalRouter, *InternetExchange:
		return domainClassical
	case *QuantumHost, *QuantumRepeater:
		return domainQuantum
	case *QuantumAdapter, *C2QConverter, *Q2CConverter:
		return domainBridge
	default:
		panic(fmt.Sprintf("unknown node variant %T", n))
	}
}

// isForwarder reports whether packets may transit the node. A classical
// host relays only when it has more than one link (for example a LAN link
// and the link to its adapter); a single-homed host is a leaf.
func isForwarder(n Node) bool {
	switch v := n.(type) {
	case *ClassicalRouter, *InternetExchange, *QuantumAdapter, *C2QConverter, *Q2CConverter:
		return true
	case *ClassicalHost:
		return len(v.links) > 1
	case *QuantumHost, *QuantumRepeater:
		return false
	default:
		panic(fmt.Sprintf("unknown node variant %T", n))
	}
}

// requiredNetwork returns the network type a non-bridge node must be
// attached to.
func requiredNetwork(t NodeType) (NetworkType, bool) {
	switch t {
	case NodeClassicalHost, NodeClassicalRouter, NodeInternetExchange:
		return ClassicalNetwork, true
	case NodeQuantumHost, NodeQuantumRepeater:
		return QuantumNetwork, true
	default:
		return "", false
	}
}
