package sim

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxHops bounds the number of intermediate nodes a packet may visit.
const DefaultMaxHops = 64

// DefaultQKDKeyLength is the number of BB84 qubits sent per key exchange.
const DefaultQKDKeyLength = 128

// Zone is a spatial region owning networks and bridge nodes.
type Zone struct {
	ID       ZoneID
	Name     string
	Type     ZoneType
	Size     [2]float64
	Position [2]float64
	Networks []NetworkID
	Adapters []NodeID
}

// Network is a single-technology segment inside a Zone.
type Network struct {
	ID       NetworkID
	Name     string
	Address  string
	Type     NetworkType
	Location [2]float64
	Zone     ZoneID
	Hosts    []NodeID
	Channels []ChannelID
}

// World owns every entity of a simulation. Entities refer to each other by
// ID; the arenas are append-only and become read-only after Finalize.
type World struct {
	Name  string
	Size  [2]float64
	RunID string

	zones    []*Zone
	networks []*Network
	nodes    []Node
	channels []*QuantumChannel
	byName   map[string]NodeID

	rng       *PartitionedRNG
	observer  Observer
	maxHops   int
	bufCap    int
	bufPolicy OverflowPolicy
	keyLength int
	measurer  func(NodeID) BellMeasurer

	finalized bool
	running   atomic.Bool
	clock     atomic.Int64
	packetSeq atomic.Int64
	qubitSeq  atomic.Int64
}

// Option configures a World at construction.
type Option func(*World)

// WithObserver installs the event observer.
func WithObserver(o Observer) Option {
	return func(w *World) { w.observer = o }
}

// WithSeed sets the master seed of every random stream.
func WithSeed(seed int64) Option {
	return func(w *World) { w.rng = NewPartitionedRNG(NewSimulationKey(seed)) }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(w *World) {
		if id != "" {
			w.RunID = id
		}
	}
}

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(w *World) {
		if n > 0 {
			w.maxHops = n
		}
	}
}

// WithBufferCapacity bounds every quantum node's qubit buffer.
func WithBufferCapacity(capacity int, policy OverflowPolicy) Option {
	return func(w *World) {
		w.bufCap = capacity
		w.bufPolicy = policy
	}
}

// WithQKDKeyLength sets the number of qubits sent per key exchange.
func WithQKDKeyLength(n int) Option {
	return func(w *World) {
		if n > 0 {
			w.keyLength = n
		}
	}
}

// WithBellMeasurer replaces the random Bell measurement of every repeater.
func WithBellMeasurer(m BellMeasurer) Option {
	return func(w *World) { w.measurer = func(NodeID) BellMeasurer { return m } }
}

// NewWorld creates an empty World.
func NewWorld(name string, size [2]float64, opts ...Option) *World {
	w := &World{
		Name:      name,
		Size:      size,
		RunID:     uuid.NewString(),
		byName:    make(map[string]NodeID),
		rng:       NewPartitionedRNG(NewSimulationKey(0)),
		maxHops:   DefaultMaxHops,
		bufPolicy: OverflowDropOldest,
		keyLength: DefaultQKDKeyLength,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.measurer == nil {
		w.measurer = func(id NodeID) BellMeasurer {
			return NewRandomBellMeasurer(w.rng.ForSubsystem(SubsystemRepeater(id)))
		}
	}
	return w
}

// AddZone registers a zone.
func (w *World) AddZone(name string, typ ZoneType, size, position [2]float64) ZoneID {
	id := ZoneID(len(w.zones))
	w.zones = append(w.zones, &Zone{ID: id, Name: name, Type: typ, Size: size, Position: position})
	return id
}

// AddNetwork registers a network inside zone.
func (w *World) AddNetwork(zone ZoneID, name, address string, typ NetworkType, location [2]float64) (NetworkID, error) {
	z := w.Zone(zone)
	if z == nil {
		return NoNetwork, fmt.Errorf("network %q: unknown zone %d", name, zone)
	}
	if !validNetworkTypes[typ] {
		return NoNetwork, fmt.Errorf("network %q: unknown network type %q", name, typ)
	}
	id := NetworkID(len(w.networks))
	w.networks = append(w.networks, &Network{
		ID: id, Name: name, Address: address, Type: typ, Location: location, Zone: zone,
	})
	z.Networks = append(z.Networks, id)
	return id, nil
}

// NodeSpec describes a network member.
type NodeSpec struct {
	Name     string
	Type     NodeType
	Address  string
	Location [2]float64
	// Gateway names the default gateway of a classical host. Empty means
	// the first forwarding neighbor.
	Gateway string

	RepeaterProtocol string
	NumMemories      int
	MemoryFidelity   float64
}

// AddNode attaches a host, router, exchange or repeater to network.
func (w *World) AddNode(network NetworkID, spec NodeSpec) (NodeID, error) {
	nw := w.Network(network)
	if nw == nil {
		return NoNode, fmt.Errorf("node %q: unknown network %d", spec.Name, network)
	}
	required, ok := requiredNetwork(spec.Type)
	if !ok || required != nw.Type {
		return NoNode, &UnsupportedNetworkError{
			Network: nw.Name, NetworkType: nw.Type, Node: spec.Name, NodeType: spec.Type,
		}
	}
	if err := w.claimName(spec.Name); err != nil {
		return NoNode, err
	}

	id := NodeID(len(w.nodes))
	base := NodeBase{
		ID: id, Name: spec.Name, Type: spec.Type, Location: spec.Location,
		Address: spec.Address, Network: network, Zone: nw.Zone,
	}
	var n Node
	switch spec.Type {
	case NodeClassicalHost:
		h := &ClassicalHost{NodeBase: base, classicalPort: newClassicalPort()}
		h.gatewayName = spec.Gateway
		n = h
	case NodeClassicalRouter:
		n = &ClassicalRouter{NodeBase: base, classicalPort: newClassicalPort()}
	case NodeInternetExchange:
		n = &InternetExchange{NodeBase: base, classicalPort: newClassicalPort()}
	case NodeQuantumHost:
		n = &QuantumHost{NodeBase: base, quantumPort: w.newQuantumPort()}
	case NodeQuantumRepeater:
		protocol := spec.RepeaterProtocol
		if protocol == "" {
			protocol = ProtocolSimpleSwap
		}
		n = &QuantumRepeater{
			NodeBase:       base,
			quantumPort:    w.newQuantumPort(),
			Protocol:       protocol,
			NumMemories:    spec.NumMemories,
			MemoryFidelity: spec.MemoryFidelity,
		}
	}
	w.insert(n)
	nw.Hosts = append(nw.Hosts, id)
	return id, nil
}

// BridgeSpec describes an adapter or converter. Both sides are given by name
// and must already exist.
type BridgeSpec struct {
	Name             string
	Type             NodeType
	Address          string
	Location         [2]float64
	ClassicalHost    string
	ClassicalNetwork string
	QuantumHost      string
	QuantumNetwork   string
}

// AddBridge declares an adapter or converter on zone. The classical side is
// linked to its classical host in both directions.
func (w *World) AddBridge(zone ZoneID, spec BridgeSpec) (NodeID, error) {
	z := w.Zone(zone)
	if z == nil {
		return NoNode, fmt.Errorf("bridge %q: unknown zone %d", spec.Name, zone)
	}
	if !spec.Type.IsBridge() {
		return NoNode, fmt.Errorf("bridge %q: %s is not a bridge type", spec.Name, spec.Type)
	}
	cnet, ok := w.networkByName(spec.ClassicalNetwork)
	if !ok {
		return NoNode, fmt.Errorf("bridge %q: unknown classical network %q", spec.Name, spec.ClassicalNetwork)
	}
	if cnet.Type != ClassicalNetwork {
		return NoNode, &UnsupportedNetworkError{
			Network: cnet.Name, NetworkType: cnet.Type, Node: spec.Name, NodeType: spec.Type,
		}
	}
	qnet, ok := w.networkByName(spec.QuantumNetwork)
	if !ok {
		return NoNode, fmt.Errorf("bridge %q: unknown quantum network %q", spec.Name, spec.QuantumNetwork)
	}
	if qnet.Type != QuantumNetwork {
		return NoNode, &UnsupportedNetworkError{
			Network: qnet.Name, NetworkType: qnet.Type, Node: spec.Name, NodeType: spec.Type,
		}
	}

	var missing []string
	chID, chOK := w.byName[spec.ClassicalHost]
	if !chOK {
		missing = append(missing, spec.ClassicalHost)
	}
	qhID, qhOK := w.byName[spec.QuantumHost]
	if !qhOK {
		missing = append(missing, spec.QuantumHost)
	}
	if len(missing) > 0 {
		return NoNode, &NodesNotFoundError{Names: missing}
	}
	classical, ok := w.nodes[chID].(classicalNode)
	if !ok || nodeDomain(classical) != domainClassical {
		return NoNode, &UnsupportedNetworkError{
			Network: cnet.Name, NetworkType: cnet.Type, Node: spec.ClassicalHost, NodeType: w.nodes[chID].Base().Type,
		}
	}
	if _, ok := w.nodes[qhID].(*QuantumHost); !ok {
		return NoNode, &UnsupportedNetworkError{
			Network: qnet.Name, NetworkType: qnet.Type, Node: spec.QuantumHost, NodeType: w.nodes[qhID].Base().Type,
		}
	}
	if err := w.claimName(spec.Name); err != nil {
		return NoNode, err
	}

	id := NodeID(len(w.nodes))
	base := NodeBase{
		ID: id, Name: spec.Name, Type: spec.Type, Location: spec.Location,
		Address: spec.Address, Network: cnet.ID, Zone: zone,
	}
	var n bridgeNode
	switch spec.Type {
	case NodeQuantumAdapter:
		n = &QuantumAdapter{
			NodeBase: base, classicalPort: newClassicalPort(),
			bridgeState: bridgeState{
				ClassicalHost: chID, ClassicalNetwork: cnet.ID,
				QuantumHost: qhID, QuantumNetwork: qnet.ID,
				pair: NoNode,
			},
			keys: make(map[NodeID][]byte),
			rng:  w.rng.ForSubsystem(SubsystemAdapter(id)),
		}
	case NodeC2QConverter:
		n = &C2QConverter{
			NodeBase: base, classicalPort: newClassicalPort(),
			bridgeState: bridgeState{
				ClassicalHost: chID, ClassicalNetwork: cnet.ID,
				QuantumHost: qhID, QuantumNetwork: qnet.ID,
				pair: NoNode,
			},
		}
	case NodeQ2CConverter:
		n = &Q2CConverter{
			NodeBase: base, classicalPort: newClassicalPort(),
			bridgeState: bridgeState{
				ClassicalHost: chID, ClassicalNetwork: cnet.ID,
				QuantumHost: qhID, QuantumNetwork: qnet.ID,
				pair: NoNode,
			},
		}
	}
	w.insert(n)
	z.Adapters = append(z.Adapters, id)
	w.link(classical, n, spec.Name, 0, 0, 0)
	return id, nil
}

// ConnectionSpec describes a link declared on a network.
type ConnectionSpec struct {
	From       string
	To         string
	Name       string
	Bandwidth  int64
	Latency    int64
	Length     float64
	LossPerKm  float64
	NoiseModel NoiseModel
}

// Connect declares a connection on network. Classical networks get a
// forwarding buffer in each direction; quantum networks get one channel.
// The returned ChannelID is NoChannel for classical connections.
func (w *World) Connect(network NetworkID, spec ConnectionSpec) (ChannelID, error) {
	nw := w.Network(network)
	if nw == nil {
		return NoChannel, fmt.Errorf("connection %q: unknown network %d", spec.Name, network)
	}
	var missing []string
	from, okFrom := w.byName[spec.From]
	if !okFrom {
		missing = append(missing, spec.From)
	}
	to, okTo := w.byName[spec.To]
	if !okTo {
		missing = append(missing, spec.To)
	}
	if len(missing) > 0 {
		return NoChannel, &NodesNotFoundError{Names: missing}
	}

	if spec.LossPerKm < 0 || spec.LossPerKm > 1 {
		return NoChannel, fmt.Errorf("connection %s-%s: loss_per_km must be in [0, 1], got %g",
			spec.From, spec.To, spec.LossPerKm)
	}

	switch nw.Type {
	case ClassicalNetwork:
		a, okA := w.nodes[from].(classicalNode)
		b, okB := w.nodes[to].(classicalNode)
		if !okA || !okB {
			return NoChannel, &UnsupportedNetworkError{
				Network: nw.Name, NetworkType: nw.Type, Node: spec.Name,
			}
		}
		w.link(a, b, spec.Name, spec.Bandwidth, spec.Latency, spec.Length)
		return NoChannel, nil

	default:
		a, okA := w.nodes[from].(quantumNode)
		b, okB := w.nodes[to].(quantumNode)
		if !okA || !okB {
			return NoChannel, &UnsupportedNetworkError{
				Network: nw.Name, NetworkType: nw.Type, Node: spec.Name,
			}
		}
		id := ChannelID(len(w.channels))
		noise := spec.NoiseModel
		if noise == "" {
			noise = NoiseDefault
		}
		c := &QuantumChannel{
			ID: id, Name: spec.Name, Node1: from, Node2: to,
			Length: spec.Length, LossPerKm: spec.LossPerKm, NoiseModel: noise,
			label: fmt.Sprintf("%s <~~~> %s", spec.From, spec.To),
			rng:   w.rng.ForSubsystem(SubsystemChannel(id)),
		}
		w.channels = append(w.channels, c)
		nw.Channels = append(nw.Channels, id)
		for _, qn := range []quantumNode{a, b} {
			p := qn.qport()
			p.channels = append(p.channels, id)
			if r, ok := qn.(*QuantumRepeater); ok {
				r.addChannel(id)
			}
		}
		return id, nil
	}
}

// Finalize pairs bridges, resolves gateways and computes forwarding tables.
// No entity may be added afterwards.
func (w *World) Finalize() error {
	if w.finalized {
		return nil
	}
	if err := w.pairBridges(); err != nil {
		return err
	}
	if err := w.resolveGateways(); err != nil {
		return err
	}
	w.buildRoutes()
	for _, n := range w.nodes {
		if r, ok := n.(*QuantumRepeater); ok {
			r.measurer = w.measurer(r.ID)
		}
	}
	w.finalized = true
	logrus.Infof("world %q finalized: %d zones, %d networks, %d nodes, %d channels",
		w.Name, len(w.zones), len(w.networks), len(w.nodes), len(w.channels))
	return nil
}

// pairBridges pairs adapters that share a quantum network, in declaration
// order, and each C2Q converter with a Q2C converter on the same network.
func (w *World) pairBridges() error {
	adapters := make(map[NetworkID][]*QuantumAdapter)
	c2q := make(map[NetworkID][]*C2QConverter)
	q2c := make(map[NetworkID][]*Q2CConverter)
	var order []NetworkID
	seen := make(map[NetworkID]bool)
	for _, n := range w.nodes {
		b, ok := n.(bridgeNode)
		if !ok {
			continue
		}
		qn := b.bridge().QuantumNetwork
		if !seen[qn] {
			seen[qn] = true
			order = append(order, qn)
		}
		switch v := n.(type) {
		case *QuantumAdapter:
			adapters[qn] = append(adapters[qn], v)
		case *C2QConverter:
			c2q[qn] = append(c2q[qn], v)
		case *Q2CConverter:
			q2c[qn] = append(q2c[qn], v)
		}
	}
	for _, qn := range order {
		list := adapters[qn]
		for i := 0; i+1 < len(list); i += 2 {
			if err := list[i].SetPair(list[i+1]); err != nil {
				return err
			}
		}
		if len(list)%2 == 1 {
			last := list[len(list)-1]
			if len(list) > 2 {
				// the odd adapter out can only be offered an already paired peer
				return &PairAdapterAlreadyExistsError{Adapter: list[0].Name, Pair: list[1].Name}
			}
			logrus.Warnf("adapter %s has no pair on %s", last.Name, w.networks[qn].Name)
		}
		for i := 0; i < len(c2q[qn]) && i < len(q2c[qn]); i++ {
			c2q[qn][i].setPair(q2c[qn][i].ID, q2c[qn][i].Name)
			q2c[qn][i].setPair(c2q[qn][i].ID, c2q[qn][i].Name)
		}
	}
	return nil
}

func (w *World) resolveGateways() error {
	for _, n := range w.nodes {
		h, ok := n.(*ClassicalHost)
		if !ok {
			continue
		}
		if h.gatewayName != "" {
			gw, ok := w.byName[h.gatewayName]
			if !ok {
				return &NodesNotFoundError{Names: []string{h.gatewayName}}
			}
			if _, linked := h.links[gw]; !linked {
				return &NotConnectedError{From: h.Name, To: h.gatewayName}
			}
			h.gateway = gw
			continue
		}
		for _, peer := range sortedPeers(h.links) {
			if isForwarder(w.nodes[peer]) {
				h.gateway = peer
				break
			}
		}
	}
	return nil
}

// edges returns the classical-plane neighbors of n: its links plus, for
// bridges, the pair across the quantum segment. A Q2C converter never
// crosses back to its C2Q sender.
func (w *World) edges(n classicalNode) []NodeID {
	peers := sortedPeers(n.port().links)
	switch b := n.(type) {
	case *QuantumAdapter:
		if p := b.Pair(); p != NoNode {
			peers = append(peers, p)
		}
	case *C2QConverter:
		if p := b.Pair(); p != NoNode {
			peers = append(peers, p)
		}
	}
	return peers
}

// buildRoutes fills the forwarding table of every forwarder by breadth-first
// search. Only forwarders are expanded, so single-homed hosts terminate
// paths and rely on their default gateway; multi-homed hosts get a table
// like any router.
func (w *World) buildRoutes() {
	for _, n := range w.nodes {
		src, ok := n.(classicalNode)
		if !ok || !isForwarder(src) {
			continue
		}
		first := make(map[NodeID]NodeID)
		queue := []NodeID{}
		for _, peer := range w.edges(src) {
			if _, seen := first[peer]; seen || peer == src.Base().ID {
				continue
			}
			first[peer] = peer
			queue = append(queue, peer)
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cn, ok := w.nodes[cur].(classicalNode)
			if !ok || !isForwarder(cn) {
				continue
			}
			for _, next := range w.edges(cn) {
				if _, seen := first[next]; seen || next == src.Base().ID {
					continue
				}
				first[next] = first[cur]
				queue = append(queue, next)
			}
		}
		src.port().routes = first
	}
}

func sortedPeers(links map[NodeID]*Link) []NodeID {
	peers := make([]NodeID, 0, len(links))
	for id := range links {
		peers = append(peers, id)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

func (w *World) link(a, b classicalNode, name string, bandwidth, latency int64, length float64) {
	aid, bid := a.Base().ID, b.Base().ID
	a.port().links[bid] = &Link{From: aid, To: bid, Name: name, Bandwidth: bandwidth, Latency: latency, Length: length}
	b.port().links[aid] = &Link{From: bid, To: aid, Name: name, Bandwidth: bandwidth, Latency: latency, Length: length}
}

func (w *World) newQuantumPort() quantumPort {
	return quantumPort{memory: NewQuantumMemory(w.bufCap, w.bufPolicy)}
}

func (w *World) claimName(name string) error {
	if name == "" {
		return errors.New("node name must not be empty")
	}
	if _, dup := w.byName[name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	return nil
}

func (w *World) insert(n Node) {
	w.nodes = append(w.nodes, n)
	w.byName[n.Base().Name] = n.Base().ID
}

func (w *World) networkByName(name string) (*Network, bool) {
	for _, nw := range w.networks {
		if nw.Name == name {
			return nw, true
		}
	}
	return nil, false
}

// === Accessors ===

// Node returns the node with the given ID, or nil.
func (w *World) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(w.nodes) {
		return nil
	}
	return w.nodes[id]
}

func (w *World) nodeName(id NodeID) string {
	if n := w.Node(id); n != nil {
		return n.Base().Name
	}
	return fmt.Sprintf("<node %d>", id)
}

// Resolve looks a node up by name.
func (w *World) Resolve(name string) (NodeID, bool) {
	id, ok := w.byName[name]
	return id, ok
}

// Nodes returns every node in declaration order.
func (w *World) Nodes() []Node { return append([]Node(nil), w.nodes...) }

// Zone returns the zone with the given ID, or nil.
func (w *World) Zone(id ZoneID) *Zone {
	if id < 0 || int(id) >= len(w.zones) {
		return nil
	}
	return w.zones[id]
}

// Zones returns every zone in declaration order.
func (w *World) Zones() []*Zone { return append([]*Zone(nil), w.zones...) }

// Network returns the network with the given ID, or nil.
func (w *World) Network(id NetworkID) *Network {
	if id < 0 || int(id) >= len(w.networks) {
		return nil
	}
	return w.networks[id]
}

// Networks returns every network in declaration order.
func (w *World) Networks() []*Network { return append([]*Network(nil), w.networks...) }

// Channel returns the channel with the given ID, or nil.
func (w *World) Channel(id ChannelID) *QuantumChannel {
	if id < 0 || int(id) >= len(w.channels) {
		return nil
	}
	return w.channels[id]
}

// Channels returns every quantum channel in declaration order.
func (w *World) Channels() []*QuantumChannel { return append([]*QuantumChannel(nil), w.channels...) }

// ChannelBetween returns the first channel joining a and b.
func (w *World) ChannelBetween(a, b NodeID) (ChannelID, error) {
	for _, c := range w.channels {
		if (c.Node1 == a && c.Node2 == b) || (c.Node1 == b && c.Node2 == a) {
			return c.ID, nil
		}
	}
	return NoChannel, &NotConnectedError{From: w.nodeName(a), To: w.nodeName(b)}
}

// Seed returns the master seed.
func (w *World) Seed() int64 { return int64(w.rng.Key()) }

// IsRunning reports whether a driver is currently executing commands.
func (w *World) IsRunning() bool { return w.running.Load() }

// SetRunning flips the running flag.
func (w *World) SetRunning(v bool) { w.running.Store(v) }

// Stop requests the driver to halt after the current command.
func (w *World) Stop() { w.running.Store(false) }

// Clock returns the current logical tick.
func (w *World) Clock() int64 { return w.clock.Load() }

// SetClock moves the logical clock to tick.
func (w *World) SetClock(tick int64) { w.clock.Store(tick) }

// AdvanceClock adds d ticks and returns the new value.
func (w *World) AdvanceClock(d int64) int64 { return w.clock.Add(d) }

func (w *World) nextPacketID() int64 { return w.packetSeq.Add(1) }

// NewQubit prepares a fresh qubit with a world-unique ID.
func (w *World) NewQubit(bit int, basis Basis) Qubit {
	return NewQubit(w.qubitSeq.Add(1), bit, basis)
}
