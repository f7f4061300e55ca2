package topology

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim"
)

// BuildError reports the entity whose construction failed, together with
// its enclosing zone and network.
type BuildError struct {
	Zone    string
	Network string
	Entity  string
	Err     error
}

func (e *BuildError) Error() string {
	var where []string
	if e.Zone != "" {
		where = append(where, "zone "+e.Zone)
	}
	if e.Network != "" {
		where = append(where, "network "+e.Network)
	}
	if e.Entity != "" {
		where = append(where, e.Entity)
	}
	if len(where) == 0 {
		return fmt.Sprintf("building topology: %v", e.Err)
	}
	return fmt.Sprintf("building topology (%s): %v", strings.Join(where, ", "), e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Options configures the World produced by Build.
type Options struct {
	Seed     int64
	Observer sim.Observer
	// RunID overrides the generated run identifier.
	RunID string
	// MaxHops bounds classical forwarding; zero keeps the World default.
	MaxHops int
	// BufferCapacity bounds each quantum memory; zero means unbounded.
	BufferCapacity int
	OverflowPolicy sim.OverflowPolicy
	// QKDKeyLength is the number of qubits sent per key exchange; zero keeps
	// the World default.
	QKDKeyLength int
	// BellMeasurer, if set, replaces the random default for every repeater.
	BellMeasurer sim.BellMeasurer
}

func (o Options) worldOptions() []sim.Option {
	opts := []sim.Option{sim.WithSeed(o.Seed)}
	if o.Observer != nil {
		opts = append(opts, sim.WithObserver(o.Observer))
	}
	if o.RunID != "" {
		opts = append(opts, sim.WithRunID(o.RunID))
	}
	if o.MaxHops > 0 {
		opts = append(opts, sim.WithMaxHops(o.MaxHops))
	}
	if o.BufferCapacity > 0 {
		opts = append(opts, sim.WithBufferCapacity(o.BufferCapacity, o.OverflowPolicy))
	}
	if o.QKDKeyLength > 0 {
		opts = append(opts, sim.WithQKDKeyLength(o.QKDKeyLength))
	}
	if o.BellMeasurer != nil {
		opts = append(opts, sim.WithBellMeasurer(o.BellMeasurer))
	}
	return opts
}

// Build validates desc and constructs a finalized World from it. Zones,
// networks and hosts are created first, then every connection, then the
// zone adapters, so that connections and adapters may reference nodes
// declared anywhere in the description.
func Build(desc *Description, opts Options) (*sim.World, error) {
	if desc == nil {
		return nil, &BuildError{Err: fmt.Errorf("nil description")}
	}
	if err := desc.Validate(); err != nil {
		return nil, &BuildError{Err: err}
	}
	w := sim.NewWorld(desc.Name, desc.Size, opts.worldOptions()...)

	zoneIDs := make([]sim.ZoneID, len(desc.Zones))
	netIDs := make([][]sim.NetworkID, len(desc.Zones))
	for zi, z := range desc.Zones {
		zt, _ := sim.ParseZoneType(z.Type)
		zoneIDs[zi] = w.AddZone(z.Name, zt, z.Size, z.Position)
		netIDs[zi] = make([]sim.NetworkID, len(z.Networks))
		for ni, n := range z.Networks {
			nt, _ := sim.ParseNetworkType(n.Type)
			id, err := w.AddNetwork(zoneIDs[zi], n.Name, n.Address, nt, n.Location)
			if err != nil {
				return nil, &BuildError{Zone: z.Name, Network: n.Name, Err: err}
			}
			netIDs[zi][ni] = id
			for _, h := range n.Hosts {
				if err := addHost(w, id, h); err != nil {
					return nil, &BuildError{Zone: z.Name, Network: n.Name, Entity: "node " + h.Name, Err: err}
				}
			}
		}
	}

	for zi, z := range desc.Zones {
		for ni, n := range z.Networks {
			for _, c := range n.Connections {
				if _, err := w.Connect(netIDs[zi][ni], connectionSpec(c)); err != nil {
					return nil, &BuildError{
						Zone: z.Name, Network: n.Name,
						Entity: fmt.Sprintf("connection %s-%s", c.From, c.To), Err: err,
					}
				}
			}
		}
	}

	for zi, z := range desc.Zones {
		for _, a := range z.Adapters {
			if _, err := w.AddBridge(zoneIDs[zi], bridgeSpec(a)); err != nil {
				return nil, &BuildError{Zone: z.Name, Entity: "adapter " + a.Name, Err: err}
			}
		}
	}

	if err := w.Finalize(); err != nil {
		return nil, &BuildError{Err: err}
	}
	logrus.Debugf("Built topology %q: %d zones, %d networks, %d nodes, %d channels",
		desc.Name, len(w.Zones()), len(w.Networks()), len(w.Nodes()), len(w.Channels()))
	return w, nil
}

func addHost(w *sim.World, network sim.NetworkID, h Host) error {
	t, _ := sim.ParseNodeType(h.Type)
	_, err := w.AddNode(network, sim.NodeSpec{
		Name:             h.Name,
		Type:             t,
		Address:          h.Address,
		Location:         h.Location,
		Gateway:          h.Gateway,
		RepeaterProtocol: h.RepeaterProtocol,
		NumMemories:      h.NumMemories,
		MemoryFidelity:   h.MemoryFidelity,
	})
	return err
}

func connectionSpec(c Connection) sim.ConnectionSpec {
	return sim.ConnectionSpec{
		From:       c.From,
		To:         c.To,
		Name:       c.Name,
		Bandwidth:  c.Bandwidth,
		Latency:    c.Latency,
		Length:     c.Length,
		LossPerKm:  c.LossPerKm,
		NoiseModel: sim.ParseNoiseModel(c.NoiseModel),
	}
}

func bridgeSpec(a Adapter) sim.BridgeSpec {
	t, _ := sim.ParseNodeType(a.Type)
	return sim.BridgeSpec{
		Name:             a.Name,
		Type:             t,
		Address:          a.Address,
		Location:         a.Location,
		ClassicalHost:    a.ClassicalHost,
		ClassicalNetwork: a.ClassicalNetwork,
		QuantumHost:      a.QuantumHost,
		QuantumNetwork:   a.QuantumNetwork,
	}
}
