package topology

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qnetsim/qnetsim/sim"
)

// Load reads and parses a topology file. JSON is accepted as a subset of
// YAML. Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	return Parse(data)
}

// Parse decodes a topology document held in memory.
func Parse(data []byte) (*Description, error) {
	var desc Description
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&desc); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	return &desc, nil
}

// Validate checks the shape of the description: names present and unique,
// enum values recognized, numeric attributes in range. Cross-references
// (connection endpoints, adapter hosts) are resolved by Build.
func (d *Description) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("world name is required")
	}
	if len(d.Zones) == 0 {
		return fmt.Errorf("world %q: at least one zone is required", d.Name)
	}
	names := make(map[string]string)
	claim := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s name is required", kind)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s %q: name already used by a %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}

	for _, z := range d.Zones {
		if err := claim("zone", z.Name); err != nil {
			return err
		}
		if _, err := sim.ParseZoneType(z.Type); err != nil {
			return fmt.Errorf("zone %q: %w", z.Name, err)
		}
		for _, n := range z.Networks {
			if err := claim("network", n.Name); err != nil {
				return fmt.Errorf("zone %q: %w", z.Name, err)
			}
			if _, err := sim.ParseNetworkType(n.Type); err != nil {
				return fmt.Errorf("network %q: %w", n.Name, err)
			}
			for _, h := range n.Hosts {
				if err := claim("node", h.Name); err != nil {
					return fmt.Errorf("network %q: %w", n.Name, err)
				}
				t, err := sim.ParseNodeType(h.Type)
				if err != nil {
					return fmt.Errorf("node %q: %w", h.Name, err)
				}
				if t.IsBridge() {
					return fmt.Errorf("node %q: %s must be declared as a zone adapter", h.Name, t)
				}
				if h.NumMemories < 0 {
					return fmt.Errorf("node %q: num_memories must be non-negative, got %d", h.Name, h.NumMemories)
				}
				if h.MemoryFidelity < 0 || h.MemoryFidelity > 1 {
					return fmt.Errorf("node %q: memory_fidelity must be in [0, 1], got %g", h.Name, h.MemoryFidelity)
				}
			}
			for i, c := range n.Connections {
				if c.From == "" || c.To == "" {
					return fmt.Errorf("network %q: connection %d needs from_node and to_node", n.Name, i)
				}
				if c.Latency < 0 || c.Bandwidth < 0 || c.Length < 0 {
					return fmt.Errorf("network %q: connection %s-%s has a negative attribute", n.Name, c.From, c.To)
				}
				if c.LossPerKm < 0 || c.LossPerKm > 1 {
					return fmt.Errorf("network %q: connection %s-%s: loss_per_km must be in [0, 1], got %g",
						n.Name, c.From, c.To, c.LossPerKm)
				}
			}
		}
		for _, a := range z.Adapters {
			if err := claim("adapter", a.Name); err != nil {
				return fmt.Errorf("zone %q: %w", z.Name, err)
			}
			t, err := sim.ParseNodeType(a.Type)
			if err != nil {
				return fmt.Errorf("adapter %q: %w", a.Name, err)
			}
			if !t.IsBridge() {
				return fmt.Errorf("adapter %q: %s is not an adapter or converter type", a.Name, t)
			}
			if a.ClassicalHost == "" || a.QuantumHost == "" || a.ClassicalNetwork == "" || a.QuantumNetwork == "" {
				return fmt.Errorf("adapter %q: classicalHost, quantumHost, classicalNetwork and quantumNetwork are required", a.Name)
			}
		}
	}
	return nil
}
