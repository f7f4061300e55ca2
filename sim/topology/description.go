// Package topology reads world descriptions from JSON or YAML and builds
// them into a finalized sim.World.
//
// A Description mirrors the World hierarchy: zones contain networks and
// adapters, networks contain hosts and connections. Enum fields accept both
// the upper-case wire spelling ("QUANTUM_HOST") and the lower-case canonical
// form. Build is pure: it either returns a ready World or a *BuildError
// naming the zone, network and entity that could not be constructed.
package topology

// Description is the top-level world description.
type Description struct {
	Name  string     `json:"name" yaml:"name"`
	Size  [2]float64 `json:"size" yaml:"size"`
	Zones []Zone     `json:"zones" yaml:"zones"`
}

// Zone describes a geographic region.
type Zone struct {
	Name     string     `json:"name" yaml:"name"`
	Type     string     `json:"type" yaml:"type"`
	Size     [2]float64 `json:"size" yaml:"size"`
	Position [2]float64 `json:"position" yaml:"position"`
	Networks []Network  `json:"networks" yaml:"networks"`
	Adapters []Adapter  `json:"adapters,omitempty" yaml:"adapters,omitempty"`
}

// Network describes a classical or quantum network inside a zone.
type Network struct {
	Name        string       `json:"name" yaml:"name"`
	Address     string       `json:"address,omitempty" yaml:"address,omitempty"`
	Type        string       `json:"type" yaml:"type"`
	Location    [2]float64   `json:"location" yaml:"location"`
	Hosts       []Host       `json:"hosts" yaml:"hosts"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// Host describes any non-bridge node.
type Host struct {
	Name     string     `json:"name" yaml:"name"`
	Type     string     `json:"type" yaml:"type"`
	Address  string     `json:"address,omitempty" yaml:"address,omitempty"`
	Location [2]float64 `json:"location" yaml:"location"`
	Gateway  string     `json:"gateway,omitempty" yaml:"gateway,omitempty"`

	// Repeater attributes; ignored for other node types.
	RepeaterProtocol string  `json:"repeater_protocol,omitempty" yaml:"repeater_protocol,omitempty"`
	NumMemories      int     `json:"num_memories,omitempty" yaml:"num_memories,omitempty"`
	MemoryFidelity   float64 `json:"memory_fidelity,omitempty" yaml:"memory_fidelity,omitempty"`
}

// Connection describes a link between two nodes of the same network.
type Connection struct {
	From       string  `json:"from_node" yaml:"from_node"`
	To         string  `json:"to_node" yaml:"to_node"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	Bandwidth  int64   `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
	Latency    int64   `json:"latency,omitempty" yaml:"latency,omitempty"`
	Length     float64 `json:"length,omitempty" yaml:"length,omitempty"`
	LossPerKm  float64 `json:"loss_per_km,omitempty" yaml:"loss_per_km,omitempty"`
	NoiseModel string  `json:"noise_model,omitempty" yaml:"noise_model,omitempty"`
}

// Adapter describes a quantum adapter or a directional converter joining a
// classical host to a quantum host.
type Adapter struct {
	Name             string     `json:"name" yaml:"name"`
	Type             string     `json:"type" yaml:"type"`
	Address          string     `json:"address,omitempty" yaml:"address,omitempty"`
	Location         [2]float64 `json:"location" yaml:"location"`
	QuantumHost      string     `json:"quantumHost" yaml:"quantumHost"`
	ClassicalHost    string     `json:"classicalHost" yaml:"classicalHost"`
	ClassicalNetwork string     `json:"classicalNetwork" yaml:"classicalNetwork"`
	QuantumNetwork   string     `json:"quantumNetwork" yaml:"quantumNetwork"`
}
