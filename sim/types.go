package sim

import (
	"fmt"
	"strings"
)

// Identity types. All of them index into the World arena; back-references
// between entities are stored as these IDs rather than pointers.
type (
	ZoneID    int
	NetworkID int
	NodeID    int
	ChannelID int
)

const (
	NoZone    ZoneID    = -1
	NoNetwork NetworkID = -1
	NoNode    NodeID    = -1
	NoChannel ChannelID = -1
)

// ZoneType is the spatial/security classification of a Zone.
type ZoneType string

const (
	ZoneResidential ZoneType = "residential"
	ZoneCommercial  ZoneType = "commercial"
	ZoneIndustrial  ZoneType = "industrial"
	ZoneSecure      ZoneType = "secure"
)

// NodeType is the closed set of node kinds. Each value maps to exactly one
// Node variant (see node.go).
type NodeType string

const (
	NodeInternetExchange NodeType = "internet_exchange"
	NodeClassicalHost    NodeType = "classical_host"
	NodeClassicalRouter  NodeType = "classical_router"
	NodeC2QConverter     NodeType = "c2q_converter"
	NodeQ2CConverter     NodeType = "q2c_converter"
	NodeQuantumHost      NodeType = "quantum_host"
	NodeQuantumRepeater  NodeType = "quantum_repeater"
	NodeQuantumAdapter   NodeType = "quantum_adapter"
)

// NetworkType distinguishes classical from quantum segments.
type NetworkType string

const (
	QuantumNetwork   NetworkType = "quantum_network"
	ClassicalNetwork NetworkType = "classical_network"
)

var (
	validZoneTypes = map[ZoneType]bool{
		ZoneResidential: true, ZoneCommercial: true, ZoneIndustrial: true, ZoneSecure: true,
	}
	validNodeTypes = map[NodeType]bool{
		NodeInternetExchange: true, NodeClassicalHost: true, NodeClassicalRouter: true,
		NodeC2QConverter: true, NodeQ2CConverter: true, NodeQuantumHost: true,
		NodeQuantumRepeater: true, NodeQuantumAdapter: true,
	}
	validNetworkTypes = map[NetworkType]bool{
		QuantumNetwork: true, ClassicalNetwork: true,
	}
)

// normalizeEnum accepts both the wire spelling used by topology files
// ("CLASSICAL_HOST") and the canonical lower-case form.
func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseZoneType parses a zone type, case-insensitively.
func ParseZoneType(s string) (ZoneType, error) {
	t := ZoneType(normalizeEnum(s))
	if !validZoneTypes[t] {
		return "", fmt.Errorf("unknown zone type %q; valid: residential, commercial, industrial, secure", s)
	}
	return t, nil
}

// ParseNodeType parses a node type, case-insensitively.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(normalizeEnum(s))
	if !validNodeTypes[t] {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// ParseNetworkType parses a network type. "CLASSICAL"/"QUANTUM" are accepted
// as shorthands for the full names.
func ParseNetworkType(s string) (NetworkType, error) {
	n := normalizeEnum(s)
	switch n {
	case "classical":
		return ClassicalNetwork, nil
	case "quantum":
		return QuantumNetwork, nil
	}
	t := NetworkType(n)
	if !validNetworkTypes[t] {
		return "", fmt.Errorf("unknown network type %q; valid: classical_network, quantum_network", s)
	}
	return t, nil
}

// IsBridge reports whether nodes of this type are declared on a Zone and
// span a classical and a quantum network.
func (t NodeType) IsBridge() bool {
	return t == NodeQuantumAdapter || t == NodeC2QConverter || t == NodeQ2CConverter
}
