package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two worlds built with the same SimulationKey from the same topology and
// driven by the same commands produce identical loss draws, noise-free
// measurement outcomes and swap results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem names ===

// SubsystemChannel returns the subsystem name for quantum channel N.
// Every channel draws losses from its own stream so transmissions on
// disjoint channels never share RNG state.
func SubsystemChannel(id ChannelID) string {
	return fmt.Sprintf("channel_%d", id)
}

// SubsystemRepeater returns the subsystem name for repeater N (Bell
// measurement outcomes).
func SubsystemRepeater(id NodeID) string {
	return fmt.Sprintf("repeater_%d", id)
}

// SubsystemAdapter returns the subsystem name for adapter N (BB84 bits,
// bases and measurements).
func SubsystemAdapter(id NodeID) string {
	return fmt.Sprintf("adapter_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Streams are handed out while the World is
// built; afterwards each stream is used only under its owner's lock.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
