package sim

import (
	"math"
	"math/rand"
	"testing"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemChannel(0)).Float64()
		v2 := rng2.ForSubsystem(SubsystemChannel(0)).Float64()
		if v1 != v2 {
			t.Errorf("Value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// BDD: Drawing from one channel's stream doesn't affect another channel
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	rngB := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemChannel(1)).Float64()
	}
	for i := 0; i < 5; i++ {
		rngB.ForSubsystem(SubsystemChannel(0)).Float64()
	}

	aFirst := rngA.ForSubsystem(SubsystemChannel(0)).Float64()
	bSixth := rngB.ForSubsystem(SubsystemChannel(0)).Float64()

	fresh := NewPartitionedRNG(NewSimulationKey(42))
	expectedFirst := fresh.ForSubsystem(SubsystemChannel(0)).Float64()

	if aFirst != expectedFirst {
		t.Errorf("A's channel_0 first value = %v, want %v (isolation broken)", aFirst, expectedFirst)
	}
	if bSixth == expectedFirst {
		t.Error("B's 6th channel_0 value equals 1st value - unexpected")
	}
}

func TestPartitionedRNG_SeedDerivation(t *testing.T) {
	// BDD: every stream is seeded with masterSeed XOR fnv1a64(name)
	seed := int64(42)
	rng := NewPartitionedRNG(NewSimulationKey(seed))
	name := SubsystemAdapter(3)

	got := rng.ForSubsystem(name)
	want := rand.New(rand.NewSource(seed ^ fnv1a64(name)))

	for i := 0; i < 10; i++ {
		g, w := got.Float64(), want.Float64()
		if g != w {
			t.Errorf("Value %d: subsystem RNG = %v, derived RNG = %v", i, g, w)
		}
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	// BDD: Same name returns same *rand.Rand instance
	rng := NewPartitionedRNG(NewSimulationKey(42))

	rng1 := rng.ForSubsystem(SubsystemRepeater(2))
	rng2 := rng.ForSubsystem(SubsystemRepeater(2))

	if rng1 != rng2 {
		t.Error("ForSubsystem returned different instances for same name")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewSimulationKey(seed))

	if rng.Key() != SimulationKey(seed) {
		t.Errorf("Key() = %v, want %v", rng.Key(), seed)
	}
}

func TestPartitionedRNG_NegativeSeed(t *testing.T) {
	// BDD: MinInt64 seed works correctly
	rng := NewPartitionedRNG(NewSimulationKey(math.MinInt64))

	ch := rng.ForSubsystem(SubsystemChannel(0))
	if ch == nil {
		t.Fatal("ForSubsystem returned nil with MinInt64 seed")
	}
	val := ch.Float64()
	if val < 0 || val >= 1 {
		t.Errorf("Float64() returned %v, want [0, 1)", val)
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	// BDD: Subsystems map is empty until ForSubsystem is called
	rng := NewPartitionedRNG(NewSimulationKey(42))

	if len(rng.subsystems) != 0 {
		t.Errorf("New PartitionedRNG has %d subsystems, want 0", len(rng.subsystems))
	}

	rng.ForSubsystem(SubsystemChannel(0))

	if len(rng.subsystems) != 1 {
		t.Errorf("After one ForSubsystem call, have %d subsystems, want 1", len(rng.subsystems))
	}
}

// === fnv1a64 Tests ===

func TestFnv1a64_Collision(t *testing.T) {
	// Different subsystem names should produce different hashes (spot check)
	names := []string{
		SubsystemChannel(0),
		SubsystemChannel(1),
		SubsystemRepeater(0),
		SubsystemAdapter(0),
		"",
	}

	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		if existing, ok := hashes[h]; ok {
			t.Errorf("Hash collision: %q and %q both hash to %d", name, existing, h)
		}
		hashes[h] = name
	}
}

// === Subsystem name Tests ===

func TestSubsystemNames(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{SubsystemChannel(0), "channel_0"},
		{SubsystemChannel(12), "channel_12"},
		{SubsystemRepeater(4), "repeater_4"},
		{SubsystemAdapter(7), "adapter_7"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("subsystem name = %q, want %q", tt.got, tt.want)
		}
	}
}

// === Benchmark ===

func BenchmarkPartitionedRNG_ForSubsystem_CacheHit(b *testing.B) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	rng.ForSubsystem(SubsystemChannel(0))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng.ForSubsystem(SubsystemChannel(0))
	}
}
