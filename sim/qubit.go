package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// Basis is a single-qubit measurement/preparation basis.
type Basis int

const (
	// BasisZ is the rectilinear (computational) basis.
	BasisZ Basis = iota
	// BasisX is the diagonal basis.
	BasisX
)

func (b Basis) String() string {
	if b == BasisX {
		return "X"
	}
	return "Z"
}

// ParseBasis accepts "z"/"x" (any case); empty defaults to Z.
func ParseBasis(s string) (Basis, error) {
	switch normalizeEnum(s) {
	case "", "z", "rectilinear":
		return BasisZ, nil
	case "x", "diagonal":
		return BasisX, nil
	}
	return BasisZ, fmt.Errorf("unknown basis %q; valid: z, x", s)
}

// Qubit is an opaque, corruptible payload. Its state is tracked as a Bloch
// vector: |0> is Z=1, |1> is Z=-1, |+> is X=1, |-> is X=-1. Noise models
// shrink or shift the vector; nothing here models amplitudes.
type Qubit struct {
	ID      int64
	X, Y, Z float64
}

// NewQubit prepares a pure qubit encoding bit in basis.
func NewQubit(id int64, bit int, basis Basis) Qubit {
	sign := 1.0
	if bit != 0 {
		sign = -1.0
	}
	q := Qubit{ID: id}
	if basis == BasisX {
		q.X = sign
	} else {
		q.Z = sign
	}
	return q
}

// Measure draws a classical outcome in basis. The outcome probability of 0
// is (1 + r)/2 where r is the Bloch component along the basis axis.
func (q Qubit) Measure(basis Basis, rng *rand.Rand) int {
	r := q.Z
	if basis == BasisX {
		r = q.X
	}
	if rng.Float64() < (1+r)/2 {
		return 0
	}
	return 1
}

// BlochLength is 1 for pure states and shrinks as noise mixes the state.
func (q Qubit) BlochLength() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

const blochEpsilon = 1e-12

// Equal compares two qubit states (IDs are ignored).
func (q Qubit) Equal(o Qubit) bool {
	return math.Abs(q.X-o.X) < blochEpsilon &&
		math.Abs(q.Y-o.Y) < blochEpsilon &&
		math.Abs(q.Z-o.Z) < blochEpsilon
}

func (q Qubit) String() string {
	return fmt.Sprintf("Qubit: (ID: %d, Bloch: [%.3f %.3f %.3f])", q.ID, q.X, q.Y, q.Z)
}
