package sim

import "math"

// NoiseModel selects the corruption function a channel applies to every
// delivered qubit.
type NoiseModel string

const (
	NoiseDepolarizing     NoiseModel = "depolarizing"
	NoiseDephasing        NoiseModel = "dephasing"
	NoiseAmplitudeDamping NoiseModel = "amplitude_damping"
	NoiseDefault          NoiseModel = "default"
)

// Fixed channel parameters.
const (
	DepolarizingProbability = 0.05
	DephasingProbability    = 0.1
	AmplitudeDampingGamma   = 0.1
)

// ParseNoiseModel maps a topology string onto a NoiseModel. Unrecognized
// names become NoiseDefault, which is a passthrough.
func ParseNoiseModel(s string) NoiseModel {
	switch m := NoiseModel(normalizeEnum(s)); m {
	case NoiseDepolarizing, NoiseDephasing, NoiseAmplitudeDamping:
		return m
	default:
		return NoiseDefault
	}
}

// ApplyNoise returns the qubit after the noise model's channel.
func ApplyNoise(model NoiseModel, q Qubit) Qubit {
	switch model {
	case NoiseDepolarizing:
		return depolarize(q, DepolarizingProbability)
	case NoiseDephasing:
		return dephase(q, DephasingProbability)
	case NoiseAmplitudeDamping:
		return amplitudeDamp(q, AmplitudeDampingGamma)
	default:
		return q
	}
}

// depolarize contracts the Bloch vector uniformly.
func depolarize(q Qubit, p float64) Qubit {
	s := 1 - p
	q.X, q.Y, q.Z = q.X*s, q.Y*s, q.Z*s
	return q
}

// dephase is a phase flip with probability p: the transverse components
// shrink by 1-2p, populations are untouched.
func dephase(q Qubit, p float64) Qubit {
	s := 1 - 2*p
	q.X, q.Y = q.X*s, q.Y*s
	return q
}

// amplitudeDamp relaxes the state towards |0>.
func amplitudeDamp(q Qubit, gamma float64) Qubit {
	s := math.Sqrt(1 - gamma)
	q.X, q.Y = q.X*s, q.Y*s
	q.Z = gamma + (1-gamma)*q.Z
	return q
}
