// Package transfer builds, submits and loops native SOL transfers.
package transfer

import (
	"math"
	"math/rand"
)

// LamportsPerSOL is the number of base units in one SOL.
const LamportsPerSOL = 1_000_000_000

// Default sampling range in SOL.
const (
	DefaultMinAmount = 0.0009
	DefaultMaxAmount = 0.001
)

// ToLamports converts a SOL amount to lamports, truncating fractions of a lamport.
func ToLamports(sol float64) uint64 {
	if sol <= 0 {
		return 0
	}
	return uint64(math.Floor(sol * LamportsPerSOL))
}

// AmountSampler picks the SOL amount of the next transfer.
type AmountSampler interface {
	Sample() float64
}

// UniformSampler draws amounts uniformly from [Min, Max).
type UniformSampler struct {
	Min float64
	Max float64
	// Float64 returns a value in [0, 1). Defaults to math/rand.
	Float64 func() float64
}

// Sample implements AmountSampler.
func (s UniformSampler) Sample() float64 {
	f := s.Float64
	if f == nil {
		f = rand.Float64
	}

	v := f()*(s.Max-s.Min) + s.Min
	if v >= s.Max && s.Max > s.Min {
		v = math.Nextafter(s.Max, s.Min)
	}
	return v
}
