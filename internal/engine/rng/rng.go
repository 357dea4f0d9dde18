// Package rng implements the simulation's single source of randomness: a
// seeded, reproducible generator plus deterministic derivation of
// per-agent arrival sub-streams so adding or removing one agent never
// perturbs another agent's draws.
package rng

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Stream is a seeded xorshift128+ generator. It never fails; every method
// is a pure function of its internal state.
type Stream struct {
	s0, s1 uint64
}

// New seeds a Stream from a 64-bit seed, expanding it with splitmix64 so
// that nearby seeds (e.g. 0 and 1) do not produce correlated streams.
func New(seed uint64) *Stream {
	sm := splitmix64{state: seed}
	s0 := sm.next()
	s1 := sm.next()
	if s0 == 0 && s1 == 0 {
		// xorshift128+ requires non-zero state.
		s1 = 1
	}
	return &Stream{s0: s0, s1: s1}
}

// State returns the generator's internal state, for snapshotting.
func (s *Stream) State() (uint64, uint64) { return s.s0, s.s1 }

// RestoreState reconstructs a Stream directly from previously captured
// state, bypassing New's seed expansion.
func RestoreState(s0, s1 uint64) *Stream { return &Stream{s0: s0, s1: s1} }

// Uint64 returns the next raw 64-bit draw.
func (s *Stream) Uint64() uint64 {
	x := s.s0
	y := s.s1
	s.s0 = y
	x ^= x << 23
	x ^= x >> 17
	x ^= y ^ (y >> 26)
	s.s1 = x
	return x + y
}

// Float64 returns a value in [0, 1).
func (s *Stream) Float64() float64 {
	// 53 bits of mantissa precision, matching math/rand's convention.
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Intn returns a value in [0, n).
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint64() % uint64(n))
}

// Poisson draws from a Poisson distribution with the given rate using
// Knuth's algorithm — exact for the small rates (arrivals per tick) this
// simulation uses, and involves no library dependency on the hot path.
func (s *Stream) Poisson(rate float64) int {
	if rate <= 0 {
		return 0
	}
	l := math.Exp(-rate)
	k := 0
	p := 1.0
	for {
		k++
		p *= s.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// Normal draws a single sample from a Normal(mean, stddev) distribution.
func (s *Stream) Normal(mean, stddev float64) float64 {
	d := distuv.Normal{Mu: mean, Sigma: stddev, Src: (*uint64Source)(s)}
	return d.Rand()
}

// LogNormal draws a single sample from a LogNormal distribution parameterized
// by the mean and stddev of the underlying normal.
func (s *Stream) LogNormal(mu, sigma float64) float64 {
	d := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: (*uint64Source)(s)}
	return d.Rand()
}

// Uniform draws a single sample from Uniform[min, max).
func (s *Stream) Uniform(min, max float64) float64 {
	d := distuv.Uniform{Min: min, Max: max, Src: (*uint64Source)(s)}
	return d.Rand()
}

// uint64Source adapts *Stream to gonum's rand.Source interface so the
// distuv samplers draw from this stream's deterministic sequence instead
// of a global RNG.
type uint64Source Stream

func (u *uint64Source) Uint64() uint64 {
	return (*Stream)(u).Uint64()
}

// splitmix64 is used only to expand a single seed into xorshift128+'s
// two-word state.
type splitmix64 struct {
	state uint64
}

func (sm *splitmix64) next() uint64 {
	sm.state += 0x9E3779B97F4A7C15
	z := sm.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// DeriveSeed produces a deterministic sub-seed for a named sub-stream
// (e.g. "arrival") of a particular agent, given the root seed. Adding or
// removing one agent's arrival config never perturbs another agent's
// stream because each agent's seed is a pure hash of (root, purpose, id).
func DeriveSeed(rootSeed uint64, purpose, agentID string) uint64 {
	h := fnv1a64(rootSeed)
	h = fnv1a64StringInto(h, purpose)
	h = fnv1a64StringInto(h, agentID)
	return h
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

func fnv1a64(seed uint64) uint64 {
	h := uint64(fnvOffset64)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	for _, b := range buf {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	return h
}

func fnv1a64StringInto(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
