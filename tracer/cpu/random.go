package cpu

import (
	"math/rand/v2"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// Random streams used by the integrator stages. Each stage draws from its
// own stream so that adding samples to one stage does not shift the
// sequence seen by another.
const (
	streamCamera uint64 = iota + 1
	streamLight
	streamBsdf
)

// Thomas Wang style integer hash.
func utilhash(a uint32) uint32 {
	a = (a + 0x7ed55d16) + (a << 12)
	a = (a ^ 0xc761c23c) ^ (a >> 19)
	a = (a + 0x165667b1) + (a << 5)
	a = (a + 0xd3a2646c) ^ (a << 9)
	a = (a + 0xfd7046c5) + (a << 3)
	a = (a ^ 0xb55a4f09) ^ (a >> 16)
	return a
}

// Derive the seed for the path starting at pixel index for the given
// iteration and bounce depth.
func pathSeed(iteration, index, depth uint32) uint32 {
	return utilhash((1<<31)|(depth<<22)|iteration) ^ utilhash(index)
}

// A per-path random number generator. The zero value is not usable; create
// samplers with newSampler.
type sampler struct {
	pcg rand.PCG
}

func newSampler(iteration, index, depth uint32, stream uint64) sampler {
	var s sampler
	s.pcg.Seed(uint64(pathSeed(iteration, index, depth)), stream)
	return s
}

// Get a uniform float in [0, 1).
func (s *sampler) Float() float32 {
	return float32(s.pcg.Uint64()>>40) / (1 << 24)
}

// Get a uniform point in [0, 1)^2.
func (s *sampler) Vec2() types.Vec2 {
	return types.XY(s.Float(), s.Float())
}
