package scene

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/material"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// A compiled material. Which of the color fields are used depends on the
// bxdf type:
//
// - diffuse/translucent: Reflectance (albedo)
// - mirror: Specular
// - transmissive: Transmittance
// - glass: Specular for the reflected and Transmittance for the refracted lobe
// - plastic: Reflectance for the base and Specular for the coat
// - microfacet: Reflectance as F0 and tint
type Material struct {
	ID   int32
	Bxdf material.BxdfType

	Reflectance   types.Vec3
	Transmittance types.Vec3
	Specular      types.Vec3

	IOR       float32
	Roughness float32

	// Emitted radiance scale. Values > 0 turn the surface into a light.
	Emittance float32
}

// Returns true if the material emits light.
func (m *Material) IsEmissive() bool {
	return m.Emittance > 0
}

// Get the radiance emitted by surfaces with this material.
func (m *Material) Radiance() types.Vec3 {
	return m.Reflectance.Mul(m.Emittance)
}
