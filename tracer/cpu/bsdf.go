package cpu

import (
	"math"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/material"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// The outcome of sampling a BSDF.
type bsdfSample struct {
	// Outgoing (next ray) direction.
	Wi types.Vec3

	// Throughput multiplier: f * |cos| / pdf.
	Weight types.Vec3

	// Solid angle pdf of Wi. Only meaningful for non-specular samples.
	Pdf float32

	// True if Wi was selected by a delta lobe.
	Specular bool
}

// The local shading frame of a hit. wo points away from the surface and n
// is the geometric normal flipped to wo's side.
type shadingFrame struct {
	wo       types.Vec3
	n        types.Vec3
	entering bool
}

func newShadingFrame(rayDir, normal types.Vec3) shadingFrame {
	wo := rayDir.Neg()
	if wo.Dot(normal) >= 0 {
		return shadingFrame{wo: wo, n: normal, entering: true}
	}
	return shadingFrame{wo: wo, n: normal.Neg(), entering: false}
}

// Relative index of refraction (incident / transmitted) for a frame.
func (sf *shadingFrame) eta(ior float32) float32 {
	if sf.entering {
		return 1 / ior
	}
	return ior
}

// Sample an outgoing direction. A false result means the path cannot
// continue (e.g. total internal reflection on a transmissive surface or a
// direction with a zero pdf).
func sampleBsdf(mat *scene.Material, sf *shadingFrame, s *sampler) (bsdfSample, bool) {
	switch mat.Bxdf {
	case material.BxdfDiffuseReflection:
		wi := toWorld(cosineSampleHemisphere(s.Vec2()), sf.n)
		cos := wi.Dot(sf.n)
		if cos <= 0 {
			return bsdfSample{}, false
		}
		return bsdfSample{Wi: wi, Weight: mat.Reflectance, Pdf: cos * invPi}, true
	case material.BxdfDiffuseTransmission:
		wi := toWorld(cosineSampleHemisphere(s.Vec2()), sf.n.Neg())
		cos := -wi.Dot(sf.n)
		if cos <= 0 {
			return bsdfSample{}, false
		}
		return bsdfSample{Wi: wi, Weight: mat.Reflectance, Pdf: cos * invPi}, true
	case material.BxdfSpecularReflection:
		return bsdfSample{Wi: reflect(sf.wo.Neg(), sf.n), Weight: mat.Specular, Pdf: 1, Specular: true}, true
	case material.BxdfSpecularTransmission:
		wi, ok := refract(sf.wo.Neg(), sf.n, sf.eta(mat.IOR))
		if !ok {
			return bsdfSample{}, false
		}
		return bsdfSample{Wi: wi, Weight: mat.Transmittance, Pdf: 1, Specular: true}, true
	case material.BxdfGlass:
		return sampleGlass(mat, sf, s), true
	case material.BxdfPlastic:
		return samplePlastic(mat, sf, s)
	case material.BxdfMicrofacetReflection:
		return sampleMicrofacet(mat, sf, s)
	}
	return bsdfSample{}, false
}

// Choose between the reflected and refracted lobes using the Fresnel term.
// The choice probability cancels the Fresnel weight.
func sampleGlass(mat *scene.Material, sf *shadingFrame, s *sampler) bsdfSample {
	cosI := sf.wo.Dot(sf.n)
	etaI, etaT := float32(1), mat.IOR
	if !sf.entering {
		etaI, etaT = etaT, etaI
	}

	f := fresnelDielectric(cosI, etaI, etaT)
	if s.Float() < f {
		return bsdfSample{Wi: reflect(sf.wo.Neg(), sf.n), Weight: mat.Specular, Pdf: f, Specular: true}
	}

	wi, ok := refract(sf.wo.Neg(), sf.n, etaI/etaT)
	if !ok {
		return bsdfSample{Wi: reflect(sf.wo.Neg(), sf.n), Weight: mat.Specular, Pdf: 1, Specular: true}
	}
	return bsdfSample{Wi: wi, Weight: mat.Transmittance, Pdf: 1 - f, Specular: true}
}

// Plastic is a dielectric coat over a diffuse base. The coat reflects with
// the Fresnel probability and the remaining energy reaches the base.
func samplePlastic(mat *scene.Material, sf *shadingFrame, s *sampler) (bsdfSample, bool) {
	fo := fresnelDielectric(sf.wo.Dot(sf.n), 1, mat.IOR)
	if s.Float() < fo {
		return bsdfSample{Wi: reflect(sf.wo.Neg(), sf.n), Weight: mat.Specular, Pdf: fo, Specular: true}, true
	}

	wi := toWorld(cosineSampleHemisphere(s.Vec2()), sf.n)
	cos := wi.Dot(sf.n)
	if cos <= 0 {
		return bsdfSample{}, false
	}
	return bsdfSample{Wi: wi, Weight: mat.Reflectance, Pdf: (1 - fo) * cos * invPi}, true
}

// GGX microfacet reflection with a Schlick Fresnel term.
func sampleMicrofacet(mat *scene.Material, sf *shadingFrame, s *sampler) (bsdfSample, bool) {
	alpha := mat.Roughness
	cosO := sf.wo.Dot(sf.n)
	if cosO <= 0 {
		return bsdfSample{}, false
	}

	// Sample a microfacet normal proportionally to D(h) * cos(h)
	u := s.Vec2()
	tan2Theta := alpha * alpha * u[0] / max(1-u[0], 1e-7)
	cosTheta := 1 / sqrt32(1+tan2Theta)
	sinTheta := sqrt32(max(0, 1-cosTheta*cosTheta))
	sinPhi, cosPhi := sincos32(2 * math.Pi * u[1])
	h := toWorld(types.XYZ(sinTheta*cosPhi, sinTheta*sinPhi, cosTheta), sf.n)

	woDotH := sf.wo.Dot(h)
	if woDotH <= 0 {
		return bsdfSample{}, false
	}
	wi := reflect(sf.wo.Neg(), h)
	cosI := wi.Dot(sf.n)
	if cosI <= 0 {
		return bsdfSample{}, false
	}

	f, pdf := evalMicrofacet(mat, sf, wi)
	if pdf <= 0 {
		return bsdfSample{}, false
	}
	return bsdfSample{Wi: wi, Weight: f.Mul(cosI / pdf), Pdf: pdf}, true
}

// GGX normal distribution.
func ggxD(cosH, alpha float32) float32 {
	a2 := alpha * alpha
	d := cosH*cosH*(a2-1) + 1
	return a2 * invPi / (d * d)
}

// Smith masking term for a single direction.
func ggxG1(cos, alpha float32) float32 {
	cos2 := cos * cos
	tan2 := max(0, 1-cos2) / max(cos2, 1e-7)
	return 2 / (1 + sqrt32(1+alpha*alpha*tan2))
}

func evalMicrofacet(mat *scene.Material, sf *shadingFrame, wi types.Vec3) (types.Vec3, float32) {
	cosO, cosI := sf.wo.Dot(sf.n), wi.Dot(sf.n)
	if cosO <= 0 || cosI <= 0 {
		return types.Vec3{}, 0
	}

	h := sf.wo.Add(wi).Normalize()
	cosH := h.Dot(sf.n)
	woDotH := sf.wo.Dot(h)
	if cosH <= 0 || woDotH <= 0 {
		return types.Vec3{}, 0
	}

	alpha := mat.Roughness
	d := ggxD(cosH, alpha)
	g := ggxG1(cosO, alpha) * ggxG1(cosI, alpha)
	f := fresnelSchlick(woDotH, mat.Reflectance).Mul(d * g / (4 * cosO * cosI))
	pdf := d * cosH / (4 * woDotH)
	return f, pdf
}

// Evaluate the non-delta part of a BSDF for a pair of directions. Returns
// f(wo, wi) * |cos(wi)| and the pdf that sampleBsdf would assign to wi.
// Delta lobes always evaluate to zero.
func evalBsdf(mat *scene.Material, sf *shadingFrame, wi types.Vec3) (types.Vec3, float32) {
	cos := wi.Dot(sf.n)
	switch mat.Bxdf {
	case material.BxdfDiffuseReflection:
		if cos <= 0 {
			return types.Vec3{}, 0
		}
		return mat.Reflectance.Mul(invPi * cos), cos * invPi
	case material.BxdfDiffuseTransmission:
		if cos >= 0 {
			return types.Vec3{}, 0
		}
		return mat.Reflectance.Mul(invPi * -cos), -cos * invPi
	case material.BxdfPlastic:
		if cos <= 0 {
			return types.Vec3{}, 0
		}
		kd := 1 - fresnelDielectric(sf.wo.Dot(sf.n), 1, mat.IOR)
		return mat.Reflectance.Mul(kd * invPi * cos), kd * cos * invPi
	case material.BxdfMicrofacetReflection:
		f, pdf := evalMicrofacet(mat, sf, wi)
		return f.Mul(max(cos, 0)), pdf
	}
	return types.Vec3{}, 0
}
