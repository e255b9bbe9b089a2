package cpu

import "github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"

const (
	// Offset applied along the surface normal when spawning rays from a hit.
	rayEpsilon float32 = 1e-3

	// Upper bound for throughput components.
	maxThroughput float32 = 1e6
)

// The per-sample state of a light transport path.
type pathSegment struct {
	ray types.Ray

	// Accumulated radiance and running throughput.
	radiance   types.Vec3
	throughput types.Vec3

	pixelIndex uint32

	// Bounces left before the path retires. A path is retired once this
	// reaches zero.
	remaining uint32

	// True if the ray was generated by a delta BSDF lobe. Emission found by
	// such rays is never MIS weighted.
	specularBounce bool

	// Solid angle pdf of the BSDF sample that generated the ray.
	lastPdf float32
}

func (p *pathSegment) retire() {
	p.remaining = 0
}

func (p *pathSegment) addRadiance(l types.Vec3) {
	p.radiance = p.radiance.Add(p.throughput.MulVec(l))
}

// Scale the throughput by a BSDF weight. Returns false if the resulting
// throughput can no longer contribute.
func (p *pathSegment) scaleThroughput(w types.Vec3) bool {
	t := p.throughput.MulVec(w)
	if !t.IsFinite() {
		return false
	}
	for c := 0; c < 3; c++ {
		t[c] = min(max(t[c], 0), maxThroughput)
	}
	p.throughput = t
	return !t.IsZero()
}

// A shadow ray towards a point sampled on a light.
type misLightRay struct {
	ray     types.Ray
	maxDist float32
	valid   bool

	// BSDF value (including the cosine term) and pdf for the ray direction.
	f       types.Vec3
	bsdfPdf float32

	lightIndex int32
	lightPdf   float32
	radiance   types.Vec3

	// True if this is the last vertex of the path; its light sample is not
	// combined with a BSDF sample.
	lastVertex bool
}

// The outcome of tracing a misLightRay.
type misLightIntersection struct {
	occluded bool

	// Unweighted light transport estimate and its MIS weight.
	estimate types.Vec3
	weight   float32
}

// Offset a hit point to the side of the surface that dir points to.
func spawnOrigin(p, n, dir types.Vec3) types.Vec3 {
	if dir.Dot(n) >= 0 {
		return p.Add(n.Mul(rayEpsilon))
	}
	return p.Sub(n.Mul(rayEpsilon))
}

// Returns true if the radiance can be added to the accumulator.
func isValidRadiance(l types.Vec3) bool {
	return l.IsFinite() && l[0] >= 0 && l[1] >= 0 && l[2] >= 0
}

// Build a shadow ray from a surface point towards a point sampled on a
// light. The direction is measured from the offset origin so the ray ends at
// the light sample instead of running parallel to it. Also returns the
// distance to the light sample. A false result means the light sample is too
// close to the surface.
func newShadowRay(p, n, lightPoint types.Vec3) (types.Ray, float32, bool) {
	origin := spawnOrigin(p, n, lightPoint.Sub(p))
	toLight := lightPoint.Sub(origin)
	dist := toLight.Len()
	if dist <= shadowEpsilon {
		return types.Ray{}, 0, false
	}
	return types.NewRay(origin, toLight.Mul(1/dist)), dist, true
}
