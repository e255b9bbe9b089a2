package cpu

import (
	"math"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

const (
	invPi   = 1 / math.Pi
	piOver2 = math.Pi / 2
	piOver4 = math.Pi / 4
)

// MIS heuristic used to combine light and BSDF samples.
type MISHeuristic uint8

const (
	BalanceHeuristic MISHeuristic = iota
	PowerHeuristic
)

// Lookup a MIS heuristic by name.
func MISHeuristicFromName(name string) (MISHeuristic, bool) {
	switch name {
	case "balance":
		return BalanceHeuristic, true
	case "power":
		return PowerHeuristic, true
	}
	return BalanceHeuristic, false
}

// Weight for a sample drawn from the strategy with pdf fPdf when the other
// strategy would have drawn it with pdf gPdf.
func (h MISHeuristic) Weight(fPdf, gPdf float32) float32 {
	if h == PowerHeuristic {
		f, g := fPdf*fPdf, gPdf*gPdf
		if f+g == 0 {
			return 0
		}
		return f / (f + g)
	}
	if fPdf+gPdf == 0 {
		return 0
	}
	return fPdf / (fPdf + gPdf)
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func sincos32(angle float32) (float32, float32) {
	s, c := math.Sincos(float64(angle))
	return float32(s), float32(c)
}

// Build an orthonormal basis around a unit vector.
func coordinateSystem(n types.Vec3) (types.Vec3, types.Vec3) {
	sign := float32(math.Copysign(1, float64(n[2])))
	a := -1 / (sign + n[2])
	b := n[0] * n[1] * a
	return types.XYZ(1+sign*n[0]*n[0]*a, sign*b, -sign*n[0]),
		types.XYZ(b, sign+n[1]*n[1]*a, -n[1])
}

// Map a local direction (z = up) to the frame around n.
func toWorld(local, n types.Vec3) types.Vec3 {
	t, b := coordinateSystem(n)
	return t.Mul(local[0]).Add(b.Mul(local[1])).Add(n.Mul(local[2]))
}

// Map a uniform sample to a point on the unit disk with Shirley's
// concentric mapping.
func concentricSampleDisk(u types.Vec2) types.Vec2 {
	ox, oy := 2*u[0]-1, 2*u[1]-1
	if ox == 0 && oy == 0 {
		return types.Vec2{}
	}

	var r, theta float32
	if ox*ox > oy*oy {
		r = ox
		theta = piOver4 * (oy / ox)
	} else {
		r = oy
		theta = piOver2 - piOver4*(ox/oy)
	}
	s, c := sincos32(theta)
	return types.XY(r*c, r*s)
}

// Sample a cosine weighted direction around the local z axis.
func cosineSampleHemisphere(u types.Vec2) types.Vec3 {
	d := concentricSampleDisk(u)
	z := sqrt32(max(0, 1-d[0]*d[0]-d[1]*d[1]))
	return types.XYZ(d[0], d[1], z)
}

// Sample a uniformly distributed direction on the unit sphere.
func uniformSampleSphere(u types.Vec2) types.Vec3 {
	z := 1 - 2*u[0]
	r := sqrt32(max(0, 1-z*z))
	s, c := sincos32(2 * math.Pi * u[1])
	return types.XYZ(r*c, r*s, z)
}

// Sample uniform barycentric weights for a triangle.
func uniformSampleTriangle(u types.Vec2) types.Vec3 {
	su0 := sqrt32(u[0])
	b0 := 1 - su0
	b1 := u[1] * su0
	return types.XYZ(b0, b1, 1-b0-b1)
}

// Reflect the incoming direction d (pointing towards the surface) about n.
func reflect(d, n types.Vec3) types.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// Refract the incoming direction d (pointing towards the surface) through a
// surface with normal n facing d's origin. eta is the ratio of the incident
// over the transmitted index of refraction. Returns false on total internal
// reflection.
func refract(d, n types.Vec3, eta float32) (types.Vec3, bool) {
	cosI := -n.Dot(d)
	sin2T := eta * eta * max(0, 1-cosI*cosI)
	if sin2T >= 1 {
		return types.Vec3{}, false
	}
	cosT := sqrt32(1 - sin2T)
	return d.Mul(eta).Add(n.Mul(eta*cosI - cosT)).Normalize(), true
}

// Fresnel reflectance for a dielectric interface. cosI is measured on the
// incident side.
func fresnelDielectric(cosI, etaI, etaT float32) float32 {
	cosI = min(max(cosI, -1), 1)
	if cosI < 0 {
		etaI, etaT = etaT, etaI
		cosI = -cosI
	}

	sinT := etaI / etaT * sqrt32(max(0, 1-cosI*cosI))
	if sinT >= 1 {
		return 1
	}
	cosT := sqrt32(max(0, 1-sinT*sinT))
	rParl := (etaT*cosI - etaI*cosT) / (etaT*cosI + etaI*cosT)
	rPerp := (etaI*cosI - etaT*cosT) / (etaI*cosI + etaT*cosT)
	return (rParl*rParl + rPerp*rPerp) / 2
}

// Schlick's approximation for a colored F0.
func fresnelSchlick(cosTheta float32, f0 types.Vec3) types.Vec3 {
	m := min(max(1-cosTheta, 0), 1)
	m5 := m * m * m * m * m
	return f0.Add(types.Splat3(1).Sub(f0).Mul(m5))
}
