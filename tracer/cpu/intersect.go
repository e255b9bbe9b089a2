package cpu

import (
	"math"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

const (
	// Hits closer than this distance are ignored to avoid self intersections.
	MinIntersectDist float32 = 1e-4

	// Hit distance reported by the kernels when a ray misses.
	MaxIntersectDist float32 = 10000

	// Tolerance for the quad extent test and the barycentric sum.
	quadEpsilon float32 = 1e-4
	baryEpsilon float32 = 1e-4
)

// The minimal closest-hit record shared by camera, indirect and shadow
// queries.
type intersection struct {
	Dist float32

	// The shading normal and the true surface normal. They differ for mesh
	// triangles with per-vertex normals.
	Normal     types.Vec3
	GeomNormal types.Vec3

	MaterialID int32
	GeomID     int32

	// Index of the hit scene triangle or -1 for analytic geoms.
	TriIndex int32
}

func (isect *intersection) reset() {
	isect.Dist = MaxIntersectDist
	isect.MaterialID = -1
	isect.GeomID = -1
	isect.TriIndex = -1
}

func (isect *intersection) hit() bool {
	return isect.Dist < MaxIntersectDist
}

// Move a world-space ray into the object space of a geom. The object space
// direction is renormalized.
func toObjectSpace(g *scene.Geom, r *types.Ray) (origin, dir types.Vec3) {
	return g.Inverse.MulPoint(r.Origin), g.Inverse.MulDir(r.Dir).Normalize()
}

// Return the world space distance between the ray origin and an object space
// point.
func worldDist(g *scene.Geom, r *types.Ray, objPoint types.Vec3) float32 {
	return r.Origin.Sub(g.Matrix.MulPoint(objPoint)).Len()
}

// Intersect a unit quad lying on the object space z = 0 plane.
func intersectSquarePlane(g *scene.Geom, r *types.Ray) (float32, types.Vec3) {
	ro, rd := toObjectSpace(g, r)
	if rd[2] == 0 {
		return MaxIntersectDist, types.Vec3{}
	}

	t := -ro[2] / rd[2]
	if !(t > MinIntersectDist) {
		return MaxIntersectDist, types.Vec3{}
	}

	p := ro.Add(rd.Mul(t))
	const extent = 0.5 + quadEpsilon
	if p[0] < -extent || p[0] > extent || p[1] < -extent || p[1] > extent {
		return MaxIntersectDist, types.Vec3{}
	}

	return worldDist(g, r, p), g.TransformNormal(types.XYZ(0, 0, 1))
}

// Intersect a unit cube using the slab method. If the ray starts inside the
// cube the exit point is reported.
func intersectBox(g *scene.Geom, r *types.Ray) (float32, types.Vec3) {
	ro, rd := toObjectSpace(g, r)

	tmin, tmax := float32(-math.MaxFloat32), float32(math.MaxFloat32)
	var tminN, tmaxN types.Vec3
	for axis := 0; axis < 3; axis++ {
		if rd[axis] == 0 {
			// Parallel to this slab pair
			if ro[axis] < -0.5 || ro[axis] > 0.5 {
				return MaxIntersectDist, types.Vec3{}
			}
			continue
		}

		t1 := (-0.5 - ro[axis]) / rd[axis]
		t2 := (0.5 - ro[axis]) / rd[axis]
		ta, tb := t1, t2
		if t2 < t1 {
			ta, tb = t2, t1
		}

		var n types.Vec3
		if t2 < t1 {
			n[axis] = 1
		} else {
			n[axis] = -1
		}
		if ta > MinIntersectDist && ta > tmin {
			tmin = ta
			tminN = n
		}
		if tb < tmax {
			// The far slab face points the opposite way
			tmax = tb
			tmaxN = n.Neg()
		}
	}

	if tmax < tmin || tmax <= MinIntersectDist {
		return MaxIntersectDist, types.Vec3{}
	}

	if tmin <= MinIntersectDist {
		// Origin is inside the box
		tmin = tmax
		tminN = tmaxN
	}

	return worldDist(g, r, ro.Add(rd.Mul(tmin))), g.TransformNormal(tminN)
}

// Intersect a sphere of radius 0.5 centered at the object space origin.
func intersectSphere(g *scene.Geom, r *types.Ray) (float32, types.Vec3) {
	const radius = 0.5
	ro, rd := toObjectSpace(g, r)

	vDotDir := ro.Dot(rd)
	radicand := vDotDir*vDotDir - (ro.Dot(ro) - radius*radius)
	if radicand < 0 {
		return MaxIntersectDist, types.Vec3{}
	}

	sqrtRadicand := float32(math.Sqrt(float64(radicand)))
	t1 := -vDotDir + sqrtRadicand
	t2 := -vDotDir - sqrtRadicand

	var t float32
	switch {
	case t1 <= MinIntersectDist && t2 <= MinIntersectDist:
		return MaxIntersectDist, types.Vec3{}
	case t1 > MinIntersectDist && t2 > MinIntersectDist:
		t = min(t1, t2)
	default:
		t = max(t1, t2)
	}

	p := ro.Add(rd.Mul(t))
	return worldDist(g, r, p), g.TransformNormal(p)
}

// Intersect a world space triangle. Returns the ray parameter and the
// barycentric weights for the triangle's p0, p1 and p2 vertices.
func intersectTriangle(tri *scene.Triangle, r *types.Ray) (float32, types.Vec3, bool) {
	if !(tri.Area > 0) {
		return MaxIntersectDist, types.Vec3{}, false
	}

	denom := tri.PlaneNormal.Dot(r.Dir)
	if denom == 0 {
		return MaxIntersectDist, types.Vec3{}, false
	}

	t := tri.PlaneNormal.Dot(tri.P[0].Sub(r.Origin)) / denom
	if !(t > MinIntersectDist) || t >= MaxIntersectDist {
		return MaxIntersectDist, types.Vec3{}, false
	}

	// Barycentric area test
	p := r.At(t)
	invArea := 0.5 / tri.Area
	s1 := p.Sub(tri.P[1]).Cross(p.Sub(tri.P[2])).Len() * invArea
	s2 := p.Sub(tri.P[2]).Cross(p.Sub(tri.P[0])).Len() * invArea
	s3 := p.Sub(tri.P[0]).Cross(p.Sub(tri.P[1])).Len() * invArea
	if s1 > 1 || s2 > 1 || s3 > 1 {
		return MaxIntersectDist, types.Vec3{}, false
	}
	if sum := s1 + s2 + s3; sum-1 > baryEpsilon || 1-sum > baryEpsilon {
		return MaxIntersectDist, types.Vec3{}, false
	}

	return t, types.XYZ(s1, s2, s3), true
}

// Run the intersection kernel that matches the geom type.
func intersectGeom(g *scene.Geom, r *types.Ray) (float32, types.Vec3) {
	switch g.Type {
	case scene.SquarePlaneGeom:
		return intersectSquarePlane(g, r)
	case scene.CubeGeom:
		return intersectBox(g, r)
	case scene.SphereGeom:
		return intersectSphere(g, r)
	}
	return MaxIntersectDist, types.Vec3{}
}
