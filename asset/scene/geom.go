package scene

import (
	"math"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// The closed set of supported geometry types.
type GeomType uint8

const (
	// A sphere of radius 0.5 centered at the object space origin.
	SphereGeom GeomType = iota

	// A unit cube spanning [-0.5, 0.5] on each axis.
	CubeGeom

	// A unit quad on the object space z = 0 plane.
	SquarePlaneGeom

	// A triangle mesh loaded from a wavefront file. Its triangles are
	// pre-transformed to world space and stored in the scene triangle list.
	MeshGeom
)

var geomTypeNames = [...]string{
	SphereGeom:      "sphere",
	CubeGeom:        "cube",
	SquarePlaneGeom: "squareplane",
	MeshGeom:        "mesh",
}

// Lookup an analytic geom type by its scene file keyword.
func GeomTypeFromName(name string) (GeomType, bool) {
	switch name {
	case "sphere":
		return SphereGeom, true
	case "cube":
		return CubeGeom, true
	case "squareplane":
		return SquarePlaneGeom, true
	}
	return 0, false
}

func (t GeomType) String() string {
	if int(t) < len(geomTypeNames) {
		return geomTypeNames[t]
	}
	return "unknown"
}

// Returns true if the geom is stored as triangles inside the scene BVH.
func (t GeomType) IsTriangulated() bool {
	return t == MeshGeom
}

// An object to world transform together with its inverse and inverse
// transpose. Use NewTransform to build one so that all matrices agree.
type Transform struct {
	Translation types.Vec3
	Rotation    types.Vec3
	Scale       types.Vec3

	Matrix       types.Mat4
	Inverse      types.Mat4
	InvTranspose types.Mat4
}

// Build a transform from a translation, euler rotation (degrees) and scale.
// The composed matrix is T * R * S.
func NewTransform(translation, rotation, scale types.Vec3) Transform {
	m := types.Translate4(translation).Mul4(types.Rotate4(rotation)).Mul4(types.Scale4(scale))
	inv := m.Inv()
	return Transform{
		Translation:  translation,
		Rotation:     rotation,
		Scale:        scale,
		Matrix:       m,
		Inverse:      inv,
		InvTranspose: inv.Transpose(),
	}
}

// Transform a normal to world space.
func (t *Transform) TransformNormal(n types.Vec3) types.Vec3 {
	return t.InvTranspose.MulDir(n).Normalize()
}

// A scene geometry entry.
type Geom struct {
	ID         int32
	Type       GeomType
	MaterialID int32
	Transform

	// The source file for mesh geoms.
	MeshPath string

	// Number of scene triangles contributed by mesh geoms.
	TriangleCount int32
}

// A world-space triangle.
type Triangle struct {
	P  [3]types.Vec3
	N  [3]types.Vec3
	UV [3]types.Vec2

	// Unit plane normal following the p0, p1, p2 winding.
	PlaneNormal types.Vec3

	// Triangle area: 0.5 * |(p0 - p1) x (p0 - p2)|.
	Area float32

	MaterialID int32
	GeomID     int32
}

// Create a triangle and precompute its plane normal and area.
func NewTriangle(p, n [3]types.Vec3, uv [3]types.Vec2, materialID, geomID int32) Triangle {
	cross := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
	return Triangle{
		P:           p,
		N:           n,
		UV:          uv,
		PlaneNormal: cross.Normalize(),
		Area:        0.5 * cross.Len(),
		MaterialID:  materialID,
		GeomID:      geomID,
	}
}

// Get the triangle AABB.
func (t *Triangle) BBox() [2]types.Vec3 {
	return [2]types.Vec3{
		types.MinVec3(t.P[0], types.MinVec3(t.P[1], t.P[2])),
		types.MaxVec3(t.P[0], types.MaxVec3(t.P[1], t.P[2])),
	}
}

// Get the triangle centroid.
func (t *Triangle) Center() types.Vec3 {
	return t.P[0].Add(t.P[1]).Add(t.P[2]).Mul(1.0 / 3.0)
}

// Interpolate the shading normal using barycentric weights for p0, p1, p2.
// Falls back to the plane normal if the triangle carries no normals.
func (t *Triangle) ShadingNormal(bary types.Vec3) types.Vec3 {
	n := t.N[0].Mul(bary[0]).Add(t.N[1].Mul(bary[1])).Add(t.N[2].Mul(bary[2])).Normalize()
	if n.IsZero() {
		return t.PlaneNormal
	}
	return n
}

// Calculate the world-space surface area of an analytic geom. Spheres under
// non-uniform scale use the Knud Thomsen ellipsoid approximation.
func (g *Geom) SurfaceArea() float32 {
	s := g.Scale
	sx, sy, sz := abs32(s[0]), abs32(s[1]), abs32(s[2])
	switch g.Type {
	case SquarePlaneGeom:
		return sx * sy
	case CubeGeom:
		return 2 * (sx*sy + sy*sz + sx*sz)
	case SphereGeom:
		const p = 1.6075
		a, b, c := float64(sx*0.5), float64(sy*0.5), float64(sz*0.5)
		ap, bp, cp := math.Pow(a, p), math.Pow(b, p), math.Pow(c, p)
		return float32(4 * math.Pi * math.Pow((ap*bp+ap*cp+bp*cp)/3, 1/p))
	}
	return 0
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
