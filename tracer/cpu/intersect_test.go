package cpu

import (
	"testing"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
	"github.com/stretchr/testify/assert"
)

const kernelTolerance = 1e-4

func makeGeom(geomType scene.GeomType, translation, rotation, scale types.Vec3) *scene.Geom {
	return &scene.Geom{
		Type:      geomType,
		Transform: scene.NewTransform(translation, rotation, scale),
	}
}

type kernelSpec struct {
	descr   string
	geom    *scene.Geom
	origin  types.Vec3
	dir     types.Vec3
	expDist float32
	expN    types.Vec3
}

func runKernelSpecs(t *testing.T, specs []kernelSpec) {
	t.Helper()
	for _, s := range specs {
		r := types.NewRay(s.origin, s.dir)
		dist, n := intersectGeom(s.geom, &r)
		if s.expDist == MaxIntersectDist {
			if dist != MaxIntersectDist {
				t.Fatalf("[%s] expected ray to miss; got hit at %f", s.descr, dist)
			}
			continue
		}

		assert.InDelta(t, s.expDist, dist, kernelTolerance, s.descr)
		if !types.ApproxEqual(n, s.expN, kernelTolerance) {
			t.Fatalf("[%s] expected normal %v; got %v", s.descr, s.expN, n)
		}
	}
}

func TestSquarePlaneIntersection(t *testing.T) {
	quad := makeGeom(scene.SquarePlaneGeom, types.XYZ(0, 0, -5), types.Vec3{}, types.XYZ(2, 2, 1))
	rotated := makeGeom(scene.SquarePlaneGeom, types.Vec3{}, types.XYZ(90, 0, 0), types.XYZ(1, 1, 1))

	runKernelSpecs(t, []kernelSpec{
		{"center hit", quad, types.Vec3{}, types.XYZ(0, 0, -1), 5, types.XYZ(0, 0, 1)},
		{"hit from behind", quad, types.XYZ(0, 0, -10), types.XYZ(0, 0, 1), 5, types.XYZ(0, 0, 1)},
		{"near edge", quad, types.XYZ(0.99, -0.99, 0), types.XYZ(0, 0, -1), 5, types.XYZ(0, 0, 1)},
		{"outside extent", quad, types.XYZ(1.1, 0, 0), types.XYZ(0, 0, -1), MaxIntersectDist, types.Vec3{}},
		{"parallel", quad, types.XYZ(0, 0, -5), types.XYZ(1, 0, 0), MaxIntersectDist, types.Vec3{}},
		{"pointing away", quad, types.Vec3{}, types.XYZ(0, 0, 1), MaxIntersectDist, types.Vec3{}},
		{"rotated", rotated, types.XYZ(0, -5, 0), types.XYZ(0, 1, 0), 5, types.XYZ(0, -1, 0)},
		{"oblique", quad, types.XYZ(-2.5, 0, -1), types.XYZ(0.6, 0, -0.8), 5, types.XYZ(0, 0, 1)},
	})
}

func TestBoxIntersection(t *testing.T) {
	box := makeGeom(scene.CubeGeom, types.XYZ(0, 0, -5), types.Vec3{}, types.XYZ(2, 2, 2))
	flat := makeGeom(scene.CubeGeom, types.Vec3{}, types.Vec3{}, types.XYZ(4, 1, 1))

	runKernelSpecs(t, []kernelSpec{
		{"front face", box, types.Vec3{}, types.XYZ(0, 0, -1), 4, types.XYZ(0, 0, 1)},
		{"side face", box, types.XYZ(-10, 0, -5), types.XYZ(1, 0, 0), 9, types.XYZ(-1, 0, 0)},
		{"inside exit", box, types.XYZ(0, 0, -5), types.XYZ(1, 0, 0), 1, types.XYZ(1, 0, 0)},
		{"inside exit top", box, types.XYZ(0, 0, -5), types.XYZ(0, 1, 0), 1, types.XYZ(0, 1, 0)},
		{"miss", box, types.XYZ(3, 0, 0), types.XYZ(0, 0, -1), MaxIntersectDist, types.Vec3{}},
		{"behind", box, types.Vec3{}, types.XYZ(0, 0, 1), MaxIntersectDist, types.Vec3{}},
		{"non-uniform scale", flat, types.XYZ(10, 0, 0), types.XYZ(-1, 0, 0), 8, types.XYZ(1, 0, 0)},
	})
}

func TestSphereIntersection(t *testing.T) {
	sphere := makeGeom(scene.SphereGeom, types.XYZ(0, 0, -5), types.Vec3{}, types.XYZ(2, 2, 2))
	ellipsoid := makeGeom(scene.SphereGeom, types.XYZ(0, 0, -5), types.Vec3{}, types.XYZ(2, 4, 2))

	runKernelSpecs(t, []kernelSpec{
		{"front", sphere, types.Vec3{}, types.XYZ(0, 0, -1), 4, types.XYZ(0, 0, 1)},
		{"inside", sphere, types.XYZ(0, 0, -5), types.XYZ(0, 1, 0), 1, types.XYZ(0, 1, 0)},
		{"miss", sphere, types.XYZ(5, 0, 0), types.XYZ(0, 0, -1), MaxIntersectDist, types.Vec3{}},
		{"behind", sphere, types.Vec3{}, types.XYZ(0, 0, 1), MaxIntersectDist, types.Vec3{}},
		{"ellipsoid pole", ellipsoid, types.XYZ(0, 10, -5), types.XYZ(0, -1, 0), 8, types.XYZ(0, 1, 0)},
		{"ellipsoid equator", ellipsoid, types.XYZ(10, 0, -5), types.XYZ(-1, 0, 0), 9, types.XYZ(1, 0, 0)},
	})
}

func TestTriangleIntersection(t *testing.T) {
	n := types.XYZ(0, 0, 1)
	tri := scene.NewTriangle(
		[3]types.Vec3{{-1, -1, -5}, {1, -1, -5}, {0, 1, -5}},
		[3]types.Vec3{n, n, n},
		[3]types.Vec2{},
		0, 0,
	)

	r := types.NewRay(types.Vec3{}, types.XYZ(0, 0, -1))
	dist, bary, ok := intersectTriangle(&tri, &r)
	if !ok {
		t.Fatal("expected ray to hit the triangle")
	}
	assert.InDelta(t, 5, dist, kernelTolerance)
	assert.InDelta(t, 1, bary[0]+bary[1]+bary[2], kernelTolerance)

	// Hitting a vertex yields a unit weight for it.
	r = types.NewRay(types.XYZ(0, 1, 0), types.XYZ(0, 0, -1))
	_, bary, ok = intersectTriangle(&tri, &r)
	if !ok {
		t.Fatal("expected ray through vertex to hit the triangle")
	}
	assert.InDelta(t, 1, bary[2], kernelTolerance)

	misses := []struct {
		descr  string
		origin types.Vec3
		dir    types.Vec3
	}{
		{"outside", types.XYZ(2, 2, 0), types.XYZ(0, 0, -1)},
		{"behind", types.Vec3{}, types.XYZ(0, 0, 1)},
		{"parallel", types.XYZ(0, 0, -5), types.XYZ(1, 0, 0)},
	}
	for _, s := range misses {
		r := types.NewRay(s.origin, s.dir)
		if _, _, ok := intersectTriangle(&tri, &r); ok {
			t.Fatalf("[%s] expected ray to miss the triangle", s.descr)
		}
	}

	degenerate := scene.NewTriangle(
		[3]types.Vec3{{0, 0, -5}, {1, 0, -5}, {2, 0, -5}},
		[3]types.Vec3{},
		[3]types.Vec2{},
		0, 0,
	)
	r = types.NewRay(types.XYZ(1, 0, 0), types.XYZ(0, 0, -1))
	if _, _, ok := intersectTriangle(&degenerate, &r); ok {
		t.Fatal("expected degenerate triangle to never be hit")
	}
}

func TestRayBoxIntersect(t *testing.T) {
	bmin, bmax := types.XYZ(-1, -1, -1), types.XYZ(1, 1, 1)

	specs := []struct {
		descr   string
		origin  types.Vec3
		dir     types.Vec3
		maxDist float32
		exp     bool
	}{
		{"hit", types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), MaxIntersectDist, true},
		{"inside", types.Vec3{}, types.XYZ(1, 1, 0), MaxIntersectDist, true},
		{"miss", types.XYZ(3, 0, 5), types.XYZ(0, 0, -1), MaxIntersectDist, false},
		{"behind", types.XYZ(0, 0, 5), types.XYZ(0, 0, 1), MaxIntersectDist, false},
		{"beyond max dist", types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), 3, false},
		{"graze face", types.XYZ(1, 0, 5), types.XYZ(0, 0, -1), MaxIntersectDist, true},
		{"graze edge", types.XYZ(1, 1, 5), types.XYZ(0, 0, -1), MaxIntersectDist, true},
		{"along face plane", types.XYZ(-5, 1, 0), types.XYZ(1, 0, 0), MaxIntersectDist, true},
	}

	for _, s := range specs {
		r := types.NewRay(s.origin, s.dir)
		if got := rayBoxIntersect(&r, bmin, bmax, s.maxDist); got != s.exp {
			t.Fatalf("[%s] expected box test to return %t; got %t", s.descr, s.exp, got)
		}
	}
}
