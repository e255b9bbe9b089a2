package scene

import (
	"math"
	"strings"
	"testing"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/material"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformConsistency(t *testing.T) {
	tr := NewTransform(types.XYZ(1, -2, 3), types.XYZ(30, 45, 60), types.XYZ(2, 0.5, 4))

	if !tr.Matrix.Mul4(tr.Inverse).ApproxEqual(types.Ident4(), 1e-4) {
		t.Fatal("expected transform * inverse to be the identity matrix")
	}
	if !tr.Inverse.Transpose().ApproxEqual(tr.InvTranspose, 1e-6) {
		t.Fatal("expected inverse transpose to match the transposed inverse")
	}

	p := types.XYZ(0.25, -0.5, 0.125)
	back := tr.Inverse.MulPoint(tr.Matrix.MulPoint(p))
	if !types.ApproxEqual(p, back, 1e-4) {
		t.Fatalf("expected point round trip to return %v; got %v", p, back)
	}
}

func TestTransformNormalStaysPerpendicular(t *testing.T) {
	// Non-uniform scale skews normals unless the inverse transpose is used.
	tr := NewTransform(types.Vec3{}, types.XYZ(0, 0, 45), types.XYZ(4, 1, 1))

	tangent := tr.Matrix.MulDir(types.XYZ(1, -1, 0))
	n := tr.TransformNormal(types.XYZ(1, 1, 0))
	assert.InDelta(t, 0, n.Dot(tangent.Normalize()), 1e-5)
	assert.InDelta(t, 1, n.Len(), 1e-5)
}

func TestTriangleDerivedFields(t *testing.T) {
	tri := NewTriangle(
		[3]types.Vec3{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}},
		[3]types.Vec3{},
		[3]types.Vec2{},
		3, 7,
	)

	assert.InDelta(t, 2, tri.Area, 1e-6)
	if !types.ApproxEqual(tri.PlaneNormal, types.XYZ(0, 0, 1), 1e-6) {
		t.Fatalf("expected plane normal (0, 0, 1); got %v", tri.PlaneNormal)
	}

	bbox := tri.BBox()
	if bbox[0] != types.XYZ(0, 0, 0) || bbox[1] != types.XYZ(2, 2, 0) {
		t.Fatalf("expected bbox [(0 0 0) (2 2 0)]; got %v", bbox)
	}

	// No vertex normals; shading normal falls back to the plane normal.
	if n := tri.ShadingNormal(types.XYZ(0.2, 0.3, 0.5)); n != tri.PlaneNormal {
		t.Fatalf("expected shading normal fallback to plane normal; got %v", n)
	}
}

func TestGeomSurfaceArea(t *testing.T) {
	specs := []struct {
		geom Geom
		exp  float32
	}{
		{Geom{Type: SquarePlaneGeom, Transform: NewTransform(types.Vec3{}, types.Vec3{}, types.XYZ(3, 2, 1))}, 6},
		{Geom{Type: CubeGeom, Transform: NewTransform(types.Vec3{}, types.Vec3{}, types.XYZ(1, 2, 3))}, 22},
		{Geom{Type: SphereGeom, Transform: NewTransform(types.Vec3{}, types.Vec3{}, types.Splat3(2))}, 4 * math.Pi},
	}

	for index, spec := range specs {
		assert.InDeltaf(t, spec.exp, spec.geom.SurfaceArea(), 1e-3, "spec %d (%s)", index, spec.geom.Type)
	}
}

func TestGeomTypeNames(t *testing.T) {
	for _, name := range []string{"sphere", "cube", "squareplane"} {
		gt, ok := GeomTypeFromName(name)
		if !ok {
			t.Fatalf("expected %q to be a known geom type", name)
		}
		if gt.String() != name {
			t.Fatalf("expected geom type name %q; got %q", name, gt.String())
		}
	}

	if _, ok := GeomTypeFromName("torus"); ok {
		t.Fatal("expected torus to be rejected")
	}
}

func TestCameraSetup(t *testing.T) {
	cam := NewCamera(types.XYZ(0, 2.5, 18), types.XYZ(0, 2.5, 0), types.XYZ(0, 1, 0), 45, 800, 600)

	require.True(t, types.ApproxEqual(cam.View, types.XYZ(0, 0, -1), 1e-6), "view: %v", cam.View)
	require.True(t, types.ApproxEqual(cam.Right, types.XYZ(1, 0, 0), 1e-6), "right: %v", cam.Right)
	require.True(t, types.ApproxEqual(cam.Up, types.XYZ(0, 1, 0), 1e-6), "up: %v", cam.Up)

	// tan(45) = 1 so the image plane spans [-1, 1] vertically.
	assert.InDelta(t, 2.0/600.0, cam.PixelLength[1], 1e-7)
	assert.InDelta(t, 2.0*(800.0/600.0)/800.0, cam.PixelLength[0], 1e-7)

	center := cam.Ray(400, 300, types.Vec2{})
	if !types.ApproxEqual(center.Dir, cam.View, 1e-6) {
		t.Fatalf("expected center ray to follow the view direction; got %v", center.Dir)
	}

	topLeft := cam.Ray(0, 0, types.Vec2{})
	if topLeft.Dir[0] >= 0 || topLeft.Dir[1] <= 0 {
		t.Fatalf("expected top-left ray to point left and up; got %v", topLeft.Dir)
	}
}

func TestCameraThinLensFocus(t *testing.T) {
	cam := NewCamera(types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), types.XYZ(0, 1, 0), 30, 64, 64)
	cam.FocalDistance = 5
	cam.LensRadius = 0.5

	// All lens samples for a pixel converge on the same focal plane point.
	pinhole := cam.Ray(10, 20, types.Vec2{})
	focus := pinhole.At(5 / pinhole.Dir.Dot(cam.View))
	for _, lens := range []types.Vec2{{1, 0}, {0, -1}, {-0.5, 0.5}} {
		r := cam.Ray(10, 20, lens)
		hit := r.At((focus[2] - r.Origin[2]) / r.Dir[2])
		if !types.ApproxEqual(hit, focus, 1e-4) {
			t.Fatalf("expected lens sample %v to focus at %v; got %v", lens, focus, hit)
		}
	}
}

func TestLightPickTriangle(t *testing.T) {
	l := Light{
		Triangles:   []int32{4, 5, 6},
		TriangleCDF: []float32{0.25, 0.5, 1.0},
	}

	specs := []struct {
		u   float32
		exp int32
	}{
		{0, 4}, {0.2, 4}, {0.25, 5}, {0.49, 5}, {0.5, 6}, {0.999, 6},
	}
	for _, spec := range specs {
		if got := l.PickTriangle(spec.u); got != spec.exp {
			t.Fatalf("expected u=%f to pick triangle %d; got %d", spec.u, spec.exp, got)
		}
	}
}

func TestSceneStats(t *testing.T) {
	sc := &Scene{
		Geoms:     []Geom{{ID: 0, Type: SquarePlaneGeom}},
		Materials: []Material{{ID: 0, Bxdf: material.BxdfDiffuseReflection, Emittance: 5}},
		Lights:    []Light{{GeomID: 0, Area: 2}},
	}

	stats := sc.Stats()
	for _, exp := range []string{"Geoms", "Lights", "diffuse", "area 2.000"} {
		if !strings.Contains(stats, exp) {
			t.Fatalf("expected stats to contain %q; got:\n%s", exp, stats)
		}
	}

	if sc.LightIndex(0) != 0 || sc.LightIndex(1) != -1 {
		t.Fatal("expected LightIndex to find only the emissive geom")
	}
}
