package cpu

import (
	"testing"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
	"github.com/stretchr/testify/assert"
)

func lightScene(geoms ...scene.Geom) *scene.Scene {
	sc := &scene.Scene{
		Materials: []scene.Material{{Reflectance: types.Splat3(1), Emittance: 2}},
	}
	for index, g := range geoms {
		g.ID = int32(index)
		sc.Geoms = append(sc.Geoms, g)
		sc.Lights = append(sc.Lights, scene.Light{GeomID: g.ID, Area: g.SurfaceArea()})
	}
	return sc
}

func TestQuadLightSample(t *testing.T) {
	quad := scene.Geom{
		Type:      scene.SquarePlaneGeom,
		Transform: scene.NewTransform(types.XYZ(0, 5, 0), types.XYZ(90, 0, 0), types.XYZ(2, 4, 1)),
	}
	sd := newSceneData(lightScene(quad))
	s := newSampler(1, 0, 0, streamLight)

	for i := 0; i < 200; i++ {
		ls, ok := sd.sampleLight(&s)
		if !ok {
			t.Fatal("expected light sample to succeed")
		}
		if ls.LightIndex != 0 {
			t.Fatalf("expected light index 0; got %d", ls.LightIndex)
		}
		assert.InDelta(t, 5, ls.Point[1], 1e-4)
		if ls.Point[0] < -1-1e-4 || ls.Point[0] > 1+1e-4 || ls.Point[2] < -2-1e-4 || ls.Point[2] > 2+1e-4 {
			t.Fatalf("expected sample on the quad surface; got %v", ls.Point)
		}
		if !types.ApproxEqual(ls.Normal, types.XYZ(0, -1, 0), 1e-4) {
			t.Fatalf("expected quad normal (0, -1, 0); got %v", ls.Normal)
		}
		if !types.ApproxEqual(ls.Radiance, types.Splat3(2), 1e-6) {
			t.Fatalf("expected radiance (2, 2, 2); got %v", ls.Radiance)
		}
	}
}

func TestCubeLightSample(t *testing.T) {
	cube := scene.Geom{
		Type:      scene.CubeGeom,
		Transform: scene.NewTransform(types.Vec3{}, types.Vec3{}, types.XYZ(2, 2, 2)),
	}
	sd := newSceneData(lightScene(cube))
	s := newSampler(1, 0, 0, streamLight)

	var faceHits [3]int
	for i := 0; i < 600; i++ {
		ls, ok := sd.sampleLight(&s)
		if !ok {
			t.Fatal("expected light sample to succeed")
		}

		// Samples lie on a face and the normal points away from the center
		axis := 0
		for c := 1; c < 3; c++ {
			if abs32(ls.Normal[c]) > abs32(ls.Normal[axis]) {
				axis = c
			}
		}
		assert.InDelta(t, 1, abs32(ls.Point[axis]), 1e-4)
		if ls.Point.Dot(ls.Normal) <= 0 {
			t.Fatalf("expected outward normal; got %v at %v", ls.Normal, ls.Point)
		}
		faceHits[axis]++
	}

	for axis, count := range faceHits {
		if count == 0 {
			t.Fatalf("expected faces along axis %d to be sampled", axis)
		}
	}
}

func TestSphereLightSample(t *testing.T) {
	sphere := scene.Geom{
		Type:      scene.SphereGeom,
		Transform: scene.NewTransform(types.XYZ(0, 0, -5), types.Vec3{}, types.Splat3(2)),
	}
	sd := newSceneData(lightScene(sphere))
	s := newSampler(1, 0, 0, streamLight)

	center := types.XYZ(0, 0, -5)
	for i := 0; i < 200; i++ {
		ls, _ := sd.sampleLight(&s)
		offset := ls.Point.Sub(center)
		assert.InDelta(t, 1, offset.Len(), 1e-4)
		if !types.ApproxEqual(ls.Normal, offset.Normalize(), 1e-4) {
			t.Fatalf("expected radial normal; got %v at %v", ls.Normal, ls.Point)
		}
	}
}

func TestMeshLightSample(t *testing.T) {
	n := types.XYZ(0, 0, 1)
	sc := &scene.Scene{
		Geoms:     []scene.Geom{{ID: 0, Type: scene.MeshGeom}},
		Materials: []scene.Material{{Reflectance: types.Splat3(1), Emittance: 1}},
		Triangles: []scene.Triangle{
			scene.NewTriangle([3]types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [3]types.Vec3{n, n, n}, [3]types.Vec2{}, 0, 0),
		},
		Lights: []scene.Light{{GeomID: 0, Area: 0.5, Triangles: []int32{0}, TriangleCDF: []float32{1}}},
	}
	sd := newSceneData(sc)
	s := newSampler(1, 0, 0, streamLight)

	for i := 0; i < 200; i++ {
		ls, ok := sd.sampleLight(&s)
		if !ok {
			t.Fatal("expected light sample to succeed")
		}
		p := ls.Point
		if p[0] < -1e-5 || p[1] < -1e-5 || p[0]+p[1] > 1+1e-5 || p[2] != 0 {
			t.Fatalf("expected sample inside the triangle; got %v", p)
		}
		if !types.ApproxEqual(ls.Normal, n, 1e-6) {
			t.Fatalf("expected triangle plane normal; got %v", ls.Normal)
		}
	}
}

func TestLightPdf(t *testing.T) {
	quad := scene.Geom{
		Type:      scene.SquarePlaneGeom,
		Transform: scene.NewTransform(types.Vec3{}, types.Vec3{}, types.XYZ(2, 2, 1)),
	}
	sd := newSceneData(lightScene(quad, quad))

	// pdf = d^2 / (|cos| * area) / numLights
	assert.InDelta(t, 9.0/(0.5*4)/2, sd.lightPdf(0, 3, 0.5), 1e-5)
	assert.InDelta(t, 9.0/(0.5*4)/2, sd.lightPdf(1, 3, -0.5), 1e-5)
	if pdf := sd.lightPdf(0, 3, 0); pdf != 0 {
		t.Fatalf("expected zero pdf for a light seen edge-on; got %f", pdf)
	}

	sd = newSceneData(&scene.Scene{})
	s := newSampler(1, 0, 0, streamLight)
	if _, ok := sd.sampleLight(&s); ok {
		t.Fatal("expected sampling to fail for a scene without lights")
	}
}
