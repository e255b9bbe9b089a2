package cpu

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// A point sampled on the surface of a light.
type lightSample struct {
	LightIndex int32
	Point      types.Vec3
	Normal     types.Vec3
	Radiance   types.Vec3
}

// Pick a light uniformly and sample a point uniformly by area on its
// surface.
func (sd *sceneData) sampleLight(s *sampler) (lightSample, bool) {
	numLights := len(sd.scene.Lights)
	if numLights == 0 {
		return lightSample{}, false
	}

	lightIndex := min(int(s.Float()*float32(numLights)), numLights-1)
	light := &sd.scene.Lights[lightIndex]
	g := &sd.scene.Geoms[light.GeomID]

	ls := lightSample{
		LightIndex: int32(lightIndex),
		Radiance:   sd.scene.Materials[g.MaterialID].Radiance(),
	}

	switch g.Type {
	case scene.SquarePlaneGeom:
		u := s.Vec2()
		ls.Point = g.Matrix.MulPoint(types.XYZ(u[0]-0.5, u[1]-0.5, 0))
		ls.Normal = g.TransformNormal(types.XYZ(0, 0, 1))
	case scene.CubeGeom:
		ls.Point, ls.Normal = sampleCubeFace(g, s)
	case scene.SphereGeom:
		d := uniformSampleSphere(s.Vec2())
		ls.Point = g.Matrix.MulPoint(d.Mul(0.5))
		ls.Normal = g.TransformNormal(d)
	case scene.MeshGeom:
		triIndex := light.PickTriangle(s.Float())
		if triIndex < 0 {
			return lightSample{}, false
		}
		tri := &sd.scene.Triangles[triIndex]
		bary := uniformSampleTriangle(s.Vec2())
		ls.Point = tri.P[0].Mul(bary[0]).Add(tri.P[1].Mul(bary[1])).Add(tri.P[2].Mul(bary[2]))
		ls.Normal = tri.PlaneNormal
	default:
		return lightSample{}, false
	}

	return ls, true
}

// Sample a cube face in proportion to its world space area and then a
// uniform point on that face.
func sampleCubeFace(g *scene.Geom, s *sampler) (types.Vec3, types.Vec3) {
	sx, sy, sz := abs32(g.Scale[0]), abs32(g.Scale[1]), abs32(g.Scale[2])
	faceAreas := [3]float32{sy * sz, sx * sz, sx * sy}
	total := faceAreas[0] + faceAreas[1] + faceAreas[2]

	pick := s.Float() * total
	axis := 2
	if pick < faceAreas[0] {
		axis = 0
	} else if pick < faceAreas[0]+faceAreas[1] {
		axis = 1
	}

	side := float32(0.5)
	if s.Float() < 0.5 {
		side = -0.5
	}

	u := s.Vec2()
	var p, n types.Vec3
	p[axis] = side
	p[(axis+1)%3] = u[0] - 0.5
	p[(axis+2)%3] = u[1] - 0.5
	n[axis] = side * 2

	return g.Matrix.MulPoint(p), g.TransformNormal(n)
}

// The solid angle pdf of sampling a point on a light, as seen from a point
// dist units away with cosLight the cosine between the light normal and the
// connecting direction.
func (sd *sceneData) lightPdf(lightIndex int32, dist, cosLight float32) float32 {
	light := &sd.scene.Lights[lightIndex]
	cosLight = abs32(cosLight)
	if cosLight == 0 || light.Area <= 0 {
		return 0
	}
	return dist * dist / (cosLight * light.Area) / float32(len(sd.scene.Lights))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
